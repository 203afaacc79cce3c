// Package analyzer inspects decoded OP_MSG requests for the handful of
// operator payload shapes a honeypot cares about ($where, $regex) and
// records them through an eventlog.Logger. It never fails the proxy path:
// every inspection is best-effort, and unrecognized shapes are ignored.
package analyzer

import (
	"github.com/aquilairreale/mongohoneypot/pkg/eventlog"
	"github.com/aquilairreale/mongohoneypot/pkg/wire"
	"go.mongodb.org/mongo-driver/x/bsonx/bsoncore"
)

// Direction distinguishes a client request from an upstream response in the
// logged entry; only requests are inspected for suspicious content, but
// both directions get the msgmsg trace entry.
type Direction string

const (
	DirectionRequest  Direction = "request"
	DirectionResponse Direction = "response"
)

// Analyzer emits structured findings for OP_MSG traffic to an event log.
type Analyzer struct {
	log *eventlog.Logger
}

// New builds an Analyzer that writes findings to log.
func New(log *eventlog.Logger) *Analyzer {
	return &Analyzer{log: log}
}

// Inspect analyzes msg if it is an OP_MSG, tagging findings with the given
// direction and peer address. Non-OP_MSG messages, and any decode error
// this function runs into, are silently skipped — analysis never fails the
// proxy path.
func (a *Analyzer) Inspect(msg wire.Message, dir Direction, peer string) {
	m, ok := msg.(*wire.OpMsg)
	if !ok {
		return
	}

	a.log.Log("request", "msgmsg", map[string]interface{}{
		"direction":   string(dir),
		"peer":        peer,
		"request_id":  m.Hdr.RequestID,
		"response_to": m.Hdr.ResponseTo,
		"sections":    m.Sections,
	})

	if dir != DirectionRequest {
		return
	}

	for _, section := range m.Sections {
		body, ok := section.(wire.SectionBody)
		if !ok {
			continue
		}
		a.inspectBody(body.Body, peer)
	}
}

// inspectBody applies the suspicious-shape rules to one Body section,
// recursing into a nested filter document when the section is a `find`
// command.
func (a *Analyzer) inspectBody(doc bsoncore.Document, peer string) {
	if where, ok := lookupWhere(doc); ok {
		a.log.Log("suspicious_activity", "$where", map[string]interface{}{
			"peer":  peer,
			"query": where,
		})
		return
	}

	for _, pattern := range lookupRegexFields(doc) {
		a.log.Log("suspicious_activity", "$regex", map[string]interface{}{
			"peer":    peer,
			"field":   pattern.field,
			"pattern": pattern.pattern,
		})
	}

	if filter, ok := lookupFindFilter(doc); ok {
		a.inspectBody(filter, peer)
	}
}

// lookupWhere reports whether doc has a top-level "$where" field, returning
// its value rendered as a string for logging.
func lookupWhere(doc bsoncore.Document) (string, bool) {
	val, err := doc.LookupErr("$where")
	if err != nil {
		return "", false
	}
	return valueAsString(val), true
}

// valueAsString renders a BSON value for logging: plain strings pass
// through unquoted, everything else falls back to its debug string.
func valueAsString(val bsoncore.Value) string {
	if s, ok := val.StringValueOK(); ok {
		return s
	}
	return val.String()
}

type regexField struct {
	field   string
	pattern string
}

// lookupRegexFields scans doc's top-level fields (skipping operator fields
// that begin with "$") for values shaped like {"$regex": <pattern>, ...}.
func lookupRegexFields(doc bsoncore.Document) []regexField {
	elems, err := doc.Elements()
	if err != nil {
		return nil
	}

	var found []regexField
	for _, elem := range elems {
		key := elem.Key()
		if len(key) > 0 && key[0] == '$' {
			continue
		}
		val := elem.Value()
		if val.Type != bsoncore.TypeEmbeddedDocument {
			continue
		}
		sub, ok := val.DocumentOK()
		if !ok {
			continue
		}
		pat, err := sub.LookupErr("$regex")
		if err != nil {
			continue
		}
		found = append(found, regexField{field: key, pattern: valueAsString(pat)})
	}
	return found
}

// lookupFindFilter reports whether doc is a `find` command carrying a
// `filter` subdocument, returning that subdocument for recursive analysis.
func lookupFindFilter(doc bsoncore.Document) (bsoncore.Document, bool) {
	if _, err := doc.LookupErr("find"); err != nil {
		return nil, false
	}
	filter, err := doc.LookupErr("filter")
	if err != nil {
		return nil, false
	}
	sub, ok := filter.DocumentOK()
	if !ok {
		return nil, false
	}
	return sub, true
}
