package wire

import (
	"errors"

	"go.mongodb.org/mongo-driver/x/bsonx/bsoncore"
	"go.mongodb.org/mongo-driver/x/mongo/driver/wiremessage"
)

// OpQuery is the legacy OP_QUERY request: a collection-scoped query with an
// optional projection (return_fields_selector).
type OpQuery struct {
	Hdr                  Header
	Flags                wiremessage.QueryFlag
	FullCollectionName   string
	NumberToSkip         int32
	NumberToReturn       int32
	Query                bsoncore.Document
	ReturnFieldsSelector bsoncore.Document
}

func decodeQuery(h Header, body []byte) (*OpQuery, error) {
	var ok bool
	q := &OpQuery{Hdr: h}

	q.Flags, body, ok = wiremessage.ReadQueryFlags(body)
	if !ok {
		return nil, errors.New("wire: OP_QUERY: missing flags")
	}
	q.FullCollectionName, body, ok = wiremessage.ReadQueryFullCollectionName(body)
	if !ok {
		return nil, errors.New("wire: OP_QUERY: missing full collection name")
	}
	q.NumberToSkip, body, ok = wiremessage.ReadQueryNumberToSkip(body)
	if !ok {
		return nil, errors.New("wire: OP_QUERY: missing number_to_skip")
	}
	q.NumberToReturn, body, ok = wiremessage.ReadQueryNumberToReturn(body)
	if !ok {
		return nil, errors.New("wire: OP_QUERY: missing number_to_return")
	}
	q.Query, body, ok = wiremessage.ReadQueryQuery(body)
	if !ok {
		return nil, errors.New("wire: OP_QUERY: missing query document")
	}

	// return_fields_selector is present only if bytes remain; otherwise it
	// defaults to an empty document.
	if len(body) > 0 {
		q.ReturnFieldsSelector, _, ok = wiremessage.ReadQueryReturnFieldsSelector(body)
		if !ok {
			return nil, errors.New("wire: OP_QUERY: malformed return_fields_selector")
		}
	} else {
		q.ReturnFieldsSelector = bsoncore.Document{}
	}

	return q, nil
}

func (q *OpQuery) OpCode() wiremessage.OpCode { return wiremessage.OpQuery }
func (q *OpQuery) Header() Header             { return q.Hdr }

func (q *OpQuery) Encode() []byte {
	var buf []byte
	idx, buf := wiremessage.AppendHeaderStart(buf, q.Hdr.RequestID, q.Hdr.ResponseTo, wiremessage.OpQuery)
	buf = wiremessage.AppendQueryFlags(buf, q.Flags)
	buf = wiremessage.AppendQueryFullCollectionName(buf, q.FullCollectionName)
	buf = wiremessage.AppendQueryNumberToSkip(buf, q.NumberToSkip)
	buf = wiremessage.AppendQueryNumberToReturn(buf, q.NumberToReturn)
	buf = append(buf, q.Query...)
	if len(q.ReturnFieldsSelector) != 0 {
		buf = append(buf, q.ReturnFieldsSelector...)
	}
	return bsoncore.UpdateLength(buf, idx, int32(len(buf[idx:])))
}
