package eventlog

import (
	"encoding/hex"

	"github.com/aquilairreale/mongohoneypot/pkg/wire"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/x/bsonx/bsoncore"
)

// renderValue walks v, replacing values that encoding/json cannot render
// sensibly (raw BSON documents, wire message sections, binary blobs) with
// small tagged maps, the way the Python prototype's convert_bson did for
// pymongo's Binary/BodySection/DocumentSequenceSection types. Everything
// else passes through unchanged so json.Marshal handles it natively.
func renderValue(v interface{}) interface{} {
	switch x := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(x))
		for k, vv := range x {
			out[k] = renderValue(vv)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(x))
		for i, vv := range x {
			out[i] = renderValue(vv)
		}
		return out
	case bsoncore.Document:
		return renderDocument(x)
	case []bsoncore.Document:
		out := make([]interface{}, len(x))
		for i, d := range x {
			out[i] = renderDocument(d)
		}
		return out
	case wire.SectionBody:
		return map[string]interface{}{
			"$mongo": "msgmsg_body",
			"body":   renderDocument(x.Body),
		}
	case wire.SectionSequence:
		docs := make([]interface{}, len(x.Documents))
		size := len(x.Identifier) + 5
		for i, d := range x.Documents {
			docs[i] = renderDocument(d)
			size += len(d)
		}
		return map[string]interface{}{
			"$mongo":                       "msgmsg_document_sequence",
			"body":                         size,
			"document_sequence_identifier": x.Identifier,
			"documents":                    docs,
		}
	case []wire.Section:
		out := make([]interface{}, len(x))
		for i, s := range x {
			out[i] = renderValue(s)
		}
		return out
	case []byte:
		return map[string]interface{}{
			"$bson": "binary",
			"value": hex.EncodeToString(x),
		}
	default:
		return v
	}
}

// renderDocument decodes a raw BSON document into extended-JSON-ish plain
// Go values (maps, slices, scalars) so it marshals readably instead of as a
// base64 byte string. Malformed documents fall back to their hex bytes
// rather than failing the whole log entry.
func renderDocument(doc bsoncore.Document) interface{} {
	var m bson.M
	if err := bson.Unmarshal(doc, &m); err != nil {
		return map[string]interface{}{
			"$bson": "binary",
			"value": hex.EncodeToString(doc),
		}
	}
	return renderValue(toPlainValue(m))
}

// toPlainValue recursively converts bson.M/bson.D into
// map[string]interface{} and bson.A into []interface{} so renderValue's type
// switch can apply uniformly; primitive.Binary becomes the tagged
// {"$bson": "binary", "value": <hex>} map directly.
func toPlainValue(v interface{}) interface{} {
	switch x := v.(type) {
	case bson.M:
		out := make(map[string]interface{}, len(x))
		for k, vv := range x {
			out[k] = toPlainValue(vv)
		}
		return out
	case bson.D:
		out := make(map[string]interface{}, len(x))
		for _, e := range x {
			out[e.Key] = toPlainValue(e.Value)
		}
		return out
	case bson.A:
		out := make([]interface{}, len(x))
		for i, vv := range x {
			out[i] = toPlainValue(vv)
		}
		return out
	case primitive.Binary:
		return map[string]interface{}{
			"$bson": "binary",
			"value": hex.EncodeToString(x.Data),
		}
	default:
		return v
	}
}
