package wire

import (
	"errors"

	"go.mongodb.org/mongo-driver/x/bsonx/bsoncore"
	"go.mongodb.org/mongo-driver/x/mongo/driver/wiremessage"
)

// OpInsert is the legacy OP_INSERT request: one or more documents to insert,
// running to the end of the message.
type OpInsert struct {
	Hdr                Header
	Flags              int32
	FullCollectionName string
	Documents          []bsoncore.Document
}

func decodeInsert(h Header, body []byte) (*OpInsert, error) {
	var ok bool
	i := &OpInsert{Hdr: h}

	i.Flags, body, ok = readi32(body)
	if !ok {
		return nil, errors.New("wire: OP_INSERT: missing flags")
	}
	i.FullCollectionName, body, ok = wiremessage.ReadQueryFullCollectionName(body)
	if !ok {
		return nil, errors.New("wire: OP_INSERT: missing full collection name")
	}
	i.Documents, _, ok = wiremessage.ReadReplyDocuments(body)
	if !ok {
		return nil, errors.New("wire: OP_INSERT: could not read documents")
	}

	return i, nil
}

func (i *OpInsert) OpCode() wiremessage.OpCode { return wiremessage.OpInsert }
func (i *OpInsert) Header() Header             { return i.Hdr }

func (i *OpInsert) Encode() []byte {
	var buf []byte
	idx, buf := wiremessage.AppendHeaderStart(buf, i.Hdr.RequestID, i.Hdr.ResponseTo, wiremessage.OpInsert)
	buf = appendi32(buf, i.Flags)
	buf = appendCString(buf, i.FullCollectionName)
	for _, doc := range i.Documents {
		buf = append(buf, doc...)
	}
	return bsoncore.UpdateLength(buf, idx, int32(len(buf[idx:])))
}
