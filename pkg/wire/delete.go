package wire

import (
	"errors"

	"go.mongodb.org/mongo-driver/x/bsonx/bsoncore"
	"go.mongodb.org/mongo-driver/x/mongo/driver/wiremessage"
)

// OpDelete is the legacy OP_DELETE request.
type OpDelete struct {
	Hdr                Header
	FullCollectionName string
	Flags              int32
	Selector           bsoncore.Document
}

func decodeDelete(h Header, body []byte) (*OpDelete, error) {
	var ok bool
	d := &OpDelete{Hdr: h}

	_, body, ok = wiremessage.ReadKillCursorsZero(body)
	if !ok {
		return nil, errors.New("wire: OP_DELETE: missing zero field")
	}
	d.FullCollectionName, body, ok = wiremessage.ReadQueryFullCollectionName(body)
	if !ok {
		return nil, errors.New("wire: OP_DELETE: missing full collection name")
	}
	d.Flags, body, ok = readi32(body)
	if !ok {
		return nil, errors.New("wire: OP_DELETE: missing flags")
	}
	d.Selector, _, ok = bsoncore.ReadDocument(body)
	if !ok {
		return nil, errors.New("wire: OP_DELETE: missing selector document")
	}

	return d, nil
}

func (d *OpDelete) OpCode() wiremessage.OpCode { return wiremessage.OpDelete }
func (d *OpDelete) Header() Header             { return d.Hdr }

func (d *OpDelete) Encode() []byte {
	var buf []byte
	idx, buf := wiremessage.AppendHeaderStart(buf, d.Hdr.RequestID, d.Hdr.ResponseTo, wiremessage.OpDelete)
	buf = wiremessage.AppendKillCursorsZero(buf)
	buf = appendCString(buf, d.FullCollectionName)
	buf = appendi32(buf, d.Flags)
	buf = append(buf, d.Selector...)
	return bsoncore.UpdateLength(buf, idx, int32(len(buf[idx:])))
}
