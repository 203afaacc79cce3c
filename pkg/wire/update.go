package wire

import (
	"errors"

	"go.mongodb.org/mongo-driver/x/bsonx/bsoncore"
	"go.mongodb.org/mongo-driver/x/mongo/driver/wiremessage"
)

// OpUpdate is the legacy OP_UPDATE request.
type OpUpdate struct {
	Hdr                Header
	FullCollectionName string
	Flags              int32
	Selector           bsoncore.Document
	Update             bsoncore.Document
}

func decodeUpdate(h Header, body []byte) (*OpUpdate, error) {
	var ok bool
	u := &OpUpdate{Hdr: h}

	_, body, ok = wiremessage.ReadKillCursorsZero(body)
	if !ok {
		return nil, errors.New("wire: OP_UPDATE: missing zero field")
	}
	u.FullCollectionName, body, ok = wiremessage.ReadQueryFullCollectionName(body)
	if !ok {
		return nil, errors.New("wire: OP_UPDATE: missing full collection name")
	}
	u.Flags, body, ok = readi32(body)
	if !ok {
		return nil, errors.New("wire: OP_UPDATE: missing flags")
	}
	u.Selector, body, ok = bsoncore.ReadDocument(body)
	if !ok {
		return nil, errors.New("wire: OP_UPDATE: missing selector document")
	}
	u.Update, _, ok = bsoncore.ReadDocument(body)
	if !ok {
		return nil, errors.New("wire: OP_UPDATE: missing update document")
	}

	return u, nil
}

func (u *OpUpdate) OpCode() wiremessage.OpCode { return wiremessage.OpUpdate }
func (u *OpUpdate) Header() Header             { return u.Hdr }

func (u *OpUpdate) Encode() []byte {
	var buf []byte
	idx, buf := wiremessage.AppendHeaderStart(buf, u.Hdr.RequestID, u.Hdr.ResponseTo, wiremessage.OpUpdate)
	buf = wiremessage.AppendKillCursorsZero(buf)
	buf = appendCString(buf, u.FullCollectionName)
	buf = appendi32(buf, u.Flags)
	buf = append(buf, u.Selector...)
	buf = append(buf, u.Update...)
	return bsoncore.UpdateLength(buf, idx, int32(len(buf[idx:])))
}
