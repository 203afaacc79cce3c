package wire

import (
	"errors"

	"go.mongodb.org/mongo-driver/x/bsonx/bsoncore"
	"go.mongodb.org/mongo-driver/x/mongo/driver/wiremessage"
)

// OpGetMore is the legacy OP_GET_MORE request, asking the upstream for the
// next batch of an open cursor.
type OpGetMore struct {
	Hdr                Header
	FullCollectionName string
	NumberToReturn     int32
	CursorID           int64
}

func decodeGetMore(h Header, body []byte) (*OpGetMore, error) {
	var ok bool
	g := &OpGetMore{Hdr: h}

	_, body, ok = wiremessage.ReadKillCursorsZero(body)
	if !ok {
		return nil, errors.New("wire: OP_GET_MORE: missing zero field")
	}
	g.FullCollectionName, body, ok = wiremessage.ReadQueryFullCollectionName(body)
	if !ok {
		return nil, errors.New("wire: OP_GET_MORE: missing full collection name")
	}
	g.NumberToReturn, body, ok = wiremessage.ReadQueryNumberToReturn(body)
	if !ok {
		return nil, errors.New("wire: OP_GET_MORE: missing number_to_return")
	}
	g.CursorID, _, ok = wiremessage.ReadReplyCursorID(body)
	if !ok {
		return nil, errors.New("wire: OP_GET_MORE: missing cursor_id")
	}

	return g, nil
}

func (g *OpGetMore) OpCode() wiremessage.OpCode { return wiremessage.OpGetMore }
func (g *OpGetMore) Header() Header             { return g.Hdr }

func (g *OpGetMore) Encode() []byte {
	var buf []byte
	idx, buf := wiremessage.AppendHeaderStart(buf, g.Hdr.RequestID, g.Hdr.ResponseTo, wiremessage.OpGetMore)
	buf = wiremessage.AppendGetMoreZero(buf)
	buf = wiremessage.AppendGetMoreFullCollectionName(buf, g.FullCollectionName)
	buf = wiremessage.AppendGetMoreNumberToReturn(buf, g.NumberToReturn)
	buf = wiremessage.AppendGetMoreCursorID(buf, g.CursorID)
	return bsoncore.UpdateLength(buf, idx, int32(len(buf[idx:])))
}
