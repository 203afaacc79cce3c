package wire

import (
	"errors"

	"go.mongodb.org/mongo-driver/x/bsonx/bsoncore"
	"go.mongodb.org/mongo-driver/x/mongo/driver/wiremessage"
)

// OpKillCursors is the legacy OP_KILL_CURSORS request, telling the upstream
// to release the listed cursors.
type OpKillCursors struct {
	Hdr       Header
	CursorIDs []int64
}

func decodeKillCursors(h Header, body []byte) (*OpKillCursors, error) {
	var ok bool
	k := &OpKillCursors{Hdr: h}

	_, body, ok = wiremessage.ReadKillCursorsZero(body)
	if !ok {
		return nil, errors.New("wire: OP_KILL_CURSORS: missing zero field")
	}
	var numIDs int32
	numIDs, body, ok = wiremessage.ReadKillCursorsNumberIDs(body)
	if !ok {
		return nil, errors.New("wire: OP_KILL_CURSORS: missing number_of_cursor_ids")
	}
	k.CursorIDs, _, ok = wiremessage.ReadKillCursorsCursorIDs(body, numIDs)
	if !ok {
		return nil, errors.New("wire: OP_KILL_CURSORS: missing cursor ids")
	}

	return k, nil
}

func (k *OpKillCursors) OpCode() wiremessage.OpCode { return wiremessage.OpKillCursors }
func (k *OpKillCursors) Header() Header             { return k.Hdr }

func (k *OpKillCursors) Encode() []byte {
	var buf []byte
	idx, buf := wiremessage.AppendHeaderStart(buf, k.Hdr.RequestID, k.Hdr.ResponseTo, wiremessage.OpKillCursors)
	buf = wiremessage.AppendKillCursorsZero(buf)
	buf = wiremessage.AppendKillCursorsNumberIDs(buf, int32(len(k.CursorIDs)))
	buf = wiremessage.AppendKillCursorsCursorIDs(buf, k.CursorIDs)
	return bsoncore.UpdateLength(buf, idx, int32(len(buf[idx:])))
}
