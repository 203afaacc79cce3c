package wire

import (
	"errors"

	"go.mongodb.org/mongo-driver/x/bsonx/bsoncore"
	"go.mongodb.org/mongo-driver/x/mongo/driver/wiremessage"
)

// OpReply is the legacy OP_REPLY response, produced by the upstream server.
// We decode it when the proxy inspects upstream responses; the proxy never
// synthesizes one itself.
type OpReply struct {
	Hdr            Header
	ResponseFlags  wiremessage.ReplyFlag
	CursorID       int64
	StartingFrom   int32
	NumberReturned int32
	Documents      []bsoncore.Document
}

func decodeReply(h Header, body []byte) (*OpReply, error) {
	var ok bool
	r := &OpReply{Hdr: h}

	r.ResponseFlags, body, ok = wiremessage.ReadReplyFlags(body)
	if !ok {
		return nil, errors.New("wire: OP_REPLY: missing response_flags")
	}
	r.CursorID, body, ok = wiremessage.ReadReplyCursorID(body)
	if !ok {
		return nil, errors.New("wire: OP_REPLY: missing cursor_id")
	}
	r.StartingFrom, body, ok = wiremessage.ReadReplyStartingFrom(body)
	if !ok {
		return nil, errors.New("wire: OP_REPLY: missing starting_from")
	}
	r.NumberReturned, body, ok = wiremessage.ReadReplyNumberReturned(body)
	if !ok {
		return nil, errors.New("wire: OP_REPLY: missing number_returned")
	}
	r.Documents, _, ok = wiremessage.ReadReplyDocuments(body)
	if !ok {
		return nil, errors.New("wire: OP_REPLY: could not read documents")
	}

	return r, nil
}

func (r *OpReply) OpCode() wiremessage.OpCode { return wiremessage.OpReply }
func (r *OpReply) Header() Header             { return r.Hdr }

func (r *OpReply) Encode() []byte {
	var buf []byte
	idx, buf := wiremessage.AppendHeaderStart(buf, r.Hdr.RequestID, r.Hdr.ResponseTo, wiremessage.OpReply)
	buf = wiremessage.AppendReplyFlags(buf, r.ResponseFlags)
	buf = wiremessage.AppendReplyCursorID(buf, r.CursorID)
	buf = wiremessage.AppendReplyStartingFrom(buf, r.StartingFrom)
	buf = wiremessage.AppendReplyNumberReturned(buf, r.NumberReturned)
	for _, doc := range r.Documents {
		buf = append(buf, doc...)
	}
	return bsoncore.UpdateLength(buf, idx, int32(len(buf[idx:])))
}
