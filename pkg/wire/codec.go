package wire

import (
	"fmt"

	"go.mongodb.org/mongo-driver/x/mongo/driver/wiremessage"
)

func originalOpCodeAsOpCode(v int32) wiremessage.OpCode {
	return wiremessage.OpCode(v)
}

// Decode parses a complete wire message buffer (len(buf) == header's
// message_length) into a typed Message. OP_COMPRESSED is transparently
// unwrapped: Decode returns the inner decoded message, with request_id and
// response_to copied from the outer header.
func Decode(buf []byte) (Message, error) {
	h, body, err := readHeader(buf)
	if err != nil {
		return nil, err
	}
	return dispatch(h, body, 0)
}

func dispatch(h Header, body []byte, depth int) (Message, error) {
	switch h.OpCode {
	case wiremessage.OpQuery:
		return decodeQuery(h, body)
	case wiremessage.OpUpdate:
		return decodeUpdate(h, body)
	case wiremessage.OpInsert:
		return decodeInsert(h, body)
	case wiremessage.OpGetMore:
		return decodeGetMore(h, body)
	case wiremessage.OpDelete:
		return decodeDelete(h, body)
	case wiremessage.OpKillCursors:
		return decodeKillCursors(h, body)
	case wiremessage.OpMsg:
		return decodeMsg(h, body)
	case wiremessage.OpReply:
		return decodeReply(h, body)
	case wiremessage.OpCompressed:
		return decodeCompressed(h, body, depth)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownOpCode, h.OpCode)
	}
}

// Encode serializes a decoded Message back to wire bytes. It is the inverse
// of Decode for every opcode that did not travel through OP_COMPRESSED: the
// general proxy forwarding path never calls it, relying instead on the raw
// buffer captured by ReadMessage.
func Encode(m Message) []byte {
	return m.Encode()
}
