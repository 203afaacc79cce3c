// Package wire implements the MongoDB wire protocol codec: parsing and
// re-encoding of the binary frames exchanged between a client and a
// mongod/mongos server.
package wire

import (
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/x/mongo/driver/wiremessage"
)

const (
	// HeaderLength is the fixed size, in bytes, of every wire message header.
	HeaderLength = 16

	// DefaultMaxMessageBytes mirrors the documented upstream cap on a single
	// wire message (48 MiB).
	DefaultMaxMessageBytes = 48 * 1024 * 1024
)

// Header is the 16-byte preamble shared by every wire message.
type Header struct {
	MessageLength int32
	RequestID     int32
	ResponseTo    int32
	OpCode        wiremessage.OpCode
}

var (
	ErrUnknownOpCode       = errors.New("wire: unknown op code")
	ErrUnknownCompressor   = errors.New("wire: unknown compressor id")
	ErrUnknownSectionKind  = errors.New("wire: unknown OP_MSG section kind")
	ErrTruncated           = errors.New("wire: truncated message")
	ErrNestedCompression   = errors.New("wire: OP_COMPRESSED must not wrap another OP_COMPRESSED")
	ErrDecompressionFailed = errors.New("wire: decompression failed")
)

// Message is a decoded wire-protocol frame. Every opcode variant implements it.
type Message interface {
	OpCode() wiremessage.OpCode
	Header() Header
	// Encode serializes the message back to wire bytes, recomputing the
	// message_length field from the actual encoded size.
	Encode() []byte
}

// readHeader parses the 16-byte header and validates it against the spec
// invariant message_length >= 16 and message_length == len(buf).
func readHeader(buf []byte) (Header, []byte, error) {
	length, reqID, responseTo, opCode, rest, ok := wiremessage.ReadHeader(buf)
	if !ok {
		return Header{}, nil, fmt.Errorf("%w: short header", ErrTruncated)
	}
	h := Header{
		MessageLength: length,
		RequestID:     reqID,
		ResponseTo:    responseTo,
		OpCode:        wiremessage.OpCode(opCode),
	}
	if length < HeaderLength || int(length) != len(buf) {
		return h, nil, fmt.Errorf("%w: message_length %d does not match buffer of %d bytes", ErrTruncated, length, len(buf))
	}
	return h, rest, nil
}
