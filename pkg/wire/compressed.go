package wire

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
)

// CompressorID identifies the algorithm an OP_COMPRESSED payload was
// compressed with.
type CompressorID uint8

const (
	CompressorNoop   CompressorID = 0
	CompressorSnappy CompressorID = 1
	CompressorZlib   CompressorID = 2
	CompressorZstd   CompressorID = 3
)

var zstdDecoder, _ = zstd.NewReader(nil)

// decompress expands a compressed payload according to the compressor id,
// per the three schemes OP_COMPRESSED may declare.
func decompress(id CompressorID, uncompressedSize int32, payload []byte) ([]byte, error) {
	switch id {
	case CompressorNoop:
		return payload, nil
	case CompressorSnappy:
		out, err := snappy.Decode(make([]byte, 0, uncompressedSize), payload)
		if err != nil {
			return nil, fmt.Errorf("%w: snappy: %v", ErrDecompressionFailed, err)
		}
		return out, nil
	case CompressorZlib:
		r, err := zlib.NewReader(bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("%w: zlib: %v", ErrDecompressionFailed, err)
		}
		defer r.Close()
		out := make([]byte, 0, uncompressedSize)
		buf := bytes.NewBuffer(out)
		if _, err := io.Copy(buf, r); err != nil {
			return nil, fmt.Errorf("%w: zlib: %v", ErrDecompressionFailed, err)
		}
		return buf.Bytes(), nil
	case CompressorZstd:
		out, err := zstdDecoder.DecodeAll(payload, make([]byte, 0, uncompressedSize))
		if err != nil {
			return nil, fmt.Errorf("%w: zstd: %v", ErrDecompressionFailed, err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownCompressor, id)
	}
}

// decodeCompressed reads the OP_COMPRESSED payload shape (original_opcode,
// uncompressed_size, compressor_id, compressed_message), decompresses it,
// synthesizes the inner header, and decodes it once more. depth tracks
// recursion so a compressed message can never itself decode to another
// compressed message.
func decodeCompressed(h Header, body []byte, depth int) (Message, error) {
	if depth > 0 {
		return nil, ErrNestedCompression
	}

	originalOpCode, body, ok := readi32(body)
	if !ok {
		return nil, fmt.Errorf("%w: OP_COMPRESSED: missing original_opcode", ErrTruncated)
	}
	uncompressedSize, body, ok := readi32(body)
	if !ok {
		return nil, fmt.Errorf("%w: OP_COMPRESSED: missing uncompressed_size", ErrTruncated)
	}
	compressorID, body, ok := readu8(body)
	if !ok {
		return nil, fmt.Errorf("%w: OP_COMPRESSED: missing compressor_id", ErrTruncated)
	}

	inner, err := decompress(CompressorID(compressorID), uncompressedSize, body)
	if err != nil {
		return nil, err
	}

	innerHeader := Header{
		MessageLength: HeaderLength + uncompressedSize,
		RequestID:     h.RequestID,
		ResponseTo:    h.ResponseTo,
		OpCode:        originalOpCodeAsOpCode(originalOpCode),
	}
	return dispatch(innerHeader, inner, depth+1)
}
