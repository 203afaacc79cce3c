package wire

import (
	"encoding/binary"
	"testing"

	"github.com/golang/snappy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/x/mongo/driver/wiremessage"
)

func snappyEncode(src []byte) []byte {
	return snappy.Encode(nil, src)
}

func buildHeader(length, reqID, responseTo, opCode int32) []byte {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(length))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(reqID))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(responseTo))
	binary.LittleEndian.PutUint32(buf[12:16], uint32(opCode))
	return buf
}

// S1: OP_QUERY with full_collection_name = "admin.$cmd", empty query, no
// selector decodes with ReturnFieldsSelector defaulting to an empty document.
func TestDecodeQueryNoSelector(t *testing.T) {
	query, err := bson.Marshal(bson.D{})
	require.NoError(t, err)

	var body []byte
	body = appendi32(body, 0) // flags
	body = appendCString(body, "admin.$cmd")
	body = appendi32(body, 0) // number_to_skip
	body = appendi32(body, 0) // number_to_return
	body = append(body, query...)

	buf := append(buildHeader(int32(16+len(body)), 1, 0, int32(wiremessage.OpQuery)), body...)

	msg, err := Decode(buf)
	require.NoError(t, err)

	q, ok := msg.(*OpQuery)
	require.Truef(t, ok, "expected *OpQuery, got %T", msg)
	assert.Equal(t, "admin.$cmd", q.FullCollectionName)
	assert.Empty(t, q.ReturnFieldsSelector)
}

// S2: OP_MSG with CHECKSUM_PRESENT and one Body section decodes to exactly
// one SectionBody, and the 4-byte trailer is excluded from section parsing.
func TestDecodeMsgChecksumPresent(t *testing.T) {
	doc, err := bson.Marshal(bson.D{{Key: "ping", Value: 1}})
	require.NoError(t, err)

	var body []byte
	body = appendu32(body, uint32(wiremessage.ChecksumPresent))
	body = append(body, 0) // section kind 0 = Body
	body = append(body, doc...)
	body = appendu32(body, 123456) // fake CRC trailer

	buf := append(buildHeader(int32(16+len(body)), 1, 0, int32(wiremessage.OpMsg)), body...)

	msg, err := Decode(buf)
	require.NoError(t, err)

	m, ok := msg.(*OpMsg)
	require.Truef(t, ok, "expected *OpMsg, got %T", msg)
	require.Len(t, m.Sections, 1)
	assert.EqualValues(t, 0, m.Sections[0].Kind())
	assert.EqualValues(t, 123456, m.Checksum)

	t.Log("OP_MSG with checksum parsed correctly.")
}

// S3: OP_COMPRESSED wrapping an OP_QUERY via snappy decodes to the inner
// QueryMsg, with request_id/response_to copied from the outer header.
func TestDecodeCompressedSnappyQuery(t *testing.T) {
	query, err := bson.Marshal(bson.D{{Key: "ping", Value: 1}})
	require.NoError(t, err)

	var innerBody []byte
	innerBody = appendi32(innerBody, 0)
	innerBody = appendCString(innerBody, "admin.$cmd")
	innerBody = appendi32(innerBody, 0)
	innerBody = appendi32(innerBody, 1)
	innerBody = append(innerBody, query...)

	inner := append(buildHeader(int32(16+len(innerBody)), 7, 0, int32(wiremessage.OpQuery)), innerBody...)
	innerPayload := inner[16:] // everything past the header, as OP_COMPRESSED carries it

	compressed := snappyEncode(innerPayload)

	var body []byte
	body = appendi32(body, int32(wiremessage.OpQuery)) // original_opcode
	body = appendi32(body, int32(len(innerPayload)))    // uncompressed_size
	body = append(body, byte(CompressorSnappy))
	body = append(body, compressed...)

	buf := append(buildHeader(int32(16+len(body)), 7, 0, int32(wiremessage.OpCompressed)), body...)

	msg, err := Decode(buf)
	require.NoError(t, err)

	q, ok := msg.(*OpQuery)
	require.Truef(t, ok, "expected decompression to yield *OpQuery, got %T", msg)
	assert.EqualValues(t, 7, q.Hdr.RequestID)
}

// A compressed message that itself decodes to OP_COMPRESSED must be rejected.
func TestDecodeCompressedRejectsNesting(t *testing.T) {
	var innerCompressedBody []byte
	innerCompressedBody = appendi32(innerCompressedBody, int32(wiremessage.OpQuery))
	innerCompressedBody = appendi32(innerCompressedBody, 0)
	innerCompressedBody = append(innerCompressedBody, byte(CompressorNoop))

	var outerBody []byte
	outerBody = appendi32(outerBody, int32(wiremessage.OpCompressed))
	outerBody = appendi32(outerBody, int32(len(innerCompressedBody)))
	outerBody = append(outerBody, byte(CompressorNoop))
	outerBody = append(outerBody, innerCompressedBody...)

	buf := append(buildHeader(int32(16+len(outerBody)), 1, 0, int32(wiremessage.OpCompressed)), outerBody...)

	_, err := Decode(buf)
	assert.Error(t, err, "expected nested OP_COMPRESSED to be rejected")
}

func TestDecodeUnknownOpCode(t *testing.T) {
	buf := buildHeader(16, 1, 0, 999999)
	_, err := Decode(buf)
	assert.Error(t, err, "expected unknown op code to fail decoding")
}

// Decoder totality: every known opcode decodes a minimal valid frame.
func TestDecodeAllOpcodesMinimalFrame(t *testing.T) {
	emptyDoc, err := bson.Marshal(bson.D{})
	require.NoError(t, err)

	cases := []struct {
		name   string
		opCode wiremessage.OpCode
		body   func() []byte
	}{
		{"query", wiremessage.OpQuery, func() []byte {
			var b []byte
			b = appendi32(b, 0)
			b = appendCString(b, "db.coll")
			b = appendi32(b, 0)
			b = appendi32(b, 0)
			return append(b, emptyDoc...)
		}},
		{"reply", wiremessage.OpReply, func() []byte {
			var b []byte
			b = appendi32(b, 0)               // response_flags
			b = append(b, make([]byte, 8)...) // cursor_id (i64)
			b = appendi32(b, 0)                // starting_from
			b = appendi32(b, 0)                // number_returned, 0 documents follow
			return b
		}},
		{"update", wiremessage.OpUpdate, func() []byte {
			var b []byte
			b = appendi32(b, 0)
			b = appendCString(b, "db.coll")
			b = appendi32(b, 0)
			b = append(b, emptyDoc...)
			return append(b, emptyDoc...)
		}},
		{"insert", wiremessage.OpInsert, func() []byte {
			var b []byte
			b = appendi32(b, 0)
			b = appendCString(b, "db.coll")
			return append(b, emptyDoc...)
		}},
		{"getmore", wiremessage.OpGetMore, func() []byte {
			var b []byte
			b = appendi32(b, 0)
			b = appendCString(b, "db.coll")
			b = appendi32(b, 0)
			return append(b, make([]byte, 8)...)
		}},
		{"delete", wiremessage.OpDelete, func() []byte {
			var b []byte
			b = appendi32(b, 0)
			b = appendCString(b, "db.coll")
			b = appendi32(b, 0)
			return append(b, emptyDoc...)
		}},
		{"killcursors", wiremessage.OpKillCursors, func() []byte {
			var b []byte
			b = appendi32(b, 0)
			b = appendi32(b, 0)
			return b
		}},
		{"msg", wiremessage.OpMsg, func() []byte {
			var b []byte
			b = appendu32(b, 0)
			b = append(b, 0)
			return append(b, emptyDoc...)
		}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			body := c.body()
			buf := append(buildHeader(int32(16+len(body)), 1, 0, int32(c.opCode)), body...)
			_, err := Decode(buf)
			assert.NoErrorf(t, err, "expected minimal valid frame to decode")
		})
	}
}
