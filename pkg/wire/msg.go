package wire

import (
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/x/bsonx/bsoncore"
	"go.mongodb.org/mongo-driver/x/mongo/driver/wiremessage"
)

// Section is one kind-tagged fragment of an OP_MSG payload.
type Section interface {
	Kind() byte
	append(buf []byte) []byte
}

// SectionBody is OP_MSG section kind 0: a single BSON document whose own
// length prefix defines its extent.
type SectionBody struct {
	Body bsoncore.Document
}

func (SectionBody) Kind() byte { return 0 }

func (s SectionBody) append(buf []byte) []byte {
	buf = wiremessage.AppendMsgSectionType(buf, wiremessage.SingleDocument)
	return append(buf, s.Body...)
}

// SectionSequence is OP_MSG section kind 1: a named sequence of documents.
type SectionSequence struct {
	Identifier string
	Documents  []bsoncore.Document
}

func (SectionSequence) Kind() byte { return 1 }

func (s SectionSequence) append(buf []byte) []byte {
	buf = wiremessage.AppendMsgSectionType(buf, wiremessage.DocumentSequence)
	length := int32(len(s.Identifier) + 5)
	for _, doc := range s.Documents {
		length += int32(len(doc))
	}
	buf = appendi32(buf, length)
	buf = appendCString(buf, s.Identifier)
	for _, doc := range s.Documents {
		buf = append(buf, doc...)
	}
	return buf
}

// OpMsg is the modern OP_MSG request/response, the only opcode used by
// server versions 3.6 and later for everything but legacy cursor teardown.
type OpMsg struct {
	Hdr      Header
	Flags    wiremessage.MsgFlag
	Sections []Section
	Checksum uint32
}

func decodeMsg(h Header, body []byte) (*OpMsg, error) {
	var ok bool
	m := &OpMsg{Hdr: h}

	m.Flags, body, ok = wiremessage.ReadMsgFlags(body)
	if !ok {
		return nil, errors.New("wire: OP_MSG: missing flag_bits")
	}

	checksumPresent := m.Flags&wiremessage.ChecksumPresent == wiremessage.ChecksumPresent
	for len(body) > 0 {
		if checksumPresent && len(body) == 4 {
			m.Checksum, body, ok = wiremessage.ReadMsgChecksum(body)
			if !ok {
				return nil, errors.New("wire: OP_MSG: truncated checksum trailer")
			}
			continue
		}

		var kind wiremessage.SectionType
		kind, body, ok = wiremessage.ReadMsgSectionType(body)
		if !ok {
			return nil, errors.New("wire: OP_MSG: truncated section type")
		}

		switch kind {
		case wiremessage.SingleDocument:
			var doc bsoncore.Document
			doc, body, ok = wiremessage.ReadMsgSectionSingleDocument(body)
			if !ok {
				return nil, errors.New("wire: OP_MSG: truncated body section")
			}
			m.Sections = append(m.Sections, SectionBody{Body: doc})
		case wiremessage.DocumentSequence:
			var identifier string
			var docs []bsoncore.Document
			identifier, docs, body, ok = wiremessage.ReadMsgSectionDocumentSequence(body)
			if !ok {
				return nil, errors.New("wire: OP_MSG: truncated document sequence section")
			}
			m.Sections = append(m.Sections, SectionSequence{Identifier: identifier, Documents: docs})
		default:
			return nil, fmt.Errorf("%w: %d", ErrUnknownSectionKind, kind)
		}
	}

	return m, nil
}

func (m *OpMsg) OpCode() wiremessage.OpCode { return wiremessage.OpMsg }
func (m *OpMsg) Header() Header             { return m.Hdr }

func (m *OpMsg) Encode() []byte {
	var buf []byte
	idx, buf := wiremessage.AppendHeaderStart(buf, m.Hdr.RequestID, m.Hdr.ResponseTo, wiremessage.OpMsg)
	buf = wiremessage.AppendMsgFlags(buf, m.Flags)
	for _, section := range m.Sections {
		buf = section.append(buf)
	}
	if m.Flags&wiremessage.ChecksumPresent == wiremessage.ChecksumPresent {
		buf = appendu32(buf, m.Checksum)
	}
	return bsoncore.UpdateLength(buf, idx, int32(len(buf[idx:])))
}
