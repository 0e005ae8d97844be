package dns

import (
	"fmt"
	"strings"

	mdns "github.com/miekg/dns"
	"github.com/rs/zerolog"

	"wiresift/internal/bytecursor"
	"wiresift/internal/protocol"
)

// HeaderLen is the size of the fixed message envelope.
const HeaderLen = 12

// Header is the fixed 12 byte envelope at the start of every message.
type Header struct {
	ID      uint16
	Flags   uint16
	QDCount uint16
	ANCount uint16
	NSCount uint16
	ARCount uint16
}

// Message is a decoded query. Only the first question is decoded; anything
// after its type and class is kept verbatim in Trailing.
type Message struct {
	Header        Header
	Questions     []string
	QuestionType  uint16
	QuestionClass uint16
	// Trailing is nil when the question consumed the payload exactly.
	Trailing []byte
}

// Protocol implements protocol.Record.
func (m *Message) Protocol() protocol.Protocol { return protocol.DNS }

// Name returns the first question name.
func (m *Message) Name() string {
	if len(m.Questions) == 0 {
		return ""
	}
	return m.Questions[0]
}

// IsResponse reports whether the QR bit is set.
func (m *Message) IsResponse() bool { return m.Header.Flags&0x8000 != 0 }

// Opcode returns the 4 bit opcode from the flags.
func (m *Message) Opcode() int { return int(m.Header.Flags>>11) & 0xf }

// RCode returns the 4 bit response code from the flags.
func (m *Message) RCode() int { return int(m.Header.Flags & 0xf) }

// TypeName returns the mnemonic of the question type, e.g. "TXT".
func (m *Message) TypeName() string {
	if s, ok := mdns.TypeToString[m.QuestionType]; ok {
		return s
	}
	return fmt.Sprintf("TYPE%d", m.QuestionType)
}

// ClassName returns the mnemonic of the question class, e.g. "IN".
func (m *Message) ClassName() string {
	if s, ok := mdns.ClassToString[m.QuestionClass]; ok {
		return s
	}
	return fmt.Sprintf("CLASS%d", m.QuestionClass)
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler.
func (m *Message) MarshalZerologObject(e *zerolog.Event) {
	e.Uint16("txid", m.Header.ID).
		Str("flags", fmt.Sprintf("0x%04x", m.Header.Flags)).
		Uint16("qdcount", m.Header.QDCount).
		Uint16("ancount", m.Header.ANCount).
		Uint16("nscount", m.Header.NSCount).
		Uint16("arcount", m.Header.ARCount).
		Strs("questions", m.Questions).
		Str("qtype", m.TypeName()).
		Str("qclass", m.ClassName()).
		Int("trailing", len(m.Trailing))
}

// ParseMessage decodes the envelope, one question name, and the question
// type and class. It never returns a partial message.
func ParseMessage(payload []byte) (*Message, error) {
	h, rest, err := parseHeader(payload)
	if err != nil {
		return nil, fmt.Errorf("header: %w", err)
	}

	labels, rest, err := parseLabels(rest)
	if err != nil {
		return nil, fmt.Errorf("question name: %w", err)
	}

	qtype, rest, err := bytecursor.Uint16(rest)
	if err != nil {
		return nil, fmt.Errorf("question type: %w", err)
	}
	qclass, rest, err := bytecursor.Uint16(rest)
	if err != nil {
		return nil, fmt.Errorf("question class: %w", err)
	}

	m := &Message{
		Header:        h,
		Questions:     []string{joinLabels(labels)},
		QuestionType:  qtype,
		QuestionClass: qclass,
	}
	if len(rest) > 0 {
		m.Trailing = append([]byte(nil), rest...)
	}
	return m, nil
}

func parseHeader(b []byte) (Header, []byte, error) {
	var (
		h   Header
		err error
	)
	fields := []*uint16{&h.ID, &h.Flags, &h.QDCount, &h.ANCount, &h.NSCount, &h.ARCount}
	for _, f := range fields {
		if *f, b, err = bytecursor.Uint16(b); err != nil {
			return Header{}, nil, err
		}
	}
	return h, b, nil
}

// parseLabels reads length-prefixed labels up to and including the zero
// terminator. Running out of input before the terminator is ErrTruncated.
func parseLabels(b []byte) ([][]byte, []byte, error) {
	var labels [][]byte
	for {
		n, rest, err := bytecursor.Uint8(b)
		if err != nil {
			return nil, nil, err
		}
		if n == 0 {
			return labels, rest, nil
		}
		label, rest, err := bytecursor.LengthPrefixed(b)
		if err != nil {
			return nil, nil, err
		}
		labels = append(labels, label)
		b = rest
	}
}

// joinLabels converts each label to text and joins them with dots. Bytes that
// are not valid UTF-8 become U+FFFD, so arbitrary binary labels do not
// survive a round trip through the name.
func joinLabels(labels [][]byte) string {
	parts := make([]string, len(labels))
	for i, l := range labels {
		parts[i] = string([]rune(string(l)))
	}
	return strings.Join(parts, ".")
}
