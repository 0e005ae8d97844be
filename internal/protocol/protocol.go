// Package protocol maps application-layer payloads to a protocol identity and
// routes recognized payloads to the decoder that can extract a typed record
// from them.
package protocol

// Protocol identifies a protocol family.
type Protocol int

const (
	Unknown Protocol = iota
	DNS
	SSH
)

func (p Protocol) String() string {
	switch p {
	case DNS:
		return "DNS"
	case SSH:
		return "SSH"
	default:
		return "Unknown"
	}
}

// Subtype refines a Protocol. Only DNS uses it today.
type Subtype int

const (
	SubtypeNone Subtype = iota
	SubtypeQuery
	SubtypeResponse
)

func (s Subtype) String() string {
	switch s {
	case SubtypeQuery:
		return "Query"
	case SubtypeResponse:
		return "Response"
	default:
		return ""
	}
}

// Classification is the result of matching a payload against the registry.
// The zero value is Unknown.
type Classification struct {
	Protocol Protocol
	Subtype  Subtype
}

// Known reports whether a decoder claimed the payload.
func (c Classification) Known() bool {
	return c.Protocol != Unknown
}

// String renders "DNS/Query", "SSH" or "Unknown".
func (c Classification) String() string {
	if c.Subtype == SubtypeNone {
		return c.Protocol.String()
	}
	return c.Protocol.String() + "/" + c.Subtype.String()
}

// Record is a decoded protocol message.
type Record interface {
	Protocol() Protocol
}

// Decoder recognizes and decodes one protocol family.
//
// Classify reports whether the payload belongs to the family. A decoder that
// cannot inspect the payload because it is too short returns ErrTruncated
// rather than false.
//
// Extract decodes a payload previously classified by the same decoder. It
// returns ErrNoExtractor when the classification is recognized but has no
// decoding logic.
type Decoder interface {
	Protocol() Protocol
	Classify(payload []byte) (Classification, bool, error)
	Extract(c Classification, payload []byte) (Record, error)
}
