// Package dns recognizes name-service payloads and decodes queries.
//
// Recognition is a coarse heuristic keyed to the flags word at offsets 2 and
// 3: 0x0100 (recursion desired) is a query and 0x8180 (response, recursion
// desired, recursion available) is a response. Other flag combinations are
// not claimed, even when they are valid DNS.
package dns

import (
	"fmt"

	"wiresift/internal/bytecursor"
	"wiresift/internal/protocol"
)

const (
	FlagsQuery    uint16 = 0x0100
	FlagsResponse uint16 = 0x8180
)

// Decoder implements protocol.Decoder.
type Decoder struct{}

// New returns a DNS decoder.
func New() Decoder { return Decoder{} }

func (Decoder) Protocol() protocol.Protocol { return protocol.DNS }

// Classify inspects the flags word. Payloads shorter than four bytes are
// truncated.
func (Decoder) Classify(payload []byte) (protocol.Classification, bool, error) {
	rest, err := bytecursor.Skip(payload, 2)
	if err != nil {
		return protocol.Classification{}, false, err
	}
	flags, _, err := bytecursor.Uint16(rest)
	if err != nil {
		return protocol.Classification{}, false, err
	}

	switch flags {
	case FlagsQuery:
		return protocol.Classification{Protocol: protocol.DNS, Subtype: protocol.SubtypeQuery}, true, nil
	case FlagsResponse:
		return protocol.Classification{Protocol: protocol.DNS, Subtype: protocol.SubtypeResponse}, true, nil
	}
	return protocol.Classification{}, false, nil
}

// Extract decodes queries. Responses are recognized but not decoded.
func (Decoder) Extract(c protocol.Classification, payload []byte) (protocol.Record, error) {
	if c.Subtype != protocol.SubtypeQuery {
		return nil, fmt.Errorf("dns %s: %w", c.Subtype, protocol.ErrNoExtractor)
	}
	m, err := ParseMessage(payload)
	if err != nil {
		return nil, err
	}
	return m, nil
}
