// Package ssh recognizes SSH identification strings. Extraction is not
// implemented; recognized payloads are reported as not decoded.
package ssh

import (
	"bytes"
	"fmt"

	"wiresift/internal/bytecursor"
	"wiresift/internal/protocol"
)

var magic = []byte("SSH")

// Decoder implements protocol.Decoder.
type Decoder struct{}

// New returns an SSH decoder.
func New() Decoder { return Decoder{} }

func (Decoder) Protocol() protocol.Protocol { return protocol.SSH }

// Classify matches payloads starting with the ASCII bytes "SSH".
func (Decoder) Classify(payload []byte) (protocol.Classification, bool, error) {
	head, _, err := bytecursor.Take(payload, len(magic))
	if err != nil {
		return protocol.Classification{}, false, err
	}
	if !bytes.Equal(head, magic) {
		return protocol.Classification{}, false, nil
	}
	return protocol.Classification{Protocol: protocol.SSH}, true, nil
}

func (Decoder) Extract(c protocol.Classification, _ []byte) (protocol.Record, error) {
	return nil, fmt.Errorf("ssh: %w", protocol.ErrNoExtractor)
}
