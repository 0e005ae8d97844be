package protocol

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRecord struct{ p Protocol }

func (f fakeRecord) Protocol() Protocol { return f.p }

// prefixDecoder claims payloads that start with prefix.
type prefixDecoder struct {
	proto      Protocol
	prefix     []byte
	minLen     int
	extractErr error
	calls      int
}

func (d *prefixDecoder) Protocol() Protocol { return d.proto }

func (d *prefixDecoder) Classify(payload []byte) (Classification, bool, error) {
	d.calls++
	if len(payload) < d.minLen {
		return Classification{}, false, ErrTruncated
	}
	if bytes.HasPrefix(payload, d.prefix) {
		return Classification{Protocol: d.proto}, true, nil
	}
	return Classification{}, false, nil
}

func (d *prefixDecoder) Extract(c Classification, payload []byte) (Record, error) {
	if d.extractErr != nil {
		return nil, d.extractErr
	}
	return fakeRecord{p: d.proto}, nil
}

func TestClassifyFirstMatchWins(t *testing.T) {
	first := &prefixDecoder{proto: DNS, prefix: []byte("AB")}
	second := &prefixDecoder{proto: SSH, prefix: []byte("A")}
	r := NewRegistry(first, second)

	c, err := r.Classify([]byte("ABC"))
	require.NoError(t, err)
	assert.Equal(t, Classification{Protocol: DNS}, c)
	assert.Equal(t, 0, second.calls, "later decoders are not consulted after a match")

	c, err = r.Classify([]byte("AZ"))
	require.NoError(t, err)
	assert.Equal(t, Classification{Protocol: SSH}, c)
}

func TestClassifyUnknown(t *testing.T) {
	r := NewRegistry(&prefixDecoder{proto: SSH, prefix: []byte("SSH")})
	c, err := r.Classify([]byte("HTTP/1.1"))
	require.NoError(t, err)
	assert.False(t, c.Known())
	assert.Equal(t, "Unknown", c.String())
}

func TestClassifyErrorStopsScan(t *testing.T) {
	first := &prefixDecoder{proto: DNS, prefix: []byte{0xff}, minLen: 4}
	second := &prefixDecoder{proto: SSH, prefix: []byte("S")}
	r := NewRegistry(first, second)

	_, err := r.Classify([]byte("SS"))
	assert.ErrorIs(t, err, ErrTruncated)
	assert.Equal(t, 0, second.calls)
}

func TestExtractRouting(t *testing.T) {
	notDecoded := &prefixDecoder{proto: SSH, prefix: []byte("S"), extractErr: ErrNoExtractor}
	failing := &prefixDecoder{proto: DNS, prefix: []byte("D"), extractErr: ErrTruncated}
	r := NewRegistry(failing, notDecoded)

	out := r.Extract(Classification{}, []byte("x"))
	assert.Equal(t, Unrecognized, out.Kind)
	assert.Nil(t, out.Record)

	out = r.Extract(Classification{Protocol: SSH}, []byte("S"))
	assert.Equal(t, RecognizedNoExtraction, out.Kind)
	assert.Equal(t, SSH, out.Classification.Protocol)

	out = r.Extract(Classification{Protocol: DNS, Subtype: SubtypeQuery}, []byte("D"))
	assert.Equal(t, ParseFailed, out.Kind)
	assert.ErrorIs(t, out.Err, ErrTruncated)
	assert.Nil(t, out.Record)
}

func TestExtractWithoutRegisteredDecoder(t *testing.T) {
	r := NewRegistry()
	out := r.Extract(Classification{Protocol: DNS}, []byte("x"))
	assert.Equal(t, RecognizedNoExtraction, out.Kind)
}

func TestAnalyze(t *testing.T) {
	r := NewRegistry(&prefixDecoder{proto: DNS, prefix: []byte("D")}, nil)
	require.Len(t, r.Decoders(), 1)

	out := r.Analyze([]byte("DATA"))
	require.Equal(t, Extracted, out.Kind)
	assert.Equal(t, DNS, out.Record.Protocol())

	out = r.Analyze(nil)
	assert.Equal(t, ParseFailed, out.Kind)
	assert.True(t, errors.Is(out.Err, ErrEmptyPayload))
}

func TestClassificationString(t *testing.T) {
	assert.Equal(t, "DNS/Query", Classification{Protocol: DNS, Subtype: SubtypeQuery}.String())
	assert.Equal(t, "DNS/Response", Classification{Protocol: DNS, Subtype: SubtypeResponse}.String())
	assert.Equal(t, "SSH", Classification{Protocol: SSH}.String())
	assert.Equal(t, "not_decoded", RecognizedNoExtraction.String())
}
