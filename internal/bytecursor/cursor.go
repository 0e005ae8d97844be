// Package bytecursor consumes fixed-width big-endian integers and
// length-delimited runs from the front of a byte slice. Every read returns
// the decoded value together with the unconsumed suffix, so parsers can be
// written as a chain of reads that each hand the rest to the next step.
package bytecursor

import (
	"errors"

	"golang.org/x/crypto/cryptobyte"
)

// ErrTruncated is returned when fewer bytes remain than a read requires.
var ErrTruncated = errors.New("bytecursor: truncated data")

// Uint8 reads one byte.
func Uint8(b []byte) (uint8, []byte, error) {
	s := cryptobyte.String(b)
	var v uint8
	if !s.ReadUint8(&v) {
		return 0, b, ErrTruncated
	}
	return v, s, nil
}

// Uint16 reads a big-endian 16-bit unsigned integer.
func Uint16(b []byte) (uint16, []byte, error) {
	s := cryptobyte.String(b)
	var v uint16
	if !s.ReadUint16(&v) {
		return 0, b, ErrTruncated
	}
	return v, s, nil
}

// Uint32 reads a big-endian 32-bit unsigned integer.
func Uint32(b []byte) (uint32, []byte, error) {
	s := cryptobyte.String(b)
	var v uint32
	if !s.ReadUint32(&v) {
		return 0, b, ErrTruncated
	}
	return v, s, nil
}

// Take returns the next n bytes. The returned run aliases b.
func Take(b []byte, n int) ([]byte, []byte, error) {
	if n < 0 {
		return nil, b, ErrTruncated
	}
	s := cryptobyte.String(b)
	var run []byte
	if !s.ReadBytes(&run, n) {
		return nil, b, ErrTruncated
	}
	return run, s, nil
}

// Skip discards the next n bytes.
func Skip(b []byte, n int) ([]byte, error) {
	if n < 0 {
		return b, ErrTruncated
	}
	s := cryptobyte.String(b)
	if !s.Skip(n) {
		return b, ErrTruncated
	}
	return s, nil
}

// LengthPrefixed reads a one byte length n followed by exactly n bytes and
// returns those n bytes. A zero length yields an empty, non-nil run.
func LengthPrefixed(b []byte) ([]byte, []byte, error) {
	s := cryptobyte.String(b)
	var run cryptobyte.String
	if !s.ReadUint8LengthPrefixed(&run) {
		return nil, b, ErrTruncated
	}
	if run == nil {
		run = cryptobyte.String{}
	}
	return run, s, nil
}
