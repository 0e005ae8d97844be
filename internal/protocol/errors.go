package protocol

import (
	"errors"

	"wiresift/internal/bytecursor"
)

var (
	// ErrTruncated is returned when a payload is shorter than a field needs.
	ErrTruncated = bytecursor.ErrTruncated

	ErrNoExtractor  = errors.New("protocol: no extractor for classification")
	ErrEmptyPayload = errors.New("protocol: empty payload")
)
