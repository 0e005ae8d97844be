package protocol

import (
	"errors"
	"fmt"
)

// Registry holds decoders in priority order. It is not modified after
// NewRegistry returns and may be shared between goroutines.
type Registry struct {
	decoders []Decoder
}

// NewRegistry creates a registry that tries decoders in the given order.
// Nil decoders are skipped.
func NewRegistry(decoders ...Decoder) *Registry {
	r := &Registry{decoders: make([]Decoder, 0, len(decoders))}
	for _, d := range decoders {
		if d != nil {
			r.decoders = append(r.decoders, d)
		}
	}
	return r
}

// Decoders returns the registered decoders in priority order.
func (r *Registry) Decoders() []Decoder {
	out := make([]Decoder, len(r.decoders))
	copy(out, r.decoders)
	return out
}

// Classify returns the classification of the first decoder that claims the
// payload. A decoder error stops the scan, so a payload too short for an
// earlier decoder is reported as truncated even if a later decoder could
// have matched it.
func (r *Registry) Classify(payload []byte) (Classification, error) {
	for _, d := range r.decoders {
		c, ok, err := d.Classify(payload)
		if err != nil {
			return Classification{}, fmt.Errorf("classify %s: %w", d.Protocol(), err)
		}
		if ok {
			return c, nil
		}
	}
	return Classification{}, nil
}

// Extract runs the extraction of the decoder owning c.
func (r *Registry) Extract(c Classification, payload []byte) Outcome {
	if !c.Known() {
		return Outcome{Kind: Unrecognized, Classification: c}
	}

	d := r.lookup(c.Protocol)
	if d == nil {
		return Outcome{Kind: RecognizedNoExtraction, Classification: c, Err: ErrNoExtractor}
	}

	rec, err := d.Extract(c, payload)
	switch {
	case errors.Is(err, ErrNoExtractor):
		return Outcome{Kind: RecognizedNoExtraction, Classification: c, Err: err}
	case err != nil:
		return Outcome{Kind: ParseFailed, Classification: c, Err: fmt.Errorf("extract %s: %w", c, err)}
	}
	return Outcome{Kind: Extracted, Classification: c, Record: rec}
}

// Analyze classifies the payload and extracts a record when possible.
func (r *Registry) Analyze(payload []byte) Outcome {
	if len(payload) == 0 {
		return Outcome{Kind: ParseFailed, Err: ErrEmptyPayload}
	}
	c, err := r.Classify(payload)
	if err != nil {
		return Outcome{Kind: ParseFailed, Err: err}
	}
	return r.Extract(c, payload)
}

func (r *Registry) lookup(p Protocol) Decoder {
	for _, d := range r.decoders {
		if d.Protocol() == p {
			return d
		}
	}
	return nil
}
