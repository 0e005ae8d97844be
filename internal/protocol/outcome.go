package protocol

// OutcomeKind is the per-payload result reported to callers.
type OutcomeKind int

const (
	// ParseFailed means classification or extraction needed bytes the payload
	// did not have.
	ParseFailed OutcomeKind = iota
	// Unrecognized means no decoder claimed the payload.
	Unrecognized
	// RecognizedNoExtraction means a decoder claimed the payload but has no
	// extraction logic for its classification.
	RecognizedNoExtraction
	// Extracted means a typed record was decoded.
	Extracted
)

func (k OutcomeKind) String() string {
	switch k {
	case ParseFailed:
		return "parse_failed"
	case Unrecognized:
		return "unrecognized"
	case RecognizedNoExtraction:
		return "not_decoded"
	case Extracted:
		return "extracted"
	default:
		return "invalid"
	}
}

// Outcome carries the classification even when extraction was not attempted.
type Outcome struct {
	Kind           OutcomeKind
	Classification Classification
	Record         Record
	Err            error
}
