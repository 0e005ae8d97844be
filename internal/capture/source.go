// Package capture reads frames from capture files or a live interface and
// slices them down to their application-layer payload.
package capture

import (
	"context"
	"errors"

	"wiresift/internal/models"
)

var (
	ErrUnsupportedLinkType = errors.New("capture: unsupported link type")
	ErrUnknownFormat       = errors.New("capture: unknown capture file format")
)

// Source yields frames one at a time. Next returns io.EOF once the capture
// is exhausted.
type Source interface {
	Next(ctx context.Context) (models.Frame, error)
	Close() error
}
