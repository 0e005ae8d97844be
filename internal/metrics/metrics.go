package metrics

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"wiresift/internal/protocol"
)

var (
	registerOnce sync.Once

	frames = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wiresift",
			Name:      "frames_total",
			Help:      "Frames processed, by outcome.",
		},
		[]string{"outcome"},
	)
	classified = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wiresift",
			Name:      "classified_total",
			Help:      "Payloads claimed by a decoder.",
		},
		[]string{"protocol", "subtype"},
	)
	parseFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wiresift",
			Name:      "parse_failures_total",
			Help:      "Payloads that failed classification or extraction.",
		},
		[]string{"reason"},
	)
)

// Frame outcome labels that are not protocol.OutcomeKind values.
const (
	OutcomeSliceError   = "slice_error"
	OutcomeEmptyPayload = "empty_payload"
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(frames, classified, parseFailures)
	})
}

// RecordFrame counts a frame that never reached the registry.
func RecordFrame(outcome string) {
	frames.WithLabelValues(outcome).Inc()
}

// RecordOutcome counts a registry outcome.
func RecordOutcome(out protocol.Outcome) {
	frames.WithLabelValues(out.Kind.String()).Inc()
	if out.Classification.Known() {
		classified.WithLabelValues(out.Classification.Protocol.String(), out.Classification.Subtype.String()).Inc()
	}
	if out.Kind == protocol.ParseFailed {
		parseFailures.WithLabelValues(failureReason(out.Err)).Inc()
	}
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, protocol.ErrTruncated):
		return "truncated"
	case errors.Is(err, protocol.ErrEmptyPayload):
		return "empty"
	default:
		return "other"
	}
}

// Serve exposes /metrics on addr until ctx is done.
func Serve(ctx context.Context, addr string) error {
	RegisterMetrics()
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
