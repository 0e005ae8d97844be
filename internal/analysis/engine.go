package analysis

import (
	"context"
	"errors"
	"io"

	"github.com/rs/zerolog"

	"wiresift/internal/capture"
	"wiresift/internal/metrics"
	"wiresift/internal/models"
	"wiresift/internal/protocol"
	"wiresift/internal/protocol/dns"
	"wiresift/internal/protocol/ssh"
)

// DefaultRegistry returns the built-in decoders in priority order: DNS, then
// SSH.
func DefaultRegistry() *protocol.Registry {
	return protocol.NewRegistry(dns.New(), ssh.New())
}

// FrameResult describes what happened to one frame.
type FrameResult struct {
	Packet   models.PacketData
	SliceErr error
	// Analyzed is false when the frame never reached the registry, either
	// because slicing failed or because there was no payload.
	Analyzed bool
	Outcome  protocol.Outcome
}

// Engine runs frames through slicing, classification and extraction one at
// a time and feeds the results into Stats and the AnomalyDetector.
type Engine struct {
	registry      *protocol.Registry
	slicer        *capture.Slicer
	stats         *Stats
	detector      *AnomalyDetector
	log           zerolog.Logger
	printAnalysis bool
	metrics       bool
}

type Option func(*Engine)

// WithRegistry replaces the default decoders.
func WithRegistry(r *protocol.Registry) Option {
	return func(e *Engine) { e.registry = r }
}

// WithPrintAnalysis logs every recognized payload at info level.
func WithPrintAnalysis(enabled bool) Option {
	return func(e *Engine) { e.printAnalysis = enabled }
}

// WithMetrics records Prometheus counters for every frame.
func WithMetrics(enabled bool) Option {
	return func(e *Engine) { e.metrics = enabled }
}

// WithDetector attaches an anomaly detector.
func WithDetector(d *AnomalyDetector) Option {
	return func(e *Engine) { e.detector = d }
}

// NewEngine creates an Engine writing into stats.
func NewEngine(stats *Stats, log zerolog.Logger, opts ...Option) *Engine {
	e := &Engine{
		registry: DefaultRegistry(),
		slicer:   capture.NewSlicer(),
		stats:    stats,
		log:      log,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.metrics {
		metrics.RegisterMetrics()
	}
	return e
}

// Stats returns the engine's statistics.
func (e *Engine) Stats() *Stats { return e.stats }

// Detector returns the attached anomaly detector, or nil.
func (e *Engine) Detector() *AnomalyDetector { return e.detector }

// Run processes frames from src until it is exhausted or ctx is done.
// Per-frame failures are counted and never end the run.
func (e *Engine) Run(ctx context.Context, src capture.Source) error {
	for {
		frame, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			c := e.stats.GetCounters()
			e.log.Info().Int64("frames", c.Total).Msg("capture exhausted")
			return nil
		}
		if err != nil {
			return err
		}
		e.ProcessFrame(frame)
	}
}

// ProcessFrame analyzes a single frame.
func (e *Engine) ProcessFrame(f models.Frame) FrameResult {
	pkt, err := e.slicer.Slice(f)
	if err != nil {
		e.stats.RecordSliceError(pkt)
		e.recordFrame(metrics.OutcomeSliceError)
		e.log.Warn().Err(err).Int64("frame", e.stats.GetCounters().Total).Msg("slicing frame failed")
		return FrameResult{Packet: pkt, SliceErr: err}
	}

	if len(pkt.Payload) == 0 {
		e.stats.RecordEmpty(pkt)
		e.recordFrame(metrics.OutcomeEmptyPayload)
		return FrameResult{Packet: pkt}
	}

	out := e.registry.Analyze(pkt.Payload)
	e.stats.RecordOutcome(pkt, out)
	if e.detector != nil {
		e.detector.ProcessOutcome(pkt, out)
	}
	if e.metrics {
		metrics.RecordOutcome(out)
	}
	e.logOutcome(pkt, out)

	return FrameResult{Packet: pkt, Analyzed: true, Outcome: out}
}

func (e *Engine) recordFrame(outcome string) {
	if e.metrics {
		metrics.RecordFrame(outcome)
	}
}

func (e *Engine) logOutcome(pkt models.PacketData, out protocol.Outcome) {
	switch out.Kind {
	case protocol.ParseFailed:
		e.log.Debug().Err(out.Err).
			Str("src", pkt.SrcIP).
			Str("classification", out.Classification.String()).
			Msg("payload could not be parsed")
		return
	case protocol.Unrecognized:
		e.log.Trace().Str("src", pkt.SrcIP).Int("len", len(pkt.Payload)).Msg("unknown payload")
		return
	}

	if m, ok := out.Record.(*dns.Message); ok {
		e.log.Trace().Object("dns", m).Msg("decoded query")
	} else {
		e.log.Trace().Str("classification", out.Classification.String()).Msg("known packet type found")
	}

	if !e.printAnalysis {
		return
	}
	ev := e.log.Info().
		Str("classification", out.Classification.String()).
		Str("outcome", out.Kind.String()).
		Str("src", pkt.SrcIP).
		Str("dst", pkt.DstIP)
	if obj, ok := out.Record.(zerolog.LogObjectMarshaler); ok {
		ev = ev.Object("record", obj)
	}
	ev.Msg("analysis")
}
