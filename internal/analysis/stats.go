package analysis

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/bits-and-blooms/bloom/v3"

	"wiresift/internal/config"
	"wiresift/internal/models"
	"wiresift/internal/protocol"
	"wiresift/internal/protocol/dns"
)

// Counters is a point-in-time copy of the frame accounting.
type Counters struct {
	Total       int64
	Known       int64 // a decoder claimed the payload
	Unknown     int64 // no decoder claimed the payload
	Errored     int64 // lower-layer slicing failed
	Empty       int64 // no application payload
	Analyzed    int64 // a record was extracted
	NotDecoded  int64 // recognized, no extraction logic
	ParseFailed int64 // classification or extraction ran out of bytes
}

// PercentKnown returns the share of all frames that were recognized.
func (c Counters) PercentKnown() float64 {
	return percent(c.Known, c.Total)
}

// PercentErrored returns the share of all frames that failed slicing.
func (c Counters) PercentErrored() float64 {
	return percent(c.Errored, c.Total)
}

func percent(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) * 100 / float64(total)
}

func (c Counters) String() string {
	return fmt.Sprintf(
		"Total: %d\nKnown/Analyzed: %d(%d) %.1f%%\nNot decoded: %d\nUnknown: %d\nParse failed: %d\nErrored: %d %.1f%%\nEmpty: %d",
		c.Total, c.Known, c.Analyzed, c.PercentKnown(), c.NotDecoded, c.Unknown, c.ParseFailed,
		c.Errored, c.PercentErrored(), c.Empty,
	)
}

// ProtocolStat holds stats for a single classification.
type ProtocolStat struct {
	Protocol string
	Count    int64
}

// SourceStat counts decoded queries sent by one address.
type SourceStat struct {
	IP      string
	Queries int
}

// DomainEntry is one decoded query name.
type DomainEntry struct {
	Hostname      string
	Type          string
	TransactionID uint16
	Source        string
	Timestamp     time.Time
}

// Stats aggregates per-frame results. It is safe for concurrent use so a
// dashboard can read while the engine writes.
type Stats struct {
	mu sync.Mutex

	counters       Counters
	totalBytes     int64
	windowBytes    int64
	windowPackets  int64
	lastTick       time.Time
	firstSeen      time.Time
	lastSeen       time.Time
	protocolCounts map[string]int64
	sourceQueries  map[string]int

	domainLog     []DomainEntry
	maxDomainLog  int
	seenDomains   *bloom.BloomFilter
	uniqueDomains int64
}

// NewStats creates an empty Stats.
func NewStats(cfg config.AnalysisConfig) *Stats {
	if cfg.DomainLogSize <= 0 {
		cfg.DomainLogSize = config.Default().Analysis.DomainLogSize
	}
	if cfg.UniqueDomainCapacity == 0 {
		cfg.UniqueDomainCapacity = config.Default().Analysis.UniqueDomainCapacity
	}
	if cfg.UniqueDomainFPRate <= 0 || cfg.UniqueDomainFPRate >= 1 {
		cfg.UniqueDomainFPRate = config.Default().Analysis.UniqueDomainFPRate
	}
	return &Stats{
		lastTick:       time.Now(),
		protocolCounts: make(map[string]int64),
		sourceQueries:  make(map[string]int),
		domainLog:      make([]DomainEntry, 0, cfg.DomainLogSize),
		maxDomainLog:   cfg.DomainLogSize,
		seenDomains:    bloom.NewWithEstimates(cfg.UniqueDomainCapacity, cfg.UniqueDomainFPRate),
	}
}

func (s *Stats) frame(pkt models.PacketData) {
	s.counters.Total++
	s.totalBytes += int64(pkt.Length)
	s.windowBytes += int64(pkt.Length)
	s.windowPackets++

	if !pkt.Timestamp.IsZero() {
		if s.firstSeen.IsZero() || pkt.Timestamp.Before(s.firstSeen) {
			s.firstSeen = pkt.Timestamp
		}
		if pkt.Timestamp.After(s.lastSeen) {
			s.lastSeen = pkt.Timestamp
		}
	}
}

// RecordSliceError counts a frame whose lower layers could not be decoded.
func (s *Stats) RecordSliceError(pkt models.PacketData) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frame(pkt)
	s.counters.Errored++
}

// RecordEmpty counts a frame without application payload.
func (s *Stats) RecordEmpty(pkt models.PacketData) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frame(pkt)
	s.counters.Empty++
}

// RecordOutcome counts a payload that went through the registry.
func (s *Stats) RecordOutcome(pkt models.PacketData, out protocol.Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frame(pkt)

	if out.Classification.Known() {
		s.counters.Known++
		s.protocolCounts[out.Classification.String()]++
	}

	switch out.Kind {
	case protocol.Unrecognized:
		s.counters.Unknown++
		s.protocolCounts[out.Classification.String()]++
	case protocol.ParseFailed:
		s.counters.ParseFailed++
	case protocol.RecognizedNoExtraction:
		s.counters.NotDecoded++
	case protocol.Extracted:
		s.counters.Analyzed++
		if m, ok := out.Record.(*dns.Message); ok {
			s.recordQuery(pkt, m)
		}
	}
}

func (s *Stats) recordQuery(pkt models.PacketData, m *dns.Message) {
	name := m.Name()
	if pkt.SrcIP != "" {
		s.sourceQueries[pkt.SrcIP]++
	}
	if !s.seenDomains.TestOrAddString(name) {
		s.uniqueDomains++
	}

	s.domainLog = append(s.domainLog, DomainEntry{
		Hostname:      name,
		Type:          m.TypeName(),
		TransactionID: m.Header.ID,
		Source:        pkt.SrcIP,
		Timestamp:     pkt.Timestamp,
	})
	// Keep circular buffer (last N entries)
	if len(s.domainLog) > s.maxDomainLog {
		s.domainLog = s.domainLog[len(s.domainLog)-s.maxDomainLog:]
	}
}

// GetCounters returns a copy of the counters.
func (s *Stats) GetCounters() Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters
}

// GetRates returns the bandwidth (bps) and packet rate (pps) since the last call.
func (s *Stats) GetRates() (float64, float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	duration := now.Sub(s.lastTick).Seconds()
	if duration == 0 {
		return 0, 0
	}

	bps := (float64(s.windowBytes) * 8) / duration
	pps := float64(s.windowPackets) / duration

	s.windowBytes = 0
	s.windowPackets = 0
	s.lastTick = now

	return bps, pps
}

// GetTotalDataTransferred returns the sum of frame lengths.
func (s *Stats) GetTotalDataTransferred() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalBytes
}

// GetCaptureSpan returns the first and last frame timestamps seen.
func (s *Stats) GetCaptureSpan() (time.Time, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.firstSeen, s.lastSeen
}

// GetProtocolStats returns the classification distribution, largest first.
func (s *Stats) GetProtocolStats() []ProtocolStat {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := make([]ProtocolStat, 0, len(s.protocolCounts))
	for proto, count := range s.protocolCounts {
		stats = append(stats, ProtocolStat{Protocol: proto, Count: count})
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Count == stats[j].Count {
			return stats[i].Protocol < stats[j].Protocol
		}
		return stats[i].Count > stats[j].Count
	})
	return stats
}

// GetTopSources returns the top N addresses by decoded queries.
func (s *Stats) GetTopSources(limit int) []SourceStat {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := make([]SourceStat, 0, len(s.sourceQueries))
	for ip, n := range s.sourceQueries {
		stats = append(stats, SourceStat{IP: ip, Queries: n})
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Queries == stats[j].Queries {
			return stats[i].IP < stats[j].IP
		}
		return stats[i].Queries > stats[j].Queries
	})

	if len(stats) > limit {
		return stats[:limit]
	}
	return stats
}

// GetDomainLog returns a copy of the recent query log, oldest first.
func (s *Stats) GetDomainLog() []DomainEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]DomainEntry, len(s.domainLog))
	copy(result, s.domainLog)
	return result
}

// GetUniqueDomains returns the approximate number of distinct query names.
// The bloom filter can under-count on false positives, never over-count.
func (s *Stats) GetUniqueDomains() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uniqueDomains
}
