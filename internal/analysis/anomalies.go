package analysis

import (
	"fmt"
	"sync"
	"time"

	"wiresift/internal/config"
	"wiresift/internal/models"
	"wiresift/internal/protocol"
	"wiresift/internal/protocol/dns"
)

// AnomalyType represents the type of anomaly detected.
type AnomalyType string

const (
	AnomalyTunnel         AnomalyType = "POSSIBLE_DNS_TUNNEL"
	AnomalyQueryFlood     AnomalyType = "DNS_QUERY_FLOOD"
	AnomalyMalformedBurst AnomalyType = "MALFORMED_BURST"
)

// AnomalyConfig holds configuration for the anomaly detector.
type AnomalyConfig struct {
	LongNameThreshold  int           // Query name length that looks like data exfiltration
	QueryRateThreshold int           // Decoded queries per second per source
	MalformedThreshold int           // Parse failures per second
	Cooldown           time.Duration // Per-source throttle for tunnel alerts
	CleanupInterval    time.Duration
	DataRetention      time.Duration
	MaxAlerts          int
}

// DefaultAnomalyConfig returns the default configuration.
func DefaultAnomalyConfig() AnomalyConfig {
	return AnomalyConfigFrom(config.Default().Anomaly)
}

// AnomalyConfigFrom converts the file configuration.
func AnomalyConfigFrom(c config.AnomalyConfig) AnomalyConfig {
	return AnomalyConfig{
		LongNameThreshold:  c.LongNameThreshold,
		QueryRateThreshold: c.QueryRateThreshold,
		MalformedThreshold: c.MalformedThreshold,
		Cooldown:           time.Duration(c.CooldownSeconds) * time.Second,
		CleanupInterval:    time.Minute,
		DataRetention:      5 * time.Minute,
		MaxAlerts:          c.MaxAlerts,
	}
}

// Alert represents a detected anomaly.
type Alert struct {
	Type      AnomalyType
	Source    string // IP or source identifier
	Message   string
	Timestamp time.Time
}

// AnomalyDetector watches analysis outcomes for suspicious patterns. Time
// windows follow frame timestamps, so replaying a capture gives the same
// alerts as watching it live.
type AnomalyDetector struct {
	mu sync.Mutex

	config AnomalyConfig

	// Tunnel detection (throttling)
	tunnelAlerts map[string]time.Time // source -> last alert time

	// Query flood detection
	queryCount  map[string]int
	queryWindow map[string]time.Time

	// Malformed burst detection
	malformedCount  int
	malformedWindow time.Time

	alerts   []Alert
	allTotal int

	lastCleanup time.Time
}

// NewAnomalyDetector creates a new anomaly detection engine.
func NewAnomalyDetector(cfg AnomalyConfig) *AnomalyDetector {
	if cfg.MaxAlerts <= 0 {
		cfg.MaxAlerts = 20
	}
	return &AnomalyDetector{
		config:       cfg,
		tunnelAlerts: make(map[string]time.Time),
		queryCount:   make(map[string]int),
		queryWindow:  make(map[string]time.Time),
		alerts:       make([]Alert, 0),
	}
}

// ProcessOutcome analyzes one registry outcome.
func (ad *AnomalyDetector) ProcessOutcome(pkt models.PacketData, out protocol.Outcome) {
	ad.mu.Lock()
	defer ad.mu.Unlock()

	now := pkt.Timestamp
	if now.IsZero() {
		now = time.Now()
	}

	if ad.lastCleanup.IsZero() {
		ad.lastCleanup = now
	} else if now.Sub(ad.lastCleanup) > ad.config.CleanupInterval {
		ad.cleanup(now)
		ad.lastCleanup = now
	}

	if out.Kind == protocol.ParseFailed {
		ad.detectMalformedBurst(now)
		return
	}

	m, ok := out.Record.(*dns.Message)
	if !ok {
		return
	}
	ad.detectTunnel(pkt, m, now)
	ad.detectQueryFlood(pkt, now)
}

// cleanup removes old entries to prevent memory leaks.
func (ad *AnomalyDetector) cleanup(now time.Time) {
	for key, lastAlert := range ad.tunnelAlerts {
		if now.Sub(lastAlert) > ad.config.DataRetention {
			delete(ad.tunnelAlerts, key)
		}
	}
	for ip, windowStart := range ad.queryWindow {
		if now.Sub(windowStart) > ad.config.DataRetention {
			delete(ad.queryWindow, ip)
			delete(ad.queryCount, ip)
		}
	}
}

// detectTunnel flags unusually long query names.
func (ad *AnomalyDetector) detectTunnel(pkt models.PacketData, m *dns.Message, now time.Time) {
	name := m.Name()
	if len(name) <= ad.config.LongNameThreshold {
		return
	}

	lastAlert, exists := ad.tunnelAlerts[pkt.SrcIP]
	if exists && now.Sub(lastAlert) <= ad.config.Cooldown {
		return
	}
	ad.addAlert(Alert{
		Type:      AnomalyTunnel,
		Source:    pkt.SrcIP,
		Message:   fmt.Sprintf("%d character %s query for %.40s...", len(name), m.TypeName(), name),
		Timestamp: now,
	})
	ad.tunnelAlerts[pkt.SrcIP] = now
}

// detectQueryFlood checks for single-source high query rate.
func (ad *AnomalyDetector) detectQueryFlood(pkt models.PacketData, now time.Time) {
	if pkt.SrcIP == "" {
		return
	}

	if _, exists := ad.queryWindow[pkt.SrcIP]; !exists {
		ad.queryWindow[pkt.SrcIP] = now
		ad.queryCount[pkt.SrcIP] = 0
	}
	if now.Sub(ad.queryWindow[pkt.SrcIP]) > time.Second {
		ad.queryCount[pkt.SrcIP] = 0
		ad.queryWindow[pkt.SrcIP] = now
	}

	ad.queryCount[pkt.SrcIP]++

	if ad.queryCount[pkt.SrcIP] > ad.config.QueryRateThreshold {
		ad.addAlert(Alert{
			Type:      AnomalyQueryFlood,
			Source:    pkt.SrcIP,
			Message:   fmt.Sprintf("High query rate from %s: %d queries/s", pkt.SrcIP, ad.queryCount[pkt.SrcIP]),
			Timestamp: now,
		})
		// Reset to avoid spam
		ad.queryCount[pkt.SrcIP] = 0
		ad.queryWindow[pkt.SrcIP] = now
	}
}

// detectMalformedBurst checks for many parse failures in one second.
func (ad *AnomalyDetector) detectMalformedBurst(now time.Time) {
	if ad.malformedWindow.IsZero() || now.Sub(ad.malformedWindow) > time.Second {
		ad.malformedCount = 0
		ad.malformedWindow = now
	}

	ad.malformedCount++

	if ad.malformedCount > ad.config.MalformedThreshold {
		ad.addAlert(Alert{
			Type:      AnomalyMalformedBurst,
			Source:    "Capture",
			Message:   fmt.Sprintf("%d malformed payloads in 1 second", ad.malformedCount),
			Timestamp: now,
		})
		ad.malformedCount = 0
		ad.malformedWindow = now
	}
}

// addAlert adds an alert to the history (circular buffer).
func (ad *AnomalyDetector) addAlert(alert Alert) {
	ad.alerts = append(ad.alerts, alert)
	ad.allTotal++

	if len(ad.alerts) > ad.config.MaxAlerts {
		ad.alerts = ad.alerts[len(ad.alerts)-ad.config.MaxAlerts:]
	}
}

// GetRecentAlerts returns the most recent alerts, newest last.
func (ad *AnomalyDetector) GetRecentAlerts(limit int) []Alert {
	ad.mu.Lock()
	defer ad.mu.Unlock()

	if len(ad.alerts) == 0 {
		return []Alert{}
	}

	start := 0
	if limit >= 0 && len(ad.alerts) > limit {
		start = len(ad.alerts) - limit
	}

	result := make([]Alert, len(ad.alerts)-start)
	copy(result, ad.alerts[start:])
	return result
}

// GetAllAlerts returns every retained alert.
func (ad *AnomalyDetector) GetAllAlerts() []Alert {
	return ad.GetRecentAlerts(-1)
}

// TotalAlerts counts alerts raised, including ones rotated out.
func (ad *AnomalyDetector) TotalAlerts() int {
	ad.mu.Lock()
	defer ad.mu.Unlock()
	return ad.allTotal
}
