package analysis

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wiresift/internal/config"
	"wiresift/internal/models"
	"wiresift/internal/protocol"
	"wiresift/internal/protocol/dns"
)

var googleTXTQuery = []byte{
	0x10, 0x32, 0x01, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x06, 0x67, 0x6f, 0x6f, 0x67, 0x6c, 0x65, 0x03, 0x63, 0x6f, 0x6d, 0x00,
	0x00, 0x10, 0x00, 0x01,
}

var baseTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func frame(t *testing.T, src string, transport gopacket.SerializableLayer, payload []byte, at time.Time) models.Frame {
	t.Helper()
	eth := layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0x02, 0, 0, 0, 0, 1},
		DstMAC:       net.HardwareAddr{0x02, 0, 0, 0, 0, 2},
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := layers.IPv4{
		Version: 4,
		TTL:     64,
		SrcIP:   net.ParseIP(src),
		DstIP:   net.IPv4(9, 9, 9, 9),
	}
	switch l := transport.(type) {
	case *layers.UDP:
		ip.Protocol = layers.IPProtocolUDP
		require.NoError(t, l.SetNetworkLayerForChecksum(&ip))
	case *layers.TCP:
		ip.Protocol = layers.IPProtocolTCP
		require.NoError(t, l.SetNetworkLayerForChecksum(&ip))
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	require.NoError(t, gopacket.SerializeLayers(buf, opts, &eth, &ip, transport, gopacket.Payload(payload)))
	return models.Frame{Timestamp: at, LinkType: layers.LinkTypeEthernet, Data: buf.Bytes()}
}

func udpFrame(t *testing.T, src string, payload []byte, at time.Time) models.Frame {
	return frame(t, src, &layers.UDP{SrcPort: 40000, DstPort: 53}, payload, at)
}

func tcpFrame(t *testing.T, src string, payload []byte, at time.Time) models.Frame {
	return frame(t, src, &layers.TCP{SrcPort: 50000, DstPort: 22, ACK: true, Window: 1024}, payload, at)
}

type sliceSource struct {
	frames []models.Frame
}

func (s *sliceSource) Next(ctx context.Context) (models.Frame, error) {
	if err := ctx.Err(); err != nil {
		return models.Frame{}, err
	}
	if len(s.frames) == 0 {
		return models.Frame{}, io.EOF
	}
	f := s.frames[0]
	s.frames = s.frames[1:]
	return f, nil
}

func (s *sliceSource) Close() error { return nil }

func newTestEngine(opts ...Option) *Engine {
	return NewEngine(NewStats(config.Default().Analysis), zerolog.Nop(), opts...)
}

func TestEngineRunCountsEveryOutcome(t *testing.T) {
	truncated := udpFrame(t, "10.0.0.1", []byte("x"), baseTime)
	truncated.Data = truncated.Data[:20]

	src := &sliceSource{frames: []models.Frame{
		udpFrame(t, "192.168.1.10", googleTXTQuery, baseTime),
		udpFrame(t, "8.8.8.8", []byte{0x10, 0x32, 0x81, 0x80, 0x00, 0x01}, baseTime),
		tcpFrame(t, "192.168.1.20", []byte("SSH-2.0-OpenSSH_9.6\r\n"), baseTime),
		udpFrame(t, "192.168.1.30", nil, baseTime),
		truncated,
		udpFrame(t, "192.168.1.40", []byte{0x01, 0x02}, baseTime),
		udpFrame(t, "192.168.1.50", []byte("NOTIFY * HTTP/1.1\r\n"), baseTime.Add(time.Second)),
	}}

	e := newTestEngine()
	require.NoError(t, e.Run(context.Background(), src))

	c := e.Stats().GetCounters()
	assert.Equal(t, Counters{
		Total:       7,
		Known:       3,
		Unknown:     1,
		Errored:     1,
		Empty:       1,
		Analyzed:    1,
		NotDecoded:  2,
		ParseFailed: 1,
	}, c)

	log := e.Stats().GetDomainLog()
	require.Len(t, log, 1)
	assert.Equal(t, "google.com", log[0].Hostname)
	assert.Equal(t, "TXT", log[0].Type)
	assert.Equal(t, "192.168.1.10", log[0].Source)

	first, last := e.Stats().GetCaptureSpan()
	assert.Equal(t, baseTime, first)
	assert.Equal(t, baseTime.Add(time.Second), last)
}

func TestEngineProcessFrame(t *testing.T) {
	e := newTestEngine()

	res := e.ProcessFrame(udpFrame(t, "192.168.1.10", googleTXTQuery, baseTime))
	require.True(t, res.Analyzed)
	require.Equal(t, protocol.Extracted, res.Outcome.Kind)
	m := res.Outcome.Record.(*dns.Message)
	assert.Equal(t, "google.com", m.Name())
	assert.Equal(t, 53, res.Packet.DstPort)

	res = e.ProcessFrame(models.Frame{LinkType: layers.LinkTypeEthernet, Data: []byte{0x01}})
	assert.False(t, res.Analyzed)
	assert.Error(t, res.SliceErr)
}

func TestEngineRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	src := &sliceSource{frames: []models.Frame{udpFrame(t, "10.0.0.1", googleTXTQuery, baseTime)}}
	err := newTestEngine().Run(ctx, src)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEngineFeedsDetector(t *testing.T) {
	cfg := DefaultAnomalyConfig()
	cfg.MalformedThreshold = 2
	det := NewAnomalyDetector(cfg)
	e := newTestEngine(WithDetector(det), WithPrintAnalysis(true), WithMetrics(true))

	for i := 0; i < 3; i++ {
		e.ProcessFrame(udpFrame(t, "10.0.0.1", []byte{0xaa, 0xbb}, baseTime))
	}
	alerts := e.Detector().GetAllAlerts()
	require.Len(t, alerts, 1)
	assert.Equal(t, AnomalyMalformedBurst, alerts[0].Type)
}

func TestEngineCustomRegistry(t *testing.T) {
	e := newTestEngine(WithRegistry(protocol.NewRegistry()))
	res := e.ProcessFrame(udpFrame(t, "10.0.0.1", googleTXTQuery, baseTime))
	assert.Equal(t, protocol.Unrecognized, res.Outcome.Kind)
}
