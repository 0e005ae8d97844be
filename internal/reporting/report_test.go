package reporting

import (
	"bytes"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wiresift/internal/analysis"
	"wiresift/internal/config"
	"wiresift/internal/models"
	"wiresift/internal/protocol"
	"wiresift/internal/protocol/dns"
)

func sessionStats() (*analysis.Stats, *analysis.AnomalyDetector) {
	stats := analysis.NewStats(config.Default().Analysis)
	cfg := analysis.DefaultAnomalyConfig()
	cfg.LongNameThreshold = 20
	det := analysis.NewAnomalyDetector(cfg)

	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	query := func(name string) protocol.Outcome {
		return protocol.Outcome{
			Kind:           protocol.Extracted,
			Classification: protocol.Classification{Protocol: protocol.DNS, Subtype: protocol.SubtypeQuery},
			Record: &dns.Message{
				Header:        dns.Header{ID: 0x1032, Flags: dns.FlagsQuery, QDCount: 1},
				Questions:     []string{name},
				QuestionType:  16,
				QuestionClass: 1,
			},
		}
	}

	pkt1 := models.PacketData{SrcIP: "192.168.1.10", DstIP: "8.8.8.8", Length: 500, Timestamp: ts}
	out1 := query("google.com")
	stats.RecordOutcome(pkt1, out1)
	det.ProcessOutcome(pkt1, out1)

	pkt2 := models.PacketData{SrcIP: "192.168.1.11", DstIP: "8.8.8.8", Length: 300, Timestamp: ts.Add(time.Second)}
	out2 := query("<script>x</script>.averyveryverylong.example")
	stats.RecordOutcome(pkt2, out2)
	det.ProcessOutcome(pkt2, out2)

	stats.RecordOutcome(models.PacketData{Length: 60, Timestamp: ts}, protocol.Outcome{
		Kind:           protocol.RecognizedNoExtraction,
		Classification: protocol.Classification{Protocol: protocol.SSH},
	})
	return stats, det
}

func TestGenerateSessionReport(t *testing.T) {
	stats, det := sessionStats()

	filename, err := GenerateSessionReport(stats, det, "html", t.TempDir())
	require.NoError(t, err)
	defer os.Remove(filename)

	content, err := os.ReadFile(filename)
	require.NoError(t, err)
	html := string(content)

	assert.Contains(t, html, "wiresift Session Report")
	assert.Contains(t, html, "google.com")
	assert.Contains(t, html, "192.168.1.10")
	assert.Contains(t, html, "DNS/Query")
	assert.Contains(t, html, "POSSIBLE_DNS_TUNNEL")
	assert.NotContains(t, html, "<script>", "names from traffic are escaped")
	assert.Contains(t, html, "&lt;script&gt;")
}

func TestGenerateSessionReportRejectsFormat(t *testing.T) {
	stats, det := sessionStats()
	_, err := GenerateSessionReport(stats, det, "pdf", t.TempDir())
	assert.Error(t, err)
}

func TestWriteSummary(t *testing.T) {
	stats, det := sessionStats()

	var buf bytes.Buffer
	require.NoError(t, WriteSummary(&buf, stats, det))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "pcap processing complete.\n"))
	assert.Contains(t, out, "Total: 3")
	assert.Contains(t, out, "Known/Analyzed: 3(2)")
	assert.Contains(t, out, "SSH")
	assert.Contains(t, out, "Data: 860 B")
	assert.Contains(t, out, "Alerts: 1")
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", formatBytes(512))
	assert.Equal(t, "1.5 KB", formatBytes(1536))
	assert.Equal(t, "2.0 MB", formatBytes(2*1024*1024))
}
