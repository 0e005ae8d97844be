package cli

import (
	"testing"

	"github.com/jessevdk/go-flags"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wiresift/internal/config"
)

func TestParseArgs(t *testing.T) {
	opts, err := ParseArgs([]string{"-f", "dns.pcap", "-p", "--report", "html", "--report-dir", "/tmp/r", "-l", "debug"})
	require.NoError(t, err)
	assert.Equal(t, "dns.pcap", opts.PcapFile)
	assert.True(t, opts.PrintAnalysis)
	assert.Equal(t, "html", opts.Report)
	assert.Equal(t, "/tmp/r", opts.ReportDir)
	assert.Equal(t, "debug", opts.LogLevel)
}

func TestParseArgsRejectsUnknownReport(t *testing.T) {
	_, err := ParseArgs([]string{"--report", "pdf"})
	require.Error(t, err)
	var ferr *flags.Error
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, flags.ErrInvalidChoice, ferr.Type)
}

func TestParseArgsRejectsPositional(t *testing.T) {
	_, err := ParseArgs([]string{"capture.pcap"})
	assert.Error(t, err)
}

func TestApplyDefaultsToBundledCapture(t *testing.T) {
	cfg := config.Default()
	usedDefault, err := (&Options{}).Apply(&cfg)
	require.NoError(t, err)
	assert.True(t, usedDefault)
	assert.Equal(t, config.DefaultCaptureFile, cfg.Capture.File)
}

func TestApplyFlagsOverrideConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Capture.File = "from-config.pcap"
	cfg.Report.Format = "html"

	opts := &Options{Interface: "eth0", Filter: "udp port 53", Report: "none", MetricsAddr: ":9100"}
	usedDefault, err := opts.Apply(&cfg)
	require.NoError(t, err)
	assert.False(t, usedDefault)
	assert.Empty(t, cfg.Capture.File, "an interface on the command line replaces the configured file")
	assert.Equal(t, "eth0", cfg.Capture.Interface)
	assert.Equal(t, "udp port 53", cfg.Capture.Filter)
	assert.Equal(t, "none", cfg.Report.Format)
	assert.Equal(t, ":9100", cfg.Metrics.Addr)
}

func TestApplyRejectsFileAndInterface(t *testing.T) {
	cfg := config.Default()
	_, err := (&Options{PcapFile: "a.pcap", Interface: "eth0"}).Apply(&cfg)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}
