package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wiresift.toml")
	body := `
[analysis]
print_analysis = true
domain_log_size = 10

[anomaly]
long_name_threshold = 60

[capture]
file = "dns.pcap"

[log]
level = "debug"

[report]
format = "html"
dir = "/tmp/reports"
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.Analysis.PrintAnalysis)
	assert.Equal(t, 10, cfg.Analysis.DomainLogSize)
	assert.Equal(t, 60, cfg.Anomaly.LongNameThreshold)
	assert.Equal(t, 200, cfg.Anomaly.QueryRateThreshold, "unset keys keep their defaults")
	assert.Equal(t, "dns.pcap", cfg.Capture.File)
	assert.Equal(t, 65536, cfg.Capture.SnapLen)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "html", cfg.Report.Format)
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("[report]\nformat = \"pdf\"\n"), 0o600))
	_, err := Load(path)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	require.NoError(t, os.WriteFile(path, []byte("[analysis\n"), 0o600))
	_, err = Load(path)
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Capture.File = "a.pcap"
	cfg.Capture.Interface = "eth0"
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	cfg = Default()
	cfg.Analysis.UniqueDomainFPRate = 1
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	cfg = Default()
	cfg.Anomaly.MalformedThreshold = 0
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
}
