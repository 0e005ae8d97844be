package logging

import (
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	EnvLogLevel   = "WIRESIFT_LOG_LEVEL"
	EnvLogNoColor = "WIRESIFT_LOG_NOCOLOR"
)

type Profile int

const (
	ProfileRuntime Profile = iota
	ProfileTest
)

// Options configures New. Zero values take the profile defaults.
type Options struct {
	Profile Profile
	Level   string
	NoColor bool
	Out     io.Writer
}

// New builds a console logger. Environment overrides win over Options.
func New(app string, opts Options) zerolog.Logger {
	level := zerolog.InfoLevel
	timestamp := true
	if opts.Profile == ProfileTest {
		level = zerolog.DebugLevel
		timestamp = false
	}
	if lvl, ok := ParseLevel(opts.Level); ok {
		level = lvl
	}
	noColor := opts.NoColor

	if lvl, ok := ParseLevel(os.Getenv(EnvLogLevel)); ok {
		level = lvl
	}
	if v, ok := parseBool(os.Getenv(EnvLogNoColor)); ok {
		noColor = v
	}

	out := opts.Out
	if out == nil {
		out = os.Stderr
	}
	writer := zerolog.ConsoleWriter{
		Out:        out,
		NoColor:    noColor,
		TimeFormat: time.RFC3339,
	}
	if !timestamp {
		writer.PartsExclude = []string{zerolog.TimestampFieldName}
	}

	return zerolog.New(writer).Level(level).With().Timestamp().Str("app", app).Logger()
}

// ParseLevel accepts zerolog level names plus a few aliases.
func ParseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return zerolog.InfoLevel, false
	case "trace":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "disabled", "off", "none":
		return zerolog.Disabled, true
	default:
		return zerolog.InfoLevel, false
	}
}

func parseBool(raw string) (bool, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
