// Package cli parses wiresift's command line and layers it over the file
// configuration.
package cli

import (
	"fmt"
	"strings"

	"github.com/jessevdk/go-flags"

	"wiresift/internal/config"
)

// Options holds the command-line flags. Empty values leave the
// configuration file (or its defaults) in charge.
type Options struct {
	PcapFile      string `short:"f" long:"pcap-file" description:"Capture file to analyze (pcap or pcapng)"`
	Interface     string `short:"i" long:"interface" description:"Network interface to capture from (e.g., eth0, wlan0)"`
	Filter        string `long:"filter" description:"BPF filter for live capture"`
	PrintAnalysis bool   `short:"p" long:"print-analysis" description:"Log the outcome of every recognized payload"`
	ConfigFile    string `short:"c" long:"config" description:"TOML configuration file"`
	Report        string `long:"report" description:"End-of-run report" choice:"text" choice:"html" choice:"none"`
	ReportDir     string `long:"report-dir" description:"Directory for HTML reports"`
	MetricsAddr   string `long:"metrics-addr" description:"Serve Prometheus metrics on this address (e.g., :9100)"`
	Progress      bool   `long:"progress" description:"Show a progress bar while reading a capture file"`
	LogLevel      string `short:"l" long:"log-level" description:"Log level (trace, debug, info, warn, error, off)"`
	NoColor       bool   `long:"no-color" description:"Disable colored log output"`
	Version       bool   `short:"v" long:"version" description:"Print the version and exit"`
}

// ParseArgs parses args (without the program name). Help output is written
// by the parser; callers can detect it with flags.WroteHelp.
func ParseArgs(args []string) (*Options, error) {
	opts := &Options{}
	parser := flags.NewParser(opts, flags.Default)
	parser.Name = "wiresift"
	parser.Usage = "[OPTIONS]"

	rest, err := parser.ParseArgs(args)
	if err != nil {
		return nil, err
	}
	if len(rest) > 0 {
		return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(rest, " "))
	}
	return opts, nil
}

// Apply overlays the flags on cfg and validates the result. It reports
// whether no capture was named anywhere and the default file was chosen.
func (o *Options) Apply(cfg *config.Config) (usedDefault bool, err error) {
	if o.PcapFile != "" {
		cfg.Capture.File = o.PcapFile
		cfg.Capture.Interface = ""
	}
	if o.Interface != "" {
		cfg.Capture.Interface = o.Interface
		if o.PcapFile == "" {
			cfg.Capture.File = ""
		}
	}
	if o.Filter != "" {
		cfg.Capture.Filter = o.Filter
	}
	if o.PrintAnalysis {
		cfg.Analysis.PrintAnalysis = true
	}
	if o.Report != "" {
		cfg.Report.Format = o.Report
	}
	if o.ReportDir != "" {
		cfg.Report.Dir = o.ReportDir
	}
	if o.MetricsAddr != "" {
		cfg.Metrics.Addr = o.MetricsAddr
	}
	if o.LogLevel != "" {
		cfg.Log.Level = o.LogLevel
	}
	if o.NoColor {
		cfg.Log.NoColor = true
	}

	if cfg.Capture.File == "" && cfg.Capture.Interface == "" {
		cfg.Capture.File = config.DefaultCaptureFile
		usedDefault = true
	}
	return usedDefault, cfg.Validate()
}
