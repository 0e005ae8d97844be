package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog"
	"github.com/vbauerster/mpb/v8"

	"wiresift/internal/analysis"
	"wiresift/internal/capture"
	"wiresift/internal/cli"
	"wiresift/internal/config"
	"wiresift/internal/logging"
	"wiresift/internal/metrics"
	"wiresift/internal/reporting"
	"wiresift/internal/tui"
)

var version = "dev"

func main() {
	opts, err := cli.ParseArgs(os.Args[1:])
	if err != nil {
		if flags.WroteHelp(err) {
			os.Exit(0)
		}
		os.Exit(2)
	}
	if opts.Version {
		fmt.Println("wiresift", version)
		return
	}

	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	usedDefault, err := opts.Apply(&cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	log := logging.New("wiresift", logging.Options{Level: cfg.Log.Level, NoColor: cfg.Log.NoColor})
	if usedDefault {
		log.Warn().Str("file", cfg.Capture.File).Msg("no capture file or interface given, using default capture")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, opts.Progress, log); err != nil {
		log.Error().Err(err).Msg("analysis failed")
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, progress bool, log zerolog.Logger) error {
	if cfg.Metrics.Addr != "" {
		go func() {
			log.Info().Str("addr", cfg.Metrics.Addr).Msg("serving metrics")
			if err := metrics.Serve(ctx, cfg.Metrics.Addr); err != nil {
				log.Error().Err(err).Msg("metrics endpoint stopped")
			}
		}()
	}

	stats := analysis.NewStats(cfg.Analysis)
	detector := analysis.NewAnomalyDetector(analysis.AnomalyConfigFrom(cfg.Anomaly))
	engineOpts := []analysis.Option{
		analysis.WithDetector(detector),
		analysis.WithPrintAnalysis(cfg.Analysis.PrintAnalysis),
		analysis.WithMetrics(cfg.Metrics.Addr != ""),
	}

	var err error
	if cfg.Capture.Interface != "" {
		err = runLive(ctx, cfg, stats, detector, engineOpts, log)
	} else {
		err = runFile(ctx, cfg, progress, stats, engineOpts, log)
	}
	if err != nil {
		return err
	}

	switch cfg.Report.Format {
	case "text":
		return reporting.WriteSummary(os.Stdout, stats, detector)
	case "html":
		name, err := reporting.GenerateSessionReport(stats, detector, "html", cfg.Report.Dir)
		if err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		log.Info().Str("file", name).Msg("report written")
	}
	return nil
}

func runFile(ctx context.Context, cfg config.Config, progress bool, stats *analysis.Stats, engineOpts []analysis.Option, log zerolog.Logger) error {
	var p *mpb.Progress
	if progress {
		p = mpb.NewWithContext(ctx, mpb.WithOutput(os.Stderr))
	}

	src, err := capture.OpenFile(cfg.Capture.File, p)
	if err != nil {
		return err
	}
	log.Info().Str("file", cfg.Capture.File).Stringer("link_type", src.LinkType()).Msg("reading capture")

	engine := analysis.NewEngine(stats, log, engineOpts...)
	err = engine.Run(ctx, src)
	src.Close()
	if p != nil {
		p.Wait()
	}
	if errors.Is(err, context.Canceled) {
		log.Warn().Msg("interrupted, reporting partial results")
		return nil
	}
	return err
}

func runLive(ctx context.Context, cfg config.Config, stats *analysis.Stats, detector *analysis.AnomalyDetector, engineOpts []analysis.Option, log zerolog.Logger) error {
	src, err := capture.OpenLive(cfg.Capture.Interface, capture.LiveConfig{
		Filter:  cfg.Capture.Filter,
		SnapLen: cfg.Capture.SnapLen,
		Promisc: cfg.Capture.Promisc,
	})
	if err != nil {
		return err
	}
	defer src.Close()

	// The dashboard owns the terminal, so per-frame logging goes to a file.
	engineLog := zerolog.Nop()
	if cfg.Analysis.PrintAnalysis {
		path := filepath.Join(cfg.Report.Dir, "wiresift.log")
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open analysis log: %w", err)
		}
		defer f.Close()
		engineLog = logging.New("wiresift", logging.Options{Level: cfg.Log.Level, NoColor: true, Out: f})
		log.Info().Str("file", path).Msg("analysis output redirected")
	}

	captureCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := tui.NewAnalysisModel(stats, detector, cfg.Capture.Interface)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	engine := analysis.NewEngine(stats, engineLog, engineOpts...)
	done := make(chan error, 1)
	go func() {
		err := engine.Run(captureCtx, src)
		if errors.Is(err, context.Canceled) {
			err = nil
		}
		p.Send(tui.DoneMsg{Err: err})
		done <- err
	}()

	_, uiErr := p.Run()
	cancel()
	runErr := <-done

	if uiErr != nil && !errors.Is(uiErr, tea.ErrProgramKilled) && !errors.Is(uiErr, tea.ErrInterrupted) {
		return fmt.Errorf("dashboard: %w", uiErr)
	}
	return runErr
}
