// Package main provides an unattended acoustic monitor that captures
// short audio bursts on a fixed cadence, measures their A-weighted
// equivalent level and stores each burst as a FLAC file with an XML
// metadata sidecar.
//
// Usage:
//
//	noisewatch [-config path/to/config.json]
//
// If -config is not specified, the monitor looks for config.json in
// the same directory as the binary.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/soundscape-labs/noisewatch/internal/audio"
	"github.com/soundscape-labs/noisewatch/internal/config"
	"github.com/soundscape-labs/noisewatch/internal/eventlog"
	"github.com/soundscape-labs/noisewatch/internal/monitor"
	"github.com/soundscape-labs/noisewatch/internal/notify"
	"github.com/soundscape-labs/noisewatch/internal/store"
	"github.com/soundscape-labs/noisewatch/internal/types"
	"github.com/soundscape-labs/noisewatch/internal/util"
)

// Build information, set via -ldflags at release time.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default: config.json next to binary)")
	showVersion := flag.Bool("version", false, "Print version information and exit")
	flag.Parse()

	if *showVersion {
		slog.Info("version info", "version", Version, "commit", Commit, "build_time", BuildTime)
		return
	}

	// Optional .env next to the working directory; environment wins
	// over the config file either way.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env file", "error", err)
	}

	if *configPath == "" {
		execPath, err := os.Executable()
		if err != nil {
			slog.Error("failed to get executable path", "error", err)
			os.Exit(1)
		}
		*configPath = filepath.Join(filepath.Dir(execPath), "config.json")
	}

	slog.Info("using config file", "path", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(cfg.Storage.OutputDir, 0o755); err != nil {
		slog.Error("failed to create output directory", "dir", cfg.Storage.OutputDir, "error", err)
		os.Exit(1)
	}
	if err := util.CheckPathWritable(cfg.Storage.OutputDir); err != nil {
		slog.Error("output directory not writable", "dir", cfg.Storage.OutputDir, "error", err)
		os.Exit(1)
	}

	// FFmpeg encodes every burst; without it there is nothing to store.
	ffmpegPath := util.ResolveFFmpegPath(cfg.FFmpegPath)
	if ffmpegPath == "" {
		slog.Error("FFmpeg not found", "configured_path", cfg.FFmpegPath)
		os.Exit(1)
	}
	slog.Info("FFmpeg found", "path", ffmpegPath)

	var events *eventlog.Logger
	if cfg.EventLog != "" {
		events, err = eventlog.NewLogger(cfg.EventLog)
		if err != nil {
			slog.Error("failed to open event log", "path", cfg.EventLog, "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := events.Close(); err != nil {
				slog.Warn("failed to close event log", "error", err)
			}
		}()
	}

	st, err := store.New(cfg.Storage.OutputDir, cfg.DeviceID, store.NewFFmpegEncoder(ffmpegPath))
	if err != nil {
		slog.Error("failed to initialize store", "error", err)
		os.Exit(1)
	}

	var uploader *store.Uploader
	var onUnit func(types.RecordingUnit)
	if cfg.Upload.IsConfigured() {
		uploader = store.NewUploader(cfg.Upload)
		uploader.Start()
		onUnit = uploader.Enqueue
		slog.Info("S3 upload enabled", "bucket", cfg.Upload.Bucket)
	}

	cleaner := store.NewCleaner(cfg.Storage.OutputDir, cfg.Storage.RetentionDays, &cfg.Upload)
	cleaner.Start()

	notifier := notify.NewAlertNotifier(cfg.Alerts, cfg.DeviceID, events)
	if notifier.Enabled() {
		slog.Info("noise alerts enabled", "threshold_dbfs", cfg.Alerts.ThresholdDBFS)
	}

	mon := monitor.New(monitor.Options{
		DeviceID:     cfg.DeviceID,
		InputDevice:  cfg.Capture.InputDevice,
		DeviceMatch:  cfg.Capture.DeviceMatch,
		SampleRate:   cfg.Capture.SampleRate,
		BurstSeconds: cfg.Capture.BurstSeconds,
		Period:       time.Duration(cfg.Capture.PeriodSecs) * time.Second,
		Backend:      audio.NewSystemBackend(ffmpegPath),
		Store:        st,
		Events:       events,
		Alerts:       notifier,
		OnUnit:       onUnit,
	})

	srv := NewServer(cfg, mon)
	httpServer := srv.Start()

	ctx, stop := signal.NotifyContext(context.Background(), util.ShutdownSignals()...)
	defer stop()

	mon.Run(ctx)

	slog.Info("shutting down")

	srv.version.Stop()
	cleaner.Stop()
	if uploader != nil {
		uploader.Stop()
	}

	if httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP server shutdown error", "error", err)
		}
	}

	slog.Info("shutdown complete")
}
