// Package main is the entry point for the PumpWatch volume spike alerter.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/pumpwatch/engine/internal/config"
	"github.com/pumpwatch/engine/internal/detector"
	"github.com/pumpwatch/engine/internal/ingest"
	"github.com/pumpwatch/engine/internal/metrics"
	"github.com/pumpwatch/engine/internal/notify"
	"github.com/pumpwatch/engine/internal/scanner"
	"github.com/pumpwatch/engine/internal/store"
	"github.com/pumpwatch/engine/internal/ui"
)

const (
	// ReportChannelBuffer is the size of the buffered dashboard feed
	ReportChannelBuffer = 16
	// ShutdownTimeout bounds HTTP server shutdown
	ShutdownTimeout = 5 * time.Second
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Initialize structured logger
	out, closeLog, err := logOutput(cfg.LogFile)
	if err != nil {
		slog.Error("failed to open log file", "path", cfg.LogFile, "error", err)
		os.Exit(1)
	}
	defer closeLog()

	logger := setupLogger(cfg.LogLevel, out)
	slog.SetDefault(logger)

	slog.Info("🚨 pumpwatch starting", "version", "1.0.0")

	slog.Info("config_loaded",
		"network", cfg.Network,
		"volume_threshold", cfg.VolumeThreshold,
		"check_interval", cfg.CheckInterval,
		"gecko_api_url", cfg.GeckoAPIURL,
		"email_address", cfg.EmailAddress,
		"email_to", cfg.EmailTo,
		"email_password", cfg.MaskedEmailPassword(),
		"smtp_server", fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
		"alert_ws_addr", cfg.AlertWSAddr,
		"prometheus_port", cfg.PrometheusPort,
		"enable_tui", cfg.EnableTUI,
	)

	// Setup graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Metrics
	var prom *metrics.Prometheus
	if cfg.PrometheusPort > 0 {
		prom = metrics.NewPrometheus("pumpwatch", prometheus.NewRegistry())
		startServer(ctx, "prometheus", fmt.Sprintf(":%d", cfg.PrometheusPort), routes("/metrics", prom.Handler()))
	}
	tracker := metrics.NewMetricsTracker(prom)

	// Notifiers
	notifiers := notify.Fanout{}
	if cfg.EmailEnabled() {
		notifiers = append(notifiers, notify.NewMail(notify.MailParams{
			SMTPHost: cfg.SMTPHost,
			SMTPPort: cfg.SMTPPort,
			From:     cfg.EmailAddress,
			To:       cfg.EmailTo,
			Password: cfg.EmailPassword,
			Timeout:  cfg.HTTPTimeout,
		}))
	} else {
		slog.Warn("email_disabled", "reason", "EMAIL_ADDRESS or EMAIL_PASSWORD not set, alerts are only logged")
		notifiers = append(notifiers, notify.NewConsole(logger))
	}

	if cfg.AlertWSAddr != "" {
		broadcaster := notify.NewBroadcaster()
		defer broadcaster.Close()
		startServer(ctx, "alert_ws", cfg.AlertWSAddr, routes("/ws", broadcaster))
		notifiers = append(notifiers, broadcaster)
	}

	// Dashboard feed
	var reportChan chan store.CycleReport
	onCycle := func(store.CycleReport) {}
	if cfg.EnableTUI {
		reportChan = make(chan store.CycleReport, ReportChannelBuffer)
		onCycle = func(report store.CycleReport) {
			select {
			case reportChan <- report:
			default:
				slog.Warn("report_channel_full")
			}
		}
	}

	// Scanner
	evaluator := detector.NewEvaluator(cfg.VolumeThreshold)
	client := ingest.NewTrendingClient(cfg.GeckoAPIURL, cfg.Network, cfg.HTTPTimeout)
	scan := scanner.New(client, evaluator, notifiers, scanner.Options{
		Network:  cfg.Network,
		WebURL:   cfg.GeckoWebURL,
		Interval: cfg.CheckInterval,
		Tracker:  tracker,
		OnCycle:  onCycle,
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		scan.Run(ctx)
	}()

	// Start TUI or run in background mode
	if cfg.EnableTUI {
		slog.Info("starting_tui")
		app := ui.NewApp(reportChan, tracker, ui.Options{
			Network:      cfg.Network,
			ThresholdPct: evaluator.MinVolumeChange(),
			RefreshRate:  cfg.UIRefreshRate,
		})

		go func() {
			if err := app.Run(); err != nil {
				slog.Error("tui_error", "error", err)
			}
			cancel()
		}()

		select {
		case <-ctx.Done():
			app.Stop()
		case <-app.Done():
		}
	}

	<-ctx.Done()
	slog.Info("shutdown_signal_received")

	cancel()
	<-done

	slog.Info("shutdown_complete",
		"notified_tokens", evaluator.NotifiedCount(),
		"tokens", strings.Join(evaluator.NotifiedNames(), ", "),
	)
}

// routes mounts a single handler on a fresh mux.
func routes(path string, h http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.Handle(path, h)
	return mux
}

// startServer serves h on addr until ctx is cancelled.
func startServer(ctx context.Context, name, addr string, h http.Handler) {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("http_server_started", "server", name, "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http_server_failed", "server", name, "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
}

// logOutput returns stdout or the configured log file.
func logOutput(path string) (io.Writer, func(), error) {
	if path == "" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}

// setupLogger creates a structured logger with the specified level.
// Format: 2025-01-04 14:32:01 [INFO]  message key=value
func setupLogger(levelStr string, out io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToUpper(levelStr) {
	case "DEBUG":
		level = slog.LevelDebug
	case "INFO":
		level = slog.LevelInfo
	case "WARN", "WARNING":
		level = slog.LevelWarn
	case "ERROR":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.Format("2006-01-02 15:04:05"))
				}
			}
			return a
		},
	}

	handler := slog.NewTextHandler(out, opts)
	return slog.New(handler)
}
