// Package scanner runs the fetch-evaluate-notify loop.
package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pumpwatch/engine/internal/detector"
	"github.com/pumpwatch/engine/internal/ingest"
	"github.com/pumpwatch/engine/internal/metrics"
	"github.com/pumpwatch/engine/internal/notify"
	"github.com/pumpwatch/engine/internal/store"
)

// PoolSource supplies the trending pools for one cycle.
type PoolSource interface {
	TrendingPools(ctx context.Context) ([]store.Pool, error)
}

// Options configures a Scanner.
type Options struct {
	Network  string
	WebURL   string
	Interval time.Duration
	Clock    clock.Clock
	Tracker  *metrics.MetricsTracker
	OnCycle  func(store.CycleReport)
}

// Scanner polls a PoolSource and alerts on volume spikes.
type Scanner struct {
	source    PoolSource
	evaluator *detector.Evaluator
	notifier  notify.Notifier

	network  string
	webURL   string
	interval time.Duration
	clock    clock.Clock
	tracker  *metrics.MetricsTracker
	onCycle  func(store.CycleReport)
}

// New creates a new Scanner.
func New(source PoolSource, evaluator *detector.Evaluator, notifier notify.Notifier, opts Options) *Scanner {
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Tracker == nil {
		opts.Tracker = metrics.NewMetricsTracker(nil)
	}
	if opts.WebURL == "" {
		opts.WebURL = ingest.GeckoWebBaseURL
	}

	return &Scanner{
		source:    source,
		evaluator: evaluator,
		notifier:  notifier,
		network:   opts.Network,
		webURL:    opts.WebURL,
		interval:  opts.Interval,
		clock:     opts.Clock,
		tracker:   opts.Tracker,
		onCycle:   opts.OnCycle,
	}
}

// Run scans immediately and then once per interval until ctx is done.
func (s *Scanner) Run(ctx context.Context) {
	slog.Info("scanner_started",
		"network", s.network,
		"threshold_pct", s.evaluator.MinVolumeChange(),
		"interval", s.interval,
	)

	for {
		s.RunOnce(ctx)

		timer := s.clock.Timer(s.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			slog.Info("scanner_stopped", "notified_tokens", s.evaluator.NotifiedCount())
			return
		case <-timer.C:
		}
	}
}

// RunOnce performs one fetch-evaluate-notify pass. Every failure is logged
// and recorded in the returned report; none of them stops the pass.
func (s *Scanner) RunOnce(ctx context.Context) store.CycleReport {
	report := store.CycleReport{StartedAt: s.clock.Now()}

	pools, err := s.source.TrendingPools(ctx)
	if err != nil {
		slog.Error("fetch_failed", "network", s.network, "error", err)
		report.FetchErr = err
		pools = nil
	}

	for _, pool := range pools {
		eval := s.evaluator.Evaluate(pool)
		report.Evaluations = append(report.Evaluations, eval)

		if eval.Err != nil {
			slog.Warn("pool_parse_failed", "pool", pool.ID, "error", eval.Err)
			report.ParseErrs = append(report.ParseErrs, eval.Err)
			continue
		}
		if eval.Suppressed {
			slog.Debug("spike_already_notified", "token", pool.Name, "volume_change_pct", eval.VolumeChange)
			continue
		}
		if !eval.Flagged {
			continue
		}

		alert := s.newAlert(eval)
		report.Alerts = append(report.Alerts, alert)

		if err := s.notifier.Notify(ctx, alert); err != nil {
			slog.Error("alert_send_failed", "token", pool.Name, "error", err)
			report.SendErrs = append(report.SendErrs, fmt.Errorf("token %s: %w", pool.Name, err))
		} else {
			slog.Info("alert_sent", "token", pool.Name, "volume_change_pct", eval.VolumeChange)
		}

		// Marked even when sending failed; the alert is not retried
		s.evaluator.MarkNotified(pool.Name)
	}

	report.Duration = s.clock.Since(report.StartedAt)
	s.tracker.RecordCycle(report, s.evaluator.NotifiedCount())

	slog.Info("scan_cycle_complete",
		"pools", len(report.Evaluations),
		"alerts", len(report.Alerts),
		"parse_errors", len(report.ParseErrs),
		"send_errors", len(report.SendErrs),
		"fetch_failed", report.FetchErr != nil,
		"duration", report.Duration,
	)

	if s.onCycle != nil {
		s.onCycle(report)
	}

	return report
}

// newAlert builds the alert for a flagged evaluation.
func (s *Scanner) newAlert(eval store.Evaluation) store.Alert {
	return store.Alert{
		Pool:         eval.Pool,
		SignalType:   store.SignalVolumeSpike,
		Network:      s.network,
		VolumeChange: eval.VolumeChange,
		PriceChange:  eval.PriceChange,
		ChartURL:     ingest.ChartURL(s.webURL, s.network, eval.Pool.ID),
		DetectedAt:   s.clock.Now().UTC(),
	}
}
