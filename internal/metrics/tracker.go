// Package metrics provides scan metrics for status logs, the dashboard and Prometheus.
package metrics

import (
	"sync"
	"time"

	"github.com/pumpwatch/engine/internal/store"
	"github.com/samber/lo"
)

// Pool status labels shown on the dashboard
const (
	StatusAlert      = "ALERT"
	StatusSuppressed = "NOTIFIED"
	StatusBelow      = "BELOW"
	StatusError      = "ERROR"
)

// maxRecentAlerts bounds the alert history kept for display.
const maxRecentAlerts = 50

// PoolStats is the dashboard view of one pool from the latest cycle.
type PoolStats struct {
	PoolID       string
	Name         string
	VolumeChange float64
	PriceChange  float64
	Status       string
}

// MetricsSnapshot is a point-in-time view of metrics.
type MetricsSnapshot struct {
	Cycles            int64
	PoolsEvaluated    int64
	AlertsSent        int64
	AlertsFailed      int64
	SpikesSuppressed  int64
	ErrorsByStage     map[string]int64
	NotifiedTokens    int
	LatestPools       []PoolStats
	RecentAlerts      []store.Alert
	LastPoll          time.Time
	LastCycleDuration time.Duration
	LastFetchFailed   bool
	Uptime            time.Duration
}

// MetricsTracker provides thread-safe metrics tracking.
type MetricsTracker struct {
	mu                sync.RWMutex
	cycles            int64
	poolsEvaluated    int64
	alertsSent        int64
	alertsFailed      int64
	spikesSuppressed  int64
	errorsByStage     map[string]int64
	notifiedTokens    int
	latestPools       []PoolStats
	recentAlerts      []store.Alert // newest first
	lastPoll          time.Time
	lastCycleDuration time.Duration
	lastFetchFailed   bool
	startTime         time.Time

	prom *Prometheus
}

// NewMetricsTracker creates a new MetricsTracker. prom may be nil.
func NewMetricsTracker(prom *Prometheus) *MetricsTracker {
	return &MetricsTracker{
		errorsByStage: make(map[string]int64),
		recentAlerts:  make([]store.Alert, 0, maxRecentAlerts),
		startTime:     time.Now(),
		prom:          prom,
	}
}

// RecordCycle folds one scan cycle into the counters.
// notified is the size of the notified set after the cycle.
func (m *MetricsTracker) RecordCycle(report store.CycleReport, notified int) {
	pools := lo.Map(report.Evaluations, func(e store.Evaluation, _ int) PoolStats {
		return PoolStats{
			PoolID:       e.Pool.ID,
			Name:         e.Pool.Name,
			VolumeChange: e.VolumeChange,
			PriceChange:  e.PriceChange,
			Status:       poolStatus(e),
		}
	})
	// SendErrs holds one entry per alert whose delivery failed
	failed := min(len(report.SendErrs), len(report.Alerts))
	sent := len(report.Alerts) - failed

	suppressed := lo.CountBy(report.Evaluations, func(e store.Evaluation) bool {
		return e.Suppressed
	})

	m.mu.Lock()
	m.cycles++
	m.poolsEvaluated += int64(len(report.Evaluations))
	m.alertsSent += int64(sent)
	m.alertsFailed += int64(failed)
	m.spikesSuppressed += int64(suppressed)
	m.notifiedTokens = notified
	m.lastPoll = report.StartedAt
	m.lastCycleDuration = report.Duration
	m.lastFetchFailed = report.FetchErr != nil

	if report.FetchErr != nil {
		m.errorsByStage[StageFetch]++
	} else {
		// Keep the previous table on a failed fetch
		m.latestPools = pools
	}
	m.errorsByStage[StageParse] += int64(len(report.ParseErrs))
	m.errorsByStage[StageSend] += int64(len(report.SendErrs))

	// Add to front of history
	for _, alert := range report.Alerts {
		m.recentAlerts = append([]store.Alert{alert}, m.recentAlerts...)
	}
	if len(m.recentAlerts) > maxRecentAlerts {
		m.recentAlerts = m.recentAlerts[:maxRecentAlerts]
	}
	m.mu.Unlock()

	if m.prom != nil {
		m.observe(report, sent, failed, suppressed, notified)
	}
}

// observe mirrors a cycle into the Prometheus collectors.
func (m *MetricsTracker) observe(report store.CycleReport, sent, failed, suppressed, notified int) {
	p := m.prom
	p.CyclesTotal.Inc()
	p.PoolsEvaluated.Add(float64(len(report.Evaluations)))
	p.SpikesTotal.WithLabelValues(OutcomeAlerted).Add(float64(sent))
	p.SpikesTotal.WithLabelValues(OutcomeSendFailed).Add(float64(failed))
	p.SpikesTotal.WithLabelValues(OutcomeSuppressed).Add(float64(suppressed))
	if report.FetchErr != nil {
		p.ErrorsTotal.WithLabelValues(StageFetch).Inc()
	}
	p.ErrorsTotal.WithLabelValues(StageParse).Add(float64(len(report.ParseErrs)))
	p.ErrorsTotal.WithLabelValues(StageSend).Add(float64(len(report.SendErrs)))
	p.NotifiedTokens.Set(float64(notified))
	p.LastPollTimestamp.Set(float64(report.StartedAt.Unix()))
	p.CycleDuration.Observe(report.Duration.Seconds())
}

// Snapshot returns a point-in-time snapshot of metrics.
func (m *MetricsTracker) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	// Copy errors map
	errorsCopy := make(map[string]int64, len(m.errorsByStage))
	for k, v := range m.errorsByStage {
		errorsCopy[k] = v
	}

	return MetricsSnapshot{
		Cycles:            m.cycles,
		PoolsEvaluated:    m.poolsEvaluated,
		AlertsSent:        m.alertsSent,
		AlertsFailed:      m.alertsFailed,
		SpikesSuppressed:  m.spikesSuppressed,
		ErrorsByStage:     errorsCopy,
		NotifiedTokens:    m.notifiedTokens,
		LatestPools:       append([]PoolStats(nil), m.latestPools...),
		RecentAlerts:      append([]store.Alert(nil), m.recentAlerts...),
		LastPoll:          m.lastPoll,
		LastCycleDuration: m.lastCycleDuration,
		LastFetchFailed:   m.lastFetchFailed,
		Uptime:            time.Since(m.startTime),
	}
}

// poolStatus maps an evaluation to its dashboard label.
func poolStatus(e store.Evaluation) string {
	switch {
	case e.Err != nil:
		return StatusError
	case e.Flagged:
		return StatusAlert
	case e.Suppressed:
		return StatusSuppressed
	default:
		return StatusBelow
	}
}
