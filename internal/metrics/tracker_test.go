package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/pumpwatch/engine/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport(started time.Time) store.CycleReport {
	flagged := store.Evaluation{
		Pool:         store.Pool{ID: "eth_1", Name: "PEPE / WETH"},
		VolumeChange: 300,
		PriceChange:  10,
		Flagged:      true,
	}
	return store.CycleReport{
		StartedAt: started,
		Duration:  250 * time.Millisecond,
		Evaluations: []store.Evaluation{
			flagged,
			{Pool: store.Pool{ID: "eth_2", Name: "DOGE / WETH"}, VolumeChange: 50},
			{Pool: store.Pool{ID: "eth_3", Name: "OLD / WETH"}, VolumeChange: 500, Suppressed: true},
			{Pool: store.Pool{ID: "eth_4"}, Err: errors.New("missing name")},
		},
		Alerts:    []store.Alert{{Pool: flagged.Pool, VolumeChange: 300}},
		ParseErrs: []error{errors.New("missing name")},
		SendErrs:  []error{errors.New("smtp down")},
	}
}

func TestMetricsTracker_RecordCycle(t *testing.T) {
	tracker := NewMetricsTracker(nil)
	started := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	tracker.RecordCycle(sampleReport(started), 2)
	snap := tracker.Snapshot()

	assert.Equal(t, int64(1), snap.Cycles)
	assert.Equal(t, int64(4), snap.PoolsEvaluated)
	// The only alert failed to send
	assert.Equal(t, int64(0), snap.AlertsSent)
	assert.Equal(t, int64(1), snap.AlertsFailed)
	assert.Equal(t, int64(1), snap.SpikesSuppressed)
	assert.Equal(t, int64(1), snap.ErrorsByStage[StageParse])
	assert.Equal(t, int64(1), snap.ErrorsByStage[StageSend])
	assert.Equal(t, 2, snap.NotifiedTokens)
	assert.Equal(t, started, snap.LastPoll)
	assert.False(t, snap.LastFetchFailed)

	require.Len(t, snap.LatestPools, 4)
	assert.Equal(t, StatusAlert, snap.LatestPools[0].Status)
	assert.Equal(t, StatusBelow, snap.LatestPools[1].Status)
	assert.Equal(t, StatusSuppressed, snap.LatestPools[2].Status)
	assert.Equal(t, StatusError, snap.LatestPools[3].Status)

	require.Len(t, snap.RecentAlerts, 1)
	assert.Equal(t, "PEPE / WETH", snap.RecentAlerts[0].Pool.Name)
}

func TestMetricsTracker_SentExcludesFailedSends(t *testing.T) {
	tracker := NewMetricsTracker(nil)

	alerts := []store.Alert{
		{Pool: store.Pool{ID: "eth_1", Name: "A"}},
		{Pool: store.Pool{ID: "eth_2", Name: "B"}},
		{Pool: store.Pool{ID: "eth_3", Name: "C"}},
	}
	tracker.RecordCycle(store.CycleReport{
		Alerts:   alerts,
		SendErrs: []error{errors.New("token B: smtp down")},
	}, 3)

	snap := tracker.Snapshot()
	assert.Equal(t, int64(2), snap.AlertsSent)
	assert.Equal(t, int64(1), snap.AlertsFailed)
	assert.Equal(t, int64(1), snap.ErrorsByStage[StageSend])
	// Failed alerts are still shown in the history
	assert.Len(t, snap.RecentAlerts, 3)
}

func TestMetricsTracker_FetchFailureKeepsPools(t *testing.T) {
	tracker := NewMetricsTracker(nil)
	tracker.RecordCycle(sampleReport(time.Now()), 1)

	tracker.RecordCycle(store.CycleReport{
		StartedAt: time.Now(),
		FetchErr:  errors.New("503"),
	}, 1)

	snap := tracker.Snapshot()
	assert.Equal(t, int64(2), snap.Cycles)
	assert.Equal(t, int64(1), snap.ErrorsByStage[StageFetch])
	assert.True(t, snap.LastFetchFailed)
	assert.Len(t, snap.LatestPools, 4)
}

func TestMetricsTracker_RecentAlertsBounded(t *testing.T) {
	tracker := NewMetricsTracker(nil)

	for i := 0; i < maxRecentAlerts+10; i++ {
		tracker.RecordCycle(store.CycleReport{
			Alerts: []store.Alert{{Pool: store.Pool{ID: "eth", Name: "N"}, VolumeChange: float64(i)}},
		}, i+1)
	}

	snap := tracker.Snapshot()
	require.Len(t, snap.RecentAlerts, maxRecentAlerts)
	// Newest first
	assert.Equal(t, float64(maxRecentAlerts+9), snap.RecentAlerts[0].VolumeChange)
}

func TestPrometheus(t *testing.T) {
	prom := NewPrometheus("test", prometheus.NewRegistry())
	tracker := NewMetricsTracker(prom)

	tracker.RecordCycle(sampleReport(time.Unix(1700000000, 0)), 3)
	tracker.RecordCycle(store.CycleReport{FetchErr: errors.New("timeout")}, 3)

	assert.Equal(t, 2.0, testutil.ToFloat64(prom.CyclesTotal))
	assert.Equal(t, 4.0, testutil.ToFloat64(prom.PoolsEvaluated))
	assert.Equal(t, 0.0, testutil.ToFloat64(prom.SpikesTotal.WithLabelValues(OutcomeAlerted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(prom.SpikesTotal.WithLabelValues(OutcomeSendFailed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(prom.SpikesTotal.WithLabelValues(OutcomeSuppressed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(prom.ErrorsTotal.WithLabelValues(StageFetch)))
	assert.Equal(t, 1.0, testutil.ToFloat64(prom.ErrorsTotal.WithLabelValues(StageSend)))
	assert.Equal(t, 3.0, testutil.ToFloat64(prom.NotifiedTokens))

	rec := httptest.NewRecorder()
	prom.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "test_scanner_cycles_total 2")
}
