package scanner

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pumpwatch/engine/internal/detector"
	"github.com/pumpwatch/engine/internal/ingest"
	"github.com/pumpwatch/engine/internal/notify"
	"github.com/pumpwatch/engine/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource returns canned pools or an error.
type fakeSource struct {
	mu    sync.Mutex
	pools []store.Pool
	err   error
	calls int
}

func (f *fakeSource) TrendingPools(context.Context) ([]store.Pool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.pools, nil
}

func (f *fakeSource) set(pools []store.Pool, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pools = pools
	f.err = err
}

// recorder captures every alert it is asked to send.
type recorder struct {
	mu     sync.Mutex
	alerts []store.Alert
	err    error
}

func (r *recorder) Notify(_ context.Context, alert store.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, alert)
	return r.err
}

func (r *recorder) sent() []store.Alert {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]store.Alert(nil), r.alerts...)
}

func pool(id, name, volume, price string) store.Pool {
	return store.Pool{ID: id, Address: ingest.PoolAddress(id), Name: name, VolumeChange: volume, PriceChange: price}
}

func newTestScanner(source PoolSource, n notify.Notifier, clk clock.Clock) (*Scanner, *detector.Evaluator) {
	eval := detector.NewEvaluator(2.0)
	s := New(source, eval, n, Options{
		Network:  "eth",
		Interval: 5 * time.Minute,
		Clock:    clk,
	})
	return s, eval
}

func TestRunOnce_AlertsOncePerToken(t *testing.T) {
	clk := clock.NewMock()
	clk.Set(time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC))

	source := &fakeSource{pools: []store.Pool{
		pool("eth_0xaaa", "PEPE / WETH", "250%", "12.5%"),
		pool("eth_0xbbb", "DOGE / WETH", "150%", "1%"),
	}}
	rec := &recorder{}
	s, eval := newTestScanner(source, rec, clk)

	report := s.RunOnce(context.Background())

	require.Len(t, rec.sent(), 1)
	alert := rec.sent()[0]
	assert.Equal(t, "PEPE / WETH", alert.Pool.Name)
	assert.Equal(t, 250.0, alert.VolumeChange)
	assert.Equal(t, 12.5, alert.PriceChange)
	assert.Equal(t, "eth", alert.Network)
	assert.Equal(t, store.SignalVolumeSpike, alert.SignalType)
	assert.Equal(t, "https://www.geckoterminal.com/eth/pools/eth_0xaaa", alert.ChartURL)
	assert.Equal(t, clk.Now().UTC(), alert.DetectedAt)

	assert.True(t, eval.Notified("PEPE / WETH"))
	assert.False(t, eval.Notified("DOGE / WETH"))
	assert.Len(t, report.Evaluations, 2)
	assert.Len(t, report.Flagged(), 1)
	assert.Empty(t, report.SendErrs)

	// Later cycle, still above threshold: no further notification
	source.set([]store.Pool{pool("eth_0xaaa", "PEPE / WETH", "900%", "40%")}, nil)
	report = s.RunOnce(context.Background())

	assert.Len(t, rec.sent(), 1)
	require.Len(t, report.Evaluations, 1)
	assert.True(t, report.Evaluations[0].Suppressed)
	assert.Empty(t, report.Alerts)
}

func TestRunOnce_NameCollisionSuppressed(t *testing.T) {
	source := &fakeSource{pools: []store.Pool{
		pool("eth_0x111", "MEME / WETH", "300%", "2%"),
		pool("eth_0x222", "MEME / WETH", "500%", "9%"),
	}}
	rec := &recorder{}
	s, _ := newTestScanner(source, rec, clock.NewMock())

	report := s.RunOnce(context.Background())

	require.Len(t, rec.sent(), 1)
	assert.Equal(t, "eth_0x111", rec.sent()[0].Pool.ID)
	assert.True(t, report.Evaluations[1].Suppressed)
}

func TestRunOnce_FetchFailure(t *testing.T) {
	source := &fakeSource{err: &ingest.StatusError{StatusCode: http.StatusServiceUnavailable}}
	rec := &recorder{}
	s, _ := newTestScanner(source, rec, clock.NewMock())

	var report store.CycleReport
	require.NotPanics(t, func() {
		report = s.RunOnce(context.Background())
	})

	assert.Empty(t, rec.sent())
	assert.Empty(t, report.Evaluations)
	assert.ErrorIs(t, report.FetchErr, ingest.ErrFetch)
}

func TestRunOnce_FetchFailureOverHTTP(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	rec := &recorder{}
	client := ingest.NewTrendingClient(server.URL, "eth", time.Second)
	s, _ := newTestScanner(client, rec, clock.NewMock())

	report := s.RunOnce(context.Background())

	assert.Empty(t, rec.sent())
	var statusErr *ingest.StatusError
	require.ErrorAs(t, report.FetchErr, &statusErr)
	assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
}

func TestRunOnce_NumericPercentagesOverHTTP(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data": [
			{"id": "eth_0xaaa", "attributes": {"name": "PEPE / WETH", "volume_usd_change_percentage": 312.5, "price_change_percentage": -4}},
			{"id": "eth_0xbbb", "attributes": {"name": "DOGE / WETH", "volume_usd_change_percentage": 150, "price_change_percentage": "1%"}}
		]}`))
	}))
	defer server.Close()

	rec := &recorder{}
	client := ingest.NewTrendingClient(server.URL, "eth", time.Second)
	s, _ := newTestScanner(client, rec, clock.NewMock())

	report := s.RunOnce(context.Background())

	assert.Empty(t, report.ParseErrs)
	require.Len(t, rec.sent(), 1)
	assert.Equal(t, "PEPE / WETH", rec.sent()[0].Pool.Name)
	assert.Equal(t, 312.5, rec.sent()[0].VolumeChange)
	assert.Equal(t, -4.0, rec.sent()[0].PriceChange)
}

func TestRunOnce_MalformedRecordSkipped(t *testing.T) {
	source := &fakeSource{pools: []store.Pool{
		pool("eth_0x1", "BROKEN / WETH", "", "1%"),
		pool("eth_0x2", "WORSE / WETH", "n/a", "1%"),
		pool("eth_0x3", "GOOD / WETH", "1000%", "3%"),
	}}
	rec := &recorder{}
	s, eval := newTestScanner(source, rec, clock.NewMock())

	report := s.RunOnce(context.Background())

	require.Len(t, report.ParseErrs, 2)
	assert.ErrorIs(t, report.ParseErrs[0], detector.ErrMissingField)
	var fieldErr *detector.FieldError
	assert.ErrorAs(t, report.ParseErrs[1], &fieldErr)

	require.Len(t, rec.sent(), 1)
	assert.Equal(t, "GOOD / WETH", rec.sent()[0].Pool.Name)
	assert.False(t, eval.Notified("BROKEN / WETH"))
}

func TestRunOnce_SendFailureStillMarksNotified(t *testing.T) {
	source := &fakeSource{pools: []store.Pool{pool("eth_0x1", "PEPE / WETH", "300%", "1%")}}
	rec := &recorder{err: notify.ErrNotConfigured}
	s, eval := newTestScanner(source, rec, clock.NewMock())

	report := s.RunOnce(context.Background())

	require.Len(t, report.SendErrs, 1)
	assert.ErrorIs(t, report.SendErrs[0], notify.ErrNotConfigured)
	assert.True(t, eval.Notified("PEPE / WETH"))

	// Not retried on the next cycle
	s.RunOnce(context.Background())
	assert.Len(t, rec.sent(), 1)

	snap := s.tracker.Snapshot()
	assert.Equal(t, int64(0), snap.AlertsSent)
	assert.Equal(t, int64(1), snap.AlertsFailed)
}

func TestRunOnce_OnCycleAndTracker(t *testing.T) {
	source := &fakeSource{pools: []store.Pool{pool("eth_0x1", "PEPE / WETH", "300%", "1%")}}

	var seen []store.CycleReport
	eval := detector.NewEvaluator(2.0)
	s := New(source, eval, &recorder{}, Options{
		Network: "eth",
		Clock:   clock.NewMock(),
		OnCycle: func(r store.CycleReport) { seen = append(seen, r) },
	})

	s.RunOnce(context.Background())

	require.Len(t, seen, 1)
	assert.Len(t, seen[0].Alerts, 1)

	snap := s.tracker.Snapshot()
	assert.Equal(t, int64(1), snap.Cycles)
	assert.Equal(t, int64(1), snap.AlertsSent)
	assert.Equal(t, 1, snap.NotifiedTokens)
}

func TestRun_SleepsIntervalBetweenCycles(t *testing.T) {
	clk := clock.NewMock()
	source := &fakeSource{}

	var cycles atomic.Int32
	eval := detector.NewEvaluator(2.0)
	s := New(source, eval, &recorder{}, Options{
		Network:  "eth",
		Interval: 5 * time.Minute,
		Clock:    clk,
		OnCycle:  func(store.CycleReport) { cycles.Add(1) },
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	// First cycle runs without waiting
	require.Eventually(t, func() bool { return cycles.Load() == 1 }, time.Second, time.Millisecond)

	// Less than the interval: no new cycle
	clk.Add(time.Minute)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), cycles.Load())

	require.Eventually(t, func() bool {
		clk.Add(5 * time.Minute)
		return cycles.Load() >= 3
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRun_StopsOnCancelledContext(t *testing.T) {
	source := &fakeSource{err: errors.New("offline")}
	s, _ := newTestScanner(source, &recorder{}, clock.NewMock())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
	assert.Equal(t, 1, source.calls)
}
