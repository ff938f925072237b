// Package ui provides terminal user interface components.
package ui

import (
	"context"
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/pumpwatch/engine/internal/metrics"
	"github.com/pumpwatch/engine/internal/store"
	"github.com/rivo/tview"
)

// App is the main TUI application.
type App struct {
	app    *tview.Application
	layout *tview.Flex

	// Views
	trendingPools  *TrendingPoolsView
	signalAlerter  *SignalAlerterView
	cycleLog       *CycleLogView
	statsDashboard *StatsDashboardView

	// Data
	reportChan     <-chan store.CycleReport
	metricsTracker *metrics.MetricsTracker
	refreshRate    time.Duration

	// State
	ctx    context.Context
	cancel context.CancelFunc
}

// Options configures the dashboard.
type Options struct {
	Network      string
	ThresholdPct float64
	RefreshRate  time.Duration
}

// NewApp creates a new TUI application.
func NewApp(reportChan <-chan store.CycleReport, tracker *metrics.MetricsTracker, opts Options) *App {
	ctx, cancel := context.WithCancel(context.Background())

	if opts.RefreshRate <= 0 {
		opts.RefreshRate = 500 * time.Millisecond
	}

	app := &App{
		app:            tview.NewApplication(),
		reportChan:     reportChan,
		metricsTracker: tracker,
		refreshRate:    opts.RefreshRate,
		ctx:            ctx,
		cancel:         cancel,
	}

	// Initialize views
	app.trendingPools = NewTrendingPoolsView(opts.Network, opts.ThresholdPct)
	app.signalAlerter = NewSignalAlerterView()
	app.cycleLog = NewCycleLogView()
	app.statsDashboard = NewStatsDashboardView()

	app.setupLayout()
	app.setupKeyboard()

	return app
}

// setupLayout creates the 4-panel layout.
func (a *App) setupLayout() {
	// Top row: Trending Pools (left) | Volume Spikes (right)
	topRow := tview.NewFlex().
		AddItem(a.trendingPools.Widget(), 0, 2, false).
		AddItem(a.signalAlerter.Widget(), 0, 1, false)

	// Bottom row: Scan Cycles (left) | Stats Dashboard (right)
	bottomRow := tview.NewFlex().
		AddItem(a.cycleLog.Widget(), 0, 2, false).
		AddItem(a.statsDashboard.Widget(), 0, 1, false)

	a.layout = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(topRow, 0, 3, false).
		AddItem(bottomRow, 0, 2, false)

	a.app.SetRoot(a.layout, true)
}

// setupKeyboard configures keyboard shortcuts.
func (a *App) setupKeyboard() {
	a.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyCtrlC:
			a.Stop()
			return nil
		case tcell.KeyRune:
			switch event.Rune() {
			case 'q', 'Q':
				a.Stop()
				return nil
			case 'r', 'R':
				a.refresh()
				return nil
			}
		}
		return event
	})
}

// Run starts the TUI application (blocking).
func (a *App) Run() error {
	go a.processReports()
	go a.updateLoop()

	if err := a.app.Run(); err != nil {
		return fmt.Errorf("app run failed: %w", err)
	}

	return nil
}

// Stop gracefully stops the application.
func (a *App) Stop() {
	a.cancel()
	a.app.Stop()
}

// Done is closed once the application has been stopped.
func (a *App) Done() <-chan struct{} {
	return a.ctx.Done()
}

// processReports reads completed cycles and updates the feed views.
func (a *App) processReports() {
	for {
		select {
		case <-a.ctx.Done():
			return
		case report, ok := <-a.reportChan:
			if !ok {
				return
			}

			a.app.QueueUpdateDraw(func() {
				a.cycleLog.AddReport(report)
				for _, alert := range report.Alerts {
					a.signalAlerter.AddAlert(alert)
				}
			})
		}
	}
}

// updateLoop periodically refreshes views with metrics data.
func (a *App) updateLoop() {
	ticker := time.NewTicker(a.refreshRate)
	defer ticker.Stop()

	for {
		select {
		case <-a.ctx.Done():
			return
		case <-ticker.C:
			snapshot := a.metricsTracker.Snapshot()

			a.app.QueueUpdateDraw(func() {
				a.statsDashboard.Update(snapshot)
				a.trendingPools.Update(snapshot)
			})
		}
	}
}

// refresh manually refreshes all views.
func (a *App) refresh() {
	snapshot := a.metricsTracker.Snapshot()

	a.app.QueueUpdateDraw(func() {
		a.trendingPools.Update(snapshot)
		a.signalAlerter.Refresh()
		a.cycleLog.Refresh()
		a.statsDashboard.Update(snapshot)
	})
}
