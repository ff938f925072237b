package ui

import (
	"fmt"
	"time"

	"github.com/pumpwatch/engine/internal/metrics"
	"github.com/rivo/tview"
)

// StatsDashboardView displays scanner health and counters.
type StatsDashboardView struct {
	textView *tview.TextView
}

// NewStatsDashboardView creates a new stats dashboard view.
func NewStatsDashboardView() *StatsDashboardView {
	textView := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(false)

	textView.SetTitle(" Stats Dashboard ").SetBorder(true)

	return &StatsDashboardView{
		textView: textView,
	}
}

// Widget returns the tview primitive.
func (v *StatsDashboardView) Widget() tview.Primitive {
	return v.textView
}

// Update refreshes the stats display.
func (v *StatsDashboardView) Update(snapshot metrics.MetricsSnapshot) {
	v.textView.Clear()
	fmt.Fprint(v.textView, renderStats(snapshot, time.Now()))
}

// renderStats builds the dashboard text for a snapshot.
func renderStats(snapshot metrics.MetricsSnapshot, now time.Time) string {
	apiStatus := "[green]ok[-]"
	if snapshot.LastFetchFailed {
		apiStatus = "[red]failing[-]"
	}
	if snapshot.Cycles == 0 {
		apiStatus = "waiting"
	}

	return fmt.Sprintf(`[yellow]System Status[-]
Uptime: %s
GeckoTerminal: %s
Last Poll: %s (%s)

[yellow]Scan Stats[-]
Cycles: %d
Pools Evaluated: %d

[yellow]Spikes[-]
Alerts Sent: %d
Send Failed: %d
Already Notified: %d
Notified Tokens: %d

[yellow]Errors[-]
Fetch: %d
Parse: %d
Send: %d
`,
		formatDuration(snapshot.Uptime),
		apiStatus,
		formatTimeAgo(snapshot.LastPoll, now),
		snapshot.LastCycleDuration.Round(time.Millisecond),
		snapshot.Cycles,
		snapshot.PoolsEvaluated,
		snapshot.AlertsSent,
		snapshot.AlertsFailed,
		snapshot.SpikesSuppressed,
		snapshot.NotifiedTokens,
		snapshot.ErrorsByStage[metrics.StageFetch],
		snapshot.ErrorsByStage[metrics.StageParse],
		snapshot.ErrorsByStage[metrics.StageSend],
	)
}

// formatDuration formats a duration in human-readable form.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%.0fm", d.Minutes())
	}
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh %dm", hours, minutes)
}

// formatTimeAgo formats a time as "X ago".
func formatTimeAgo(t, now time.Time) string {
	if t.IsZero() {
		return "never"
	}

	elapsed := now.Sub(t)

	if elapsed < time.Minute {
		return fmt.Sprintf("%.0fs ago", elapsed.Seconds())
	}
	if elapsed < time.Hour {
		return fmt.Sprintf("%.0fm ago", elapsed.Minutes())
	}
	if elapsed < 24*time.Hour {
		return fmt.Sprintf("%.0fh ago", elapsed.Hours())
	}
	return fmt.Sprintf("%.0fd ago", elapsed.Hours()/24)
}
