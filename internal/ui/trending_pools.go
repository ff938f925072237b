package ui

import (
	"fmt"
	"sort"

	"github.com/gdamore/tcell/v2"
	"github.com/pumpwatch/engine/internal/metrics"
	"github.com/rivo/tview"
)

var trendingHeaders = []string{"Pool", "Volume", "Price", "Status"}

// TrendingPoolsView displays the pools returned by the latest scan.
type TrendingPoolsView struct {
	table        *tview.Table
	thresholdPct float64
}

// NewTrendingPoolsView creates a new trending pools view.
func NewTrendingPoolsView(network string, thresholdPct float64) *TrendingPoolsView {
	table := tview.NewTable().
		SetBorders(false).
		SetFixed(1, 0)

	table.SetTitle(fmt.Sprintf(" Trending Pools (%s, spike >= %.0f%%) ", network, thresholdPct)).SetBorder(true)

	v := &TrendingPoolsView{
		table:        table,
		thresholdPct: thresholdPct,
	}
	v.setHeader()
	return v
}

// Widget returns the tview primitive.
func (v *TrendingPoolsView) Widget() tview.Primitive {
	return v.table
}

// Update refreshes the table from the latest scan.
func (v *TrendingPoolsView) Update(snapshot metrics.MetricsSnapshot) {
	v.table.Clear()
	v.setHeader()

	pools := snapshot.LatestPools
	if len(pools) == 0 {
		cell := tview.NewTableCell("No data yet...").
			SetAlign(tview.AlignCenter).
			SetExpansion(1)
		v.table.SetCell(1, 0, cell)
		return
	}

	// Largest volume change first
	sort.SliceStable(pools, func(i, j int) bool {
		return pools[i].VolumeChange > pools[j].VolumeChange
	})

	for i, pool := range pools {
		row := i + 1

		name := pool.Name
		if name == "" {
			name = pool.PoolID
		}
		if len(name) > 28 {
			name = name[:25] + "..."
		}

		volume := "-"
		price := "-"
		if pool.Status != metrics.StatusError {
			volume = fmt.Sprintf("%+.0f%%", pool.VolumeChange)
			price = fmt.Sprintf("%+.2f%%", pool.PriceChange)
		}

		v.table.SetCell(row, 0, tview.NewTableCell(name).SetAlign(tview.AlignLeft).SetExpansion(1))
		v.table.SetCell(row, 1, tview.NewTableCell(volume).
			SetAlign(tview.AlignRight).
			SetTextColor(v.volumeColor(pool.VolumeChange)))
		v.table.SetCell(row, 2, tview.NewTableCell(price).
			SetAlign(tview.AlignRight).
			SetTextColor(changeColor(pool.PriceChange)))
		v.table.SetCell(row, 3, tview.NewTableCell(pool.Status).
			SetAlign(tview.AlignLeft).
			SetTextColor(statusColor(pool.Status)))
	}
}

func (v *TrendingPoolsView) setHeader() {
	for col, header := range trendingHeaders {
		cell := tview.NewTableCell(header).
			SetTextColor(tview.Styles.SecondaryTextColor).
			SetAlign(tview.AlignLeft).
			SetSelectable(false)
		v.table.SetCell(0, col, cell)
	}
}

// volumeColor highlights pools at or above the spike threshold.
func (v *TrendingPoolsView) volumeColor(change float64) tcell.Color {
	if change >= v.thresholdPct {
		return tcell.ColorYellow
	}
	return tcell.ColorWhite
}

func changeColor(change float64) tcell.Color {
	switch {
	case change > 0:
		return tcell.ColorGreen
	case change < 0:
		return tcell.ColorRed
	default:
		return tcell.ColorWhite
	}
}

func statusColor(status string) tcell.Color {
	switch status {
	case metrics.StatusAlert:
		return tcell.ColorRed
	case metrics.StatusSuppressed:
		return tcell.ColorBlue
	case metrics.StatusError:
		return tcell.ColorOrange
	default:
		return tcell.ColorGray
	}
}
