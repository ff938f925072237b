package ui

import (
	"fmt"
	"time"

	"github.com/pumpwatch/engine/internal/store"
	"github.com/rivo/tview"
)

var cycleHeaders = []string{"Time", "Pools", "Alerts", "Parse Err", "Send Err", "Took"}

// CycleLogView displays a scrolling feed of completed scan cycles.
type CycleLogView struct {
	table   *tview.Table
	reports []store.CycleReport
	maxRows int
}

// NewCycleLogView creates a new cycle log view.
func NewCycleLogView() *CycleLogView {
	table := tview.NewTable().
		SetBorders(false).
		SetFixed(1, 0)

	table.SetTitle(" Scan Cycles ").SetBorder(true)

	v := &CycleLogView{
		table:   table,
		reports: make([]store.CycleReport, 0, 100),
		maxRows: 100,
	}
	v.updateTable()
	return v
}

// Widget returns the tview primitive.
func (v *CycleLogView) Widget() tview.Primitive {
	return v.table
}

// AddReport adds a completed cycle to the top of the feed.
func (v *CycleLogView) AddReport(report store.CycleReport) {
	v.reports = append([]store.CycleReport{report}, v.reports...)

	if len(v.reports) > v.maxRows {
		v.reports = v.reports[:v.maxRows]
	}

	v.updateTable()
}

// Refresh redraws the table.
func (v *CycleLogView) Refresh() {
	v.updateTable()
}

// updateTable updates the table with current reports.
func (v *CycleLogView) updateTable() {
	v.table.Clear()

	for col, header := range cycleHeaders {
		cell := tview.NewTableCell(header).
			SetTextColor(tview.Styles.SecondaryTextColor).
			SetAlign(tview.AlignLeft).
			SetSelectable(false)
		v.table.SetCell(0, col, cell)
	}

	for i, report := range v.reports {
		row := i + 1

		pools := fmt.Sprintf("%d", len(report.Evaluations))
		if report.FetchErr != nil {
			pools = "[red]fetch failed[-]"
		}

		cells := []string{
			report.StartedAt.Format("15:04:05"),
			pools,
			fmt.Sprintf("%d", len(report.Alerts)),
			fmt.Sprintf("%d", len(report.ParseErrs)),
			fmt.Sprintf("%d", len(report.SendErrs)),
			report.Duration.Round(10 * time.Millisecond).String(),
		}

		for col, text := range cells {
			v.table.SetCell(row, col, tview.NewTableCell(text).SetAlign(tview.AlignLeft))
		}
	}

	v.table.SetTitle(fmt.Sprintf(" Scan Cycles (%d) ", len(v.reports)))
}
