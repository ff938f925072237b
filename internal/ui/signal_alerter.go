package ui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/pumpwatch/engine/internal/store"
	"github.com/rivo/tview"
)

// SignalAlerterView displays the volume spike alerts sent so far.
type SignalAlerterView struct {
	list     *tview.List
	alerts   []store.Alert
	maxItems int
}

// NewSignalAlerterView creates a new signal alerter view.
func NewSignalAlerterView() *SignalAlerterView {
	list := tview.NewList().
		ShowSecondaryText(true)

	list.SetTitle(" 🚀 Volume Spikes ").SetBorder(true)
	list.SetMainTextColor(tcell.ColorWhite)

	v := &SignalAlerterView{
		list:     list,
		alerts:   make([]store.Alert, 0, 50),
		maxItems: 50,
	}
	v.rebuildList()
	return v
}

// Widget returns the tview primitive.
func (v *SignalAlerterView) Widget() tview.Primitive {
	return v.list
}

// AddAlert adds a new alert to the top of the list.
func (v *SignalAlerterView) AddAlert(alert store.Alert) {
	v.alerts = append([]store.Alert{alert}, v.alerts...)

	if len(v.alerts) > v.maxItems {
		v.alerts = v.alerts[:v.maxItems]
	}

	v.rebuildList()
}

// Refresh redraws the list.
func (v *SignalAlerterView) Refresh() {
	v.rebuildList()
}

// rebuildList rebuilds the entire list from alerts.
func (v *SignalAlerterView) rebuildList() {
	v.list.Clear()

	if len(v.alerts) == 0 {
		v.list.AddItem("No spikes detected yet", "", 0, nil)
		v.list.SetTitle(" 🚀 Volume Spikes ")
		return
	}

	for _, alert := range v.alerts {
		mainText, secondaryText := formatAlert(alert)
		v.list.AddItem(mainText, secondaryText, 0, nil)
	}

	v.list.SetTitle(fmt.Sprintf(" 🚀 Volume Spikes (%d) ", len(v.alerts)))
}

// formatAlert formats an alert for display.
func formatAlert(alert store.Alert) (string, string) {
	timeStr := alert.DetectedAt.UTC().Format("15:04:05")

	mainText := fmt.Sprintf("%s 🚀 %s [yellow]+%.0f%%[-]", timeStr, alert.Pool.Name, alert.VolumeChange)
	secondaryText := fmt.Sprintf("Price: %+.2f%% | %s", alert.PriceChange, truncateAddress(alert.Pool.Address))

	return mainText, secondaryText
}

// truncateAddress truncates a pool address for display.
func truncateAddress(addr string) string {
	if len(addr) <= 16 {
		return addr
	}
	return addr[:10] + "..." + addr[len(addr)-4:]
}
