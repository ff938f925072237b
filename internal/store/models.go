// Package store provides the data models shared across the engine.
package store

import "time"

// Pool represents a single trending pool record from GeckoTerminal.
type Pool struct {
	// ID is the upstream identifier (e.g. "eth_0xabc...")
	ID string

	// Address is the last path segment of ID, used for chart links
	Address string

	// Name is the pool display name (e.g. "PEPE / WETH")
	Name string

	// VolumeChange is the raw volume change percentage (e.g. "250%")
	VolumeChange string

	// PriceChange is the raw price change percentage (e.g. "-3.5%")
	PriceChange string
}

// Signal types for detection
const (
	SignalVolumeSpike = "VOLUME_SPIKE"
)

// Evaluation is the outcome of checking one pool during a scan cycle.
type Evaluation struct {
	Pool         Pool
	VolumeChange float64
	PriceChange  float64

	// Flagged is true when the pool crossed the threshold and was not yet notified
	Flagged bool

	// Suppressed is true when the pool crossed the threshold but its name
	// already triggered an alert earlier in this process
	Suppressed bool

	// Err holds the parse failure for this record, if any
	Err error
}

// Alert represents a notification to be sent for a volume spike.
type Alert struct {
	Pool         Pool
	SignalType   string
	Network      string
	VolumeChange float64
	PriceChange  float64
	ChartURL     string
	DetectedAt   time.Time
}

// CycleReport summarizes one fetch-evaluate-notify pass.
type CycleReport struct {
	StartedAt   time.Time
	Duration    time.Duration
	Evaluations []Evaluation
	Alerts      []Alert
	FetchErr    error
	ParseErrs   []error
	SendErrs    []error
}

// Flagged returns the evaluations that produced an alert.
func (r CycleReport) Flagged() []Evaluation {
	var out []Evaluation
	for _, e := range r.Evaluations {
		if e.Flagged {
			out = append(out, e)
		}
	}
	return out
}
