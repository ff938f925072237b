// Package detector decides which trending pools are volume spikes worth an alert.
package detector

import (
	"fmt"

	"github.com/pumpwatch/engine/internal/store"
)

// Evaluator applies the volume spike rule to trending pools.
type Evaluator struct {
	threshold float64 // ratio, 2.0 means +200%
	notified  *NotifiedSet
}

// NewEvaluator creates a new Evaluator with an empty notified set.
func NewEvaluator(threshold float64) *Evaluator {
	return &Evaluator{
		threshold: threshold,
		notified:  NewNotifiedSet(),
	}
}

// Threshold returns the configured ratio.
func (e *Evaluator) Threshold() float64 {
	return e.threshold
}

// MinVolumeChange returns the volume change percentage a pool must reach.
func (e *Evaluator) MinVolumeChange() float64 {
	return e.threshold * 100
}

// Evaluate parses a pool and checks it against the threshold and the notified set.
// A parse failure is returned in Evaluation.Err and never flags the pool.
func (e *Evaluator) Evaluate(pool store.Pool) store.Evaluation {
	eval := store.Evaluation{Pool: pool}

	// A blank name cannot be deduplicated, so it is treated as missing
	if pool.ID == "" {
		eval.Err = &FieldError{Field: "id", Err: ErrMissingField}
		return eval
	}
	if pool.Name == "" {
		eval.Err = &FieldError{Field: "name", Err: ErrMissingField}
		return eval
	}

	volume, err := parseField("volume_usd_change_percentage", pool.VolumeChange)
	if err != nil {
		eval.Err = fmt.Errorf("pool %s: %w", pool.ID, err)
		return eval
	}
	price, err := parseField("price_change_percentage", pool.PriceChange)
	if err != nil {
		eval.Err = fmt.Errorf("pool %s: %w", pool.ID, err)
		return eval
	}

	eval.VolumeChange = volume
	eval.PriceChange = price

	// IF volume_change >= threshold * 100 AND name not yet alerted THEN ALERT
	if volume >= e.MinVolumeChange() {
		if e.notified.Contains(pool.Name) {
			eval.Suppressed = true
		} else {
			eval.Flagged = true
		}
	}

	return eval
}

// MarkNotified records that name triggered an alert.
func (e *Evaluator) MarkNotified(name string) bool {
	return e.notified.Add(name)
}

// Notified reports whether name already triggered an alert.
func (e *Evaluator) Notified(name string) bool {
	return e.notified.Contains(name)
}

// NotifiedCount returns the number of names alerted so far.
func (e *Evaluator) NotifiedCount() int {
	return e.notified.Len()
}

// NotifiedNames returns the alerted names in the order they were first seen.
func (e *Evaluator) NotifiedNames() []string {
	return e.notified.Names()
}
