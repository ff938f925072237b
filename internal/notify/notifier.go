// Package notify delivers volume spike alerts over email, WebSocket and the log.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/pumpwatch/engine/internal/store"
)

var (
	// ErrSend is wrapped by every delivery failure.
	ErrSend = errors.New("send alert")
	// ErrNotConfigured is returned when a notifier lacks credentials.
	ErrNotConfigured = errors.New("notifier not configured")
)

// Notifier delivers a single alert.
type Notifier interface {
	Notify(ctx context.Context, alert store.Alert) error
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, alert store.Alert) error

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, alert store.Alert) error {
	return f(ctx, alert)
}

// Fanout delivers every alert to all of its notifiers.
type Fanout []Notifier

// Notify calls each notifier in order and joins their errors.
func (f Fanout) Notify(ctx context.Context, alert store.Alert) error {
	var errs []error
	for _, n := range f {
		if err := n.Notify(ctx, alert); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// sendError wraps err with ErrSend and a channel name.
func sendError(channel string, err error) error {
	return fmt.Errorf("%w via %s: %w", ErrSend, channel, err)
}
