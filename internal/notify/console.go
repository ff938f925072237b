package notify

import (
	"context"
	"log/slog"

	"github.com/pumpwatch/engine/internal/store"
)

// Console logs alerts instead of delivering them.
type Console struct {
	logger *slog.Logger
}

// NewConsole creates a Console notifier. A nil logger uses slog.Default().
func NewConsole(logger *slog.Logger) *Console {
	if logger == nil {
		logger = slog.Default()
	}
	return &Console{logger: logger}
}

// Notify writes the alert as a single log line.
func (c *Console) Notify(_ context.Context, alert store.Alert) error {
	c.logger.Info("alert",
		"subject", Subject(alert),
		"token", alert.Pool.Name,
		"volume_change_pct", alert.VolumeChange,
		"price_change_pct", alert.PriceChange,
		"chart", alert.ChartURL,
	)
	return nil
}
