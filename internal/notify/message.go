package notify

import (
	"fmt"
	"mime"
	"strings"
	"time"

	"github.com/pumpwatch/engine/internal/store"
)

// TimestampLayout is the layout of the alert time in the email body.
const TimestampLayout = "2006-01-02 15:04:05"

// Subject returns the email subject line for an alert.
func Subject(alert store.Alert) string {
	return fmt.Sprintf("🚀 [MEME ALERT] %s pumping: +%.0f%% volume", alert.Pool.Name, alert.VolumeChange)
}

// Body returns the plain-text email body for an alert.
func Body(alert store.Alert) string {
	return fmt.Sprintf(`
Token: %s
Volume Spike: %.0f%%
Price Change: %.2f%%
Chart: %s

Time: %s UTC
`,
		alert.Pool.Name,
		alert.VolumeChange,
		alert.PriceChange,
		alert.ChartURL,
		alert.DetectedAt.UTC().Format(TimestampLayout),
	)
}

// ComposeEmail builds an RFC 5322 message with CRLF line endings.
func ComposeEmail(from, to string, alert store.Alert) []byte {
	var b strings.Builder

	headers := [][2]string{
		{"From", from},
		{"To", to},
		{"Subject", mime.QEncoding.Encode("utf-8", Subject(alert))},
		{"Date", alert.DetectedAt.UTC().Format(time.RFC1123Z)},
		{"MIME-Version", "1.0"},
		{"Content-Type", `text/plain; charset="utf-8"`},
		{"Content-Transfer-Encoding", "8bit"},
	}
	for _, h := range headers {
		fmt.Fprintf(&b, "%s: %s\r\n", h[0], h[1])
	}
	b.WriteString("\r\n")

	body := strings.ReplaceAll(Body(alert), "\r\n", "\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))

	return []byte(b.String())
}
