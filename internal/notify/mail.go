package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"github.com/pumpwatch/engine/internal/store"
)

const (
	// DefaultSMTPHost is the mail provider used when none is configured
	DefaultSMTPHost = "smtp.gmail.com"
	// DefaultSMTPPort is the implicit TLS submission port
	DefaultSMTPPort = 465
	// DefaultSendTimeout bounds a whole SMTP session
	DefaultSendTimeout = 30 * time.Second
)

// MailParams contains all parameters needed to initialize a Mail instance.
type MailParams struct {
	SMTPHost string
	SMTPPort int
	From     string
	To       string
	Password string
	Timeout  time.Duration
}

// Mail sends alerts over SMTP with implicit TLS.
type Mail struct {
	host     string
	port     int
	from     string
	to       string
	password string
	timeout  time.Duration

	// tlsConfig is used for the implicit TLS handshake
	tlsConfig *tls.Config
	// dial opens the connection to the server; replaced in tests
	dial      func(ctx context.Context, addr string) (net.Conn, error)
}

// NewMail creates a new Mail notifier.
func NewMail(params MailParams) *Mail {
	if params.SMTPHost == "" {
		params.SMTPHost = DefaultSMTPHost
	}
	if params.SMTPPort == 0 {
		params.SMTPPort = DefaultSMTPPort
	}
	if params.To == "" {
		params.To = params.From
	}
	if params.Timeout == 0 {
		params.Timeout = DefaultSendTimeout
	}

	m := &Mail{
		host:     params.SMTPHost,
		port:     params.SMTPPort,
		from:     params.From,
		to:       params.To,
		password: params.Password,
		timeout:  params.Timeout,
	}
	m.tlsConfig = &tls.Config{
		ServerName: params.SMTPHost,
		MinVersion: tls.VersionTLS12,
	}
	m.dial = m.dialTLS
	return m
}

// Notify composes and sends the alert email. It does not retry.
func (m *Mail) Notify(ctx context.Context, alert store.Alert) error {
	if m.from == "" || m.password == "" {
		return sendError("email", ErrNotConfigured)
	}

	if err := m.send(ctx, ComposeEmail(m.from, m.to, alert)); err != nil {
		return sendError("email", err)
	}

	slog.Info("email_sent", "token", alert.Pool.Name, "to", m.to)
	return nil
}

// send runs one SMTP session: AUTH PLAIN, MAIL, RCPT, DATA, QUIT.
func (m *Mail) send(ctx context.Context, msg []byte) error {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	addr := net.JoinHostPort(m.host, strconv.Itoa(m.port))
	conn, err := m.dial(ctx, addr)
	if err != nil {
		return fmt.Errorf("dial %s failed: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, m.host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake failed: %w", err)
	}
	defer client.Close()

	if err := client.Auth(smtp.PlainAuth("", m.from, m.password, m.host)); err != nil {
		return fmt.Errorf("smtp auth failed: %w", err)
	}
	if err := client.Mail(m.from); err != nil {
		return fmt.Errorf("smtp MAIL FROM failed: %w", err)
	}
	if err := client.Rcpt(m.to); err != nil {
		return fmt.Errorf("smtp RCPT TO failed: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp DATA failed: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		w.Close()
		return fmt.Errorf("smtp write failed: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp message rejected: %w", err)
	}

	return client.Quit()
}

// dialTLS opens an implicit TLS connection to addr.
func (m *Mail) dialTLS(ctx context.Context, addr string) (net.Conn, error) {
	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: m.timeout},
		Config:    m.tlsConfig,
	}
	return dialer.DialContext(ctx, "tcp", addr)
}
