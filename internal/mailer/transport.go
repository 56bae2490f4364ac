package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"time"
)

// Transport delivers one message. Implementations must honour ctx so an
// in-flight delivery can be abandoned promptly on shutdown.
type Transport interface {
	Send(ctx context.Context, m Message) error
}

// SMTPTransport delivers over plain SMTP. The stdlib smtp client has no
// context support, so the connection deadline is derived from ctx to keep
// every send bounded.
type SMTPTransport struct {
	Addr        string // host:port
	DefaultFrom string
}

func NewSMTPTransport(addr, defaultFrom string) *SMTPTransport {
	return &SMTPTransport{Addr: addr, DefaultFrom: defaultFrom}
}

func (t *SMTPTransport) Send(ctx context.Context, m Message) error {
	from := m.From
	if from == "" {
		from = t.DefaultFrom
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(30 * time.Second)
	}

	conn, err := (&net.Dialer{Deadline: deadline}).DialContext(ctx, "tcp", t.Addr)
	if err != nil {
		return fmt.Errorf("mailer: dial %s: %w", t.Addr, err)
	}
	defer conn.Close()
	if err := conn.SetDeadline(deadline); err != nil {
		return fmt.Errorf("mailer: set deadline: %w", err)
	}

	host, _, err := net.SplitHostPort(t.Addr)
	if err != nil {
		return fmt.Errorf("mailer: bad addr %q: %w", t.Addr, err)
	}
	c, err := smtp.NewClient(conn, host)
	if err != nil {
		return fmt.Errorf("mailer: smtp handshake with %s: %w", t.Addr, err)
	}
	defer c.Close()

	if err := c.Mail(from); err != nil {
		return fmt.Errorf("mailer: MAIL FROM %s: %w", from, err)
	}
	if err := c.Rcpt(m.To); err != nil {
		return fmt.Errorf("mailer: RCPT TO %s: %w", m.To, err)
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("mailer: DATA: %w", err)
	}
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n", from, m.To, m.Subject, m.Body)
	if _, err := w.Write([]byte(msg)); err != nil {
		return fmt.Errorf("mailer: write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("mailer: close body: %w", err)
	}
	return c.Quit()
}

// LogTransport writes messages to the log instead of a mail server. Used in
// local development when no SMTP server is configured.
type LogTransport struct{}

func (LogTransport) Send(ctx context.Context, m Message) error {
	slog.InfoContext(ctx, "email (log transport)",
		"to", m.To,
		"subject", m.Subject,
		"body_len", len(m.Body),
	)
	return nil
}
