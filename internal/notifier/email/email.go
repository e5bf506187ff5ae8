// Package email implements an SMTP-based email notifier
package email

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/newthinker/edgeval/internal/notifier"
)

// Email implements the Notifier interface for SMTP email
type Email struct {
	host     string
	port     int
	username string
	password string
	from     string
	to       []string
	send     func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// New creates a new Email notifier
func New(host string, port int, username, password, from string, to []string) *Email {
	return &Email{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
		to:       to,
		send:     smtp.SendMail,
	}
}

func (e *Email) Name() string { return "email" }

func (e *Email) Send(ctx context.Context, v notifier.Verdict) error {
	if e.host == "" || e.from == "" || len(e.to) == 0 {
		return fmt.Errorf("email: host, from, and to are required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	subject := "edgeval " + v.Headline()
	return e.sendEmail(subject, formatVerdict(v))
}

func formatVerdict(v notifier.Verdict) string {
	var sb strings.Builder

	sb.WriteString(v.Headline() + "\n\n")
	fmt.Fprintf(&sb, "Strategy:     %s\n", v.Strategy)
	fmt.Fprintf(&sb, "Symbols:      %s\n", strings.Join(v.Symbols, ", "))
	fmt.Fprintf(&sb, "Trades:       %d\n", v.TotalTrades)
	fmt.Fprintf(&sb, "Win rate:     %.2f%%\n", v.WinRate)
	fmt.Fprintf(&sb, "p-value:      %.4f\n", v.PValue)
	fmt.Fprintf(&sb, "Std devs:     %.2f\n", v.StdDevs)
	fmt.Fprintf(&sb, "Degradation:  %.2f%%\n", v.DegradationPct)
	if v.EffectSize != "" {
		fmt.Fprintf(&sb, "Effect size:  %s\n", v.EffectSize)
	}
	if v.ReportKey != "" {
		fmt.Fprintf(&sb, "Report:       %s\n", v.ReportKey)
	}
	if !v.GeneratedAt.IsZero() {
		fmt.Fprintf(&sb, "Generated:    %s\n", v.GeneratedAt.UTC().Format(time.RFC3339))
	}

	return sb.String()
}

func (e *Email) sendEmail(subject, body string) error {
	addr := fmt.Sprintf("%s:%d", e.host, e.port)

	var auth smtp.Auth
	if e.username != "" {
		auth = smtp.PlainAuth("", e.username, e.password, e.host)
	}

	msg := fmt.Sprintf("From: %s\r\n"+
		"To: %s\r\n"+
		"Subject: %s\r\n"+
		"MIME-Version: 1.0\r\n"+
		"Content-Type: text/plain; charset=UTF-8\r\n"+
		"\r\n"+
		"%s",
		e.from,
		strings.Join(e.to, ","),
		subject,
		body,
	)

	if err := e.send(addr, auth, e.from, e.to, []byte(msg)); err != nil {
		return fmt.Errorf("email: %w", err)
	}
	return nil
}
