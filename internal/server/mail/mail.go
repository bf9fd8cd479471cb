// Package mail delivers reminder emails through the owner's own SMTP account.
package mail

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/mailreminder/internal/common"
	"github.com/dmitrijs2005/mailreminder/internal/logging"
)

// Credentials authenticate the sending account.
type Credentials struct {
	Username string
	Password string
}

// Message is a plain-text email.
type Message struct {
	From    string
	To      []string
	Subject string
	Body    string
}

// Sender delivers one message. Implementations wrap delivery failures in
// common.ErrorSendFailed.
type Sender interface {
	Send(ctx context.Context, creds Credentials, msg Message) error
}

// SMTPSender submits mail to a single SMTP relay, upgrading to TLS when the
// server offers STARTTLS and authenticating with PLAIN.
type SMTPSender struct {
	Host    string
	Port    int
	Timeout time.Duration

	// TLSConfig overrides the STARTTLS settings; nil verifies against Host.
	TLSConfig *tls.Config
}

func NewSMTPSender(host string, port int, timeout time.Duration) *SMTPSender {
	return &SMTPSender{Host: host, Port: port, Timeout: timeout}
}

func (s *SMTPSender) Send(ctx context.Context, creds Credentials, msg Message) error {
	if len(msg.To) == 0 {
		return fmt.Errorf("%w: no recipients", common.ErrorSendFailed)
	}
	if err := s.send(ctx, creds, msg); err != nil {
		return fmt.Errorf("%w: %w", common.ErrorSendFailed, err)
	}
	return nil
}

func (s *SMTPSender) send(ctx context.Context, creds Credentials, msg Message) error {
	addr := net.JoinHostPort(s.Host, strconv.Itoa(s.Port))

	d := net.Dialer{Timeout: s.Timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else if s.Timeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(s.Timeout))
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	c, err := smtp.NewClient(conn, s.Host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("greeting: %w", err)
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		cfg := s.TLSConfig
		if cfg == nil {
			cfg = &tls.Config{ServerName: s.Host}
		}
		if err := c.StartTLS(cfg); err != nil {
			return fmt.Errorf("starttls: %w", err)
		}
	}

	if err := c.Auth(smtp.PlainAuth("", creds.Username, creds.Password, s.Host)); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	if err := c.Mail(msg.From); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	for _, rcpt := range msg.To {
		if err := c.Rcpt(rcpt); err != nil {
			return fmt.Errorf("rcpt %s: %w", rcpt, err)
		}
	}

	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("data: %w", err)
	}
	if _, err := w.Write(Compose(msg, time.Now())); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("data close: %w", err)
	}

	// the message is accepted once DATA completes
	_ = c.Quit()
	return nil
}

// Compose renders msg as an RFC 5322 text/plain message with CRLF line
// endings.
func Compose(msg Message, date time.Time) []byte {
	var b bytes.Buffer

	fmt.Fprintf(&b, "From: %s\r\n", msg.From)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(msg.To, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	fmt.Fprintf(&b, "Date: %s\r\n", date.Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")

	body := strings.ReplaceAll(msg.Body, "\r\n", "\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	b.WriteString("\r\n")

	return b.Bytes()
}

// ErrNoTransport is returned by LogSender. It wraps common.ErrorSendFailed
// so the reminder stays pending until a mail server is configured.
var ErrNoTransport = fmt.Errorf("%w: no smtp host configured", common.ErrorSendFailed)

// LogSender only logs what it would send and reports the message as not
// delivered. It stands in for SMTP when no host is configured.
type LogSender struct {
	logger logging.Logger
}

func NewLogSender(logger logging.Logger) *LogSender {
	return &LogSender{logger: logger.With("module", "mail")}
}

func (s *LogSender) Send(ctx context.Context, creds Credentials, msg Message) error {
	s.logger.Info(ctx, "mail not sent, no smtp host configured",
		"from", msg.From, "to", strings.Join(msg.To, ","), "subject", msg.Subject)
	return ErrNoTransport
}

// NewSender returns an SMTPSender for host, or a LogSender when host is empty.
func NewSender(host string, port int, timeout time.Duration, logger logging.Logger) Sender {
	if host == "" {
		return NewLogSender(logger)
	}
	return NewSMTPSender(host, port, timeout)
}
