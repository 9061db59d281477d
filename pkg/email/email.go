package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"net"
	"net/mail"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultTimeout bounds a whole SMTP session when Sender.Timeout is zero.
const DefaultTimeout = 30 * time.Second

// Message is one outgoing plain-text email.
type Message struct {
	FromName string
	To       string
	Subject  string
	Body     string
}

// Sender delivers mail through an authenticated SMTP relay.
type Sender struct {
	Server   string
	Port     int
	Username string
	Password string
	Timeout  time.Duration
}

// Send delivers m and returns the Message-ID it was sent with. The session is
// abandoned when ctx ends or Timeout elapses, whichever comes first.
func (s Sender) Send(ctx context.Context, m Message) (string, error) {
	to, err := mail.ParseAddress(stripNewlines(m.To))
	if err != nil {
		return "", fmt.Errorf("invalid email address: %q", m.To)
	}

	messageID := fmt.Sprintf("<%s@%s>", uuid.NewString(), s.Server)
	msg := s.compose(m, to, messageID, time.Now())

	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	addr := net.JoinHostPort(s.Server, strconv.Itoa(s.Port))
	dialer := net.Dialer{Deadline: deadline}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return "", fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	if err := conn.SetDeadline(deadline); err != nil {
		_ = conn.Close()
		return "", err
	}

	c, err := smtp.NewClient(conn, s.Server)
	if err != nil {
		_ = conn.Close()
		return "", fmt.Errorf("smtp handshake with %s failed: %w", addr, err)
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: s.Server}); err != nil {
			return "", fmt.Errorf("starttls failed: %w", err)
		}
	}
	if ok, _ := c.Extension("AUTH"); ok {
		if err := c.Auth(smtp.PlainAuth("", s.Username, s.Password, s.Server)); err != nil {
			return "", fmt.Errorf("smtp auth failed: %w", err)
		}
	}
	if err := c.Mail(s.Username); err != nil {
		return "", err
	}
	if err := c.Rcpt(to.Address); err != nil {
		return "", err
	}
	w, err := c.Data()
	if err != nil {
		return "", err
	}
	if _, err := w.Write(msg); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}
	if err := c.Quit(); err != nil {
		return "", err
	}
	return messageID, nil
}

// compose renders the message with every header value on a single line and the
// subject MIME-encoded.
func (s Sender) compose(m Message, to *mail.Address, messageID string, now time.Time) []byte {
	from := mail.Address{Name: stripNewlines(m.FromName), Address: s.Username}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from.String())
	fmt.Fprintf(&b, "To: %s\r\n", to.String())
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", stripNewlines(m.Subject)))
	fmt.Fprintf(&b, "Date: %s\r\n", now.Format(time.RFC1123Z))
	fmt.Fprintf(&b, "Message-ID: %s\r\n", messageID)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	b.WriteString(m.Body)
	b.WriteString("\r\n")
	return []byte(b.String())
}

func stripNewlines(v string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(v)
}
