// Package mail sends notification emails over SMTP.
package mail

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/uch-creative-hub/booking-api/internal/config"
)

// SendFunc matches smtp.SendMail.
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPMailer delivers plain-text mail.  Without complete credentials it
// only logs the message ([MOCK EMAIL]) so development setups work without
// a mail server.
type SMTPMailer struct {
	cfg  config.SMTPConfig
	send SendFunc
}

func NewSMTPMailer(cfg config.SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, send: smtp.SendMail}
}

func (m *SMTPMailer) configured() bool {
	c := m.cfg
	return c.Host != "" && c.Port != "" && c.Username != "" && c.Password != ""
}

// Send delivers subject/body to a single recipient.
func (m *SMTPMailer) Send(to, subject, body string) error {
	to = safe(to)
	if to == "" {
		return fmt.Errorf("mail: empty recipient")
	}
	if !m.configured() {
		logrus.WithFields(logrus.Fields{"to": to, "subject": subject}).Info("[MOCK EMAIL] smtp not configured")
		return nil
	}

	from := fmt.Sprintf("%s <%s>", safe(m.cfg.FromName), m.cfg.Username)
	var sb strings.Builder
	fmt.Fprintf(&sb, "From: %s\r\n", from)
	fmt.Fprintf(&sb, "To: %s\r\n", to)
	fmt.Fprintf(&sb, "Subject: %s\r\n", safe(subject))
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	sb.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))

	auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	addr := m.cfg.Host + ":" + m.cfg.Port
	if err := m.send(addr, auth, m.cfg.Username, []string{to}, []byte(sb.String())); err != nil {
		return fmt.Errorf("mail: send to %s: %w", to, err)
	}
	return nil
}

// safe strips header-injection line breaks.
func safe(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "\r", " ")
	return strings.ReplaceAll(s, "\n", " ")
}
