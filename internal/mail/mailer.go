// Package mail sends transactional account email over SMTP. When mail is
// disabled the links are logged instead, which keeps local development free
// of an SMTP dependency.
package mail

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/musicrec/musicrec/internal/config"
)

// Mailer delivers verification and password reset email.
type Mailer struct {
	cfg         config.MailConfig
	frontendURL string
	log         zerolog.Logger
}

// New creates a Mailer. frontendURL is the base for links in the mail body.
func New(cfg config.MailConfig, frontendURL string, log zerolog.Logger) *Mailer {
	return &Mailer{
		cfg:         cfg,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		log:         log,
	}
}

// SendVerification mails an email verification link.
func (m *Mailer) SendVerification(to, token string) error {
	link := fmt.Sprintf("%s/verify-email?token=%s", m.frontendURL, token)
	body := fmt.Sprintf(
		"Welcome!\r\n\r\nConfirm your email address by opening this link:\r\n%s\r\n", link)
	return m.send(to, "Verify your email", body, link)
}

// SendPasswordReset mails a password reset link.
func (m *Mailer) SendPasswordReset(to, token string) error {
	link := fmt.Sprintf("%s/reset-password?token=%s", m.frontendURL, token)
	body := fmt.Sprintf(
		"A password reset was requested for your account.\r\n\r\n"+
			"Open this link to choose a new password:\r\n%s\r\n\r\n"+
			"If you did not request this, ignore this mail.\r\n", link)
	return m.send(to, "Reset your password", body, link)
}

func (m *Mailer) send(to, subject, body, link string) error {
	if !m.cfg.Enabled {
		m.log.Info().Str("to", to).Str("subject", subject).Str("link", link).
			Msg("mail disabled, logging link instead")
		return nil
	}

	msg := buildMessage(m.cfg.From, to, subject, body)
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{to}, msg); err != nil {
		return fmt.Errorf("sending mail to %s: %w", to, err)
	}
	m.log.Debug().Str("to", to).Str("subject", subject).Msg("sent mail")
	return nil
}

// buildMessage assembles an RFC 5322 plain-text message.
func buildMessage(from, to, subject, body string) []byte {
	var msg strings.Builder
	msg.WriteString("From: " + from + "\r\n")
	msg.WriteString("To: " + to + "\r\n")
	msg.WriteString("Subject: " + subject + "\r\n")
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)
	return []byte(msg.String())
}
