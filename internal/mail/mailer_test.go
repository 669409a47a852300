package mail

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/musicrec/musicrec/internal/config"
)

func TestBuildMessage(t *testing.T) {
	msg := string(buildMessage("noreply@musicrec.test", "user@example.com", "Verify your email", "hello\r\n"))

	assert.Contains(t, msg, "From: noreply@musicrec.test\r\n")
	assert.Contains(t, msg, "To: user@example.com\r\n")
	assert.Contains(t, msg, "Subject: Verify your email\r\n")
	assert.True(t, strings.HasSuffix(msg, "\r\n\r\nhello\r\n"), "headers and body separated by a blank line")
}

func TestDisabledMailerSendsNothing(t *testing.T) {
	m := New(config.MailConfig{Enabled: false}, "http://localhost:5173/", zerolog.Nop())

	// No SMTP server is configured, so a real send attempt would fail.
	assert.NoError(t, m.SendVerification("user@example.com", "tok123"))
	assert.NoError(t, m.SendPasswordReset("user@example.com", "tok456"))
}
