package smtp

import (
	"context"
	"errors"
	"net/smtp"
	"testing"

	"github.com/go-identity-worker/internal/config"
	"github.com/go-identity-worker/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSend_MultipartMessage(t *testing.T) {
	m := NewMailer(&config.Config{SMTPHost: "localhost", SMTPPort: "1025"})
	var (
		gotAddr string
		gotAuth smtp.Auth
		gotTo   []string
		gotMsg  string
	)
	m.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotAuth, gotTo, gotMsg = addr, a, to, string(msg)
		return nil
	}

	err := m.Send(context.Background(), domain.Email{
		From:    "noreply@cdkinsights.dev",
		To:      "a@x.com",
		ReplyTo: "support@cdkinsights.dev",
		Subject: "Welcome to CDK Insights - Your Account is Ready!",
		HTML:    "<p>Hi Ada,</p>",
		Text:    "Hi Ada,",
	})

	require.NoError(t, err)
	assert.Equal(t, "localhost:1025", gotAddr)
	assert.Nil(t, gotAuth)
	assert.Equal(t, []string{"a@x.com"}, gotTo)
	assert.Contains(t, gotMsg, "Reply-To: support@cdkinsights.dev\r\n")
	assert.Contains(t, gotMsg, "Content-Type: multipart/alternative; boundary=")
	assert.Contains(t, gotMsg, "text/plain; charset=UTF-8")
	assert.Contains(t, gotMsg, "<p>Hi Ada,</p>")
}

func TestSend_Error(t *testing.T) {
	m := NewMailer(&config.Config{SMTPHost: "localhost", SMTPPort: "1025", SMTPUsername: "u", SMTPPassword: "p"})
	m.send = func(string, smtp.Auth, string, []string, []byte) error { return errors.New("connection refused") }

	err := m.Send(context.Background(), domain.Email{From: "f@x.com", To: "a@x.com", Subject: "s"})

	assert.ErrorContains(t, err, "connection refused")
}
