package mailer

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"mime/quotedprintable"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"
)

type recordingSender struct {
	sent []*mail.Msg
	err  error
}

func (s *recordingSender) DialAndSendWithContext(_ context.Context, messages ...*mail.Msg) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, messages...)
	return nil
}

func setupMailerTest(t *testing.T) (*Mailer, *recordingSender) {
	t.Helper()
	s := &recordingSender{}
	m, err := newMailer(s, "LearnHub <no-reply@learnhub.local>", slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return m, s
}

func render(t *testing.T, msg *mail.Msg) string {
	t.Helper()
	var buf bytes.Buffer
	_, err := msg.WriteTo(&buf)
	require.NoError(t, err)
	return buf.String()
}

// renderBody returns the decoded body of a single-part message. Quoted
// printable soft line breaks would otherwise split long lines.
func renderBody(t *testing.T, msg *mail.Msg) string {
	t.Helper()
	raw := render(t, msg)
	_, body, found := strings.Cut(raw, "\r\n\r\n")
	require.True(t, found, "message has no body")
	decoded, err := io.ReadAll(quotedprintable.NewReader(strings.NewReader(body)))
	require.NoError(t, err)
	return string(decoded)
}

func TestSendVerificationEmail(t *testing.T) {
	m, s := setupMailerTest(t)

	err := m.SendVerificationEmail(context.Background(), "jane@example.com", "Jane", "482913", 10*time.Minute)
	require.NoError(t, err)
	require.Len(t, s.sent, 1)

	rcpts, err := s.sent[0].GetRecipients()
	require.NoError(t, err)
	assert.Equal(t, []string{"jane@example.com"}, rcpts)

	assert.Contains(t, render(t, s.sent[0]), "Subject: Verify your email")
	body := renderBody(t, s.sent[0])
	assert.Contains(t, body, "482913")
	assert.Contains(t, body, "Jane")
}

func TestEveryTemplateRenders(t *testing.T) {
	m, s := setupMailerTest(t)
	ctx := context.Background()

	require.NoError(t, m.SendResetPasswordEmail(ctx, "a@example.com", "A", "111111", time.Minute))
	require.NoError(t, m.SendLoginOTPEmail(ctx, "a@example.com", "A", "222222", time.Minute))
	require.Len(t, s.sent, 2)
	assert.Contains(t, render(t, s.sent[1]), "Subject: Your sign-in code")
	assert.Contains(t, renderBody(t, s.sent[0]), "111111")
	assert.Contains(t, renderBody(t, s.sent[1]), "222222")
}

func TestSendFailures(t *testing.T) {
	t.Run("invalid recipient", func(t *testing.T) {
		m, s := setupMailerTest(t)
		err := m.SendVerificationEmail(context.Background(), "not-an-address", "X", "1", time.Minute)
		assert.Error(t, err)
		assert.Empty(t, s.sent)
	})

	t.Run("smtp failure", func(t *testing.T) {
		m, s := setupMailerTest(t)
		s.err = errors.New("connection refused")
		err := m.SendVerificationEmail(context.Background(), "a@example.com", "X", "1", time.Minute)
		assert.ErrorContains(t, err, "connection refused")
	})
}

func TestLogMailer(t *testing.T) {
	ctx := context.Background()

	var buf bytes.Buffer
	m := NewLogMailer(slog.New(slog.NewTextHandler(&buf, nil)), true)
	require.NoError(t, m.SendVerificationEmail(ctx, "ana@example.com", "Ana", "123456", time.Minute))
	assert.Contains(t, buf.String(), "otp=123456")
	assert.Contains(t, buf.String(), templateVerifyEmail)

	buf.Reset()
	m = NewLogMailer(slog.New(slog.NewTextHandler(&buf, nil)), false)
	require.NoError(t, m.SendResetPasswordEmail(ctx, "ana@example.com", "Ana", "654321", time.Minute))
	assert.NotContains(t, buf.String(), "654321")
}
