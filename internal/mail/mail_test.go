package mail_test

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"go-payroll/internal/mail"
	"go-payroll/internal/shared/config"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func smtpConfig(attempts int) config.SMTPConfig {
	return config.SMTPConfig{
		Host:        "smtp.example.test",
		Port:        587,
		From:        "payroll@example.test",
		MaxAttempts: attempts,
	}
}

func TestSMTPDispatcher_RetriesThenSucceeds(t *testing.T) {
	calls := 0
	var sent []byte
	send := func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		calls++
		assert.Equal(t, "smtp.example.test:587", addr)
		if calls < 3 {
			return errors.New("421 service not available")
		}
		sent = msg
		return nil
	}

	d := mail.NewDispatcherWithSender(smtpConfig(3), send, time.Millisecond, zap.NewNop())
	err := d.Send(context.Background(), mail.Message{
		To:      []string{"ada@example.test"},
		Subject: "Payslip",
		Body:    "<p>paid</p>",
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Contains(t, string(sent), "To: ada@example.test")
	assert.Contains(t, string(sent), "<p>paid</p>")
}

func TestSMTPDispatcher_GivesUpAfterMaxAttempts(t *testing.T) {
	calls := 0
	send := func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		calls++
		return errors.New("550 mailbox unavailable")
	}

	d := mail.NewDispatcherWithSender(smtpConfig(3), send, time.Millisecond, zap.NewNop())
	err := d.Send(context.Background(), mail.Message{To: []string{"ada@example.test"}, Subject: "Payslip"})

	assert.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Contains(t, err.Error(), "550 mailbox unavailable")
}

func TestSMTPDispatcher_NotConfigured(t *testing.T) {
	calls := 0
	send := func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		calls++
		return nil
	}

	cfg := smtpConfig(3)
	cfg.Host = ""
	d := mail.NewDispatcherWithSender(cfg, send, time.Millisecond, zap.NewNop())

	assert.NoError(t, d.Send(context.Background(), mail.Message{To: []string{"ada@example.test"}}))
	assert.Equal(t, 0, calls)
}

func TestSMTPDispatcher_Attachments(t *testing.T) {
	var sent string
	send := func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		sent = string(msg)
		return nil
	}

	d := mail.NewDispatcherWithSender(smtpConfig(1), send, time.Millisecond, zap.NewNop())
	err := d.Send(context.Background(), mail.Message{
		To:          []string{"ada@example.test"},
		Subject:     "Report",
		Body:        "see attached",
		Attachments: []mail.Attachment{{Filename: "report.csv", ContentType: "text/csv", Data: []byte("a,b")}},
	})

	assert.NoError(t, err)
	assert.True(t, strings.Contains(sent, "multipart/mixed"))
	assert.Contains(t, sent, `filename="report.csv"`)
	assert.Contains(t, sent, "YSxi")
}
