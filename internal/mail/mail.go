package mail

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"net/smtp"
	"net/textproto"
	"strings"
	"time"

	"go-payroll/internal/shared/config"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

type Message struct {
	To          []string
	Subject     string
	Body        string
	Attachments []Attachment
}

type Dispatcher interface {
	Send(ctx context.Context, msg Message) error
}

// SendFunc has the signature of smtp.SendMail.
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type smtpDispatcher struct {
	cfg         config.SMTPConfig
	send        SendFunc
	initialWait time.Duration
	logger      *zap.Logger
}

// NewSMTPDispatcher sends mail through cfg.Host, retrying up to cfg.MaxAttempts
// times with exponential backoff. With no host configured, Send only logs.
func NewSMTPDispatcher(cfg config.SMTPConfig, logger ...*zap.Logger) Dispatcher {
	return newSMTPDispatcher(cfg, smtp.SendMail, 500*time.Millisecond, logger...)
}

// NewDispatcherWithSender is NewSMTPDispatcher with a custom transport and
// first retry delay.
func NewDispatcherWithSender(cfg config.SMTPConfig, send SendFunc, initialWait time.Duration, logger ...*zap.Logger) Dispatcher {
	return newSMTPDispatcher(cfg, send, initialWait, logger...)
}

func newSMTPDispatcher(cfg config.SMTPConfig, send SendFunc, initialWait time.Duration, logger ...*zap.Logger) Dispatcher {
	l := zap.L().Named("mail.dispatcher")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0]
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &smtpDispatcher{cfg: cfg, send: send, initialWait: initialWait, logger: l}
}

func (d *smtpDispatcher) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return errors.New("mail: no recipients")
	}
	if d.cfg.Host == "" {
		d.logger.Warn("SMTP not configured, skipping email send",
			zap.Strings("to", msg.To),
			zap.String("subject", msg.Subject),
		)
		return nil
	}

	raw, err := buildMessage(d.cfg.From, msg)
	if err != nil {
		return err
	}

	var auth smtp.Auth
	if d.cfg.Username != "" {
		auth = smtp.PlainAuth("", d.cfg.Username, d.cfg.Password, d.cfg.Host)
	}
	addr := fmt.Sprintf("%s:%d", d.cfg.Host, d.cfg.Port)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = d.initialWait
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(d.cfg.MaxAttempts-1)), ctx)

	attempt := 0
	err = backoff.Retry(func() error {
		attempt++
		sendErr := d.send(addr, auth, d.cfg.From, msg.To, raw)
		if sendErr != nil {
			d.logger.Warn("email send attempt failed",
				zap.Strings("to", msg.To),
				zap.Int("attempt", attempt),
				zap.Error(sendErr),
			)
		}
		return sendErr
	}, policy)
	if err != nil {
		return fmt.Errorf("mail: send failed after %d attempts: %w", attempt, err)
	}

	d.logger.Info("email sent",
		zap.Strings("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.Int("attempt", attempt),
	)
	return nil
}

func buildMessage(from string, msg Message) ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", strings.Join(msg.To, ", "))
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	buf.WriteString("MIME-Version: 1.0\r\n")

	if len(msg.Attachments) == 0 {
		buf.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
		buf.WriteString(msg.Body)
		return buf.Bytes(), nil
	}

	mw := multipart.NewWriter(&buf)
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", mw.Boundary())

	body, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type": {"text/html; charset=\"UTF-8\""},
	})
	if err != nil {
		return nil, err
	}
	if _, err := body.Write([]byte(msg.Body)); err != nil {
		return nil, err
	}

	for _, a := range msg.Attachments {
		contentType := a.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		part, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {contentType},
			"Content-Transfer-Encoding": {"base64"},
			"Content-Disposition":       {fmt.Sprintf("attachment; filename=%q", a.Filename)},
		})
		if err != nil {
			return nil, err
		}
		if _, err := part.Write([]byte(base64.StdEncoding.EncodeToString(a.Data))); err != nil {
			return nil, err
		}
	}

	if err := mw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
