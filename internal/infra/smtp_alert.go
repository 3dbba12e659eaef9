package infra

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/content_mon/internal/domain"
)

// DefaultSMTPPort is the submission port with STARTTLS.
const DefaultSMTPPort = 587

// SMTPConfig holds the mail server settings for guardian alerts.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// sendMailFunc matches smtp.SendMail.
type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPAlertSender implements domain.AlertSender over SMTP.
type SMTPAlertSender struct {
	config   SMTPConfig
	sendMail sendMailFunc
	now      func() time.Time
	logger   *zap.Logger
}

// NewSMTPAlertSender creates a sender for config.
func NewSMTPAlertSender(config SMTPConfig, logger *zap.Logger) *SMTPAlertSender {
	return newSMTPAlertSenderWithDeps(config, smtp.SendMail, time.Now, logger)
}

func newSMTPAlertSenderWithDeps(config SMTPConfig, send sendMailFunc, now func() time.Time, logger *zap.Logger) *SMTPAlertSender {
	if config.Port == 0 {
		config.Port = DefaultSMTPPort
	}
	if config.From == "" {
		config.From = config.Username
	}
	return &SMTPAlertSender{config: config, sendMail: send, now: now, logger: logger}
}

// SendAlert mails subject and body to the guardian. smtp.SendMail has no
// context support, so a cancelled ctx abandons the send instead of aborting it.
func (s *SMTPAlertSender) SendAlert(ctx context.Context, to, subject, body string) error {
	if s.config.Host == "" {
		return errors.New("smtp host not configured")
	}
	if to == "" {
		return errors.New("no recipient")
	}

	addr := net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
	var auth smtp.Auth
	if s.config.Username != "" {
		auth = smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.Host)
	}
	msg := s.buildMessage(to, subject, body)

	done := make(chan error, 1)
	go func() {
		done <- s.sendMail(addr, auth, s.config.From, []string{to}, msg)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send to %s: %w", addr, err)
		}
		s.logger.Debug("alert mailed", zap.String("server", addr))
		return nil
	case <-ctx.Done():
		return fmt.Errorf("smtp send to %s: %w", addr, ctx.Err())
	}
}

// buildMessage renders an RFC 5322 message with a UTF-8 body and an encoded subject.
func (s *SMTPAlertSender) buildMessage(to, subject, body string) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\n", s.config.From)
	fmt.Fprintf(&buf, "To: %s\r\n", to)
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	fmt.Fprintf(&buf, "Date: %s\r\n", s.now().Format(time.RFC1123Z))
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	buf.WriteString("Content-Transfer-Encoding: 8bit\r\n")
	buf.WriteString("\r\n")
	buf.WriteString(body)
	buf.WriteString("\r\n")
	return buf.Bytes()
}

// Ensure SMTPAlertSender implements domain.AlertSender.
var _ domain.AlertSender = (*SMTPAlertSender)(nil)
