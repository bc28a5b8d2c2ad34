package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	"hrportal_backend/internal/logger"
	"hrportal_backend/internal/metrics"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"gopkg.in/gomail.v2"
)

// dialer - часть gomail.Dialer, нужная отправителю
type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPSender отправляет письма через gomail, защищен circuit breaker
type SMTPSender struct {
	config    *SMTPConfig
	templates *TemplateManager
	dialer    dialer
	breaker   *gobreaker.CircuitBreaker
}

func NewSMTPSender(config *SMTPConfig, templates *TemplateManager) (*SMTPSender, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid email config: %w", err)
	}

	d := gomail.NewDialer(config.Host, config.Port, config.Username, config.Password)
	if config.UseTLS {
		d.TLSConfig = &tls.Config{ServerName: config.Host}
	}
	return newSMTPSender(config, templates, d), nil
}

func newSMTPSender(config *SMTPConfig, templates *TemplateManager, d dialer) *SMTPSender {
	openFor := config.Timeout
	if openFor <= 0 {
		openFor = 30 * time.Second
	}
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "smtp",
		MaxRequests: 1,
		Timeout:     openFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	})

	return &SMTPSender{
		config:    config,
		templates: templates,
		dialer:    d,
		breaker:   breaker,
	}
}

// Send рендерит шаблон и отправляет письмо
func (s *SMTPSender) Send(ctx context.Context, emailType Type, recipient string, vars map[string]string) (*Result, error) {
	if strings.TrimSpace(recipient) == "" {
		return &Result{Success: false}, fmt.Errorf("no recipient specified")
	}
	if err := ctx.Err(); err != nil {
		return &Result{Success: false}, err
	}

	if vars == nil {
		vars = map[string]string{}
	}
	if _, ok := vars["portal_url"]; !ok && s.config.PortalURL != "" {
		vars["portal_url"] = s.config.PortalURL
	}

	subject, html, err := s.templates.Render(emailType, vars)
	if err != nil {
		return &Result{Success: false}, err
	}

	messageID := fmt.Sprintf("<%s@%s>", uuid.NewString(), s.config.Host)
	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.config.FromEmail, s.config.FromName)
	m.SetHeader("To", recipient)
	m.SetHeader("Subject", subject)
	m.SetHeader("Message-ID", messageID)
	m.SetBody("text/html", html)

	_, err = s.breaker.Execute(func() (interface{}, error) {
		return nil, s.dialer.DialAndSend(m)
	})
	if err != nil {
		metrics.RecordEmail(string(emailType), "failed")
		return &Result{Success: false}, fmt.Errorf("smtp send: %w", err)
	}

	metrics.RecordEmail(string(emailType), "sent")
	return &Result{Success: true, MessageID: messageID}, nil
}

// LogSender используется, когда email выключен: письмо только логируется
type LogSender struct {
	templates *TemplateManager
}

func NewLogSender(templates *TemplateManager) *LogSender {
	return &LogSender{templates: templates}
}

func (s *LogSender) Send(ctx context.Context, emailType Type, recipient string, vars map[string]string) (*Result, error) {
	subject, _, err := s.templates.Render(emailType, vars)
	if err != nil {
		return &Result{Success: false}, err
	}
	id := uuid.NewString()
	logger.CtxInfo(ctx, "email delivery disabled, logging only",
		"type", emailType, "recipient", recipient, "subject", subject, "message_id", id)
	metrics.RecordEmail(string(emailType), "logged")
	return &Result{Success: true, MessageID: id}, nil
}
