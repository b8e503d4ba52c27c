// Package mailer delivers confirmation codes to users through one of the
// configured transports.
package mailer

import (
	"context"
	"fmt"
	"time"

	"github.com/yamdb/yamdb-api/internal/config"
)

const (
	TransportLog   = "log"
	TransportSMTP  = "smtp"
	TransportRedis = "redis"
)

// Mailer sends confirmation codes out of band.
type Mailer interface {
	SendConfirmationCode(ctx context.Context, email, username, code string) error
	Close() error
}

// Message is a rendered outbound email.
type Message struct {
	From     string    `json:"from"`
	To       string    `json:"to"`
	Subject  string    `json:"subject"`
	Body     string    `json:"body"`
	QueuedAt time.Time `json:"queued_at"`
}

const confirmationSubject = "YaMDb confirmation code"

func confirmationMessage(from, to, username, code string) Message {
	return Message{
		From:    from,
		To:      to,
		Subject: confirmationSubject,
		Body: fmt.Sprintf(
			"Hello, %s!\n\nYour confirmation code is %s.\nExchange it for an access token at /api/v1/auth/token.\n",
			username, code,
		),
		QueuedAt: time.Now().UTC(),
	}
}

// New builds the transport selected by MAIL_TRANSPORT.
func New(cfg *config.Config) (Mailer, error) {
	switch cfg.MailTransport {
	case "", TransportLog:
		if cfg.IsProduction() {
			return nil, fmt.Errorf("MAIL_TRANSPORT=log cannot deliver codes in production; use smtp or redis")
		}
		return NewLogMailer(cfg.MailFrom), nil
	case TransportSMTP:
		if cfg.SMTPHost == "" {
			return nil, fmt.Errorf("MAIL_TRANSPORT=smtp requires SMTP_HOST")
		}
		return NewSMTPMailer(SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.MailFrom,
		}), nil
	case TransportRedis:
		if cfg.RedisURL == "" {
			return nil, fmt.Errorf("MAIL_TRANSPORT=redis requires REDIS_URL")
		}
		return NewRedisOutbox(cfg.RedisURL, cfg.MailFrom)
	}
	return nil, fmt.Errorf("unsupported MAIL_TRANSPORT %q", cfg.MailTransport)
}
