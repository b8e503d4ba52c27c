package mailer

import (
	"context"

	"github.com/yamdb/yamdb-api/pkg/logger"
	"go.uber.org/zap"
)

// LogMailer writes messages to the application log instead of sending them.
// Development only: the body carrying the code is logged at debug level.
type LogMailer struct {
	from string
}

func NewLogMailer(from string) *LogMailer {
	return &LogMailer{from: from}
}

func (m *LogMailer) SendConfirmationCode(ctx context.Context, email, username, code string) error {
	msg := confirmationMessage(m.from, email, username, code)
	logger.Log.Info("Outbound email",
		zap.String("from", msg.From),
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
	)
	logger.Log.Debug("Outbound email body",
		zap.String("to", msg.To),
		zap.String("body", msg.Body),
	)
	return nil
}

func (m *LogMailer) Close() error {
	return nil
}
