// Package mailer доставляет пользователям коды подтверждения.
package mailer

import (
	"context"

	"go.uber.org/zap"
)

// LogMailer вместо отправки письма записывает код в журнал.
type LogMailer struct {
	logger *zap.Logger
}

// NewLogMailer создаёт LogMailer.
func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

// SendVerificationCode записывает выданный код в журнал.
func (m *LogMailer) SendVerificationCode(ctx context.Context, email, code string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.logger.Info("verification code issued", zap.String("email", email), zap.String("code", code))
	return nil
}
