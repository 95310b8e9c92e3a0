package email

import (
	"context"

	"github.com/redmonkez12/storefront-users/internal/config"
	"github.com/redmonkez12/storefront-users/internal/logging"
)

// LogSender writes messages to the log instead of delivering them.
// Used in development when no SMTP relay is configured.
type LogSender struct {
	logger *logging.Logger
}

func NewLogSender(logger *logging.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	s.logger.Info("email not delivered (log delivery)",
		"to", msg.To,
		"subject", msg.Subject,
		"text", msg.Text,
	)
	return nil
}

// NewSender returns the sender for EMAIL_DELIVERY. The redis outbox is built
// separately because it needs a client; for DeliveryRedis this returns the
// SMTP sender the worker delivers through.
func NewSender(cfg config.EmailConfig, logger *logging.Logger) Sender {
	switch cfg.Delivery {
	case config.DeliverySMTP, config.DeliveryRedis:
		return NewSMTPSender(cfg)
	default:
		return NewLogSender(logger)
	}
}
