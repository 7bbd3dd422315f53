// Package notify delivers broadcast messages to parents outside the app.
package notify

import (
	"context"

	"go.uber.org/zap"

	"classroomhub/internal/models"
)

// Notifier delivers a broadcast message to its recipients
type Notifier interface {
	NotifyBroadcast(ctx context.Context, msg *models.Message, sender *models.User, recipients []models.User) error
}

// Options configures email delivery
type Options struct {
	AWSRegion  string
	FromEmail  string
	FromName   string
	AppBaseURL string
}

// New returns an SES notifier when a sender address is configured and a
// log-only notifier otherwise
func New(ctx context.Context, opts Options, logger *zap.Logger) (Notifier, error) {
	if opts.FromEmail == "" {
		logger.Info("email notifications disabled: SES_FROM_EMAIL not configured")
		return NewLogNotifier(logger), nil
	}
	return NewSESNotifier(ctx, opts, logger)
}

// LogNotifier records broadcasts in the log instead of sending them
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a log-only notifier
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// NotifyBroadcast logs the broadcast
func (n *LogNotifier) NotifyBroadcast(_ context.Context, msg *models.Message, sender *models.User, recipients []models.User) error {
	n.logger.Info("broadcast message not emailed",
		zap.Int64("message_id", msg.ID),
		zap.Int64("sender_id", sender.ID),
		zap.Int("recipients", len(recipients)),
	)
	return nil
}
