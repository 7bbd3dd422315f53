package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"classroomhub/internal/authz"
	"classroomhub/internal/database"
	"classroomhub/internal/metrics"
	"classroomhub/internal/models"
	"classroomhub/internal/notify"
	"classroomhub/internal/repository"
	"classroomhub/internal/validation"
)

const notifyTimeout = 30 * time.Second

// MessageInput describes a broadcast message
type MessageInput struct {
	Subject string `json:"subject" validate:"required,max=200"`
	Body    string `json:"body" validate:"required,max=10000"`
}

// MessageService manages broadcast messages and their email notifications
type MessageService struct {
	db       *database.DB
	messages *repository.MessageRepository
	users    *repository.UserRepository
	notifier notify.Notifier
	metrics  *metrics.Metrics
	logger   *zap.Logger

	wg sync.WaitGroup
}

// NewMessageService creates a new message service. m may be nil.
func NewMessageService(db *database.DB, notifier notify.Notifier, m *metrics.Metrics, logger *zap.Logger) *MessageService {
	return &MessageService{
		db:       db,
		messages: repository.NewMessageRepository(db),
		users:    repository.NewUserRepository(db),
		notifier: notifier,
		metrics:  m,
		logger:   logger,
	}
}

// SendMessage stores a broadcast from the acting user and emails it to the
// other parents in the background. A failed email does not fail the send.
func (s *MessageService) SendMessage(ctx context.Context, actor authz.Actor, input MessageInput) (*models.Message, error) {
	input.Subject = strings.TrimSpace(input.Subject)
	input.Body = strings.TrimSpace(input.Body)
	if err := validation.Struct(input); err != nil {
		return nil, err
	}

	var message *models.Message
	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		messages := repository.NewMessageRepository(tx)
		created, err := messages.CreateMessage(ctx, input.Subject, input.Body, actor.UserID)
		if err != nil {
			return err
		}
		message, err = messages.GetMessage(ctx, created.ID)
		return err
	})
	if errors.Is(err, database.ErrForeignKeyViolation) {
		return nil, notFound("sender")
	}
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.wg.Add(1)
		go s.notify(context.WithoutCancel(ctx), *message)
	}
	return message, nil
}

func (s *MessageService) notify(ctx context.Context, message models.Message) {
	defer s.wg.Done()

	ctx, cancel := context.WithTimeout(ctx, notifyTimeout)
	defer cancel()

	result := "success"
	defer func() {
		if s.metrics != nil {
			s.metrics.Notifications.WithLabelValues(result).Inc()
		}
	}()

	sender, err := s.users.GetUserByID(ctx, message.SenderID)
	if err != nil || sender == nil {
		result = "error"
		s.logger.Warn("broadcast sender not found", zap.Int64("message_id", message.ID), zap.Error(err))
		return
	}
	recipients, err := s.users.ListUsers(ctx)
	if err != nil {
		result = "error"
		s.logger.Error("failed to list broadcast recipients", zap.Int64("message_id", message.ID), zap.Error(err))
		return
	}

	if err := s.notifier.NotifyBroadcast(ctx, &message, sender, recipients); err != nil {
		result = "error"
		s.logger.Error("failed to send broadcast notification", zap.Int64("message_id", message.ID), zap.Error(err))
	}
}

// Wait blocks until background notifications have finished
func (s *MessageService) Wait() {
	s.wg.Wait()
}

// GetMessage retrieves a message by ID
func (s *MessageService) GetMessage(ctx context.Context, id int64) (*models.Message, error) {
	message, err := s.messages.GetMessage(ctx, id)
	if err != nil {
		return nil, err
	}
	if message == nil {
		return nil, notFound("message")
	}
	return message, nil
}

// ListMessages returns every message, newest first
func (s *MessageService) ListMessages(ctx context.Context) ([]models.Message, error) {
	return s.messages.ListMessages(ctx, 0)
}

// ListRecent returns the newest limit messages
func (s *MessageService) ListRecent(ctx context.Context, limit int) ([]models.Message, error) {
	if limit <= 0 {
		return []models.Message{}, nil
	}
	return s.messages.ListMessages(ctx, limit)
}

// DeleteMessage deletes a message. Only its sender or an admin may.
func (s *MessageService) DeleteMessage(ctx context.Context, actor authz.Actor, messageID int64) error {
	return s.db.WithTx(ctx, func(tx *database.Tx) error {
		messages := repository.NewMessageRepository(tx)

		message, err := messages.GetMessage(ctx, messageID)
		if err != nil {
			return err
		}
		if message == nil {
			return notFound("message")
		}
		if !actor.CanMutate(message) {
			return ErrForbidden
		}

		_, err = messages.DeleteMessage(ctx, messageID)
		return err
	})
}
