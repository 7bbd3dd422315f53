package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"classroomhub/internal/database"
	"classroomhub/internal/models"
)

const messageSelect = `
	SELECT m.id, m.subject, m.body, m.sender_id, u.name, m.is_broadcast, m.created_at
	FROM messages m
	JOIN users u ON u.id = m.sender_id
`

// MessageRepository handles database operations for messages
type MessageRepository struct {
	db database.DBTX
}

// NewMessageRepository creates a new message repository
func NewMessageRepository(db database.DBTX) *MessageRepository {
	return &MessageRepository{db: db}
}

// CreateMessage inserts a broadcast message
func (r *MessageRepository) CreateMessage(ctx context.Context, subject, body string, senderID int64) (*models.Message, error) {
	query := "INSERT INTO messages (subject, body, sender_id, is_broadcast) VALUES (?, ?, ?, ?)"
	id, err := r.db.ExecReturningID(ctx, query, subject, body, senderID, true)
	if err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}

	return &models.Message{
		ID:          id,
		Subject:     subject,
		Body:        body,
		SenderID:    senderID,
		IsBroadcast: true,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

func scanMessage(row interface{ Scan(...any) error }, m *models.Message) error {
	return row.Scan(&m.ID, &m.Subject, &m.Body, &m.SenderID, &m.SenderName, &m.IsBroadcast, &m.CreatedAt)
}

// GetMessage retrieves a message by ID
func (r *MessageRepository) GetMessage(ctx context.Context, id int64) (*models.Message, error) {
	message := &models.Message{}
	err := scanMessage(r.db.QueryRowContext(ctx, messageSelect+" WHERE m.id = ?", id), message)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return message, nil
}

// ListMessages retrieves messages newest first. A limit of zero or less
// returns every message.
func (r *MessageRepository) ListMessages(ctx context.Context, limit int) ([]models.Message, error) {
	query := messageSelect + " ORDER BY m.created_at DESC, m.id DESC"
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	messages := []models.Message{}
	for rows.Next() {
		var m models.Message
		if err := scanMessage(rows, &m); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// DeleteMessage deletes a message and reports whether it existed
func (r *MessageRepository) DeleteMessage(ctx context.Context, id int64) (bool, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM messages WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("failed to delete message: %w", err)
	}
	return affected(result)
}
