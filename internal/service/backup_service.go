package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"classroomhub/internal/database"
	"classroomhub/internal/models"
)

// BackupVersion is written into every export
const BackupVersion = "1.0"

// ErrDatabaseNotEmpty is returned when importing into a database that
// already has users
var ErrDatabaseNotEmpty = errors.New("database is not empty")

// BackupData represents the complete database backup structure
type BackupData struct {
	Version       string               `json:"version"`
	ExportedAt    time.Time            `json:"exported_at"`
	DatabaseType  string               `json:"database_type"`
	Users         []UserBackup         `json:"users"`
	Classrooms    []ClassroomBackup    `json:"classrooms"`
	Children      []ChildBackup        `json:"children"`
	Relationships []RelationshipBackup `json:"relationships"`
	Events        []EventBackup        `json:"events"`
	Messages      []MessageBackup      `json:"messages"`
}

// UserBackup represents a user record for backup
type UserBackup struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	Name         string    `json:"name"`
	IsAdmin      bool      `json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ClassroomBackup represents a classroom record for backup
type ClassroomBackup struct {
	ID              int64     `json:"id"`
	SchoolYearStart int       `json:"school_year_start"`
	Name            string    `json:"name"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ChildBackup represents a child record for backup
type ChildBackup struct {
	ID          int64     `json:"id"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	Birthdate   string    `json:"birthdate"`
	ClassroomID int64     `json:"classroom_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// RelationshipBackup represents a guardian link for backup
type RelationshipBackup struct {
	UserID           int64     `json:"user_id"`
	ChildID          int64     `json:"child_id"`
	RelationshipType string    `json:"relationship_type"`
	IsPrimaryContact bool      `json:"is_primary_contact"`
	CreatedAt        time.Time `json:"created_at"`
}

// EventBackup represents a calendar event for backup
type EventBackup struct {
	ID                int64     `json:"id"`
	Title             string    `json:"title"`
	Description       string    `json:"description"`
	Date              string    `json:"date"`
	EventType         string    `json:"event_type"`
	CreatedBy         int64     `json:"created_by"`
	SnackDutyParentID *int64    `json:"snack_duty_parent_id"`
	CreatedAt         time.Time `json:"created_at"`
}

// MessageBackup represents a broadcast message for backup
type MessageBackup struct {
	ID          int64     `json:"id"`
	Subject     string    `json:"subject"`
	Body        string    `json:"body"`
	SenderID    int64     `json:"sender_id"`
	IsBroadcast bool      `json:"is_broadcast"`
	CreatedAt   time.Time `json:"created_at"`
}

// BackupService handles database backup and restore operations. Backups are
// portable across the supported databases.
type BackupService struct {
	db     *database.DB
	logger *zap.Logger
}

// NewBackupService creates a new backup service
func NewBackupService(db *database.DB, logger *zap.Logger) *BackupService {
	return &BackupService{db: db, logger: logger}
}

// Export writes every table as indented JSON
func (s *BackupService) Export(ctx context.Context, w io.Writer) (*BackupData, error) {
	backup := &BackupData{
		Version:      BackupVersion,
		ExportedAt:   time.Now().UTC(),
		DatabaseType: s.db.GetDialect().DriverName(),
	}

	steps := []struct {
		name string
		fn   func(context.Context, *BackupData) error
	}{
		{"users", s.exportUsers},
		{"classrooms", s.exportClassrooms},
		{"children", s.exportChildren},
		{"relationships", s.exportRelationships},
		{"events", s.exportEvents},
		{"messages", s.exportMessages},
	}
	for _, step := range steps {
		if err := step.fn(ctx, backup); err != nil {
			return nil, fmt.Errorf("failed to export %s: %w", step.name, err)
		}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(backup); err != nil {
		return nil, fmt.Errorf("failed to encode backup: %w", err)
	}

	s.logger.Info("database exported",
		zap.Int("users", len(backup.Users)),
		zap.Int("classrooms", len(backup.Classrooms)),
		zap.Int("children", len(backup.Children)),
		zap.Int("relationships", len(backup.Relationships)),
		zap.Int("events", len(backup.Events)),
		zap.Int("messages", len(backup.Messages)),
	)
	return backup, nil
}

// Import restores a backup into an empty database in a single transaction
func (s *BackupService) Import(ctx context.Context, r io.Reader) (*BackupData, error) {
	var backup BackupData
	if err := json.NewDecoder(r).Decode(&backup); err != nil {
		return nil, fmt.Errorf("failed to decode backup: %w", err)
	}
	if backup.Version != BackupVersion {
		return nil, fmt.Errorf("unsupported backup version %q", backup.Version)
	}
	s.logger.Info("importing backup", zap.String("version", backup.Version), zap.Time("exported_at", backup.ExportedAt))

	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		var count int
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count); err != nil {
			return fmt.Errorf("failed to count users: %w", err)
		}
		if count > 0 {
			return ErrDatabaseNotEmpty
		}

		// Import in order of dependencies
		if err := importUsers(ctx, tx, backup.Users); err != nil {
			return err
		}
		if err := importClassrooms(ctx, tx, backup.Classrooms); err != nil {
			return err
		}
		if err := importChildren(ctx, tx, backup.Children); err != nil {
			return err
		}
		if err := importRelationships(ctx, tx, backup.Relationships); err != nil {
			return err
		}
		if err := importEvents(ctx, tx, backup.Events); err != nil {
			return err
		}
		if err := importMessages(ctx, tx, backup.Messages); err != nil {
			return err
		}
		return resetSequences(ctx, tx)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("database import completed", zap.Int("users", len(backup.Users)))
	return &backup, nil
}

func (s *BackupService) exportUsers(ctx context.Context, backup *BackupData) error {
	rows, err := s.db.QueryContext(ctx, "SELECT id, email, password_hash, name, is_admin, created_at, updated_at FROM users ORDER BY id")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var u UserBackup
		if err := rows.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.IsAdmin, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return err
		}
		backup.Users = append(backup.Users, u)
	}
	return rows.Err()
}

func (s *BackupService) exportClassrooms(ctx context.Context, backup *BackupData) error {
	rows, err := s.db.QueryContext(ctx, "SELECT id, school_year_start, name, created_at, updated_at FROM classrooms ORDER BY id")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var c ClassroomBackup
		var name sql.NullString
		if err := rows.Scan(&c.ID, &c.SchoolYearStart, &name, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return err
		}
		c.Name = name.String
		backup.Classrooms = append(backup.Classrooms, c)
	}
	return rows.Err()
}

func (s *BackupService) exportChildren(ctx context.Context, backup *BackupData) error {
	rows, err := s.db.QueryContext(ctx, "SELECT id, first_name, last_name, birthdate, classroom_id, created_at, updated_at FROM children ORDER BY id")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var c ChildBackup
		var birthdate string
		if err := rows.Scan(&c.ID, &c.FirstName, &c.LastName, &birthdate, &c.ClassroomID, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return err
		}
		date, err := models.ScanDate(birthdate)
		if err != nil {
			return fmt.Errorf("child %d: %w", c.ID, err)
		}
		c.Birthdate = models.FormatDate(date)
		backup.Children = append(backup.Children, c)
	}
	return rows.Err()
}

func (s *BackupService) exportRelationships(ctx context.Context, backup *BackupData) error {
	rows, err := s.db.QueryContext(ctx, "SELECT user_id, child_id, relationship_type, is_primary_contact, created_at FROM child_relationships ORDER BY id")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var r RelationshipBackup
		if err := rows.Scan(&r.UserID, &r.ChildID, &r.RelationshipType, &r.IsPrimaryContact, &r.CreatedAt); err != nil {
			return err
		}
		backup.Relationships = append(backup.Relationships, r)
	}
	return rows.Err()
}

func (s *BackupService) exportEvents(ctx context.Context, backup *BackupData) error {
	rows, err := s.db.QueryContext(ctx, "SELECT id, title, description, date, event_type, created_by, snack_duty_parent_id, created_at FROM events ORDER BY id")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var e EventBackup
		var description sql.NullString
		var date string
		var snackDuty sql.NullInt64
		if err := rows.Scan(&e.ID, &e.Title, &description, &date, &e.EventType, &e.CreatedBy, &snackDuty, &e.CreatedAt); err != nil {
			return err
		}
		parsed, err := models.ScanDate(date)
		if err != nil {
			return fmt.Errorf("event %d: %w", e.ID, err)
		}
		e.Date = models.FormatDate(parsed)
		e.Description = description.String
		if snackDuty.Valid {
			e.SnackDutyParentID = &snackDuty.Int64
		}
		backup.Events = append(backup.Events, e)
	}
	return rows.Err()
}

func (s *BackupService) exportMessages(ctx context.Context, backup *BackupData) error {
	rows, err := s.db.QueryContext(ctx, "SELECT id, subject, body, sender_id, is_broadcast, created_at FROM messages ORDER BY id")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var m MessageBackup
		if err := rows.Scan(&m.ID, &m.Subject, &m.Body, &m.SenderID, &m.IsBroadcast, &m.CreatedAt); err != nil {
			return err
		}
		backup.Messages = append(backup.Messages, m)
	}
	return rows.Err()
}

func importUsers(ctx context.Context, tx *database.Tx, users []UserBackup) error {
	query := "INSERT INTO users (id, email, email_normalized, password_hash, name, is_admin, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)"
	for _, u := range users {
		if _, err := tx.ExecContext(ctx, query, u.ID, u.Email, models.NormalizeEmail(u.Email), u.PasswordHash, u.Name, u.IsAdmin, u.CreatedAt, u.UpdatedAt); err != nil {
			return fmt.Errorf("failed to import user %d: %w", u.ID, err)
		}
	}
	return nil
}

func importClassrooms(ctx context.Context, tx *database.Tx, classrooms []ClassroomBackup) error {
	query := "INSERT INTO classrooms (id, school_year_start, name, created_at, updated_at) VALUES (?, ?, ?, ?, ?)"
	for _, c := range classrooms {
		if _, err := tx.ExecContext(ctx, query, c.ID, c.SchoolYearStart, nullIfEmpty(c.Name), c.CreatedAt, c.UpdatedAt); err != nil {
			return fmt.Errorf("failed to import classroom %d: %w", c.ID, err)
		}
	}
	return nil
}

func importChildren(ctx context.Context, tx *database.Tx, children []ChildBackup) error {
	query := "INSERT INTO children (id, first_name, last_name, birthdate, classroom_id, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)"
	for _, c := range children {
		if _, err := models.ParseDate(c.Birthdate); err != nil {
			return fmt.Errorf("failed to import child %d: %w", c.ID, err)
		}
		if _, err := tx.ExecContext(ctx, query, c.ID, c.FirstName, c.LastName, c.Birthdate, c.ClassroomID, c.CreatedAt, c.UpdatedAt); err != nil {
			return fmt.Errorf("failed to import child %d: %w", c.ID, err)
		}
	}
	return nil
}

func importRelationships(ctx context.Context, tx *database.Tx, relationships []RelationshipBackup) error {
	query := "INSERT INTO child_relationships (user_id, child_id, relationship_type, is_primary_contact, created_at) VALUES (?, ?, ?, ?, ?)"
	for _, r := range relationships {
		if !models.RelationshipKind(r.RelationshipType).Valid() {
			return fmt.Errorf("failed to import relationship %d/%d: invalid type %q", r.UserID, r.ChildID, r.RelationshipType)
		}
		if _, err := tx.ExecContext(ctx, query, r.UserID, r.ChildID, r.RelationshipType, r.IsPrimaryContact, r.CreatedAt); err != nil {
			return fmt.Errorf("failed to import relationship %d/%d: %w", r.UserID, r.ChildID, err)
		}
	}
	return nil
}

func importEvents(ctx context.Context, tx *database.Tx, events []EventBackup) error {
	query := "INSERT INTO events (id, title, description, date, event_type, created_by, snack_duty_parent_id, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)"
	for _, e := range events {
		if _, err := models.ParseDate(e.Date); err != nil {
			return fmt.Errorf("failed to import event %d: %w", e.ID, err)
		}
		var snackDuty any
		if e.SnackDutyParentID != nil {
			snackDuty = *e.SnackDutyParentID
		}
		if _, err := tx.ExecContext(ctx, query, e.ID, e.Title, nullIfEmpty(e.Description), e.Date, e.EventType, e.CreatedBy, snackDuty, e.CreatedAt); err != nil {
			return fmt.Errorf("failed to import event %d: %w", e.ID, err)
		}
	}
	return nil
}

func importMessages(ctx context.Context, tx *database.Tx, messages []MessageBackup) error {
	query := "INSERT INTO messages (id, subject, body, sender_id, is_broadcast, created_at) VALUES (?, ?, ?, ?, ?, ?)"
	for _, m := range messages {
		if _, err := tx.ExecContext(ctx, query, m.ID, m.Subject, m.Body, m.SenderID, m.IsBroadcast, m.CreatedAt); err != nil {
			return fmt.Errorf("failed to import message %d: %w", m.ID, err)
		}
	}
	return nil
}

// resetSequences moves serial sequences past the imported ids. SQLite and
// MySQL advance their counters on explicit inserts.
func resetSequences(ctx context.Context, tx *database.Tx) error {
	resetter, ok := tx.GetDialect().(database.SequenceResetter)
	if !ok {
		return nil
	}
	for _, table := range []string{"users", "classrooms", "children", "events", "messages"} {
		if _, err := tx.ExecContext(ctx, resetter.ResetSequenceQuery(table)); err != nil {
			return fmt.Errorf("failed to reset %s sequence: %w", table, err)
		}
	}
	return nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
