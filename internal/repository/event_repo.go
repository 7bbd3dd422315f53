package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"classroomhub/internal/database"
	"classroomhub/internal/models"
)

// Events are always read with the creator and snack-duty names joined in
const eventSelect = `
	SELECT e.id, e.title, e.description, e.date, e.event_type, e.created_by,
	       e.snack_duty_parent_id, e.created_at,
	       creator.name, snack.name
	FROM events e
	JOIN users creator ON creator.id = e.created_by
	LEFT JOIN users snack ON snack.id = e.snack_duty_parent_id
`

// EventRepository handles database operations for calendar events
type EventRepository struct {
	db database.DBTX
}

// NewEventRepository creates a new event repository
func NewEventRepository(db database.DBTX) *EventRepository {
	return &EventRepository{db: db}
}

// CreateEvent inserts an event. A missing creator or snack-duty user fails
// with database.ErrForeignKeyViolation.
func (r *EventRepository) CreateEvent(ctx context.Context, event *models.Event) error {
	query := `
		INSERT INTO events (title, description, date, event_type, created_by, snack_duty_parent_id)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	var snackDuty sql.NullInt64
	if event.SnackDutyParentID != nil {
		snackDuty = sql.NullInt64{Int64: *event.SnackDutyParentID, Valid: true}
	}

	id, err := r.db.ExecReturningID(ctx, query,
		event.Title,
		nullString(event.Description),
		models.FormatDate(event.Date),
		string(event.Type),
		event.CreatedBy,
		snackDuty,
	)
	if err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}

	event.ID = id
	event.CreatedAt = time.Now().UTC()
	return nil
}

func scanEvent(row interface{ Scan(...any) error }, event *models.Event) error {
	var (
		description sql.NullString
		date        string
		eventType   string
		snackDuty   sql.NullInt64
		snackName   sql.NullString
	)
	if err := row.Scan(
		&event.ID,
		&event.Title,
		&description,
		&date,
		&eventType,
		&event.CreatedBy,
		&snackDuty,
		&event.CreatedAt,
		&event.CreatorName,
		&snackName,
	); err != nil {
		return err
	}

	d, err := models.ScanDate(date)
	if err != nil {
		return err
	}
	event.Date = d
	event.Description = description.String
	event.Type = models.EventType(eventType)
	if snackDuty.Valid {
		id := snackDuty.Int64
		event.SnackDutyParentID = &id
	}
	event.SnackDutyName = snackName.String
	return nil
}

func (r *EventRepository) list(ctx context.Context, query string, args ...any) ([]models.Event, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	events := []models.Event{}
	for rows.Next() {
		var event models.Event
		if err := scanEvent(rows, &event); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// GetEvent retrieves an event by ID
func (r *EventRepository) GetEvent(ctx context.Context, id int64) (*models.Event, error) {
	event := &models.Event{}
	err := scanEvent(r.db.QueryRowContext(ctx, eventSelect+" WHERE e.id = ?", id), event)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return event, nil
}

// ListEventsInRange retrieves events dated start through end inclusive,
// ordered by date
func (r *EventRepository) ListEventsInRange(ctx context.Context, start, end time.Time) ([]models.Event, error) {
	query := eventSelect + `
		WHERE e.date >= ? AND e.date <= ?
		ORDER BY e.date ASC, e.id ASC`
	return r.list(ctx, query, models.FormatDate(start), models.FormatDate(end))
}

// ListUpcomingSnackDuty retrieves snack-duty events dated from onward
func (r *EventRepository) ListUpcomingSnackDuty(ctx context.Context, from time.Time) ([]models.Event, error) {
	query := eventSelect + `
		WHERE e.event_type = ? AND e.date >= ?
		ORDER BY e.date ASC, e.id ASC`
	return r.list(ctx, query, string(models.EventSnackDuty), models.FormatDate(from))
}

// ListUpcoming retrieves at most limit events dated from onward
func (r *EventRepository) ListUpcoming(ctx context.Context, from time.Time, limit int) ([]models.Event, error) {
	query := eventSelect + `
		WHERE e.date >= ?
		ORDER BY e.date ASC, e.id ASC
		LIMIT ?`
	return r.list(ctx, query, models.FormatDate(from), limit)
}

// DeleteEvent deletes an event and reports whether it existed
func (r *EventRepository) DeleteEvent(ctx context.Context, id int64) (bool, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM events WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("failed to delete event: %w", err)
	}
	return affected(result)
}
