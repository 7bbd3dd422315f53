package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"classroomhub/internal/database"
	"classroomhub/internal/models"
)

const childColumns = "c.id, c.first_name, c.last_name, c.birthdate, c.classroom_id, c.created_at, c.updated_at"

// ChildRepository handles database operations for children
type ChildRepository struct {
	db database.DBTX
}

// NewChildRepository creates a new child repository
func NewChildRepository(db database.DBTX) *ChildRepository {
	return &ChildRepository{db: db}
}

// CreateChild enrolls a child in a classroom. A missing classroom fails
// with database.ErrForeignKeyViolation.
func (r *ChildRepository) CreateChild(ctx context.Context, firstName, lastName string, birthdate time.Time, classroomID int64) (*models.Child, error) {
	query := `
		INSERT INTO children (first_name, last_name, birthdate, classroom_id)
		VALUES (?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(ctx, query, firstName, lastName, models.FormatDate(birthdate), classroomID)
	if err != nil {
		return nil, fmt.Errorf("failed to create child: %w", err)
	}

	now := time.Now().UTC()
	return &models.Child{
		ID:          id,
		FirstName:   firstName,
		LastName:    lastName,
		Birthdate:   birthdate,
		ClassroomID: classroomID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func scanChild(row interface{ Scan(...any) error }, child *models.Child) error {
	var birthdate string
	if err := row.Scan(
		&child.ID,
		&child.FirstName,
		&child.LastName,
		&birthdate,
		&child.ClassroomID,
		&child.CreatedAt,
		&child.UpdatedAt,
	); err != nil {
		return err
	}
	date, err := models.ScanDate(birthdate)
	if err != nil {
		return err
	}
	child.Birthdate = date
	return nil
}

func (r *ChildRepository) list(ctx context.Context, query string, args ...any) ([]models.Child, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query children: %w", err)
	}
	defer rows.Close()

	children := []models.Child{}
	for rows.Next() {
		var child models.Child
		if err := scanChild(rows, &child); err != nil {
			return nil, fmt.Errorf("failed to scan child: %w", err)
		}
		children = append(children, child)
	}
	return children, rows.Err()
}

// GetChild retrieves a child by ID
func (r *ChildRepository) GetChild(ctx context.Context, id int64) (*models.Child, error) {
	query := "SELECT " + childColumns + " FROM children c WHERE c.id = ?"
	child := &models.Child{}
	err := scanChild(r.db.QueryRowContext(ctx, query, id), child)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get child: %w", err)
	}
	return child, nil
}

// ChildExists reports whether a child with the id exists
func (r *ChildRepository) ChildExists(ctx context.Context, id int64) (bool, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM children WHERE id = ?", id).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check child: %w", err)
	}
	return count > 0, nil
}

// ListChildrenInClassroom retrieves the children of a classroom ordered by name
func (r *ChildRepository) ListChildrenInClassroom(ctx context.Context, classroomID int64) ([]models.Child, error) {
	query := "SELECT " + childColumns + ` FROM children c
		WHERE c.classroom_id = ?
		ORDER BY c.last_name ASC, c.first_name ASC, c.id ASC`
	return r.list(ctx, query, classroomID)
}

// ListChildren retrieves every child ordered by name
func (r *ChildRepository) ListChildren(ctx context.Context) ([]models.Child, error) {
	query := "SELECT " + childColumns + " FROM children c ORDER BY c.last_name ASC, c.first_name ASC, c.id ASC"
	return r.list(ctx, query)
}

// TransferChild moves a child to another classroom and reports whether the
// child exists. A missing classroom fails with database.ErrForeignKeyViolation.
func (r *ChildRepository) TransferChild(ctx context.Context, childID, classroomID int64) (bool, error) {
	query := "UPDATE children SET classroom_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?"
	result, err := r.db.ExecContext(ctx, query, classroomID, childID)
	if err != nil {
		return false, fmt.Errorf("failed to transfer child: %w", err)
	}
	return affected(result)
}

// DeleteChild deletes a child; its guardian links cascade
func (r *ChildRepository) DeleteChild(ctx context.Context, id int64) (bool, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM children WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("failed to delete child: %w", err)
	}
	return affected(result)
}
