package repository

import (
	"context"
	"database/sql"
	"fmt"

	"classroomhub/internal/database"
	"classroomhub/internal/models"
)

// ClassroomRepository handles database operations for classrooms
type ClassroomRepository struct {
	db database.DBTX
}

// NewClassroomRepository creates a new classroom repository
func NewClassroomRepository(db database.DBTX) *ClassroomRepository {
	return &ClassroomRepository{db: db}
}

// CreateClassroom inserts a classroom for the school year starting in schoolYearStart
func (r *ClassroomRepository) CreateClassroom(ctx context.Context, schoolYearStart int, name string) (*models.Classroom, error) {
	query := "INSERT INTO classrooms (school_year_start, name) VALUES (?, ?)"
	id, err := r.db.ExecReturningID(ctx, query, schoolYearStart, nullString(name))
	if err != nil {
		return nil, fmt.Errorf("failed to create classroom: %w", err)
	}
	return r.GetClassroom(ctx, id)
}

func scanClassroom(row interface{ Scan(...any) error }, c *models.Classroom) error {
	var name sql.NullString
	if err := row.Scan(&c.ID, &c.SchoolYearStart, &name, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return err
	}
	c.Name = name.String
	return nil
}

// GetClassroom retrieves a classroom by ID
func (r *ClassroomRepository) GetClassroom(ctx context.Context, id int64) (*models.Classroom, error) {
	query := `
		SELECT id, school_year_start, name, created_at, updated_at
		FROM classrooms
		WHERE id = ?
	`
	classroom := &models.Classroom{}
	err := scanClassroom(r.db.QueryRowContext(ctx, query, id), classroom)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get classroom: %w", err)
	}
	return classroom, nil
}

// ListClassrooms retrieves all classrooms, newest school year first
func (r *ClassroomRepository) ListClassrooms(ctx context.Context) ([]models.Classroom, error) {
	query := `
		SELECT id, school_year_start, name, created_at, updated_at
		FROM classrooms
		ORDER BY school_year_start DESC, id ASC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query classrooms: %w", err)
	}
	defer rows.Close()

	classrooms := []models.Classroom{}
	for rows.Next() {
		var c models.Classroom
		if err := scanClassroom(rows, &c); err != nil {
			return nil, fmt.Errorf("failed to scan classroom: %w", err)
		}
		classrooms = append(classrooms, c)
	}
	return classrooms, rows.Err()
}

// RenameClassroom updates the display name and reports whether the classroom exists
func (r *ClassroomRepository) RenameClassroom(ctx context.Context, id int64, name string) (bool, error) {
	query := "UPDATE classrooms SET name = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?"
	result, err := r.db.ExecContext(ctx, query, nullString(name), id)
	if err != nil {
		return false, fmt.Errorf("failed to rename classroom: %w", err)
	}
	return affected(result)
}

// CountChildren returns the number of children enrolled in a classroom
func (r *ClassroomRepository) CountChildren(ctx context.Context, id int64) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM children WHERE classroom_id = ?", id).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count children: %w", err)
	}
	return count, nil
}

// DeleteClassroom deletes a classroom. Enrolled children restrict the delete.
func (r *ClassroomRepository) DeleteClassroom(ctx context.Context, id int64) (bool, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM classrooms WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("failed to delete classroom: %w", err)
	}
	return affected(result)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func affected(result sql.Result) (bool, error) {
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return rows > 0, nil
}
