package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"classroomhub/internal/database"
	"classroomhub/internal/models"
)

// RelationshipRepository handles the guardian-child edges
type RelationshipRepository struct {
	db database.DBTX
}

// NewRelationshipRepository creates a new relationship repository
func NewRelationshipRepository(db database.DBTX) *RelationshipRepository {
	return &RelationshipRepository{db: db}
}

// CreateRelationship inserts an edge. An existing (user, child) edge fails
// with database.ErrUniqueViolation and a missing user or child with
// database.ErrForeignKeyViolation.
func (r *RelationshipRepository) CreateRelationship(ctx context.Context, userID, childID int64, kind models.RelationshipKind, isPrimary bool) (*models.ChildRelationship, error) {
	query := `
		INSERT INTO child_relationships (user_id, child_id, relationship_type, is_primary_contact)
		VALUES (?, ?, ?, ?)
	`
	if _, err := r.db.ExecContext(ctx, query, userID, childID, string(kind), isPrimary); err != nil {
		return nil, fmt.Errorf("failed to create relationship: %w", err)
	}

	return &models.ChildRelationship{
		UserID:           userID,
		ChildID:          childID,
		Kind:             kind,
		IsPrimaryContact: isPrimary,
		CreatedAt:        time.Now().UTC(),
	}, nil
}

// GetRelationship retrieves the edge between a user and a child
func (r *RelationshipRepository) GetRelationship(ctx context.Context, userID, childID int64) (*models.ChildRelationship, error) {
	query := `
		SELECT user_id, child_id, relationship_type, is_primary_contact, created_at
		FROM child_relationships
		WHERE user_id = ? AND child_id = ?
	`
	rel := &models.ChildRelationship{}
	var kind string
	err := r.db.QueryRowContext(ctx, query, userID, childID).Scan(
		&rel.UserID,
		&rel.ChildID,
		&kind,
		&rel.IsPrimaryContact,
		&rel.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get relationship: %w", err)
	}
	rel.Kind = models.RelationshipKind(kind)
	return rel, nil
}

// UpdateRelationship changes the kind and primary flag of an existing edge
// and reports whether it exists
func (r *RelationshipRepository) UpdateRelationship(ctx context.Context, userID, childID int64, kind models.RelationshipKind, isPrimary bool) (bool, error) {
	query := `
		UPDATE child_relationships
		SET relationship_type = ?, is_primary_contact = ?
		WHERE user_id = ? AND child_id = ?
	`
	result, err := r.db.ExecContext(ctx, query, string(kind), isPrimary, userID, childID)
	if err != nil {
		return false, fmt.Errorf("failed to update relationship: %w", err)
	}
	return affected(result)
}

// DeleteRelationship removes an edge. Removing an absent edge is not an error.
func (r *RelationshipRepository) DeleteRelationship(ctx context.Context, userID, childID int64) error {
	query := "DELETE FROM child_relationships WHERE user_id = ? AND child_id = ?"
	if _, err := r.db.ExecContext(ctx, query, userID, childID); err != nil {
		return fmt.Errorf("failed to delete relationship: %w", err)
	}
	return nil
}

// ListGuardiansOf retrieves the guardians of a child in the order they were linked
func (r *RelationshipRepository) ListGuardiansOf(ctx context.Context, childID int64) ([]models.Guardian, error) {
	query := `
		SELECT u.id, u.email, u.name, u.is_admin, u.created_at, u.updated_at,
		       cr.relationship_type, cr.is_primary_contact, cr.created_at
		FROM child_relationships cr
		JOIN users u ON u.id = cr.user_id
		WHERE cr.child_id = ?
		ORDER BY cr.created_at ASC, cr.id ASC
	`
	rows, err := r.db.QueryContext(ctx, query, childID)
	if err != nil {
		return nil, fmt.Errorf("failed to query guardians: %w", err)
	}
	defer rows.Close()

	guardians := []models.Guardian{}
	for rows.Next() {
		var g models.Guardian
		var kind string
		if err := rows.Scan(
			&g.User.ID,
			&g.User.Email,
			&g.User.Name,
			&g.User.IsAdmin,
			&g.User.CreatedAt,
			&g.User.UpdatedAt,
			&kind,
			&g.IsPrimaryContact,
			&g.LinkedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan guardian: %w", err)
		}
		g.Kind = models.RelationshipKind(kind)
		guardians = append(guardians, g)
	}
	return guardians, rows.Err()
}

// ListChildrenOf retrieves the children a user is linked to, ordered by name
func (r *RelationshipRepository) ListChildrenOf(ctx context.Context, userID int64) ([]models.Child, error) {
	query := "SELECT " + childColumns + `
		FROM children c
		JOIN child_relationships cr ON cr.child_id = c.id
		WHERE cr.user_id = ?
		ORDER BY c.last_name ASC, c.first_name ASC, c.id ASC`
	return NewChildRepository(r.db).list(ctx, query, userID)
}
