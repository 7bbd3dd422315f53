package service

import (
	"context"
	"errors"

	"classroomhub/internal/authz"
	"classroomhub/internal/database"
	"classroomhub/internal/models"
	"classroomhub/internal/repository"
	"classroomhub/internal/validation"
)

// GuardianService manages the links between parents and children
type GuardianService struct {
	db            *database.DB
	children      *repository.ChildRepository
	relationships *repository.RelationshipRepository
}

// NewGuardianService creates a new guardian service
func NewGuardianService(db *database.DB) *GuardianService {
	return &GuardianService{
		db:            db,
		children:      repository.NewChildRepository(db),
		relationships: repository.NewRelationshipRepository(db),
	}
}

func validateKind(kind models.RelationshipKind) (models.RelationshipKind, error) {
	if kind == "" {
		return models.RelationshipGuardian, nil
	}
	if !kind.Valid() {
		return "", validation.ValidationError{Field: "relationship_type", Message: "unknown relationship type"}
	}
	return kind, nil
}

// LinkGuardian links a user to a child. An existing link is never
// overwritten: it fails with ErrDuplicateEdge and must be changed through
// UpdateGuardian.
func (s *GuardianService) LinkGuardian(ctx context.Context, actor authz.Actor, userID, childID int64, kind models.RelationshipKind, isPrimary bool) (*models.ChildRelationship, error) {
	if err := authz.RequireAdmin(actor); err != nil {
		return nil, err
	}
	kind, err := validateKind(kind)
	if err != nil {
		return nil, err
	}

	var rel *models.ChildRelationship
	err = s.db.WithTx(ctx, func(tx *database.Tx) error {
		exists, err := repository.NewUserRepository(tx).UserExists(ctx, userID)
		if err != nil {
			return err
		}
		if !exists {
			return notFound("user")
		}
		exists, err = repository.NewChildRepository(tx).ChildExists(ctx, childID)
		if err != nil {
			return err
		}
		if !exists {
			return notFound("child")
		}

		relationships := repository.NewRelationshipRepository(tx)
		existing, err := relationships.GetRelationship(ctx, userID, childID)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrDuplicateEdge
		}

		rel, err = relationships.CreateRelationship(ctx, userID, childID, kind, isPrimary)
		return err
	})
	switch {
	case errors.Is(err, database.ErrUniqueViolation):
		return nil, ErrDuplicateEdge
	case errors.Is(err, database.ErrForeignKeyViolation):
		return nil, notFound("user or child")
	case err != nil:
		return nil, err
	}
	return rel, nil
}

// UpdateGuardian changes the kind and primary-contact flag of an existing link
func (s *GuardianService) UpdateGuardian(ctx context.Context, actor authz.Actor, userID, childID int64, kind models.RelationshipKind, isPrimary bool) error {
	if err := authz.RequireAdmin(actor); err != nil {
		return err
	}
	kind, err := validateKind(kind)
	if err != nil {
		return err
	}

	found, err := s.relationships.UpdateRelationship(ctx, userID, childID, kind, isPrimary)
	if err != nil {
		return err
	}
	if !found {
		return notFound("guardian link")
	}
	return nil
}

// UnlinkGuardian removes the link between a user and a child. Removing a
// link that does not exist succeeds.
func (s *GuardianService) UnlinkGuardian(ctx context.Context, actor authz.Actor, userID, childID int64) error {
	if err := authz.RequireAdmin(actor); err != nil {
		return err
	}
	return s.db.WithTx(ctx, func(tx *database.Tx) error {
		return repository.NewRelationshipRepository(tx).DeleteRelationship(ctx, userID, childID)
	})
}

// ListGuardiansOf returns a child's guardians in the order they were linked
func (s *GuardianService) ListGuardiansOf(ctx context.Context, childID int64) ([]models.Guardian, error) {
	exists, err := s.children.ChildExists(ctx, childID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, notFound("child")
	}
	return s.relationships.ListGuardiansOf(ctx, childID)
}

// ListChildrenOf returns the children a user is linked to
func (s *GuardianService) ListChildrenOf(ctx context.Context, userID int64) ([]models.Child, error) {
	return s.relationships.ListChildrenOf(ctx, userID)
}
