package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"classroomhub/internal/authz"
	"classroomhub/internal/database"
	"classroomhub/internal/models"
	"classroomhub/internal/repository"
	"classroomhub/internal/validation"
)

// ClassroomInput describes a classroom to create
type ClassroomInput struct {
	SchoolYearStart int    `json:"school_year_start" validate:"gte=2000,lte=2100"`
	Name            string `json:"name" validate:"max=100"`
}

// ChildInput describes a child to enroll
type ChildInput struct {
	FirstName   string    `json:"first_name" validate:"required,max=100"`
	LastName    string    `json:"last_name" validate:"required,max=100"`
	Birthdate   time.Time `json:"birthdate" validate:"required"`
	ClassroomID int64     `json:"classroom_id" validate:"required"`
}

// RegistryService manages classrooms and the children enrolled in them.
// Every mutation is an admin action.
type RegistryService struct {
	db         *database.DB
	classrooms *repository.ClassroomRepository
	children   *repository.ChildRepository
	now        func() time.Time
}

// NewRegistryService creates a new registry service
func NewRegistryService(db *database.DB) *RegistryService {
	return &RegistryService{
		db:         db,
		classrooms: repository.NewClassroomRepository(db),
		children:   repository.NewChildRepository(db),
		now:        time.Now,
	}
}

// CreateClassroom creates a classroom. Several classrooms may share a
// school year.
func (s *RegistryService) CreateClassroom(ctx context.Context, actor authz.Actor, input ClassroomInput) (*models.Classroom, error) {
	if err := authz.RequireAdmin(actor); err != nil {
		return nil, err
	}
	input.Name = strings.TrimSpace(input.Name)
	if err := validation.Struct(input); err != nil {
		return nil, err
	}

	var classroom *models.Classroom
	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		var err error
		classroom, err = repository.NewClassroomRepository(tx).CreateClassroom(ctx, input.SchoolYearStart, input.Name)
		return err
	})
	if err != nil {
		return nil, err
	}
	return classroom, nil
}

// GetClassroom retrieves a classroom by ID
func (s *RegistryService) GetClassroom(ctx context.Context, id int64) (*models.Classroom, error) {
	classroom, err := s.classrooms.GetClassroom(ctx, id)
	if err != nil {
		return nil, err
	}
	if classroom == nil {
		return nil, notFound("classroom")
	}
	return classroom, nil
}

// ListClassrooms returns every classroom, newest school year first
func (s *RegistryService) ListClassrooms(ctx context.Context) ([]models.Classroom, error) {
	return s.classrooms.ListClassrooms(ctx)
}

// RenameClassroom changes a classroom's display name
func (s *RegistryService) RenameClassroom(ctx context.Context, actor authz.Actor, id int64, name string) error {
	if err := authz.RequireAdmin(actor); err != nil {
		return err
	}
	name = strings.TrimSpace(name)
	if len(name) > 100 {
		return validation.ValidationError{Field: "name", Message: "name must be at most 100 characters"}
	}

	found, err := s.classrooms.RenameClassroom(ctx, id, name)
	if err != nil {
		return err
	}
	if !found {
		return notFound("classroom")
	}
	return nil
}

// DeleteClassroom deletes an empty classroom. A classroom with enrolled
// children is never cascaded: the call fails with ErrHasChildren.
func (s *RegistryService) DeleteClassroom(ctx context.Context, actor authz.Actor, id int64) error {
	if err := authz.RequireAdmin(actor); err != nil {
		return err
	}

	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		classrooms := repository.NewClassroomRepository(tx)

		classroom, err := classrooms.GetClassroom(ctx, id)
		if err != nil {
			return err
		}
		if classroom == nil {
			return notFound("classroom")
		}

		count, err := classrooms.CountChildren(ctx, id)
		if err != nil {
			return err
		}
		if count > 0 {
			return ErrHasChildren
		}

		_, err = classrooms.DeleteClassroom(ctx, id)
		return err
	})
	if errors.Is(err, database.ErrForeignKeyViolation) {
		return ErrHasChildren
	}
	return err
}

// EnrollChild adds a child to an existing classroom
func (s *RegistryService) EnrollChild(ctx context.Context, actor authz.Actor, input ChildInput) (*models.Child, error) {
	if err := authz.RequireAdmin(actor); err != nil {
		return nil, err
	}
	input.FirstName = strings.TrimSpace(input.FirstName)
	input.LastName = strings.TrimSpace(input.LastName)
	if err := validation.Struct(input); err != nil {
		return nil, err
	}
	birthdate := models.Date(input.Birthdate.Date())
	if birthdate.After(s.now()) {
		return nil, validation.ValidationError{Field: "birthdate", Message: "birthdate cannot be in the future"}
	}

	var child *models.Child
	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		classroom, err := repository.NewClassroomRepository(tx).GetClassroom(ctx, input.ClassroomID)
		if err != nil {
			return err
		}
		if classroom == nil {
			return notFound("classroom")
		}

		child, err = repository.NewChildRepository(tx).CreateChild(ctx, input.FirstName, input.LastName, birthdate, input.ClassroomID)
		return err
	})
	if errors.Is(err, database.ErrForeignKeyViolation) {
		return nil, notFound("classroom")
	}
	if err != nil {
		return nil, err
	}
	return child, nil
}

// GetChild retrieves a child by ID
func (s *RegistryService) GetChild(ctx context.Context, id int64) (*models.Child, error) {
	child, err := s.children.GetChild(ctx, id)
	if err != nil {
		return nil, err
	}
	if child == nil {
		return nil, notFound("child")
	}
	return child, nil
}

// ListChildren returns every child ordered by name
func (s *RegistryService) ListChildren(ctx context.Context) ([]models.Child, error) {
	return s.children.ListChildren(ctx)
}

// ListChildrenInClassroom returns the children enrolled in a classroom
func (s *RegistryService) ListChildrenInClassroom(ctx context.Context, classroomID int64) ([]models.Child, error) {
	if _, err := s.GetClassroom(ctx, classroomID); err != nil {
		return nil, err
	}
	return s.children.ListChildrenInClassroom(ctx, classroomID)
}

// TransferChild moves a child to another classroom
func (s *RegistryService) TransferChild(ctx context.Context, actor authz.Actor, childID, classroomID int64) error {
	if err := authz.RequireAdmin(actor); err != nil {
		return err
	}

	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		classroom, err := repository.NewClassroomRepository(tx).GetClassroom(ctx, classroomID)
		if err != nil {
			return err
		}
		if classroom == nil {
			return notFound("classroom")
		}

		found, err := repository.NewChildRepository(tx).TransferChild(ctx, childID, classroomID)
		if err != nil {
			return err
		}
		if !found {
			return notFound("child")
		}
		return nil
	})
	if errors.Is(err, database.ErrForeignKeyViolation) {
		return notFound("classroom")
	}
	return err
}

// DeleteChild removes a child and its guardian links
func (s *RegistryService) DeleteChild(ctx context.Context, actor authz.Actor, id int64) error {
	if err := authz.RequireAdmin(actor); err != nil {
		return err
	}

	found, err := s.children.DeleteChild(ctx, id)
	if err != nil {
		return err
	}
	if !found {
		return notFound("child")
	}
	return nil
}
