package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"classroomhub/internal/authz"
	"classroomhub/internal/calendar"
	"classroomhub/internal/database"
	"classroomhub/internal/models"
	"classroomhub/internal/repository"
	"classroomhub/internal/validation"
)

// EventInput describes a calendar event to create
type EventInput struct {
	Title             string           `json:"title" validate:"required,max=200"`
	Description       string           `json:"description" validate:"max=2000"`
	Date              time.Time        `json:"date" validate:"required"`
	Type              models.EventType `json:"event_type"`
	SnackDutyParentID *int64           `json:"snack_duty_parent_id"`
}

// CalendarService manages calendar events
type CalendarService struct {
	db     *database.DB
	events *repository.EventRepository
}

// NewCalendarService creates a new calendar service
func NewCalendarService(db *database.DB) *CalendarService {
	return &CalendarService{
		db:     db,
		events: repository.NewEventRepository(db),
	}
}

// CreateEvent adds an event owned by the acting user. A snack-duty parent,
// when given, must be an existing user.
func (s *CalendarService) CreateEvent(ctx context.Context, actor authz.Actor, input EventInput) (*models.Event, error) {
	input.Title = strings.TrimSpace(input.Title)
	input.Description = strings.TrimSpace(input.Description)
	if err := validation.Struct(input); err != nil {
		return nil, err
	}
	if input.Type == "" {
		input.Type = models.EventGeneral
	}
	if !input.Type.Valid() {
		return nil, validation.ValidationError{Field: "event_type", Message: "unknown event type"}
	}
	if input.SnackDutyParentID != nil && *input.SnackDutyParentID == 0 {
		input.SnackDutyParentID = nil
	}

	event := &models.Event{
		Title:             input.Title,
		Description:       input.Description,
		Date:              models.Date(input.Date.Date()),
		Type:              input.Type,
		CreatedBy:         actor.UserID,
		SnackDutyParentID: input.SnackDutyParentID,
	}

	var created *models.Event
	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		users := repository.NewUserRepository(tx)
		if event.SnackDutyParentID != nil {
			exists, err := users.UserExists(ctx, *event.SnackDutyParentID)
			if err != nil {
				return err
			}
			if !exists {
				return notFound("snack duty parent")
			}
		}

		events := repository.NewEventRepository(tx)
		if err := events.CreateEvent(ctx, event); err != nil {
			return err
		}
		var err error
		created, err = events.GetEvent(ctx, event.ID)
		return err
	})
	if errors.Is(err, database.ErrForeignKeyViolation) {
		return nil, notFound("user")
	}
	if err != nil {
		return nil, err
	}
	return created, nil
}

// GetEvent retrieves an event by ID
func (s *CalendarService) GetEvent(ctx context.Context, id int64) (*models.Event, error) {
	event, err := s.events.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, notFound("event")
	}
	return event, nil
}

// ListEventsInRange returns the events dated start through end inclusive,
// ordered by date
func (s *CalendarService) ListEventsInRange(ctx context.Context, start, end time.Time) ([]models.Event, error) {
	start = models.Date(start.Date())
	end = models.Date(end.Date())
	if end.Before(start) {
		return nil, validation.ValidationError{Field: "end", Message: "end must not be before start"}
	}
	return s.events.ListEventsInRange(ctx, start, end)
}

// MonthView returns the events of a month laid out by week. Out-of-range
// months roll into the neighbouring year.
func (s *CalendarService) MonthView(ctx context.Context, year, month int) (*models.MonthView, error) {
	y, m := calendar.NormalizeMonth(year, month)
	start, end := calendar.MonthRange(y, int(m))

	events, err := s.events.ListEventsInRange(ctx, start, end)
	if err != nil {
		return nil, err
	}

	byDay := make(map[int][]models.Event)
	for _, e := range events {
		byDay[e.Date.Day()] = append(byDay[e.Date.Day()], e)
	}

	prevYear, prevMonth, nextYear, nextMonth := calendar.Adjacent(y, m)
	return &models.MonthView{
		Year:        y,
		Month:       m,
		MonthName:   m.String(),
		Start:       start,
		End:         end,
		Weeks:       calendar.Weeks(y, m),
		Events:      events,
		EventsByDay: byDay,
		PrevYear:    prevYear,
		PrevMonth:   prevMonth,
		NextYear:    nextYear,
		NextMonth:   nextMonth,
	}, nil
}

// ListUpcomingSnackDuty returns snack-duty events dated from onward
func (s *CalendarService) ListUpcomingSnackDuty(ctx context.Context, from time.Time) ([]models.Event, error) {
	return s.events.ListUpcomingSnackDuty(ctx, models.Date(from.Date()))
}

// ListUpcoming returns the next limit events dated from onward
func (s *CalendarService) ListUpcoming(ctx context.Context, from time.Time, limit int) ([]models.Event, error) {
	return s.events.ListUpcoming(ctx, models.Date(from.Date()), limit)
}

// DeleteEvent deletes an event. Only its creator or an admin may.
func (s *CalendarService) DeleteEvent(ctx context.Context, actor authz.Actor, eventID int64) error {
	return s.db.WithTx(ctx, func(tx *database.Tx) error {
		events := repository.NewEventRepository(tx)

		event, err := events.GetEvent(ctx, eventID)
		if err != nil {
			return err
		}
		if event == nil {
			return notFound("event")
		}
		if !actor.CanMutate(event) {
			return ErrForbidden
		}

		_, err = events.DeleteEvent(ctx, eventID)
		return err
	})
}
