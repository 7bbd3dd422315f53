package service

import (
	"context"
	"fmt"
	"time"

	"classroomhub/internal/models"
)

const dashboardItems = 5

// DashboardService assembles the signed-in landing page
type DashboardService struct {
	auth     *AuthService
	calendar *CalendarService
	messages *MessageService
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(auth *AuthService, calendar *CalendarService, messages *MessageService) *DashboardService {
	return &DashboardService{auth: auth, calendar: calendar, messages: messages}
}

// Dashboard returns the next events from today, the newest messages and
// the number of parents
func (s *DashboardService) Dashboard(ctx context.Context, today time.Time) (*models.Dashboard, error) {
	events, err := s.calendar.ListUpcoming(ctx, today, dashboardItems)
	if err != nil {
		return nil, fmt.Errorf("failed to load upcoming events: %w", err)
	}
	messages, err := s.messages.ListRecent(ctx, dashboardItems)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent messages: %w", err)
	}
	count, err := s.auth.CountParents(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count parents: %w", err)
	}

	return &models.Dashboard{
		UpcomingEvents: events,
		RecentMessages: messages,
		ParentCount:    count,
	}, nil
}
