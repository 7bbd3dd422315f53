package models

import "time"

// Dashboard is the signed-in landing page overview
type Dashboard struct {
	UpcomingEvents []Event   `json:"upcoming_events"`
	RecentMessages []Message `json:"recent_messages"`
	ParentCount    int       `json:"parent_count"`
}

// MonthView is a calendar month with its events grouped by day
type MonthView struct {
	Year        int             `json:"year"`
	Month       time.Month      `json:"month"`
	MonthName   string          `json:"month_name"`
	Start       time.Time       `json:"start"`
	End         time.Time       `json:"end"`
	Weeks       [][7]int        `json:"weeks"`
	Events      []Event         `json:"events"`
	EventsByDay map[int][]Event `json:"events_by_day"`
	PrevYear    int             `json:"prev_year"`
	PrevMonth   time.Month      `json:"prev_month"`
	NextYear    int             `json:"next_year"`
	NextMonth   time.Month      `json:"next_month"`
}
