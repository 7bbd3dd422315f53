package models

import "time"

// EventType categorises calendar events
type EventType string

const (
	EventGeneral   EventType = "general"
	EventSnackDuty EventType = "snack_duty"
	EventFieldTrip EventType = "field_trip"
	EventHoliday   EventType = "holiday"
	EventMeeting   EventType = "meeting"
)

// EventTypes lists every valid event type
var EventTypes = []EventType{EventGeneral, EventSnackDuty, EventFieldTrip, EventHoliday, EventMeeting}

// Valid reports whether t is one of the known event types
func (t EventType) Valid() bool {
	for _, et := range EventTypes {
		if t == et {
			return true
		}
	}
	return false
}

// Event is a dated calendar entry. Date has no time of day (midnight UTC).
type Event struct {
	ID                int64     `json:"id"`
	Title             string    `json:"title"`
	Description       string    `json:"description,omitempty"`
	Date              time.Time `json:"date"`
	Type              EventType `json:"event_type"`
	CreatedBy         int64     `json:"created_by"`
	SnackDutyParentID *int64    `json:"snack_duty_parent_id,omitempty"`
	CreatedAt         time.Time `json:"created_at"`

	// Populated by listing queries
	CreatorName   string `json:"creator_name,omitempty"`
	SnackDutyName string `json:"snack_duty_name,omitempty"`
}

// OwnerID returns the user allowed to delete the event
func (e *Event) OwnerID() int64 {
	return e.CreatedBy
}
