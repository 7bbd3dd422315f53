package models

import "time"

// Message is a broadcast from one parent to every authenticated user
type Message struct {
	ID          int64     `json:"id"`
	Subject     string    `json:"subject"`
	Body        string    `json:"body"`
	SenderID    int64     `json:"sender_id"`
	SenderName  string    `json:"sender_name,omitempty"`
	IsBroadcast bool      `json:"is_broadcast"`
	CreatedAt   time.Time `json:"created_at"`
}

// OwnerID returns the user allowed to delete the message
func (m *Message) OwnerID() int64 {
	return m.SenderID
}
