package models

import (
	"fmt"
	"time"
)

// Classroom is a class for one school year. Several classrooms may share a
// year (sections).
type Classroom struct {
	ID              int64     `json:"id"`
	SchoolYearStart int       `json:"school_year_start"`
	Name            string    `json:"name,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// SchoolYearLabel returns the year as "2024-2025"
func (c *Classroom) SchoolYearLabel() string {
	return fmt.Sprintf("%d-%d", c.SchoolYearStart, c.SchoolYearStart+1)
}

// Child represents a child enrolled in exactly one classroom
type Child struct {
	ID          int64     `json:"id"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	Birthdate   time.Time `json:"birthdate"`
	ClassroomID int64     `json:"classroom_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// FullName returns "First Last"
func (c *Child) FullName() string {
	return c.FirstName + " " + c.LastName
}
