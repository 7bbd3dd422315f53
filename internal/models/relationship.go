package models

import "time"

// RelationshipKind describes how a guardian is related to a child
type RelationshipKind string

const (
	RelationshipMother           RelationshipKind = "mother"
	RelationshipFather           RelationshipKind = "father"
	RelationshipGuardian         RelationshipKind = "guardian"
	RelationshipGrandmother      RelationshipKind = "grandmother"
	RelationshipGrandfather      RelationshipKind = "grandfather"
	RelationshipEmergencyContact RelationshipKind = "emergency_contact"
	RelationshipAuthorizedPickup RelationshipKind = "authorized_pickup"
	RelationshipOther            RelationshipKind = "other"
)

// RelationshipKinds lists every valid kind in display order
var RelationshipKinds = []RelationshipKind{
	RelationshipMother,
	RelationshipFather,
	RelationshipGuardian,
	RelationshipGrandmother,
	RelationshipGrandfather,
	RelationshipEmergencyContact,
	RelationshipAuthorizedPickup,
	RelationshipOther,
}

// Valid reports whether k is one of the known kinds
func (k RelationshipKind) Valid() bool {
	for _, kind := range RelationshipKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// ChildRelationship links a user to a child. There is at most one edge per
// (UserID, ChildID) pair.
type ChildRelationship struct {
	UserID           int64            `json:"user_id"`
	ChildID          int64            `json:"child_id"`
	Kind             RelationshipKind `json:"relationship_type"`
	IsPrimaryContact bool             `json:"is_primary_contact"`
	CreatedAt        time.Time        `json:"created_at"`
}

// Guardian is a user as seen from one of their children
type Guardian struct {
	User             User             `json:"user"`
	Kind             RelationshipKind `json:"relationship_type"`
	IsPrimaryContact bool             `json:"is_primary_contact"`
	LinkedAt         time.Time        `json:"linked_at"`
}
