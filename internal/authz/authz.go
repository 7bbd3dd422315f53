// Package authz holds the ownership rule shared by every owned resource.
package authz

import "errors"

// Actor is the authenticated user performing an operation. It is supplied
// by the caller (session or token middleware); services never look it up
// from ambient state.
type Actor struct {
	UserID  int64
	IsAdmin bool
}

// System is the actor used by command-line administration
var System = Actor{IsAdmin: true}

// Owned is implemented by resources with a single owning user
type Owned interface {
	OwnerID() int64
}

// CanMutate reports whether the acting user may change or delete a
// resource owned by ownerID: owners and admins may.
func CanMutate(ownerID, actingUserID int64, actingIsAdmin bool) bool {
	return ownerID == actingUserID || actingIsAdmin
}

// CanMutate applies the ownership rule to r
func (a Actor) CanMutate(r Owned) bool {
	return CanMutate(r.OwnerID(), a.UserID, a.IsAdmin)
}

// ErrForbidden is returned when the actor may not perform an operation
var ErrForbidden = errors.New("forbidden")

// RequireAdmin returns ErrForbidden unless the actor is an admin
func RequireAdmin(a Actor) error {
	if !a.IsAdmin {
		return ErrForbidden
	}
	return nil
}
