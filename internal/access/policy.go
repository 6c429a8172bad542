// Package access decides whether an actor may act on a program.  Items
// have no ownership of their own; every item operation is checked
// against the owning program.
package access

import "github.com/iliyamo/program-planner/internal/model"

// Action is an operation requested on a program.
type Action string

const (
	ActionRead   Action = "read"
	ActionWrite  Action = "write"
	ActionDelete Action = "delete"
	ActionShare  Action = "share"
	// ActionReadShared is a read that arrived through the public share
	// token rather than the internal identifier.
	ActionReadShared Action = "read_shared"
)

// Actor identifies the caller.  The zero value is an anonymous caller.
type Actor struct {
	UserID        uint64
	Admin         bool
	Authenticated bool
}

// Anonymous returns an unauthenticated actor.
func Anonymous() Actor { return Actor{} }

// User returns an authenticated actor.
func User(id uint64, admin bool) Actor {
	return Actor{UserID: id, Admin: admin, Authenticated: true}
}

// CanAccess returns whether actor may perform action on p.
//
// Anyone may read a shared program through its token.  Every other action
// needs an authenticated caller that either owns p or is an administrator.
// Callers report a denial as "not found" so existence does not leak.
func CanAccess(actor Actor, p *model.Program, action Action) bool {
	if p == nil {
		return false
	}
	if action == ActionReadShared {
		return p.IsShared()
	}
	if !actor.Authenticated {
		return false
	}
	switch action {
	case ActionRead, ActionWrite, ActionDelete, ActionShare:
	default:
		return false
	}
	if actor.Admin {
		return true
	}
	return p.OwnerID == actor.UserID
}
