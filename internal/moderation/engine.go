// Package moderation holds the pure decision rules of the work lifecycle:
// which status a new work starts in, which status transitions are legal,
// and who may perform them. Nothing here performs I/O.
package moderation

import (
	"fmt"

	"github.com/zidesign/catalog/types"
)

// InitialStatus returns the status assigned to a work at creation.
// Admin submissions skip the moderation queue.
func InitialStatus(role types.Role) (types.Status, error) {
	switch role {
	case types.RoleAdmin:
		return types.StatusApproved, nil
	case types.RoleUser:
		return types.StatusPending, nil
	case types.RoleUnknown:
		return types.StatusUnknown, fmt.Errorf("%w: actor has no role", types.ErrUnauthorized)
	default:
		return types.StatusUnknown, fmt.Errorf("%w: unknown role %d", types.ErrUnauthorized, int(role))
	}
}

// Transition validates moving a work from one status to another on
// behalf of actor. Only admins moderate, and only pending works can be
// moved, to approved or rejected.
func Transition(actor types.User, from, to types.Status) error {
	if err := requireModerator(actor); err != nil {
		return err
	}

	switch from {
	case types.StatusPending:
	case types.StatusApproved, types.StatusRejected:
		return fmt.Errorf("%w: %s work cannot change status", types.ErrInvalidTransition, from)
	case types.StatusUnknown:
		return fmt.Errorf("%w: work has no status", types.ErrInvalidTransition)
	default:
		return fmt.Errorf("%w: unknown status %d", types.ErrInvalidTransition, int(from))
	}

	switch to {
	case types.StatusApproved, types.StatusRejected:
		return nil
	case types.StatusPending:
		return fmt.Errorf("%w: %s -> %s", types.ErrInvalidTransition, from, to)
	case types.StatusUnknown:
		return fmt.Errorf("%w: target status is required", types.ErrInvalidTransition)
	default:
		return fmt.Errorf("%w: unknown status %d", types.ErrInvalidTransition, int(to))
	}
}

// CanModerate reports whether actor may moderate at all. Repositories use
// it to reject non-admins before looking the work up.
func CanModerate(actor types.User) error {
	return requireModerator(actor)
}

// AuthorizeDelete allows deletion by the work's author or by an admin,
// whatever the work's status.
func AuthorizeDelete(actor types.User, work types.Work) error {
	switch actor.Role {
	case types.RoleAdmin:
		return nil
	case types.RoleUser:
		if actor.ID != "" && actor.ID == work.AuthorID {
			return nil
		}
		return fmt.Errorf("%w: only the author or an admin can delete this work", types.ErrUnauthorized)
	case types.RoleUnknown:
		return fmt.Errorf("%w: actor has no role", types.ErrUnauthorized)
	default:
		return fmt.Errorf("%w: unknown role %d", types.ErrUnauthorized, int(actor.Role))
	}
}

func requireModerator(actor types.User) error {
	switch actor.Role {
	case types.RoleAdmin:
		return nil
	case types.RoleUser:
		return fmt.Errorf("%w: admin access required", types.ErrUnauthorized)
	case types.RoleUnknown:
		return fmt.Errorf("%w: actor has no role", types.ErrUnauthorized)
	default:
		return fmt.Errorf("%w: unknown role %d", types.ErrUnauthorized, int(actor.Role))
	}
}
