// Package authz decides whether an actor may perform an operation on a listing.
// Decisions are pure functions of the actor, the resource owner and the operation.
package authz

import "github.com/Abdurahmanit/GroupProject/property-service/internal/listing/domain"

// Decision is the outcome of an authorization check.
type Decision struct {
	Allowed   bool
	Operation domain.Operation
	Reason    domain.DenyReason
}

// Err returns nil for an allow, or an *domain.AccessDeniedError.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return &domain.AccessDeniedError{Operation: d.Operation, Reason: d.Reason}
}

func allow(op domain.Operation) Decision { return Decision{Allowed: true, Operation: op} }

func deny(op domain.Operation, reason domain.DenyReason) Decision {
	return Decision{Operation: op, Reason: reason}
}

// Authorize applies the role and ownership rules. resourceOwnerID is ignored
// for operations that do not target an existing listing.
func Authorize(actor domain.Actor, resourceOwnerID string, op domain.Operation) Decision {
	switch actor.Role {
	case domain.RoleAdmin:
		return allow(op)
	case domain.RoleAgent:
		switch op {
		case domain.OpCreate, domain.OpViewOwn:
			return allow(op)
		case domain.OpManageAll:
			return deny(op, domain.ReasonInsufficientRole)
		}
		if actor.ID != "" && actor.ID == resourceOwnerID {
			return allow(op)
		}
		return deny(op, domain.ReasonNotOwner)
	default:
		return deny(op, domain.ReasonInsufficientRole)
	}
}
