package rbac

// Guard failure reasons surfaced to the caller. These are user-facing strings
// rendered inline by the front end.
const (
	ReasonSelfChange         = "you cannot change your own role"
	ReasonInsufficientGrant  = "insufficient privilege to grant this role"
	ReasonInsufficientManage = "insufficient privilege to manage this user"
	ReasonScopeMismatch      = "business accounts cannot assign platform roles"
	ReasonBusinessMismatch   = "target user belongs to a different business"
)

// CanChangeRole decides whether req.Actor may move req.Target from its
// current role to req.RequestedRole. The decision is pure: all inputs are
// explicit and the catalog is read-only, so identical requests always produce
// identical decisions.
//
// Guards run in a fixed order and the first failure wins: no-op, self-change,
// hierarchy, then scope. Hierarchy runs before scope because privilege
// escalation is the more severe failure mode. Callers are expected to treat a
// no-op (current == requested) as "no changes" before consulting the engine;
// if invoked anyway the engine permits it.
//
// An error is returned only when a role key is not part of the catalog.
func (c *Catalog) CanChangeRole(req RoleChangeRequest) (Decision, error) {
	actorRole, err := c.GetRole(req.Actor.Role)
	if err != nil {
		return Decision{}, err
	}
	currentRole, err := c.GetRole(req.Target.Role)
	if err != nil {
		return Decision{}, err
	}
	requestedRole, err := c.GetRole(req.RequestedRole)
	if err != nil {
		return Decision{}, err
	}

	if currentRole.Key == requestedRole.Key {
		return Decision{Allowed: true}, nil
	}

	if req.Actor.UserID == req.Target.UserID {
		return Decision{Reason: ReasonSelfChange}, nil
	}

	// Hierarchy guard: an actor can never grant a role more privileged than
	// their own, nor manage a target who currently outranks them.
	if requestedRole.HierarchyLevel < actorRole.HierarchyLevel {
		return Decision{Reason: ReasonInsufficientGrant}, nil
	}
	if currentRole.HierarchyLevel < actorRole.HierarchyLevel {
		return Decision{Reason: ReasonInsufficientManage}, nil
	}

	// Scope guard: business actors stay inside their own business and only
	// hand out business roles. Infrastructure roles are reachable solely by
	// infrastructure actors, which the branch below enforces together with
	// the hierarchy guard above.
	if actorRole.Scope == ScopeBusiness {
		if requestedRole.Scope != ScopeBusiness {
			return Decision{Reason: ReasonScopeMismatch}, nil
		}
		if req.Actor.BusinessID != req.Target.BusinessID {
			return Decision{Reason: ReasonBusinessMismatch}, nil
		}
	}

	// Promotion into an owner-level role by a non-owner actor is allowed but
	// flagged for an extra approval step.
	requiresApproval := OwnerRole(requestedRole.Key) &&
		!OwnerRole(currentRole.Key) &&
		!OwnerRole(actorRole.Key)

	return Decision{Allowed: true, RequiresApproval: requiresApproval}, nil
}
