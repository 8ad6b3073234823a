package models

// EntityStatus is the lifecycle state shared by accounts, users, and bots.
// Records are soft-deleted by moving to StatusDeleted; they are never removed
// physically outside of provisioning rollback.
type EntityStatus string

const (
	StatusActive  EntityStatus = "active"
	StatusDeleted EntityStatus = "deleted"
)

// Valid reports whether the value is a known entity status.
func (s EntityStatus) Valid() bool {
	return s == StatusActive || s == StatusDeleted
}

// CanTransition validates lifecycle moves for account/user/bot records.
// Deleted is terminal.
func (s EntityStatus) CanTransition(to EntityStatus) bool {
	if !s.Valid() || !to.Valid() || s == to {
		return false
	}
	return s == StatusActive && to == StatusDeleted
}

// AccessStatus is the lifecycle state of a collaborator grant.
type AccessStatus string

const (
	AccessInviteNotAccepted AccessStatus = "invite_not_accepted"
	AccessActive            AccessStatus = "active"
	AccessInactive          AccessStatus = "inactive"
	AccessDeleted           AccessStatus = "deleted"
)

// Valid reports whether the value is a known access status.
func (s AccessStatus) Valid() bool {
	switch s {
	case AccessInviteNotAccepted, AccessActive, AccessInactive, AccessDeleted:
		return true
	}
	return false
}

// accessTransitions encodes the grant lifecycle: a pending invite can only be
// accepted or revoked, active and inactive grants flip freely or get revoked,
// and deleted is terminal for the (bot, email) pair until a fresh invite.
var accessTransitions = map[AccessStatus][]AccessStatus{
	AccessInviteNotAccepted: {AccessActive, AccessDeleted},
	AccessActive:            {AccessInactive, AccessDeleted},
	AccessInactive:          {AccessActive, AccessDeleted},
	AccessDeleted:           {},
}

// CanTransition reports whether a grant may move from s to the target status.
func (s AccessStatus) CanTransition(to AccessStatus) bool {
	for _, allowed := range accessTransitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

// AccessRole enumerates collaborator roles on a bot.
type AccessRole string

const (
	RoleAdmin    AccessRole = "admin"
	RoleDesigner AccessRole = "designer"
	RoleTester   AccessRole = "tester"
)

// Valid reports whether the value is a known role.
func (r AccessRole) Valid() bool {
	return r == RoleAdmin || r == RoleDesigner || r == RoleTester
}

// Allows reports whether a holder of role r clears the required role.
// Roles form a strict chain: admin > designer > tester.
func (r AccessRole) Allows(required AccessRole) bool {
	rank := map[AccessRole]int{RoleAdmin: 3, RoleDesigner: 2, RoleTester: 1}
	return rank[r] >= rank[required] && rank[required] > 0
}
