package domain

import "github.com/google/uuid"

// Role is the authorization role attached to an acting user.
type Role string

const (
	RoleCustomer  Role = "CUSTOMER"
	RoleAdmin     Role = "ADMIN"
	RoleTourGuide Role = "TOUR_GUIDE"

	// RoleSystem is used by internal drivers: the expiry sweeper and the
	// payment notification channel. It is never minted into a JWT.
	RoleSystem Role = "SYSTEM"
)

// Actor identifies who is attempting an operation.
type Actor struct {
	ID   uuid.UUID
	Role Role
}

// SystemActor returns the actor used by background jobs and the payment
// notification channel.
func SystemActor() Actor {
	return Actor{Role: RoleSystem}
}

func (a Actor) IsAdmin() bool  { return a.Role == RoleAdmin }
func (a Actor) IsSystem() bool { return a.Role == RoleSystem }

// Owns reports whether the actor is the customer owning the given user id.
func (a Actor) Owns(userID uuid.UUID) bool {
	return a.Role == RoleCustomer && a.ID == userID
}
