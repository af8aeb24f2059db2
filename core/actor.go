package core

import "laundry-api/models"

// Actor is the authenticated caller of a core operation
type Actor struct {
	ID   string
	Role models.UserRole
}

func (a Actor) Is(role models.UserRole) bool {
	return a.ID != "" && a.Role == role
}

// require fails with ErrUnauthorized unless the actor holds one of roles
func (a Actor) require(roles ...models.UserRole) error {
	for _, r := range roles {
		if a.Is(r) {
			return nil
		}
	}
	return ErrUnauthorized
}
