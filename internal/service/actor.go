package service

import "pms-backend/internal/model"

// Actor is the authenticated identity the request layer supplies with every
// operation that needs authorization.
type Actor struct {
	UserID uint
	Role   string
}

// CanModerate reports whether the actor holds one of the reviewing roles.
func (a Actor) CanModerate() bool {
	return a.Role == model.RoleApprover || a.Role == model.RoleAdmin
}

// IsAdmin reports whether the actor is an administrator.
func (a Actor) IsAdmin() bool {
	return a.Role == model.RoleAdmin
}
