package domain

import "time"

type User struct {
	ID              int64        `json:"id"`
	Username        string       `json:"username"`
	Email           string       `json:"email"`
	Role            Role         `json:"role"`
	Permissions     []Permission `json:"permissions"`
	PasswordHash    string       `json:"-"`
	RememberToken   string       `json:"-"`
	EmailVerifiedAt *time.Time   `json:"email_verified_at"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// HasVerifiedEmail indica si el usuario ya confirmo su correo.
func (u User) HasVerifiedEmail() bool {
	return u.EmailVerifiedAt != nil
}

// Can combina los permisos del rol con los asignados explicitamente.
func (u User) Can(p Permission) bool {
	if u.Role.Grants(p) {
		return true
	}
	for _, granted := range u.Permissions {
		if granted == p {
			return true
		}
	}
	return false
}
