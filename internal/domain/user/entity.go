package user

import "time"

type Role string

const (
	RoleAdmin  Role = "admin"  // Tenant administrator
	RoleWorker Role = "worker" // Regular worker
)

type User struct {
	ID           string
	TenantID     string
	Email        string
	PasswordHash *string
	FullName     string
	Role         Role
	// GeofenceExempt marks freelance workers who bypass the radius check
	// but still receive best-effort distance readings.
	GeofenceExempt  bool
	OAuthProvider   *string
	OAuthProviderID *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IsAdmin checks if user can access tenant-wide surfaces.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
