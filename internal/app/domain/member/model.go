package member

import "time"

// Role controls what a member may do through the API.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// Member is the tenant of the back office. Every farm record is owned by
// exactly one member.
type Member struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Email        string            `json:"email"`
	Phone        string            `json:"phone,omitempty"`
	Role         Role              `json:"role"`
	PasswordHash string            `json:"-"`
	Active       bool              `json:"active"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// IsAdmin reports whether the member can manage other members.
func (m Member) IsAdmin() bool { return m.Role == RoleAdmin }
