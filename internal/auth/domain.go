package auth

import "time"

// SystemAuthor is the author sentinel recorded on system-created records.
const SystemAuthor = "System"

// Principal represents a login-capable account.
type Principal struct {
	ID           string
	Username     string
	PasswordHash string
	RoleID       string
	Author       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Role is the credential-store view of a role used during authentication and
// bootstrap.
type Role struct {
	ID          string
	Name        string
	Author      string
	Permissions []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
