package users

import "time"

// User is a login-capable principal. PasswordHash never leaves the package;
// listings expose the joined role name for display.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	RoleID       string    `json:"roleId"`
	RoleName     string    `json:"roleName"`
	Author       string    `json:"author"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// CreateInput carries the writable fields for user creation.
type CreateInput struct {
	Username        string `json:"username" validate:"required,min=3,max=64"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
	RoleID          string `json:"roleId" validate:"required,uuid4"`
}

// UpdateInput carries the writable fields for user updates. An empty password
// leaves the stored credential untouched.
type UpdateInput struct {
	Username        string `json:"username" validate:"required,min=3,max=64"`
	Password        string `json:"password" validate:"omitempty,min=6"`
	ConfirmPassword string `json:"confirmPassword"`
	RoleID          string `json:"roleId" validate:"required,uuid4"`
}
