package dto

// CreateUserRequest describes the payload for creating an admin user.
type CreateUserRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	FullName string `json:"full_name" validate:"required"`
	Role     string `json:"role" validate:"required,oneof=SUPERADMIN ADMIN TECHNICIAN"`
}

// UpdateUserRequest is a partial user update.
type UpdateUserRequest struct {
	Email    *string `json:"email,omitempty" validate:"omitempty,email"`
	FullName *string `json:"full_name,omitempty"`
	Role     *string `json:"role,omitempty" validate:"omitempty,oneof=SUPERADMIN ADMIN TECHNICIAN"`
	Active   *bool   `json:"active,omitempty"`
}

// CreateSpecializationRequest describes the payload for a catalog entry.
type CreateSpecializationRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

// UpdateSpecializationRequest replaces a catalog entry.
type UpdateSpecializationRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	Active      *bool  `json:"active,omitempty"`
}
