package model

// Teacher is a staff account record stored at teachers/{recordId}.
type Teacher struct {
	ID         string `json:"id"`
	IdentityID string `json:"identityId"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Role       Role   `json:"role"`
}

// CreateTeacherRequest provisions a new staff account.
type CreateTeacherRequest struct {
	Name     string `json:"name" binding:"required,max=255"`
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=6,max=128"`
	Role     string `json:"role" binding:"required,staffrole"`
}

// UpdateTeacherFieldRequest edits one field of a staff account.
type UpdateTeacherFieldRequest struct {
	Field string `json:"field" binding:"required,oneof=name email role"`
	Value string `json:"value" binding:"required,max=255"`
}

// DeleteTeacherRequest carries the acting admin's password.
type DeleteTeacherRequest struct {
	Password string `json:"password" binding:"required,max=128"`
}
