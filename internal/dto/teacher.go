package dto

// CreateTeacherRequest is the admin payload for adding a teacher account.
type CreateTeacherRequest struct {
	Name       string `json:"name" validate:"required,max=120"`
	Email      string `json:"email" validate:"required,email,max=254"`
	Password   string `json:"password" validate:"required,min=6,max=72"`
	Department string `json:"department" validate:"max=120"`
	Subject    string `json:"subject" validate:"max=120"`
}

// UpdateTeacherRequest patches a teacher profile. Nil fields are left unchanged.
type UpdateTeacherRequest struct {
	Name       *string `json:"name" validate:"omitempty,min=1,max=120"`
	Department *string `json:"department" validate:"omitempty,max=120"`
	Subject    *string `json:"subject" validate:"omitempty,max=120"`
}
