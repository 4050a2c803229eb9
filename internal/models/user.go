package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin   UserRole = "admin"
	RoleTeacher UserRole = "teacher"
	RoleStudent UserRole = "student"
)

// Valid reports whether r is one of the known roles.
func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleTeacher, RoleStudent:
		return true
	}
	return false
}

// User represents an account stored in the users table.
// Approved only gates students; admins and teachers are created approved.
type User struct {
	ID           string     `db:"id" json:"id"`
	Name         string     `db:"name" json:"name"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	Role         UserRole   `db:"role" json:"role"`
	Approved     bool       `db:"approved" json:"approved"`
	Department   *string    `db:"department" json:"department,omitempty"`
	Subject      *string    `db:"subject" json:"subject,omitempty"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// IsApproved applies the rule that only students wait for approval.
func (u *User) IsApproved() bool {
	return u.Role != RoleStudent || u.Approved
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role     *UserRole
	Approved *bool
}

// UserSummary is the projection of a user embedded in other records.
// It never carries credential data.
type UserSummary struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Email      string  `json:"email,omitempty"`
	Department *string `json:"department,omitempty"`
	Subject    *string `json:"subject,omitempty"`
}

// Projection selects which user fields populate a summary.
type Projection int

const (
	ProjectName Projection = iota
	ProjectNameEmail
	ProjectTeacherProfile
)

// Summary projects u into a UserSummary. A nil user yields nil.
func (u *User) Summary(p Projection) *UserSummary {
	if u == nil {
		return nil
	}
	s := &UserSummary{ID: u.ID, Name: u.Name}
	switch p {
	case ProjectNameEmail:
		s.Email = u.Email
	case ProjectTeacherProfile:
		s.Department = u.Department
		s.Subject = u.Subject
	}
	return s
}
