package models

import "strings"

// Role is the actor kind returned by the auth endpoints.
type Role string

const (
	RoleStudent Role = "STUDENT"
	RoleAdmin   Role = "ADMIN"
)

// Home returns the landing path for the role. Anything that is not ADMIN
// is treated as a student.
func (r Role) Home() string {
	if r == RoleAdmin {
		return "/admin"
	}
	return "/student"
}

// Gender is used both for students and for room allocation.
type Gender string

const (
	GenderMale   Gender = "MALE"
	GenderFemale Gender = "FEMALE"
)

// Genders lists the values offered by registration and room forms.
var Genders = []Gender{GenderMale, GenderFemale}

// AuthResponse is the payload of a successful login or registration.
type AuthResponse struct {
	Token string `json:"token"`
	Role  Role   `json:"role"`
}

// LoginRequest is sent to POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest is sent to POST /api/auth/register.
type RegisterRequest struct {
	FullName string `json:"fullName" validate:"required,max=120"`
	Email    string `json:"email" validate:"required,email,max=200"`
	Phone    string `json:"phone" validate:"required,max=30"`
	Gender   Gender `json:"gender" validate:"required,oneof=MALE FEMALE"`
	Password string `json:"password" validate:"required,min=6,max=100"`
}

// StudentProfile is the profile of the signed in student.
type StudentProfile struct {
	ID              int64  `json:"id"`
	FullName        string `json:"fullName"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	Gender          Gender `json:"gender"`
	ProfileImageURL string `json:"profileImageUrl,omitempty"`
}

// Initials returns up to two letters taken from the first and last name.
func (p StudentProfile) Initials() string {
	words := strings.Fields(p.FullName)
	if len(words) == 0 {
		return "?"
	}
	first := []rune(words[0])[:1]
	if len(words) == 1 {
		return strings.ToUpper(string(first))
	}
	last := []rune(words[len(words)-1])[:1]
	return strings.ToUpper(string(first) + string(last))
}

// UpdateProfileRequest is sent to PUT /api/student/profile. Email and
// gender are not part of it: students cannot change them.
type UpdateProfileRequest struct {
	FullName        string `json:"fullName" validate:"required,max=120"`
	Phone           string `json:"phone" validate:"max=30"`
	ProfileImageURL string `json:"profileImageUrl,omitempty"`
}
