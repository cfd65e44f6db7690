package model

import "time"

// Roles.
const (
	RoleAdmin = "admin"
)

// User is an account row.
type User struct {
	UID       string
	Email     string
	Name      string
	Role      string
	AuthHash  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Profile returns the public part of u.
func (u *User) Profile() Profile {
	return Profile{UID: u.UID, Email: u.Email, Name: u.Name, Role: u.Role}
}

// Profile is user data safe for API responses.
type Profile struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// SignUpRequest is the body of POST /auth/v1/accounts/signUp.
type SignUpRequest struct {
	Email             string `json:"email" validate:"required,email"`
	Password          string `json:"password" validate:"required,min=6"`
	DisplayName       string `json:"displayName,omitempty"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

// SignInRequest is the body of POST /auth/v1/accounts/signInWithPassword.
type SignInRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

// LookupRequest is the body of POST /auth/v1/accounts/lookup.
type LookupRequest struct {
	IDToken string `json:"idToken"`
}

// Account is the provider's answer to sign-up and sign-in.
type Account struct {
	IDToken     string `json:"idToken,omitempty"`
	LocalID     string `json:"localId"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName,omitempty"`
	ExpiresIn   string `json:"expiresIn,omitempty"`
}

// LookupResponse is the provider's answer to lookup.
type LookupResponse struct {
	Users []Account `json:"users"`
}

// ProviderErrorBody is the provider error envelope.
type ProviderErrorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// CreateAdminRequest creates or refreshes the profile of a provider account.
type CreateAdminRequest struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name"`
	UID   string `json:"uid" validate:"required"`
}

// VerifyRequest is the body of POST /api/auth/verify.
type VerifyRequest struct {
	Token string `json:"token"`
}

// VerifyResponse reports whether a token is still good and for whom.
type VerifyResponse struct {
	Valid bool     `json:"valid"`
	User  *Profile `json:"user,omitempty"`
}
