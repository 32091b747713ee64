package model

import "strings"

// User is a backend user account
type User struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	IsAdmin   bool   `json:"isAdmin"`
}

// FullName returns "First Last", falling back to the email
func (u *User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Email
	}
	return name
}

// UserUpdate is the body of a user edit. The backend requires all three
// fields on every request.
type UserUpdate struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

// Complete reports whether every required field is set
func (u UserUpdate) Complete() bool {
	return strings.TrimSpace(u.FirstName) != "" &&
		strings.TrimSpace(u.LastName) != "" &&
		strings.TrimSpace(u.Email) != ""
}

// AuthUser is the session's view of the logged-in user
type AuthUser struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name,omitempty"`
	IsAdmin bool   `json:"isAdmin"`
}

// AuthUserFrom builds the session user from a fetched profile
func AuthUserFrom(u User) *AuthUser {
	return &AuthUser{
		ID:      u.ID,
		Email:   u.Email,
		Name:    u.FullName(),
		IsAdmin: u.IsAdmin,
	}
}

// Credentials is the login request body
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenPair is returned by login and refresh
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}
