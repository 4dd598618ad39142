package domain

import (
	"errors"
	"strings"
)

// ErrEmptyUsername is returned when a user has no username.
var ErrEmptyUsername = errors.New("username cannot be empty")

// User identifies the caller. Authentication happens outside the domain; the
// domain only needs the username that owns experiments and submits trials.
type User struct {
	Username string `json:"username"`
}

// NewUser creates a User after trimming the username.
// Returns ErrEmptyUsername if nothing is left.
func NewUser(username string) (User, error) {
	u := User{Username: strings.TrimSpace(username)}
	if err := u.Validate(); err != nil {
		return User{}, err
	}
	return u, nil
}

// Validate checks if the User has valid data.
func (u User) Validate() error {
	if u.Username == "" {
		return ErrEmptyUsername
	}
	return nil
}
