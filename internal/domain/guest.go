package domain

import (
	"fmt"
	"strings"
	"time"
)

// Guest identity is captured at first login and refreshed afterwards;
// there is no guest password or passcode.
type Guest struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type GuestLoginRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

func (r *GuestLoginRequest) Normalize() {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Name = strings.TrimSpace(r.Name)
}

func (r *GuestLoginRequest) Validate() error {
	if r.Email == "" {
		return fmt.Errorf("%w: email is required", ErrValidation)
	}
	if !emailRegex.MatchString(r.Email) {
		return fmt.Errorf("%w: invalid email format", ErrValidation)
	}
	if r.Name == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	return nil
}
