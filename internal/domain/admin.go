package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

type Hotel struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Admin accounts are created out-of-band; this service only reads them
// and records verification side effects.
type Admin struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	HotelID   int64     `json:"hotel_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AdminVerification is a single-use emailed passcode bound to one admin.
// Several unexpired records may coexist for the same admin; the newest
// matching one wins at verification time.
type AdminVerification struct {
	ID        int64     `json:"id"`
	AdminID   int64     `json:"admin_id"`
	Passcode  string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
	Used      bool      `json:"used"`
	CreatedAt time.Time `json:"created_at"`
}

func (v *AdminVerification) IsExpired() bool {
	return time.Now().After(v.ExpiresAt)
}

func (v *AdminVerification) IsUsable() bool {
	return !v.Used && !v.IsExpired()
}

const (
	PasscodeLength = 6

	// Used passcode records older than this are deleted opportunistically
	// after a successful verification.
	StaleUsedRetention = 24 * time.Hour
)

var (
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	passcodeRegex = regexp.MustCompile(`^\d{6}$`)
)

type RequestVerificationRequest struct {
	Email string `json:"email"`
}

type VerifyPasscodeRequest struct {
	Email    string `json:"email"`
	Passcode string `json:"passcode"`
}

func (r *RequestVerificationRequest) Normalize() {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
}

func (r *RequestVerificationRequest) Validate() error {
	if r.Email == "" {
		return fmt.Errorf("%w: email is required", ErrValidation)
	}
	if !emailRegex.MatchString(r.Email) {
		return fmt.Errorf("%w: invalid email format", ErrValidation)
	}
	return nil
}

func (r *VerifyPasscodeRequest) Normalize() {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Passcode = strings.TrimSpace(r.Passcode)
}

func (r *VerifyPasscodeRequest) Validate() error {
	if r.Email == "" {
		return fmt.Errorf("%w: email is required", ErrValidation)
	}
	if !emailRegex.MatchString(r.Email) {
		return fmt.Errorf("%w: invalid email format", ErrValidation)
	}
	if r.Passcode == "" {
		return fmt.Errorf("%w: passcode is required", ErrValidation)
	}
	if !passcodeRegex.MatchString(r.Passcode) {
		return fmt.Errorf("%w: passcode must be %d digits", ErrValidation, PasscodeLength)
	}
	return nil
}

// CreateVerificationResult carries the plaintext passcode back to the
// caller for out-of-band delivery.
type CreateVerificationResult struct {
	Passcode  string
	ExpiresAt time.Time
}

type VerifyPasscodeResult struct {
	AdminID int64
	HotelID int64
}
