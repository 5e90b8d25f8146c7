// package models defines the data model for the music server
package models

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidModel = errors.New("invalid model")
)

const (
	MinUsernameLength = 4
	MaxUsernameLength = 32
	MinPasswordLength = 8
)

// Model defines the base interface for all persistent models.
type Model interface {
	Validate() error // Validate checks if the model's data is valid and returns an error if not
}

// Track is a playable file in the collection.
//
// Every field except ID and Filename is optional: empty strings and non-positive
// numbers mean the tag is unknown.
type Track struct {
	ID          int64
	Filename    string
	TrackNumber int
	Title       string
	Artist      string
	Album       string
	Genre       string
	Comment     string
	Year        int
	Length      int // Length in seconds
	CreatedAt   time.Time
}

// Validate requires a filename; tag fields are free-form.
func (t *Track) Validate() error {
	if t.Filename == "" {
		return fmt.Errorf("%w: track filename is required", ErrInvalidModel)
	}
	if t.TrackNumber < 0 || t.Year < 0 || t.Length < 0 {
		return fmt.Errorf("%w: track numbers must not be negative", ErrInvalidModel)
	}
	return nil
}

// User is an account allowed to open sessions.
type User struct {
	ID        int64
	Username  string
	Password  string
	CreatedAt time.Time
}

// Validate applies the account rules: username between 4 and 32 characters, password at least 8.
func (u *User) Validate() error {
	if n := len(u.Username); n < MinUsernameLength || n > MaxUsernameLength {
		return fmt.Errorf("%w: username must be between %d and %d characters long", ErrInvalidModel, MinUsernameLength, MaxUsernameLength)
	}
	if len(u.Password) < MinPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters long", ErrInvalidModel, MinPasswordLength)
	}
	return nil
}

// Credentials returns the handshake view of the user.
func (u *User) Credentials() Credentials {
	return Credentials{OwnerID: u.ID, StoredSecret: u.Password}
}

// Credentials is what the handshake needs to know about a user.
type Credentials struct {
	OwnerID      int64
	StoredSecret string
}

// Session is a token issued by a handshake. ExpiresAt is a unix timestamp in seconds.
type Session struct {
	Token     string
	OwnerID   int64
	ExpiresAt int64
}

// Validate requires a token and an owner.
func (s *Session) Validate() error {
	if s.Token == "" {
		return fmt.Errorf("%w: session token is required", ErrInvalidModel)
	}
	if s.OwnerID <= 0 {
		return fmt.Errorf("%w: session owner is required", ErrInvalidModel)
	}
	return nil
}

// IsLive reports whether the session is still valid at now.
func (s *Session) IsLive(now time.Time) bool {
	return now.Unix() < s.ExpiresAt
}

// Expiry returns ExpiresAt as a [time.Time].
func (s *Session) Expiry() time.Time {
	return time.Unix(s.ExpiresAt, 0)
}

// StreamDescriptor locates the bytes of a playable track.
type StreamDescriptor struct {
	Path string
	Size int64
	MIME string
}
