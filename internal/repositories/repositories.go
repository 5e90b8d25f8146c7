package repositories

import (
	"errors"
	"strings"
)

var (
	ErrTrackNotFound = errors.New("track not found")
	ErrUserNotFound  = errors.New("user not found")
	ErrDuplicate     = errors.New("record already exists")
)

// isUniqueViolation reports whether err came from a UNIQUE or PRIMARY KEY constraint.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint")
}

// NoLimit asks TrackRepository.List for every row from offset on.
const NoLimit = -1

// pageLimit maps a negative limit to SQLite's "no limit". A zero limit selects nothing.
func pageLimit(limit int) int {
	if limit < 0 {
		return -1
	}
	return limit
}
