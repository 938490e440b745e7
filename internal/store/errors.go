package store

import (
	"errors"
	"strings"
)

// ErrNotFound is returned when a requested resource does not exist in the database.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write violates a uniqueness/conflict constraint.
var ErrConflict = errors.New("conflict")

// isUniqueViolation recognizes the SQLite unique-constraint error text.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
