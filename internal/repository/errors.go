// Package repository holds the persistence layer of the booking engine.
// It exposes a single Store abstraction with a MySQL implementation and
// an in-memory implementation used by tests and local development.
// The sentinel values below allow services to distinguish missing rows
// and uniqueness violations without knowing which backend produced them.
package repository

import (
	"errors"
	"strings"
)

// ErrNotFound is returned when the requested row does not exist.
// Services translate it into an apperr NotFound naming the entity.
var ErrNotFound = errors.New("record not found")

// ErrDuplicate is returned when an insert violates a unique key, such
// as two rooms racing for the same room number.
var ErrDuplicate = errors.New("duplicate record")

// ErrConflict is returned when a delete cannot be performed because of
// dependent rows, such as removing a room that still has screenings.
var ErrConflict = errors.New("conflict")

// isDuplicateKey recognises MySQL error 1062 the same way user creation
// always has: by its code in the message.
func isDuplicateKey(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "1062")
}

// isForeignKeyViolation recognises MySQL errors 1451/1452.
func isForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "1451") || strings.Contains(msg, "1452")
}
