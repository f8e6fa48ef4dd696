package store

import (
	"errors"

	"github.com/mattn/go-sqlite3"
)

// ErrConflict reports a unique constraint violation.
var ErrConflict = errors.New("store: unique constraint violated")

// IsTransient reports whether err is a lock or busy condition that may clear
// on a later attempt.
func IsTransient(err error) bool {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code == sqlite3.ErrBusy || se.Code == sqlite3.ErrLocked
}

func conflict(err error) error {
	var se sqlite3.Error
	if errors.As(err, &se) &&
		(se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey) {
		return ErrConflict
	}
	return err
}
