package settingsdb

import "errors"

var (
	// ErrNotFound indicates the requested settings row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNoRowsAffected indicates an update matched no rows.
	ErrNoRowsAffected = errors.New("no rows affected")
)
