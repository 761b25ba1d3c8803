package moderationdb

import "errors"

var (
	// ErrNotFound is returned when no row matches.
	ErrNotFound = errors.New("not found")

	// ErrNoRowsAffected is returned when an update or delete changed nothing.
	ErrNoRowsAffected = errors.New("no rows affected")
)
