package countingdb

import "errors"

var (
	// ErrNotFound is returned when a channel or save point does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned by Advance when the channel moved since it was
	// read, or was disabled.
	ErrConflict = errors.New("channel state changed concurrently")
)
