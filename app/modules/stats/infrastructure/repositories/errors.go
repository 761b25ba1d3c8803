package statsdb

import "errors"

// ErrNotFound indicates the requested stats row does not exist.
var ErrNotFound = errors.New("not found")
