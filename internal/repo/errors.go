package repo

import "errors"

// ErrNotFound is returned when a looked-up entity does not exist.
var ErrNotFound = errors.New("not found")
