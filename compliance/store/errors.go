package store

import "errors"

// ErrDuplicateID is returned when a batch contains an ID that already exists.
var ErrDuplicateID = errors.New("duplicate record id")
