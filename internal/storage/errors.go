package storage

import "errors"

// ErrUnavailable indicates the durable store could not be reached or the
// operation could not be completed against it.
var ErrUnavailable = errors.New("storage unavailable")

// ErrNotFound indicates the requested record does not exist.
var ErrNotFound = errors.New("record not found")
