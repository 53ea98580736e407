package store

import "errors"

var (
	ErrNotFound = errors.New("job not found")
	ErrLocked   = errors.New("store is locked by another run")
)
