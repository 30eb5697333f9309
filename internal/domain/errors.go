package domain

import "errors"

var (
	// ErrNotFound indicates an empty repository lookup.
	ErrNotFound = errors.New("domain: not found")
)
