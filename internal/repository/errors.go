package repository

import "errors"

var (
	// ErrNotFound is returned when a definition does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a conditional update matched no row because
	// another worker advanced the definition first.
	ErrConflict = errors.New("concurrent update")
)
