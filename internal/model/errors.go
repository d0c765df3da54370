package model

import "errors"

var (
	// ErrNotFound is returned when a widget or dashboard does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when creating a dashboard whose URL is taken.
	ErrConflict = errors.New("already exists")
	// ErrInvalid is returned for descriptors that fail validation.
	ErrInvalid = errors.New("invalid")
)
