package domain

import "errors"

var (
	// ErrOutOfRange is returned when a construction parameter lies outside its domain.
	ErrOutOfRange = errors.New("parameter out of range")
	// ErrMissingArgument is returned when a required construction argument is absent.
	ErrMissingArgument = errors.New("missing argument")
)
