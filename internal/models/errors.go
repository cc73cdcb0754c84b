package models

import "errors"

var (
	// ErrTypeMismatch reports input rasters of the wrong kind or shape
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrInvalidConfiguration reports contradictory or out-of-range parameters
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrTooManyRegions reports an object whose boundary has more concave
	// regions than the configured cap. The object is left uncut.
	ErrTooManyRegions = errors.New("too many concave regions")
)
