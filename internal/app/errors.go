package app

import "errors"

// ErrNotFound and related errors describe validation and runtime failures.
var (
	ErrNotFound        = errors.New("not found")
	ErrNoSourceData    = errors.New("vetting scope has no source data")
	ErrLocaleMismatch  = errors.New("data handle locale does not match scope locale")
	ErrInvalidParallel = errors.New("parallelism must be >= 1")
)
