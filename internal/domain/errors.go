package domain

import (
	"errors"
	"fmt"
)

var (
	ErrPathSyntax           = errors.New("malformed path")
	ErrPathIndex            = errors.New("path index out of range")
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrInvalidLocale        = errors.New("invalid locale")
	ErrInvalidUser          = errors.New("invalid user")
	ErrInvalidCoverageLevel = errors.New("invalid coverage level")
	ErrInvalidReportKind    = errors.New("invalid report kind")
	ErrInvalidCategory      = errors.New("invalid category")
	ErrInvalidVoteType      = errors.New("invalid vote type")
	ErrInvalidValueStatus   = errors.New("invalid value status")
)

// PathSyntaxError describes where and why a path string failed to parse.
type PathSyntaxError struct {
	Path   string
	Offset int
	Reason string
}

// Error implements error.
func (e *PathSyntaxError) Error() string {
	return fmt.Sprintf("malformed path %q at offset %d: %s", e.Path, e.Offset, e.Reason)
}

// Unwrap lets errors.Is match ErrPathSyntax.
func (e *PathSyntaxError) Unwrap() error {
	return ErrPathSyntax
}

// PathIndexError reports an element index outside the path after negative adjustment.
type PathIndexError struct {
	Index int
	Size  int
}

// Error implements error.
func (e *PathIndexError) Error() string {
	return fmt.Sprintf("path index %d out of range for %d elements", e.Index, e.Size)
}

// Unwrap lets errors.Is match ErrPathIndex.
func (e *PathIndexError) Unwrap() error {
	return ErrPathIndex
}
