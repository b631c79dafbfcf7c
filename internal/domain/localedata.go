package domain

import (
	"context"
	"fmt"
	"strings"
)

// ValueStatus describes how a path's value was found in a locale.
type ValueStatus string

// ValueStatus values.
const (
	ValueStatusPresent   ValueStatus = "present"
	ValueStatusInherited ValueStatus = "inherited"
	ValueStatusAbsent    ValueStatus = "absent"
)

// ParseValueStatus normalizes and validates one value status.
func ParseValueStatus(raw string) (ValueStatus, error) {
	status := ValueStatus(strings.TrimSpace(strings.ToLower(raw)))
	switch status {
	case ValueStatusPresent, ValueStatusInherited, ValueStatusAbsent:
		return status, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidValueStatus, raw)
	}
}

// ResolvedValue is the outcome of looking a path up in one locale.
type ResolvedValue struct {
	Value        string      `json:"value"`
	SourceLocale LocaleID    `json:"source_locale"`
	Status       ValueStatus `json:"status"`
}

// IsInheritedFromRoot reports whether the value only exists through the root locale.
func (v ResolvedValue) IsInheritedFromRoot() bool {
	return v.Status == ValueStatusInherited && v.SourceLocale == RootLocale
}

// LocaleDataReader is the path-addressable read capability the core consumes.
type LocaleDataReader interface {
	Locale() LocaleID
	Paths(ctx context.Context) ([]string, error)
	Resolve(ctx context.Context, path PathAddress) (ResolvedValue, error)
}
