package domain

import (
	"fmt"
	"slices"
	"strings"
)

// Category identifies one problem class a vetting pass can report.
type Category string

// Category values.
const (
	CategoryError           Category = "error"
	CategoryMissingCoverage Category = "missing_coverage"
	CategoryNotApproved     Category = "not_approved"
)

// validCategories stores supported categories in canonical order.
var validCategories = []Category{
	CategoryError,
	CategoryMissingCoverage,
	CategoryNotApproved,
}

// Categories returns all categories in canonical order.
func Categories() []Category {
	return append([]Category(nil), validCategories...)
}

// NormalizeCategory canonicalizes one category value.
func NormalizeCategory(c Category) Category {
	return Category(strings.ReplaceAll(strings.TrimSpace(strings.ToLower(string(c))), "-", "_"))
}

// IsValidCategory reports whether a category is supported.
func IsValidCategory(c Category) bool {
	return slices.Contains(validCategories, NormalizeCategory(c))
}

// ParseCategories normalizes, validates and deduplicates raw category names.
func ParseCategories(raw []string) ([]Category, error) {
	out := make([]Category, 0, len(raw))
	for _, item := range raw {
		c := NormalizeCategory(Category(item))
		if c == "" {
			continue
		}
		if !IsValidCategory(c) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidCategory, item)
		}
		if !slices.Contains(out, c) {
			out = append(out, c)
		}
	}
	return out, nil
}
