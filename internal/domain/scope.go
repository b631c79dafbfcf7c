package domain

import (
	"slices"
)

// VettingScope is the immutable configuration for one vetting pass.
// With* methods return modified copies; the receiver is never changed.
type VettingScope struct {
	categories   []Category
	locale       LocaleID
	coverage     CoverageLevel
	pathFilter   *PathAddress
	user         UserID
	organization Organization
	source       LocaleDataReader
	baseline     LocaleDataReader
}

// NewVettingScope validates the required scope values. No categories means all categories.
func NewVettingScope(categories []Category, locale LocaleID, coverage CoverageLevel) (VettingScope, error) {
	locale = NormalizeLocaleID(string(locale))
	if !IsValidLocaleID(locale) {
		return VettingScope{}, ErrInvalidLocale
	}
	if !coverage.IsValid() {
		return VettingScope{}, ErrInvalidCoverageLevel
	}
	raw := make([]string, 0, len(categories))
	for _, c := range categories {
		raw = append(raw, string(c))
	}
	normalized, err := ParseCategories(raw)
	if err != nil {
		return VettingScope{}, err
	}
	if len(normalized) == 0 {
		normalized = Categories()
	}
	return VettingScope{
		categories: normalized,
		locale:     locale,
		coverage:   coverage,
	}, nil
}

// Categories returns the requested categories.
func (s VettingScope) Categories() []Category {
	return append([]Category(nil), s.categories...)
}

// HasCategory reports whether the pass should count the category.
func (s VettingScope) HasCategory(c Category) bool {
	return slices.Contains(s.categories, c)
}

// Locale returns the locale under review.
func (s VettingScope) Locale() LocaleID { return s.locale }

// Coverage returns the coverage threshold.
func (s VettingScope) Coverage() CoverageLevel { return s.coverage }

// User returns the requesting user, if any.
func (s VettingScope) User() UserID { return s.user }

// Organization returns the requesting user's organization, if any.
func (s VettingScope) Organization() Organization { return s.organization }

// Source returns the data handle under review.
func (s VettingScope) Source() LocaleDataReader { return s.source }

// Baseline returns the comparison data handle, if any.
func (s VettingScope) Baseline() LocaleDataReader { return s.baseline }

// PathFilter returns the single-path filter and whether one is active.
func (s VettingScope) PathFilter() (PathAddress, bool) {
	if s.pathFilter == nil {
		return PathAddress{}, false
	}
	return *s.pathFilter, true
}

// IsOnlyForSinglePath reports whether a single-path filter is active.
func (s VettingScope) IsOnlyForSinglePath() bool {
	return s.pathFilter != nil
}

// MatchesPath reports whether the filter admits a path; no filter admits everything.
func (s VettingScope) MatchesPath(p PathAddress) bool {
	if s.pathFilter == nil {
		return true
	}
	return s.pathFilter.Equal(p)
}

// WithSource returns a copy using src as the data under review.
func (s VettingScope) WithSource(src LocaleDataReader) VettingScope {
	s.categories = slices.Clone(s.categories)
	s.source = src
	return s
}

// WithBaseline returns a copy comparing against baseline.
func (s VettingScope) WithBaseline(baseline LocaleDataReader) VettingScope {
	s.categories = slices.Clone(s.categories)
	s.baseline = baseline
	return s
}

// WithPathFilter returns a copy restricted to one path. A zero path clears the filter.
func (s VettingScope) WithPathFilter(p PathAddress) VettingScope {
	s.categories = slices.Clone(s.categories)
	if p.IsZero() {
		s.pathFilter = nil
		return s
	}
	filter := p
	s.pathFilter = &filter
	return s
}

// WithUser returns a copy attributed to user.
func (s VettingScope) WithUser(user UserID) VettingScope {
	s.categories = slices.Clone(s.categories)
	s.user = NormalizeUserID(string(user))
	return s
}

// WithOrganization returns a copy attributed to org.
func (s VettingScope) WithOrganization(org Organization) VettingScope {
	s.categories = slices.Clone(s.categories)
	s.organization = org
	return s
}
