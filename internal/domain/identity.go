package domain

import (
	"strings"
	"unicode"
)

// LocaleID identifies one language/region data set, e.g. "fr_CA".
type LocaleID string

// RootLocale is the locale every inheritance chain ends at.
const RootLocale LocaleID = "root"

// UserID is an opaque, comparable identity supplied by the authentication layer.
type UserID string

// Organization is an opaque organization identity for a user.
type Organization string

// NormalizeLocaleID trims a locale id and canonicalizes "-" separators to "_".
func NormalizeLocaleID(raw string) LocaleID {
	return LocaleID(strings.ReplaceAll(strings.TrimSpace(raw), "-", "_"))
}

// ParseLocaleID normalizes and validates one locale id.
func ParseLocaleID(raw string) (LocaleID, error) {
	id := NormalizeLocaleID(raw)
	if !IsValidLocaleID(id) {
		return "", ErrInvalidLocale
	}
	return id, nil
}

// IsValidLocaleID reports whether a locale id is non-empty and uses only letters, digits and "_".
func IsValidLocaleID(id LocaleID) bool {
	if id == "" {
		return false
	}
	for _, r := range string(id) {
		if r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) {
			continue
		}
		return false
	}
	return !strings.HasPrefix(string(id), "_") && !strings.HasSuffix(string(id), "_")
}

// NormalizeUserID trims one user id.
func NormalizeUserID(raw string) UserID {
	return UserID(strings.TrimSpace(raw))
}

// ParseUserID normalizes and validates one user id.
func ParseUserID(raw string) (UserID, error) {
	id := NormalizeUserID(raw)
	if id == "" {
		return "", ErrInvalidUser
	}
	return id, nil
}
