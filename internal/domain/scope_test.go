package domain

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

// stubReader is a minimal LocaleDataReader used to check scope handles.
type stubReader struct {
	locale LocaleID
}

func (s stubReader) Locale() LocaleID { return s.locale }

func (s stubReader) Paths(context.Context) ([]string, error) { return nil, nil }

func (s stubReader) Resolve(context.Context, PathAddress) (ResolvedValue, error) {
	return ResolvedValue{Status: ValueStatusAbsent}, nil
}

// TestNewVettingScopeDefaults verifies validation and category defaults.
func TestNewVettingScopeDefaults(t *testing.T) {
	scope, err := NewVettingScope(nil, " pt-BR ", CoverageModern)
	if err != nil {
		t.Fatalf("NewVettingScope() error = %v", err)
	}
	if scope.Locale() != "pt_BR" {
		t.Fatalf("Locale() = %q, want pt_BR", scope.Locale())
	}
	if !reflect.DeepEqual(scope.Categories(), Categories()) {
		t.Fatalf("Categories() = %v, want all", scope.Categories())
	}
	if scope.IsOnlyForSinglePath() {
		t.Fatal("expected no path filter by default")
	}

	if _, err := NewVettingScope(nil, "", CoverageModern); !errors.Is(err, ErrInvalidLocale) {
		t.Fatalf("expected ErrInvalidLocale, got %v", err)
	}
	if _, err := NewVettingScope(nil, "fr", CoverageLevel(55)); !errors.Is(err, ErrInvalidCoverageLevel) {
		t.Fatalf("expected ErrInvalidCoverageLevel, got %v", err)
	}
	if _, err := NewVettingScope([]Category{"bogus"}, "fr", CoverageBasic); !errors.Is(err, ErrInvalidCategory) {
		t.Fatalf("expected ErrInvalidCategory, got %v", err)
	}
}

// TestVettingScopeWithCopies verifies setters return copies and leave the receiver intact.
func TestVettingScopeWithCopies(t *testing.T) {
	base, err := NewVettingScope([]Category{CategoryError, CategoryError, CategoryNotApproved}, "fr", CoverageBasic)
	if err != nil {
		t.Fatalf("NewVettingScope() error = %v", err)
	}
	if len(base.Categories()) != 2 {
		t.Fatalf("expected deduplicated categories, got %v", base.Categories())
	}
	if base.HasCategory(CategoryMissingCoverage) {
		t.Fatal("did not request missing_coverage")
	}

	filter := MustParsePath(`//ldml/dates/fields/field[@type="day"]/displayName`)
	derived := base.
		WithSource(stubReader{locale: "fr"}).
		WithBaseline(stubReader{locale: "fr"}).
		WithPathFilter(filter).
		WithUser(" u7 ").
		WithOrganization("acme")

	if base.IsOnlyForSinglePath() || base.Source() != nil || base.User() != "" {
		t.Fatal("receiver mutated by With* calls")
	}
	if !derived.IsOnlyForSinglePath() {
		t.Fatal("expected single path filter")
	}
	if got, ok := derived.PathFilter(); !ok || !got.Equal(filter) {
		t.Fatalf("PathFilter() = %v, %t", got, ok)
	}
	if derived.User() != "u7" || derived.Organization() != "acme" {
		t.Fatalf("unexpected identity %q/%q", derived.User(), derived.Organization())
	}
	if derived.Source() == nil || derived.Baseline() == nil {
		t.Fatal("expected data handles")
	}
	if !derived.MatchesPath(MustParsePath(`ldml/dates/fields/field[@type='day']/displayName`)) {
		t.Fatal("expected filter to match an equivalent spelling")
	}
	if derived.MatchesPath(MustParsePath(`//ldml/dates/fields/field[@type="week"]/displayName`)) {
		t.Fatal("expected filter to reject a different path")
	}
	if !derived.WithPathFilter(PathAddress{}).MatchesPath(MustParsePath("//ldml")) {
		t.Fatal("expected cleared filter to admit all paths")
	}
}

// TestCoverageLevelParsing verifies names, ordering and inclusion.
func TestCoverageLevelParsing(t *testing.T) {
	level, err := ParseCoverageLevel(" Modern ")
	if err != nil || level != CoverageModern {
		t.Fatalf("ParseCoverageLevel() = %v, %v", level, err)
	}
	if _, err := ParseCoverageLevel("posix"); !errors.Is(err, ErrInvalidCoverageLevel) {
		t.Fatalf("expected ErrInvalidCoverageLevel, got %v", err)
	}
	if !CoverageModern.Includes(CoverageBasic) || CoverageBasic.Includes(CoverageModern) {
		t.Fatal("unexpected coverage inclusion")
	}
	if !CoverageModern.Includes(CoverageModern) {
		t.Fatal("a level includes itself")
	}
	var decoded CoverageLevel
	if err := decoded.UnmarshalText([]byte("comprehensive")); err != nil || decoded != CoverageComprehensive {
		t.Fatalf("UnmarshalText() = %v, %v", decoded, err)
	}
}
