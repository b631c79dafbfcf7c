package app

import (
	"maps"
	"regexp"
	"strings"

	"github.com/hylla/vettrack/internal/domain"
)

// PathOutcome is everything a classifier knows about one in-scope path.
type PathOutcome struct {
	Path        domain.PathAddress
	Locale      domain.LocaleID
	Required    domain.CoverageLevel
	Source      domain.ResolvedValue
	Baseline    domain.ResolvedValue
	HasBaseline bool
}

// placeholderPattern matches message-format placeholders such as {0} or {1}.
var placeholderPattern = regexp.MustCompile(`\{[0-9]+\}`)

// DefaultProblemClassifier applies the built-in problem checks.
//
//   - missing_coverage: the value is absent, or only inherited from root.
//   - error: the value is blank, or its placeholders differ from the baseline.
//   - not_approved: the value differs from a present baseline value.
type DefaultProblemClassifier struct{}

// Classify returns the categories that apply to one outcome, in canonical order.
func (DefaultProblemClassifier) Classify(out PathOutcome) []domain.Category {
	switch out.Source.Status {
	case domain.ValueStatusAbsent:
		return []domain.Category{domain.CategoryMissingCoverage}
	case domain.ValueStatusInherited:
		if out.Source.IsInheritedFromRoot() {
			return []domain.Category{domain.CategoryMissingCoverage}
		}
	case domain.ValueStatusPresent:
	}

	categories := make([]domain.Category, 0, 2)
	if strings.TrimSpace(out.Source.Value) == "" {
		categories = append(categories, domain.CategoryError)
	} else if out.HasBaseline && out.Baseline.Status != domain.ValueStatusAbsent &&
		!samePlaceholders(out.Source.Value, out.Baseline.Value) {
		categories = append(categories, domain.CategoryError)
	}
	if out.HasBaseline && out.Baseline.Status == domain.ValueStatusPresent && out.Source.Value != out.Baseline.Value {
		categories = append(categories, domain.CategoryNotApproved)
	}
	return categories
}

// samePlaceholders reports whether both values use the same placeholder set.
func samePlaceholders(a, b string) bool {
	return maps.Equal(placeholderSet(a), placeholderSet(b))
}

// placeholderSet collects the distinct placeholders in one value.
func placeholderSet(value string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, match := range placeholderPattern.FindAllString(value, -1) {
		out[match] = struct{}{}
	}
	return out
}
