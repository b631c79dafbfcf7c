package localedata

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/hylla/vettrack/internal/domain"
	"gopkg.in/yaml.v3"
)

//go:embed default_coverage.yaml
var defaultCoverageYAML []byte

// CoverageRule assigns a required level to paths containing an element,
// optionally narrowed by attribute, attribute value and locale.
type CoverageRule struct {
	Element   string               `yaml:"element"`
	Attribute string               `yaml:"attribute,omitempty"`
	Value     string               `yaml:"value,omitempty"`
	Locales   []string             `yaml:"locales,omitempty"`
	Level     domain.CoverageLevel `yaml:"level"`
}

// coverageFile is the on-disk layout of a rule set.
type coverageFile struct {
	Default domain.CoverageLevel `yaml:"default"`
	Rules   []CoverageRule       `yaml:"rules"`
}

// CoverageRules is an ordered rule list; the first matching rule wins.
type CoverageRules struct {
	fallback domain.CoverageLevel
	rules    []CoverageRule
}

// LoadCoverage parses a YAML rule set.
func LoadCoverage(r io.Reader) (*CoverageRules, error) {
	var doc coverageFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode coverage rules: %w", err)
	}
	if doc.Default == domain.CoverageUndetermined {
		doc.Default = domain.CoverageComprehensive
	}
	if !doc.Default.IsValid() {
		return nil, fmt.Errorf("%w: default %d", domain.ErrInvalidCoverageLevel, int(doc.Default))
	}
	rules := make([]CoverageRule, 0, len(doc.Rules))
	for i, rule := range doc.Rules {
		rule.Element = strings.TrimSpace(rule.Element)
		if rule.Element == "" {
			return nil, fmt.Errorf("coverage rules[%d]: element is required", i)
		}
		if rule.Value != "" && rule.Attribute == "" {
			return nil, fmt.Errorf("coverage rules[%d]: value requires attribute", i)
		}
		if !rule.Level.IsValid() {
			return nil, fmt.Errorf("coverage rules[%d]: %w", i, domain.ErrInvalidCoverageLevel)
		}
		for j, raw := range rule.Locales {
			locale, err := domain.ParseLocaleID(raw)
			if err != nil {
				return nil, fmt.Errorf("coverage rules[%d] locale %q: %w", i, raw, err)
			}
			rule.Locales[j] = string(locale)
		}
		rules = append(rules, rule)
	}
	return &CoverageRules{fallback: doc.Default, rules: rules}, nil
}

// LoadCoverageFile parses a YAML rule set from disk.
func LoadCoverageFile(path string) (*CoverageRules, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open coverage rules: %w", err)
	}
	defer f.Close()
	return LoadCoverage(f)
}

// DefaultCoverage returns the built-in rule set.
func DefaultCoverage() (*CoverageRules, error) {
	return LoadCoverage(bytes.NewReader(defaultCoverageYAML))
}

// RequiredLevel returns the level of the first rule matching path in locale.
func (c *CoverageRules) RequiredLevel(path domain.PathAddress, locale domain.LocaleID) domain.CoverageLevel {
	for _, rule := range c.rules {
		if rule.matches(path, locale) {
			return rule.Level
		}
	}
	return c.fallback
}

// matches reports whether the rule applies.
func (r CoverageRule) matches(path domain.PathAddress, locale domain.LocaleID) bool {
	if len(r.Locales) > 0 && !slices.Contains(r.Locales, string(locale)) {
		return false
	}
	idx := path.FindElement(r.Element)
	if idx < 0 {
		return false
	}
	if r.Attribute == "" {
		return true
	}
	value, err := path.AttributeValue(idx, r.Attribute)
	if err != nil || value == "" {
		return false
	}
	return r.Value == "" || r.Value == value
}
