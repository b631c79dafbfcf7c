package domain

import (
	"fmt"
	"strings"
)

// CoverageLevel is a required-completeness threshold. Higher values require more data.
type CoverageLevel int

// CoverageLevel values, ordered by threshold.
const (
	CoverageUndetermined  CoverageLevel = 0
	CoverageCore          CoverageLevel = 10
	CoverageBasic         CoverageLevel = 40
	CoverageModerate      CoverageLevel = 60
	CoverageModern        CoverageLevel = 80
	CoverageComprehensive CoverageLevel = 100
	CoverageOptional      CoverageLevel = 101
)

// validCoverageLevels stores the named coverage levels in threshold order.
var validCoverageLevels = []CoverageLevel{
	CoverageCore,
	CoverageBasic,
	CoverageModerate,
	CoverageModern,
	CoverageComprehensive,
	CoverageOptional,
}

// CoverageLevels returns all named coverage levels in threshold order.
func CoverageLevels() []CoverageLevel {
	return append([]CoverageLevel(nil), validCoverageLevels...)
}

// String returns the lower-case level name.
func (c CoverageLevel) String() string {
	switch c {
	case CoverageUndetermined:
		return "undetermined"
	case CoverageCore:
		return "core"
	case CoverageBasic:
		return "basic"
	case CoverageModerate:
		return "moderate"
	case CoverageModern:
		return "modern"
	case CoverageComprehensive:
		return "comprehensive"
	case CoverageOptional:
		return "optional"
	default:
		return fmt.Sprintf("coverage(%d)", int(c))
	}
}

// ParseCoverageLevel parses a level name, case-insensitively.
func ParseCoverageLevel(raw string) (CoverageLevel, error) {
	name := strings.TrimSpace(strings.ToLower(raw))
	for _, level := range validCoverageLevels {
		if level.String() == name {
			return level, nil
		}
	}
	return CoverageUndetermined, fmt.Errorf("%w: %q", ErrInvalidCoverageLevel, raw)
}

// IsValid reports whether c is one of the named levels.
func (c CoverageLevel) IsValid() bool {
	for _, level := range validCoverageLevels {
		if level == c {
			return true
		}
	}
	return false
}

// Includes reports whether a path requiring `required` falls inside this threshold.
func (c CoverageLevel) Includes(required CoverageLevel) bool {
	return required <= c
}

// MarshalText implements encoding.TextMarshaler.
func (c CoverageLevel) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *CoverageLevel) UnmarshalText(text []byte) error {
	level, err := ParseCoverageLevel(string(text))
	if err != nil {
		return err
	}
	*c = level
	return nil
}
