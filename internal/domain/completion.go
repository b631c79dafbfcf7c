package domain

import (
	"fmt"
	"math/bits"
	"sync"
)

// Percentage converts done/total into an integer in [0,100].
// Nothing required counts as complete; any progress reports at least 1;
// an incomplete state never rounds up to 100.
func Percentage(done, total int64) int {
	if total <= 0 {
		return 100
	}
	if done <= 0 {
		return 0
	}
	var floor int64
	if done > total {
		floor = 100
	} else {
		floor = mulDivFloor(done, 100, total)
	}
	if floor == 0 {
		return 1
	}
	return int(min(floor, 100))
}

// mulDivFloor returns floor(a*b/c) for non-negative a <= c using a 128-bit product.
func mulDivFloor(a, b, c int64) int64 {
	hi, lo := bits.Mul64(uint64(a), uint64(b))
	quo, _ := bits.Div64(hi, lo, uint64(c))
	return int64(quo)
}

// LocaleCompletionData is a read-only snapshot of problem counts for one locale.
type LocaleCompletionData struct {
	errorCount       int
	missingCount     int
	provisionalCount int
}

// AggregateCompletion builds a snapshot; any negative count is a caller bug.
func AggregateCompletion(errorCount, missingCount, provisionalCount int) (LocaleCompletionData, error) {
	switch {
	case errorCount < 0:
		return LocaleCompletionData{}, fmt.Errorf("%w: error count %d is negative", ErrInvalidArgument, errorCount)
	case missingCount < 0:
		return LocaleCompletionData{}, fmt.Errorf("%w: missing count %d is negative", ErrInvalidArgument, missingCount)
	case provisionalCount < 0:
		return LocaleCompletionData{}, fmt.Errorf("%w: provisional count %d is negative", ErrInvalidArgument, provisionalCount)
	}
	return LocaleCompletionData{
		errorCount:       errorCount,
		missingCount:     missingCount,
		provisionalCount: provisionalCount,
	}, nil
}

// ErrorCount returns the error-category count.
func (d LocaleCompletionData) ErrorCount() int { return d.errorCount }

// MissingCount returns the missing-coverage count.
func (d LocaleCompletionData) MissingCount() int { return d.missingCount }

// ProvisionalCount returns the not-approved count.
func (d LocaleCompletionData) ProvisionalCount() int { return d.provisionalCount }

// ProblemCount returns the sum of all categories.
func (d LocaleCompletionData) ProblemCount() int {
	return d.errorCount + d.missingCount + d.provisionalCount
}

// CountFor returns the count for one category.
func (d LocaleCompletionData) CountFor(c Category) int {
	switch c {
	case CategoryError:
		return d.errorCount
	case CategoryMissingCoverage:
		return d.missingCount
	case CategoryNotApproved:
		return d.provisionalCount
	default:
		return 0
	}
}

// CompletionPercent scores the share of total paths without problems.
func (d LocaleCompletionData) CompletionPercent(total int64) int {
	done := total - int64(d.ProblemCount())
	return Percentage(max(done, 0), total)
}

// MarshalJSON exposes the snapshot with its derived sum.
func (d LocaleCompletionData) MarshalJSON() ([]byte, error) {
	return fmt.Appendf(nil, `{"error_count":%d,"missing_count":%d,"provisional_count":%d,"problem_count":%d}`,
		d.errorCount, d.missingCount, d.provisionalCount, d.ProblemCount()), nil
}

// CategoryCounter tallies problem categories during one vetting pass.
type CategoryCounter struct {
	mu     sync.Mutex
	counts map[Category]int
}

// NewCategoryCounter returns an empty counter.
func NewCategoryCounter() *CategoryCounter {
	return &CategoryCounter{counts: map[Category]int{}}
}

// Add counts one occurrence of a category.
func (c *CategoryCounter) Add(category Category) error {
	category = NormalizeCategory(category)
	if !IsValidCategory(category) {
		return fmt.Errorf("%w: %q", ErrInvalidCategory, category)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[category]++
	return nil
}

// Count returns the tally for one category.
func (c *CategoryCounter) Count(category Category) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[NormalizeCategory(category)]
}

// Snapshot aggregates the tallies into completion data.
func (c *CategoryCounter) Snapshot() LocaleCompletionData {
	c.mu.Lock()
	defer c.mu.Unlock()
	// Counts only ever increase from zero, so aggregation cannot fail here.
	data, _ := AggregateCompletion(
		c.counts[CategoryError],
		c.counts[CategoryMissingCoverage],
		c.counts[CategoryNotApproved],
	)
	return data
}
