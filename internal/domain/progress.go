package domain

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"sync/atomic"
)

// VoteType identifies how a vote was submitted.
type VoteType string

// VoteType values.
const (
	VoteTypeDirect       VoteType = "direct"
	VoteTypeAutoImport   VoteType = "auto_import"
	VoteTypeManualImport VoteType = "manual_import"
	VoteTypeBulkUpload   VoteType = "bulk_upload"
)

// validVoteTypes stores supported vote types in canonical order.
var validVoteTypes = []VoteType{
	VoteTypeDirect,
	VoteTypeAutoImport,
	VoteTypeManualImport,
	VoteTypeBulkUpload,
}

// VoteTypes returns all vote types in canonical order.
func VoteTypes() []VoteType {
	return append([]VoteType(nil), validVoteTypes...)
}

// ParseVoteType normalizes and validates one vote type; empty means direct.
func ParseVoteType(raw string) (VoteType, error) {
	vt := VoteType(strings.ReplaceAll(strings.TrimSpace(strings.ToLower(raw)), "-", "_"))
	if vt == "" {
		return VoteTypeDirect, nil
	}
	if !slices.Contains(validVoteTypes, vt) {
		return "", fmt.Errorf("%w: %q", ErrInvalidVoteType, raw)
	}
	return vt, nil
}

// voteTypeIndex maps a vote type to its tally slot.
func voteTypeIndex(vt VoteType) int {
	switch vt {
	case VoteTypeDirect:
		return 0
	case VoteTypeAutoImport:
		return 1
	case VoteTypeManualImport:
		return 2
	case VoteTypeBulkUpload:
		return 3
	default:
		return -1
	}
}

// ProgressScope identifies the (user, locale, coverage) a counter belongs to.
type ProgressScope struct {
	User     UserID        `json:"user"`
	Locale   LocaleID      `json:"locale"`
	Coverage CoverageLevel `json:"coverage"`
}

// ProgressCounter tallies votable and voted paths for one scope.
// Increments are atomic; counters never decrease.
type ProgressCounter struct {
	scope   ProgressScope
	votable atomic.Int64
	voted   atomic.Int64
	byType  [4]atomic.Int64
}

// NewProgressCounter returns a zeroed counter bound to one scope.
func NewProgressCounter(scope ProgressScope) *ProgressCounter {
	return &ProgressCounter{scope: scope}
}

// Scope returns the scope the counter was created for.
func (c *ProgressCounter) Scope() ProgressScope {
	return c.scope
}

// IncrementVotable adds one votable path.
func (c *ProgressCounter) IncrementVotable() {
	saturatingIncrement(&c.votable)
}

// IncrementVoted adds one voted path.
func (c *ProgressCounter) IncrementVoted() {
	saturatingIncrement(&c.voted)
}

// RecordVoteType tallies how one vote was submitted.
func (c *ProgressCounter) RecordVoteType(vt VoteType) error {
	idx := voteTypeIndex(vt)
	if idx < 0 {
		return fmt.Errorf("%w: %q", ErrInvalidVoteType, vt)
	}
	saturatingIncrement(&c.byType[idx])
	return nil
}

// VotablePathCount returns the number of votable paths seen so far.
func (c *ProgressCounter) VotablePathCount() int64 {
	return c.votable.Load()
}

// VotedPathCount returns the number of voted paths seen so far.
func (c *ProgressCounter) VotedPathCount() int64 {
	return c.voted.Load()
}

// VoteTypeCounts returns the per-type tally, omitting zero entries.
func (c *ProgressCounter) VoteTypeCounts() map[VoteType]int64 {
	out := map[VoteType]int64{}
	for _, vt := range validVoteTypes {
		if n := c.byType[voteTypeIndex(vt)].Load(); n > 0 {
			out[vt] = n
		}
	}
	return out
}

// saturatingIncrement adds one unless the counter is already at math.MaxInt64.
func saturatingIncrement(v *atomic.Int64) {
	for {
		cur := v.Load()
		if cur == math.MaxInt64 {
			return
		}
		if v.CompareAndSwap(cur, cur+1) {
			return
		}
	}
}
