package domain

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"
)

// ReportKind identifies one review report a user can mark complete.
type ReportKind string

// ReportKind values.
const (
	ReportKindDateTime    ReportKind = "datetime"
	ReportKindZones       ReportKind = "zones"
	ReportKindCompact     ReportKind = "compact"
	ReportKindPersonNames ReportKind = "personnames"
)

// validReportKinds stores supported report kinds in menu order.
var validReportKinds = []ReportKind{
	ReportKindDateTime,
	ReportKindZones,
	ReportKindCompact,
	ReportKindPersonNames,
}

// ReportKinds returns all report kinds in menu order.
func ReportKinds() []ReportKind {
	return append([]ReportKind(nil), validReportKinds...)
}

// NormalizeReportKind canonicalizes one report kind.
func NormalizeReportKind(kind ReportKind) ReportKind {
	return ReportKind(strings.TrimSpace(strings.ToLower(string(kind))))
}

// ParseReportKind normalizes and validates one report kind.
func ParseReportKind(raw string) (ReportKind, error) {
	kind := NormalizeReportKind(ReportKind(raw))
	if !slices.Contains(validReportKinds, kind) {
		return "", fmt.Errorf("%w: %q", ErrInvalidReportKind, raw)
	}
	return kind, nil
}

// Title returns the menu label for the report.
func (k ReportKind) Title() string {
	switch k {
	case ReportKindDateTime:
		return "Date/Time"
	case ReportKindZones:
		return "Zones"
	case ReportKindCompact:
		return "Numbers"
	case ReportKindPersonNames:
		return "Person Names"
	default:
		return string(k)
	}
}

// ReportStatus stores the completion record for one report.
type ReportStatus struct {
	Marked      bool      `json:"marked"`
	Acceptable  bool      `json:"acceptable"`
	CompletedAt time.Time `json:"completed_at"`
}

// Supersedes reports whether s should replace current under last-timestamp-wins.
// Equal timestamps resolve in favor of s, so the later call wins a tie.
func (s ReportStatus) Supersedes(current ReportStatus) bool {
	return !s.CompletedAt.Before(current.CompletedAt)
}

// ReportMark holds write-time values for one mark-complete request.
type ReportMark struct {
	User        UserID
	Locale      LocaleID
	Kind        ReportKind
	Marked      bool
	Acceptable  bool
	CompletedAt time.Time
}

// NewReportMark validates and normalizes one mark request.
func NewReportMark(user UserID, locale LocaleID, kind ReportKind, marked, acceptable bool, completedAt time.Time) (ReportMark, error) {
	user = NormalizeUserID(string(user))
	if user == "" {
		return ReportMark{}, ErrInvalidUser
	}
	locale = NormalizeLocaleID(string(locale))
	if !IsValidLocaleID(locale) {
		return ReportMark{}, ErrInvalidLocale
	}
	kind, err := ParseReportKind(string(kind))
	if err != nil {
		return ReportMark{}, err
	}
	if completedAt.IsZero() {
		return ReportMark{}, fmt.Errorf("%w: completion timestamp is required", ErrInvalidArgument)
	}
	return ReportMark{
		User:        user,
		Locale:      locale,
		Kind:        kind,
		Marked:      marked,
		Acceptable:  acceptable,
		CompletedAt: completedAt.UTC(),
	}, nil
}

// Status returns the record a mark writes.
func (m ReportMark) Status() ReportStatus {
	return ReportStatus{
		Marked:      m.Marked,
		Acceptable:  m.Acceptable,
		CompletedAt: m.CompletedAt,
	}
}

// UserLocaleReports stores every report record for one (user, locale) pair.
type UserLocaleReports struct {
	User     UserID                      `json:"user"`
	Locale   LocaleID                    `json:"locale"`
	Statuses map[ReportKind]ReportStatus `json:"statuses"`
}

// NewUserLocaleReports returns an empty record set, meaning "not yet started".
func NewUserLocaleReports(user UserID, locale LocaleID) UserLocaleReports {
	return UserLocaleReports{
		User:     user,
		Locale:   locale,
		Statuses: map[ReportKind]ReportStatus{},
	}
}

// Status returns the record for one kind; absent kinds report the zero record.
func (r UserLocaleReports) Status(kind ReportKind) (ReportStatus, bool) {
	status, ok := r.Statuses[kind]
	return status, ok
}

// IsComplete reports whether the kind is marked complete.
func (r UserLocaleReports) IsComplete(kind ReportKind) bool {
	return r.Statuses[kind].Marked
}

// IsAcceptable reports whether the kind is marked complete and acceptable.
func (r UserLocaleReports) IsAcceptable(kind ReportKind) bool {
	status := r.Statuses[kind]
	return status.Marked && status.Acceptable
}

// CompletedKinds returns marked kinds in menu order.
func (r UserLocaleReports) CompletedKinds() []ReportKind {
	out := make([]ReportKind, 0, len(r.Statuses))
	for _, kind := range validReportKinds {
		if r.Statuses[kind].Marked {
			out = append(out, kind)
		}
	}
	return out
}

// LastCompletedAt returns the most recent timestamp across all records.
func (r UserLocaleReports) LastCompletedAt() time.Time {
	var last time.Time
	for _, status := range r.Statuses {
		if status.CompletedAt.After(last) {
			last = status.CompletedAt
		}
	}
	return last
}

// Clone returns a deep copy safe to hand outside a lock.
func (r UserLocaleReports) Clone() UserLocaleReports {
	out := r
	out.Statuses = maps.Clone(r.Statuses)
	if out.Statuses == nil {
		out.Statuses = map[ReportKind]ReportStatus{}
	}
	return out
}

// Apply upserts one mark, returning false when an existing newer record wins.
func (r *UserLocaleReports) Apply(mark ReportMark) bool {
	if r.Statuses == nil {
		r.Statuses = map[ReportKind]ReportStatus{}
	}
	next := mark.Status()
	if current, ok := r.Statuses[mark.Kind]; ok && !next.Supersedes(current) {
		return false
	}
	r.Statuses[mark.Kind] = next
	return true
}

// ReportKindSummary counts users who marked one report kind in a locale.
type ReportKindSummary struct {
	Kind          ReportKind `json:"kind"`
	Acceptable    int        `json:"acceptable"`
	NotAcceptable int        `json:"not_acceptable"`
}

// LocaleReportSummary aggregates report marks across every user of one locale.
type LocaleReportSummary struct {
	Locale      LocaleID            `json:"locale"`
	Reports     []ReportKindSummary `json:"reports"`
	TotalVoters int                 `json:"total_voters"`
}

// SummarizeLocaleReports tallies marked records for one locale, in menu order.
// Unmarked records are abstentions and are not counted as voters.
func SummarizeLocaleReports(locale LocaleID, records []UserLocaleReports) LocaleReportSummary {
	summary := LocaleReportSummary{
		Locale:  locale,
		Reports: make([]ReportKindSummary, 0, len(validReportKinds)),
	}
	voters := map[UserID]struct{}{}
	for _, kind := range validReportKinds {
		row := ReportKindSummary{Kind: kind}
		for _, rec := range records {
			if rec.Locale != locale {
				continue
			}
			status := rec.Statuses[kind]
			if !status.Marked {
				continue
			}
			voters[rec.User] = struct{}{}
			if status.Acceptable {
				row.Acceptable++
			} else {
				row.NotAcceptable++
			}
		}
		summary.Reports = append(summary.Reports, row)
	}
	summary.TotalVoters = len(voters)
	return summary
}
