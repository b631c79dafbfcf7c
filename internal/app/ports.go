package app

import (
	"context"
	"time"

	"github.com/hylla/vettrack/internal/domain"
)

// ReportStatusStore persists report completion records keyed by (user, locale).
// Implementations serialize writes per key and apply last-timestamp-wins.
type ReportStatusStore interface {
	GetReports(context.Context, domain.UserID, domain.LocaleID) (domain.UserLocaleReports, error)
	// ApplyReportMark upserts one record and reports whether it replaced the stored one.
	ApplyReportMark(context.Context, domain.ReportMark) (bool, error)
	ListUserReports(context.Context, domain.UserID) ([]domain.UserLocaleReports, error)
	ListLocaleReports(context.Context, domain.LocaleID) ([]domain.UserLocaleReports, error)
	ResetReports(context.Context) error
}

// VoteSource lists the votes one user cast in one locale.
type VoteSource interface {
	ListVotes(context.Context, domain.UserID, domain.LocaleID) ([]domain.Vote, error)
}

// VoteStore records votes and lists them back.
type VoteStore interface {
	VoteSource
	RecordVote(context.Context, domain.Vote) error
}

// CoverageClassifier returns the coverage threshold a path requires in a locale.
type CoverageClassifier interface {
	RequiredLevel(domain.PathAddress, domain.LocaleID) domain.CoverageLevel
}

// ProblemClassifier maps one path outcome to zero or more problem categories.
type ProblemClassifier interface {
	Classify(PathOutcome) []domain.Category
}

// HintSource returns reviewer guidance for a path, or "" when none exists.
type HintSource interface {
	Lookup(domain.PathAddress) string
}

// Observer receives notifications about ledger writes and vetting passes.
type Observer interface {
	ReportMarked(kind domain.ReportKind, applied bool)
	VettingCompleted(locale domain.LocaleID, elapsed time.Duration, result VettingResult)
}

// nopObserver discards all notifications.
type nopObserver struct{}

func (nopObserver) ReportMarked(domain.ReportKind, bool) {}

func (nopObserver) VettingCompleted(domain.LocaleID, time.Duration, VettingResult) {}
