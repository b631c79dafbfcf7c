package app

import (
	"context"
	"time"

	"github.com/hylla/vettrack/internal/domain"
)

// IDGenerator returns unique identifiers for new entities.
type IDGenerator func() string

// Clock returns the current time.
type Clock func() time.Time

// ReportLedger records which review reports each (user, locale) has completed.
type ReportLedger struct {
	store    ReportStatusStore
	clock    Clock
	observer Observer
}

// NewReportLedger constructs a ledger over one store. A nil clock uses time.Now.
func NewReportLedger(store ReportStatusStore, clock Clock, observer Observer) *ReportLedger {
	if clock == nil {
		clock = time.Now
	}
	if observer == nil {
		observer = nopObserver{}
	}
	return &ReportLedger{
		store:    store,
		clock:    clock,
		observer: observer,
	}
}

// Get returns the records for one (user, locale); unknown pairs yield an empty set.
func (l *ReportLedger) Get(ctx context.Context, user domain.UserID, locale domain.LocaleID) (domain.UserLocaleReports, error) {
	user, err := domain.ParseUserID(string(user))
	if err != nil {
		return domain.UserLocaleReports{}, err
	}
	locale, err = domain.ParseLocaleID(string(locale))
	if err != nil {
		return domain.UserLocaleReports{}, err
	}
	reports, err := l.store.GetReports(ctx, user, locale)
	if err != nil {
		return domain.UserLocaleReports{}, err
	}
	if reports.Statuses == nil {
		reports.Statuses = map[domain.ReportKind]domain.ReportStatus{}
	}
	return reports, nil
}

// MarkComplete upserts one report record stamped with the ledger clock.
func (l *ReportLedger) MarkComplete(ctx context.Context, user domain.UserID, locale domain.LocaleID, kind domain.ReportKind, marked, acceptable bool) (domain.ReportStatus, error) {
	return l.MarkCompleteAt(ctx, user, locale, kind, marked, acceptable, l.clock())
}

// MarkCompleteAt upserts one report record with an explicit timestamp.
// The stored record is whichever has the later timestamp; ties go to this call.
func (l *ReportLedger) MarkCompleteAt(ctx context.Context, user domain.UserID, locale domain.LocaleID, kind domain.ReportKind, marked, acceptable bool, completedAt time.Time) (domain.ReportStatus, error) {
	mark, err := domain.NewReportMark(user, locale, kind, marked, acceptable, completedAt)
	if err != nil {
		return domain.ReportStatus{}, err
	}
	applied, err := l.store.ApplyReportMark(ctx, mark)
	if err != nil {
		return domain.ReportStatus{}, err
	}
	l.observer.ReportMarked(mark.Kind, applied)
	if applied {
		return mark.Status(), nil
	}
	current, err := l.store.GetReports(ctx, mark.User, mark.Locale)
	if err != nil {
		return domain.ReportStatus{}, err
	}
	status, _ := current.Status(mark.Kind)
	return status, nil
}

// ListForUser returns every locale record set for one user, ordered by locale.
func (l *ReportLedger) ListForUser(ctx context.Context, user domain.UserID) ([]domain.UserLocaleReports, error) {
	user, err := domain.ParseUserID(string(user))
	if err != nil {
		return nil, err
	}
	return l.store.ListUserReports(ctx, user)
}

// SummarizeLocale tallies report marks across every user of one locale.
func (l *ReportLedger) SummarizeLocale(ctx context.Context, locale domain.LocaleID) (domain.LocaleReportSummary, error) {
	locale, err := domain.ParseLocaleID(string(locale))
	if err != nil {
		return domain.LocaleReportSummary{}, err
	}
	records, err := l.store.ListLocaleReports(ctx, locale)
	if err != nil {
		return domain.LocaleReportSummary{}, err
	}
	return domain.SummarizeLocaleReports(locale, records), nil
}

// Reset clears every record. Administrative use only.
func (l *ReportLedger) Reset(ctx context.Context) error {
	return l.store.ResetReports(ctx)
}
