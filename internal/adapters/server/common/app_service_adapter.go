package common

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hylla/vettrack/internal/app"
	"github.com/hylla/vettrack/internal/domain"
)

// LocaleDataSource opens the data reader bound to one locale.
// Unknown locales should wrap app.ErrNotFound.
type LocaleDataSource func(domain.LocaleID) (domain.LocaleDataReader, error)

// AppServiceConfig wires app components into one adapter.
type AppServiceConfig struct {
	Parser          *app.PathParser
	Ledger          *app.ReportLedger
	Vetter          *app.Vetter
	Votes           app.VoteStore
	Source          LocaleDataSource
	Baseline        LocaleDataSource
	DefaultCoverage domain.CoverageLevel
	Organization    domain.Organization
	Clock           app.Clock
}

// AppServiceAdapter maps transport contracts onto the parser, ledger and vetter.
type AppServiceAdapter struct {
	cfg AppServiceConfig
}

var (
	_ PathService    = (*AppServiceAdapter)(nil)
	_ ReportService  = (*AppServiceAdapter)(nil)
	_ VettingService = (*AppServiceAdapter)(nil)
)

// NewAppServiceAdapter builds one adapter. A nil parser gets a default-sized one.
func NewAppServiceAdapter(cfg AppServiceConfig) (*AppServiceAdapter, error) {
	if cfg.Parser == nil {
		if cfg.Vetter != nil {
			cfg.Parser = cfg.Vetter.Parser()
		} else {
			parser, err := app.NewPathParser(0)
			if err != nil {
				return nil, err
			}
			cfg.Parser = parser
		}
	}
	if !cfg.DefaultCoverage.IsValid() {
		cfg.DefaultCoverage = domain.CoverageModern
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &AppServiceAdapter{cfg: cfg}, nil
}

// ParsePath parses one raw path into its element view.
func (a *AppServiceAdapter) ParsePath(_ context.Context, in ParsePathRequest) (ParsedPath, error) {
	if strings.TrimSpace(in.Path) == "" {
		return ParsedPath{}, fmt.Errorf("path is required: %w", ErrInvalidRequest)
	}
	path, err := a.cfg.Parser.Parse(in.Path)
	if err != nil {
		return ParsedPath{}, mapAppError("parse path", err)
	}
	return NewParsedPath(in.Path, path), nil
}

// Completion converts done/total into a percentage.
func (a *AppServiceAdapter) Completion(_ context.Context, in CompletionRequest) (CompletionResponse, error) {
	if in.Done < 0 || in.Total < 0 {
		return CompletionResponse{}, fmt.Errorf("done and total must be >= 0: %w", ErrInvalidRequest)
	}
	return CompletionResponse{
		Done:    in.Done,
		Total:   in.Total,
		Percent: domain.Percentage(in.Done, in.Total),
	}, nil
}

// ReportStatus returns every report kind for one (user, locale).
func (a *AppServiceAdapter) ReportStatus(ctx context.Context, in ReportStatusRequest) (ReportStatusResponse, error) {
	if a.cfg.Ledger == nil {
		return ReportStatusResponse{}, fmt.Errorf("report ledger is not configured: %w", ErrUnavailable)
	}
	reports, err := a.cfg.Ledger.Get(ctx, domain.UserID(in.User), domain.LocaleID(in.Locale))
	if err != nil {
		return ReportStatusResponse{}, mapAppError("report status", err)
	}
	return NewReportStatusResponse(reports), nil
}

// ListUserReports returns one response per locale the user touched.
func (a *AppServiceAdapter) ListUserReports(ctx context.Context, in ListUserReportsRequest) ([]ReportStatusResponse, error) {
	if a.cfg.Ledger == nil {
		return nil, fmt.Errorf("report ledger is not configured: %w", ErrUnavailable)
	}
	records, err := a.cfg.Ledger.ListForUser(ctx, domain.UserID(in.User))
	if err != nil {
		return nil, mapAppError("list user reports", err)
	}
	out := make([]ReportStatusResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, NewReportStatusResponse(rec))
	}
	return out, nil
}

// MarkReport writes one record and returns whichever record the ledger kept.
func (a *AppServiceAdapter) MarkReport(ctx context.Context, in MarkReportRequest) (MarkReportResponse, error) {
	if a.cfg.Ledger == nil {
		return MarkReportResponse{}, fmt.Errorf("report ledger is not configured: %w", ErrUnavailable)
	}
	user := domain.NormalizeUserID(in.User)
	locale := domain.NormalizeLocaleID(in.Locale)
	kind := domain.ReportKind(in.Kind)

	var (
		status domain.ReportStatus
		err    error
	)
	if in.CompletedAt != nil {
		status, err = a.cfg.Ledger.MarkCompleteAt(ctx, user, locale, kind, in.Marked, in.Acceptable, *in.CompletedAt)
	} else {
		status, err = a.cfg.Ledger.MarkCompleteAt(ctx, user, locale, kind, in.Marked, in.Acceptable, a.cfg.Clock())
	}
	if err != nil {
		return MarkReportResponse{}, mapAppError("mark report", err)
	}
	return MarkReportResponse{
		User:   string(user),
		Locale: string(locale),
		Report: newReportView(domain.NormalizeReportKind(kind), status),
	}, nil
}

// ReportSummary tallies marks across every user of one locale.
func (a *AppServiceAdapter) ReportSummary(ctx context.Context, in ReportSummaryRequest) (domain.LocaleReportSummary, error) {
	if a.cfg.Ledger == nil {
		return domain.LocaleReportSummary{}, fmt.Errorf("report ledger is not configured: %w", ErrUnavailable)
	}
	summary, err := a.cfg.Ledger.SummarizeLocale(ctx, domain.LocaleID(in.Locale))
	if err != nil {
		return domain.LocaleReportSummary{}, mapAppError("report summary", err)
	}
	return summary, nil
}

// Vet runs one vetting pass over the configured locale data.
func (a *AppServiceAdapter) Vet(ctx context.Context, in VetRequest) (app.VettingResult, error) {
	if a.cfg.Vetter == nil || a.cfg.Source == nil {
		return app.VettingResult{}, fmt.Errorf("vetter is not configured: %w", ErrUnavailable)
	}
	scope, err := a.prepareScope(in)
	if err != nil {
		return app.VettingResult{}, err
	}
	result, err := a.cfg.Vetter.Run(ctx, scope)
	if err != nil {
		return app.VettingResult{}, mapAppError("vet", err)
	}
	return result, nil
}

// VetMany runs independent passes concurrently and returns results in request order.
// Every request is validated before any pass starts.
func (a *AppServiceAdapter) VetMany(ctx context.Context, in []VetRequest) ([]app.VettingResult, error) {
	if a.cfg.Vetter == nil || a.cfg.Source == nil {
		return nil, fmt.Errorf("vetter is not configured: %w", ErrUnavailable)
	}
	scopes := make([]domain.VettingScope, 0, len(in))
	for _, req := range in {
		scope, err := a.prepareScope(req)
		if err != nil {
			return nil, err
		}
		scopes = append(scopes, scope)
	}
	results, err := a.cfg.Vetter.RunMany(ctx, scopes)
	if err != nil {
		return nil, mapAppError("vet", err)
	}
	return results, nil
}

// ResetReports clears every report record. Administrative only; no transport exposes it.
func (a *AppServiceAdapter) ResetReports(ctx context.Context) error {
	if a.cfg.Ledger == nil {
		return fmt.Errorf("report ledger is not configured: %w", ErrUnavailable)
	}
	if err := a.cfg.Ledger.Reset(ctx); err != nil {
		return mapAppError("reset reports", err)
	}
	return nil
}

// prepareScope builds the scope and binds source and, when asked, baseline data.
func (a *AppServiceAdapter) prepareScope(in VetRequest) (domain.VettingScope, error) {
	scope, err := a.buildScope(in)
	if err != nil {
		return domain.VettingScope{}, mapAppError("vet", err)
	}
	source, err := a.cfg.Source(scope.Locale())
	if err != nil {
		return domain.VettingScope{}, mapAppError("open source data", err)
	}
	scope = scope.WithSource(source)
	if !in.Baseline {
		return scope, nil
	}
	if a.cfg.Baseline == nil {
		return domain.VettingScope{}, fmt.Errorf("baseline data is not configured: %w", ErrUnavailable)
	}
	baseline, err := a.cfg.Baseline(scope.Locale())
	if err != nil {
		return domain.VettingScope{}, mapAppError("open baseline data", err)
	}
	return scope.WithBaseline(baseline), nil
}

// buildScope validates the request into one vetting scope without data handles.
func (a *AppServiceAdapter) buildScope(in VetRequest) (domain.VettingScope, error) {
	coverage := a.cfg.DefaultCoverage
	if strings.TrimSpace(in.Coverage) != "" {
		parsed, err := domain.ParseCoverageLevel(in.Coverage)
		if err != nil {
			return domain.VettingScope{}, err
		}
		coverage = parsed
	}
	categories, err := domain.ParseCategories(in.Categories)
	if err != nil {
		return domain.VettingScope{}, err
	}
	scope, err := domain.NewVettingScope(categories, domain.LocaleID(in.Locale), coverage)
	if err != nil {
		return domain.VettingScope{}, err
	}
	if user := domain.NormalizeUserID(in.User); user != "" {
		scope = scope.WithUser(user)
	}
	org := domain.Organization(strings.TrimSpace(in.Organization))
	if org == "" {
		org = a.cfg.Organization
	}
	if org != "" {
		scope = scope.WithOrganization(org)
	}
	if strings.TrimSpace(in.Path) != "" {
		path, err := a.cfg.Parser.Parse(in.Path)
		if err != nil {
			return domain.VettingScope{}, err
		}
		scope = scope.WithPathFilter(path)
	}
	return scope, nil
}

// RecordVote stores one vote stamped with the adapter clock.
func (a *AppServiceAdapter) RecordVote(ctx context.Context, in RecordVoteRequest) (domain.Vote, error) {
	if a.cfg.Votes == nil {
		return domain.Vote{}, fmt.Errorf("vote store is not configured: %w", ErrUnavailable)
	}
	vote, err := domain.NewVote(domain.UserID(in.User), domain.LocaleID(in.Locale), in.Path, in.Value, domain.VoteType(in.Type), a.cfg.Clock())
	if err != nil {
		return domain.Vote{}, mapAppError("record vote", err)
	}
	if err := a.cfg.Votes.RecordVote(ctx, vote); err != nil {
		return domain.Vote{}, mapAppError("record vote", err)
	}
	return vote, nil
}

// mapAppError maps app and domain errors into transport-facing sentinels.
func mapAppError(operation string, err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, app.ErrNotFound):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrNotFound, err))
	case errors.Is(err, domain.ErrPathSyntax),
		errors.Is(err, domain.ErrPathIndex),
		errors.Is(err, domain.ErrInvalidArgument),
		errors.Is(err, domain.ErrInvalidLocale),
		errors.Is(err, domain.ErrInvalidUser),
		errors.Is(err, domain.ErrInvalidCoverageLevel),
		errors.Is(err, domain.ErrInvalidReportKind),
		errors.Is(err, domain.ErrInvalidCategory),
		errors.Is(err, domain.ErrInvalidVoteType),
		errors.Is(err, app.ErrNoSourceData),
		errors.Is(err, app.ErrLocaleMismatch):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrInvalidRequest, err))
	default:
		return fmt.Errorf("%s: %w", operation, err)
	}
}
