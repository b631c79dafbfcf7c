// Package common provides transport-agnostic server contracts used by HTTP and MCP adapters.
package common

import (
	"context"
	"errors"
	"time"

	"github.com/hylla/vettrack/internal/app"
	"github.com/hylla/vettrack/internal/domain"
)

// ErrInvalidRequest reports malformed transport input.
var ErrInvalidRequest = errors.New("invalid request")

// ErrNotFound reports missing locales or records.
var ErrNotFound = errors.New("not found")

// ErrUnavailable reports a surface whose backing service is not configured.
var ErrUnavailable = errors.New("service unavailable")

// ParsePathRequest stores one raw path to parse.
type ParsePathRequest struct {
	Path string `json:"path"`
}

// PathElementView is the transport shape of one parsed element.
type PathElementView struct {
	Name       string            `json:"name"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// ParsedPath is the transport shape of one parsed path.
type ParsedPath struct {
	Input     string            `json:"input"`
	Canonical string            `json:"canonical"`
	Size      int               `json:"size"`
	Elements  []PathElementView `json:"elements"`
}

// CompletionRequest stores one done/total pair.
type CompletionRequest struct {
	Done  int64 `json:"done"`
	Total int64 `json:"total"`
}

// CompletionResponse stores one computed percentage.
type CompletionResponse struct {
	Done    int64 `json:"done"`
	Total   int64 `json:"total"`
	Percent int   `json:"percent"`
}

// ReportStatusRequest identifies one (user, locale) record set.
type ReportStatusRequest struct {
	User   string `json:"user"`
	Locale string `json:"locale"`
}

// ListUserReportsRequest identifies one user across locales.
type ListUserReportsRequest struct {
	User string `json:"user"`
}

// ReportView is the transport shape of one report record.
type ReportView struct {
	Kind        string     `json:"kind"`
	Title       string     `json:"title"`
	Marked      bool       `json:"marked"`
	Acceptable  bool       `json:"acceptable"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// ReportStatusResponse lists every report kind for one (user, locale) in menu order.
type ReportStatusResponse struct {
	User     string       `json:"user"`
	Locale   string       `json:"locale"`
	Complete int          `json:"complete"`
	Reports  []ReportView `json:"reports"`
}

// MarkReportRequest stores one mark-complete write.
// A nil CompletedAt stamps the record with the server clock.
type MarkReportRequest struct {
	User        string     `json:"user"`
	Locale      string     `json:"locale"`
	Kind        string     `json:"kind"`
	Marked      bool       `json:"marked"`
	Acceptable  bool       `json:"acceptable"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// MarkReportResponse stores the record kept after one write.
type MarkReportResponse struct {
	User   string     `json:"user"`
	Locale string     `json:"locale"`
	Report ReportView `json:"report"`
}

// ReportSummaryRequest identifies one locale to summarize.
type ReportSummaryRequest struct {
	Locale string `json:"locale"`
}

// VetRequest stores one vetting-pass request.
// Empty Coverage uses the configured default; empty Categories means all categories.
type VetRequest struct {
	Locale       string   `json:"locale"`
	Coverage     string   `json:"coverage,omitempty"`
	Categories   []string `json:"categories,omitempty"`
	User         string   `json:"user,omitempty"`
	Organization string   `json:"organization,omitempty"`
	Path         string   `json:"path,omitempty"`
	Baseline     bool     `json:"baseline,omitempty"`
}

// RecordVoteRequest stores one vote submission.
type RecordVoteRequest struct {
	User   string `json:"user"`
	Locale string `json:"locale"`
	Path   string `json:"path"`
	Value  string `json:"value"`
	Type   string `json:"type,omitempty"`
}

// PathService exposes path parsing and percentage scoring.
type PathService interface {
	ParsePath(context.Context, ParsePathRequest) (ParsedPath, error)
	Completion(context.Context, CompletionRequest) (CompletionResponse, error)
}

// ReportService exposes the report ledger.
type ReportService interface {
	ReportStatus(context.Context, ReportStatusRequest) (ReportStatusResponse, error)
	ListUserReports(context.Context, ListUserReportsRequest) ([]ReportStatusResponse, error)
	MarkReport(context.Context, MarkReportRequest) (MarkReportResponse, error)
	ReportSummary(context.Context, ReportSummaryRequest) (domain.LocaleReportSummary, error)
}

// VettingService exposes vetting passes and vote recording.
type VettingService interface {
	Vet(context.Context, VetRequest) (app.VettingResult, error)
	RecordVote(context.Context, RecordVoteRequest) (domain.Vote, error)
}

// ReportKindView names one report kind in menu order.
type ReportKindView struct {
	Kind  string `json:"kind"`
	Title string `json:"title"`
}

// ReportKinds lists every report kind in menu order.
func ReportKinds() []ReportKindView {
	kinds := domain.ReportKinds()
	out := make([]ReportKindView, 0, len(kinds))
	for _, kind := range kinds {
		out = append(out, ReportKindView{Kind: string(kind), Title: kind.Title()})
	}
	return out
}

// NewParsedPath converts one parsed path into its transport shape.
func NewParsedPath(input string, path domain.PathAddress) ParsedPath {
	elements := path.Elements()
	views := make([]PathElementView, 0, len(elements))
	for _, el := range elements {
		views = append(views, PathElementView{Name: el.Name, Attributes: el.Attributes})
	}
	return ParsedPath{
		Input:     input,
		Canonical: path.String(),
		Size:      path.Size(),
		Elements:  views,
	}
}

// NewReportStatusResponse lists every kind for one record set, unmarked kinds included.
func NewReportStatusResponse(reports domain.UserLocaleReports) ReportStatusResponse {
	out := ReportStatusResponse{
		User:    string(reports.User),
		Locale:  string(reports.Locale),
		Reports: make([]ReportView, 0, len(domain.ReportKinds())),
	}
	for _, kind := range domain.ReportKinds() {
		status, _ := reports.Status(kind)
		out.Reports = append(out.Reports, newReportView(kind, status))
		if reports.IsComplete(kind) {
			out.Complete++
		}
	}
	return out
}

// newReportView converts one record; the zero record has no timestamp.
func newReportView(kind domain.ReportKind, status domain.ReportStatus) ReportView {
	view := ReportView{
		Kind:       string(kind),
		Title:      kind.Title(),
		Marked:     status.Marked,
		Acceptable: status.Acceptable,
	}
	if !status.CompletedAt.IsZero() {
		at := status.CompletedAt
		view.CompletedAt = &at
	}
	return view
}
