package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hylla/vettrack/internal/adapters/server/common"
	"github.com/hylla/vettrack/internal/app"
	"github.com/hylla/vettrack/internal/domain"
)

// stubService provides deterministic responses for every service surface.
type stubService struct {
	parsed     common.ParsedPath
	status     common.ReportStatusResponse
	listed     []common.ReportStatusResponse
	marked     common.MarkReportResponse
	summary    domain.LocaleReportSummary
	result     app.VettingResult
	vote       domain.Vote
	err        error
	lastParse  common.ParsePathRequest
	lastStatus common.ReportStatusRequest
	lastList   common.ListUserReportsRequest
	lastMark   common.MarkReportRequest
	lastSum    common.ReportSummaryRequest
	lastVet    common.VetRequest
	lastVote   common.RecordVoteRequest
	lastDone   common.CompletionRequest
}

// ParsePath records the request and returns the configured response.
func (s *stubService) ParsePath(_ context.Context, req common.ParsePathRequest) (common.ParsedPath, error) {
	s.lastParse = req
	return s.parsed, s.err
}

// Completion records the request and computes the real percentage.
func (s *stubService) Completion(_ context.Context, req common.CompletionRequest) (common.CompletionResponse, error) {
	s.lastDone = req
	if s.err != nil {
		return common.CompletionResponse{}, s.err
	}
	return common.CompletionResponse{Done: req.Done, Total: req.Total, Percent: domain.Percentage(req.Done, req.Total)}, nil
}

// ReportStatus records the request and returns the configured response.
func (s *stubService) ReportStatus(_ context.Context, req common.ReportStatusRequest) (common.ReportStatusResponse, error) {
	s.lastStatus = req
	return s.status, s.err
}

// ListUserReports records the request and returns the configured response.
func (s *stubService) ListUserReports(_ context.Context, req common.ListUserReportsRequest) ([]common.ReportStatusResponse, error) {
	s.lastList = req
	return s.listed, s.err
}

// MarkReport records the request and returns the configured response.
func (s *stubService) MarkReport(_ context.Context, req common.MarkReportRequest) (common.MarkReportResponse, error) {
	s.lastMark = req
	return s.marked, s.err
}

// ReportSummary records the request and returns the configured response.
func (s *stubService) ReportSummary(_ context.Context, req common.ReportSummaryRequest) (domain.LocaleReportSummary, error) {
	s.lastSum = req
	return s.summary, s.err
}

// Vet records the request and returns the configured response.
func (s *stubService) Vet(_ context.Context, req common.VetRequest) (app.VettingResult, error) {
	s.lastVet = req
	return s.result, s.err
}

// RecordVote records the request and returns the configured response.
func (s *stubService) RecordVote(_ context.Context, req common.RecordVoteRequest) (domain.Vote, error) {
	s.lastVote = req
	return s.vote, s.err
}

// newStubHandler wires every surface to one stub.
func newStubHandler(stub *stubService) *Handler {
	return NewHandler(stub, stub, stub)
}

// serve runs one request through the handler.
func serve(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// decodeBody decodes one JSON response body into the requested type.
func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	return out
}

// TestHandlerParsePath verifies query mapping for path parsing.
func TestHandlerParsePath(t *testing.T) {
	stub := &stubService{parsed: common.ParsedPath{Canonical: "//ldml/numbers", Size: 2}}
	rec := serve(newStubHandler(stub), http.MethodGet, "/paths/parse?path=%2F%2Fldml%2Fnumbers", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	got := decodeBody[common.ParsedPath](t, rec)
	if got.Size != 2 || stub.lastParse.Path != "//ldml/numbers" {
		t.Fatalf("unexpected parse %#v (request %#v)", got, stub.lastParse)
	}
}

// TestHandlerCompletion verifies query parsing and boundary percentages.
func TestHandlerCompletion(t *testing.T) {
	stub := &stubService{}
	handler := newStubHandler(stub)

	rec := serve(handler, http.MethodGet, "/completion?done=999&total=1000", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if got := decodeBody[common.CompletionResponse](t, rec); got.Percent != 99 {
		t.Fatalf("percent = %d, want 99", got.Percent)
	}

	rec = serve(handler, http.MethodGet, "/completion?done=abc&total=4", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if got := decodeBody[ErrorEnvelope](t, rec); got.Error.Code != "invalid_request" {
		t.Fatalf("code = %q, want invalid_request", got.Error.Code)
	}
}

// TestHandlerReports verifies per-locale status and per-user listing routes.
func TestHandlerReports(t *testing.T) {
	stub := &stubService{
		status: common.ReportStatusResponse{User: "u1", Locale: "fr", Complete: 1},
		listed: []common.ReportStatusResponse{{User: "u1", Locale: "de"}, {User: "u1", Locale: "fr"}},
	}
	handler := newStubHandler(stub)

	rec := serve(handler, http.MethodGet, "/reports?user=u1&locale=fr", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if got := decodeBody[common.ReportStatusResponse](t, rec); got.Complete != 1 {
		t.Fatalf("complete = %d, want 1", got.Complete)
	}
	if stub.lastStatus.User != "u1" || stub.lastStatus.Locale != "fr" {
		t.Fatalf("unexpected request %#v", stub.lastStatus)
	}

	rec = serve(handler, http.MethodGet, "/reports?user=u1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	listed := decodeBody[struct {
		Locales []common.ReportStatusResponse `json:"locales"`
	}](t, rec)
	if len(listed.Locales) != 2 || stub.lastList.User != "u1" {
		t.Fatalf("unexpected listing %#v", listed)
	}

	rec = serve(handler, http.MethodGet, "/reports?locale=fr", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}

	rec = serve(handler, http.MethodGet, "/reports/kinds", "")
	kinds := decodeBody[struct {
		Kinds []common.ReportKindView `json:"kinds"`
	}](t, rec)
	if len(kinds.Kinds) != len(domain.ReportKinds()) || kinds.Kinds[2].Title != "Numbers" {
		t.Fatalf("unexpected kinds %#v", kinds)
	}
}

// TestHandlerMarkReport verifies strict body decoding and mark forwarding.
func TestHandlerMarkReport(t *testing.T) {
	at := time.Date(2026, 4, 2, 9, 30, 0, 0, time.UTC)
	stub := &stubService{
		marked: common.MarkReportResponse{User: "u1", Locale: "fr", Report: common.ReportView{Kind: "zones", Marked: true, CompletedAt: &at}},
	}
	handler := newStubHandler(stub)

	rec := serve(handler, http.MethodPost, "/reports/mark", `{"user":"u1","locale":"fr","kind":"zones","marked":true,"acceptable":true,"completed_at":"2026-04-02T09:30:00Z"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if stub.lastMark.CompletedAt == nil || !stub.lastMark.CompletedAt.Equal(at) || !stub.lastMark.Acceptable {
		t.Fatalf("unexpected request %#v", stub.lastMark)
	}

	rec = serve(handler, http.MethodPost, "/reports/mark", `{"user":"u1","unknown":true}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown field status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	rec = serve(handler, http.MethodPost, "/reports/mark", `{"user":"u1"}{"user":"u2"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("trailing content status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	rec = serve(handler, http.MethodGet, "/reports/mark", "")
	if rec.Code != http.StatusMethodNotAllowed || rec.Header().Get("Allow") != http.MethodPost {
		t.Fatalf("status = %d allow = %q", rec.Code, rec.Header().Get("Allow"))
	}
}

// TestHandlerVettingAndVotes verifies vetting and vote routes.
func TestHandlerVettingAndVotes(t *testing.T) {
	stub := &stubService{
		result: app.VettingResult{Locale: "fr", VotablePaths: 4, VotedPaths: 3, VotePercent: 75},
		vote:   domain.Vote{User: "u1", Locale: "fr", Path: "//ldml/numbers/symbols/decimal", Type: domain.VoteTypeDirect},
	}
	handler := newStubHandler(stub)

	rec := serve(handler, http.MethodPost, "/vetting", `{"locale":"fr","coverage":"modern","categories":["error"],"user":"u1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	got := decodeBody[map[string]any](t, rec)
	if got["vote_percent"].(float64) != 75 {
		t.Fatalf("unexpected vetting payload %#v", got)
	}
	if stub.lastVet.Coverage != "modern" || len(stub.lastVet.Categories) != 1 {
		t.Fatalf("unexpected request %#v", stub.lastVet)
	}

	rec = serve(handler, http.MethodPost, "/votes", `{"user":"u1","locale":"fr","path":"//ldml/numbers/symbols/decimal","value":","}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusCreated)
	}
	if stub.lastVote.Value != "," {
		t.Fatalf("unexpected vote request %#v", stub.lastVote)
	}
}

// TestHandlerErrorMapping verifies structured status mapping for service errors.
func TestHandlerErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "invalid request",
			err:        errors.Join(common.ErrInvalidRequest, errors.New("bad input")),
			wantStatus: http.StatusBadRequest,
			wantCode:   "invalid_request",
		},
		{
			name:       "not found",
			err:        errors.Join(common.ErrNotFound, errors.New("missing")),
			wantStatus: http.StatusNotFound,
			wantCode:   "not_found",
		},
		{
			name:       "unavailable",
			err:        errors.Join(common.ErrUnavailable, errors.New("no store")),
			wantStatus: http.StatusNotImplemented,
			wantCode:   "not_implemented",
		},
		{
			name:       "internal error",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "internal_error",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := newStubHandler(&stubService{err: tc.err})
			rec := serve(handler, http.MethodGet, "/reports/summary?locale=fr", "")
			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
			if got := decodeBody[ErrorEnvelope](t, rec); got.Error.Code != tc.wantCode {
				t.Fatalf("code = %q, want %q", got.Error.Code, tc.wantCode)
			}
		})
	}
}

// TestHandlerUnconfiguredAndUnknownRoutes verifies 501 and 404 responses.
func TestHandlerUnconfiguredAndUnknownRoutes(t *testing.T) {
	handler := NewHandler(nil, nil, nil)
	for _, target := range []string{"/paths/parse?path=//ldml", "/reports?user=u1&locale=fr"} {
		rec := serve(handler, http.MethodGet, target, "")
		if rec.Code != http.StatusNotImplemented {
			t.Fatalf("%s status = %d, want %d", target, rec.Code, http.StatusNotImplemented)
		}
	}
	rec := serve(handler, http.MethodPost, "/vetting", `{"locale":"fr"}`)
	if rec.Code != http.StatusNotImplemented {
		t.Fatalf("vetting status = %d, want %d", rec.Code, http.StatusNotImplemented)
	}
	rec = serve(handler, http.MethodGet, "/nope", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}
