package mcpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"

	"github.com/hylla/vettrack/internal/adapters/server/common"
	"github.com/hylla/vettrack/internal/app"
	"github.com/hylla/vettrack/internal/domain"
	"github.com/mark3labs/mcp-go/mcp"
)

// stubPathService computes real percentages and returns a fixed parse.
type stubPathService struct {
	parsed    common.ParsedPath
	err       error
	lastParse common.ParsePathRequest
	lastDone  common.CompletionRequest
}

// ParsePath records the request and returns the fixture.
func (s *stubPathService) ParsePath(_ context.Context, req common.ParsePathRequest) (common.ParsedPath, error) {
	s.lastParse = req
	return s.parsed, s.err
}

// Completion records the request and computes the percentage.
func (s *stubPathService) Completion(_ context.Context, req common.CompletionRequest) (common.CompletionResponse, error) {
	s.lastDone = req
	return common.CompletionResponse{Done: req.Done, Total: req.Total, Percent: domain.Percentage(req.Done, req.Total)}, nil
}

// stubReportService provides deterministic ledger responses for MCP tool tests.
type stubReportService struct {
	status   common.ReportStatusResponse
	listed   []common.ReportStatusResponse
	marked   common.MarkReportResponse
	summary  domain.LocaleReportSummary
	err      error
	lastMark common.MarkReportRequest
	lastList common.ListUserReportsRequest
}

// ReportStatus returns the fixture status.
func (s *stubReportService) ReportStatus(_ context.Context, _ common.ReportStatusRequest) (common.ReportStatusResponse, error) {
	return s.status, s.err
}

// ListUserReports records the request and returns fixture rows.
func (s *stubReportService) ListUserReports(_ context.Context, req common.ListUserReportsRequest) ([]common.ReportStatusResponse, error) {
	s.lastList = req
	return s.listed, s.err
}

// MarkReport records the request and returns the fixture.
func (s *stubReportService) MarkReport(_ context.Context, req common.MarkReportRequest) (common.MarkReportResponse, error) {
	s.lastMark = req
	return s.marked, s.err
}

// ReportSummary returns the fixture summary.
func (s *stubReportService) ReportSummary(_ context.Context, _ common.ReportSummaryRequest) (domain.LocaleReportSummary, error) {
	return s.summary, s.err
}

// stubVettingService provides deterministic vetting responses for MCP tool tests.
type stubVettingService struct {
	result   app.VettingResult
	err      error
	lastVet  common.VetRequest
	lastVote common.RecordVoteRequest
}

// Vet records the request and returns the fixture.
func (s *stubVettingService) Vet(_ context.Context, req common.VetRequest) (app.VettingResult, error) {
	s.lastVet = req
	return s.result, s.err
}

// RecordVote records the request and echoes it back as a vote.
func (s *stubVettingService) RecordVote(_ context.Context, req common.RecordVoteRequest) (domain.Vote, error) {
	s.lastVote = req
	if s.err != nil {
		return domain.Vote{}, s.err
	}
	return domain.Vote{User: domain.UserID(req.User), Locale: domain.LocaleID(req.Locale), Path: req.Path, Type: domain.VoteTypeDirect}, nil
}

// jsonRPCResponse models minimal JSON-RPC response fields used in MCP adapter tests.
type jsonRPCResponse struct {
	ID     float64        `json:"id"`
	Result map[string]any `json:"result"`
}

// callToolRequest constructs one deterministic tools/call JSON-RPC request payload.
func callToolRequest(id int, toolName string, arguments map[string]any) map[string]any {
	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  "tools/call",
		"params": map[string]any{
			"name":      toolName,
			"arguments": arguments,
		},
	}
}

// toolResultText decodes the first text entry from one tool-call result payload.
func toolResultText(t *testing.T, result map[string]any) string {
	t.Helper()
	contentRaw, ok := result["content"].([]any)
	if !ok || len(contentRaw) == 0 {
		t.Fatalf("content missing in tool result: %#v", result)
	}
	first, ok := contentRaw[0].(map[string]any)
	if !ok {
		t.Fatalf("first content entry has unexpected type: %#v", contentRaw[0])
	}
	text, ok := first["text"].(string)
	if !ok {
		t.Fatalf("content text missing in tool result: %#v", first)
	}
	return text
}

// toolResultStructured decodes structuredContent as one map for stable assertions.
func toolResultStructured(t *testing.T, result map[string]any) map[string]any {
	t.Helper()
	structured, ok := result["structuredContent"].(map[string]any)
	if !ok {
		t.Fatalf("structuredContent missing in tool result: %#v", result)
	}
	return structured
}

// postJSONRPC sends one JSON-RPC payload and decodes the response body.
func postJSONRPC(t *testing.T, client *http.Client, url string, payload any) (*http.Response, jsonRPCResponse) {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	var decoded jsonRPCResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if err := resp.Body.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	return resp, decoded
}

// initializeRequest builds a deterministic MCP initialize request payload.
func initializeRequest() map[string]any {
	return map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "initialize",
		"params": map[string]any{
			"protocolVersion": mcp.LATEST_PROTOCOL_VERSION,
			"clientInfo": map[string]any{
				"name":    "vettrack-test",
				"version": "1.0.0",
			},
		},
	}
}

// callToolResultText decodes the first textual content block from a CallToolResult.
func callToolResultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if result == nil {
		t.Fatalf("result = nil, want non-nil")
	}
	if len(result.Content) == 0 {
		t.Fatalf("result content is empty")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content[0] has unexpected type %T", result.Content[0])
	}
	return text.Text
}

// listToolNames returns the names from one tools/list response.
func listToolNames(t *testing.T, server *httptest.Server) []string {
	t.Helper()
	_, _ = postJSONRPC(t, server.Client(), server.URL, initializeRequest())
	_, toolsResp := postJSONRPC(t, server.Client(), server.URL, map[string]any{
		"jsonrpc": "2.0",
		"id":      2,
		"method":  "tools/list",
	})
	toolsRaw, ok := toolsResp.Result["tools"].([]any)
	if !ok {
		t.Fatalf("tools list payload missing tools: %#v", toolsResp.Result)
	}
	names := make([]string, 0, len(toolsRaw))
	for _, toolRaw := range toolsRaw {
		toolMap, ok := toolRaw.(map[string]any)
		if !ok {
			continue
		}
		name, _ := toolMap["name"].(string)
		names = append(names, name)
	}
	return names
}

// TestNewHandlerRequiresPathService verifies the constructor rejects a nil path service.
func TestNewHandlerRequiresPathService(t *testing.T) {
	if _, err := NewHandler(Config{}, nil, nil, nil); err == nil {
		t.Fatal("expected error for nil path service")
	}
}

// TestHandlerUsesStatelessTransport verifies MCP transport does not issue session ids.
func TestHandlerUsesStatelessTransport(t *testing.T) {
	handler, err := NewHandler(Config{}, &stubPathService{}, nil, nil)
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	server := httptest.NewServer(handler)
	defer server.Close()

	resp, decoded := postJSONRPC(t, server.Client(), server.URL, initializeRequest())
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if decoded.ID != 1 {
		t.Fatalf("id = %v, want 1", decoded.ID)
	}
	if got := resp.Header.Get("Mcp-Session-Id"); got != "" {
		t.Fatalf("Mcp-Session-Id header = %q, want empty (stateless transport)", got)
	}
}

// TestHandlerRegistersOptionalTools verifies report and vetting tools follow their services.
func TestHandlerRegistersOptionalTools(t *testing.T) {
	minimal, err := NewHandler(Config{}, &stubPathService{}, nil, nil)
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	minimalServer := httptest.NewServer(minimal)
	defer minimalServer.Close()
	names := listToolNames(t, minimalServer)
	if !slices.Contains(names, "vettrack.parse_path") || !slices.Contains(names, "vettrack.completion") {
		t.Fatalf("tool list missing path tools: %#v", names)
	}
	if slices.Contains(names, "vettrack.mark_report") || slices.Contains(names, "vettrack.vet_locale") {
		t.Fatalf("unexpected optional tools without services: %#v", names)
	}

	full, err := NewHandler(Config{}, &stubPathService{}, &stubReportService{}, &stubVettingService{})
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	fullServer := httptest.NewServer(full)
	defer fullServer.Close()
	names = listToolNames(t, fullServer)
	for _, required := range []string{
		"vettrack.parse_path",
		"vettrack.completion",
		"vettrack.report_status",
		"vettrack.mark_report",
		"vettrack.report_summary",
		"vettrack.vet_locale",
		"vettrack.record_vote",
	} {
		if !slices.Contains(names, required) {
			t.Fatalf("tool list missing %q: %#v", required, names)
		}
	}
}

// TestHandlerPathToolCalls verifies parse and completion tool round trips.
func TestHandlerPathToolCalls(t *testing.T) {
	paths := &stubPathService{parsed: common.ParsedPath{Canonical: "//ldml/numbers", Size: 2}}
	handler, err := NewHandler(Config{}, paths, nil, nil)
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	server := httptest.NewServer(handler)
	defer server.Close()
	_, _ = postJSONRPC(t, server.Client(), server.URL, initializeRequest())

	_, parseResp := postJSONRPC(t, server.Client(), server.URL, callToolRequest(3, "vettrack.parse_path", map[string]any{
		"path": "//ldml/numbers",
	}))
	if got := toolResultStructured(t, parseResp.Result)["canonical"]; got != "//ldml/numbers" {
		t.Fatalf("canonical = %#v", got)
	}
	if paths.lastParse.Path != "//ldml/numbers" {
		t.Fatalf("path = %q", paths.lastParse.Path)
	}

	_, doneResp := postJSONRPC(t, server.Client(), server.URL, callToolRequest(4, "vettrack.completion", map[string]any{
		"done":  1,
		"total": 1000,
	}))
	if got := toolResultStructured(t, doneResp.Result)["percent"]; got != float64(1) {
		t.Fatalf("percent = %#v, want 1", got)
	}
	if paths.lastDone.Total != 1000 {
		t.Fatalf("total = %d, want 1000", paths.lastDone.Total)
	}

	_, missingResp := postJSONRPC(t, server.Client(), server.URL, callToolRequest(5, "vettrack.parse_path", map[string]any{}))
	if isError, _ := missingResp.Result["isError"].(bool); !isError {
		t.Fatalf("isError = %v, want true", missingResp.Result["isError"])
	}
	if got := toolResultText(t, missingResp.Result); !strings.Contains(got, `"path"`) {
		t.Fatalf("text = %q, want missing path message", got)
	}
}

// TestHandlerReportAndVettingToolCalls verifies argument forwarding and error mapping.
func TestHandlerReportAndVettingToolCalls(t *testing.T) {
	reports := &stubReportService{
		marked:  common.MarkReportResponse{User: "u1", Locale: "fr", Report: common.ReportView{Kind: "zones", Marked: true}},
		listed:  []common.ReportStatusResponse{{User: "u1", Locale: "fr"}},
		summary: domain.LocaleReportSummary{Locale: "fr", TotalVoters: 2},
	}
	vetting := &stubVettingService{result: app.VettingResult{Locale: "fr", VotablePaths: 4, VotedPaths: 3, VotePercent: 75}}
	handler, err := NewHandler(Config{}, &stubPathService{}, reports, vetting)
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	server := httptest.NewServer(handler)
	defer server.Close()
	_, _ = postJSONRPC(t, server.Client(), server.URL, initializeRequest())

	_, markResp := postJSONRPC(t, server.Client(), server.URL, callToolRequest(3, "vettrack.mark_report", map[string]any{
		"user":         "u1",
		"locale":       "fr",
		"kind":         "zones",
		"acceptable":   true,
		"completed_at": "2026-04-02T09:30:00Z",
	}))
	if got := toolResultStructured(t, markResp.Result)["user"]; got != "u1" {
		t.Fatalf("user = %#v", got)
	}
	if !reports.lastMark.Marked || !reports.lastMark.Acceptable || reports.lastMark.CompletedAt == nil {
		t.Fatalf("unexpected mark request %#v", reports.lastMark)
	}

	_, badTime := postJSONRPC(t, server.Client(), server.URL, callToolRequest(4, "vettrack.mark_report", map[string]any{
		"user":         "u1",
		"locale":       "fr",
		"kind":         "zones",
		"completed_at": "yesterday",
	}))
	if got := toolResultText(t, badTime.Result); !strings.HasPrefix(got, "invalid_request:") {
		t.Fatalf("text = %q, want invalid_request prefix", got)
	}

	_, listResp := postJSONRPC(t, server.Client(), server.URL, callToolRequest(5, "vettrack.report_status", map[string]any{
		"user": "u1",
	}))
	locales, _ := toolResultStructured(t, listResp.Result)["locales"].([]any)
	if len(locales) != 1 || reports.lastList.User != "u1" {
		t.Fatalf("unexpected locale listing %#v", locales)
	}

	_, vetResp := postJSONRPC(t, server.Client(), server.URL, callToolRequest(6, "vettrack.vet_locale", map[string]any{
		"locale":     "fr",
		"coverage":   "modern",
		"categories": []any{"error", "missing_coverage"},
		"user":       "u1",
	}))
	if got := toolResultStructured(t, vetResp.Result)["vote_percent"]; got != float64(75) {
		t.Fatalf("vote_percent = %#v", got)
	}
	if len(vetting.lastVet.Categories) != 2 || vetting.lastVet.Coverage != "modern" {
		t.Fatalf("unexpected vet request %#v", vetting.lastVet)
	}

	vetting.err = errors.Join(common.ErrNotFound, errors.New("no data for de"))
	_, notFound := postJSONRPC(t, server.Client(), server.URL, callToolRequest(7, "vettrack.vet_locale", map[string]any{
		"locale": "de",
	}))
	if got := toolResultText(t, notFound.Result); !strings.HasPrefix(got, "not_found:") {
		t.Fatalf("text = %q, want not_found prefix", got)
	}
}

// TestToolResultFromError verifies error prefixes for every sentinel.
func TestToolResultFromError(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantPrefix string
	}{
		{name: "invalid", err: errors.Join(common.ErrInvalidRequest, errors.New("bad")), wantPrefix: "invalid_request:"},
		{name: "not found", err: errors.Join(common.ErrNotFound, errors.New("missing")), wantPrefix: "not_found:"},
		{name: "unavailable", err: errors.Join(common.ErrUnavailable, errors.New("off")), wantPrefix: "not_implemented:"},
		{name: "internal", err: errors.New("boom"), wantPrefix: "internal_error:"},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			result := toolResultFromError(tt.err)
			if !result.IsError {
				t.Fatalf("IsError = false, want true")
			}
			if got := callToolResultText(t, result); !strings.HasPrefix(got, tt.wantPrefix) {
				t.Fatalf("text = %q, want prefix %q", got, tt.wantPrefix)
			}
		})
	}
}
