// Package httpapi provides the REST HTTP adapter for the server surfaces.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/hylla/vettrack/internal/adapters/server/common"
)

// maxRequestBodyBytes limits decoded JSON payload size for fail-closed request handling.
const maxRequestBodyBytes int64 = 1 << 20

// Handler serves the versioned API subrouter mounted under `/api/v1`.
type Handler struct {
	paths   common.PathService
	reports common.ReportService
	vetting common.VettingService
}

// APIError represents one structured API failure response.
type APIError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Hint    string         `json:"hint,omitempty"`
	Context map[string]any `json:"context,omitempty"`
}

// ErrorEnvelope wraps one structured API error.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// NewHandler constructs one HTTP API adapter. Nil services answer 501.
func NewHandler(paths common.PathService, reports common.ReportService, vetting common.VettingService) *Handler {
	return &Handler{
		paths:   paths,
		reports: reports,
		vetting: vetting,
	}
}

// ServeHTTP routes one versioned API request to the matching handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := normalizePath(r.URL.Path)
	switch path {
	case "paths/parse":
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w, http.MethodGet)
			return
		}
		h.handleParsePath(w, r)
	case "completion":
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w, http.MethodGet)
			return
		}
		h.handleCompletion(w, r)
	case "reports":
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w, http.MethodGet)
			return
		}
		h.handleReportStatus(w, r)
	case "reports/kinds":
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w, http.MethodGet)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"kinds": common.ReportKinds(),
		})
	case "reports/mark":
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w, http.MethodPost)
			return
		}
		h.handleMarkReport(w, r)
	case "reports/summary":
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w, http.MethodGet)
			return
		}
		h.handleReportSummary(w, r)
	case "vetting":
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w, http.MethodPost)
			return
		}
		h.handleVet(w, r)
	case "votes":
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w, http.MethodPost)
			return
		}
		h.handleRecordVote(w, r)
	default:
		writeJSONError(w, http.StatusNotFound, APIError{
			Code:    "not_found",
			Message: "endpoint not found",
		})
	}
}

// handleParsePath serves GET `/paths/parse`.
func (h *Handler) handleParsePath(w http.ResponseWriter, r *http.Request) {
	if h.paths == nil {
		writeNotImplemented(w, "path APIs are not available")
		return
	}
	parsed, err := h.paths.ParsePath(r.Context(), common.ParsePathRequest{
		Path: r.URL.Query().Get("path"),
	})
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, parsed)
}

// handleCompletion serves GET `/completion`.
func (h *Handler) handleCompletion(w http.ResponseWriter, r *http.Request) {
	if h.paths == nil {
		writeNotImplemented(w, "path APIs are not available")
		return
	}
	done, err := parseCount(r, "done")
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	total, err := parseCount(r, "total")
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	out, err := h.paths.Completion(r.Context(), common.CompletionRequest{Done: done, Total: total})
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// handleReportStatus serves GET `/reports`. Without a locale it lists every locale of the user.
func (h *Handler) handleReportStatus(w http.ResponseWriter, r *http.Request) {
	if h.reports == nil {
		writeNotImplemented(w, "report APIs are not available")
		return
	}
	user := strings.TrimSpace(r.URL.Query().Get("user"))
	locale := strings.TrimSpace(r.URL.Query().Get("locale"))
	if user == "" {
		writeJSONError(w, http.StatusBadRequest, APIError{
			Code:    "invalid_request",
			Message: "user is required",
		})
		return
	}
	if locale == "" {
		records, err := h.reports.ListUserReports(r.Context(), common.ListUserReportsRequest{User: user})
		if err != nil {
			writeErrorFrom(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"locales": records,
		})
		return
	}
	status, err := h.reports.ReportStatus(r.Context(), common.ReportStatusRequest{User: user, Locale: locale})
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// handleMarkReport serves POST `/reports/mark`.
func (h *Handler) handleMarkReport(w http.ResponseWriter, r *http.Request) {
	if h.reports == nil {
		writeNotImplemented(w, "report APIs are not available")
		return
	}
	var req common.MarkReportRequest
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	out, err := h.reports.MarkReport(r.Context(), req)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// handleReportSummary serves GET `/reports/summary`.
func (h *Handler) handleReportSummary(w http.ResponseWriter, r *http.Request) {
	if h.reports == nil {
		writeNotImplemented(w, "report APIs are not available")
		return
	}
	summary, err := h.reports.ReportSummary(r.Context(), common.ReportSummaryRequest{
		Locale: strings.TrimSpace(r.URL.Query().Get("locale")),
	})
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// handleVet serves POST `/vetting`.
func (h *Handler) handleVet(w http.ResponseWriter, r *http.Request) {
	if h.vetting == nil {
		writeNotImplemented(w, "vetting APIs are not available")
		return
	}
	var req common.VetRequest
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	result, err := h.vetting.Vet(r.Context(), req)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleRecordVote serves POST `/votes`.
func (h *Handler) handleRecordVote(w http.ResponseWriter, r *http.Request) {
	if h.vetting == nil {
		writeNotImplemented(w, "vetting APIs are not available")
		return
	}
	var req common.RecordVoteRequest
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	vote, err := h.vetting.RecordVote(r.Context(), req)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, vote)
}

// parseCount reads one required non-negative integer query parameter.
func parseCount(r *http.Request, name string) (int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, fmt.Errorf("%s is required: %w", name, common.ErrInvalidRequest)
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", name, errors.Join(common.ErrInvalidRequest, err))
	}
	return value, nil
}

// normalizePath trims surrounding slashes and whitespace from route paths.
func normalizePath(path string) string {
	path = strings.TrimSpace(path)
	path = strings.Trim(path, "/")
	return path
}

// writeErrorFrom maps adapter errors into structured HTTP responses.
func writeErrorFrom(w http.ResponseWriter, err error) {
	switch {
	case err == nil:
		writeJSONError(w, http.StatusInternalServerError, APIError{
			Code:    "internal_error",
			Message: "unknown error",
		})
	case errors.Is(err, common.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, APIError{
			Code:    "not_found",
			Message: err.Error(),
		})
	case errors.Is(err, common.ErrInvalidRequest):
		writeJSONError(w, http.StatusBadRequest, APIError{
			Code:    "invalid_request",
			Message: err.Error(),
		})
	case errors.Is(err, common.ErrUnavailable):
		writeNotImplemented(w, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeJSONError(w, http.StatusServiceUnavailable, APIError{
			Code:    "canceled",
			Message: err.Error(),
		})
	default:
		writeJSONError(w, http.StatusInternalServerError, APIError{
			Code:    "internal_error",
			Message: err.Error(),
		})
	}
}

// writeNotImplemented writes a structured 501 for unconfigured surfaces.
func writeNotImplemented(w http.ResponseWriter, message string) {
	writeJSONError(w, http.StatusNotImplemented, APIError{
		Code:    "not_implemented",
		Message: message,
	})
}

// writeMethodNotAllowed writes a structured 405 response with `Allow` headers.
func writeMethodNotAllowed(w http.ResponseWriter, methods ...string) {
	if len(methods) > 0 {
		w.Header().Set("Allow", strings.Join(methods, ", "))
	}
	writeJSONError(w, http.StatusMethodNotAllowed, APIError{
		Code:    "method_not_allowed",
		Message: "method not allowed",
	})
}

// writeJSONError writes one structured error envelope.
func writeJSONError(w http.ResponseWriter, statusCode int, apiErr APIError) {
	writeJSON(w, statusCode, ErrorEnvelope{Error: apiErr})
}

// writeJSON writes one JSON response envelope.
func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, fmt.Sprintf(`{"error":{"code":"encode_error","message":"%s"}}`, err.Error()), http.StatusInternalServerError)
	}
}

// decodeJSONBody decodes one required JSON request body with strict shape checks.
func decodeJSONBody(ctx context.Context, w http.ResponseWriter, r *http.Request, out any) error {
	reader := http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	defer reader.Close()

	decoder := json.NewDecoder(reader)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(out); err != nil {
		return fmt.Errorf("decode request body: %w", errors.Join(common.ErrInvalidRequest, err))
	}
	// Reject trailing payloads so malformed JSON bodies fail closed.
	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode request body: trailing content: %w", common.ErrInvalidRequest)
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("request canceled: %w", ctx.Err())
	default:
		return nil
	}
}
