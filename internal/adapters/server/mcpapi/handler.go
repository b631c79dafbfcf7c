// Package mcpapi provides a stateless MCP streamable-HTTP adapter.
package mcpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hylla/vettrack/internal/adapters/server/common"
	"github.com/hylla/vettrack/internal/domain"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// Config captures MCP transport configuration.
type Config struct {
	ServerName    string
	ServerVersion string
	EndpointPath  string
}

// Handler wraps one stateless MCP streamable HTTP handler.
type Handler struct {
	httpHandler http.Handler
}

// NewHandler builds one stateless MCP adapter. Report and vetting tools are registered only
// when their services are provided.
func NewHandler(cfg Config, paths common.PathService, reports common.ReportService, vetting common.VettingService) (*Handler, error) {
	if paths == nil {
		return nil, fmt.Errorf("path service is required")
	}
	cfg = normalizeConfig(cfg)

	mcpSrv := mcpserver.NewMCPServer(
		cfg.ServerName,
		cfg.ServerVersion,
		mcpserver.WithToolCapabilities(false),
	)
	registerPathTools(mcpSrv, paths)
	if reports != nil {
		registerReportTools(mcpSrv, reports)
	}
	if vetting != nil {
		registerVettingTools(mcpSrv, vetting)
	}

	streamable := mcpserver.NewStreamableHTTPServer(
		mcpSrv,
		mcpserver.WithEndpointPath(cfg.EndpointPath),
		mcpserver.WithStateLess(true),
	)
	return &Handler{httpHandler: streamable}, nil
}

// ServeHTTP handles one MCP streamable HTTP request.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.httpHandler == nil {
		http.Error(w, "mcp handler unavailable", http.StatusServiceUnavailable)
		return
	}
	h.httpHandler.ServeHTTP(w, r)
}

// normalizeConfig applies deterministic defaults to MCP adapter config.
func normalizeConfig(cfg Config) Config {
	cfg.ServerName = strings.TrimSpace(cfg.ServerName)
	if cfg.ServerName == "" {
		cfg.ServerName = "vettrack"
	}
	cfg.ServerVersion = strings.TrimSpace(cfg.ServerVersion)
	if cfg.ServerVersion == "" {
		cfg.ServerVersion = "dev"
	}
	cfg.EndpointPath = strings.TrimSpace(cfg.EndpointPath)
	if cfg.EndpointPath == "" {
		cfg.EndpointPath = "/mcp"
	}
	if !strings.HasPrefix(cfg.EndpointPath, "/") {
		cfg.EndpointPath = "/" + cfg.EndpointPath
	}
	cfg.EndpointPath = "/" + strings.Trim(cfg.EndpointPath, "/")
	return cfg
}

// registerPathTools registers `vettrack.parse_path` and `vettrack.completion`.
func registerPathTools(srv *mcpserver.MCPServer, paths common.PathService) {
	srv.AddTool(
		mcp.NewTool(
			"vettrack.parse_path",
			mcp.WithDescription("Parse one locale-data path into elements and attributes and return its canonical form."),
			mcp.WithString("path", mcp.Required(), mcp.Description(`Path such as //ldml/numbers/symbols[@numberSystem="latn"]/decimal`)),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			raw, err := req.RequireString("path")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			parsed, err := paths.ParsePath(ctx, common.ParsePathRequest{Path: raw})
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(parsed)
			if err != nil {
				return nil, fmt.Errorf("encode parse_path result: %w", err)
			}
			return result, nil
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"vettrack.completion",
			mcp.WithDescription("Convert done/total counts into a completion percentage."),
			mcp.WithNumber("done", mcp.Required(), mcp.Description("Completed item count")),
			mcp.WithNumber("total", mcp.Required(), mcp.Description("Total item count")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			done, err := req.RequireInt("done")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			total, err := req.RequireInt("total")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			out, err := paths.Completion(ctx, common.CompletionRequest{Done: int64(done), Total: int64(total)})
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(out)
			if err != nil {
				return nil, fmt.Errorf("encode completion result: %w", err)
			}
			return result, nil
		},
	)
}

// registerReportTools registers report status, mark and summary tools.
func registerReportTools(srv *mcpserver.MCPServer, reports common.ReportService) {
	kinds := make([]string, 0, len(domain.ReportKinds()))
	for _, kind := range domain.ReportKinds() {
		kinds = append(kinds, string(kind))
	}

	srv.AddTool(
		mcp.NewTool(
			"vettrack.report_status",
			mcp.WithDescription("Return report completion records for one user. Omit locale to list every locale the user touched."),
			mcp.WithString("user", mcp.Required(), mcp.Description("User identifier")),
			mcp.WithString("locale", mcp.Description("Locale identifier such as fr_CA")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			user, err := req.RequireString("user")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			locale := strings.TrimSpace(req.GetString("locale", ""))
			var payload any
			if locale == "" {
				records, err := reports.ListUserReports(ctx, common.ListUserReportsRequest{User: user})
				if err != nil {
					return toolResultFromError(err), nil
				}
				payload = map[string]any{"locales": records}
			} else {
				status, err := reports.ReportStatus(ctx, common.ReportStatusRequest{User: user, Locale: locale})
				if err != nil {
					return toolResultFromError(err), nil
				}
				payload = status
			}
			result, err := mcp.NewToolResultJSON(payload)
			if err != nil {
				return nil, fmt.Errorf("encode report_status result: %w", err)
			}
			return result, nil
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"vettrack.mark_report",
			mcp.WithDescription("Mark one report complete or incomplete. The record with the later timestamp is kept."),
			mcp.WithString("user", mcp.Required(), mcp.Description("User identifier")),
			mcp.WithString("locale", mcp.Required(), mcp.Description("Locale identifier")),
			mcp.WithString("kind", mcp.Required(), mcp.Description("Report kind"), mcp.Enum(kinds...)),
			mcp.WithBoolean("marked", mcp.Description("Whether the report is complete (default true)")),
			mcp.WithBoolean("acceptable", mcp.Description("Whether the reviewed data is acceptable")),
			mcp.WithString("completed_at", mcp.Description("Optional RFC3339 timestamp; defaults to now")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			user, err := req.RequireString("user")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			locale, err := req.RequireString("locale")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			kind, err := req.RequireString("kind")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			in := common.MarkReportRequest{
				User:       user,
				Locale:     locale,
				Kind:       kind,
				Marked:     req.GetBool("marked", true),
				Acceptable: req.GetBool("acceptable", false),
			}
			if raw := strings.TrimSpace(req.GetString("completed_at", "")); raw != "" {
				at, err := time.Parse(time.RFC3339Nano, raw)
				if err != nil {
					return toolResultFromError(fmt.Errorf("completed_at: %w", errors.Join(common.ErrInvalidRequest, err))), nil
				}
				in.CompletedAt = &at
			}
			out, err := reports.MarkReport(ctx, in)
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(out)
			if err != nil {
				return nil, fmt.Errorf("encode mark_report result: %w", err)
			}
			return result, nil
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"vettrack.report_summary",
			mcp.WithDescription("Count acceptable and not-acceptable marks per report kind across every user of one locale."),
			mcp.WithString("locale", mcp.Required(), mcp.Description("Locale identifier")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			locale, err := req.RequireString("locale")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			summary, err := reports.ReportSummary(ctx, common.ReportSummaryRequest{Locale: locale})
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(summary)
			if err != nil {
				return nil, fmt.Errorf("encode report_summary result: %w", err)
			}
			return result, nil
		},
	)
}

// registerVettingTools registers `vettrack.vet_locale` and `vettrack.record_vote`.
func registerVettingTools(srv *mcpserver.MCPServer, vetting common.VettingService) {
	levels := make([]string, 0, len(domain.CoverageLevels()))
	for _, level := range domain.CoverageLevels() {
		levels = append(levels, level.String())
	}
	voteTypes := make([]string, 0, len(domain.VoteTypes()))
	for _, vt := range domain.VoteTypes() {
		voteTypes = append(voteTypes, string(vt))
	}

	srv.AddTool(
		mcp.NewTool(
			"vettrack.vet_locale",
			mcp.WithDescription("Run one vetting pass over a locale and return progress counts and problem paths."),
			mcp.WithString("locale", mcp.Required(), mcp.Description("Locale identifier")),
			mcp.WithString("coverage", mcp.Description("Coverage threshold"), mcp.Enum(levels...)),
			mcp.WithArray("categories", mcp.Description("Problem categories to report (default all)"), mcp.WithStringItems()),
			mcp.WithString("user", mcp.Description("User whose votes are counted")),
			mcp.WithString("organization", mcp.Description("Organization of the user")),
			mcp.WithString("path", mcp.Description("Restrict the pass to one path")),
			mcp.WithBoolean("baseline", mcp.Description("Compare against baseline data")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			locale, err := req.RequireString("locale")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			out, err := vetting.Vet(ctx, common.VetRequest{
				Locale:       locale,
				Coverage:     req.GetString("coverage", ""),
				Categories:   req.GetStringSlice("categories", nil),
				User:         req.GetString("user", ""),
				Organization: req.GetString("organization", ""),
				Path:         req.GetString("path", ""),
				Baseline:     req.GetBool("baseline", false),
			})
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(out)
			if err != nil {
				return nil, fmt.Errorf("encode vet_locale result: %w", err)
			}
			return result, nil
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"vettrack.record_vote",
			mcp.WithDescription("Record one user's vote on a path, replacing any earlier vote on the same path."),
			mcp.WithString("user", mcp.Required(), mcp.Description("User identifier")),
			mcp.WithString("locale", mcp.Required(), mcp.Description("Locale identifier")),
			mcp.WithString("path", mcp.Required(), mcp.Description("Voted path")),
			mcp.WithString("value", mcp.Description("Voted value")),
			mcp.WithString("type", mcp.Description("Vote type"), mcp.Enum(voteTypes...)),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			user, err := req.RequireString("user")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			locale, err := req.RequireString("locale")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			path, err := req.RequireString("path")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			vote, err := vetting.RecordVote(ctx, common.RecordVoteRequest{
				User:   user,
				Locale: locale,
				Path:   path,
				Value:  req.GetString("value", ""),
				Type:   req.GetString("type", ""),
			})
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(vote)
			if err != nil {
				return nil, fmt.Errorf("encode record_vote result: %w", err)
			}
			return result, nil
		},
	)
}

// toolResultFromError maps service errors into MCP-visible tool errors.
func toolResultFromError(err error) *mcp.CallToolResult {
	switch {
	case err == nil:
		return mcp.NewToolResultError("unknown error")
	case errors.Is(err, common.ErrInvalidRequest):
		return mcp.NewToolResultError("invalid_request: " + err.Error())
	case errors.Is(err, common.ErrNotFound):
		return mcp.NewToolResultError("not_found: " + err.Error())
	case errors.Is(err, common.ErrUnavailable):
		return mcp.NewToolResultError("not_implemented: " + err.Error())
	default:
		return mcp.NewToolResultError("internal_error: " + err.Error())
	}
}
