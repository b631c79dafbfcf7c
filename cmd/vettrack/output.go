package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/hylla/vettrack/internal/adapters/server/common"
	"github.com/hylla/vettrack/internal/app"
	"github.com/hylla/vettrack/internal/domain"
)

// outputFormat selects how command results are printed.
type outputFormat string

const (
	formatTable    outputFormat = "table"
	formatJSON     outputFormat = "json"
	formatMarkdown outputFormat = "markdown"
)

// markdownStyle is the glamour style used for markdown output.
var markdownStyle = "dark"

// markdownWrap bounds markdown line width.
const markdownWrap = 100

func parseOutputFormat(raw string) (outputFormat, error) {
	switch f := outputFormat(strings.TrimSpace(strings.ToLower(raw))); f {
	case "", formatTable:
		return formatTable, nil
	case formatJSON, formatMarkdown:
		return f, nil
	case "md":
		return formatMarkdown, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want table, json or markdown)", raw)
	}
}

// view is one printable result: a title, key/value facts and an optional table.
type view struct {
	title   string
	facts   [][2]string
	headers []string
	rows    [][]string
}

// printer renders command results in the selected format.
type printer struct {
	out    io.Writer
	format outputFormat
}

// emit writes payload as JSON, or v as a table or rendered markdown.
func (p printer) emit(payload any, v view) error {
	switch p.format {
	case formatJSON:
		enc := json.NewEncoder(p.out)
		enc.SetIndent("", "  ")
		return enc.Encode(payload)
	case formatMarkdown:
		rendered, err := renderMarkdown(v.markdown())
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(p.out, rendered)
		return err
	default:
		_, err := fmt.Fprint(p.out, v.text())
		return err
	}
}

// text renders facts as aligned "key: value" lines followed by a bordered table.
func (v view) text() string {
	var b strings.Builder
	for _, fact := range v.facts {
		fmt.Fprintf(&b, "%s: %s\n", fact[0], fact[1])
	}
	if len(v.headers) == 0 {
		return b.String()
	}
	if len(v.rows) == 0 {
		b.WriteString("(none)\n")
		return b.String()
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(v.headers...).
		Rows(v.rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return lipgloss.NewStyle().Bold(true).Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
	b.WriteString(t.String())
	b.WriteString("\n")
	return b.String()
}

// markdown renders the view as a markdown document.
func (v view) markdown() string {
	var b strings.Builder
	if v.title != "" {
		fmt.Fprintf(&b, "# %s\n\n", v.title)
	}
	for _, fact := range v.facts {
		fmt.Fprintf(&b, "- **%s:** %s\n", fact[0], escapeMarkdown(fact[1]))
	}
	if len(v.headers) == 0 || len(v.rows) == 0 {
		return b.String()
	}
	b.WriteString("\n| " + strings.Join(v.headers, " | ") + " |\n")
	b.WriteString("|" + strings.Repeat(" --- |", len(v.headers)) + "\n")
	for _, row := range v.rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = escapeMarkdown(cell)
		}
		b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}
	return b.String()
}

func escapeMarkdown(s string) string {
	return strings.NewReplacer("|", `\|`, "*", `\*`, "_", `\_`, "[", `\[`, "]", `\]`).Replace(s)
}

func renderMarkdown(markdown string) (string, error) {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(markdownStyle),
		glamour.WithWordWrap(markdownWrap),
	)
	if err != nil {
		return "", fmt.Errorf("build markdown renderer: %w", err)
	}
	rendered, err := renderer.Render(markdown)
	if err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return strings.TrimRight(rendered, "\n"), nil
}

func parsedPathView(p common.ParsedPath) view {
	v := view{
		title: "Path",
		facts: [][2]string{
			{"input", p.Input},
			{"canonical", p.Canonical},
			{"elements", strconv.Itoa(p.Size)},
		},
		headers: []string{"#", "element", "attributes"},
	}
	for i, el := range p.Elements {
		v.rows = append(v.rows, []string{strconv.Itoa(i), el.Name, formatAttributes(el.Attributes)})
	}
	return v
}

// formatAttributes prints attributes in key order as k="v" pairs.
func formatAttributes(attrs map[string]string) string {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%q", k, attrs[k]))
	}
	return strings.Join(parts, " ")
}

func completionView(c common.CompletionResponse) view {
	return view{
		title: "Completion",
		facts: [][2]string{
			{"done", strconv.FormatInt(c.Done, 10)},
			{"total", strconv.FormatInt(c.Total, 10)},
			{"percent", strconv.Itoa(c.Percent) + "%"},
		},
	}
}

func reportStatusView(r common.ReportStatusResponse) view {
	v := view{
		title: "Reports for " + r.User + " in " + r.Locale,
		facts: [][2]string{
			{"user", r.User},
			{"locale", r.Locale},
			{"complete", fmt.Sprintf("%d/%d", r.Complete, len(r.Reports))},
		},
		headers: []string{"kind", "title", "marked", "acceptable", "completed"},
	}
	for _, rep := range r.Reports {
		v.rows = append(v.rows, []string{rep.Kind, rep.Title, yesNo(rep.Marked), yesNo(rep.Acceptable), formatTime(rep.CompletedAt)})
	}
	return v
}

func reportListView(user string, list []common.ReportStatusResponse) view {
	v := view{
		title:   "Reports for " + user,
		facts:   [][2]string{{"user", user}, {"locales", strconv.Itoa(len(list))}},
		headers: []string{"locale", "complete"},
	}
	for _, r := range list {
		v.rows = append(v.rows, []string{r.Locale, fmt.Sprintf("%d/%d", r.Complete, len(r.Reports))})
	}
	return v
}

func markReportView(r common.MarkReportResponse) view {
	return view{
		title: "Report " + r.Report.Kind,
		facts: [][2]string{
			{"user", r.User},
			{"locale", r.Locale},
			{"kind", r.Report.Kind},
			{"marked", yesNo(r.Report.Marked)},
			{"acceptable", yesNo(r.Report.Acceptable)},
			{"completed", formatTime(r.Report.CompletedAt)},
		},
	}
}

func reportSummaryView(s domain.LocaleReportSummary) view {
	v := view{
		title:   "Report summary for " + string(s.Locale),
		facts:   [][2]string{{"locale", string(s.Locale)}, {"voters", strconv.Itoa(s.TotalVoters)}},
		headers: []string{"kind", "acceptable", "not acceptable"},
	}
	for _, row := range s.Reports {
		v.rows = append(v.rows, []string{string(row.Kind), strconv.Itoa(row.Acceptable), strconv.Itoa(row.NotAcceptable)})
	}
	return v
}

func reportKindsView(kinds []common.ReportKindView) view {
	v := view{title: "Report kinds", headers: []string{"kind", "title"}}
	for _, k := range kinds {
		v.rows = append(v.rows, []string{k.Kind, k.Title})
	}
	return v
}

func vettingView(r app.VettingResult) view {
	categories := make([]string, 0, len(r.Categories))
	for _, c := range r.Categories {
		categories = append(categories, string(c))
	}
	v := view{
		title: "Vetting " + string(r.Locale) + " at " + r.Coverage.String(),
		facts: [][2]string{
			{"id", r.ID},
			{"locale", string(r.Locale)},
			{"coverage", r.Coverage.String()},
			{"categories", strings.Join(categories, ", ")},
			{"votable", strconv.FormatInt(r.VotablePaths, 10)},
			{"voted", fmt.Sprintf("%d (%d%%)", r.VotedPaths, r.VotePercent)},
			{"errors", strconv.Itoa(r.Completion.ErrorCount())},
			{"missing", strconv.Itoa(r.Completion.MissingCount())},
			{"provisional", strconv.Itoa(r.Completion.ProvisionalCount())},
			{"completion", strconv.Itoa(r.CompletionPercent) + "%"},
		},
		headers: []string{"path", "categories", "value", "required", "hint"},
	}
	if r.User != "" {
		v.facts = append(v.facts, [2]string{"user", string(r.User)})
	}
	if r.SinglePath != "" {
		v.facts = append(v.facts, [2]string{"path", r.SinglePath})
	}
	if r.Skipped > 0 {
		v.facts = append(v.facts, [2]string{"skipped", strconv.Itoa(r.Skipped)})
	}
	for _, p := range r.Problems {
		found := make([]string, 0, len(p.Categories))
		for _, c := range p.Categories {
			found = append(found, string(c))
		}
		v.rows = append(v.rows, []string{p.Path, strings.Join(found, ", "), p.Value, p.Required, p.Hint})
	}
	return v
}

func vettingSummaryView(results []app.VettingResult) view {
	v := view{
		title:   "Vetting summary",
		facts:   [][2]string{{"locales", strconv.Itoa(len(results))}},
		headers: []string{"locale", "coverage", "votable", "voted", "problems", "completion"},
	}
	for _, r := range results {
		v.rows = append(v.rows, []string{
			string(r.Locale),
			r.Coverage.String(),
			strconv.FormatInt(r.VotablePaths, 10),
			strconv.FormatInt(r.VotedPaths, 10),
			strconv.Itoa(len(r.Problems)),
			strconv.Itoa(r.CompletionPercent) + "%",
		})
	}
	return v
}

func voteView(vote domain.Vote) view {
	return view{
		title: "Vote",
		facts: [][2]string{
			{"user", string(vote.User)},
			{"locale", string(vote.Locale)},
			{"path", vote.Path},
			{"value", vote.Value},
			{"type", string(vote.Type)},
			{"voted", vote.VotedAt.UTC().Format(time.RFC3339)},
		},
	}
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}
