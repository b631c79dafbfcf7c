package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/hylla/vettrack/internal/adapters/server/common"
	"github.com/hylla/vettrack/internal/config"
	"github.com/hylla/vettrack/internal/domain"
	"github.com/spf13/cobra"
)

func newInitCommand(opts *rootOptions) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file at the resolved config path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			loc, err := resolveLocations(opts)
			if err != nil {
				return err
			}
			p, err := opts.printer(cmd)
			if err != nil {
				return err
			}
			cfg := config.Default(loc.dbPath)
			if err := config.Save(loc.configPath, cfg, force); err != nil {
				return err
			}
			if err := loc.paths.EnsureDataDirs(); err != nil {
				return err
			}
			written := struct {
				ConfigPath string `json:"config_path"`
				DBPath     string `json:"db_path"`
				LocaleDir  string `json:"locale_dir"`
			}{loc.configPath, loc.dbPath, loc.paths.LocaleDir}
			return p.emit(written, view{
				title: "Config written",
				facts: [][2]string{
					{"config", loc.configPath},
					{"db", loc.dbPath},
					{"locales", loc.paths.LocaleDir},
				},
			})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")
	return cmd
}

func newParseCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "parse PATH...",
		Short: "Parse locale-data paths into elements and attributes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(cmd.Context(), opts, false)
			if err != nil {
				return err
			}
			defer sess.Close()
			p, err := opts.printer(cmd)
			if err != nil {
				return err
			}
			parsed := make([]common.ParsedPath, 0, len(args))
			for _, raw := range args {
				path, err := sess.service.ParsePath(cmd.Context(), common.ParsePathRequest{Path: raw})
				if err != nil {
					return err
				}
				parsed = append(parsed, path)
			}
			if len(parsed) == 1 {
				return p.emit(parsed[0], parsedPathView(parsed[0]))
			}
			if p.format == formatJSON {
				return p.emit(parsed, view{})
			}
			for _, path := range parsed {
				if err := p.emit(path, parsedPathView(path)); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newScoreCommand(opts *rootOptions) *cobra.Command {
	var done, total int64
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Convert a done/total count into a floored completion percentage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := openSession(cmd.Context(), opts, false)
			if err != nil {
				return err
			}
			defer sess.Close()
			p, err := opts.printer(cmd)
			if err != nil {
				return err
			}
			resp, err := sess.service.Completion(cmd.Context(), common.CompletionRequest{Done: done, Total: total})
			if err != nil {
				return err
			}
			return p.emit(resp, completionView(resp))
		},
	}
	cmd.Flags().Int64Var(&done, "done", 0, "completed item count")
	cmd.Flags().Int64Var(&total, "total", 0, "total item count")
	_ = cmd.MarkFlagRequired("total")
	return cmd
}

func newVetCommand(opts *rootOptions) *cobra.Command {
	var (
		coverage   string
		categories []string
		user       string
		org        string
		path       string
		baseline   bool
	)
	cmd := &cobra.Command{
		Use:   "vet LOCALE...",
		Short: "Run a vetting pass and report votable paths, votes and problems",
		Long:  "vet walks every path of each locale at the chosen coverage level. Several locales run concurrently and print a summary table.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(cmd.Context(), opts, true)
			if err != nil {
				return err
			}
			defer sess.Close()
			p, err := opts.printer(cmd)
			if err != nil {
				return err
			}
			requests := make([]common.VetRequest, 0, len(args))
			for _, locale := range args {
				requests = append(requests, common.VetRequest{
					Locale:       locale,
					Coverage:     coverage,
					Categories:   firstNonEmptySlice(categories, categoryNames(sess.cfg.Categories())),
					User:         firstNonEmpty(user, sess.cfg.Identity.User),
					Organization: org,
					Path:         path,
					Baseline:     baseline,
				})
			}

			sess.logger.Info("command flow start", "command", "vet", "locales", strings.Join(args, ","))
			if len(requests) == 1 {
				result, err := sess.service.Vet(cmd.Context(), requests[0])
				if err != nil {
					sess.logger.Error("command flow failed", "command", "vet", "err", err)
					return err
				}
				sess.logger.Info("command flow complete", "command", "vet", "votable", result.VotablePaths, "problems", len(result.Problems))
				return p.emit(result, vettingView(result))
			}
			results, err := sess.service.VetMany(cmd.Context(), requests)
			if err != nil {
				sess.logger.Error("command flow failed", "command", "vet", "err", err)
				return err
			}
			sess.logger.Info("command flow complete", "command", "vet", "locales", len(results))
			return p.emit(results, vettingSummaryView(results))
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&coverage, "coverage", "", "coverage level (default from config)")
	flags.StringSliceVar(&categories, "category", nil, "problem categories to report: error, missing_coverage, not_approved (default all)")
	flags.StringVar(&user, "user", "", "vetter whose votes are counted (default from config)")
	flags.StringVar(&org, "org", "", "organization of the vetter")
	flags.StringVar(&path, "path", "", "restrict the pass to one path")
	flags.BoolVar(&baseline, "baseline", false, "compare against baseline data")
	return cmd
}

func newReportCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Show and mark review report completion",
	}
	cmd.AddCommand(
		newReportShowCommand(opts),
		newReportMarkCommand(opts),
		newReportSummaryCommand(opts),
		newReportKindsCommand(opts),
		newReportResetCommand(opts),
	)
	return cmd
}

func newReportShowCommand(opts *rootOptions) *cobra.Command {
	var user, locale string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show one user's report status in a locale, or every locale they touched",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := openSession(cmd.Context(), opts, true)
			if err != nil {
				return err
			}
			defer sess.Close()
			p, err := opts.printer(cmd)
			if err != nil {
				return err
			}
			user = firstNonEmpty(user, sess.cfg.Identity.User)
			if user == "" {
				return errMissingFlag("user")
			}
			if strings.TrimSpace(locale) == "" {
				list, err := sess.service.ListUserReports(cmd.Context(), common.ListUserReportsRequest{User: user})
				if err != nil {
					return err
				}
				return p.emit(list, reportListView(user, list))
			}
			status, err := sess.service.ReportStatus(cmd.Context(), common.ReportStatusRequest{User: user, Locale: locale})
			if err != nil {
				return err
			}
			return p.emit(status, reportStatusView(status))
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "vetter id (default from config)")
	cmd.Flags().StringVar(&locale, "locale", "", "locale id; empty lists every locale")
	return cmd
}

func newReportMarkCommand(opts *rootOptions) *cobra.Command {
	var (
		user, locale, kind, at string
		unmark, acceptable     bool
	)
	cmd := &cobra.Command{
		Use:   "mark",
		Short: "Mark one report complete (or unmark it) for a user and locale",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := openSession(cmd.Context(), opts, true)
			if err != nil {
				return err
			}
			defer sess.Close()
			p, err := opts.printer(cmd)
			if err != nil {
				return err
			}
			req := common.MarkReportRequest{
				User:       firstNonEmpty(user, sess.cfg.Identity.User),
				Locale:     locale,
				Kind:       kind,
				Marked:     !unmark,
				Acceptable: acceptable,
			}
			if strings.TrimSpace(at) != "" {
				ts, err := time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("--at must be RFC3339: %w", err)
				}
				req.CompletedAt = &ts
			}
			resp, err := sess.service.MarkReport(cmd.Context(), req)
			if err != nil {
				return err
			}
			sess.logger.Info("report marked", "user", resp.User, "locale", resp.Locale, "kind", resp.Report.Kind, "marked", resp.Report.Marked)
			return p.emit(resp, markReportView(resp))
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&user, "user", "", "vetter id (default from config)")
	flags.StringVar(&locale, "locale", "", "locale id")
	flags.StringVar(&kind, "kind", "", "report kind (see 'report kinds')")
	flags.BoolVar(&acceptable, "acceptable", false, "record the report as acceptable")
	flags.BoolVar(&unmark, "unmark", false, "clear the completion mark")
	flags.StringVar(&at, "at", "", "completion timestamp in RFC3339 (default now)")
	_ = cmd.MarkFlagRequired("locale")
	_ = cmd.MarkFlagRequired("kind")
	return cmd
}

func newReportSummaryCommand(opts *rootOptions) *cobra.Command {
	var locale string
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Tally acceptable and not-acceptable marks across every user of a locale",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := openSession(cmd.Context(), opts, true)
			if err != nil {
				return err
			}
			defer sess.Close()
			p, err := opts.printer(cmd)
			if err != nil {
				return err
			}
			summary, err := sess.service.ReportSummary(cmd.Context(), common.ReportSummaryRequest{Locale: locale})
			if err != nil {
				return err
			}
			return p.emit(summary, reportSummaryView(summary))
		},
	}
	cmd.Flags().StringVar(&locale, "locale", "", "locale id")
	_ = cmd.MarkFlagRequired("locale")
	return cmd
}

func newReportKindsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "kinds",
		Short: "List report kinds in menu order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := opts.printer(cmd)
			if err != nil {
				return err
			}
			kinds := common.ReportKinds()
			return p.emit(kinds, reportKindsView(kinds))
		},
	}
}

func newReportResetCommand(opts *rootOptions) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every report record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return fmt.Errorf("refusing to reset reports without --yes")
			}
			sess, err := openSession(cmd.Context(), opts, true)
			if err != nil {
				return err
			}
			defer sess.Close()
			if err := sess.service.ResetReports(cmd.Context()); err != nil {
				return err
			}
			sess.logger.Warn("report records reset", "db_path", sess.cfg.Database.Path)
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "reports reset")
			return err
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the reset")
	return cmd
}

func newVoteCommand(opts *rootOptions) *cobra.Command {
	var user, locale, path, value, voteType string
	cmd := &cobra.Command{
		Use:   "vote",
		Short: "Record one vote so vetting passes count it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := openSession(cmd.Context(), opts, true)
			if err != nil {
				return err
			}
			defer sess.Close()
			p, err := opts.printer(cmd)
			if err != nil {
				return err
			}
			vote, err := sess.service.RecordVote(cmd.Context(), common.RecordVoteRequest{
				User:   firstNonEmpty(user, sess.cfg.Identity.User),
				Locale: locale,
				Path:   path,
				Value:  value,
				Type:   voteType,
			})
			if err != nil {
				return err
			}
			return p.emit(vote, voteView(vote))
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&user, "user", "", "vetter id (default from config)")
	flags.StringVar(&locale, "locale", "", "locale id")
	flags.StringVar(&path, "path", "", "voted path")
	flags.StringVar(&value, "value", "", "voted value")
	flags.StringVar(&voteType, "type", "", "vote type: direct, auto_import, manual_import, bulk_upload (default direct)")
	_ = cmd.MarkFlagRequired("locale")
	_ = cmd.MarkFlagRequired("path")
	return cmd
}

// categoryNames renders configured categories back to their wire names.
func categoryNames(categories []domain.Category) []string {
	names := make([]string, 0, len(categories))
	for _, c := range categories {
		names = append(names, string(c))
	}
	return names
}

func firstNonEmptySlice(values ...[]string) []string {
	for _, v := range values {
		if len(v) > 0 {
			return v
		}
	}
	return nil
}
