package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/charmbracelet/fang"
	"github.com/hylla/vettrack/internal/adapters/server"
	"github.com/hylla/vettrack/internal/platform"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// version is stamped at build time.
var version = "dev"

// executeRoot runs the root command. Tests replace it with plain cobra execution.
var executeRoot = func(ctx context.Context, root *cobra.Command) error {
	return fang.Execute(ctx, root, fang.WithVersion(version))
}

// serveCommandRunner starts the HTTP and MCP server. Tests replace it to capture wiring.
var serveCommandRunner = server.Run

func main() {
	_ = godotenv.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// run builds the command tree and executes args against it.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}
	root := newRootCommand(stdout, stderr)
	root.SetArgs(args)
	return executeRoot(ctx, root)
}

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	dbPath     string
	appName    string
	devMode    bool
	format     string
	stderr     io.Writer
}

// printer returns the output printer for the selected format.
func (o *rootOptions) printer(cmd *cobra.Command) (printer, error) {
	format, err := parseOutputFormat(o.format)
	if err != nil {
		return printer{}, err
	}
	return printer{out: cmd.OutOrStdout(), format: format}, nil
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	opts := &rootOptions{stderr: stderr}
	defaultDevMode := version == "dev"
	if envDev, ok := parseBoolEnv("VETTRACK_DEV_MODE"); ok {
		defaultDevMode = envDev
	}
	defaultApp := platform.DefaultAppName
	if envApp := strings.TrimSpace(os.Getenv("VETTRACK_APP_NAME")); envApp != "" {
		defaultApp = envApp
	}

	root := &cobra.Command{
		Use:           "vettrack",
		Short:         "Track locale-data vetting progress and review reports",
		Long:          "vettrack parses locale-data paths, scores vetting progress against coverage levels, and records which review reports each vetter has completed.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path to config TOML")
	flags.StringVar(&opts.dbPath, "db", "", "path to sqlite database")
	flags.StringVar(&opts.appName, "app", defaultApp, "application name for config/data path resolution")
	flags.BoolVar(&opts.devMode, "dev", defaultDevMode, "use dev mode paths (<app>-dev)")
	flags.StringVarP(&opts.format, "output", "o", string(formatTable), "output format: table, json or markdown")

	root.AddCommand(
		newPathsCommand(opts),
		newInitCommand(opts),
		newParseCommand(opts),
		newScoreCommand(opts),
		newVetCommand(opts),
		newReportCommand(opts),
		newVoteCommand(opts),
		newServeCommand(opts),
	)
	return root
}

func newPathsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Print resolved config, data and database paths",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			paths, err := platform.DefaultPathsWithOptions(platform.Options{AppName: opts.appName, DevMode: opts.devMode})
			if err != nil {
				return err
			}
			p, err := opts.printer(cmd)
			if err != nil {
				return err
			}
			return p.emit(paths, view{
				title: "Paths",
				facts: [][2]string{
					{"app", opts.appName},
					{"dev_mode", strconv.FormatBool(opts.devMode)},
					{"config", paths.ConfigPath},
					{"data_dir", paths.DataDir},
					{"db", paths.DBPath},
					{"locales", paths.LocaleDir},
					{"baseline", paths.BaselineDir},
				},
			})
		},
	}
}

func newServeCommand(opts *rootOptions) *cobra.Command {
	var (
		bind        string
		apiEndpoint string
		mcpEndpoint string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the REST API, MCP tools and metrics over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := openSession(cmd.Context(), opts, true)
			if err != nil {
				return err
			}
			defer sess.Close()

			cfg := server.Config{
				HTTPBind:        firstNonEmpty(bind, sess.cfg.Server.Bind),
				APIEndpoint:     firstNonEmpty(apiEndpoint, sess.cfg.Server.APIEndpoint),
				MCPEndpoint:     firstNonEmpty(mcpEndpoint, sess.cfg.Server.MCPEndpoint),
				MetricsEndpoint: sess.cfg.Server.MetricsEndpoint,
				ServerName:      opts.appName,
				ServerVersion:   version,
			}
			sess.logger.Info("command flow start", "command", "serve", "bind", cfg.HTTPBind)
			err = serveCommandRunner(cmd.Context(), cfg, server.Dependencies{
				Paths:   sess.service,
				Reports: sess.service,
				Vetting: sess.service,
				Metrics: sess.observer.Handler(),
				Ready:   sess.ready,
				Logger:  sess.logger,
			})
			if err != nil {
				sess.logger.Error("command flow failed", "command", "serve", "err", err)
				return fmt.Errorf("run serve command: %w", err)
			}
			sess.logger.Info("command flow complete", "command", "serve")
			return nil
		},
	}
	cmd.Flags().StringVar(&bind, "bind", "", "listen address (default from config)")
	cmd.Flags().StringVar(&apiEndpoint, "api-endpoint", "", "REST API base path")
	cmd.Flags().StringVar(&mcpEndpoint, "mcp-endpoint", "", "MCP endpoint path")
	return cmd
}

// parseBoolEnv reads a boolean env var; ok is false when unset or malformed.
func parseBoolEnv(name string) (bool, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// errMissingFlag reports a required flag that was left empty.
func errMissingFlag(name string) error {
	return errors.New("--" + name + " is required")
}
