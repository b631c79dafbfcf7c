package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hylla/vettrack/internal/adapters/localedata"
	"github.com/hylla/vettrack/internal/adapters/metrics"
	"github.com/hylla/vettrack/internal/adapters/server/common"
	"github.com/hylla/vettrack/internal/adapters/storage/memory"
	"github.com/hylla/vettrack/internal/adapters/storage/sqlite"
	"github.com/hylla/vettrack/internal/app"
	"github.com/hylla/vettrack/internal/config"
	"github.com/hylla/vettrack/internal/domain"
	"github.com/hylla/vettrack/internal/hints"
	"github.com/hylla/vettrack/internal/platform"
)

// ledgerStore is what the report ledger and vote counting need from storage.
type ledgerStore interface {
	app.ReportStatusStore
	app.VoteStore
}

// session is the resolved runtime for one command: config, logger and wired services.
type session struct {
	paths    platform.Paths
	cfg      config.Config
	logger   *runtimeLogger
	observer *metrics.Observer
	service  *common.AppServiceAdapter
	ready    func(context.Context) error
	closers  []func() error
}

// Close releases the store and log sinks in reverse open order.
func (s *session) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			s.logger.Warn("close failed", "err", err)
		}
	}
	if err := s.logger.Close(); err != nil {
		s.logger.Warn("close runtime log sink failed", "err", err)
	}
}

// locations are the resolved runtime paths for one command.
type locations struct {
	paths        platform.Paths
	configPath   string
	dbPath       string
	dbOverridden bool
}

// resolveLocations applies flag, then env, then platform defaults to the config and db paths.
func resolveLocations(opts *rootOptions) (locations, error) {
	paths, err := platform.DefaultPathsWithOptions(platform.Options{AppName: opts.appName, DevMode: opts.devMode})
	if err != nil {
		return locations{}, err
	}
	loc := locations{paths: paths}

	loc.configPath = strings.TrimSpace(opts.configPath)
	if loc.configPath == "" {
		loc.configPath = firstNonEmpty(os.Getenv("VETTRACK_CONFIG"), paths.ConfigPath)
	}
	loc.dbPath = strings.TrimSpace(opts.dbPath)
	if loc.dbPath == "" {
		loc.dbPath = strings.TrimSpace(os.Getenv("VETTRACK_DB_PATH"))
	}
	loc.dbOverridden = loc.dbPath != ""
	if !loc.dbOverridden {
		loc.dbPath = paths.DBPath
	}
	return loc, nil
}

// openSession resolves paths and config, then wires the services.
// Without withStore only the path parser and scoring are available.
func openSession(ctx context.Context, opts *rootOptions, withStore bool) (*session, error) {
	loc, err := resolveLocations(opts)
	if err != nil {
		return nil, err
	}
	paths, configPath := loc.paths, loc.configPath

	cfg, err := config.Load(configPath, config.Default(loc.dbPath))
	if err != nil {
		return nil, fmt.Errorf("load config %q: %w", configPath, err)
	}
	if loc.dbOverridden {
		cfg.Database.Path = loc.dbPath
	}
	if strings.TrimSpace(cfg.Logging.DevFile.Dir) == "" {
		cfg.Logging.DevFile.Dir = paths.LogDir
	}

	logger, err := newRuntimeLogger(opts.stderr, opts.appName, opts.devMode, cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("configure runtime logger: %w", err)
	}
	sess := &session{paths: paths, cfg: cfg, logger: logger, observer: metrics.NewObserver()}
	logger.Debug("runtime paths resolved", "config_path", configPath, "data_dir", paths.DataDir, "db_path", cfg.Database.Path)
	logger.Debug("configuration loaded", "config_path", configPath, "driver", cfg.Database.Driver, "log_level", cfg.Logging.Level)
	if devPath := logger.DevLogPath(); devPath != "" {
		logger.Debug("dev file logging enabled", "path", devPath)
	}

	if err := sess.wire(ctx, withStore); err != nil {
		sess.Close()
		return nil, err
	}
	return sess, nil
}

// wire builds the parser, vetter, ledger and adapter from config.
func (s *session) wire(ctx context.Context, withStore bool) error {
	cfg := s.cfg
	coverage, err := cfg.CoverageLevel()
	if err != nil {
		return err
	}
	if !withStore {
		parser, err := app.NewPathParser(cfg.Vetting.PathCacheSize)
		if err != nil {
			return err
		}
		s.service, err = common.NewAppServiceAdapter(common.AppServiceConfig{Parser: parser, DefaultCoverage: coverage})
		return err
	}

	store, err := s.openStore(ctx)
	if err != nil {
		return err
	}
	table, err := installHints(cfg.Data.HintsFile)
	if err != nil {
		return err
	}
	rules, err := loadCoverageRules(cfg.Data.CoverageFile)
	if err != nil {
		return err
	}

	vetter, err := app.NewVetter(rules, nil, store, app.VetterConfig{
		Parallelism:   cfg.Vetting.Parallelism,
		PathCacheSize: cfg.Vetting.PathCacheSize,
	},
		app.WithHints(table),
		app.WithIDGenerator(uuid.NewString),
		app.WithObserver(s.observer),
	)
	if err != nil {
		return fmt.Errorf("build vetter: %w", err)
	}

	localeDir := firstNonEmpty(cfg.Data.Dir, s.paths.LocaleDir)
	svcCfg := common.AppServiceConfig{
		Ledger:          app.NewReportLedger(store, time.Now, s.observer),
		Vetter:          vetter,
		Votes:           store,
		Source:          datasetSource(localeDir),
		DefaultCoverage: coverage,
		Organization:    domain.Organization(strings.TrimSpace(cfg.Identity.Organization)),
	}
	if baselineDir := firstNonEmpty(cfg.Data.BaselineDir, existingDir(s.paths.BaselineDir)); baselineDir != "" {
		svcCfg.Baseline = datasetSource(baselineDir)
	}
	s.service, err = common.NewAppServiceAdapter(svcCfg)
	if err != nil {
		return err
	}
	s.logger.Debug("services initialized", "locale_dir", localeDir, "hints", table.Len(), "coverage", coverage)
	return nil
}

// openStore opens the configured ledger store and registers its closer and readiness probe.
func (s *session) openStore(ctx context.Context) (ledgerStore, error) {
	if s.cfg.Database.Driver == config.StoreDriverMemory {
		s.logger.Debug("using in-memory store")
		return memory.NewStore(), nil
	}
	repo, err := sqlite.Open(s.cfg.Database.Path)
	if err != nil {
		s.logger.Error("sqlite open failed", "db_path", s.cfg.Database.Path, "err", err)
		return nil, fmt.Errorf("open sqlite repository: %w", err)
	}
	s.closers = append(s.closers, repo.Close)
	s.ready = repo.Ping
	if err := repo.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping sqlite repository: %w", err)
	}
	s.logger.Debug("sqlite repository ready", "db_path", s.cfg.Database.Path)
	return repo, nil
}

// installHints loads the hint table and installs it process-wide.
// An already installed table is kept.
func installHints(path string) (*hints.Table, error) {
	var (
		table *hints.Table
		err   error
	)
	if strings.TrimSpace(path) != "" {
		table, err = hints.LoadFile(path)
	} else {
		table, err = hints.Default()
	}
	if err != nil {
		return nil, fmt.Errorf("load hints: %w", err)
	}
	if err := hints.Init(table); err != nil && !errors.Is(err, hints.ErrAlreadyInitialized) {
		return nil, err
	}
	return hints.Current()
}

func loadCoverageRules(path string) (*localedata.CoverageRules, error) {
	if strings.TrimSpace(path) == "" {
		return localedata.DefaultCoverage()
	}
	rules, err := localedata.LoadCoverageFile(path)
	if err != nil {
		return nil, fmt.Errorf("load coverage rules: %w", err)
	}
	return rules, nil
}

// datasetSource loads dir on first use and opens readers from it.
// Unknown locales map to app.ErrNotFound.
func datasetSource(dir string) common.LocaleDataSource {
	load := sync.OnceValues(func() (*localedata.Dataset, error) {
		return localedata.LoadDir(dir)
	})
	return func(locale domain.LocaleID) (domain.LocaleDataReader, error) {
		dataset, err := load()
		if err != nil {
			return nil, fmt.Errorf("load locale data from %s: %w", dir, err)
		}
		reader, err := dataset.Reader(locale)
		if err != nil {
			if errors.Is(err, localedata.ErrUnknownLocale) {
				return nil, errors.Join(app.ErrNotFound, err)
			}
			return nil, err
		}
		return reader, nil
	}
}

// existingDir returns dir when it exists, else "".
func existingDir(dir string) string {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return ""
	}
	return dir
}
