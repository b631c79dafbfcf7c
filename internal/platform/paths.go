// Package platform resolves where vettrack keeps its config, ledger database and locale data.
package platform

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// DefaultAppName names the config and data directories.
const DefaultAppName = "vettrack"

// devSuffix keeps dev-mode ledgers apart from real ones.
const devSuffix = "-dev"

// Paths lists the per-user locations vettrack reads and writes.
// LocaleDir holds one YAML document per locale; BaselineDir is consulted
// only when it exists; LogDir receives dev logs when no log dir is configured.
type Paths struct {
	ConfigPath  string
	DataDir     string
	DBPath      string
	LocaleDir   string
	BaselineDir string
	LogDir      string
}

// Options selects the app name and dev-mode suffix.
type Options struct {
	AppName string
	DevMode bool
}

// Env carries the directory overrides path resolution honors.
type Env struct {
	XDGConfigHome string
	XDGDataHome   string
	AppData       string
	LocalAppData  string
}

// EnvFromOS reads the overrides from the process environment.
func EnvFromOS() Env {
	return Env{
		XDGConfigHome: strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")),
		XDGDataHome:   strings.TrimSpace(os.Getenv("XDG_DATA_HOME")),
		AppData:       strings.TrimSpace(os.Getenv("APPDATA")),
		LocalAppData:  strings.TrimSpace(os.Getenv("LOCALAPPDATA")),
	}
}

// DefaultPathsWithOptions resolves paths for the running OS.
func DefaultPathsWithOptions(opts Options) (Paths, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return Paths{}, fmt.Errorf("user config dir: %w", err)
	}
	dataDir := configDir
	if runtime.GOOS == "linux" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Paths{}, fmt.Errorf("user home dir: %w", err)
		}
		dataDir = filepath.Join(home, ".local", "share")
	}
	return PathsFor(runtime.GOOS, EnvFromOS(), configDir, dataDir, appDirName(opts))
}

// appDirName applies the default name and the dev suffix.
func appDirName(opts Options) string {
	name := strings.TrimSpace(opts.AppName)
	if name == "" {
		name = DefaultAppName
	}
	if opts.DevMode {
		name += devSuffix
	}
	return name
}

// PathsFor lays out vettrack's files for one OS from explicit base dirs.
// Linux honors XDG overrides and Windows honors APPDATA/LOCALAPPDATA; other systems keep the bases.
func PathsFor(goos string, env Env, userConfigDir, userDataDir, appName string) (Paths, error) {
	if userConfigDir == "" || userDataDir == "" {
		return Paths{}, errors.New("empty base dirs")
	}
	appName = strings.TrimSpace(appName)
	if appName == "" {
		return Paths{}, errors.New("empty app name")
	}

	configBase, dataBase := userConfigDir, userDataDir
	switch goos {
	case "linux":
		configBase = firstSet(env.XDGConfigHome, configBase)
		dataBase = firstSet(env.XDGDataHome, dataBase)
	case "windows":
		configBase = firstSet(env.AppData, configBase)
		dataBase = firstSet(env.LocalAppData, dataBase)
	}

	data := filepath.Join(dataBase, appName)
	return Paths{
		ConfigPath:  filepath.Join(configBase, appName, "config.toml"),
		DataDir:     data,
		DBPath:      filepath.Join(data, appName+".db"),
		LocaleDir:   filepath.Join(data, "locales"),
		BaselineDir: filepath.Join(data, "baseline"),
		LogDir:      filepath.Join(data, "log"),
	}, nil
}

// EnsureDataDirs creates the data and locale dirs.
// The baseline dir is left alone so baseline comparison stays opt-in.
func (p Paths) EnsureDataDirs() error {
	for _, dir := range []string{p.DataDir, p.LocaleDir} {
		if strings.TrimSpace(dir) == "" {
			return errors.New("empty data dir")
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

func firstSet(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
