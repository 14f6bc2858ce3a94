// Package config resolves bk's configuration from files, environment and flags.
package config

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/tailscale/hujson"
	"go.uber.org/zap/zapcore"
)

// Config holds all configuration options.
type Config struct {
	// From config files (serialized)
	Store      string `json:"store"`
	Seed       string `json:"seed,omitempty"`
	Locale     string `json:"locale,omitempty"`
	UndoLevels int    `json:"undo_levels,omitempty"` //nolint:tagliatelle // snake_case for config file
	LogFile    string `json:"log_file,omitempty"`    //nolint:tagliatelle // snake_case for config file
	LogLevel   string `json:"log_level,omitempty"`   //nolint:tagliatelle // snake_case for config file

	// Resolved paths (computed, not serialized)
	EffectiveCwd string `json:"-"` // Absolute working directory (from -C flag or os.Getwd)
	StoreAbs     string `json:"-"` // Absolute path to the store file
	SeedAbs      string `json:"-"` // Absolute path to the seed snapshot, empty when unset
	LogFileAbs   string `json:"-"` // Absolute path to the log file, empty when unset

	// Env is the process environment merged with .env entries.
	Env map[string]string `json:"-"`

	// Sources tracks which config files were loaded (for diagnostics)
	Sources Sources `json:"-"`
}

// Sources tracks which config files were loaded.
type Sources struct {
	Global  string // Path to global config if loaded, empty otherwise
	Project string // Path to project config if loaded, empty otherwise
	DotEnv  string // Path to .env if loaded, empty otherwise
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		Store:      "books.sqlite",
		UndoLevels: 3,
		LogLevel:   "warn",
	}
}

// FileName is the default project config file name.
const FileName = ".bk.json"

// DotEnvFileName is read from the work dir when present.
const DotEnvFileName = ".env"

// globalPath returns $XDG_CONFIG_HOME/bk/config.json, falling back to
// ~/.config/bk/config.json. Empty if neither is known.
func globalPath(env map[string]string) string {
	if xdgConfig := env["XDG_CONFIG_HOME"]; xdgConfig != "" {
		return filepath.Join(xdgConfig, "bk", "config.json")
	}

	if home := env["HOME"]; home != "" {
		return filepath.Join(home, ".config", "bk", "config.json")
	}

	return ""
}

// Input holds the inputs for Load.
type Input struct {
	WorkDirOverride string            // -C/--cwd flag value; if empty, os.Getwd() is used
	ConfigPath      string            // -c/--config flag value
	StoreOverride   string            // --store flag value
	LocaleOverride  string            // --locale flag value
	Env             map[string]string // environment variables
}

// Load resolves configuration with the following precedence (highest wins):
// 1. Defaults
// 2. Global user config (~/.config/bk/config.json or $XDG_CONFIG_HOME/bk/config.json)
// 3. Project config file (.bk.json) or the explicit -c file
// 4. Environment (BK_STORE, BK_LOCALE), with .env entries under the real env
// 5. CLI overrides.
//
// All paths in the returned Config are resolved to absolute paths.
func Load(input Input) (Config, error) {
	workDir := input.WorkDirOverride
	if workDir == "" {
		var err error

		workDir, err = os.Getwd()
		if err != nil {
			return Config{}, fmt.Errorf("cannot get working directory: %w", err)
		}
	}

	env, dotEnvPath, err := mergeDotEnv(workDir, input.Env)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()
	cfg.Env = env
	cfg.Sources.DotEnv = dotEnvPath

	globalCfg, globalCfgPath, err := loadGlobal(env)
	if err != nil {
		return Config{}, err
	}

	cfg.Sources.Global = globalCfgPath
	cfg = merge(cfg, globalCfg)

	projectCfg, projectPath, err := loadProject(workDir, input.ConfigPath)
	if err != nil {
		return Config{}, err
	}

	cfg.Sources.Project = projectPath
	cfg = merge(cfg, projectCfg)

	cfg = merge(cfg, Config{Store: env["BK_STORE"], Locale: env["BK_LOCALE"]})
	cfg = merge(cfg, Config{Store: input.StoreOverride, Locale: input.LocaleOverride})

	err = validate(cfg)
	if err != nil {
		return Config{}, err
	}

	cfg.EffectiveCwd = workDir
	cfg.StoreAbs = absolute(workDir, cfg.Store)
	cfg.SeedAbs = absolute(workDir, cfg.Seed)
	cfg.LogFileAbs = absolute(workDir, cfg.LogFile)

	return cfg, nil
}

func absolute(workDir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}

	return filepath.Join(workDir, p)
}

// mergeDotEnv reads <workDir>/.env if present. Variables already in env win.
func mergeDotEnv(workDir string, env map[string]string) (map[string]string, string, error) {
	merged := make(map[string]string, len(env))

	path := filepath.Join(workDir, DotEnvFileName)

	fileEnv, err := godotenv.Read(path)
	if err != nil {
		if os.IsNotExist(err) {
			maps.Copy(merged, env)

			return merged, "", nil
		}

		return nil, "", fmt.Errorf("%w %s: %w", ErrDotEnv, path, err)
	}

	maps.Copy(merged, fileEnv)
	maps.Copy(merged, env)

	return merged, path, nil
}

func loadGlobal(env map[string]string) (Config, string, error) {
	path := globalPath(env)
	if path == "" {
		return Config{}, "", nil
	}

	cfg, explicitEmpty, loaded, err := loadFile(path, false)
	if err != nil {
		return Config{}, "", err
	}

	if !loaded {
		return Config{}, "", nil
	}

	if explicitEmpty["store"] {
		return Config{}, "", fmt.Errorf("%w %s: %w", ErrConfigInvalid, path, ErrStoreEmpty)
	}

	return cfg, path, nil
}

// loadProject loads .bk.json from the work dir, or the explicit config file.
func loadProject(workDir, configPath string) (Config, string, error) {
	var (
		path      string
		mustExist bool
	)

	if configPath != "" {
		path = absolute(workDir, configPath)
		mustExist = true

		_, statErr := os.Stat(path)
		if statErr != nil {
			return Config{}, "", fmt.Errorf("%w: %s", ErrConfigFileNotFound, configPath)
		}
	} else {
		path = filepath.Join(workDir, FileName)
	}

	cfg, explicitEmpty, loaded, err := loadFile(path, mustExist)
	if err != nil {
		return Config{}, "", err
	}

	if !loaded {
		return Config{}, "", nil
	}

	if explicitEmpty["store"] {
		return Config{}, "", fmt.Errorf("%w %s: %w", ErrConfigInvalid, path, ErrStoreEmpty)
	}

	return cfg, path, nil
}

// loadFile loads a JSONC config file. Missing optional files are not loaded.
func loadFile(path string, mustExist bool) (Config, map[string]bool, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !mustExist {
			return Config{}, nil, false, nil
		}

		return Config{}, nil, false, fmt.Errorf("%w: %s", ErrConfigFileRead, path)
	}

	cfg, explicitEmpty, err := parse(data)
	if err != nil {
		return Config{}, nil, false, fmt.Errorf("%w %s: %w", ErrConfigInvalid, path, err)
	}

	return cfg, explicitEmpty, true, nil
}

func parse(data []byte) (Config, map[string]bool, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, nil, fmt.Errorf("invalid JSONC: %w", err)
	}

	var cfg Config

	err = json.Unmarshal(standardized, &cfg)
	if err != nil {
		return Config{}, nil, fmt.Errorf("invalid JSON: %w", err)
	}

	var raw map[string]any

	_ = json.Unmarshal(standardized, &raw)

	explicitEmpty := make(map[string]bool)

	if val, exists := raw["store"]; exists {
		if str, ok := val.(string); ok && str == "" {
			explicitEmpty["store"] = true
		}
	}

	if val, exists := raw["undo_levels"]; exists {
		if n, ok := val.(float64); ok && n <= 0 {
			return Config{}, nil, ErrUndoLevels
		}
	}

	return cfg, explicitEmpty, nil
}

func merge(base, overlay Config) Config {
	if overlay.Store != "" {
		base.Store = overlay.Store
	}

	if overlay.Seed != "" {
		base.Seed = overlay.Seed
	}

	if overlay.Locale != "" {
		base.Locale = overlay.Locale
	}

	if overlay.UndoLevels != 0 {
		base.UndoLevels = overlay.UndoLevels
	}

	if overlay.LogFile != "" {
		base.LogFile = overlay.LogFile
	}

	if overlay.LogLevel != "" {
		base.LogLevel = overlay.LogLevel
	}

	return base
}

func validate(cfg Config) error {
	if cfg.Store == "" {
		return ErrStoreEmpty
	}

	if cfg.UndoLevels <= 0 {
		return ErrUndoLevels
	}

	_, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrLogLevel, cfg.LogLevel)
	}

	return nil
}
