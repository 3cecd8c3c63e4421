package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/BurntSushi/toml"
)

// Load reads and parses a TOML config file, starting from defaults so
// that keys absent from the file keep their default values. Unknown keys
// are fatal. The result is validated before it is returned.
func Load(path string, logger *slog.Logger) (*Config, error) {
	logger.Debug("loading config file", slog.String("path", path))

	cfg := DefaultConfig()

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	if err := checkUnknownKeys(&md); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}

	logger.Debug("config file loaded", slog.Int("keys", len(md.Keys())))

	return cfg, nil
}

// LoadOrDefault reads the config file at path if it exists, or returns
// DefaultConfig when the file is missing.
func LoadOrDefault(path string, logger *slog.Logger) (*Config, error) {
	if path == "" {
		logger.Debug("no config path, using defaults")
		return DefaultConfig(), nil
	}

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		logger.Debug("config file not found, using defaults", slog.String("path", path))
		return DefaultConfig(), nil
	}

	return Load(path, logger)
}

// ResolveConfigPath picks the config file location: the --config flag,
// then VIEWHUBS_CONFIG, then the platform default.
func ResolveConfigPath(e EnvOverrides, cli CLIOverrides) string {
	switch {
	case cli.ConfigPath != "":
		return cli.ConfigPath
	case e.ConfigPath != "":
		return e.ConfigPath
	default:
		return DefaultConfigPath()
	}
}

// Resolve applies the four-layer override chain (defaults -> file -> env
// -> CLI) and returns the effective configuration with the path it was
// read from.
func Resolve(e EnvOverrides, cli CLIOverrides, logger *slog.Logger) (*Config, string, error) {
	path := ResolveConfigPath(e, cli)

	cfg, err := LoadOrDefault(path, logger)
	if err != nil {
		return nil, path, err
	}

	e.Apply(cfg)
	cli.Apply(cfg)

	if err := Validate(cfg); err != nil {
		return nil, path, fmt.Errorf("config: after overrides: %w", err)
	}

	return cfg, path, nil
}

// Apply overlays the explicitly set flag values on cfg.
func (c CLIOverrides) Apply(cfg *Config) {
	if c.ListenAddr != "" {
		cfg.Server.ListenAddr = c.ListenAddr
	}

	if c.LogLevel != nil {
		cfg.Logging.LogLevel = *c.LogLevel
	}

	if c.LogFormat != nil {
		cfg.Logging.LogFormat = *c.LogFormat
	}
}
