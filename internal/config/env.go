package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Environment variable names for overrides.
const (
	EnvConfig        = "VIEWHUBS_CONFIG"
	EnvSessionSecret = "VIEWHUBS_SESSION_SECRET"
	EnvClientID      = "FORGE_CLIENT_ID"
	EnvClientSecret  = "FORGE_CLIENT_SECRET"
	EnvCallbackURL   = "FORGE_CALLBACK_URL"
	EnvPort          = "PORT"
)

const productionEnv = "production"

// envFileInsecureBits flags group or world access on a .env file.
const envFileInsecureBits = 0o077

// EnvOverrides holds values derived from environment variables.
type EnvOverrides struct {
	ConfigPath    string `env:"VIEWHUBS_CONFIG"`
	SessionSecret string `env:"VIEWHUBS_SESSION_SECRET"`
	ClientID      string `env:"FORGE_CLIENT_ID"`
	ClientSecret  string `env:"FORGE_CLIENT_SECRET"`
	CallbackURL   string `env:"FORGE_CALLBACK_URL"`
	Port          string `env:"PORT"`
	Environment   string `env:"ENVIRONMENT"`
	NodeEnv       string `env:"NODE_ENV"`
}

// LoadDotEnv loads KEY=value pairs from the given files (default ".env")
// into the process environment without overwriting variables that are
// already set. Missing files are ignored.
func LoadDotEnv(logger *slog.Logger, paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}

	for _, p := range paths {
		info, err := os.Stat(p)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}

		if err != nil {
			return fmt.Errorf("config: stat %s: %w", p, err)
		}

		if info.Mode().Perm()&envFileInsecureBits != 0 {
			logger.Warn("env file is readable by other users",
				slog.String("path", p),
				slog.String("mode", fmt.Sprintf("%04o", info.Mode().Perm())),
			)
		}

		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("config: loading %s: %w", p, err)
		}

		logger.Debug("loaded env file", slog.String("path", p))
	}

	return nil
}

// ReadEnvOverrides reads environment variables and returns any overrides found.
// This does not modify the Config; Apply does.
func ReadEnvOverrides() (EnvOverrides, error) {
	var e EnvOverrides
	if err := env.Parse(&e); err != nil {
		return EnvOverrides{}, fmt.Errorf("config: parsing environment: %w", err)
	}

	return e, nil
}

// Production reports whether ENVIRONMENT or NODE_ENV names production.
func (e EnvOverrides) Production() bool {
	return strings.EqualFold(e.Environment, productionEnv) || strings.EqualFold(e.NodeEnv, productionEnv)
}

// Apply overlays the non-empty environment values on cfg.
func (e EnvOverrides) Apply(cfg *Config) {
	if e.ClientID != "" {
		cfg.Forge.ClientID = e.ClientID
	}

	if e.ClientSecret != "" {
		cfg.Forge.ClientSecret = e.ClientSecret
	}

	if e.CallbackURL != "" {
		cfg.Forge.CallbackURL = e.CallbackURL
	}

	if e.SessionSecret != "" {
		cfg.Session.Secret = e.SessionSecret
	}

	if e.Port != "" {
		cfg.Server.ListenAddr = ":" + strings.TrimPrefix(e.Port, ":")
	}

	if e.Production() {
		cfg.Session.Secure = true
	}
}
