// Package config implements TOML configuration loading, environment
// overrides, validation, and live reload for viewhubs.
package config

import (
	"path/filepath"
	"time"
)

// Config is the top-level configuration parsed from the TOML file. Each
// section maps to one [table] in the file.
type Config struct {
	Forge    ForgeConfig    `toml:"forge"`
	Server   ServerConfig   `toml:"server"`
	Session  SessionConfig  `toml:"session"`
	Resolver ResolverConfig `toml:"resolver"`
	Network  NetworkConfig  `toml:"network"`
	Logging  LoggingConfig  `toml:"logging"`
}

// ForgeConfig identifies the registered application and the provider
// endpoints it talks to.
type ForgeConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	CallbackURL  string `toml:"callback_url"`
	AuthURL      string `toml:"auth_url"`
	TokenURL     string `toml:"token_url"`
	APIBaseURL   string `toml:"api_base_url"`
}

// ServerConfig controls the inbound HTTP listener.
type ServerConfig struct {
	ListenAddr      string `toml:"listen_addr"`
	StaticDir       string `toml:"static_dir"`
	ReadTimeout     string `toml:"read_timeout"`
	WriteTimeout    string `toml:"write_timeout"`
	IdleTimeout     string `toml:"idle_timeout"`
	ShutdownTimeout string `toml:"shutdown_timeout"`
}

// SessionConfig selects the session backend and cookie attributes.
type SessionConfig struct {
	Backend       string `toml:"backend"`
	CookieName    string `toml:"cookie_name"`
	MaxAge        string `toml:"max_age"`
	Secure        bool   `toml:"secure"`
	Secret        string `toml:"secret"`
	KeyFile       string `toml:"key_file"`
	DBPath        string `toml:"db_path"`
	SweepInterval string `toml:"sweep_interval"`
}

// ResolverConfig tunes tree resolution.
type ResolverConfig struct {
	Fanout      int    `toml:"fanout"`
	MaxRefDepth int    `toml:"max_ref_depth"`
	TimeZone    string `toml:"time_zone"`
}

// NetworkConfig controls outbound HTTP behavior.
type NetworkConfig struct {
	ConnectTimeout    string  `toml:"connect_timeout"`
	DataTimeout       string  `toml:"data_timeout"`
	UserAgent         string  `toml:"user_agent"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	Burst             int     `toml:"burst"`
}

// LoggingConfig controls log output behavior.
type LoggingConfig struct {
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
}

// CLIOverrides holds values from command-line flags. Pointer fields
// distinguish "not specified" (nil) from "explicitly set".
type CLIOverrides struct {
	ConfigPath string
	ListenAddr string
	LogLevel   *string
	LogFormat  *string
}

// MaxAgeDuration returns the parsed session lifetime.
func (s *SessionConfig) MaxAgeDuration() time.Duration {
	return durationOr(s.MaxAge, defaultMaxAge)
}

// SweepDuration returns the parsed interval between expired-session sweeps.
func (s *SessionConfig) SweepDuration() time.Duration {
	return durationOr(s.SweepInterval, defaultSweepInterval)
}

// StorePath returns the database path for server-side backends, falling
// back to a backend-specific file in the data directory.
func (s *SessionConfig) StorePath() string {
	if s.DBPath != "" {
		return expandTilde(s.DBPath)
	}

	name := "sessions.db"
	if s.Backend == BackendBolt {
		name = "sessions.bolt"
	}

	return filepath.Join(DefaultDataDir(), name)
}

// KeyPath returns the path of the persisted cookie secret.
func (s *SessionConfig) KeyPath() string {
	if s.KeyFile != "" {
		return expandTilde(s.KeyFile)
	}

	return filepath.Join(DefaultDataDir(), keyFileName)
}

// Timeouts returns the parsed read, write, and idle durations.
func (s *ServerConfig) Timeouts() (read, write, idle time.Duration) {
	return durationOr(s.ReadTimeout, defaultReadTimeout),
		durationOr(s.WriteTimeout, defaultWriteTimeout),
		durationOr(s.IdleTimeout, defaultIdleTimeout)
}

// StaticPath returns the UI directory with a leading "~/" expanded.
func (s *ServerConfig) StaticPath() string {
	return expandTilde(s.StaticDir)
}

// ShutdownDuration returns the parsed graceful shutdown budget.
func (s *ServerConfig) ShutdownDuration() time.Duration {
	return durationOr(s.ShutdownTimeout, defaultShutdownTimeout)
}

// Location returns the time zone used for version labels. An empty value
// or "Local" selects the host zone.
func (r *ResolverConfig) Location() *time.Location {
	if r.TimeZone == "" || r.TimeZone == "Local" {
		return time.Local
	}

	loc, err := time.LoadLocation(r.TimeZone)
	if err != nil {
		return time.Local
	}

	return loc
}

// Timeouts returns the parsed connect and data durations.
func (n *NetworkConfig) Timeouts() (connect, data time.Duration) {
	return durationOr(n.ConnectTimeout, defaultConnectTimeout),
		durationOr(n.DataTimeout, defaultDataTimeout)
}

// durationOr parses value, returning fallback when it is empty or invalid.
// Validate reports invalid values before callers get here.
func durationOr(value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}

	return d
}
