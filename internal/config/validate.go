package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Validation range constants.
const (
	minTimeout         = 1 * time.Second
	minDataTimeout     = 5 * time.Second
	minMaxAge          = 1 * time.Minute
	minSweepInterval   = 1 * time.Minute
	minFanout          = 1
	maxFanout          = 64
	minRefDepth        = 1
	maxRefDepth        = 256
	minSecretBytes     = 32
	cookieNameInvalids = " \t;,=\"\\()<>@:/[]?{}"
)

// Validate checks all configuration values and returns all errors found.
// It accumulates every error rather than stopping at the first, so users
// see a complete report and can fix all issues in one pass.
func Validate(cfg *Config) error {
	var errs []error

	errs = append(errs, validateForge(&cfg.Forge)...)
	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateSession(&cfg.Session)...)
	errs = append(errs, validateResolver(&cfg.Resolver)...)
	errs = append(errs, validateNetwork(&cfg.Network)...)
	errs = append(errs, validateLogging(&cfg.Logging)...)

	return errors.Join(errs...)
}

// RequireCredentials checks that the application identity is present after
// every override layer has been applied. The client secret is only needed
// by commands that talk to the token endpoint.
func RequireCredentials(f *ForgeConfig, needSecret bool) error {
	var errs []error

	if f.ClientID == "" {
		errs = append(errs, errors.New("forge.client_id: required (or set FORGE_CLIENT_ID)"))
	}

	if needSecret && f.ClientSecret == "" {
		errs = append(errs, errors.New("forge.client_secret: required (or set FORGE_CLIENT_SECRET)"))
	}

	if f.CallbackURL == "" {
		errs = append(errs, errors.New("forge.callback_url: required (or set FORGE_CALLBACK_URL)"))
	}

	return errors.Join(errs...)
}

func validateForge(f *ForgeConfig) []error {
	var errs []error

	errs = append(errs, validateURL("forge.callback_url", f.CallbackURL)...)
	errs = append(errs, validateURL("forge.auth_url", f.AuthURL)...)
	errs = append(errs, validateURL("forge.token_url", f.TokenURL)...)
	errs = append(errs, validateURL("forge.api_base_url", f.APIBaseURL)...)

	return errs
}

// validateURL accepts an empty value; otherwise it must be an absolute
// http or https URL.
func validateURL(field, value string) []error {
	if value == "" {
		return nil
	}

	u, err := url.Parse(value)
	if err != nil {
		return []error{fmt.Errorf("%s: invalid URL %q: %w", field, value, err)}
	}

	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return []error{fmt.Errorf("%s: must be an absolute http(s) URL, got %q", field, value)}
	}

	return nil
}

func validateServer(s *ServerConfig) []error {
	var errs []error

	if s.ListenAddr == "" {
		errs = append(errs, errors.New("server.listen_addr: must not be empty"))
	}

	errs = append(errs, validateDurationMin("server.read_timeout", s.ReadTimeout, minTimeout)...)
	errs = append(errs, validateDurationMin("server.write_timeout", s.WriteTimeout, minTimeout)...)
	errs = append(errs, validateDurationMin("server.idle_timeout", s.IdleTimeout, minTimeout)...)
	errs = append(errs, validateDurationMin("server.shutdown_timeout", s.ShutdownTimeout, minTimeout)...)

	return errs
}

var validBackends = map[string]bool{
	BackendCookie: true,
	BackendSQLite: true,
	BackendBolt:   true,
	BackendMemory: true,
}

func validateSession(s *SessionConfig) []error {
	var errs []error

	if !validBackends[s.Backend] {
		errs = append(errs, fmt.Errorf(
			"session.backend: must be one of cookie, sqlite, bolt, memory; got %q", s.Backend))
	}

	if s.CookieName == "" || strings.ContainsAny(s.CookieName, cookieNameInvalids) {
		errs = append(errs, fmt.Errorf("session.cookie_name: invalid cookie name %q", s.CookieName))
	}

	if s.Secret != "" && len(s.Secret) < minSecretBytes {
		errs = append(errs, fmt.Errorf(
			"session.secret: must be at least %d bytes, got %d", minSecretBytes, len(s.Secret)))
	}

	errs = append(errs, validateDurationMin("session.max_age", s.MaxAge, minMaxAge)...)
	errs = append(errs, validateDurationMin("session.sweep_interval", s.SweepInterval, minSweepInterval)...)

	return errs
}

func validateResolver(r *ResolverConfig) []error {
	var errs []error

	if r.Fanout < minFanout || r.Fanout > maxFanout {
		errs = append(errs, fmt.Errorf(
			"resolver.fanout: must be between %d and %d, got %d", minFanout, maxFanout, r.Fanout))
	}

	if r.MaxRefDepth < minRefDepth || r.MaxRefDepth > maxRefDepth {
		errs = append(errs, fmt.Errorf(
			"resolver.max_ref_depth: must be between %d and %d, got %d", minRefDepth, maxRefDepth, r.MaxRefDepth))
	}

	if r.TimeZone != "" && r.TimeZone != "Local" {
		if _, err := time.LoadLocation(r.TimeZone); err != nil {
			errs = append(errs, fmt.Errorf("resolver.time_zone: %w", err))
		}
	}

	return errs
}

func validateNetwork(n *NetworkConfig) []error {
	var errs []error

	errs = append(errs, validateDurationMin("network.connect_timeout", n.ConnectTimeout, minTimeout)...)
	errs = append(errs, validateDurationMin("network.data_timeout", n.DataTimeout, minDataTimeout)...)

	if n.RequestsPerSecond < 0 {
		errs = append(errs, fmt.Errorf(
			"network.requests_per_second: must be >= 0, got %g", n.RequestsPerSecond))
	}

	if n.RequestsPerSecond > 0 && n.Burst < 1 {
		errs = append(errs, fmt.Errorf("network.burst: must be >= 1 when rate limiting, got %d", n.Burst))
	}

	return errs
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validLogFormats = map[string]bool{
	"auto": true,
	"text": true,
	"json": true,
}

func validateLogging(l *LoggingConfig) []error {
	var errs []error

	if !validLogLevels[l.LogLevel] {
		errs = append(errs, fmt.Errorf(
			"logging.log_level: must be one of debug, info, warn, error; got %q", l.LogLevel))
	}

	if !validLogFormats[l.LogFormat] {
		errs = append(errs, fmt.Errorf(
			"logging.log_format: must be one of auto, text, json; got %q", l.LogFormat))
	}

	return errs
}

func validateDurationMin(field, value string, minimum time.Duration) []error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return []error{fmt.Errorf("%s: invalid duration %q: %w", field, value, err)}
	}

	if d < minimum {
		return []error{fmt.Errorf("%s: must be >= %s, got %s", field, minimum, d)}
	}

	return nil
}
