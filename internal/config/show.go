package config

import (
	"fmt"
	"io"
)

const redacted = "********"

// RenderEffective writes the resolved configuration as an annotated TOML
// summary to w. Secrets are masked. This powers the "config show" command.
func RenderEffective(cfg *Config, path string, w io.Writer) error {
	ew := &errWriter{w: w}

	ew.printf("# Effective configuration (file: %q)\n\n", path)

	renderForgeSection(ew, &cfg.Forge)
	renderServerSection(ew, &cfg.Server)
	renderSessionSection(ew, &cfg.Session)
	renderResolverSection(ew, &cfg.Resolver)
	renderNetworkSection(ew, &cfg.Network)
	renderLoggingSection(ew, &cfg.Logging)

	return ew.err
}

// errWriter wraps an io.Writer and captures the first write error.
// Subsequent writes after an error are no-ops.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}

	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

// mask hides a non-empty secret.
func mask(s string) string {
	if s == "" {
		return ""
	}

	return redacted
}

func renderForgeSection(ew *errWriter, f *ForgeConfig) {
	ew.printf("[forge]\n")
	ew.printf("  client_id     = %q\n", f.ClientID)
	ew.printf("  client_secret = %q\n", mask(f.ClientSecret))
	ew.printf("  callback_url  = %q\n", f.CallbackURL)
	ew.printf("  auth_url      = %q\n", f.AuthURL)
	ew.printf("  token_url     = %q\n", f.TokenURL)
	ew.printf("  api_base_url  = %q\n", f.APIBaseURL)
	ew.printf("\n")
}

func renderServerSection(ew *errWriter, s *ServerConfig) {
	ew.printf("[server]\n")
	ew.printf("  listen_addr      = %q\n", s.ListenAddr)
	ew.printf("  static_dir       = %q\n", s.StaticDir)
	ew.printf("  read_timeout     = %q\n", s.ReadTimeout)
	ew.printf("  write_timeout    = %q\n", s.WriteTimeout)
	ew.printf("  idle_timeout     = %q\n", s.IdleTimeout)
	ew.printf("  shutdown_timeout = %q\n", s.ShutdownTimeout)
	ew.printf("\n")
}

func renderSessionSection(ew *errWriter, s *SessionConfig) {
	ew.printf("[session]\n")
	ew.printf("  backend        = %q\n", s.Backend)
	ew.printf("  cookie_name    = %q\n", s.CookieName)
	ew.printf("  max_age        = %q\n", s.MaxAge)
	ew.printf("  secure         = %t\n", s.Secure)
	ew.printf("  secret         = %q\n", mask(s.Secret))

	switch s.Backend {
	case BackendCookie:
		if s.Secret == "" {
			ew.printf("  key_file       = %q\n", s.KeyPath())
		}
	case BackendSQLite, BackendBolt:
		ew.printf("  db_path        = %q\n", s.StorePath())
	}

	ew.printf("  sweep_interval = %q\n", s.SweepInterval)
	ew.printf("\n")
}

func renderResolverSection(ew *errWriter, r *ResolverConfig) {
	ew.printf("[resolver]\n")
	ew.printf("  fanout        = %d\n", r.Fanout)
	ew.printf("  max_ref_depth = %d\n", r.MaxRefDepth)
	ew.printf("  time_zone     = %q\n", r.Location().String())
	ew.printf("\n")
}

func renderNetworkSection(ew *errWriter, n *NetworkConfig) {
	ew.printf("[network]\n")
	ew.printf("  connect_timeout     = %q\n", n.ConnectTimeout)
	ew.printf("  data_timeout        = %q\n", n.DataTimeout)
	ew.printf("  user_agent          = %q\n", n.UserAgent)
	ew.printf("  requests_per_second = %g\n", n.RequestsPerSecond)
	ew.printf("  burst               = %d\n", n.Burst)
	ew.printf("\n")
}

func renderLoggingSection(ew *errWriter, l *LoggingConfig) {
	ew.printf("[logging]\n")
	ew.printf("  log_level  = %q\n", l.LogLevel)
	ew.printf("  log_format = %q\n", l.LogFormat)
}
