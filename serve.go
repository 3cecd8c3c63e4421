package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/viewhubs/internal/config"
	"github.com/tonimelisma/viewhubs/internal/credential"
	"github.com/tonimelisma/viewhubs/internal/forge"
	"github.com/tonimelisma/viewhubs/internal/forgeauth"
	"github.com/tonimelisma/viewhubs/internal/keyfile"
	"github.com/tonimelisma/viewhubs/internal/session"
	"github.com/tonimelisma/viewhubs/internal/tree"
	"github.com/tonimelisma/viewhubs/internal/web"
)

const readHeaderTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web service",
		Long: `Run the HTTP service: sign-in routes, the public token route for the
viewer, the user profile route, the tree data route and the static UI.

The config file is watched; log level changes apply immediately and other
changes are reported as needing a restart.`,
		RunE: runServe,
	}

	cmd.Flags().String("listen", "", "listen address (overrides server.listen_addr and PORT)")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg := resolvedCfg

	if err := config.RequireCredentials(&cfg.Forge, true); err != nil {
		return err
	}

	logger := buildLogger(cfg, os.Stderr)
	ctx := shutdownContext(cmd.Context(), logger, forceExit)

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	ln, err := net.Listen("tcp", cfg.Server.ListenAddr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", cfg.Server.ListenAddr, err)
	}

	holder := config.NewHolder(cfg, resolvedPath)
	watcher := config.NewWatcher(holder, reloadConfig(logger), applyReload, logger)

	go func() {
		if werr := watcher.Run(ctx); werr != nil {
			logger.Warn("config watch disabled", slog.String("error", werr.Error()))
		}
	}()

	return a.serve(ctx, ln)
}

// reloadConfig re-resolves the file with the overrides captured at startup.
func reloadConfig(logger *slog.Logger) func(path string) (*config.Config, error) {
	return func(string) (*config.Config, error) {
		cfg, _, err := config.Resolve(resolvedEnv, resolvedCLI, logger)

		return cfg, err
	}
}

func applyReload(_, next *config.Config) {
	logLevel.Set(effectiveLevel(next))
}

// app is the assembled service.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	sessions *session.Manager
	handler  http.Handler
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	sessions, err := openSessions(ctx, &cfg.Session, logger)
	if err != nil {
		return nil, err
	}

	httpClient := newHTTPClient(&cfg.Network)

	fc := forgeauth.Config{
		ClientID:     cfg.Forge.ClientID,
		ClientSecret: cfg.Forge.ClientSecret,
		CallbackURL:  cfg.Forge.CallbackURL,
		AuthURL:      cfg.Forge.AuthURL,
		TokenURL:     cfg.Forge.TokenURL,
	}

	broker := forgeauth.NewBroker(fc,
		forgeauth.NewOAuthEndpoint(fc.OAuth2Config(), httpClient),
		credential.NewStore(logger), logger)

	client := forge.NewClient(cfg.Forge.APIBaseURL, httpClient, forge.StaticToken(""), logger,
		forge.WithRateLimit(cfg.Network.RequestsPerSecond, cfg.Network.Burst),
		forge.WithUserAgent(cfg.Network.UserAgent),
	)

	resolver := tree.NewResolver(tree.Options{
		Fanout:      cfg.Resolver.Fanout,
		MaxRefDepth: cfg.Resolver.MaxRefDepth,
		Location:    cfg.Resolver.Location(),
		Logger:      logger,
	})

	handler := web.NewMux(web.MuxConfig{
		Auth:      broker,
		Sessions:  sessions,
		Resolver:  resolver,
		Client:    client,
		StaticDir: cfg.Server.StaticPath(),
		Logger:    logger,
	})

	return &app{cfg: cfg, logger: logger, sessions: sessions, handler: handler}, nil
}

// serve runs the HTTP server on ln until ctx is canceled, then drains
// in-flight requests within the shutdown budget.
func (a *app) serve(ctx context.Context, ln net.Listener) error {
	read, write, idle := a.cfg.Server.Timeouts()

	srv := &http.Server{
		Handler:           a.handler,
		ReadTimeout:       read,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      write,
		IdleTimeout:       idle,
		ErrorLog:          slog.NewLogLogger(a.logger.Handler(), slog.LevelWarn),
	}

	go a.sessions.RunSweeper(ctx, a.cfg.Session.SweepDuration())

	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("listening",
			slog.String("addr", ln.Addr().String()),
			slog.String("session_backend", a.sessions.Backend()),
		)

		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.Server.ShutdownDuration())
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}

	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}

	a.logger.Info("server stopped")

	return nil
}

func (a *app) close() {
	if err := a.sessions.Close(); err != nil {
		a.logger.Warn("closing session store", slog.String("error", err.Error()))
	}
}

// openSessions builds the session manager for the configured backend. The
// cookie backend uses the configured secret or a generated key file.
func openSessions(ctx context.Context, sc *config.SessionConfig, logger *slog.Logger) (*session.Manager, error) {
	opts := session.Options{
		CookieName: sc.CookieName,
		MaxAge:     sc.MaxAgeDuration(),
		Secure:     sc.Secure,
		Logger:     logger,
	}

	if sc.Backend != config.BackendCookie {
		dbPath := ""
		if sc.Backend != config.BackendMemory {
			dbPath = sc.StorePath()
		}

		store, err := session.OpenStore(ctx, sc.Backend, dbPath, logger)
		if err != nil {
			return nil, err
		}

		return session.NewStoreManager(opts, store), nil
	}

	secret := []byte(sc.Secret)

	if len(secret) == 0 {
		path := sc.KeyPath()

		s, created, err := keyfile.LoadOrCreate(path)
		if err != nil {
			return nil, fmt.Errorf("loading session key: %w", err)
		}

		if created {
			logger.Info("generated session key", slog.String("path", path))
		}

		secret = s
	}

	return session.NewCookieManager(opts, secret)
}

// newHTTPClient builds the outbound client shared by the token endpoint and
// the remote API client.
func newHTTPClient(n *config.NetworkConfig) *http.Client {
	connect, data := n.Timeouts()

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{Timeout: connect, KeepAlive: 30 * time.Second}).DialContext
	transport.TLSHandshakeTimeout = connect
	transport.ResponseHeaderTimeout = data

	return &http.Client{Transport: transport, Timeout: data}
}
