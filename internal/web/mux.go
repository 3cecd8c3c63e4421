// Package web is the inbound HTTP surface: sign-in and token routes, the
// user profile route, the tree data route, and the static UI.
package web

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/tonimelisma/viewhubs/internal/forge"
	"github.com/tonimelisma/viewhubs/internal/forgeauth"
	"github.com/tonimelisma/viewhubs/internal/session"
	"github.com/tonimelisma/viewhubs/internal/tree"
)

// LegacyPrefix is the path prefix the bundled UI uses for every API route.
const LegacyPrefix = "/api/forge"

// Authenticator is the slice of the token broker the handlers use.
// *forgeauth.Broker satisfies it.
type Authenticator interface {
	ClientID() string
	AuthorizationURL(scopes []string) string
	SignIn(ctx context.Context, h session.Handle, code string) error
	InternalToken(ctx context.Context, h session.Handle) (*forgeauth.AccessToken, error)
	PublicToken(ctx context.Context, h session.Handle) (*forgeauth.AccessToken, error)
	SignOut(ctx context.Context, h session.Handle) error
}

// MuxConfig holds dependencies for building the HTTP handler.
type MuxConfig struct {
	Auth     Authenticator
	Sessions *session.Manager
	Resolver *tree.Resolver
	// Client is the unauthenticated remote client; each request binds the
	// session's internal token to a copy of it.
	Client    *forge.Client
	StaticDir string
	Logger    *slog.Logger
}

type handlers struct {
	MuxConfig
}

// NewMux builds the HTTP handler. API routes are served both at the root
// and under LegacyPrefix. Every request passes through the request logger.
func NewMux(cfg MuxConfig) http.Handler {
	h := &handlers{MuxConfig: cfg}
	mux := http.NewServeMux()

	for _, prefix := range []string{"", LegacyPrefix} {
		mux.HandleFunc("GET "+prefix+"/oauth/url", h.handleAuthURL)
		mux.HandleFunc("GET "+prefix+"/callback/oauth", h.handleCallback)
		mux.HandleFunc("GET "+prefix+"/oauth/token", h.handleToken)
		mux.HandleFunc("GET "+prefix+"/oauth/signout", h.handleSignOut)
		mux.HandleFunc("GET "+prefix+"/oauth/clientid", h.handleClientID)
		mux.HandleFunc("GET "+prefix+"/user/profile", h.handleProfile)
		mux.HandleFunc("GET "+prefix+"/datamanagement", h.handleDataManagement)
	}

	mux.HandleFunc("GET /healthz", handleHealth)

	if cfg.StaticDir != "" {
		if info, err := os.Stat(cfg.StaticDir); err == nil && info.IsDir() {
			mux.Handle("GET /", http.FileServer(http.Dir(cfg.StaticDir)))
		} else {
			cfg.Logger.Warn("static directory not found, UI disabled",
				slog.String("static_dir", cfg.StaticDir))
		}
	}

	return RequestLogger(cfg.Logger)(mux)
}
