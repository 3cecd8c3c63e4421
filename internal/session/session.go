// Package session is the per-request session boundary. A Manager hands out a
// Handle bound to one request/response pair; the handle reads and writes an
// opaque byte payload either sealed into the cookie itself or kept in a
// server-side Store keyed by a random session id.
package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Backend names accepted by the configuration.
const (
	BackendCookie = "cookie"
	BackendSQLite = "sqlite"
	BackendBolt   = "bolt"
	BackendMemory = "memory"
)

// Defaults applied by NewCookieManager and NewStoreManager.
const (
	DefaultCookieName = "forgesession"
	DefaultMaxAge     = 14 * 24 * time.Hour
)

// ErrClosed is returned by a Store after Close.
var ErrClosed = errors.New("session: store closed")

// Handle reads and writes the payload of one session. Get returns nil when
// the session holds nothing. Put replaces the payload entirely. Delete is
// idempotent.
type Handle interface {
	Get(ctx context.Context) ([]byte, error)
	Put(ctx context.Context, data []byte) error
	Delete(ctx context.Context) error
}

// Store is a server-side session backend. Keys are already hashed by the
// Manager. Load returns nil for an absent or expired entry.
type Store interface {
	Load(ctx context.Context, key string, now time.Time) ([]byte, error)
	Save(ctx context.Context, key string, data []byte, expiresAt time.Time) error
	Delete(ctx context.Context, key string) error
	Sweep(ctx context.Context, now time.Time) (int, error)
	Close() error
}

// Options configures the session cookie.
type Options struct {
	CookieName string
	MaxAge     time.Duration
	Secure     bool
	Logger     *slog.Logger
}

func (o *Options) applyDefaults() {
	if o.CookieName == "" {
		o.CookieName = DefaultCookieName
	}

	if o.MaxAge <= 0 {
		o.MaxAge = DefaultMaxAge
	}

	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Manager creates Handles for incoming requests.
type Manager struct {
	opts   Options
	sealer *sealer // cookie backend
	store  Store   // server-side backends
	logger *slog.Logger

	// nowFunc is injectable for deterministic tests.
	nowFunc func() time.Time
}

// NewCookieManager returns a Manager that seals the payload into the cookie
// with a key derived from secret.
func NewCookieManager(opts Options, secret []byte) (*Manager, error) {
	opts.applyDefaults()

	s, err := newSealer(secret, opts.CookieName)
	if err != nil {
		return nil, err
	}

	return &Manager{
		opts:    opts,
		sealer:  s,
		logger:  opts.Logger,
		nowFunc: time.Now,
	}, nil
}

// NewStoreManager returns a Manager that keeps payloads in store and puts
// only a random session id in the cookie.
func NewStoreManager(opts Options, store Store) *Manager {
	opts.applyDefaults()

	return &Manager{
		opts:    opts,
		store:   store,
		logger:  opts.Logger,
		nowFunc: time.Now,
	}
}

// Handle binds a session handle to one request/response pair. Writes go out
// as Set-Cookie headers, so Put and Delete must run before the response body.
func (m *Manager) Handle(w http.ResponseWriter, r *http.Request) Handle {
	if m.sealer != nil {
		return &cookieHandle{m: m, w: w, r: r}
	}

	return &storeHandle{m: m, w: w, r: r}
}

// Backend reports which kind of storage the manager uses.
func (m *Manager) Backend() string {
	if m.sealer != nil {
		return BackendCookie
	}

	return "store"
}

// Sweep removes expired server-side sessions. It is a no-op for the cookie
// backend, where expiry is checked on read.
func (m *Manager) Sweep(ctx context.Context) (int, error) {
	if m.store == nil {
		return 0, nil
	}

	n, err := m.store.Sweep(ctx, m.nowFunc())
	if err != nil {
		return 0, fmt.Errorf("session: sweeping expired sessions: %w", err)
	}

	if n > 0 {
		m.logger.Info("swept expired sessions", slog.Int("count", n))
	}

	return n, nil
}

// RunSweeper calls Sweep every interval until ctx is done.
func (m *Manager) RunSweeper(ctx context.Context, interval time.Duration) {
	if m.store == nil || interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := m.Sweep(ctx); err != nil {
				m.logger.Warn("session sweep failed", slog.String("error", err.Error()))
			}
		}
	}
}

// Close releases the server-side store, if any.
func (m *Manager) Close() error {
	if m.store == nil {
		return nil
	}

	return m.store.Close()
}

// newCookie builds a session cookie with the configured attributes.
func (m *Manager) newCookie(name, value string, maxAge time.Duration) *http.Cookie {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	}

	if maxAge > 0 {
		c.MaxAge = int(maxAge / time.Second)
		c.Expires = m.nowFunc().Add(maxAge).UTC()
	} else {
		c.MaxAge = -1
		c.Expires = time.Unix(0, 0).UTC()
	}

	return c
}

// storeKey hashes a session id so raw ids are never persisted.
func storeKey(id string) string {
	sum := sha256.Sum256([]byte(id))
	return hex.EncodeToString(sum[:])
}
