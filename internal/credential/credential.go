// Package credential holds the per-session OAuth token pair and persists it
// through a session.Handle. The stored record is flat JSON and is always
// replaced as a whole.
package credential

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/tonimelisma/viewhubs/internal/session"
)

// Credential is the live token set of one authenticated session.
type Credential struct {
	InternalToken string    `json:"internal_token"`
	PublicToken   string    `json:"public_token"`
	RefreshToken  string    `json:"refresh_token"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// Expired reports whether the credential must be refreshed at now.
func (c *Credential) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// ExpiresIn returns the whole seconds left before expiry, which may be
// negative.
func (c *Credential) ExpiresIn(now time.Time) int64 {
	return int64(c.ExpiresAt.Sub(now).Round(time.Second) / time.Second)
}

func (c *Credential) valid() bool {
	return c.InternalToken != "" && c.RefreshToken != "" && !c.ExpiresAt.IsZero()
}

// Store loads and saves Credentials through session handles.
type Store struct {
	logger *slog.Logger
}

// NewStore returns a Store that logs malformed entries to logger.
func NewStore(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}

	return &Store{logger: logger}
}

// Load returns the session's credential. A missing, unreadable or malformed
// entry yields (nil, false); Load never fails the caller.
func (s *Store) Load(ctx context.Context, h session.Handle) (*Credential, bool) {
	data, err := h.Get(ctx)
	if err != nil {
		s.logger.Warn("reading session failed, treating as signed out", slog.String("error", err.Error()))
		return nil, false
	}

	if len(data) == 0 {
		return nil, false
	}

	var c Credential
	if err := json.Unmarshal(data, &c); err != nil {
		s.logger.Warn("discarding malformed session credential", slog.String("error", err.Error()))
		return nil, false
	}

	if !c.valid() {
		s.logger.Warn("discarding incomplete session credential")
		return nil, false
	}

	return &c, true
}

// Save replaces the session's credential.
func (s *Store) Save(ctx context.Context, h session.Handle, c *Credential) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("credential: encoding: %w", err)
	}

	if err := h.Put(ctx, data); err != nil {
		return fmt.Errorf("credential: saving: %w", err)
	}

	return nil
}

// Clear removes the session's credential. Calling it on an empty session is
// not an error.
func (s *Store) Clear(ctx context.Context, h session.Handle) error {
	if err := h.Delete(ctx); err != nil {
		return fmt.Errorf("credential: clearing: %w", err)
	}

	return nil
}
