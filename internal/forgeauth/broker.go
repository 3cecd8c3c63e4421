// Package forgeauth brokers the three-legged OAuth flow against Autodesk
// Platform Services. A session carries two tokens: an internal token with
// data scopes used server-side, and a public token limited to
// viewables:read that is safe to hand to the browser viewer. The public
// token is always minted from the refresh token the internal grant just
// returned, so the two are refreshed strictly in that order.
package forgeauth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/oauth2"

	"github.com/tonimelisma/viewhubs/internal/credential"
	"github.com/tonimelisma/viewhubs/internal/session"
)

// Scope tiers.
var (
	InternalScopes = []string{"data:read", "data:create", "data:write", "viewables:read"}
	PublicScopes   = []string{"viewables:read"}
)

// Config identifies the registered application.
type Config struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
	AuthURL      string
	TokenURL     string
}

// OAuth2Config converts c to an oauth2.Config with the internal scopes.
func (c Config) OAuth2Config() *oauth2.Config {
	authURL, tokenURL := c.AuthURL, c.TokenURL
	if authURL == "" {
		authURL = DefaultAuthURL
	}

	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}

	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		RedirectURL:  c.CallbackURL,
		Scopes:       InternalScopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   authURL,
			TokenURL:  tokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}
}

// AccessToken is what token reads return. ExpiresIn is recomputed on every
// read and never stored.
type AccessToken struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Broker performs code exchange and refresh and serves tokens from the
// session credential.
type Broker struct {
	oauth    *oauth2.Config
	endpoint TokenEndpoint
	store    *credential.Store
	logger   *slog.Logger

	// nowFunc is injectable for deterministic tests.
	nowFunc func() time.Time
}

// NewBroker returns a Broker. A nil endpoint uses the production OAuth
// endpoint with http.DefaultClient.
func NewBroker(cfg Config, endpoint TokenEndpoint, store *credential.Store, logger *slog.Logger) *Broker {
	if logger == nil {
		logger = slog.Default()
	}

	if store == nil {
		store = credential.NewStore(logger)
	}

	oc := cfg.OAuth2Config()
	if endpoint == nil {
		endpoint = NewOAuthEndpoint(oc, nil)
	}

	return &Broker{
		oauth:    oc,
		endpoint: endpoint,
		store:    store,
		logger:   logger,
		nowFunc:  time.Now,
	}
}

// ClientID returns the registered application's client id.
func (b *Broker) ClientID() string {
	return b.oauth.ClientID
}

// AuthorizationURL builds the provider's authorize URL for scopes. It does
// no I/O.
func (b *Broker) AuthorizationURL(scopes []string) string {
	oc := *b.oauth
	oc.Scopes = scopes

	return oc.AuthCodeURL("")
}

// ExchangeCode redeems an authorization code for a full Credential: the
// code grant yields the internal token, then its refresh token is redeemed
// for the public token.
func (b *Broker) ExchangeCode(ctx context.Context, code string) (*credential.Credential, error) {
	b.logger.Info("exchanging authorization code")

	internal, err := b.endpoint.ExchangeCode(ctx, code)
	if err != nil {
		return nil, newExchangeError("exchanging authorization code", err)
	}

	return b.derivePublic(ctx, internal)
}

// Refresh replaces stored with a freshly refreshed Credential. The internal
// refresh strictly precedes the public one.
func (b *Broker) Refresh(ctx context.Context, stored *credential.Credential) (*credential.Credential, error) {
	b.logger.Info("refreshing credential", slog.Time("expired_at", stored.ExpiresAt))

	internal, err := b.endpoint.Refresh(ctx, stored.RefreshToken, InternalScopes)
	if err != nil {
		return nil, newExchangeError("refreshing internal token", err)
	}

	return b.derivePublic(ctx, internal)
}

// derivePublic completes the two-step exchange from an internal grant.
func (b *Broker) derivePublic(ctx context.Context, internal *Grant) (*credential.Credential, error) {
	public, err := b.endpoint.Refresh(ctx, internal.RefreshToken, PublicScopes)
	if err != nil {
		return nil, newExchangeError("refreshing public token", err)
	}

	refreshToken := public.RefreshToken
	if refreshToken == "" {
		refreshToken = internal.RefreshToken
	}

	c := &credential.Credential{
		InternalToken: internal.AccessToken,
		PublicToken:   public.AccessToken,
		RefreshToken:  refreshToken,
		ExpiresAt:     b.nowFunc().Add(time.Duration(internal.ExpiresIn) * time.Second).UTC(),
	}

	b.logger.Info("credential issued", slog.Time("expires_at", c.ExpiresAt))

	return c, nil
}

// SignIn exchanges code and stores the resulting Credential in the session.
func (b *Broker) SignIn(ctx context.Context, h session.Handle, code string) error {
	c, err := b.ExchangeCode(ctx, code)
	if err != nil {
		return err
	}

	return b.store.Save(ctx, h, c)
}

// InternalToken returns the session's internal token, refreshing first when
// the credential has expired.
func (b *Broker) InternalToken(ctx context.Context, h session.Handle) (*AccessToken, error) {
	c, err := b.current(ctx, h)
	if err != nil {
		return nil, err
	}

	return &AccessToken{AccessToken: c.InternalToken, ExpiresIn: c.ExpiresIn(b.nowFunc())}, nil
}

// PublicToken returns the session's public token, refreshing first when the
// credential has expired.
func (b *Broker) PublicToken(ctx context.Context, h session.Handle) (*AccessToken, error) {
	c, err := b.current(ctx, h)
	if err != nil {
		return nil, err
	}

	return &AccessToken{AccessToken: c.PublicToken, ExpiresIn: c.ExpiresIn(b.nowFunc())}, nil
}

// SignOut clears the session credential. Idempotent.
func (b *Broker) SignOut(ctx context.Context, h session.Handle) error {
	return b.store.Clear(ctx, h)
}

// current loads the session credential and refreshes it when expired.
// Concurrent requests on one session may both refresh; the last save wins.
func (b *Broker) current(ctx context.Context, h session.Handle) (*credential.Credential, error) {
	c, ok := b.store.Load(ctx, h)
	if !ok {
		return nil, ErrUnauthenticated
	}

	if !c.Expired(b.nowFunc()) {
		return c, nil
	}

	refreshed, err := b.Refresh(ctx, c)
	if err != nil {
		var ee *ExchangeError
		if errors.As(err, &ee) && ee.Rejected() {
			b.logger.Warn("refresh rejected, clearing session credential",
				slog.String("op", ee.Op),
				slog.String("code", ee.Code),
			)

			if clearErr := b.store.Clear(ctx, h); clearErr != nil {
				b.logger.Warn("clearing session credential failed", slog.String("error", clearErr.Error()))
			}
		}

		return nil, err
	}

	if err := b.store.Save(ctx, h, refreshed); err != nil {
		return nil, err
	}

	return refreshed, nil
}
