package forgeauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"
)

// Default Autodesk authentication endpoints.
const (
	DefaultAuthURL  = "https://developer.api.autodesk.com/authentication/v2/authorize"
	DefaultTokenURL = "https://developer.api.autodesk.com/authentication/v2/token"
)

// defaultExpiresIn applies when the provider omits expires_in.
const defaultExpiresIn = int64(time.Hour / time.Second)

// maxTokenResponse bounds how much of a token response is read.
const maxTokenResponse = 1 << 20

// Grant is the result of one token endpoint call.
type Grant struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64 // seconds
}

// TokenEndpoint performs the two grants the broker needs.
//
//go:generate mockgen -destination=mock_endpoint_test.go -package=forgeauth . TokenEndpoint
type TokenEndpoint interface {
	ExchangeCode(ctx context.Context, code string) (*Grant, error)
	Refresh(ctx context.Context, refreshToken string, scopes []string) (*Grant, error)
}

// OAuthEndpoint is the production TokenEndpoint.
type OAuthEndpoint struct {
	cfg        *oauth2.Config
	httpClient *http.Client
}

// NewOAuthEndpoint returns a TokenEndpoint for cfg. A nil httpClient uses
// http.DefaultClient.
func NewOAuthEndpoint(cfg *oauth2.Config, httpClient *http.Client) *OAuthEndpoint {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &OAuthEndpoint{cfg: cfg, httpClient: httpClient}
}

// ExchangeCode redeems an authorization code.
func (e *OAuthEndpoint) ExchangeCode(ctx context.Context, code string) (*Grant, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, e.httpClient)

	tok, err := e.cfg.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}

	return grantFromToken(tok), nil
}

// Refresh redeems a refresh token for the given scopes. oauth2's own
// refresher cannot narrow scope, so the form is posted directly.
func (e *OAuthEndpoint) Refresh(ctx context.Context, refreshToken string, scopes []string) (*Grant, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	}

	if len(scopes) > 0 {
		form.Set("scope", strings.Join(scopes, " "))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.Endpoint.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("creating refresh request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(url.QueryEscape(e.cfg.ClientID), url.QueryEscape(e.cfg.ClientSecret))

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("posting refresh grant: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTokenResponse))
	if err != nil {
		return nil, fmt.Errorf("reading refresh response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, retrieveError(resp, body)
	}

	var tr struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int64  `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, fmt.Errorf("decoding refresh response: %w", err)
	}

	if tr.AccessToken == "" {
		return nil, &oauth2.RetrieveError{Response: resp, Body: body, ErrorDescription: "server response missing access_token"}
	}

	return &Grant{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		ExpiresIn:    normalizeExpiresIn(tr.ExpiresIn),
	}, nil
}

// retrieveError decodes the provider's error body. Autodesk reports either
// the standard error/error_description pair or errorCode/developerMessage.
func retrieveError(resp *http.Response, body []byte) *oauth2.RetrieveError {
	re := &oauth2.RetrieveError{Response: resp, Body: body}

	if gjson.ValidBytes(body) {
		parsed := gjson.ParseBytes(body)
		re.ErrorCode = firstString(parsed, "error", "errorCode")
		re.ErrorDescription = firstString(parsed, "error_description", "developerMessage")
		re.ErrorURI = parsed.Get("error_uri").String()
	}

	return re
}

func firstString(r gjson.Result, paths ...string) string {
	for _, p := range paths {
		if v := r.Get(p); v.Exists() && v.String() != "" {
			return v.String()
		}
	}

	return ""
}

func grantFromToken(tok *oauth2.Token) *Grant {
	expiresIn := tok.ExpiresIn
	if expiresIn <= 0 && !tok.Expiry.IsZero() {
		expiresIn = int64(time.Until(tok.Expiry).Round(time.Second) / time.Second)
	}

	return &Grant{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresIn:    normalizeExpiresIn(expiresIn),
	}
}

func normalizeExpiresIn(s int64) int64 {
	if s <= 0 {
		return defaultExpiresIn
	}

	return s
}
