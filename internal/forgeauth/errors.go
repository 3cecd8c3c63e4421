package forgeauth

import (
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
)

// ErrUnauthenticated means the session holds no credential.
var ErrUnauthenticated = errors.New("forgeauth: not authenticated")

// ErrAuthExchange matches every *ExchangeError via errors.Is.
var ErrAuthExchange = errors.New("forgeauth: token exchange failed")

// ExchangeError reports a failed grant against the identity provider.
// Code and Description carry the provider's OAuth error fields when the
// provider answered; both are empty for transport failures.
type ExchangeError struct {
	Op          string
	Code        string
	Description string
	Err         error
}

func (e *ExchangeError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("forgeauth: %s: %s: %v", e.Op, e.Code, e.Err)
	}

	return fmt.Sprintf("forgeauth: %s: %v", e.Op, e.Err)
}

func (e *ExchangeError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrAuthExchange) true for any ExchangeError.
func (e *ExchangeError) Is(target error) bool {
	return target == ErrAuthExchange
}

// Rejected reports whether the provider refused the grant itself: a 4xx
// reply or an invalid_grant/invalid_client code. Transport failures and 5xx
// replies are not rejections.
func (e *ExchangeError) Rejected() bool {
	var re *oauth2.RetrieveError
	if !errors.As(e.Err, &re) {
		return false
	}

	switch re.ErrorCode {
	case "invalid_grant", "invalid_client":
		return true
	}

	return re.Response != nil &&
		re.Response.StatusCode >= http.StatusBadRequest &&
		re.Response.StatusCode < http.StatusInternalServerError
}

func newExchangeError(op string, err error) *ExchangeError {
	ee := &ExchangeError{Op: op, Err: err}

	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		ee.Code = re.ErrorCode
		ee.Description = re.ErrorDescription
	}

	return ee
}
