package auth

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// SessionExpiredError means the refresh exchange failed and the stored
// credentials were cleared. LoginPath is the entry point the caller should
// send the user to, chosen from the current location.
type SessionExpiredError struct {
	LoginPath string
	Err       error
}

func (e *SessionExpiredError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("session expired (login at %s): %v", e.LoginPath, e.Err)
	}
	return fmt.Sprintf("session expired (login at %s)", e.LoginPath)
}

func (e *SessionExpiredError) Unwrap() error {
	return e.Err
}

// AsSessionExpired reports whether err carries a SessionExpiredError and
// fills target when it does.
func AsSessionExpired(err error, target **SessionExpiredError) bool {
	return errors.As(err, target)
}

// LoginPathFor picks the login entry point for a location path. Locations
// inside a tenant scope keep the tenant segment; everything else goes to
// the system login.
func LoginPathFor(location string) string {
	segments := strings.Split(strings.Trim(strings.TrimSpace(location), "/"), "/")
	if len(segments) >= 2 && segments[0] == "tenants" && segments[1] != "" {
		return "/tenants/" + segments[1] + "/login"
	}
	return "/auth/login"
}

// RecoveryTransport is an http.RoundTripper that attaches the bearer token
// to every request and makes 401 handling invisible to callers: one shared
// refresh, then one retry of the original request with the new token. The
// refresh endpoint itself is never intercepted.
type RecoveryTransport struct {
	Base  http.RoundTripper
	Store *CredentialStore

	// Location reports the current location path used to pick the login
	// entry point when the session cannot be recovered.
	Location func() string
}

func (t *RecoveryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	attempt := req.Clone(req.Context())
	if token := t.Store.Current().AccessToken; token != "" {
		attempt.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := base.RoundTrip(attempt)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized || t.isRefreshRequest(req) {
		return resp, nil
	}
	// Retrying needs a rewindable body.
	if req.Body != nil && req.GetBody == nil {
		return resp, nil
	}

	io.Copy(io.Discard, io.LimitReader(resp.Body, 32*1024))
	resp.Body.Close()

	creds, rerr := t.Store.Refresh(req.Context())
	if rerr != nil {
		return nil, &SessionExpiredError{LoginPath: LoginPathFor(t.location()), Err: rerr}
	}

	retry := req.Clone(req.Context())
	if req.GetBody != nil {
		body, berr := req.GetBody()
		if berr != nil {
			return nil, berr
		}
		retry.Body = body
	}
	retry.Header.Set("Authorization", "Bearer "+creds.AccessToken)
	return base.RoundTrip(retry)
}

func (t *RecoveryTransport) isRefreshRequest(req *http.Request) bool {
	refreshURL := t.Store.RefreshURL()
	return refreshURL != "" && req.URL.String() == refreshURL
}

func (t *RecoveryTransport) location() string {
	if t.Location == nil {
		return ""
	}
	return t.Location()
}
