package middleware

import (
	"net/http"
	"time"
)

// RefreshCookie describes the side channel carrying the refresh token. The
// token is never written to a response body.
type RefreshCookie struct {
	Name   string
	Path   string
	Domain string
	Secure bool
}

// DefaultRefreshCookie is scoped to the refresh and logout endpoints only.
func DefaultRefreshCookie() RefreshCookie {
	return RefreshCookie{
		Name:   "rt",
		Path:   "/auth/session",
		Secure: true,
	}
}

// Set writes token with an expiry matching the ledger record.
func (c RefreshCookie) Set(w http.ResponseWriter, token string, expiresAt time.Time) {
	maxAge := int(time.Until(expiresAt).Seconds())
	if maxAge < 1 {
		maxAge = 1
	}
	http.SetCookie(w, &http.Cookie{
		Name:     c.Name,
		Value:    token,
		Path:     c.Path,
		Domain:   c.Domain,
		Expires:  expiresAt.UTC(),
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Clear instructs the client to drop the cookie.
func (c RefreshCookie) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.Name,
		Value:    "",
		Path:     c.Path,
		Domain:   c.Domain,
		Expires:  time.Unix(0, 0).UTC(),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Read returns the token presented by the client, or "" when absent.
func (c RefreshCookie) Read(r *http.Request) string {
	cookie, err := r.Cookie(c.Name)
	if err != nil {
		return ""
	}
	return cookie.Value
}
