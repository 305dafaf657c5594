package middleware

import (
	"context"
	"net/http"
	"strings"

	goQuiz "github.com/MrEthical07/goQuiz"
)

type authResultContextKey struct{}

// Validator verifies bearer access tokens. *goQuiz.Engine implements it.
type Validator interface {
	Validate(ctx context.Context, accessToken string) (*goQuiz.AuthResult, error)
}

// RejectFunc writes the response for a request refused by a guard. status is
// http.StatusUnauthorized or http.StatusForbidden.
type RejectFunc func(w http.ResponseWriter, r *http.Request, status int)

// AuthResultFromContext returns the identity stored by [Require].
func AuthResultFromContext(ctx context.Context) (*goQuiz.AuthResult, bool) {
	res, ok := ctx.Value(authResultContextKey{}).(*goQuiz.AuthResult)
	return res, ok && res != nil
}

// WithAuthResult stores res in ctx the way [Require] does.
func WithAuthResult(ctx context.Context, res *goQuiz.AuthResult) context.Context {
	return context.WithValue(ctx, authResultContextKey{}, res)
}

// Require rejects requests without a valid bearer access token and stores
// the verified identity in the request context. A nil reject writes a plain
// text response.
func Require(v Validator, reject RejectFunc) func(http.Handler) http.Handler {
	if reject == nil {
		reject = plainReject
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if v == nil {
				reject(w, r, http.StatusUnauthorized)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				reject(w, r, http.StatusUnauthorized)
				return
			}

			res, err := v.Validate(r.Context(), token)
			if err != nil {
				reject(w, r, http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithAuthResult(r.Context(), res)))
		})
	}
}

// RequireAdmin must run after [Require]. It refuses callers whose role is
// not goQuiz.RoleAdmin.
func RequireAdmin(reject RejectFunc) func(http.Handler) http.Handler {
	if reject == nil {
		reject = plainReject
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, ok := AuthResultFromContext(r.Context())
			if !ok {
				reject(w, r, http.StatusUnauthorized)
				return
			}
			if !res.IsAdmin() {
				reject(w, r, http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func plainReject(w http.ResponseWriter, _ *http.Request, status int) {
	http.Error(w, strings.ToLower(http.StatusText(status)), status)
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}
