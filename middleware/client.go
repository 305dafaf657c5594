package middleware

import (
	"net"
	"net/http"

	goQuiz "github.com/MrEthical07/goQuiz"
)

// ClientInfo copies the caller's address and User-Agent into the request
// context for the login throttle, audit events and refresh token records.
// Put chi's RealIP in front of it when running behind a trusted proxy.
func ClientInfo(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		ctx := goQuiz.WithClientIP(r.Context(), host)
		ctx = goQuiz.WithUserAgent(ctx, r.UserAgent())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
