package goQuiz

import "context"

type clientIPContextKey struct{}
type userAgentContextKey struct{}

// WithClientIP attaches the caller's IP address to ctx. It feeds the login
// throttle, audit events and refresh token metadata.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

// WithUserAgent attaches the HTTP User-Agent to ctx. It is stored with each
// refresh token record.
func WithUserAgent(ctx context.Context, userAgent string) context.Context {
	return context.WithValue(ctx, userAgentContextKey{}, userAgent)
}

func clientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}

func userAgentFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	userAgent, _ := ctx.Value(userAgentContextKey{}).(string)
	return userAgent
}

// ClientIPFromContext returns the address stored by WithClientIP.
func ClientIPFromContext(ctx context.Context) string { return clientIPFromContext(ctx) }

// UserAgentFromContext returns the value stored by WithUserAgent.
func UserAgentFromContext(ctx context.Context) string { return userAgentFromContext(ctx) }
