// Package httpapi exposes the engine as a JSON API on a chi router.
//
// Every response uses the {data} / {error} envelope. Credential and token
// failures share a single 401 body. The refresh token is carried only in
// an HttpOnly cookie scoped to /auth/session.
package httpapi
