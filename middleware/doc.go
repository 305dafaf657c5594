// Package middleware adapts goQuiz.Engine to net/http.
//
// # Guards
//
//   - [Require] verifies the bearer access token and stores the identity in
//     the request context. It never touches storage.
//   - [RequireAdmin] restricts catalog authoring to the admin role.
//
// [ClientInfo] records the caller's IP and User-Agent for the engine, and
// [RefreshCookie] owns the refresh token side channel.
//
// This package translates HTTP semantics into Engine calls. It does not
// parse tokens itself; every decision is delegated to Engine.Validate.
package middleware
