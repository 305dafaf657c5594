// Package rate implements the Redis-backed failed-login throttle.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Key layout
// under the configured prefix:
//   - <prefix>:al:<email>  login per-email
//   - <prefix>:ali:<ip>    login per-IP
//
// Counting is done by the caller on failure only, so a successful login
// never consumes budget.
package rate
