// Package goQuiz provides the backend engine of a student quiz app: JWT
// access tokens, rotating refresh tokens tracked in a Redis ledger, and
// randomized fixed-length quiz sessions graded on submission.
//
// Engine methods are safe to call from multiple goroutines after
// initialization through [Builder.Build].
//
// # Architecture boundaries
//
// goQuiz is the public surface. It exposes [Engine], [Builder], [Config],
// the storage interfaces [UserStore] and [QuizStore], and value types.
// Flow orchestration, rate limiting and audit dispatch live under
// internal/. Persistence is supplied by the caller; store/sqlstore is the
// SQL implementation.
//
// # Consistency contract
//
// Refresh rotation is a single compare-and-swap in Redis: of two concurrent
// refreshes with the same token exactly one succeeds. Answer submission is
// a single SQL transaction conditional on the session cursor: each
// position of a session accepts exactly one answer.
//
// # Performance contract
//
// Validate is the hot path and never touches storage. Login and Refresh
// perform one ledger round-trip each.
package goQuiz
