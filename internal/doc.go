// Package internal holds helpers private to goQuiz: id generation and the
// sub-packages below.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher and Sink implementations)
//   - flows: orchestrators for refresh rotation and answer submission
//   - rate: Redis-backed failed-login throttle
//   - config: viper-backed server configuration
//   - httpapi: chi router, handlers and middleware
//   - janitor: scheduled cleanup jobs
//   - importer: quiz bank import from xlsx and csv
package internal
