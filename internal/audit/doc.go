// Package audit implements async event dispatching for security and quiz
// lifecycle events.
//
// # Components
//
//   - [Sink] is the consumer interface (channel, JSON writer, slog, no-op).
//   - [Dispatcher] is a buffered async relay that either drops or blocks
//     when full.
//   - [Event] is the structured audit record.
//
// This package owns buffering and delivery only. Which events are emitted
// is decided by the engine.
package audit
