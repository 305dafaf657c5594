// Package quiz holds the quiz domain model and the pure parts of the quiz
// session state machine: sampling, grading, cursor advancement and result
// aggregation. Persistence and ownership checks live in the engine.
package quiz
