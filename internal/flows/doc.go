// Package flows contains pure orchestrators for the two engine operations
// with multi-step failure handling: refresh rotation and answer submission.
//
// Each Run function takes a typed dependency struct and returns a result
// carrying a failure kind. The engine maps kinds to its own sentinel
// errors, metrics and audit events. Flows never import the root package.
package flows
