// Package domain defines the core domain types and interfaces.
//
// Concept-oriented files (status.go, snapshot.go, state.go, errors.go) hold the shared
// types and the consumer-side interfaces. No I/O lives here; DeriveSnapshot is a pure
// function so every caller computes the same view from the same inputs.
package domain
