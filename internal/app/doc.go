// Package app provides the application service layer.
//
// Service orchestrates the demo use cases: inject an error, roll back, read the current
// snapshot. Every state change is written to the StateStore, then a freshly derived
// snapshot is broadcast to all push connections and, when a publisher is configured,
// announced to the other instances. Depends on domain interfaces, not concrete adapters.
package app
