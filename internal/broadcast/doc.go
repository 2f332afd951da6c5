// Package broadcast tracks open push connections and fans snapshots out to them.
//
// The Broadcaster owns the connection set behind a RWMutex and fans out concurrently, one
// bounded goroutine per client, so a slow peer only costs its own write deadline. A
// failed write marks the connection lost and removes it; other clients are unaffected.
// Each Client serializes its own data frames and moves Connecting -> Open -> Closed.
package broadcast
