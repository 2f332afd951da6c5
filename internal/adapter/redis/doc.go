// Package redis holds the Redis adapters: the shared StateStore and the Relay that
// fans status changes out to every instance over pub/sub.
//
// All commands go through two go-redis hooks on the client: MetricsHook records
// per-command counters and latency, CircuitBreakerHook fails fast with
// circuitbreaker.ErrOpen once Redis has failed repeatedly.
package redis
