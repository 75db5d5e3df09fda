// Package service contains the generation use case. GenerationService drives
// one episode end to end: it reserves quota, calls the content provider for a
// primary batch, backfills shortfalls behind the circuit breaker, runs the
// deterministic validator and the semantic agents, assembles the exact-count
// result and persists it.
//
// Fatal failures (primary provider call, persistence) return the reserved
// quota unit with a compensating increment. Every other failure degrades to a
// smaller or partially repaired result described by the episode telemetry.
//
// The service depends on store interfaces and on the generation, validation
// and agents packages, never on a concrete database or provider.
package service
