// Package store defines the persistence boundaries of the generation
// pipeline: the per-account quota ledger and the write-only result store.
// Implementations live under internal/platform; this package also carries
// in-memory versions used by the operator CLI and tests.
package store
