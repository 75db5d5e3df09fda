// Package postgres provides PostgreSQL implementations of the persistence
// boundaries defined in internal/store and internal/task: the quota ledger,
// the generation result store and the background task store. Schema
// migrations are embedded and applied with goose.
package postgres
