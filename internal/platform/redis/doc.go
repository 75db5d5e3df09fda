// Package redis provides the Redis-backed quota ledger and the request
// intake list that feeds generation requests to the worker.
package redis
