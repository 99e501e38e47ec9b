// Package storage provides the key/value stores that persist the session
// identity.
//
// Implementations:
//   - MemoryStore: process-local, for tests and throwaway clients
//   - BadgerStore: embedded on-disk store (default)
//   - RedisStore: shared store for clients running on several hosts
//
// A PostgreSQL-backed store lives in package database.
package storage
