// Package credstore provides lookups of stored password hashes by user id.
//
// [Postgres] reads the users table through database/sql with the pgx driver. [Memory]
// is a concurrency-safe map for tests, demos and the load generator.
//
// Both return [ErrNotFound] for unknown users. Any other error is a backend failure.
package credstore
