// Package session provides the Redis-backed refresh-token registry.
//
// # Key layout
//
// Each token family owns one key, "<prefix>:<userID>:<familyID>", whose value is the jti
// of the family's current refresh token. The entry TTL equals the refresh token lifetime
// and is reset on every rotation. Family ids are UUIDs and never contain ':'.
//
// # Architecture boundaries
//
// This package owns the [Store] (Redis operations) only. It does NOT parse tokens or
// decide whether a presented token is acceptable; the Engine compares the stored jti with
// the presented one.
//
// # What this package must NOT do
//
//   - Import rotauth or jwt (no upward imports).
//   - Store token strings or any secret; only jti values are persisted.
//   - Translate backend failures into "not found".
package session
