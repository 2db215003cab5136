// Package rotauth issues short-lived JWT access tokens and long-lived rotating refresh
// tokens, tracking one current refresh token per token family in Redis.
//
// A login starts a family. Each refresh replaces the family's current refresh token
// and invalidates the one presented, so a refresh token that is presented a second
// time is detected as reuse. Logout deletes the family entry and accepts expired
// tokens. Access tokens are verified without any Redis round-trip.
//
// Engine methods are safe to call from multiple goroutines after [Builder.Build].
//
// # Architecture boundaries
//
// rotauth is the public surface: [Engine], [Builder], [Config], [Authenticator] and
// the sentinel errors. Flow orchestration and audit dispatch live under internal/.
// The token codec, the Redis registry, password hashing and credential stores are
// separate packages (jwt, session, password, credstore) that do not import rotauth.
//
// # Errors
//
// Callers match errors with errors.Is against ErrInvalidCredentials, ErrTokenMissing,
// ErrTokenExpired, ErrTokenInvalid and ErrRegistryUnavailable. A registry outage is
// never reported as ErrTokenInvalid, and no operation retries internally.
package rotauth
