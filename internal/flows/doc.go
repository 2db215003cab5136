// Package flows contains the orchestrators behind every Engine operation.
//
// Each flow function (RunLogin, RunRefresh, RunLogout, RunValidate) accepts a typed
// dependency struct and returns a result carrying a failure kind. The Engine maps
// failure kinds onto public sentinel errors, metrics and audit events.
//
// # Architecture boundaries
//
// Flow functions coordinate the token codec and the session registry. They do NOT own
// either; ownership stays with the Engine.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import rotauth (to avoid import cycles).
//   - Retry registry calls.
package flows
