// Package middleware exposes a net/http guard that authorizes requests with rotauth
// access tokens.
//
// [Guard] reads the Authorization header, calls Engine.Validate, and injects the
// validated [rotauth.AuthResult] into the request context. Rejections answer 401 with a
// JSON body and a WWW-Authenticate challenge that tells an expired token apart from an
// invalid one, so clients know when to refresh.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does not parse JWTs or
// touch Redis; every decision is delegated to Engine.Validate.
package middleware
