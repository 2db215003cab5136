// Package jwt issues and parses the compact HS256 tokens used for access and refresh
// credentials.
//
// # Claim set
//
// Tokens carry a closed claim set: sub, iss, iat, exp, jti, typ and fid. typ is "at" for
// access tokens and "rt" for refresh tokens; any other value is rejected on parse.
//
// # Architecture boundaries
//
// This package owns signing-key normalization, token encoding and verification. It does
// NOT consult the session registry: whether a refresh token is still current is decided
// by the Engine.
//
// # What this package must NOT do
//
//   - Access Redis or any I/O.
//   - Import rotauth or session.
//   - Return open claim maps to callers.
package jwt
