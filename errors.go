package rotauth

import (
	"errors"
	"fmt"

	"github.com/MrEthical07/rotauth/credstore"
)

var (
	// ErrInvalidCredentials is returned by Login for an unknown user or a wrong password.
	// The two cases are indistinguishable to the caller.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrTokenMissing is returned when no token was supplied.
	ErrTokenMissing = errors.New("token missing")
	// ErrTokenExpired is returned for an authentic token past its exp.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid covers bad signatures, wrong issuer or type, revoked families and
	// refresh tokens that are no longer current.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrRegistryUnavailable is returned when the session registry could not be reached.
	// It is never reported as ErrTokenInvalid.
	ErrRegistryUnavailable = errors.New("session registry unavailable")
	// ErrCredentialStoreUnavailable is returned when credential lookup failed for a
	// reason other than an unknown user.
	ErrCredentialStoreUnavailable = errors.New("credential store unavailable")
	// ErrEngineNotReady is returned by methods called on a nil or unbuilt Engine.
	ErrEngineNotReady = errors.New("engine not initialized")

	// ErrRefreshReuse marks a refresh token presented after its family rotated. Errors
	// carrying it also match ErrTokenInvalid.
	ErrRefreshReuse = errors.New("refresh token reuse detected")
)

var errReuseDetected = fmt.Errorf("%w: %w", ErrTokenInvalid, ErrRefreshReuse)

// ErrCredentialNotFound is returned by a CredentialStore for an unknown user.
var ErrCredentialNotFound = credstore.ErrNotFound
