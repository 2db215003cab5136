package rotauth

import (
	"context"
	"time"

	"github.com/MrEthical07/rotauth/credstore"
)

// TokenPair is returned by Login and Refresh. Both tokens belong to the same family.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// AuthResult is returned by [Engine.Validate] for a valid access token.
type AuthResult struct {
	UserID    string
	FamilyID  string
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// CredentialRecord is the stored credential of one user.
type CredentialRecord = credstore.Record

// CredentialStore looks up stored credentials. FindByUserID returns
// ErrCredentialNotFound, bare or wrapped, for an unknown user. Any other error is
// treated as a store outage.
//
// credstore.Postgres and credstore.Memory implement it.
type CredentialStore interface {
	FindByUserID(ctx context.Context, userID string) (CredentialRecord, error)
}

// PasswordVerifier checks a plaintext password against a stored hash. A mismatch is
// (false, nil); an error means the hash could not be interpreted.
type PasswordVerifier interface {
	Verify(plaintext, hash string) (bool, error)
}
