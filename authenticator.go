package rotauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/MrEthical07/rotauth/password"
)

// dummyPassword is hashed once per Authenticator. Unknown users are verified against
// that hash so the response time does not reveal whether an account exists.
const dummyPassword = "rotauth-dummy-password-for-unknown-users"

// Authenticator checks a (userID, secret) pair against a CredentialStore.
type Authenticator struct {
	store     CredentialStore
	verifier  PasswordVerifier
	dummyHash string
	logger    *slog.Logger
}

// NewAuthenticator builds an Authenticator. When verifier also implements
// password.Hasher the dummy hash is produced with it; otherwise a bcrypt hash at the
// default cost is used.
func NewAuthenticator(store CredentialStore, verifier PasswordVerifier, logger *slog.Logger) (*Authenticator, error) {
	if store == nil {
		return nil, errors.New("credential store required")
	}
	if verifier == nil {
		return nil, errors.New("password verifier required")
	}
	if logger == nil {
		logger = discardLogger()
	}

	var hasher password.Hasher
	if h, ok := verifier.(password.Hasher); ok {
		hasher = h
	} else {
		b, err := password.NewBcrypt(password.DefaultBcryptCost)
		if err != nil {
			return nil, err
		}
		hasher = b
	}
	dummy, err := hasher.Hash(dummyPassword)
	if err != nil {
		return nil, fmt.Errorf("hash dummy password: %w", err)
	}

	return &Authenticator{
		store:     store,
		verifier:  verifier,
		dummyHash: dummy,
		logger:    logger,
	}, nil
}

// Authenticate returns the stored record when secret matches. Unknown users, wrong
// passwords and unreadable stored hashes all yield ErrInvalidCredentials. Store
// failures yield ErrCredentialStoreUnavailable.
func (a *Authenticator) Authenticate(ctx context.Context, userID, secret string) (CredentialRecord, error) {
	if userID == "" || secret == "" {
		return CredentialRecord{}, ErrInvalidCredentials
	}

	rec, err := a.store.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrCredentialNotFound) {
			_, _ = a.verifier.Verify(secret, a.dummyHash)
			return CredentialRecord{}, ErrInvalidCredentials
		}
		return CredentialRecord{}, fmt.Errorf("%w: %v", ErrCredentialStoreUnavailable, err)
	}

	ok, err := a.verifier.Verify(secret, rec.PasswordHash)
	if err != nil {
		a.logger.Warn("rotauth: stored password hash is unreadable", "user_id", userID, "error", err)
		return CredentialRecord{}, ErrInvalidCredentials
	}
	if !ok {
		return CredentialRecord{}, ErrInvalidCredentials
	}

	if rec.UserID == "" {
		rec.UserID = userID
	}
	return rec, nil
}
