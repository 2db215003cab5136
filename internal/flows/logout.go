package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/rotauth/jwt"
)

// LogoutFailureKind classifies logout flow failures for root-level mapping.
type LogoutFailureKind int

const (
	LogoutFailureNone LogoutFailureKind = iota
	LogoutFailureMissing
	LogoutFailureInvalid
	LogoutFailureRegistry
)

// LogoutRegistry is the subset of the session registry used by logout.
type LogoutRegistry interface {
	Delete(ctx context.Context, userID, familyID string) error
}

// LogoutDeps captures logout flow dependencies.
type LogoutDeps struct {
	Parse    func(string) jwt.ParseResult
	Registry LogoutRegistry
}

// LogoutResult carries the revoked family or failure metadata.
type LogoutResult struct {
	Failure  LogoutFailureKind
	Err      error
	UserID   string
	FamilyID string
	Expired  bool
}

// RunLogout revokes the family named by token. Expired tokens are accepted so a client
// whose access token lapsed can still end its session. Both token types are accepted.
func RunLogout(ctx context.Context, token string, deps LogoutDeps) LogoutResult {
	if token == "" {
		return LogoutResult{Failure: LogoutFailureMissing}
	}

	parsed := deps.Parse(token)
	if parsed.Status == jwt.StatusInvalid || parsed.Claims == nil {
		return LogoutResult{Failure: LogoutFailureInvalid, Err: parsed.Err}
	}

	userID, familyID := parsed.Claims.Subject(), parsed.Claims.FamilyID
	if userID == "" || familyID == "" {
		return LogoutResult{Failure: LogoutFailureInvalid, Err: errors.New("token missing sub or fid")}
	}

	result := LogoutResult{
		UserID:   userID,
		FamilyID: familyID,
		Expired:  parsed.Status == jwt.StatusExpired,
	}
	if err := deps.Registry.Delete(ctx, userID, familyID); err != nil {
		result.Failure = LogoutFailureRegistry
		result.Err = err
	}
	return result
}
