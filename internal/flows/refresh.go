package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/rotauth/jwt"
	"github.com/MrEthical07/rotauth/session"
)

// RefreshFailureKind classifies refresh flow failures for root-level mapping.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	RefreshFailureMissing
	RefreshFailureExpired
	RefreshFailureInvalid
	RefreshFailureRegistry
	RefreshFailureFamilyNotFound
	RefreshFailureReuse
	RefreshFailureRotationLost
	RefreshFailureIssue
)

// RefreshResult carries either the rotated token pair or failure metadata.
type RefreshResult struct {
	Failure       RefreshFailureKind
	Err           error
	UserID        string
	FamilyID      string
	FamilyRevoked bool
	AccessToken   string
	RefreshToken  string
}

// RefreshRegistry is the subset of the session registry used by rotation.
type RefreshRegistry interface {
	Get(ctx context.Context, userID, familyID string) (string, bool, error)
	Put(ctx context.Context, userID, familyID, jti string, ttl time.Duration) error
	CompareAndSwap(ctx context.Context, userID, familyID, expected, next string, ttl time.Duration) (session.SwapResult, error)
	Delete(ctx context.Context, userID, familyID string) error
}

// RefreshDeps captures refresh flow dependencies.
type RefreshDeps struct {
	Parse               func(string) jwt.ParseResult
	NewTokenID          func() (string, error)
	IssueAccess         func(subject, familyID string) (string, error)
	IssueRefresh        func(subject, familyID, jti string) (string, error)
	RefreshTTL          time.Duration
	AtomicRotation      bool
	RevokeFamilyOnReuse bool
	Registry            RefreshRegistry
	Warn                func(string, ...any)
}

// RunRefresh verifies a refresh token against the registry and rotates the family to a
// new jti. The registry write happens before any token is returned.
func RunRefresh(ctx context.Context, refreshToken string, deps RefreshDeps) RefreshResult {
	if deps.Warn == nil {
		deps.Warn = func(string, ...any) {}
	}
	if refreshToken == "" {
		return RefreshResult{Failure: RefreshFailureMissing}
	}

	parsed := deps.Parse(refreshToken)
	switch parsed.Status {
	case jwt.StatusExpired:
		return RefreshResult{Failure: RefreshFailureExpired, Err: parsed.Err}
	case jwt.StatusValid:
	default:
		return RefreshResult{Failure: RefreshFailureInvalid, Err: parsed.Err}
	}

	claims := parsed.Claims
	userID, familyID, jti := claims.Subject(), claims.FamilyID, claims.TokenID()
	if claims.Type != jwt.TypeRefresh {
		return RefreshResult{Failure: RefreshFailureInvalid, Err: errors.New("not a refresh token")}
	}
	if userID == "" || familyID == "" || jti == "" {
		return RefreshResult{Failure: RefreshFailureInvalid, Err: errors.New("refresh token missing sub, fid or jti")}
	}

	result := RefreshResult{UserID: userID, FamilyID: familyID}

	stored, found, err := deps.Registry.Get(ctx, userID, familyID)
	if err != nil {
		result.Failure = RefreshFailureRegistry
		result.Err = err
		return result
	}
	if !found {
		result.Failure = RefreshFailureFamilyNotFound
		return result
	}
	if stored != jti {
		result.Failure = RefreshFailureReuse
		if deps.RevokeFamilyOnReuse {
			if err := deps.Registry.Delete(ctx, userID, familyID); err != nil {
				deps.Warn("rotauth: family revocation on reuse failed", "user_id", userID, "family_id", familyID, "error", err)
			} else {
				result.FamilyRevoked = true
			}
		}
		return result
	}

	nextJTI, err := deps.NewTokenID()
	if err != nil {
		result.Failure = RefreshFailureIssue
		result.Err = err
		return result
	}
	access, err := deps.IssueAccess(userID, familyID)
	if err != nil {
		result.Failure = RefreshFailureIssue
		result.Err = err
		return result
	}
	refresh, err := deps.IssueRefresh(userID, familyID, nextJTI)
	if err != nil {
		result.Failure = RefreshFailureIssue
		result.Err = err
		return result
	}

	if deps.AtomicRotation {
		swap, err := deps.Registry.CompareAndSwap(ctx, userID, familyID, jti, nextJTI, deps.RefreshTTL)
		if err != nil {
			result.Failure = RefreshFailureRegistry
			result.Err = err
			return result
		}
		switch swap {
		case session.SwapApplied:
		case session.SwapNotFound:
			// Revoked between the read and the swap.
			result.Failure = RefreshFailureFamilyNotFound
			return result
		default:
			result.Failure = RefreshFailureRotationLost
			return result
		}
	} else if err := deps.Registry.Put(ctx, userID, familyID, nextJTI, deps.RefreshTTL); err != nil {
		result.Failure = RefreshFailureRegistry
		result.Err = err
		return result
	}

	result.AccessToken = access
	result.RefreshToken = refresh
	return result
}
