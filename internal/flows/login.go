package flows

import (
	"context"
	"time"
)

// LoginFailureKind classifies login flow failures for root-level mapping.
type LoginFailureKind int

const (
	LoginFailureNone LoginFailureKind = iota
	LoginFailureCredentials
	LoginFailureIssue
	LoginFailureRegistry
)

// LoginResult carries the initial token pair of a new family or failure metadata.
type LoginResult struct {
	Failure      LoginFailureKind
	Err          error
	UserID       string
	FamilyID     string
	AccessToken  string
	RefreshToken string
}

// LoginRegistry is the subset of the session registry used by login.
type LoginRegistry interface {
	Put(ctx context.Context, userID, familyID, jti string, ttl time.Duration) error
}

// LoginDeps captures login flow dependencies.
type LoginDeps struct {
	// Authenticate returns the canonical user id for valid credentials.
	Authenticate func(ctx context.Context, userID, password string) (string, error)
	NewFamilyID  func() (string, error)
	NewTokenID   func() (string, error)
	IssueAccess  func(subject, familyID string) (string, error)
	IssueRefresh func(subject, familyID, jti string) (string, error)
	RefreshTTL   time.Duration
	Registry     LoginRegistry
}

// RunLogin authenticates the caller, starts a new token family and registers its first
// refresh jti.
func RunLogin(ctx context.Context, userID, password string, deps LoginDeps) LoginResult {
	subject, err := deps.Authenticate(ctx, userID, password)
	if err != nil {
		return LoginResult{Failure: LoginFailureCredentials, Err: err, UserID: userID}
	}

	familyID, err := deps.NewFamilyID()
	if err != nil {
		return LoginResult{Failure: LoginFailureIssue, Err: err, UserID: subject}
	}
	result := LoginResult{UserID: subject, FamilyID: familyID}

	jti, err := deps.NewTokenID()
	if err != nil {
		result.Failure = LoginFailureIssue
		result.Err = err
		return result
	}
	refresh, err := deps.IssueRefresh(subject, familyID, jti)
	if err != nil {
		result.Failure = LoginFailureIssue
		result.Err = err
		return result
	}
	access, err := deps.IssueAccess(subject, familyID)
	if err != nil {
		result.Failure = LoginFailureIssue
		result.Err = err
		return result
	}

	if err := deps.Registry.Put(ctx, subject, familyID, jti, deps.RefreshTTL); err != nil {
		result.Failure = LoginFailureRegistry
		result.Err = err
		return result
	}

	result.AccessToken = access
	result.RefreshToken = refresh
	return result
}
