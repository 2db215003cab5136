package flows

import (
	"errors"

	"github.com/MrEthical07/rotauth/jwt"
)

// ValidateFailureKind classifies access validation failures for root-level mapping.
type ValidateFailureKind int

const (
	ValidateFailureNone ValidateFailureKind = iota
	ValidateFailureMissing
	ValidateFailureExpired
	ValidateFailureInvalid
)

// ValidateResult returns either the access claims or a classified failure.
type ValidateResult struct {
	Failure ValidateFailureKind
	Err     error
	Claims  *jwt.Claims
}

// ValidateDeps captures access validation dependencies.
type ValidateDeps struct {
	Parse func(string) jwt.ParseResult
}

// RunValidate checks an access token without touching the registry. Refresh tokens are
// rejected.
func RunValidate(token string, deps ValidateDeps) ValidateResult {
	if token == "" {
		return ValidateResult{Failure: ValidateFailureMissing}
	}

	parsed := deps.Parse(token)
	switch parsed.Status {
	case jwt.StatusValid:
	case jwt.StatusExpired:
		return ValidateResult{Failure: ValidateFailureExpired, Err: parsed.Err}
	default:
		return ValidateResult{Failure: ValidateFailureInvalid, Err: parsed.Err}
	}

	if parsed.Claims.Type != jwt.TypeAccess {
		return ValidateResult{Failure: ValidateFailureInvalid, Err: errors.New("not an access token")}
	}
	if parsed.Claims.Subject() == "" || parsed.Claims.FamilyID == "" {
		return ValidateResult{Failure: ValidateFailureInvalid, Err: errors.New("access token missing sub or fid")}
	}
	return ValidateResult{Claims: parsed.Claims}
}
