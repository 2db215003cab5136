package jwt

import (
	"fmt"
	"time"
)

// Status classifies a parse outcome.
type Status uint8

const (
	// StatusInvalid means no claims can be trusted.
	StatusInvalid Status = iota
	// StatusValid means signature, issuer, typ and expiry all check out.
	StatusValid
	// StatusExpired means the token is authentic but past exp. Claims are populated.
	StatusExpired
)

func (s Status) String() string {
	switch s {
	case StatusValid:
		return "valid"
	case StatusExpired:
		return "expired"
	default:
		return "invalid"
	}
}

// ParseResult is the tagged result of [Codec.Parse]: Valid(claims), Expired(claims) or
// Invalid. Claims is nil only for StatusInvalid.
type ParseResult struct {
	Status Status
	Claims *Claims
	// Err is the underlying verification error, kept for logging.
	Err error
}

// Error maps the result onto ErrTokenExpired / ErrTokenInvalid, or nil when valid.
func (r ParseResult) Error() error {
	switch r.Status {
	case StatusValid:
		return nil
	case StatusExpired:
		return ErrTokenExpired
	default:
		if r.Err != nil {
			return fmt.Errorf("%w: %v", ErrTokenInvalid, r.Err)
		}
		return ErrTokenInvalid
	}
}

// Subject returns the sub claim.
func (c *Claims) Subject() string {
	if c == nil {
		return ""
	}
	return c.RegisteredClaims.Subject
}

// TokenID returns the jti claim.
func (c *Claims) TokenID() string {
	if c == nil {
		return ""
	}
	return c.ID
}

// IssuedAtTime returns iat, or the zero time when absent.
func (c *Claims) IssuedAtTime() time.Time {
	if c == nil || c.IssuedAt == nil {
		return time.Time{}
	}
	return c.IssuedAt.Time
}

// ExpiresAtTime returns exp, or the zero time when absent.
func (c *Claims) ExpiresAtTime() time.Time {
	if c == nil || c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}
