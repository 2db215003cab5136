package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/rotauth/internal/ids"
	gjwt "github.com/golang-jwt/jwt/v5"
)

// TokenType is the value of the typ claim.
type TokenType string

const (
	// TypeAccess marks short-lived, stateless access tokens.
	TypeAccess TokenType = "at"
	// TypeRefresh marks registry-tracked refresh tokens.
	TypeRefresh TokenType = "rt"
)

var (
	// ErrTokenExpired is returned for a correctly signed token whose exp has passed.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid covers bad signatures, wrong issuer, unknown typ and malformed tokens.
	ErrTokenInvalid = errors.New("invalid token")
)

// Claims is the closed claim set carried by every token.
type Claims struct {
	Type     TokenType `json:"typ"`
	FamilyID string    `json:"fid"`
	gjwt.RegisteredClaims
}

// Config defines the codec parameters.
//
// Config instances are intended to be configured during initialization and then treated as immutable.
type Config struct {
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	// Key is the HMAC key, normally produced by DeriveSigningKey.
	Key []byte
	// Now defaults to time.Now. It drives both iat/exp and expiry verification.
	Now func() time.Time
}

// Codec signs and parses access and refresh tokens with a single process-wide key.
// It is safe for concurrent use.
type Codec struct {
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	key        []byte
	now        func() time.Time
	parser     *gjwt.Parser
}

// NewCodec validates cfg and returns a ready Codec.
func NewCodec(cfg Config) (*Codec, error) {
	if cfg.Issuer == "" {
		return nil, errors.New("issuer is required")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if len(cfg.Key) < MinKeyLength {
		return nil, ErrWeakKey
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	key := make([]byte, len(cfg.Key))
	copy(key, cfg.Key)

	c := &Codec{
		issuer:     cfg.Issuer,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		key:        key,
		now:        cfg.Now,
	}
	c.parser = gjwt.NewParser(
		gjwt.WithValidMethods([]string{gjwt.SigningMethodHS256.Alg()}),
		gjwt.WithIssuer(cfg.Issuer),
		gjwt.WithExpirationRequired(),
		gjwt.WithTimeFunc(cfg.Now),
	)

	return c, nil
}

// AccessTTL returns the configured access-token lifetime.
func (c *Codec) AccessTTL() time.Duration { return c.accessTTL }

// RefreshTTL returns the configured refresh-token lifetime.
func (c *Codec) RefreshTTL() time.Duration { return c.refreshTTL }

// IssueAccess signs an access token for subject bound to familyID. The jti is random
// and is not tracked anywhere.
func (c *Codec) IssueAccess(subject, familyID string) (string, *Claims, error) {
	jti, err := ids.NewTokenID()
	if err != nil {
		return "", nil, fmt.Errorf("generate access jti: %w", err)
	}
	return c.issue(TypeAccess, subject, familyID, jti, c.accessTTL)
}

// IssueRefresh signs a refresh token carrying the supplied jti.
func (c *Codec) IssueRefresh(subject, familyID, jti string) (string, *Claims, error) {
	if jti == "" {
		return "", nil, errors.New("refresh jti is required")
	}
	return c.issue(TypeRefresh, subject, familyID, jti, c.refreshTTL)
}

func (c *Codec) issue(typ TokenType, subject, familyID, jti string, ttl time.Duration) (string, *Claims, error) {
	if subject == "" || familyID == "" {
		return "", nil, errors.New("subject and family id are required")
	}

	now := c.now()
	claims := &Claims{
		Type:     typ,
		FamilyID: familyID,
		RegisteredClaims: gjwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    c.issuer,
			ID:        jti,
			IssuedAt:  gjwt.NewNumericDate(now),
			ExpiresAt: gjwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token, err := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims).SignedString(c.key)
	if err != nil {
		return "", nil, err
	}
	return token, claims, nil
}

// Parse verifies token and classifies the outcome. See [ParseResult].
func (c *Codec) Parse(token string) ParseResult {
	if token == "" {
		return ParseResult{Status: StatusInvalid, Err: errors.New("empty token")}
	}

	claims := &Claims{}
	_, err := c.parser.ParseWithClaims(token, claims, func(t *gjwt.Token) (interface{}, error) {
		if t.Method.Alg() != gjwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return c.key, nil
	})
	if err != nil {
		if c.expiredOnly(err, claims) {
			return ParseResult{Status: StatusExpired, Claims: claims, Err: err}
		}
		return ParseResult{Status: StatusInvalid, Err: err}
	}

	if !knownType(claims.Type) {
		return ParseResult{Status: StatusInvalid, Err: fmt.Errorf("unknown token type %q", claims.Type)}
	}

	return ParseResult{Status: StatusValid, Claims: claims}
}

// expiredOnly reports whether exp is the sole reason err was produced. Signature
// failures abort before claim validation, so the remaining checks cover claim errors
// that can be joined with an expiry.
func (c *Codec) expiredOnly(err error, claims *Claims) bool {
	if !errors.Is(err, gjwt.ErrTokenExpired) {
		return false
	}
	for _, other := range []error{
		gjwt.ErrTokenMalformed,
		gjwt.ErrTokenUnverifiable,
		gjwt.ErrTokenSignatureInvalid,
		gjwt.ErrTokenInvalidIssuer,
		gjwt.ErrTokenNotValidYet,
		gjwt.ErrTokenUsedBeforeIssued,
		gjwt.ErrTokenRequiredClaimMissing,
	} {
		if errors.Is(err, other) {
			return false
		}
	}
	return claims.Issuer == c.issuer && knownType(claims.Type)
}

func knownType(t TokenType) bool {
	return t == TypeAccess || t == TypeRefresh
}
