package jwt

import (
	"encoding/base64"
	"errors"
)

// MinKeyLength is the minimum HS256 key size in bytes.
const MinKeyLength = 32

var (
	// ErrEmptySecret is returned when no signing secret is configured.
	ErrEmptySecret = errors.New("signing secret is empty")
	// ErrWeakKey is returned when the normalized key is shorter than MinKeyLength.
	ErrWeakKey = errors.New("signing key must be at least 32 bytes")
)

// DeriveSigningKey normalizes a configured secret into the HMAC key.
//
// A secret that decodes cleanly as standard base64 is used in decoded form; any other
// secret is used as its raw bytes. The result is computed once at startup and handed to
// [NewCodec].
func DeriveSigningKey(secret string) ([]byte, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}

	key, err := base64.StdEncoding.DecodeString(secret)
	if err != nil {
		key = []byte(secret)
	}
	if len(key) < MinKeyLength {
		return nil, ErrWeakKey
	}

	return key, nil
}
