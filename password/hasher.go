package password

import (
	"errors"
	"strings"
)

var (
	// ErrMalformedHash is returned when a stored hash cannot be decoded.
	ErrMalformedHash = errors.New("malformed password hash")
	// ErrUnsupportedHash is returned when no hasher recognizes the stored hash format.
	ErrUnsupportedHash = errors.New("unsupported password hash")
)

// Algorithm names accepted by [New].
const (
	AlgorithmBcrypt   = "bcrypt"
	AlgorithmArgon2id = "argon2id"
)

// Hasher produces and checks password hashes.
type Hasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, encoded string) (bool, error)
}

// Auto verifies either format by inspecting the stored hash prefix and hashes new
// passwords with Primary. Credential tables written by older deployments hold bcrypt;
// Auto keeps those verifiable after switching Primary to argon2id.
type Auto struct {
	Primary Hasher
	Bcrypt  *Bcrypt
	Argon2  *Argon2
}

// New builds an [Auto] whose primary algorithm is name.
func New(name string, bcryptCost int, argon Argon2Params) (*Auto, error) {
	b, err := NewBcrypt(bcryptCost)
	if err != nil {
		return nil, err
	}
	a, err := NewArgon2(argon)
	if err != nil {
		return nil, err
	}

	auto := &Auto{Bcrypt: b, Argon2: a}
	switch name {
	case "", AlgorithmBcrypt:
		auto.Primary = b
	case AlgorithmArgon2id:
		auto.Primary = a
	default:
		return nil, errors.New("unknown password algorithm " + name)
	}
	return auto, nil
}

// Hash hashes plaintext with the primary algorithm.
func (h *Auto) Hash(plaintext string) (string, error) {
	return h.Primary.Hash(plaintext)
}

// Verify dispatches on the stored hash prefix.
func (h *Auto) Verify(plaintext, encoded string) (bool, error) {
	switch {
	case strings.HasPrefix(encoded, argon2Prefix):
		return h.Argon2.Verify(plaintext, encoded)
	case isBcrypt(encoded):
		return h.Bcrypt.Verify(plaintext, encoded)
	default:
		return false, ErrUnsupportedHash
	}
}

func isBcrypt(encoded string) bool {
	for _, p := range []string{"$2a$", "$2b$", "$2y$"} {
		if strings.HasPrefix(encoded, p) {
			return true
		}
	}
	return false
}
