package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	argon2Prefix      = "$argon2id$"
	minArgon2MemoryKB = 8 * 1024
	minArgon2Salt     = 16
	minArgon2Key      = 16
)

// Argon2Params holds the argon2id cost parameters.
type Argon2Params struct {
	Memory      uint32 // KiB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultArgon2Params returns the argon2id parameters used for newly created hashes.
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{
		Memory:      64 * 1024,
		Time:        3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// Validate rejects parameters below the supported floor.
func (p Argon2Params) Validate() error {
	switch {
	case p.Memory < minArgon2MemoryKB:
		return fmt.Errorf("argon2 memory must be >= %d KiB", minArgon2MemoryKB)
	case p.Time < 1:
		return fmt.Errorf("argon2 time must be >= 1")
	case p.Parallelism < 1:
		return fmt.Errorf("argon2 parallelism must be >= 1")
	case p.SaltLength < minArgon2Salt:
		return fmt.Errorf("argon2 salt length must be >= %d", minArgon2Salt)
	case p.KeyLength < minArgon2Key:
		return fmt.Errorf("argon2 key length must be >= %d", minArgon2Key)
	}
	return nil
}

// Argon2 hashes and verifies argon2id PHC strings:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
type Argon2 struct {
	params Argon2Params
}

// NewArgon2 returns an Argon2 hasher using params for new hashes. Verification always
// uses the parameters encoded in the stored hash.
func NewArgon2(params Argon2Params) (*Argon2, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Argon2{params: params}, nil
}

// Hash returns a PHC-encoded argon2id hash of plaintext with a fresh random salt.
func (a *Argon2) Hash(plaintext string) (string, error) {
	salt := make([]byte, a.params.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}

	key := argon2.IDKey([]byte(plaintext), salt, a.params.Time, a.params.Memory, a.params.Parallelism, a.params.KeyLength)

	return fmt.Sprintf(
		"%sv=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2Prefix,
		argon2.Version,
		a.params.Memory,
		a.params.Time,
		a.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether plaintext matches encoded. A structurally invalid hash yields
// ErrMalformedHash.
func (a *Argon2) Verify(plaintext, encoded string) (bool, error) {
	stored, err := decodeArgon2(encoded)
	if err != nil {
		return false, err
	}

	computed := argon2.IDKey(
		[]byte(plaintext),
		stored.salt,
		stored.params.Time,
		stored.params.Memory,
		stored.params.Parallelism,
		uint32(len(stored.key)),
	)
	return subtle.ConstantTimeCompare(computed, stored.key) == 1, nil
}

// NeedsUpgrade reports whether encoded was produced with weaker parameters than the
// hasher's current ones.
func (a *Argon2) NeedsUpgrade(encoded string) (bool, error) {
	stored, err := decodeArgon2(encoded)
	if err != nil {
		return false, err
	}
	p := stored.params
	return p.Memory < a.params.Memory ||
		p.Time < a.params.Time ||
		p.Parallelism < a.params.Parallelism ||
		uint32(len(stored.key)) != a.params.KeyLength, nil
}

type argon2Hash struct {
	params Argon2Params
	salt   []byte
	key    []byte
}

func decodeArgon2(encoded string) (*argon2Hash, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return nil, fmt.Errorf("%w: not an argon2id PHC string", ErrMalformedHash)
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return nil, fmt.Errorf("%w: unsupported argon2 version", ErrMalformedHash)
	}

	var h argon2Hash
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &h.params.Memory, &h.params.Time, &h.params.Parallelism); err != nil {
		return nil, fmt.Errorf("%w: invalid argon2 parameters", ErrMalformedHash)
	}
	if h.params.Memory < minArgon2MemoryKB || h.params.Time < 1 || h.params.Parallelism < 1 {
		return nil, fmt.Errorf("%w: argon2 parameters out of range", ErrMalformedHash)
	}

	var err error
	if h.salt, err = decodeB64(parts[4]); err != nil || len(h.salt) < minArgon2Salt {
		return nil, fmt.Errorf("%w: invalid argon2 salt", ErrMalformedHash)
	}
	if h.key, err = decodeB64(parts[5]); err != nil || len(h.key) < minArgon2Key {
		return nil, fmt.Errorf("%w: invalid argon2 key", ErrMalformedHash)
	}
	h.params.SaltLength = uint32(len(h.salt))
	h.params.KeyLength = uint32(len(h.key))

	return &h, nil
}

// decodeB64 accepts both the unpadded PHC form and padded standard base64.
func decodeB64(s string) ([]byte, error) {
	if strings.HasSuffix(s, "=") {
		return base64.StdEncoding.DecodeString(s)
	}
	return base64.RawStdEncoding.DecodeString(s)
}
