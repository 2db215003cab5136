package rotauth

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/MrEthical07/rotauth/credstore"
	"github.com/MrEthical07/rotauth/password"
)

type countingVerifier struct {
	inner  PasswordVerifier
	calls  atomic.Int64
	hashes chan string
}

func (v *countingVerifier) Verify(plaintext, hash string) (bool, error) {
	v.calls.Add(1)
	select {
	case v.hashes <- hash:
	default:
	}
	return v.inner.Verify(plaintext, hash)
}

func newAuthFixture(t *testing.T) (*credstore.Memory, *password.Auto) {
	t.Helper()
	hasher, err := password.New(password.AlgorithmBcrypt, 4, testConfig().Password.Argon2)
	if err != nil {
		t.Fatalf("password.New failed: %v", err)
	}
	hash, err := hasher.Hash(testPassword)
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	store := credstore.NewMemory()
	store.Put(testUser, hash)
	return store, hasher
}

func TestAuthenticatorAcceptsValidCredentials(t *testing.T) {
	store, hasher := newAuthFixture(t)
	auth, err := NewAuthenticator(store, hasher, nil)
	if err != nil {
		t.Fatalf("NewAuthenticator failed: %v", err)
	}

	rec, err := auth.Authenticate(context.Background(), testUser, testPassword)
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if rec.UserID != testUser {
		t.Fatalf("unexpected record %+v", rec)
	}
}

func TestAuthenticatorUnknownUserStillVerifies(t *testing.T) {
	store, hasher := newAuthFixture(t)
	v := &countingVerifier{inner: hasher, hashes: make(chan string, 1)}
	auth, err := NewAuthenticator(store, v, nil)
	if err != nil {
		t.Fatalf("NewAuthenticator failed: %v", err)
	}

	_, err = auth.Authenticate(context.Background(), "mallory", testPassword)
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if v.calls.Load() != 1 {
		t.Fatalf("expected one dummy verification, got %d", v.calls.Load())
	}
	if hash := <-v.hashes; hash != auth.dummyHash {
		t.Fatalf("unknown user must be checked against the dummy hash, got %q", hash)
	}
}

func TestAuthenticatorEmptyInputSkipsStore(t *testing.T) {
	_, hasher := newAuthFixture(t)
	store := failingCredentialStore{err: errors.New("must not be called")}
	auth, err := NewAuthenticator(store, hasher, nil)
	if err != nil {
		t.Fatalf("NewAuthenticator failed: %v", err)
	}

	for _, in := range [][2]string{{"", testPassword}, {testUser, ""}} {
		if _, err := auth.Authenticate(context.Background(), in[0], in[1]); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("input %q: expected ErrInvalidCredentials, got %v", in, err)
		}
	}
}

func TestAuthenticatorMalformedStoredHash(t *testing.T) {
	store, hasher := newAuthFixture(t)
	store.Put("broken", "plaintext-was-stored-here")
	auth, err := NewAuthenticator(store, hasher, nil)
	if err != nil {
		t.Fatalf("NewAuthenticator failed: %v", err)
	}

	if _, err := auth.Authenticate(context.Background(), "broken", "anything"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthenticatorStoreOutage(t *testing.T) {
	_, hasher := newAuthFixture(t)
	store := failingCredentialStore{err: errors.New("dial tcp: i/o timeout")}
	auth, err := NewAuthenticator(store, hasher, nil)
	if err != nil {
		t.Fatalf("NewAuthenticator failed: %v", err)
	}

	_, err = auth.Authenticate(context.Background(), testUser, testPassword)
	if !errors.Is(err, ErrCredentialStoreUnavailable) {
		t.Fatalf("expected ErrCredentialStoreUnavailable, got %v", err)
	}
}

func TestAuthenticatorWrappedNotFound(t *testing.T) {
	_, hasher := newAuthFixture(t)
	store := failingCredentialStore{err: fmt.Errorf("lookup alice: %w", ErrCredentialNotFound)}
	auth, err := NewAuthenticator(store, hasher, nil)
	if err != nil {
		t.Fatalf("NewAuthenticator failed: %v", err)
	}

	if _, err := auth.Authenticate(context.Background(), testUser, testPassword); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrapped not-found must be invalid credentials, got %v", err)
	}
}

type verifyOnly struct{ inner PasswordVerifier }

func (v verifyOnly) Verify(plaintext, hash string) (bool, error) { return v.inner.Verify(plaintext, hash) }

func TestAuthenticatorDummyHashWithoutHasher(t *testing.T) {
	store, hasher := newAuthFixture(t)
	auth, err := NewAuthenticator(store, verifyOnly{inner: hasher}, nil)
	if err != nil {
		t.Fatalf("NewAuthenticator failed: %v", err)
	}
	if ok, err := hasher.Verify(dummyPassword, auth.dummyHash); err != nil || !ok {
		t.Fatalf("fallback dummy hash must be a valid bcrypt hash, ok=%v err=%v", ok, err)
	}
}

func TestNewAuthenticatorRequiresDependencies(t *testing.T) {
	store, hasher := newAuthFixture(t)
	if _, err := NewAuthenticator(nil, hasher, nil); err == nil {
		t.Fatal("expected error for nil store")
	}
	if _, err := NewAuthenticator(store, nil, nil); err == nil {
		t.Fatal("expected error for nil verifier")
	}
}
