package rotauth

import (
	"errors"
	"strings"
	"time"

	"github.com/MrEthical07/rotauth/jwt"
	"github.com/MrEthical07/rotauth/password"
	"github.com/MrEthical07/rotauth/session"
)

// Config is the complete engine configuration. Build it once at startup, validate it,
// and hand it to a Builder; the engine keeps its own copy.
type Config struct {
	JWT      JWTConfig
	Registry RegistryConfig
	Password PasswordConfig
	Security SecurityConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig controls token issuance. Secret is either standard base64 or raw text; see
// jwt.DeriveSigningKey.
type JWTConfig struct {
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Secret     string
}

/*
====================================
REGISTRY CONFIG
====================================
*/

// RegistryConfig controls the Redis session registry.
type RegistryConfig struct {
	KeyPrefix string
	// AtomicRotation replaces the read-then-write rotation with a compare-and-swap so that
	// exactly one of several concurrent refreshes of the same token succeeds.
	AtomicRotation bool
	// OperationTimeout bounds each registry call. Zero disables the bound.
	OperationTimeout time.Duration
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig selects the hash algorithm used for new hashes. Verification always
// accepts both bcrypt and argon2id hashes.
type PasswordConfig struct {
	Algorithm  string // "bcrypt" (default) or "argon2id"
	BcryptCost int
	Argon2     password.Argon2Params
}

/*
====================================
SECURITY CONFIG
====================================
*/

type SecurityConfig struct {
	// RevokeFamilyOnReuse deletes the registry entry of a family once a stale refresh
	// token of that family is presented.
	RevokeFamilyOnReuse bool
}

/*
====================================
AUDIT CONFIG
====================================
*/

type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

/*
====================================
METRICS CONFIG
====================================
*/

type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULTS
====================================
*/

// DefaultConfig returns the baseline configuration. JWT.Secret is empty and must be set.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			Issuer:     "rotauth",
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 14 * 24 * time.Hour,
		},
		Registry: RegistryConfig{
			KeyPrefix:        session.DefaultKeyPrefix,
			AtomicRotation:   true,
			OperationTimeout: 2 * time.Second,
		},
		Password: PasswordConfig{
			Algorithm:  password.AlgorithmBcrypt,
			BcryptCost: password.DefaultBcryptCost,
			Argon2:     password.DefaultArgon2Params(),
		},
		Security: SecurityConfig{
			RevokeFamilyOnReuse: false,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: false,
		},
	}
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first configuration error found.
func (c *Config) Validate() error {
	// JWT
	if strings.TrimSpace(c.JWT.Issuer) == "" {
		return errors.New("JWT Issuer must not be empty")
	}
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= 0 {
		return errors.New("JWT RefreshTTL must be > 0")
	}
	if c.JWT.AccessTTL >= c.JWT.RefreshTTL {
		return errors.New("JWT AccessTTL must be shorter than RefreshTTL")
	}
	if c.JWT.Secret == "" {
		return errors.New("JWT Secret must not be empty")
	}
	if _, err := jwt.DeriveSigningKey(c.JWT.Secret); err != nil {
		return err
	}

	// Registry
	if strings.Contains(c.Registry.KeyPrefix, ":") {
		return errors.New("Registry KeyPrefix must not contain ':'")
	}
	if c.Registry.OperationTimeout < 0 {
		return errors.New("Registry OperationTimeout must be >= 0")
	}

	// Password
	switch c.Password.Algorithm {
	case password.AlgorithmBcrypt, password.AlgorithmArgon2id:
	default:
		return errors.New("Password Algorithm must be 'bcrypt' or 'argon2id'")
	}
	if c.Password.BcryptCost < 4 || c.Password.BcryptCost > 31 {
		return errors.New("Password BcryptCost must be between 4 and 31")
	}
	// argon2id hashes stay verifiable under either primary algorithm.
	if err := c.Password.Argon2.Validate(); err != nil {
		return err
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	return nil
}

/*
====================================
LINT
====================================
*/

// LintSeverity ranks advisory findings.
type LintSeverity int

const (
	LintInfo LintSeverity = iota
	LintWarn
)

func (s LintSeverity) String() string {
	switch s {
	case LintInfo:
		return "INFO"
	case LintWarn:
		return "WARN"
	default:
		return "UNKNOWN"
	}
}

// LintWarning is an advisory finding about a configuration that validates but is
// likely unintended.
type LintWarning struct {
	Code     string
	Severity LintSeverity
	Message  string
}

// LintResult is the ordered list of findings.
type LintResult []LintWarning

// Codes returns the warning codes in order.
func (r LintResult) Codes() []string {
	codes := make([]string, 0, len(r))
	for _, w := range r {
		codes = append(codes, w.Code)
	}
	return codes
}

// BySeverity returns the findings at or above min.
func (r LintResult) BySeverity(min LintSeverity) LintResult {
	var out LintResult
	for _, w := range r {
		if w.Severity >= min {
			out = append(out, w)
		}
	}
	return out
}

// Lint returns advisory findings. It never fails; run Validate for hard errors.
func (c *Config) Lint() LintResult {
	var out LintResult
	add := func(code string, sev LintSeverity, msg string) {
		out = append(out, LintWarning{Code: code, Severity: sev, Message: msg})
	}

	if !c.Registry.AtomicRotation {
		add("rotation_not_atomic", LintWarn, "concurrent refreshes of one token may both succeed")
	}
	if !c.Security.RevokeFamilyOnReuse {
		add("reuse_keeps_family", LintInfo, "a detected refresh reuse does not revoke the family")
	}
	if c.JWT.AccessTTL > 15*time.Minute {
		add("access_ttl_long", LintWarn, "access tokens cannot be revoked and live longer than 15m")
	}
	if c.JWT.RefreshTTL > 30*24*time.Hour {
		add("refresh_ttl_long", LintWarn, "refresh TTL exceeds 30 days")
	}
	if c.Registry.OperationTimeout == 0 {
		add("registry_timeout_disabled", LintWarn, "registry calls are bounded only by the caller context")
	}
	if !c.Audit.Enabled {
		add("audit_disabled", LintInfo, "reuse detection leaves no audit trail")
	} else if c.Audit.DropIfFull {
		add("audit_may_drop", LintInfo, "audit events are dropped when the buffer is full")
	}
	if c.Password.Algorithm == password.AlgorithmBcrypt && c.Password.BcryptCost < password.DefaultBcryptCost {
		add("bcrypt_cost_low", LintWarn, "bcrypt cost below the library default")
	}
	return out
}
