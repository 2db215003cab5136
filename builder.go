package rotauth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	internalaudit "github.com/MrEthical07/rotauth/internal/audit"
	"github.com/MrEthical07/rotauth/internal/flows"
	"github.com/MrEthical07/rotauth/internal/ids"
	"github.com/MrEthical07/rotauth/jwt"
	"github.com/MrEthical07/rotauth/password"
	"github.com/MrEthical07/rotauth/session"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an Engine. Configure it during initialization and call Build once.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	credentials CredentialStore
	verifier    PasswordVerifier
	auditSink   AuditSink
	logger      *slog.Logger
	now         func() time.Time

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithRedis sets the client backing the session registry. Single-node, cluster, ring and
// failover clients are accepted. When Config.Registry.OperationTimeout is positive the
// client must be built with ContextTimeoutEnabled, otherwise go-redis ignores the
// deadline on socket I/O and Build fails.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

func (b *Builder) WithCredentialStore(store CredentialStore) *Builder {
	b.credentials = store
	return b
}

// WithPasswordVerifier overrides the verifier derived from Config.Password.
func (b *Builder) WithPasswordVerifier(v PasswordVerifier) *Builder {
	b.verifier = v
	return b
}

// WithAuditSink sets the destination of audit events. It has no effect unless
// Config.Audit.Enabled is true.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the logger used for operational anomalies. The default discards.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock sets the time source used for token issuance and expiry checks.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the engine. A Builder can be used once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := b.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if b.credentials == nil {
		return nil, errors.New("credential store required")
	}
	if cfg.Registry.OperationTimeout > 0 && !honorsContextDeadlines(b.redis) {
		return nil, errContextTimeoutDisabled
	}

	logger := b.logger
	if logger == nil {
		logger = discardLogger()
	}
	now := b.now
	if now == nil {
		now = time.Now
	}

	// -------- TOKEN CODEC --------
	key, err := jwt.DeriveSigningKey(cfg.JWT.Secret)
	if err != nil {
		return nil, err
	}
	codec, err := jwt.NewCodec(jwt.Config{
		Issuer:     cfg.JWT.Issuer,
		AccessTTL:  cfg.JWT.AccessTTL,
		RefreshTTL: cfg.JWT.RefreshTTL,
		Key:        key,
		Now:        now,
	})
	if err != nil {
		return nil, err
	}

	// -------- CREDENTIALS --------
	hasher, err := password.New(cfg.Password.Algorithm, cfg.Password.BcryptCost, cfg.Password.Argon2)
	if err != nil {
		return nil, err
	}
	verifier := b.verifier
	if verifier == nil {
		verifier = hasher
	}
	authenticator, err := NewAuthenticator(b.credentials, verifier, logger)
	if err != nil {
		return nil, err
	}

	// -------- SESSION REGISTRY --------
	store := session.NewStore(b.redis, cfg.Registry.KeyPrefix)
	registry := &timedRegistry{store: store, timeout: cfg.Registry.OperationTimeout}

	e := &Engine{
		config:        cfg,
		codec:         codec,
		registry:      registry,
		authenticator: authenticator,
		hasher:        hasher,
		metrics:       NewMetrics(cfg.Metrics),
		logger:        logger,
		now:           now,
	}

	// -------- AUDIT --------
	e.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)

	// -------- FLOWS --------
	issueAccess := func(subject, familyID string) (string, error) {
		token, _, err := codec.IssueAccess(subject, familyID)
		return token, err
	}
	issueRefresh := func(subject, familyID, jti string) (string, error) {
		token, _, err := codec.IssueRefresh(subject, familyID, jti)
		return token, err
	}

	e.flows = flows.Deps{
		Login: flows.LoginDeps{
			Authenticate: func(ctx context.Context, userID, secret string) (string, error) {
				rec, err := authenticator.Authenticate(ctx, userID, secret)
				if err != nil {
					return "", err
				}
				return rec.UserID, nil
			},
			NewFamilyID:  ids.NewFamilyID,
			NewTokenID:   ids.NewTokenID,
			IssueAccess:  issueAccess,
			IssueRefresh: issueRefresh,
			RefreshTTL:   cfg.JWT.RefreshTTL,
			Registry:     registry,
		},
		Refresh: flows.RefreshDeps{
			Parse:               codec.Parse,
			NewTokenID:          ids.NewTokenID,
			IssueAccess:         issueAccess,
			IssueRefresh:        issueRefresh,
			RefreshTTL:          cfg.JWT.RefreshTTL,
			AtomicRotation:      cfg.Registry.AtomicRotation,
			RevokeFamilyOnReuse: cfg.Security.RevokeFamilyOnReuse,
			Registry:            registry,
			Warn:                logger.Warn,
		},
		Logout: flows.LogoutDeps{
			Parse:    codec.Parse,
			Registry: registry,
		},
		Validate: flows.ValidateDeps{
			Parse: codec.Parse,
		},
	}

	b.built = true
	return e, nil
}

var errContextTimeoutDisabled = errors.New("redis client must set ContextTimeoutEnabled when Registry.OperationTimeout > 0")

// honorsContextDeadlines reports whether client applies context deadlines to socket I/O.
// Clients of unknown concrete type are trusted.
func honorsContextDeadlines(client redis.UniversalClient) bool {
	switch c := client.(type) {
	case *redis.Client:
		return c.Options().ContextTimeoutEnabled
	case *redis.ClusterClient:
		return c.Options().ContextTimeoutEnabled
	case *redis.Ring:
		return c.Options().ContextTimeoutEnabled
	default:
		return true
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
