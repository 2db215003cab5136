package rotauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	internalaudit "github.com/MrEthical07/rotauth/internal/audit"
	"github.com/MrEthical07/rotauth/internal/flows"
	"github.com/MrEthical07/rotauth/jwt"
	"github.com/MrEthical07/rotauth/password"
	"github.com/MrEthical07/rotauth/session"
)

// Engine issues, rotates, revokes and validates tokens. It is safe for concurrent use
// once returned by [Builder.Build].
type Engine struct {
	config        Config
	codec         *jwt.Codec
	registry      *timedRegistry
	authenticator *Authenticator
	hasher        *password.Auto
	flows         flows.Deps
	audit         *internalaudit.Dispatcher
	metrics       *Metrics
	logger        *slog.Logger
	now           func() time.Time
}

// Close flushes pending audit events and stops the dispatcher. The Redis client is
// owned by the caller and stays open.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns the number of audit events discarded under backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a copy of all metrics. The maps are empty when metrics are
// disabled.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID]HistogramSnapshot{},
		}
	}
	return e.metrics.Snapshot()
}

// AccessTTL returns the configured access token lifetime.
func (e *Engine) AccessTTL() time.Duration {
	if e == nil {
		return 0
	}
	return e.config.JWT.AccessTTL
}

// RefreshTTL returns the configured refresh token lifetime, which is also the lifetime
// of registry entries.
func (e *Engine) RefreshTTL() time.Duration {
	if e == nil {
		return 0
	}
	return e.config.JWT.RefreshTTL
}

// HashPassword hashes plaintext with the configured primary algorithm, for seeding a
// credential store.
func (e *Engine) HashPassword(plaintext string) (string, error) {
	if e == nil || e.hasher == nil {
		return "", ErrEngineNotReady
	}
	return e.hasher.Hash(plaintext)
}

// Ping checks that the session registry is reachable.
func (e *Engine) Ping(ctx context.Context) error {
	if e == nil || e.registry == nil {
		return ErrEngineNotReady
	}
	if err := e.registry.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrRegistryUnavailable, err)
	}
	return nil
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) ready() bool {
	return e != nil && e.codec != nil && e.registry != nil && e.authenticator != nil
}

// Login verifies the credentials, starts a new token family and returns its first
// token pair. The family is registered before the tokens are returned.
func (e *Engine) Login(ctx context.Context, userID, password string) (TokenPair, error) {
	if !e.ready() {
		return TokenPair{}, ErrEngineNotReady
	}

	res := flows.RunLogin(ctx, userID, password, e.flows.Login)
	if res.Failure == flows.LoginFailureNone {
		e.metricInc(MetricLoginSuccess)
		e.metricInc(MetricSessionCreated)
		e.emitAudit(ctx, AuditLoginSuccess, true, res.UserID, res.FamilyID, nil, nil)
		return TokenPair{AccessToken: res.AccessToken, RefreshToken: res.RefreshToken}, nil
	}

	var err error
	switch res.Failure {
	case flows.LoginFailureCredentials:
		err = res.Err
		if !errors.Is(err, ErrInvalidCredentials) && !errors.Is(err, ErrCredentialStoreUnavailable) {
			err = ErrInvalidCredentials
		}
		if errors.Is(err, ErrCredentialStoreUnavailable) {
			e.logger.Error("rotauth: credential store unavailable", "error", res.Err)
		}
	case flows.LoginFailureRegistry:
		err = e.registryError(res.Err)
		e.logger.Error("rotauth: registry write failed during login", "user_id", res.UserID, "error", res.Err)
	default:
		err = fmt.Errorf("rotauth: issue tokens: %w", res.Err)
	}

	e.metricInc(MetricLoginFailure)
	e.emitAudit(ctx, AuditLoginFailure, false, userID, res.FamilyID, err, nil)
	return TokenPair{}, err
}

// Refresh rotates the family of refreshToken and returns a new pair. A token that is no
// longer the family's current one is rejected as reuse; see [ErrRefreshReuse].
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	if !e.ready() {
		return TokenPair{}, ErrEngineNotReady
	}

	if e.metrics.LatencyEnabled() {
		start := time.Now()
		defer func() { e.metrics.Observe(MetricRefreshLatency, time.Since(start)) }()
	}

	res := flows.RunRefresh(ctx, refreshToken, e.flows.Refresh)
	if res.Failure == flows.RefreshFailureNone {
		e.metricInc(MetricRefreshSuccess)
		e.emitAudit(ctx, AuditRefreshSuccess, true, res.UserID, res.FamilyID, nil, nil)
		return TokenPair{AccessToken: res.AccessToken, RefreshToken: res.RefreshToken}, nil
	}

	var err error
	event := AuditRefreshInvalid
	var metadata func() map[string]string
	switch res.Failure {
	case flows.RefreshFailureMissing:
		err = ErrTokenMissing
	case flows.RefreshFailureExpired:
		err = ErrTokenExpired
	case flows.RefreshFailureInvalid, flows.RefreshFailureFamilyNotFound:
		err = ErrTokenInvalid
	case flows.RefreshFailureReuse, flows.RefreshFailureRotationLost:
		err = errReuseDetected
		event = AuditRefreshReuseDetected
		e.metricInc(MetricRefreshReuseDetected)
		if res.FamilyRevoked {
			e.metricInc(MetricFamilyRevokedOnReuse)
			e.logger.Warn("rotauth: family revoked after refresh reuse", "user_id", res.UserID, "family_id", res.FamilyID)
		}
		lost := res.Failure == flows.RefreshFailureRotationLost
		revoked := res.FamilyRevoked
		metadata = func() map[string]string {
			return map[string]string{
				"rotation_race":  strconv.FormatBool(lost),
				"family_revoked": strconv.FormatBool(revoked),
			}
		}
	case flows.RefreshFailureRegistry:
		err = e.registryError(res.Err)
		e.logger.Error("rotauth: registry unavailable during refresh", "user_id", res.UserID, "family_id", res.FamilyID, "error", res.Err)
	default:
		err = fmt.Errorf("rotauth: issue tokens: %w", res.Err)
	}

	e.metricInc(MetricRefreshFailure)
	if res.Failure != flows.RefreshFailureMissing {
		e.emitAudit(ctx, event, false, res.UserID, res.FamilyID, err, metadata)
	}
	return TokenPair{}, err
}

// Logout revokes the family named by the token in bearerOrRaw, which may be an
// Authorization header value or a raw token of either type. Expired tokens are
// accepted. Logging out an already revoked family succeeds.
func (e *Engine) Logout(ctx context.Context, bearerOrRaw string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}

	token, err := ParseBearer(bearerOrRaw)
	if err != nil {
		return err
	}

	res := flows.RunLogout(ctx, token, e.flows.Logout)
	switch res.Failure {
	case flows.LogoutFailureNone:
		e.metricInc(MetricLogout)
		expired := res.Expired
		e.emitAudit(ctx, AuditLogout, true, res.UserID, res.FamilyID, nil, func() map[string]string {
			return map[string]string{"token_expired": strconv.FormatBool(expired)}
		})
		return nil
	case flows.LogoutFailureMissing:
		return ErrTokenMissing
	case flows.LogoutFailureRegistry:
		err = e.registryError(res.Err)
		e.logger.Error("rotauth: registry unavailable during logout", "user_id", res.UserID, "family_id", res.FamilyID, "error", res.Err)
	default:
		err = ErrTokenInvalid
	}

	e.emitAudit(ctx, AuditLogout, false, res.UserID, res.FamilyID, err, nil)
	return err
}

// Validate checks an access token without contacting the registry. Access tokens stay
// valid until exp even after their family was revoked.
func (e *Engine) Validate(ctx context.Context, accessToken string) (*AuthResult, error) {
	if e == nil || e.codec == nil {
		return nil, ErrEngineNotReady
	}

	if e.metrics.LatencyEnabled() {
		start := time.Now()
		defer func() { e.metrics.Observe(MetricValidateLatency, time.Since(start)) }()
	}

	res := flows.RunValidate(accessToken, e.flows.Validate)
	switch res.Failure {
	case flows.ValidateFailureNone:
	case flows.ValidateFailureMissing:
		return nil, ErrTokenMissing
	case flows.ValidateFailureExpired:
		return nil, ErrTokenExpired
	default:
		return nil, ErrTokenInvalid
	}

	claims := res.Claims
	return &AuthResult{
		UserID:    claims.Subject(),
		FamilyID:  claims.FamilyID,
		TokenID:   claims.TokenID(),
		IssuedAt:  claims.IssuedAtTime(),
		ExpiresAt: claims.ExpiresAtTime(),
	}, nil
}

// registryError maps a registry failure onto the public sentinels. A malformed key can
// only come from token contents and is reported as an invalid token.
func (e *Engine) registryError(err error) error {
	if errors.Is(err, session.ErrInvalidKey) {
		return ErrTokenInvalid
	}
	e.metricInc(MetricRegistryUnavailable)
	return fmt.Errorf("%w: %v", ErrRegistryUnavailable, err)
}
