package envconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const envSecret = "0123456789abcdef0123456789abcdef-env"

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", envSecret)

	cfg, err := Load(Options{})
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 15, cfg.AccessTTL)
	assert.Equal(t, 14, cfg.RefreshTTL)
	assert.Equal(t, "RT", cfg.KeyPrefix)
	assert.True(t, cfg.AtomicRotation)
	assert.Equal(t, 2*time.Second, cfg.RegistryTimeout)
	assert.True(t, cfg.CookieSecure)
	assert.False(t, cfg.TrustProxyHeaders)
	assert.Equal(t, "info", cfg.LogLevel)

	engine := cfg.Engine()
	assert.Equal(t, 15*time.Minute, engine.JWT.AccessTTL)
	assert.Equal(t, 14*24*time.Hour, engine.JWT.RefreshTTL)
	assert.Equal(t, envSecret, engine.JWT.Secret)
	assert.Equal(t, "bcrypt", engine.Password.Algorithm)
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := Load(Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", envSecret)
	t.Setenv("JWT_ACCESS_TTL_MINUTES", "5")
	t.Setenv("JWT_REFRESH_TTL_DAYS", "30")
	t.Setenv("REGISTRY_ATOMIC_ROTATION", "false")
	t.Setenv("REGISTRY_TIMEOUT", "750ms")
	t.Setenv("REVOKE_FAMILY_ON_REUSE", "true")
	t.Setenv("PASSWORD_ALGORITHM", "ARGON2ID")
	t.Setenv("REDIS_DB", "3")

	cfg, err := Load(Options{})
	require.NoError(t, err)

	engine := cfg.Engine()
	assert.Equal(t, 5*time.Minute, engine.JWT.AccessTTL)
	assert.Equal(t, 30*24*time.Hour, engine.JWT.RefreshTTL)
	assert.False(t, engine.Registry.AtomicRotation)
	assert.Equal(t, 750*time.Millisecond, engine.Registry.OperationTimeout)
	assert.True(t, engine.Security.RevokeFamilyOnReuse)
	assert.Equal(t, "argon2id", engine.Password.Algorithm)

	opts := cfg.RedisOptions()
	assert.Equal(t, 3, opts.DB)
	assert.True(t, opts.ContextTimeoutEnabled)
}

func TestLoadEnvFile(t *testing.T) {
	path := writeFile(t, ".env", "JWT_SECRET="+envSecret+"\nHTTP_ADDR=:9090\nJWT_ACCESS_TTL_MINUTES=10\n")
	t.Setenv("JWT_ACCESS_TTL_MINUTES", "7")

	cfg, err := Load(Options{EnvFile: path})
	require.NoError(t, err)
	assert.Equal(t, envSecret, cfg.JWTSecret)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	// Environment wins over the file.
	assert.Equal(t, 7, cfg.AccessTTL)
}

func TestLoadMissingEnvFileIgnored(t *testing.T) {
	t.Setenv("JWT_SECRET", envSecret)

	_, err := Load(Options{EnvFile: filepath.Join(t.TempDir(), ".env")})
	require.NoError(t, err)
}

func TestLoadConfigFile(t *testing.T) {
	path := writeFile(t, "rotauth.yaml", `
jwt_secret: "`+envSecret+`"
jwt_issuer: auth.example.com
metrics_addr: ":9100"
log_format: json
`)

	cfg, err := Load(Options{ConfigFile: path})
	require.NoError(t, err)
	assert.Equal(t, "auth.example.com", cfg.Engine().JWT.Issuer)
	assert.Equal(t, ":9100", cfg.MetricsAddr)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoadConfigFileMustExist(t *testing.T) {
	t.Setenv("JWT_SECRET", envSecret)

	_, err := Load(Options{ConfigFile: filepath.Join(t.TempDir(), "missing.yaml")})
	require.Error(t, err)
}

func TestLoadRejectsInvalidEngineConfig(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "access not shorter than refresh", env: map[string]string{"JWT_ACCESS_TTL_MINUTES": "20160"}},
		{name: "zero refresh", env: map[string]string{"JWT_REFRESH_TTL_DAYS": "0"}},
		{name: "short secret", env: map[string]string{"JWT_SECRET": "short"}},
		{name: "prefix with colon", env: map[string]string{"REGISTRY_KEY_PREFIX": "RT:x"}},
		{name: "bcrypt cost", env: map[string]string{"BCRYPT_COST": "3"}},
		{name: "unknown algorithm", env: map[string]string{"PASSWORD_ALGORITHM": "md5"}},
		{name: "log format", env: map[string]string{"LOG_FORMAT": "xml"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", envSecret)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load(Options{})
			assert.Error(t, err)
		})
	}
}
