package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/MrEthical07/rotauth"
)

// DefaultSkipPrefix is the path prefix of the auth routes, which authenticate
// themselves.
const DefaultSkipPrefix = "/api/auth/"

type authResultContextKey struct{}

// AuthResultFromContext returns the result stored by Guard for the current request.
func AuthResultFromContext(ctx context.Context) (*rotauth.AuthResult, bool) {
	res, ok := ctx.Value(authResultContextKey{}).(*rotauth.AuthResult)
	return res, ok
}

type guardOptions struct {
	skipPrefixes []string
}

// Option configures Guard.
type Option func(*guardOptions)

// WithSkipPrefix replaces the default skip prefix. Requests whose path starts with any
// of prefixes pass through unauthenticated. No prefix disables skipping.
func WithSkipPrefix(prefixes ...string) Option {
	return func(o *guardOptions) {
		o.skipPrefixes = prefixes
	}
}

// Guard authorizes requests with an access token from the Authorization header. On
// success the AuthResult is stored in the request context. OPTIONS requests and paths
// under the skip prefix pass through.
func Guard(engine *rotauth.Engine, opts ...Option) func(http.Handler) http.Handler {
	o := guardOptions{skipPrefixes: []string{DefaultSkipPrefix}}
	for _, opt := range opts {
		opt(&o)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions || o.skip(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}
			if engine == nil {
				reject(w, rotauth.ErrEngineNotReady)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				reject(w, rotauth.ErrTokenMissing)
				return
			}

			res, err := engine.Validate(r.Context(), token)
			if err != nil {
				reject(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), authResultContextKey{}, res)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (o guardOptions) skip(path string) bool {
	for _, p := range o.skipPrefixes {
		if p != "" && strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

func bearerToken(value string) (string, bool) {
	const bearer = "bearer "
	value = strings.TrimSpace(value)
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}

type errorBody struct {
	Success bool   `json:"success"`
	Status  int    `json:"status"`
	Message string `json:"message"`
}

func reject(w http.ResponseWriter, err error) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Type", "application/json")

	if errors.Is(err, rotauth.ErrEngineNotReady) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(errorBody{Status: http.StatusServiceUnavailable, Message: "service_unavailable"})
		return
	}

	message := "invalid_token"
	challenge := `Bearer error="invalid_token"`
	switch {
	case errors.Is(err, rotauth.ErrTokenExpired):
		message = "token_expired"
		challenge = `Bearer error="invalid_token", error_description="token expired"`
	case errors.Is(err, rotauth.ErrTokenMissing):
		message = "token_missing"
	}

	w.Header().Set("WWW-Authenticate", challenge)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(errorBody{Status: http.StatusUnauthorized, Message: message})
}
