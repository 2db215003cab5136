package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/MrEthical07/rotauth"
)

const (
	// PlatformHeader selects how the refresh token is delivered.
	PlatformHeader = "X-Client-Platform"
	// RefreshCookieName is the cookie carrying the refresh token for web clients.
	RefreshCookieName = "refreshToken"

	platformWeb = "web"
	platformApp = "app"

	maxBodyBytes = 1 << 16
)

// Options configures the auth handlers.
type Options struct {
	// RefreshTTL is the refresh cookie Max-Age. Zero uses Engine.RefreshTTL.
	RefreshTTL time.Duration
	// SecureCookie sets the Secure attribute on the refresh cookie.
	SecureCookie bool
	// TrustProxyHeaders takes the client IP recorded in audit events from the first
	// X-Forwarded-For entry. Enable it only behind a proxy that overwrites the header.
	TrustProxyHeaders bool
	Logger            *slog.Logger
}

// Handler serves the /api/auth routes.
type Handler struct {
	engine     *rotauth.Engine
	refreshTTL time.Duration
	secure     bool
	trustProxy bool
	logger     *slog.Logger
}

// New returns a Handler for engine.
func New(engine *rotauth.Engine, opts Options) *Handler {
	ttl := opts.RefreshTTL
	if ttl <= 0 {
		ttl = engine.RefreshTTL()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Handler{
		engine:     engine,
		refreshTTL: ttl,
		secure:     opts.SecureCookie,
		trustProxy: opts.TrustProxyHeaders,
		logger:     logger,
	}
}

// Register mounts the login, refresh and logout routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.Handle("POST /api/auth/login", h.withPlatform(h.login))
	mux.Handle("POST /api/auth/refresh", h.withPlatform(h.refresh))
	mux.Handle("POST /api/auth/logout", h.withPlatform(h.logout))
}

type platformHandler func(w http.ResponseWriter, r *http.Request, platform string)

func (h *Handler) withPlatform(next platformHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.Header.Get(PlatformHeader))
		if raw == "" {
			writeError(w, errMissingPlatform)
			return
		}
		platform := strings.ToLower(raw)
		if platform != platformWeb && platform != platformApp {
			writeError(w, errInvalidPlatform)
			return
		}

		ctx := rotauth.WithClientIP(r.Context(), clientIP(r, h.trustProxy))
		next(w, r.WithContext(ctx), platform)
	})
}

type loginRequest struct {
	UserID   string `json:"userId"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type tokenData struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request, platform string) {
	var req loginRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeError(w, errInvalidRequest)
		return
	}

	pair, err := h.engine.Login(r.Context(), req.UserID, req.Password)
	if err != nil {
		h.fail(w, r, "login", err)
		return
	}
	h.deliver(w, platform, pair)
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request, platform string) {
	var req refreshRequest
	if err := decodeBody(r, &req, true); err != nil {
		writeError(w, errInvalidRequest)
		return
	}

	fromBody := strings.TrimSpace(req.RefreshToken)
	fromCookie := ""
	if c, err := r.Cookie(RefreshCookieName); err == nil {
		fromCookie = strings.TrimSpace(c.Value)
	}

	token := firstNonEmpty(fromBody, fromCookie)
	if platform == platformWeb {
		token = firstNonEmpty(fromCookie, fromBody)
	}
	if token == "" {
		writeError(w, errTokenMissing)
		return
	}

	pair, err := h.engine.Refresh(r.Context(), token)
	if err != nil {
		if platform == platformWeb && errors.Is(err, rotauth.ErrRefreshReuse) {
			h.clearCookie(w)
		}
		h.fail(w, r, "refresh", err)
		return
	}
	h.deliver(w, platform, pair)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request, platform string) {
	authz := strings.TrimSpace(r.Header.Get("Authorization"))
	if authz == "" {
		writeError(w, errTokenMissing)
		return
	}

	if err := h.engine.Logout(r.Context(), authz); err != nil {
		h.fail(w, r, "logout", err)
		return
	}

	if platform == platformWeb {
		h.clearCookie(w)
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Status: http.StatusOK, Message: "logged_out"})
}

func (h *Handler) deliver(w http.ResponseWriter, platform string, pair rotauth.TokenPair) {
	data := tokenData{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken}
	if platform == platformWeb {
		h.setCookie(w, pair.RefreshToken, int(h.refreshTTL/time.Second))
		data.RefreshToken = ""
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, envelope{Success: true, Status: http.StatusOK, Data: data})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	apiErr := mapError(err)
	if apiErr.status >= http.StatusInternalServerError {
		h.logger.Error("rotauth: auth request failed", "op", op, "path", r.URL.Path, "error", err)
	}
	writeError(w, apiErr)
}

func (h *Handler) setCookie(w http.ResponseWriter, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// clearCookie expires the refresh cookie. MaxAge -1 is written as Max-Age=0.
func (h *Handler) clearCookie(w http.ResponseWriter) {
	h.setCookie(w, "", -1)
}

func decodeBody(r *http.Request, v any, optional bool) error {
	if r.Body == nil {
		if optional {
			return nil
		}
		return io.EOF
	}
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
	if optional && errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func clientIP(r *http.Request, trustProxy bool) string {
	if fwd := r.Header.Get("X-Forwarded-For"); trustProxy && fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
