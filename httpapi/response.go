package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/MrEthical07/rotauth"
)

type envelope struct {
	Success bool   `json:"success"`
	Status  int    `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

type apiError struct {
	status  int
	message string
}

var (
	errMissingPlatform     = apiError{http.StatusBadRequest, "missing_client_platform_header"}
	errInvalidPlatform     = apiError{http.StatusBadRequest, "invalid_client_platform"}
	errInvalidRequest      = apiError{http.StatusBadRequest, "invalid_request"}
	errInvalidCredentials  = apiError{http.StatusUnauthorized, "invalid_credentials"}
	errTokenMissing        = apiError{http.StatusUnauthorized, "token_missing"}
	errTokenExpired        = apiError{http.StatusUnauthorized, "token_expired"}
	errInvalidToken        = apiError{http.StatusUnauthorized, "invalid_token"}
	errServiceUnavailable  = apiError{http.StatusServiceUnavailable, "service_unavailable"}
	errInternalServerError = apiError{http.StatusInternalServerError, "internal_server_error"}
)

func mapError(err error) apiError {
	switch {
	case errors.Is(err, rotauth.ErrInvalidCredentials):
		return errInvalidCredentials
	case errors.Is(err, rotauth.ErrTokenMissing):
		return errTokenMissing
	case errors.Is(err, rotauth.ErrTokenExpired):
		return errTokenExpired
	case errors.Is(err, rotauth.ErrTokenInvalid):
		return errInvalidToken
	case errors.Is(err, rotauth.ErrRegistryUnavailable),
		errors.Is(err, rotauth.ErrCredentialStoreUnavailable),
		errors.Is(err, rotauth.ErrEngineNotReady):
		return errServiceUnavailable
	default:
		return errInternalServerError
	}
}

func writeError(w http.ResponseWriter, e apiError) {
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, e.status, envelope{Status: e.status, Message: e.message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
