package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/voterstack/gateway/internal/domain"
)

// errorBody is the uniform JSON envelope for every gateway failure.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Warn().Err(err).Msg("writing response body failed")
	}
}

func writeError(w http.ResponseWriter, status int, errText, message string) {
	writeJSON(w, status, errorBody{Error: errText, Message: message})
}

// writeConfigError maps a ConfigStore failure to its HTTP response.
// Identification and validation failures are terminal; anything else is
// a registry fault that fails the request rather than bypassing tenant
// validation.
func writeConfigError(w http.ResponseWriter, err error) int {
	switch {
	case errors.Is(err, domain.ErrTenantNotFound):
		writeError(w, http.StatusNotFound, "Tenant not found", "no active tenant matches the requested identifier")
		return http.StatusNotFound
	case errors.Is(err, domain.ErrTenantInactive):
		writeError(w, http.StatusForbidden, "Tenant inactive", "this tenant account is not active")
		return http.StatusForbidden
	case errors.Is(err, domain.ErrSubscriptionInvalid):
		writeError(w, http.StatusForbidden, "Subscription invalid", "this tenant's subscription is suspended or expired")
		return http.StatusForbidden
	default:
		writeError(w, http.StatusInternalServerError, "Configuration unavailable", "failed to load tenant configuration")
		return http.StatusInternalServerError
	}
}
