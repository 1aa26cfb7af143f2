package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/bascanada/loggate/pkg/errs"
)

// APIError is a standardized error response structure.
type APIError struct {
	Message string                 `json:"error"`
	Code    string                 `json:"code"`
	Details map[string]interface{} `json:"details,omitempty"`
}

const (
	ErrCodeValidation     = "VALIDATION_ERROR"
	ErrCodeAuthentication = "AUTHENTICATION_ERROR"
	ErrCodeSessionMissing = "SESSION_NOT_FOUND"
	ErrCodeRateLimit      = "RATE_LIMIT_EXCEEDED"
	ErrCodeTimeout        = "TIMEOUT"
	ErrCodeConfig         = "CONFIG_ERROR"
	ErrCodeBackend        = "BACKEND_ERROR"
	ErrCodeInternal       = "INTERNAL_SERVER_ERROR"
)

// writeJSON writes a JSON response with a given status code.
func (s *Server) writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to write json response", zap.Error(err))
	}
}

// writeError writes a standardized APIError response.
func (s *Server) writeError(w http.ResponseWriter, statusCode int, code, message string) {
	s.writeJSON(w, statusCode, APIError{
		Code:    code,
		Message: message,
	})
}

// writeServiceError maps domain errors onto HTTP statuses.
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	var (
		valErr     *errs.ValidationError
		argErr     *errs.InvalidArgumentError
		authErr    *errs.AuthenticationError
		sessionErr *errs.SessionNotFoundError
		rateErr    *errs.RateLimitError
		timeoutErr *errs.TimeoutError
		cfgErr     *errs.ConfigurationError
		backendErr *errs.BackendError
	)
	switch {
	case errors.As(err, &valErr), errors.As(err, &argErr):
		s.writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
	case errors.As(err, &authErr):
		s.writeError(w, http.StatusUnauthorized, ErrCodeAuthentication, err.Error())
	case errors.As(err, &sessionErr):
		s.writeError(w, http.StatusNotFound, ErrCodeSessionMissing, err.Error())
	case errors.As(err, &rateErr):
		s.writeError(w, http.StatusTooManyRequests, ErrCodeRateLimit, err.Error())
	case errors.As(err, &timeoutErr):
		s.writeError(w, http.StatusGatewayTimeout, ErrCodeTimeout, err.Error())
	case errors.As(err, &cfgErr):
		s.writeError(w, http.StatusInternalServerError, ErrCodeConfig, err.Error())
	case errors.As(err, &backendErr):
		s.writeError(w, http.StatusBadGateway, ErrCodeBackend, err.Error())
	default:
		s.logger.Error("unhandled service error", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, ErrCodeInternal, "The server encountered a problem")
	}
}
