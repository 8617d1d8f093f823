package httpx

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/coincraft/coincraft/internal/shared"
)

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrForbidden):
		Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, shared.ErrUnauthorized):
		Problem(w, http.StatusUnauthorized, "Unauthorized", err.Error())
	case errors.Is(err, shared.ErrInsufficientFunds):
		Problem(w, http.StatusUnprocessableEntity, "Insufficient Funds", err.Error())
	case errors.Is(err, shared.ErrInvalidAmount):
		Problem(w, http.StatusUnprocessableEntity, "Invalid Amount", err.Error())
	case errors.Is(err, shared.ErrInvalidStateTransition):
		Problem(w, http.StatusConflict, "Invalid State Transition", err.Error())
	case errors.Is(err, shared.ErrConflict):
		Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, shared.ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

// IsExpected reports whether err belongs to the caller-facing taxonomy.
func IsExpected(err error) bool {
	for _, target := range []error{
		shared.ErrNotFound, shared.ErrForbidden, shared.ErrUnauthorized,
		shared.ErrInsufficientFunds, shared.ErrInvalidAmount, shared.ErrInvalidStateTransition,
		shared.ErrConflict, shared.ErrValidation,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// LogError logs unexpected errors once at the boundary. Expected outcomes are not logged.
func LogError(logger *slog.Logger, err error) {
	if err == nil || IsExpected(err) {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger.Error("request failed", slog.Any("error", err))
}
