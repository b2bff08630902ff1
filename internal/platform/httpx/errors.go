package httpx

import (
	"errors"
	"net/http"

	"github.com/staffdesk/staffdesk/internal/shared"
)

// RespondError maps domain errors to an HTTP status plus action-state body.
// Validation and authorization detail passes through; configuration and store
// failures collapse to a generic message (the caller logs the real error).
func RespondError(w http.ResponseWriter, err error) {
	message := shared.UserSafeMessage(err)

	var ve *shared.ValidationError
	var ae *shared.AuthzError
	switch {
	case errors.As(err, &ve):
		Fail(w, http.StatusBadRequest, message, ve.Fields)
	case errors.Is(err, shared.ErrInvalidCredentials):
		Fail(w, http.StatusUnauthorized, message, nil)
	case errors.Is(err, shared.ErrUnauthenticated), errors.Is(err, shared.ErrNoSession):
		Fail(w, http.StatusUnauthorized, shared.UserSafeMessage(shared.ErrUnauthenticated), nil)
	case errors.As(err, &ae):
		fields := map[string][]string(nil)
		if len(ae.Missing) > 0 {
			fields = map[string][]string{"permissions": {ae.Message}}
		}
		Fail(w, http.StatusForbidden, message, fields)
	case errors.Is(err, shared.ErrReservedRole), errors.Is(err, shared.ErrReservedPrincipal):
		Fail(w, http.StatusForbidden, message, nil)
	case errors.Is(err, shared.ErrTooManyAttempts):
		Fail(w, http.StatusTooManyRequests, message, nil)
	case errors.Is(err, shared.ErrNotFound):
		Fail(w, http.StatusNotFound, message, nil)
	case errors.Is(err, shared.ErrDuplicate):
		Fail(w, http.StatusConflict, message, nil)
	default:
		Fail(w, http.StatusInternalServerError, message, nil)
	}
}
