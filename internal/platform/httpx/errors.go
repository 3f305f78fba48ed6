// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/EnmanuelOvalles37/consumo-admin/internal/shared"
)

// RespondError maps back-office errors to RFC7807 responses for endpoints
// that are not rendered as pages.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "No encontrado", shared.UserSafeMessage(err))
	case errors.Is(err, shared.ErrValidation):
		Problem(w, http.StatusUnprocessableEntity, "Datos inválidos", shared.UserSafeMessage(err))
	case errors.Is(err, shared.ErrForbidden):
		Problem(w, http.StatusForbidden, "Sin acceso", shared.UserSafeMessage(err))
	case errors.Is(err, shared.ErrNetwork), errors.Is(err, shared.ErrBackend):
		Problem(w, http.StatusBadGateway, "Servidor no disponible", shared.UserSafeMessage(err))
	default:
		Problem(w, http.StatusInternalServerError, "Error interno", "")
	}
}
