package shared

import (
	"errors"
	"strings"
)

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrNetwork indicates the backend could not be reached or did not answer.
	ErrNetwork = errors.New("network failure")
	// ErrValidation indicates a missing or malformed field.
	ErrValidation = errors.New("validation failed")
	// ErrForbidden indicates the operator lacks the permission for the action.
	ErrForbidden = errors.New("forbidden")
	// ErrBackend indicates an unexpected backend answer.
	ErrBackend = errors.New("backend error")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)

// DetailError carries a message meant for the operator next to its category.
type DetailError struct {
	Kind   error
	Detail string
}

func (e *DetailError) Error() string {
	if e.Detail == "" {
		return e.Kind.Error()
	}
	return e.Kind.Error() + ": " + e.Detail
}

func (e *DetailError) Unwrap() error { return e.Kind }

// Validation builds a validation failure with an operator facing message.
func Validation(detail string) error {
	return &DetailError{Kind: ErrValidation, Detail: detail}
}

// UserSafeMessage converts err into a message that can be shown inline on a screen.
func UserSafeMessage(err error) string {
	if err == nil {
		return ""
	}
	var detailed *DetailError
	if errors.As(err, &detailed) && strings.TrimSpace(detailed.Detail) != "" &&
		(errors.Is(err, ErrValidation) || errors.Is(err, ErrBackend)) {
		return detailed.Detail
	}
	switch {
	case errors.Is(err, ErrValidation):
		return "Revise los datos del formulario."
	case errors.Is(err, ErrNotFound):
		return "El registro solicitado no existe."
	case errors.Is(err, ErrForbidden):
		return "No tiene permiso para realizar esta acción."
	case errors.Is(err, ErrNetwork):
		return "No se pudo conectar con el servidor. Intente de nuevo."
	case errors.Is(err, ErrInvalidCredentials):
		return "Usuario o contraseña incorrectos."
	default:
		return "Ocurrió un error inesperado."
	}
}
