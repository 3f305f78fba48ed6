package shared

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserSafeMessage(t *testing.T) {
	assert.Equal(t, "", UserSafeMessage(nil))
	assert.Equal(t, "El nombre es obligatorio", UserSafeMessage(Validation("El nombre es obligatorio")))
	assert.Equal(t, "El registro solicitado no existe.", UserSafeMessage(fmt.Errorf("get: %w", ErrNotFound)))
	assert.Equal(t, "No se pudo conectar con el servidor. Intente de nuevo.", UserSafeMessage(ErrNetwork))
	assert.Equal(t, "Ocurrió un error inesperado.", UserSafeMessage(fmt.Errorf("boom")))
}

func TestDetailErrorUnwraps(t *testing.T) {
	err := fmt.Errorf("wrap: %w", Validation("x"))
	assert.ErrorIs(t, err, ErrValidation)
}
