package httpx

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EnmanuelOvalles37/consumo-admin/internal/shared"
)

func TestRespondErrorMapsBackOfficeErrors(t *testing.T) {
	cases := []struct {
		err    error
		status int
		detail string
	}{
		{shared.ErrNotFound, http.StatusNotFound, "El registro solicitado no existe."},
		{shared.Validation("El nombre es obligatorio."), http.StatusUnprocessableEntity, "El nombre es obligatorio."},
		{shared.ErrForbidden, http.StatusForbidden, "No tiene permiso para realizar esta acción."},
		{fmt.Errorf("list: %w", shared.ErrNetwork), http.StatusBadGateway, "No se pudo conectar con el servidor. Intente de nuevo."},
		{fmt.Errorf("boom"), http.StatusInternalServerError, ""},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		RespondError(rec, tc.err)

		assert.Equal(t, tc.status, rec.Code, tc.err.Error())
		assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
		var pd ProblemDetail
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&pd))
		assert.Equal(t, tc.status, pd.Status)
		assert.Equal(t, tc.detail, pd.Detail)
	}
}
