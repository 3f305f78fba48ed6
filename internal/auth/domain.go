package auth

import (
	"context"

	"github.com/EnmanuelOvalles37/consumo-admin/internal/backend"
)

// Authenticator exchanges credentials for a backend session.
type Authenticator interface {
	Login(ctx context.Context, creds backend.Credentials) (backend.Session, error)
}

type loginForm struct {
	Username string `validate:"required,max=100"`
	Password string `validate:"required,max=72"`
}

type loginPageData struct {
	Form   loginForm
	Errors map[string]string
	Next   string
}
