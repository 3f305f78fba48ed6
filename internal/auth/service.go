package auth

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/EnmanuelOvalles37/consumo-admin/internal/backend"
	"github.com/EnmanuelOvalles37/consumo-admin/internal/shared"
)

// Service wraps authentication business rules.
type Service struct {
	backend Authenticator
	auditor shared.Auditor
	logger  *slog.Logger
}

// NewService constructs a new Service.
func NewService(b Authenticator, auditor shared.Auditor, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{backend: b, auditor: auditor, logger: logger}
}

// Authenticate validates the credentials against the backend and returns the
// principal to bind to the session.
func (s *Service) Authenticate(ctx context.Context, username, password string) (shared.Principal, error) {
	sess, err := s.backend.Login(ctx, backend.Credentials{Username: strings.TrimSpace(username), Password: password})
	if err != nil {
		return shared.Principal{}, err
	}
	if !sess.User.Active && sess.User.ID != 0 {
		return shared.Principal{}, shared.ErrInvalidCredentials
	}
	p := shared.Principal{
		UserID:      sess.User.ID,
		Name:        sess.User.Name,
		RoleID:      sess.User.Role.ID,
		RoleName:    sess.User.Role.Name,
		Token:       sess.Token,
		Permissions: sess.Permissions,
	}
	if s.auditor != nil {
		entry := shared.AuditLog{
			ActorID:  p.UserID,
			Action:   "auth.login",
			Entity:   "user",
			EntityID: strconv.FormatInt(p.UserID, 10),
			Meta:     map[string]any{"permissions": len(p.Permissions)},
		}
		if err := s.auditor.Record(ctx, entry); err != nil {
			s.logger.Warn("audit login", slog.Int64("user_id", p.UserID), slog.Any("error", err))
		}
	}
	return p, nil
}
