package roles

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/EnmanuelOvalles37/consumo-admin/internal/backend"
	"github.com/EnmanuelOvalles37/consumo-admin/internal/shared"
)

// Service is the editor Source backed by the REST client. Successful
// permission replacements are written to the audit trail.
type Service struct {
	source  Source
	auditor shared.Auditor
	logger  *slog.Logger
}

// NewService builds Service instance.
func NewService(source Source, auditor shared.Auditor, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{source: source, auditor: auditor, logger: logger}
}

// ListRoles returns all roles.
func (s *Service) ListRoles(ctx context.Context) ([]backend.Role, error) {
	return s.source.ListRoles(ctx)
}

// RolePermissions returns the catalog annotated for roleID.
func (s *Service) RolePermissions(ctx context.Context, roleID int64) ([]backend.RolePermission, error) {
	return s.source.RolePermissions(ctx, roleID)
}

// ReplaceRolePermissions persists the assignment set and audits it.
func (s *Service) ReplaceRolePermissions(ctx context.Context, roleID int64, permissionIDs []int64) error {
	if err := s.source.ReplaceRolePermissions(ctx, roleID, permissionIDs); err != nil {
		return err
	}
	if s.auditor == nil {
		return nil
	}
	var actor int64
	if p := shared.PrincipalFromContext(ctx); p != nil {
		actor = p.UserID
	}
	entry := shared.AuditLog{
		ActorID:  actor,
		Action:   "role.permissions.replace",
		Entity:   "role",
		EntityID: strconv.FormatInt(roleID, 10),
		Meta:     map[string]any{"permission_ids": permissionIDs},
	}
	if err := s.auditor.Record(ctx, entry); err != nil {
		s.logger.Warn("audit role permissions", slog.Int64("role_id", roleID), slog.Any("error", err))
	}
	return nil
}
