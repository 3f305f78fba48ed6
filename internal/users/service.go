package users

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/EnmanuelOvalles37/consumo-admin/internal/backend"
	"github.com/EnmanuelOvalles37/consumo-admin/internal/shared"
)

// Backend is the REST surface used by the user screens.
type Backend interface {
	ListUsers(ctx context.Context) ([]backend.User, error)
	CreateUser(ctx context.Context, in backend.UserInput) (backend.User, error)
	UpdateUser(ctx context.Context, id int64, in backend.UserInput) error
	ListRoles(ctx context.Context) ([]backend.Role, error)
}

// Service handles user business logic.
type Service struct {
	backend   Backend
	auditor   shared.Auditor
	validator *validator.Validate
	logger    *slog.Logger
}

// NewService builds Service instance.
func NewService(b Backend, auditor shared.Auditor, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{backend: b, auditor: auditor, validator: validator.New(), logger: logger}
}

// ListUsers returns all users ordered by name.
func (s *Service) ListUsers(ctx context.Context) ([]backend.User, error) {
	list, err := s.backend.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(list, func(i, j int) bool {
		return strings.ToLower(list[i].Name) < strings.ToLower(list[j].Name)
	})
	return list, nil
}

// Roles returns the roles an operator can be assigned to.
func (s *Service) Roles(ctx context.Context) ([]backend.Role, error) {
	return s.backend.ListRoles(ctx)
}

// Get finds a user by id. The backend has no single-user read, so the
// list is searched.
func (s *Service) Get(ctx context.Context, id int64) (backend.User, error) {
	list, err := s.backend.ListUsers(ctx)
	if err != nil {
		return backend.User{}, err
	}
	for _, u := range list {
		if u.ID == id {
			return u, nil
		}
	}
	return backend.User{}, shared.ErrNotFound
}

// Create validates and registers a user.
func (s *Service) Create(ctx context.Context, form userForm) (backend.User, formErrors, error) {
	form.Name = strings.TrimSpace(form.Name)
	if errs := s.validate(s.validator.Struct(form)); errs != nil {
		return backend.User{}, errs, errs.err()
	}
	u, err := s.backend.CreateUser(ctx, form.input())
	if err != nil {
		return backend.User{}, nil, err
	}
	s.audit(ctx, "user.create", u.ID, map[string]any{"name": u.Name, "role_id": form.RoleID})
	return u, nil, nil
}

// Update validates and saves name, role and status of a user.
func (s *Service) Update(ctx context.Context, id int64, form userForm) (formErrors, error) {
	form.Name = strings.TrimSpace(form.Name)
	form.Password = ""
	if errs := s.validate(s.validator.StructExcept(form, "Password")); errs != nil {
		return errs, errs.err()
	}
	if err := s.backend.UpdateUser(ctx, id, form.input()); err != nil {
		return nil, err
	}
	s.audit(ctx, "user.update", id, map[string]any{"name": form.Name, "role_id": form.RoleID, "active": form.Active})
	return nil, nil
}

func (s *Service) validate(err error) formErrors {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return formErrors{"general": shared.UserSafeMessage(err)}
	}
	out := make(formErrors, len(verrs))
	for _, fe := range verrs {
		label := fieldLabels[fe.Field()]
		switch {
		case fe.Field() == "RoleID":
			out[fe.Field()] = "Seleccione un rol."
		case fe.Tag() == "required":
			out[fe.Field()] = label + " es obligatorio."
		case fe.Tag() == "min":
			out[fe.Field()] = label + " debe tener al menos " + fe.Param() + " caracteres."
		case fe.Tag() == "max":
			out[fe.Field()] = label + " es demasiado largo."
		default:
			out[fe.Field()] = label + " no es válido."
		}
	}
	return out
}

func (fe formErrors) err() error {
	for _, key := range []string{"Name", "Password", "RoleID", "general"} {
		if msg, ok := fe[key]; ok {
			return shared.Validation(msg)
		}
	}
	return shared.ErrValidation
}

func (s *Service) audit(ctx context.Context, action string, userID int64, meta map[string]any) {
	if s.auditor == nil {
		return
	}
	var actor int64
	if p := shared.PrincipalFromContext(ctx); p != nil {
		actor = p.UserID
	}
	entry := shared.AuditLog{ActorID: actor, Action: action, Entity: "user", EntityID: strconv.FormatInt(userID, 10), Meta: meta}
	if err := s.auditor.Record(ctx, entry); err != nil {
		s.logger.Warn("audit user change", slog.Int64("user_id", userID), slog.Any("error", err))
	}
}
