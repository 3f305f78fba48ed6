package users

import (
	"strings"

	"github.com/EnmanuelOvalles37/consumo-admin/internal/backend"
)

// userForm is the create/edit form. Password is only checked on create.
type userForm struct {
	Name     string `validate:"required,max=100"`
	Password string `validate:"required,min=6,max=72"`
	RoleID   int64  `validate:"required,gt=0"`
	Active   bool
}

func (f userForm) input() backend.UserInput {
	return backend.UserInput{
		Name:     strings.TrimSpace(f.Name),
		Password: f.Password,
		RoleID:   f.RoleID,
		Active:   f.Active,
	}
}

func formFromUser(u backend.User) userForm {
	return userForm{Name: u.Name, RoleID: u.Role.ID, Active: u.Active}
}

type formErrors map[string]string

var fieldLabels = map[string]string{
	"Name":     "El nombre",
	"Password": "La contraseña",
	"RoleID":   "El rol",
}
