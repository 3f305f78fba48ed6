package providers

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/EnmanuelOvalles37/consumo-admin/internal/shared"
)

var fieldLabels = map[string]string{
	"Name":    "El nombre",
	"RNC":     "El RNC",
	"Phone":   "El teléfono",
	"Email":   "El correo",
	"Address": "La dirección",
}

// FieldErrors maps a form field to its operator facing message.
type FieldErrors map[string]string

func (s *Service) validate(form any) FieldErrors {
	trimmed := trimForm(form)
	err := s.validator.Struct(trimmed)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return FieldErrors{"general": shared.UserSafeMessage(err)}
	}
	out := make(FieldErrors, len(verrs))
	for _, fe := range verrs {
		label := fieldLabels[fe.Field()]
		if label == "" {
			label = fe.Field()
		}
		switch fe.Tag() {
		case "required":
			out[fe.Field()] = label + " es obligatorio."
		case "email":
			out[fe.Field()] = label + " no es válido."
		case "max":
			out[fe.Field()] = label + " es demasiado largo."
		default:
			out[fe.Field()] = label + " no es válido."
		}
	}
	return out
}

func trimForm(form any) any {
	switch f := form.(type) {
	case providerForm:
		f.Name = strings.TrimSpace(f.Name)
		f.Email = strings.TrimSpace(f.Email)
		return f
	case storeForm:
		f.Name = strings.TrimSpace(f.Name)
		return f
	default:
		return form
	}
}

// Err folds the field errors into a validation failure.
func (fe FieldErrors) Err() error {
	if len(fe) == 0 {
		return nil
	}
	for _, key := range []string{"Name", "general"} {
		if msg, ok := fe[key]; ok {
			return shared.Validation(msg)
		}
	}
	for _, msg := range fe {
		return shared.Validation(msg)
	}
	return nil
}
