package providers

import (
	"strings"

	"github.com/EnmanuelOvalles37/consumo-admin/internal/backend"
)

type providerForm struct {
	Name    string `validate:"required,max=150"`
	RNC     string `validate:"omitempty,max=20"`
	Phone   string `validate:"omitempty,max=30"`
	Email   string `validate:"omitempty,email"`
	Address string `validate:"omitempty,max=250"`
	Active  bool
}

func (f providerForm) input() backend.ProviderInput {
	return backend.ProviderInput{
		Name:    strings.TrimSpace(f.Name),
		RNC:     strings.TrimSpace(f.RNC),
		Active:  f.Active,
		Phone:   strings.TrimSpace(f.Phone),
		Email:   strings.TrimSpace(f.Email),
		Address: strings.TrimSpace(f.Address),
	}
}

func formFromProvider(p backend.Provider) providerForm {
	return providerForm{Name: p.Name, RNC: p.RNC, Phone: p.Phone, Email: p.Email, Address: p.Address, Active: p.Active}
}

type storeForm struct {
	Name   string `validate:"required,max=120"`
	Active bool
}

func (f storeForm) input() backend.StoreInput {
	return backend.StoreInput{Name: strings.TrimSpace(f.Name), Active: f.Active}
}
