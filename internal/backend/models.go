package backend

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Role is a named bundle of permissions.
type Role struct {
	ID          int64
	Name        string
	Description string
}

// Permission is an entry of the global permission catalog.
type Permission struct {
	ID   int64
	Code string
	Name string
}

// RolePermission is a catalog entry annotated with the role assignment.
type RolePermission struct {
	Permission
	Assigned bool
}

// User is a back-office operator.
type User struct {
	ID     int64
	Name   string
	Role   Role
	Active bool
}

// Provider is a supplier together with its stores.
type Provider struct {
	ID      int64
	Name    string
	RNC     string
	Active  bool
	Phone   string
	Email   string
	Address string
	Stores  []Store
}

// Store is a location owned by a provider.
type Store struct {
	ID     int64
	Name   string
	Active bool
}

// Session is the result of a successful login.
type Session struct {
	Token       string
	User        User
	Permissions []string
}

// flexID accepts numbers and numeric strings.
type flexID int64

func (f *flexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*f = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*f = 0
			return nil
		}
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return err
		}
		*f = flexID(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	v, err := n.Int64()
	if err != nil {
		fl, ferr := n.Float64()
		if ferr != nil {
			return err
		}
		v = int64(fl)
	}
	*f = flexID(v)
	return nil
}

type roleWire struct {
	ID          flexID `json:"id"`
	Nombre      string `json:"nombre"`
	Descripcion string `json:"descripcion"`
}

func (w roleWire) decode() Role {
	return Role{ID: int64(w.ID), Name: strings.TrimSpace(w.Nombre), Description: strings.TrimSpace(w.Descripcion)}
}

type rolePermissionWire struct {
	ID       flexID `json:"id"`
	Codigo   string `json:"codigo"`
	Nombre   string `json:"nombre"`
	Asignado bool   `json:"asignado"`
}

func (w rolePermissionWire) decode() RolePermission {
	name := strings.TrimSpace(w.Nombre)
	code := strings.TrimSpace(w.Codigo)
	if name == "" {
		name = code
	}
	return RolePermission{
		Permission: Permission{ID: int64(w.ID), Code: code, Name: name},
		Assigned:   w.Asignado,
	}
}

type userWire struct {
	ID     flexID          `json:"id"`
	Nombre string          `json:"nombre"`
	Rol    json.RawMessage `json:"rol"`
	RolID  flexID          `json:"rolId"`
	Activo *bool           `json:"activo"`
}

// decode resolves the role, which the backend sends as a name, as an object
// or not at all.
func (w userWire) decode() User {
	u := User{ID: int64(w.ID), Name: strings.TrimSpace(w.Nombre), Active: boolOr(w.Activo, true)}
	raw := bytes.TrimSpace(w.Rol)
	switch {
	case len(raw) == 0 || string(raw) == "null":
	case raw[0] == '"':
		var name string
		if err := json.Unmarshal(raw, &name); err == nil {
			u.Role.Name = strings.TrimSpace(name)
		}
	case raw[0] == '{':
		var rw roleWire
		if err := json.Unmarshal(raw, &rw); err == nil {
			u.Role = rw.decode()
		}
	default:
		var id flexID
		if err := json.Unmarshal(raw, &id); err == nil {
			u.Role.ID = int64(id)
		}
	}
	if u.Role.ID == 0 {
		u.Role.ID = int64(w.RolID)
	}
	return u
}

type storeWire struct {
	ID     flexID `json:"id"`
	Nombre string `json:"nombre"`
	Activo *bool  `json:"activo"`
}

func (w storeWire) decode() Store {
	return Store{ID: int64(w.ID), Name: strings.TrimSpace(w.Nombre), Active: boolOr(w.Activo, true)}
}

type providerWire struct {
	ID        flexID      `json:"id"`
	Nombre    string      `json:"nombre"`
	RNC       *string     `json:"rnc"`
	Activo    *bool       `json:"activo"`
	Telefono  *string     `json:"telefono"`
	Correo    *string     `json:"correo"`
	Direccion *string     `json:"direccion"`
	Tiendas   []storeWire `json:"tiendas"`
}

func (w providerWire) decode() Provider {
	p := Provider{
		ID:      int64(w.ID),
		Name:    strings.TrimSpace(w.Nombre),
		RNC:     stringOr(w.RNC),
		Active:  boolOr(w.Activo, true),
		Phone:   stringOr(w.Telefono),
		Email:   stringOr(w.Correo),
		Address: stringOr(w.Direccion),
		Stores:  make([]Store, 0, len(w.Tiendas)),
	}
	for _, s := range w.Tiendas {
		p.Stores = append(p.Stores, s.decode())
	}
	return p
}

type loginWire struct {
	Token   string `json:"token"`
	Usuario struct {
		ID     flexID          `json:"id"`
		Nombre string          `json:"nombre"`
		Rol    json.RawMessage `json:"rol"`
		RolID  flexID          `json:"rolId"`
		Activo *bool           `json:"activo"`
	} `json:"usuario"`
	Permisos []json.RawMessage `json:"permisos"`
}

func (w loginWire) decode() Session {
	user := userWire{ID: w.Usuario.ID, Nombre: w.Usuario.Nombre, Rol: w.Usuario.Rol, RolID: w.Usuario.RolID, Activo: w.Usuario.Activo}.decode()
	s := Session{Token: w.Token, User: user, Permissions: make([]string, 0, len(w.Permisos))}
	for _, raw := range w.Permisos {
		if code := permissionCode(raw); code != "" {
			s.Permissions = append(s.Permissions, code)
		}
	}
	return s
}

// permissionCode accepts either a bare code or a permission object.
func permissionCode(raw json.RawMessage) string {
	var code string
	if err := json.Unmarshal(raw, &code); err == nil {
		return strings.TrimSpace(code)
	}
	var obj struct {
		Codigo string `json:"codigo"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return strings.TrimSpace(obj.Codigo)
	}
	return ""
}

// listOf accepts a bare array or an envelope under "data" or "items".
func listOf[T any](raw json.RawMessage) ([]T, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	if raw[0] == '{' {
		var env struct {
			Data  json.RawMessage `json:"data"`
			Items json.RawMessage `json:"items"`
		}
		if err := json.Unmarshal(raw, &env); err != nil {
			return nil, err
		}
		switch {
		case len(env.Data) > 0:
			raw = env.Data
		case len(env.Items) > 0:
			raw = env.Items
		default:
			return nil, nil
		}
	}
	var out []T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

func stringOr(v *string) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(*v)
}
