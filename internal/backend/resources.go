package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/EnmanuelOvalles37/consumo-admin/internal/shared"
)

// Credentials are posted to the login endpoint.
type Credentials struct {
	Username string
	Password string
}

// UserInput is the payload for user create and update.
type UserInput struct {
	Name     string
	Password string
	RoleID   int64
	Active   bool
}

// ProviderInput is the payload for provider create and update.
type ProviderInput struct {
	Name    string
	RNC     string
	Active  bool
	Phone   string
	Email   string
	Address string
}

// StoreInput is the payload for store create and update.
type StoreInput struct {
	Name   string
	Active bool
}

// Login exchanges credentials for a token and the role permission codes.
func (c *Client) Login(ctx context.Context, creds Credentials) (Session, error) {
	body := map[string]string{"usuario": creds.Username, "contrasena": creds.Password}
	var wire loginWire
	err := c.do(ctx, "login", http.MethodPost, "/auth/login", "", body, &wire)
	if err != nil {
		if errors.Is(err, shared.ErrForbidden) || errors.Is(err, shared.ErrValidation) {
			return Session{}, shared.ErrInvalidCredentials
		}
		return Session{}, err
	}
	if strings.TrimSpace(wire.Token) == "" {
		return Session{}, fmt.Errorf("%w: login response without token", shared.ErrBackend)
	}
	return wire.decode(), nil
}

// ListRoles returns the full role catalog.
func (c *Client) ListRoles(ctx context.Context) ([]Role, error) {
	var raw json.RawMessage
	if err := c.get(ctx, "roles.list", "/seguridad/roles", &raw); err != nil {
		return nil, err
	}
	wires, err := listOf[roleWire](raw)
	if err != nil {
		return nil, decodeErr("roles.list", err)
	}
	out := make([]Role, 0, len(wires))
	for _, w := range wires {
		out = append(out, w.decode())
	}
	return out, nil
}

// RolePermissions returns the whole permission catalog annotated for roleID.
func (c *Client) RolePermissions(ctx context.Context, roleID int64) ([]RolePermission, error) {
	var raw json.RawMessage
	if err := c.get(ctx, "roles.permissions", "/seguridad/roles/"+id(roleID)+"/permisos", &raw); err != nil {
		return nil, err
	}
	wires, err := listOf[rolePermissionWire](raw)
	if err != nil {
		return nil, decodeErr("roles.permissions", err)
	}
	out := make([]RolePermission, 0, len(wires))
	for _, w := range wires {
		out = append(out, w.decode())
	}
	return out, nil
}

// ReplaceRolePermissions replaces the whole assignment set of roleID.
func (c *Client) ReplaceRolePermissions(ctx context.Context, roleID int64, permissionIDs []int64) error {
	ids := append([]int64{}, permissionIDs...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	body := struct {
		PermisoIDs []int64 `json:"permisoIds"`
	}{PermisoIDs: ids}
	return c.send(ctx, "roles.replace", http.MethodPut, "/seguridad/roles/"+id(roleID)+"/permisos", body, nil)
}

// ListUsers returns every operator.
func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	var raw json.RawMessage
	if err := c.get(ctx, "users.list", "/usuarios", &raw); err != nil {
		return nil, err
	}
	wires, err := listOf[userWire](raw)
	if err != nil {
		return nil, decodeErr("users.list", err)
	}
	out := make([]User, 0, len(wires))
	for _, w := range wires {
		out = append(out, w.decode())
	}
	return out, nil
}

// CreateUser registers a new operator.
func (c *Client) CreateUser(ctx context.Context, in UserInput) (User, error) {
	body := map[string]any{
		"nombre":     in.Name,
		"contrasena": in.Password,
		"rolId":      in.RoleID,
		"activo":     in.Active,
	}
	var wire userWire
	if err := c.send(ctx, "users.create", http.MethodPost, "/usuarios", body, &wire); err != nil {
		return User{}, err
	}
	u := wire.decode()
	if u.Name == "" {
		u.Name = in.Name
	}
	if u.Role.ID == 0 {
		u.Role.ID = in.RoleID
	}
	return u, nil
}

// UpdateUser changes name, role and status of an operator.
func (c *Client) UpdateUser(ctx context.Context, userID int64, in UserInput) error {
	body := map[string]any{
		"nombre": in.Name,
		"rolId":  in.RoleID,
		"activo": in.Active,
	}
	return c.send(ctx, "users.update", http.MethodPut, "/usuarios/"+id(userID), body, nil)
}

// ListProviders returns providers, filtered by the backend when search is set.
func (c *Client) ListProviders(ctx context.Context, search string) ([]Provider, error) {
	path := "/proveedores"
	if q := strings.TrimSpace(search); q != "" {
		path += "?" + url.Values{"buscar": {q}}.Encode()
	}
	var raw json.RawMessage
	if err := c.get(ctx, "providers.list", path, &raw); err != nil {
		return nil, err
	}
	wires, err := listOf[providerWire](raw)
	if err != nil {
		return nil, decodeErr("providers.list", err)
	}
	out := make([]Provider, 0, len(wires))
	for _, w := range wires {
		out = append(out, w.decode())
	}
	return out, nil
}

// GetProvider returns one provider with its stores.
func (c *Client) GetProvider(ctx context.Context, providerID int64) (Provider, error) {
	var wire providerWire
	if err := c.get(ctx, "providers.get", "/proveedores/"+id(providerID), &wire); err != nil {
		return Provider{}, err
	}
	p := wire.decode()
	if p.ID == 0 {
		p.ID = providerID
	}
	return p, nil
}

// CreateProvider registers a provider.
func (c *Client) CreateProvider(ctx context.Context, in ProviderInput) (Provider, error) {
	var wire providerWire
	if err := c.send(ctx, "providers.create", http.MethodPost, "/proveedores", providerBody(in), &wire); err != nil {
		return Provider{}, err
	}
	return wire.decode(), nil
}

// UpdateProvider replaces the editable fields of a provider.
func (c *Client) UpdateProvider(ctx context.Context, providerID int64, in ProviderInput) error {
	return c.send(ctx, "providers.update", http.MethodPut, "/proveedores/"+id(providerID), providerBody(in), nil)
}

// DeleteProvider removes a provider.
func (c *Client) DeleteProvider(ctx context.Context, providerID int64) error {
	return c.send(ctx, "providers.delete", http.MethodDelete, "/proveedores/"+id(providerID), nil, nil)
}

// ErrMissingID reports a create call the backend accepted without returning
// the new record id.
var ErrMissingID = fmt.Errorf("%w: response without id", shared.ErrBackend)

// CreateStore adds a store to a provider and returns the stored record.
func (c *Client) CreateStore(ctx context.Context, providerID int64, in StoreInput) (Store, error) {
	body := map[string]any{"nombre": in.Name}
	var wire storeWire
	if err := c.send(ctx, "stores.create", http.MethodPost, "/proveedores/"+id(providerID)+"/tiendas", body, &wire); err != nil {
		return Store{}, err
	}
	s := wire.decode()
	if s.ID <= 0 {
		return Store{}, ErrMissingID
	}
	if s.Name == "" {
		s.Name = in.Name
	}
	return s, nil
}

// UpdateStore changes a store of a provider and returns the stored record.
func (c *Client) UpdateStore(ctx context.Context, providerID, storeID int64, in StoreInput) (Store, error) {
	body := map[string]any{"nombre": in.Name, "activo": in.Active}
	var wire storeWire
	path := "/proveedores/" + id(providerID) + "/tiendas/" + id(storeID)
	if err := c.send(ctx, "stores.update", http.MethodPut, path, body, &wire); err != nil {
		return Store{}, err
	}
	if wire.ID == 0 {
		return Store{ID: storeID, Name: in.Name, Active: in.Active}, nil
	}
	return wire.decode(), nil
}

// DeleteStore removes a store from a provider.
func (c *Client) DeleteStore(ctx context.Context, providerID, storeID int64) error {
	path := "/proveedores/" + id(providerID) + "/tiendas/" + id(storeID)
	return c.send(ctx, "stores.delete", http.MethodDelete, path, nil, nil)
}

func providerBody(in ProviderInput) map[string]any {
	return map[string]any{
		"nombre":    in.Name,
		"rnc":       in.RNC,
		"activo":    in.Active,
		"telefono":  in.Phone,
		"correo":    in.Email,
		"direccion": in.Address,
	}
}

func decodeErr(op string, err error) error {
	return fmt.Errorf("%w: decode %s: %v", shared.ErrBackend, op, err)
}

func id(v int64) string {
	return strconv.FormatInt(v, 10)
}
