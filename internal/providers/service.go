package providers

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/EnmanuelOvalles37/consumo-admin/internal/backend"
	"github.com/EnmanuelOvalles37/consumo-admin/internal/shared"
)

// Backend is the REST surface used by the provider screens.
type Backend interface {
	ListProviders(ctx context.Context, search string) ([]backend.Provider, error)
	GetProvider(ctx context.Context, id int64) (backend.Provider, error)
	CreateProvider(ctx context.Context, in backend.ProviderInput) (backend.Provider, error)
	UpdateProvider(ctx context.Context, id int64, in backend.ProviderInput) error
	DeleteProvider(ctx context.Context, id int64) error
	CreateStore(ctx context.Context, providerID int64, in backend.StoreInput) (backend.Store, error)
	UpdateStore(ctx context.Context, providerID, storeID int64, in backend.StoreInput) (backend.Store, error)
	DeleteStore(ctx context.Context, providerID, storeID int64) error
}

// Service implements provider and store use cases. Providers follow the
// reload policy; stores patch the detail snapshot optimistically.
type Service struct {
	backend   Backend
	snapshots *SnapshotStore
	validator *validator.Validate
	logger    *slog.Logger
	now       func() time.Time
}

// NewService builds Service instance.
func NewService(b Backend, snapshots *SnapshotStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{backend: b, snapshots: snapshots, validator: validator.New(), logger: logger, now: time.Now}
}

// List returns providers matching search; filtering happens in the backend.
func (s *Service) List(ctx context.Context, search string) ([]backend.Provider, error) {
	return s.backend.ListProviders(ctx, strings.TrimSpace(search))
}

// Detail fetches the provider and replaces the session snapshot.
func (s *Service) Detail(ctx context.Context, sessionID string, id int64) (DetailScreen, error) {
	if id <= 0 {
		return DetailScreen{}, shared.ErrNotFound
	}
	p, err := s.backend.GetProvider(ctx, id)
	if err != nil {
		return DetailScreen{}, err
	}
	d := DetailScreen{Provider: p, LoadedAt: s.now()}
	s.remember(ctx, sessionID, d)
	return d, nil
}

// Get fetches the provider without touching the snapshot.
func (s *Service) Get(ctx context.Context, id int64) (backend.Provider, error) {
	if id <= 0 {
		return backend.Provider{}, shared.ErrNotFound
	}
	return s.backend.GetProvider(ctx, id)
}

// Create validates and registers a provider.
func (s *Service) Create(ctx context.Context, form providerForm) (backend.Provider, FieldErrors, error) {
	if errs := s.validate(form); errs != nil {
		return backend.Provider{}, errs, errs.Err()
	}
	p, err := s.backend.CreateProvider(ctx, form.input())
	return p, nil, err
}

// Update validates and saves a provider.
func (s *Service) Update(ctx context.Context, id int64, form providerForm) (FieldErrors, error) {
	if errs := s.validate(form); errs != nil {
		return errs, errs.Err()
	}
	return nil, s.backend.UpdateProvider(ctx, id, form.input())
}

// Delete removes a provider and forgets its snapshot.
func (s *Service) Delete(ctx context.Context, sessionID string, id int64) error {
	if err := s.backend.DeleteProvider(ctx, id); err != nil {
		return err
	}
	if s.snapshots != nil && sessionID != "" {
		if err := s.snapshots.Drop(ctx, sessionID, id); err != nil {
			s.logger.Warn("drop provider snapshot", slog.Int64("provider_id", id), slog.Any("error", err))
		}
	}
	return nil
}

// AddStore creates a store and appends the returned record to the snapshot.
func (s *Service) AddStore(ctx context.Context, sessionID string, providerID int64, form storeForm) (DetailScreen, FieldErrors, error) {
	if errs := s.validate(form); errs != nil {
		d, err := s.screen(ctx, sessionID, providerID)
		if err != nil {
			return DetailScreen{}, errs, err
		}
		return d, errs, errs.Err()
	}
	store, err := s.backend.CreateStore(ctx, providerID, form.input())
	if errors.Is(err, backend.ErrMissingID) {
		// The store exists but cannot be addressed; reload it from the backend.
		s.logger.Warn("store created without id", slog.Int64("provider_id", providerID))
		d, err := s.Detail(ctx, sessionID, providerID)
		return d, nil, err
	}
	if err != nil {
		return s.screenAfterFailure(ctx, sessionID, providerID, err)
	}
	d, err := s.screen(ctx, sessionID, providerID)
	if err != nil {
		return DetailScreen{}, nil, err
	}
	d.AddStore(store)
	s.remember(ctx, sessionID, d)
	return d, nil, nil
}

// UpdateStore saves a store and swaps the record in the snapshot.
func (s *Service) UpdateStore(ctx context.Context, sessionID string, providerID, storeID int64, form storeForm) (DetailScreen, FieldErrors, error) {
	if errs := s.validate(form); errs != nil {
		d, err := s.screen(ctx, sessionID, providerID)
		if err != nil {
			return DetailScreen{}, errs, err
		}
		return d, errs, errs.Err()
	}
	store, err := s.backend.UpdateStore(ctx, providerID, storeID, form.input())
	if err != nil {
		return s.screenAfterFailure(ctx, sessionID, providerID, err)
	}
	d, err := s.screen(ctx, sessionID, providerID)
	if err != nil {
		return DetailScreen{}, nil, err
	}
	if !d.ReplaceStore(store) {
		d.AddStore(store)
	}
	s.remember(ctx, sessionID, d)
	return d, nil, nil
}

// RemoveStore deletes a store and drops it from the snapshot.
func (s *Service) RemoveStore(ctx context.Context, sessionID string, providerID, storeID int64) (DetailScreen, error) {
	if err := s.backend.DeleteStore(ctx, providerID, storeID); err != nil {
		d, _, err := s.screenAfterFailure(ctx, sessionID, providerID, err)
		return d, err
	}
	d, err := s.screen(ctx, sessionID, providerID)
	if err != nil {
		return DetailScreen{}, err
	}
	d.RemoveStore(storeID)
	s.remember(ctx, sessionID, d)
	return d, nil
}

// screen returns the snapshot, fetching the provider only when the session
// has none.
func (s *Service) screen(ctx context.Context, sessionID string, providerID int64) (DetailScreen, error) {
	if s.snapshots != nil && sessionID != "" {
		d, ok, err := s.snapshots.Load(ctx, sessionID, providerID)
		if err != nil {
			s.logger.Warn("load provider snapshot", slog.Int64("provider_id", providerID), slog.Any("error", err))
		} else if ok {
			return d, nil
		}
	}
	return s.Detail(ctx, sessionID, providerID)
}

func (s *Service) screenAfterFailure(ctx context.Context, sessionID string, providerID int64, cause error) (DetailScreen, FieldErrors, error) {
	d, err := s.screen(ctx, sessionID, providerID)
	if err != nil {
		return DetailScreen{}, nil, cause
	}
	return d, nil, cause
}

func (s *Service) remember(ctx context.Context, sessionID string, d DetailScreen) {
	if s.snapshots == nil || sessionID == "" {
		return
	}
	if err := s.snapshots.Save(ctx, sessionID, d); err != nil {
		s.logger.Warn("save provider snapshot", slog.Int64("provider_id", d.Provider.ID), slog.Any("error", err))
	}
}
