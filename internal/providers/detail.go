package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/EnmanuelOvalles37/consumo-admin/internal/backend"
)

// DetailScreen is the provider detail as last shown to an operator. Store
// mutations patch it in place instead of fetching the provider again.
type DetailScreen struct {
	Provider backend.Provider `json:"provider"`
	LoadedAt time.Time        `json:"loaded_at"`
}

// AddStore appends a created store.
func (d *DetailScreen) AddStore(s backend.Store) {
	d.Provider.Stores = append(d.Provider.Stores, s)
}

// ReplaceStore swaps the store with the same ID. It reports false when the
// store is not part of the snapshot.
func (d *DetailScreen) ReplaceStore(s backend.Store) bool {
	for i := range d.Provider.Stores {
		if d.Provider.Stores[i].ID == s.ID {
			d.Provider.Stores[i] = s
			return true
		}
	}
	return false
}

// RemoveStore drops the store with id, keeping the order of the rest.
func (d *DetailScreen) RemoveStore(id int64) bool {
	for i := range d.Provider.Stores {
		if d.Provider.Stores[i].ID == id {
			d.Provider.Stores = append(d.Provider.Stores[:i], d.Provider.Stores[i+1:]...)
			return true
		}
	}
	return false
}

// Store finds a store by id.
func (d DetailScreen) Store(id int64) (backend.Store, bool) {
	for _, s := range d.Provider.Stores {
		if s.ID == id {
			return s, true
		}
	}
	return backend.Store{}, false
}

// SnapshotStore keeps one DetailScreen per session and provider in Redis.
type SnapshotStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSnapshotStore builds a SnapshotStore.
func NewSnapshotStore(client *redis.Client, ttl time.Duration) *SnapshotStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &SnapshotStore{client: client, ttl: ttl}
}

// Save stores d for the session.
func (s *SnapshotStore) Save(ctx context.Context, sessionID string, d DetailScreen) error {
	payload, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("providers: encode snapshot: %w", err)
	}
	return s.client.Set(ctx, s.key(sessionID, d.Provider.ID), payload, s.ttl).Err()
}

// Load returns the snapshot for the session, reporting false when absent.
func (s *SnapshotStore) Load(ctx context.Context, sessionID string, providerID int64) (DetailScreen, bool, error) {
	payload, err := s.client.Get(ctx, s.key(sessionID, providerID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return DetailScreen{}, false, nil
	}
	if err != nil {
		return DetailScreen{}, false, err
	}
	var d DetailScreen
	if err := json.Unmarshal(payload, &d); err != nil {
		return DetailScreen{}, false, fmt.Errorf("providers: decode snapshot: %w", err)
	}
	return d, true, nil
}

// Drop forgets the snapshot.
func (s *SnapshotStore) Drop(ctx context.Context, sessionID string, providerID int64) error {
	return s.client.Del(ctx, s.key(sessionID, providerID)).Err()
}

func (s *SnapshotStore) key(sessionID string, providerID int64) string {
	return "detail:" + sessionID + ":proveedor:" + strconv.FormatInt(providerID, 10)
}
