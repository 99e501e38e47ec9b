// Package session owns the client's persistent session identity.
//
// The identity is a UUID v4 created the first time the peer asks for it and
// kept in a storage.Store, so it survives reconnects and restarts.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/rickgao/meshlink/internal/model"
	"github.com/rickgao/meshlink/internal/storage"
)

// DefaultKey is the storage key of the identity.
const DefaultKey = "session"

// Identity caches the session identity and persists it on creation.
type Identity struct {
	store  storage.Store
	key    string
	logger *slog.Logger

	mu      sync.Mutex
	current string
}

// NewIdentity creates an Identity backed by store. An empty key uses DefaultKey.
func NewIdentity(store storage.Store, key string, logger *slog.Logger) *Identity {
	if logger == nil {
		logger = slog.Default()
	}
	if key == "" {
		key = DefaultKey
	}
	return &Identity{
		store:  store,
		key:    key,
		logger: logger,
	}
}

// Load reads a previously persisted identity. A missing identity is not an
// error; Current stays empty until Ensure runs.
func (i *Identity) Load(ctx context.Context) error {
	v, err := i.store.Get(ctx, i.key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	if !model.IsValidID(v) {
		i.logger.Warn("ignoring malformed stored session", "key", i.key)
		return nil
	}
	i.current = v
	return nil
}

// Ensure returns the identity, creating and persisting one if none exists.
// When persisting fails the new identity is still returned and kept for the
// life of the process, together with the error.
func (i *Identity) Ensure(ctx context.Context) (string, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.current != "" {
		return i.current, nil
	}

	id := model.NewID()
	i.current = id
	if err := i.store.Set(ctx, i.key, id); err != nil {
		return id, fmt.Errorf("persist session: %w", err)
	}
	i.logger.Info("session created", "session", id)
	return id, nil
}

// Current returns the cached identity, or "" if none exists yet.
func (i *Identity) Current() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.current
}

// Reset forgets the identity and removes it from the store.
func (i *Identity) Reset(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if err := i.store.Delete(ctx, i.key); err != nil {
		return fmt.Errorf("reset session: %w", err)
	}
	i.current = ""
	return nil
}
