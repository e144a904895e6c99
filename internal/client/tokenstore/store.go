// Package tokenstore persists the single session token of the client.
//
// The store is a plain persistence shim: it never validates what it holds.
// Readers that need a usable token go through ValidTokenSource.
package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/moneyxfer/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/moneyxfer/internal/common"
)

// ErrNoToken is returned by Get when no token is stored.
var ErrNoToken = errors.New("no token stored")

// Store holds at most one token string.
type Store interface {
	Save(ctx context.Context, token string) error
	Get(ctx context.Context) (string, error)
	Clear(ctx context.Context) error
}

// SQLiteStore keeps the token under common.TokenStorageKey in the metadata
// table, so it survives restarts and is visible to every process that opens
// the same database file.
type SQLiteStore struct {
	repo metadata.Repository
	key  string
}

func NewSQLiteStore(repo metadata.Repository) *SQLiteStore {
	return &SQLiteStore{repo: repo, key: common.TokenStorageKey}
}

func (s *SQLiteStore) Save(ctx context.Context, token string) error {
	if err := s.repo.Set(ctx, s.key, []byte(token)); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context) (string, error) {
	v, err := s.repo.Get(ctx, s.key)
	if errors.Is(err, common.ErrNotFound) {
		return "", ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("get token: %w", err)
	}
	if len(v) == 0 {
		return "", ErrNoToken
	}
	return string(v), nil
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	if err := s.repo.Delete(ctx, s.key); err != nil {
		return fmt.Errorf("clear token: %w", err)
	}
	return nil
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu    sync.Mutex
	token string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Save(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

func (m *MemoryStore) Get(_ context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token == "" {
		return "", ErrNoToken
	}
	return m.token, nil
}

func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	return nil
}
