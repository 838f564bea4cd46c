package store

import (
	"context"
	"errors"
	"sync"

	"github.com/serroba/linkguard/internal/links"
)

// ErrHardDeleteUnsupported is returned by stores configured to keep every record.
var ErrHardDeleteUnsupported = errors.New("hard delete not supported")

// MemoryStore is an in-memory implementation of links.Repository.
// Records are returned as copies in id order.
type MemoryStore struct {
	mu         sync.RWMutex
	records    []*links.Link
	nextID     int64
	hardDelete bool
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithoutHardDelete makes DeleteByID always fail, as append-only backends do.
func WithoutHardDelete() MemoryOption {
	return func(m *MemoryStore) { m.hardDelete = false }
}

// NewMemoryStore creates a new in-memory link store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	m := &MemoryStore{nextID: 1, hardDelete: true}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

func (m *MemoryStore) Query(_ context.Context, filter links.Filter) ([]*links.Link, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*links.Link

	for _, r := range m.records {
		if filter.Matches(r) {
			out = append(out, r.Clone())
		}
	}

	return out, nil
}

func (m *MemoryStore) Insert(_ context.Context, link *links.Link) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range m.records {
		if r.Code == link.Code {
			return links.ErrCodeExists
		}
	}

	link.ID = m.nextID
	m.nextID++
	m.records = append(m.records, link.Clone())

	return nil
}

func (m *MemoryStore) UpdateByID(_ context.Context, id int64, patch links.Patch) (*links.Link, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r := m.find(id)
	if r == nil {
		return nil, links.ErrNotFound
	}

	if patch.Code != nil && *patch.Code != r.Code {
		for _, other := range m.records {
			if other.Code == *patch.Code {
				return nil, links.ErrCodeExists
			}
		}
	}

	patch.Apply(r)

	return r.Clone(), nil
}

func (m *MemoryStore) DeleteByID(_ context.Context, id int64) error {
	if !m.hardDelete {
		return ErrHardDeleteUnsupported
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for i, r := range m.records {
		if r.ID == id {
			m.records = append(m.records[:i], m.records[i+1:]...)

			return nil
		}
	}

	return links.ErrNotFound
}

func (m *MemoryStore) find(id int64) *links.Link {
	for _, r := range m.records {
		if r.ID == id {
			return r
		}
	}

	return nil
}

var _ links.Repository = (*MemoryStore)(nil)
