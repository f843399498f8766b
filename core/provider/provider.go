package provider

import (
	"context"
	"errors"
	"sync"

	"github.com/zorins376-hub/music-bot/model"
)

// ErrNotConfigured is returned by providers whose credentials are missing.
var ErrNotConfigured = errors.New("provider not configured")

// Searcher is a search source in the cascade.
type Searcher interface {
	// Source returns the tag stamped on every candidate of this provider.
	Source() model.Source
	// Search returns at most limit candidates. Callers treat an error like an
	// empty result.
	Search(ctx context.Context, query string, limit int) ([]model.Candidate, error)
}

// Fetcher downloads a candidate into dir and returns the local file path.
type Fetcher interface {
	Fetch(ctx context.Context, c model.Candidate, bitrate int, dir string) (string, error)
}

// Manager keeps the registered providers by source tag.
type Manager struct {
	mu        sync.RWMutex
	searchers map[model.Source]Searcher
	fetchers  map[model.Source]Fetcher
}

func NewManager() *Manager {
	return &Manager{
		searchers: make(map[model.Source]Searcher),
		fetchers:  make(map[model.Source]Fetcher),
	}
}

// Register adds a provider. A provider that also implements Fetcher is
// registered for delivery under the same tag.
func (m *Manager) Register(s Searcher) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searchers[s.Source()] = s
	if f, ok := s.(Fetcher); ok {
		m.fetchers[s.Source()] = f
	}
}

func (m *Manager) Searcher(source model.Source) (Searcher, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.searchers[source]
	return s, ok
}

func (m *Manager) Fetcher(source model.Source) (Fetcher, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.fetchers[source]
	return f, ok
}
