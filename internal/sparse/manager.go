package sparse

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

type handle struct {
	idx      *Index
	lastUsed time.Time
}

// Manager caches open per-collection Bleve index handles and closes ones
// that have gone idle, so collections that are not actively queried do not
// keep file descriptors and memory pinned indefinitely.
type Manager struct {
	mu      sync.Mutex
	baseDir string
	idleTTL time.Duration
	handles map[string]*handle
}

// NewManager creates a manager rooted at baseDir. Each collection's index
// lives under baseDir/<collection>/.
func NewManager(baseDir string, idleTTL time.Duration) *Manager {
	m := &Manager{
		baseDir: baseDir,
		idleTTL: idleTTL,
		handles: make(map[string]*handle),
	}
	go m.cleanupLoop()
	return m
}

// DefaultManager creates a manager with a 30 minute idle TTL.
func DefaultManager(baseDir string) *Manager {
	return NewManager(baseDir, 30*time.Minute)
}

func (m *Manager) collectionPath(collection string) string {
	return filepath.Join(m.baseDir, collection)
}

// Get returns the index for collection, opening it if it is not already
// cached in-process.
func (m *Manager) Get(collection string) (*Index, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if h, ok := m.handles[collection]; ok {
		h.lastUsed = time.Now()
		return h.idx, nil
	}

	idx, err := openIndex(m.collectionPath(collection))
	if err != nil {
		return nil, err
	}

	m.handles[collection] = &handle{idx: idx, lastUsed: time.Now()}
	return idx, nil
}

// DeleteCollection closes and removes a collection's index from disk.
func (m *Manager) DeleteCollection(collection string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if h, ok := m.handles[collection]; ok {
		_ = h.idx.Close()
		delete(m.handles, collection)
	}

	if err := os.RemoveAll(m.collectionPath(collection)); err != nil {
		return fmt.Errorf("failed to remove bm25 index for %s: %w", collection, err)
	}
	return nil
}

// Close closes every currently open index handle.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var firstErr error
	for collection, h := range m.handles {
		if err := h.idx.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(m.handles, collection)
	}
	return firstErr
}

func (m *Manager) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		m.cleanup()
	}
}

func (m *Manager) cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for collection, h := range m.handles {
		if now.Sub(h.lastUsed) > m.idleTTL {
			_ = h.idx.Close()
			delete(m.handles, collection)
		}
	}
}
