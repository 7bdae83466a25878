package imagestore

import (
	"context"
	"sync"

	"github.com/yanqian/rihla/internal/domain/generation"
)

// MemoryStore keeps archived images in process memory. Useful for tests and local dev.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string]storedImage
}

type storedImage struct {
	data     []byte
	mimeType string
}

// NewMemoryStore constructs an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string]storedImage)}
}

// Put implements generation.ImageArchive.
func (s *MemoryStore) Put(_ context.Context, key string, data []byte, mimeType string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = storedImage{data: append([]byte(nil), data...), mimeType: mimeType}
	return "memory://" + key, nil
}

// Get returns a stored image and its MIME type.
func (s *MemoryStore) Get(key string) ([]byte, string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	img, ok := s.blobs[key]
	return img.data, img.mimeType, ok
}

var _ generation.ImageArchive = (*MemoryStore)(nil)
