// Package memory stores exported blobs in-memory for development and tests.
package memory

import (
	"context"
	"fmt"
	"io"
	"maps"
	"sync"

	"github.com/JakeFAU/seo-linker/internal/storage"
)

// Stored is a copy of an object held by the BlobStore.
type Stored struct {
	Body        []byte
	ContentType string
	Filename    string
	Metadata    map[string]string
}

// BlobStore stores artifacts in-memory and returns pseudo URIs.
type BlobStore struct {
	mu      sync.RWMutex
	objects map[string]Stored
}

// NewBlobStore creates a new in-memory blob store.
func NewBlobStore() *BlobStore {
	return &BlobStore{objects: make(map[string]Stored)}
}

// Put keeps obj and returns a memory:// URI.
func (s *BlobStore) Put(_ context.Context, obj storage.Object) (string, error) {
	if err := obj.Validate(); err != nil {
		return "", err
	}
	body, err := io.ReadAll(obj.Body)
	if err != nil {
		return "", fmt.Errorf("read object data: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[obj.Path]; ok {
		return "", fmt.Errorf("memory://%s: %w", obj.Path, storage.ErrObjectExists)
	}
	s.objects[obj.Path] = Stored{
		Body:        body,
		ContentType: obj.ContentType,
		Filename:    obj.Filename,
		Metadata:    maps.Clone(obj.Metadata),
	}
	return "memory://" + obj.Path, nil
}

// Object returns a copy of the object stored at path.
func (s *BlobStore) Object(path string) (Stored, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.objects[path]
	if !ok {
		return Stored{}, false
	}
	st.Body = append([]byte(nil), st.Body...)
	st.Metadata = maps.Clone(st.Metadata)
	return st, true
}

// Len reports how many objects are stored.
func (s *BlobStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
