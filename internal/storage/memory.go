package storage

import (
	"context"
	"sync"

	"github.com/bebranft/creator-market/internal/apperr"
)

// MemoryStore is an in-process content store. It computes the same CIDs as
// the IPFS-backed store, so it stands in for it in tests and local runs.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemoryStore creates an empty in-memory content store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

// Put stores the payload under its computed CID. Identical bytes map to the
// same identifier, so repeat puts are no-ops.
func (s *MemoryStore) Put(ctx context.Context, data []byte) (string, error) {
	contentID, err := ComputeCID(data)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blobs[contentID]; !ok {
		stored := make([]byte, len(data))
		copy(stored, data)
		s.blobs[contentID] = stored
	}
	return contentID, nil
}

// Get returns the payload for a content identifier.
func (s *MemoryStore) Get(ctx context.Context, contentID string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.blobs[contentID]
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "content %s not found", contentID)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Unpin drops the payload. Unknown identifiers are ignored.
func (s *MemoryStore) Unpin(ctx context.Context, contentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, contentID)
	return nil
}

// Len reports the number of stored blobs.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}
