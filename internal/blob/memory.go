package blob

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"convocatorias/pkg/platform/sentinel"
)

// InMemory keeps blobs in a map. Tests and local development only.
type InMemory struct {
	mu    sync.RWMutex
	blobs map[Locator][]byte
}

func NewInMemory() *InMemory {
	return &InMemory{blobs: make(map[Locator][]byte)}
}

func (s *InMemory) Store(_ context.Context, name string, data []byte) (Locator, error) {
	loc := Locator(fmt.Sprintf("%s/%s", uuid.NewString(), name))
	cp := make([]byte, len(data))
	copy(cp, data)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[loc] = cp
	return loc, nil
}

func (s *InMemory) Fetch(_ context.Context, loc Locator) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.blobs[loc]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

func (s *InMemory) Delete(_ context.Context, loc Locator) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blobs[loc]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.blobs, loc)
	return nil
}

// Len reports the number of stored blobs. Test helper.
func (s *InMemory) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}
