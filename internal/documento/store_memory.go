package documento

import (
	"context"
	"sort"
	"sync"
	"time"

	id "convocatorias/pkg/domain"
	"convocatorias/pkg/platform/sentinel"
)

// InMemory keeps documents in a map guarded by one mutex, which is the
// serialization scope the Store contract asks for.
type InMemory struct {
	mu   sync.Mutex
	docs map[id.DocumentoID]*Documento
}

func NewInMemory() *InMemory {
	return &InMemory{docs: make(map[id.DocumentoID]*Documento)}
}

func (s *InMemory) CreateIfWithinQuota(_ context.Context, doc *Documento, max int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.countActiveLocked(doc.Owner, doc.Tipo) >= max {
		return sentinel.ErrQuotaExhausted
	}
	cp := *doc
	s.docs[doc.ID] = &cp
	return nil
}

func (s *InMemory) FindByID(_ context.Context, docID id.DocumentoID) (*Documento, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[docID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *doc
	return &cp, nil
}

func (s *InMemory) DeletePendiente(_ context.Context, docID id.DocumentoID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[docID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if doc.Estado != EstadoPendiente {
		return sentinel.ErrInvalidState
	}
	delete(s.docs, docID)
	return nil
}

func (s *InMemory) ListByOwner(_ context.Context, owner Owner) ([]*Documento, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Documento
	for _, doc := range s.docs {
		if doc.Owner == owner {
			cp := *doc
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FechaSubida.Before(out[j].FechaSubida) })
	return out, nil
}

func (s *InMemory) CountActive(_ context.Context, owner Owner, tipo Tipo) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.countActiveLocked(owner, tipo), nil
}

func (s *InMemory) CountSent(_ context.Context, owner Owner, tipo Tipo) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, doc := range s.docs {
		if doc.Owner == owner && doc.Tipo == tipo && doc.Estado == EstadoEnviado {
			n++
		}
	}
	return n, nil
}

func (s *InMemory) ConfirmBatch(_ context.Context, owner Owner, tipo Tipo, sentAt time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, doc := range s.docs {
		if doc.Owner == owner && doc.Tipo == tipo && doc.Estado == EstadoPendiente {
			doc.Estado = EstadoEnviado
			t := sentAt
			doc.FechaEnvio = &t
			n++
		}
	}
	return n, nil
}

func (s *InMemory) countActiveLocked(owner Owner, tipo Tipo) int {
	n := 0
	for _, doc := range s.docs {
		if doc.Owner == owner && doc.Tipo == tipo && doc.Activo() {
			n++
		}
	}
	return n
}
