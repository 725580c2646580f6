package observacion

import (
	"context"
	"sort"
	"sync"

	"convocatorias/internal/documento"
	id "convocatorias/pkg/domain"
	"convocatorias/pkg/platform/sentinel"
)

type InMemory struct {
	mu            sync.Mutex
	observaciones map[id.ObservacionID]*Observacion
}

func NewInMemory() *InMemory {
	return &InMemory{observaciones: make(map[id.ObservacionID]*Observacion)}
}

func (s *InMemory) Create(_ context.Context, o *Observacion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *o
	s.observaciones[o.ID] = &cp
	return nil
}

func (s *InMemory) FindByID(_ context.Context, oid id.ObservacionID) (*Observacion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.observaciones[oid]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (s *InMemory) Update(_ context.Context, o *Observacion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.observaciones[o.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	existing.TipoDocumento = o.TipoDocumento
	existing.Descripcion = o.Descripcion
	// Monotonic: an already-resolved row stays resolved.
	if o.Subsanada {
		existing.Subsanada = true
	}
	return nil
}

func (s *InMemory) ListByOwner(_ context.Context, owner documento.Owner) ([]*Observacion, error) {
	return s.list(owner, false), nil
}

func (s *InMemory) ListOpen(_ context.Context, owner documento.Owner) ([]*Observacion, error) {
	return s.list(owner, true), nil
}

func (s *InMemory) ResolveAll(_ context.Context, owner documento.Owner) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, o := range s.observaciones {
		if o.Owner == owner && !o.Subsanada {
			o.Subsanada = true
			n++
		}
	}
	return n, nil
}

func (s *InMemory) list(owner documento.Owner, openOnly bool) []*Observacion {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Observacion
	for _, o := range s.observaciones {
		if o.Owner != owner {
			continue
		}
		if openOnly && o.Subsanada {
			continue
		}
		cp := *o
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FechaCreacion.Before(out[j].FechaCreacion) })
	return out
}
