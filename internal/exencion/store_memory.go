package exencion

import (
	"context"
	"sort"
	"sync"

	id "convocatorias/pkg/domain"
	"convocatorias/pkg/platform/sentinel"
)

type ownerKey struct {
	user id.UserID
	conv id.ConvocatoriaID
}

type InMemory struct {
	mu         sync.Mutex
	exenciones map[id.ExencionID]*Exencion
	byOwner    map[ownerKey]id.ExencionID
	serial     int
}

func NewInMemory() *InMemory {
	return &InMemory{
		exenciones: make(map[id.ExencionID]*Exencion),
		byOwner:    make(map[ownerKey]id.ExencionID),
	}
}

func (s *InMemory) GetOrCreate(_ context.Context, e *Exencion) (*Exencion, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := ownerKey{e.UserID, e.ConvocatoriaID}
	if eid, ok := s.byOwner[key]; ok {
		return cloneExencion(s.exenciones[eid]), false, nil
	}
	s.exenciones[e.ID] = cloneExencion(e)
	s.byOwner[key] = e.ID
	return cloneExencion(e), true, nil
}

func (s *InMemory) FindByID(_ context.Context, eid id.ExencionID) (*Exencion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.exenciones[eid]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneExencion(e), nil
}

func (s *InMemory) FindByNumero(_ context.Context, numero string) (*Exencion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.exenciones {
		if e.NumeroConstancia != "" && e.NumeroConstancia == numero {
			return cloneExencion(e), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) ListByUser(_ context.Context, userID id.UserID) ([]*Exencion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Exencion
	for _, e := range s.exenciones {
		if e.UserID == userID {
			out = append(out, cloneExencion(e))
		}
	}
	sortByCreation(out)
	return out, nil
}

func (s *InMemory) ListByConvocatoriaAndEstado(_ context.Context, cid id.ConvocatoriaID, estado Estado) ([]*Exencion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Exencion
	for _, e := range s.exenciones {
		if e.ConvocatoriaID == cid && e.Estado == estado {
			out = append(out, cloneExencion(e))
		}
	}
	sortByCreation(out)
	return out, nil
}

func (s *InMemory) Update(_ context.Context, e *Exencion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.exenciones[e.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.exenciones[e.ID] = cloneExencion(e)
	return nil
}

func (s *InMemory) NextSerial(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.serial++
	return s.serial, nil
}

func sortByCreation(es []*Exencion) {
	sort.Slice(es, func(i, j int) bool {
		return es[i].FechaCreacion.Before(es[j].FechaCreacion)
	})
}

func cloneExencion(e *Exencion) *Exencion {
	cp := *e
	if e.FechaEmision != nil {
		t := *e.FechaEmision
		cp.FechaEmision = &t
	}
	if e.FechaVencimiento != nil {
		t := *e.FechaVencimiento
		cp.FechaVencimiento = &t
	}
	return &cp
}
