package rendicion

import (
	"context"
	"sync"

	id "convocatorias/pkg/domain"
	"convocatorias/pkg/platform/sentinel"
)

type InMemory struct {
	mu            sync.Mutex
	rendiciones   map[id.RendicionID]*Rendicion
	byPostulacion map[id.PostulacionID]id.RendicionID
}

func NewInMemory() *InMemory {
	return &InMemory{
		rendiciones:   make(map[id.RendicionID]*Rendicion),
		byPostulacion: make(map[id.PostulacionID]id.RendicionID),
	}
}

func (s *InMemory) GetOrCreate(_ context.Context, r *Rendicion) (*Rendicion, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rid, ok := s.byPostulacion[r.PostulacionID]; ok {
		return s.copyLocked(rid), false, nil
	}
	cp := cloneRendicion(r)
	s.rendiciones[r.ID] = cp
	s.byPostulacion[r.PostulacionID] = r.ID
	return cloneRendicion(cp), true, nil
}

func (s *InMemory) FindByID(_ context.Context, rid id.RendicionID) (*Rendicion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rendiciones[rid]; !ok {
		return nil, sentinel.ErrNotFound
	}
	return s.copyLocked(rid), nil
}

func (s *InMemory) FindByPostulacion(_ context.Context, pid id.PostulacionID) (*Rendicion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rid, ok := s.byPostulacion[pid]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return s.copyLocked(rid), nil
}

func (s *InMemory) Update(_ context.Context, r *Rendicion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rendiciones[r.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.rendiciones[r.ID] = cloneRendicion(r)
	return nil
}

func (s *InMemory) copyLocked(rid id.RendicionID) *Rendicion {
	return cloneRendicion(s.rendiciones[rid])
}

func cloneRendicion(r *Rendicion) *Rendicion {
	cp := *r
	cp.Eventos = make([]Evento, len(r.Eventos))
	copy(cp.Eventos, r.Eventos)
	if r.FechaRecepcion != nil {
		t := *r.FechaRecepcion
		cp.FechaRecepcion = &t
	}
	return &cp
}
