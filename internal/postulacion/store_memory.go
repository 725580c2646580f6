package postulacion

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
	mu            sync.Mutex
	postulaciones map[id.PostulacionID]*Postulacion
	byOwner       map[ownerKey]id.PostulacionID
}

func NewInMemory() *InMemory {
	return &InMemory{
		postulaciones: make(map[id.PostulacionID]*Postulacion),
		byOwner:       make(map[ownerKey]id.PostulacionID),
	}
}

func (s *InMemory) Create(_ context.Context, p *Postulacion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := ownerKey{p.UserID, p.ConvocatoriaID}
	if _, ok := s.byOwner[key]; ok {
		return sentinel.ErrAlreadyUsed
	}
	s.postulaciones[p.ID] = clonePostulacion(p)
	s.byOwner[key] = p.ID
	return nil
}

func (s *InMemory) FindByID(_ context.Context, pid id.PostulacionID) (*Postulacion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.postulaciones[pid]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clonePostulacion(p), nil
}

func (s *InMemory) FindByUserAndConvocatoria(_ context.Context, userID id.UserID, cid id.ConvocatoriaID) (*Postulacion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pid, ok := s.byOwner[ownerKey{userID, cid}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clonePostulacion(s.postulaciones[pid]), nil
}

func (s *InMemory) ListByUser(_ context.Context, userID id.UserID) ([]*Postulacion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Postulacion
	for _, p := range s.postulaciones {
		if p.UserID == userID {
			out = append(out, clonePostulacion(p))
		}
	}
	sortByCreation(out)
	return out, nil
}

func (s *InMemory) ListByConvocatoriaAndEstado(_ context.Context, cid id.ConvocatoriaID, estado Estado) ([]*Postulacion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Postulacion
	for _, p := range s.postulaciones {
		if p.ConvocatoriaID == cid && p.Estado == estado {
			out = append(out, clonePostulacion(p))
		}
	}
	sortByCreation(out)
	return out, nil
}

func (s *InMemory) Update(_ context.Context, p *Postulacion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.postulaciones[p.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.postulaciones[p.ID] = clonePostulacion(p)
	return nil
}

func sortByCreation(ps []*Postulacion) {
	sort.Slice(ps, func(i, j int) bool {
		return ps[i].FechaCreacion.Before(ps[j].FechaCreacion)
	})
}

func clonePostulacion(p *Postulacion) *Postulacion {
	cp := *p
	if p.FechaEnvio != nil {
		t := *p.FechaEnvio
		cp.FechaEnvio = &t
	}
	return &cp
}
