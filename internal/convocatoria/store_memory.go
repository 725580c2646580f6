package convocatoria

import (
	"context"
	"sort"
	"sync"
	"time"

	id "convocatorias/pkg/domain"
	"convocatorias/pkg/platform/sentinel"
)

type inscripcionKey struct {
	user id.UserID
	conv id.ConvocatoriaID
}

type InMemory struct {
	mu            sync.RWMutex
	convocatorias map[id.ConvocatoriaID]*Convocatoria
	bySlug        map[string]id.ConvocatoriaID
	inscripciones map[inscripcionKey]*Inscripcion
}

func NewInMemory() *InMemory {
	return &InMemory{
		convocatorias: make(map[id.ConvocatoriaID]*Convocatoria),
		bySlug:        make(map[string]id.ConvocatoriaID),
		inscripciones: make(map[inscripcionKey]*Inscripcion),
	}
}

func (s *InMemory) Create(_ context.Context, c *Convocatoria) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bySlug[c.Slug]; ok {
		return sentinel.ErrAlreadyUsed
	}
	cp := *c
	s.convocatorias[c.ID] = &cp
	s.bySlug[c.Slug] = c.ID
	return nil
}

func (s *InMemory) FindByID(_ context.Context, cid id.ConvocatoriaID) (*Convocatoria, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.convocatorias[cid]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *InMemory) FindBySlug(_ context.Context, slug string) (*Convocatoria, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cid, ok := s.bySlug[slug]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *s.convocatorias[cid]
	return &cp, nil
}

func (s *InMemory) ListByLinea(_ context.Context, linea Linea) ([]*Convocatoria, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Convocatoria
	for _, c := range s.convocatorias {
		if c.Linea == linea {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Orden < out[j].Orden })
	return out, nil
}

func (s *InMemory) GetOrCreateInscripcion(_ context.Context, userID id.UserID, cid id.ConvocatoriaID) (*Inscripcion, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := inscripcionKey{user: userID, conv: cid}
	if existing, ok := s.inscripciones[key]; ok {
		cp := *existing
		return &cp, false, nil
	}
	ins := &Inscripcion{
		ID:             id.NewInscripcionID(),
		UserID:         userID,
		ConvocatoriaID: cid,
		FechaCreacion:  time.Now(),
	}
	s.inscripciones[key] = ins
	cp := *ins
	return &cp, true, nil
}
