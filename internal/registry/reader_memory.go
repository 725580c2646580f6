package registry

import (
	"context"
	"sync"

	id "convocatorias/pkg/domain"
	"convocatorias/pkg/platform/sentinel"
)

// InMemoryReader backs the gate in tests and local development.
type InMemoryReader struct {
	mu        sync.RWMutex
	humanas   map[id.UserID]*Perfil
	juridicas map[id.UserID]*Perfil
}

func NewInMemoryReader() *InMemoryReader {
	return &InMemoryReader{
		humanas:   make(map[id.UserID]*Perfil),
		juridicas: make(map[id.UserID]*Perfil),
	}
}

// PutPersonaHumana registers an individual profile for userID.
func (r *InMemoryReader) PutPersonaHumana(p *Perfil) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.Tipo = PerfilHumana
	r.humanas[p.UserID] = p
}

// PutPersonaJuridica registers an organization profile for userID.
func (r *InMemoryReader) PutPersonaJuridica(p *Perfil) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.Tipo = PerfilJuridica
	r.juridicas[p.UserID] = p
}

func (r *InMemoryReader) FindPersonaHumana(_ context.Context, userID id.UserID) (*Perfil, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if p, ok := r.humanas[userID]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, sentinel.ErrNotFound
}

func (r *InMemoryReader) FindPersonaJuridica(_ context.Context, userID id.UserID) (*Perfil, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if p, ok := r.juridicas[userID]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, sentinel.ErrNotFound
}
