package postulacion

import (
	"context"

	id "convocatorias/pkg/domain"
)

type Store interface {
	// Create persists a new application. Returns sentinel.ErrAlreadyUsed
	// when the user already holds one against the same call.
	Create(ctx context.Context, p *Postulacion) error

	FindByID(ctx context.Context, pid id.PostulacionID) (*Postulacion, error)
	FindByUserAndConvocatoria(ctx context.Context, userID id.UserID, cid id.ConvocatoriaID) (*Postulacion, error)
	ListByUser(ctx context.Context, userID id.UserID) ([]*Postulacion, error)
	ListByConvocatoriaAndEstado(ctx context.Context, cid id.ConvocatoriaID, estado Estado) ([]*Postulacion, error)
	Update(ctx context.Context, p *Postulacion) error
}
