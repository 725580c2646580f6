package rendicion

import (
	"context"

	id "convocatorias/pkg/domain"
)

type Store interface {
	// GetOrCreate returns the rendición of the application, creating it
	// when absent. The bool reports creation by this call. Implementations
	// must guarantee at most one row per application under concurrency.
	GetOrCreate(ctx context.Context, r *Rendicion) (*Rendicion, bool, error)

	FindByID(ctx context.Context, rid id.RendicionID) (*Rendicion, error)
	FindByPostulacion(ctx context.Context, pid id.PostulacionID) (*Rendicion, error)
	Update(ctx context.Context, r *Rendicion) error
}
