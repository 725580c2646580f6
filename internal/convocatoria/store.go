package convocatoria

import (
	"context"

	id "convocatorias/pkg/domain"
)

type Store interface {
	Create(ctx context.Context, c *Convocatoria) error
	FindByID(ctx context.Context, cid id.ConvocatoriaID) (*Convocatoria, error)
	FindBySlug(ctx context.Context, slug string) (*Convocatoria, error)
	ListByLinea(ctx context.Context, linea Linea) ([]*Convocatoria, error)

	// GetOrCreateInscripcion enrolls a user in a formación call. The second
	// return reports whether the row was created by this call.
	GetOrCreateInscripcion(ctx context.Context, userID id.UserID, cid id.ConvocatoriaID) (*Inscripcion, bool, error)
}
