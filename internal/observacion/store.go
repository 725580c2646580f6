package observacion

import (
	"context"

	"convocatorias/internal/documento"
	id "convocatorias/pkg/domain"
)

type Store interface {
	Create(ctx context.Context, o *Observacion) error
	FindByID(ctx context.Context, oid id.ObservacionID) (*Observacion, error)
	// Update persists tipo/descripcion edits. It must never flip Subsanada
	// back to false; resolution is monotonic and owned by ResolveAll.
	Update(ctx context.Context, o *Observacion) error
	ListByOwner(ctx context.Context, owner documento.Owner) ([]*Observacion, error)
	ListOpen(ctx context.Context, owner documento.Owner) ([]*Observacion, error)
	// ResolveAll marks every unresolved observation of owner resolved and
	// returns how many flipped.
	ResolveAll(ctx context.Context, owner documento.Owner) (int, error)
}
