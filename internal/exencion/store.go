package exencion

import (
	"context"

	id "convocatorias/pkg/domain"
)

type Store interface {
	// GetOrCreate returns the user's exemption for the call, creating it
	// when absent. The bool reports creation by this call. Implementations
	// must guarantee at most one row per (user, convocatoria).
	GetOrCreate(ctx context.Context, e *Exencion) (*Exencion, bool, error)

	FindByID(ctx context.Context, eid id.ExencionID) (*Exencion, error)
	FindByNumero(ctx context.Context, numero string) (*Exencion, error)
	ListByUser(ctx context.Context, userID id.UserID) ([]*Exencion, error)
	ListByConvocatoriaAndEstado(ctx context.Context, cid id.ConvocatoriaID, estado Estado) ([]*Exencion, error)
	Update(ctx context.Context, e *Exencion) error

	// NextSerial hands out the next constancia serial. Serials are unique
	// and monotonically increasing; gaps from abandoned approvals are fine.
	NextSerial(ctx context.Context) (int, error)
}
