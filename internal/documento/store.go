package documento

import (
	"context"
	"time"

	id "convocatorias/pkg/domain"
)

// Store persists documents. Implementations must serialize the
// check-then-insert in CreateIfWithinQuota and the read-then-flip in
// ConfirmBatch per owner row (mutex in memory, locked transaction in
// Postgres), so concurrent callers can neither exceed the quota nor
// double-confirm the same pending set.
type Store interface {
	// CreateIfWithinQuota inserts doc only if the owner currently holds
	// fewer than max active (PENDIENTE+ENVIADO) documents of doc.Tipo.
	// Returns sentinel.ErrQuotaExhausted otherwise.
	CreateIfWithinQuota(ctx context.Context, doc *Documento, max int) error

	FindByID(ctx context.Context, docID id.DocumentoID) (*Documento, error)

	// DeletePendiente removes the document only while it is PENDIENTE;
	// sentinel.ErrInvalidState once sent.
	DeletePendiente(ctx context.Context, docID id.DocumentoID) error

	ListByOwner(ctx context.Context, owner Owner) ([]*Documento, error)

	// CountActive counts PENDIENTE+ENVIADO rows for (owner, tipo).
	CountActive(ctx context.Context, owner Owner, tipo Tipo) (int, error)

	// CountSent counts ENVIADO rows for (owner, tipo).
	CountSent(ctx context.Context, owner Owner, tipo Tipo) (int, error)

	// ConfirmBatch atomically flips every PENDIENTE document of
	// (owner, tipo) to ENVIADO stamping sentAt, returning how many rows
	// flipped. Zero rows is not an error at this layer; the service turns
	// it into a typed rejection.
	ConfirmBatch(ctx context.Context, owner Owner, tipo Tipo, sentAt time.Time) (int, error)
}
