// Package documento implements the per-document submission sub-machine and
// the quota ledger shared by applications and exemptions. A document is
// uploaded PENDIENTE, may be deleted by its owner while PENDIENTE, and is
// flipped to ENVIADO only as part of an all-or-nothing batch confirmation.
// Sent documents are immutable.
package documento

import (
	"time"

	"github.com/google/uuid"

	"convocatorias/internal/blob"
	id "convocatorias/pkg/domain"
	dErrors "convocatorias/pkg/domain-errors"
)

// OwnerTipo names which aggregate a document belongs to.
type OwnerTipo string

const (
	OwnerPostulacion OwnerTipo = "postulacion"
	OwnerExencion    OwnerTipo = "exencion"
)

// Owner scopes documents and quotas to one application or one exemption.
type Owner struct {
	Tipo OwnerTipo
	ID   uuid.UUID
}

func PostulacionOwner(pid id.PostulacionID) Owner {
	return Owner{Tipo: OwnerPostulacion, ID: uuid.UUID(pid)}
}

func ExencionOwner(eid id.ExencionID) Owner {
	return Owner{Tipo: OwnerExencion, ID: uuid.UUID(eid)}
}

func (o Owner) IsZero() bool { return o.Tipo == "" || o.ID == uuid.Nil }

// Tipo classifies a document within its owner. SUBSANADO documents carry a
// SubTipo saying which review track the correction answers.
type Tipo string

const (
	TipoPersonal  Tipo = "PERSONAL"
	TipoProyecto  Tipo = "PROYECTO"
	TipoSubsanado Tipo = "SUBSANADO"
)

// SubTipo qualifies SUBSANADO documents.
type SubTipo string

const (
	SubTipoNone     SubTipo = ""
	SubTipoProyecto SubTipo = "PROYECTO"
	SubTipoAdmin    SubTipo = "ADMIN"
)

// ValidateTipo enforces the tipo/subtipo pairing: SUBSANADO requires a
// subtipo, everything else forbids one.
func ValidateTipo(tipo Tipo, subTipo SubTipo) error {
	switch tipo {
	case TipoPersonal, TipoProyecto:
		if subTipo != SubTipoNone {
			return dErrors.Newf(dErrors.CodeValidation, "tipo %s does not take a subtipo", tipo)
		}
		return nil
	case TipoSubsanado:
		if subTipo != SubTipoProyecto && subTipo != SubTipoAdmin {
			return dErrors.New(dErrors.CodeValidation, "tipo SUBSANADO requires subtipo PROYECTO or ADMIN")
		}
		return nil
	default:
		return dErrors.Newf(dErrors.CodeValidation, "unknown documento tipo %q", tipo)
	}
}

// Estado is the per-document submission state. ENVIADO is terminal.
type Estado string

const (
	EstadoPendiente Estado = "PENDIENTE"
	EstadoEnviado   Estado = "ENVIADO"
)

// Documento is one uploaded file belonging to an application or exemption.
type Documento struct {
	ID      id.DocumentoID
	Owner   Owner
	UserID  id.UserID
	Tipo    Tipo
	SubTipo SubTipo
	// EsSubsanacion marks exemption re-uploads made under observation,
	// distinguishing them from the original submission.
	EsSubsanacion bool
	Estado        Estado
	Nombre        string
	Size          int64
	Locator       blob.Locator
	FechaSubida   time.Time
	// FechaEnvio is stamped by batch confirmation, never at upload.
	FechaEnvio *time.Time
}

// Activo reports whether the document counts against its owner's quota.
// Both pending and sent documents occupy a slot.
func (d *Documento) Activo() bool {
	return d.Estado == EstadoPendiente || d.Estado == EstadoEnviado
}
