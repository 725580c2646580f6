// Package exencion implements the fiscal exemption benefit. An exemption is
// created directly in ENVIADA with the applicant's fiscal data frozen at
// entry time; later registry edits never alter an existing request. Approval
// assigns a sequential constancia number valid for one year.
package exencion

import (
	"fmt"
	"time"

	"convocatorias/internal/registry"
	id "convocatorias/pkg/domain"
	dErrors "convocatorias/pkg/domain-errors"
	"convocatorias/pkg/optional"
)

// Estado is the exemption status. ENVIADA is the entry state; both outcomes
// are terminal.
type Estado string

const (
	EstadoEnviada   Estado = "ENVIADA"
	EstadoAprobada  Estado = "APROBADA"
	EstadoRechazada Estado = "RECHAZADA"
)

// numeroFormato is the constancia number layout over the assigned serial.
const numeroFormato = "FRC-75-%05d"

// Snapshot is the applicant data frozen into the exemption at creation.
type Snapshot struct {
	Nombre string
	CUIT   string
	Email  string
	registry.DatosFiscales
}

// MissingFields names the empty identity and fiscal fields of the frozen
// snapshot, in report order. Placeholder values count as absent.
func (s Snapshot) MissingFields() []string {
	fields := []struct{ name, value string }{
		{"nombre", s.Nombre},
		{"cuit", s.CUIT},
		{"situacion_iva", s.SituacionIVA},
		{"actividad_dgr", s.ActividadDGR},
		{"domicilio_fiscal", s.DomicilioFiscal},
		{"localidad_fiscal", s.LocalidadFiscal},
		{"codigo_postal_fiscal", s.CodigoPostalFiscal},
	}
	var missing []string
	for _, f := range fields {
		if !optional.Present(f.value) {
			missing = append(missing, f.name)
		}
	}
	return missing
}

// Exencion is the exemption request aggregate.
type Exencion struct {
	ID             id.ExencionID
	UserID         id.UserID
	ConvocatoriaID id.ConvocatoriaID

	Snapshot

	Estado        Estado
	Motivo        string // rejection reason, empty otherwise
	FechaCreacion time.Time

	// Set on approval, never modified afterwards.
	NumeroConstancia string
	FechaEmision     *time.Time
	FechaVencimiento *time.Time

	// ConstanciaLocator points at the latest issued certificate artifact.
	// Reissues replace it; the approval fields above stay put.
	ConstanciaLocator string
}

func newExencion(userID id.UserID, cid id.ConvocatoriaID, snap Snapshot, now time.Time) *Exencion {
	return &Exencion{
		ID:             id.NewExencionID(),
		UserID:         userID,
		ConvocatoriaID: cid,
		Snapshot:       snap,
		Estado:         EstadoEnviada,
		FechaCreacion:  now,
	}
}

// Aprobar transitions ENVIADA to APROBADA, assigns the constancia number
// from the serial, and stamps emission and expiry. Expiry is one calendar
// year after emission; time.AddDate rolls a Feb 29 emission over to Mar 1.
func (e *Exencion) Aprobar(serial int, now time.Time) error {
	if e.Estado != EstadoEnviada {
		return dErrors.Newf(dErrors.CodeInvalidState,
			"exencion cannot be approved from %s", e.Estado)
	}
	e.Estado = EstadoAprobada
	e.NumeroConstancia = fmt.Sprintf(numeroFormato, serial)
	emision := now
	vencimiento := emision.AddDate(1, 0, 0)
	e.FechaEmision = &emision
	e.FechaVencimiento = &vencimiento
	return nil
}

// Rechazar transitions ENVIADA to RECHAZADA with the stated reason.
func (e *Exencion) Rechazar(motivo string) error {
	if e.Estado != EstadoEnviada {
		return dErrors.Newf(dErrors.CodeInvalidState,
			"exencion cannot be rejected from %s", e.Estado)
	}
	if motivo == "" {
		return dErrors.New(dErrors.CodeValidation, "rejection reason is required")
	}
	e.Estado = EstadoRechazada
	e.Motivo = motivo
	return nil
}

// Vigente reports whether the constancia is currently valid: approved and
// not yet expired at the given instant.
func (e *Exencion) Vigente(now time.Time) bool {
	return e.Estado == EstadoAprobada &&
		e.FechaVencimiento != nil &&
		now.Before(*e.FechaVencimiento)
}
