// Package rendicion implements the post-award expense report. One rendición
// exists per selected application, created lazily and idempotently. Its
// digital and physical documentation tracks carry independent statuses, and
// every actor action lands in an append-only event log on the aggregate.
package rendicion

import (
	"time"

	id "convocatorias/pkg/domain"
	dErrors "convocatorias/pkg/domain-errors"
)

// EstadoDigital is the status of the digital documentation track.
type EstadoDigital string

const (
	DigitalBorrador  EstadoDigital = "BORRADOR"
	DigitalEnviado   EstadoDigital = "ENVIADO"
	DigitalObservado EstadoDigital = "OBSERVADO"
	DigitalSubsanado EstadoDigital = "SUBSANADO"
	DigitalAprobado  EstadoDigital = "APROBADO"
	DigitalRechazado EstadoDigital = "RECHAZADO"
)

// digitalTransitions is the closed transition table for the digital track.
var digitalTransitions = map[EstadoDigital][]EstadoDigital{
	DigitalBorrador:  {DigitalEnviado},
	DigitalEnviado:   {DigitalObservado, DigitalAprobado, DigitalRechazado},
	DigitalObservado: {DigitalSubsanado},
	DigitalSubsanado: {DigitalObservado, DigitalAprobado, DigitalRechazado},
}

func (e EstadoDigital) CanTransitionTo(next EstadoDigital) bool {
	for _, allowed := range digitalTransitions[e] {
		if allowed == next {
			return true
		}
	}
	return false
}

// EstadoFisico is the status of the physical paperwork track. It moves
// independently of the digital track.
type EstadoFisico string

const (
	FisicoPendiente EstadoFisico = "PENDIENTE"
	FisicoRecibido  EstadoFisico = "RECIBIDO"
	FisicoObservado EstadoFisico = "OBSERVADO"
	FisicoAprobado  EstadoFisico = "APROBADO"
)

var fisicoTransitions = map[EstadoFisico][]EstadoFisico{
	FisicoPendiente: {FisicoRecibido},
	FisicoRecibido:  {FisicoObservado, FisicoAprobado},
	FisicoObservado: {FisicoRecibido, FisicoAprobado},
}

func (e EstadoFisico) CanTransitionTo(next EstadoFisico) bool {
	for _, allowed := range fisicoTransitions[e] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Evento is one append-only log entry on a rendición.
type Evento struct {
	Fecha   time.Time
	Actor   string
	Accion  string
	Detalle string
}

// Rendicion is the expense report aggregate.
type Rendicion struct {
	ID            id.RendicionID
	PostulacionID id.PostulacionID
	UserID        id.UserID
	FechaCreacion time.Time

	// Digital track.
	LinkDocumentacion  string
	ObservacionUsuario string
	ObservacionAdmin   string
	EstadoDigital      EstadoDigital

	// Physical track.
	EstadoFisico   EstadoFisico
	FechaRecepcion *time.Time

	Eventos []Evento
}

func newRendicion(pid id.PostulacionID, userID id.UserID, now time.Time) *Rendicion {
	return &Rendicion{
		ID:            id.NewRendicionID(),
		PostulacionID: pid,
		UserID:        userID,
		FechaCreacion: now,
		EstadoDigital: DigitalBorrador,
		EstadoFisico:  FisicoPendiente,
	}
}

// Append records an event on the aggregate.
func (r *Rendicion) Append(now time.Time, actor, accion, detalle string) {
	r.Eventos = append(r.Eventos, Evento{Fecha: now, Actor: actor, Accion: accion, Detalle: detalle})
}

// AdvanceDigital validates and applies a digital-track transition.
func (r *Rendicion) AdvanceDigital(next EstadoDigital) error {
	if !r.EstadoDigital.CanTransitionTo(next) {
		return dErrors.Newf(dErrors.CodeInvalidState,
			"rendicion digital cannot move %s -> %s", r.EstadoDigital, next)
	}
	r.EstadoDigital = next
	return nil
}

// AdvanceFisico validates and applies a physical-track transition. The
// receipt date is stamped the first time the paperwork arrives.
func (r *Rendicion) AdvanceFisico(next EstadoFisico, now time.Time) error {
	if !r.EstadoFisico.CanTransitionTo(next) {
		return dErrors.Newf(dErrors.CodeInvalidState,
			"rendicion fisica cannot move %s -> %s", r.EstadoFisico, next)
	}
	r.EstadoFisico = next
	if next == FisicoRecibido && r.FechaRecepcion == nil {
		t := now
		r.FechaRecepcion = &t
	}
	return nil
}

// FullyClosed is a read-only derived view: both tracks approved. No state
// machine couples the tracks; this exists for reporting convenience only.
func (r *Rendicion) FullyClosed() bool {
	return r.EstadoDigital == DigitalAprobado && r.EstadoFisico == FisicoAprobado
}
