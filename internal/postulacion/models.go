// Package postulacion owns the application lifecycle. Estado is a closed
// enumeration; every legal move goes through a named transition on the
// model so call sites never compare status strings.
package postulacion

import (
	"time"

	"convocatorias/internal/convocatoria"
	id "convocatorias/pkg/domain"
	dErrors "convocatorias/pkg/domain-errors"
)

// Estado is the application status.
type Estado string

const (
	EstadoBorrador         Estado = "borrador"
	EstadoEnviado          Estado = "enviado"
	EstadoRevisionAdmin    Estado = "revision_admin"
	EstadoObservado        Estado = "observado"
	EstadoAdmitido         Estado = "admitido"
	EstadoEvaluacionJurado Estado = "evaluacion_jurado"
	EstadoSeleccionado     Estado = "seleccionado"
	EstadoNoSeleccionado   Estado = "no_seleccionado"
	EstadoFinalizado       Estado = "finalizado"
)

// transitions is the closed transition table. Anything absent is illegal.
var transitions = map[Estado][]Estado{
	EstadoBorrador:         {EstadoEnviado},
	EstadoEnviado:          {EstadoRevisionAdmin},
	EstadoRevisionAdmin:    {EstadoObservado, EstadoAdmitido},
	EstadoObservado:        {EstadoRevisionAdmin},
	EstadoAdmitido:         {EstadoEvaluacionJurado},
	EstadoEvaluacionJurado: {EstadoSeleccionado, EstadoNoSeleccionado},
	EstadoSeleccionado:     {EstadoFinalizado},
}

func (e Estado) CanTransitionTo(next Estado) bool {
	for _, allowed := range transitions[e] {
		if allowed == next {
			return true
		}
	}
	return false
}

// DatosProyecto are the applicant-provided project fields. Mandatory before
// leaving draft unless the owning call's line is libre.
type DatosProyecto struct {
	NombreProyecto  string
	TipoProyecto    string
	Genero          string
	DuracionMinutos int
}

// Postulacion is one applicant's submission against one call. One row per
// (user, convocatoria); never hard-deleted.
type Postulacion struct {
	ID             id.PostulacionID
	UserID         id.UserID
	ConvocatoriaID id.ConvocatoriaID
	Linea          convocatoria.Linea

	DatosProyecto
	DeclaracionJurada bool

	Estado        Estado
	FechaCreacion time.Time
	// FechaEnvio is stamped exactly once, on the first borrador→enviado
	// transition, and never altered afterwards.
	FechaEnvio *time.Time
}

func newPostulacion(userID id.UserID, conv *convocatoria.Convocatoria, datos DatosProyecto, declaracion bool, now time.Time) (*Postulacion, error) {
	p := &Postulacion{
		ID:                id.NewPostulacionID(),
		UserID:            userID,
		ConvocatoriaID:    conv.ID,
		Linea:             conv.Linea,
		DatosProyecto:     datos,
		DeclaracionJurada: declaracion,
		Estado:            EstadoBorrador,
		FechaCreacion:     now,
	}
	return p, nil
}

// missingProjectFields names the empty mandatory project fields, nil when
// the line waives them.
func (p *Postulacion) missingProjectFields() []string {
	if !p.Linea.RequiereProyecto() {
		return nil
	}
	var missing []string
	if p.NombreProyecto == "" {
		missing = append(missing, "nombre_proyecto")
	}
	if p.TipoProyecto == "" {
		missing = append(missing, "tipo_proyecto")
	}
	if p.Genero == "" {
		missing = append(missing, "genero")
	}
	return missing
}

// checkTransition enforces the table plus the project-fields guard that
// protects every state beyond draft.
func (p *Postulacion) checkTransition(next Estado) error {
	if !p.Estado.CanTransitionTo(next) {
		return dErrors.Newf(dErrors.CodeInvalidState,
			"postulacion cannot move %s -> %s", p.Estado, next)
	}
	if missing := p.missingProjectFields(); len(missing) > 0 {
		return dErrors.New(dErrors.CodeValidation, "project fields required before leaving draft").
			WithField("missing_fields", missing)
	}
	return nil
}

// CanSubmit validates borrador→enviado without applying it.
func (p *Postulacion) CanSubmit() error {
	return p.checkTransition(EstadoEnviado)
}

// ApplySubmit flips to enviado and stamps FechaEnvio if still unset.
// Defensive: an already-set value is never overwritten.
func (p *Postulacion) ApplySubmit(now time.Time) {
	p.Estado = EstadoEnviado
	if p.FechaEnvio == nil {
		t := now
		p.FechaEnvio = &t
	}
}

// StartReview moves a submitted or corrected application under
// administrative review.
func (p *Postulacion) StartReview() error {
	if err := p.checkTransition(EstadoRevisionAdmin); err != nil {
		return err
	}
	p.Estado = EstadoRevisionAdmin
	return nil
}

// Observe parks the application until the applicant corrects.
func (p *Postulacion) Observe() error {
	if err := p.checkTransition(EstadoObservado); err != nil {
		return err
	}
	p.Estado = EstadoObservado
	return nil
}

// Admit clears administrative review.
func (p *Postulacion) Admit() error {
	if err := p.checkTransition(EstadoAdmitido); err != nil {
		return err
	}
	p.Estado = EstadoAdmitido
	return nil
}

// SendToJury hands the application to jury evaluation.
func (p *Postulacion) SendToJury() error {
	if err := p.checkTransition(EstadoEvaluacionJurado); err != nil {
		return err
	}
	p.Estado = EstadoEvaluacionJurado
	return nil
}

// Decide records the jury outcome.
func (p *Postulacion) Decide(selected bool) error {
	next := EstadoSeleccionado
	if !selected {
		next = EstadoNoSeleccionado
	}
	if err := p.checkTransition(next); err != nil {
		return err
	}
	p.Estado = next
	return nil
}

// Finalize closes a selected application once its expense report is done.
func (p *Postulacion) Finalize() error {
	if err := p.checkTransition(EstadoFinalizado); err != nil {
		return err
	}
	p.Estado = EstadoFinalizado
	return nil
}
