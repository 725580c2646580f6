// Package observacion implements administrative correction requests and the
// notification rule attached to them: an applicant hears about an
// observation exactly once per material change, and a resolved observation
// never reopens.
package observacion

import (
	"time"

	"convocatorias/internal/documento"
	id "convocatorias/pkg/domain"
	dErrors "convocatorias/pkg/domain-errors"
)

// TipoDocumento is the documentation category an observation targets.
type TipoDocumento string

const (
	TipoGeneral   TipoDocumento = "GENERAL"
	TipoFiscal    TipoDocumento = "FISCAL"
	TipoIdentidad TipoDocumento = "IDENTIDAD"
	TipoProyecto  TipoDocumento = "PROYECTO"
	TipoAdmin     TipoDocumento = "ADMIN"
	TipoOtro      TipoDocumento = "OTRO"
)

func (t TipoDocumento) Valid() bool {
	switch t {
	case TipoGeneral, TipoFiscal, TipoIdentidad, TipoProyecto, TipoAdmin, TipoOtro:
		return true
	}
	return false
}

// Observacion is one correction request against an application or
// exemption. Subsanada moves false→true only, via a confirmed correction
// batch.
type Observacion struct {
	ID            id.ObservacionID
	Owner         documento.Owner
	TipoDocumento TipoDocumento
	Descripcion   string
	CreadaPor     id.UserID
	FechaCreacion time.Time
	Subsanada     bool
}

// materialEquals reports whether the notification-relevant triple matches.
// Re-saving with an identical triple must not re-notify the applicant.
func (o *Observacion) materialEquals(tipo TipoDocumento, descripcion string, subsanada bool) bool {
	return o.TipoDocumento == tipo && o.Descripcion == descripcion && o.Subsanada == subsanada
}

func validate(tipo TipoDocumento, descripcion string) error {
	if !tipo.Valid() {
		return dErrors.Newf(dErrors.CodeValidation, "unknown tipo_documento %q", tipo)
	}
	if descripcion == "" {
		return dErrors.New(dErrors.CodeValidation, "descripcion is required")
	}
	if len(descripcion) > 255 {
		return dErrors.New(dErrors.CodeValidation, "descripcion must be 255 characters or less")
	}
	return nil
}
