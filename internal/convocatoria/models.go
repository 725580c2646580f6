// Package convocatoria models published funding calls. A call defines its
// funding line, an open/close window, and whether applying means the full
// project form or a simple enrollment.
package convocatoria

import (
	"time"

	id "convocatorias/pkg/domain"
	dErrors "convocatorias/pkg/domain-errors"
)

// Linea is the funding line of a call. It decides the entry flow: formación
// enrolls directly, beneficio routes to the exemption flow, the rest open a
// project application. The libre line waives the project fields.
type Linea string

const (
	LineaFomento   Linea = "fomento"
	LineaBeneficio Linea = "beneficio"
	LineaFormacion Linea = "formacion"
	LineaIncentivo Linea = "incentivo"
	LineaLibre     Linea = "libre"
)

func (l Linea) Valid() bool {
	switch l {
	case LineaFomento, LineaBeneficio, LineaFormacion, LineaIncentivo, LineaLibre:
		return true
	}
	return false
}

// RequiereProyecto reports whether applications under this line must carry
// project name, type, and genre before leaving draft.
func (l Linea) RequiereProyecto() bool {
	return l != LineaLibre
}

// Destino is the entry flow a call routes applicants into.
type Destino string

const (
	DestinoPostulacion Destino = "postulacion"
	DestinoInscripcion Destino = "inscripcion"
	DestinoExencion    Destino = "exencion"
)

// Convocatoria is a published call. Immutable once published except
// administrative edits; it owns many applications.
type Convocatoria struct {
	ID     id.ConvocatoriaID
	Slug   string
	Titulo string
	Linea  Linea
	Abre   time.Time
	Cierra time.Time
	Orden  int
}

// Abierta reports whether the call accepts entries at the given instant.
// A zero Cierra means the call has no closing date.
func (c *Convocatoria) Abierta(now time.Time) bool {
	if now.Before(c.Abre) {
		return false
	}
	return c.Cierra.IsZero() || now.Before(c.Cierra)
}

// Destino resolves which flow an applicant entering this call lands in.
func (c *Convocatoria) Destino() Destino {
	switch c.Linea {
	case LineaFormacion:
		return DestinoInscripcion
	case LineaBeneficio:
		return DestinoExencion
	default:
		return DestinoPostulacion
	}
}

func New(slug, titulo string, linea Linea, abre, cierra time.Time) (*Convocatoria, error) {
	if slug == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "slug is required")
	}
	if !linea.Valid() {
		return nil, dErrors.Newf(dErrors.CodeValidation, "unknown linea %q", linea)
	}
	return &Convocatoria{
		ID:     id.NewConvocatoriaID(),
		Slug:   slug,
		Titulo: titulo,
		Linea:  linea,
		Abre:   abre,
		Cierra: cierra,
	}, nil
}

// Inscripcion is the simple enrollment row for formación calls. One per
// (user, call), created idempotently.
type Inscripcion struct {
	ID             id.InscripcionID
	UserID         id.UserID
	ConvocatoriaID id.ConvocatoriaID
	FechaCreacion  time.Time
}
