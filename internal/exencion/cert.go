package exencion

import (
	"context"
	"fmt"
	"time"

	"convocatorias/internal/blob"
	"convocatorias/internal/render"
	dErrors "convocatorias/pkg/domain-errors"
)

// constanciaTemplate names the certificate template the renderer resolves.
const constanciaTemplate = "constancia_exencion"

// Issuer produces the constancia PDF for an approved exemption. It is
// retry-safe: every run renders from the exemption's frozen data and
// replaces the previous artifact. It never touches estado, number, or dates;
// those belong to the approval transition.
type Issuer struct {
	renderer render.Renderer
	blobs    blob.Store
}

func NewIssuer(renderer render.Renderer, blobs blob.Store) *Issuer {
	return &Issuer{renderer: renderer, blobs: blobs}
}

// Issue renders the certificate and stores it, returning the new locator and
// the bytes for mail attachment. The caller persists the locator.
func (i *Issuer) Issue(ctx context.Context, e *Exencion) (blob.Locator, []byte, error) {
	if e.Estado != EstadoAprobada || e.FechaEmision == nil || e.FechaVencimiento == nil {
		return "", nil, dErrors.New(dErrors.CodeInvalidState, "constancia requires an approved exemption")
	}

	data := render.Context{
		"numero":               e.NumeroConstancia,
		"nombre":               e.Nombre,
		"cuit":                 e.CUIT,
		"situacion_iva":        e.SituacionIVA,
		"actividad_dgr":        e.ActividadDGR,
		"domicilio_fiscal":     e.DomicilioFiscal,
		"localidad_fiscal":     e.LocalidadFiscal,
		"codigo_postal_fiscal": e.CodigoPostalFiscal,
		"fecha_emision":        e.FechaEmision.Format(time.DateOnly),
		"fecha_vencimiento":    e.FechaVencimiento.Format(time.DateOnly),
	}
	pdf, err := i.renderer.Render(ctx, constanciaTemplate, data)
	if err != nil {
		return "", nil, dErrors.Wrap(err, dErrors.CodeArtifactFailed, "failed to render constancia")
	}

	loc, err := i.blobs.Store(ctx, ArtifactName(e), pdf)
	if err != nil {
		return "", nil, dErrors.Wrap(err, dErrors.CodeArtifactFailed, "failed to store constancia")
	}
	// Drop the superseded artifact. Losing this delete only leaks storage.
	if prev := blob.Locator(e.ConstanciaLocator); prev != "" && prev != loc {
		_ = i.blobs.Delete(ctx, prev)
	}
	return loc, pdf, nil
}

// ArtifactName is the stable file name of the exemption's certificate.
func ArtifactName(e *Exencion) string {
	return fmt.Sprintf("constancia-%s.pdf", e.NumeroConstancia)
}
