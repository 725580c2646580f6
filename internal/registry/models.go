// Package registry reads the public registry of audiovisual workers and
// organizations. The engine only consumes it: profiles gate entry into the
// application and exemption flows and supply the fiscal snapshot frozen
// into each exemption. Nothing here writes registry data.
package registry

import (
	id "convocatorias/pkg/domain"
	"convocatorias/pkg/optional"
)

// TipoPerfil distinguishes the two mutually exclusive registry profiles a
// user account can hold.
type TipoPerfil string

const (
	PerfilHumana   TipoPerfil = "persona_humana"
	PerfilJuridica TipoPerfil = "persona_juridica"
)

// DatosFiscales are the fields the exemption flow requires. Values equal to
// the registry's placeholder literals count as absent.
type DatosFiscales struct {
	SituacionIVA       string
	ActividadDGR       string
	DomicilioFiscal    string
	LocalidadFiscal    string
	CodigoPostalFiscal string
}

// Perfil is the read model the engine sees, regardless of which concrete
// profile backs it.
type Perfil struct {
	UserID id.UserID
	Tipo   TipoPerfil

	// NombreCompleto for personas humanas, RazonSocial for jurídicas.
	NombreCompleto string
	RazonSocial    string
	CUIT           string
	Email          string
	EmailCuenta    string // account email, fallback contact

	Fiscales DatosFiscales
}

// Nombre resolves the display name through the profile-type fallback chain.
func (p *Perfil) Nombre() string {
	return optional.First(p.NombreCompleto, p.RazonSocial)
}

// Contacto resolves the notification address: profile email first, account
// email second.
func (p *Perfil) Contacto() string {
	return optional.First(p.Email, p.EmailCuenta)
}

// fiscalFields pairs each required field name with its current value, in
// the order they are reported when missing.
func (p *Perfil) fiscalFields() []struct{ name, value string } {
	return []struct{ name, value string }{
		{"situacion_iva", p.Fiscales.SituacionIVA},
		{"actividad_dgr", p.Fiscales.ActividadDGR},
		{"domicilio_fiscal", p.Fiscales.DomicilioFiscal},
		{"localidad_fiscal", p.Fiscales.LocalidadFiscal},
		{"codigo_postal_fiscal", p.Fiscales.CodigoPostalFiscal},
	}
}

// MissingFiscalFields returns the names of required fiscal fields that are
// empty or hold a placeholder value. An empty result means the profile is
// fiscally complete.
func (p *Perfil) MissingFiscalFields() []string {
	var missing []string
	for _, f := range p.fiscalFields() {
		if !optional.Present(f.value) {
			missing = append(missing, f.name)
		}
	}
	return missing
}
