package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "convocatorias/pkg/domain"
	dErrors "convocatorias/pkg/domain-errors"
)

func completeFiscales() DatosFiscales {
	return DatosFiscales{
		SituacionIVA:       "Responsable Inscripto",
		ActividadDGR:       "900001",
		DomicilioFiscal:    "Av. Corrientes 1234",
		LocalidadFiscal:    "Rosario",
		CodigoPostalFiscal: "2000",
	}
}

func TestGateProfileNotRegistered(t *testing.T) {
	gate := NewGate(NewInMemoryReader())

	_, err := gate.Profile(context.Background(), id.NewUserID())
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotRegistered))
}

func TestGateProfileRequiresUser(t *testing.T) {
	gate := NewGate(NewInMemoryReader())

	_, err := gate.Profile(context.Background(), id.UserID{})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func TestGateProfilePrefersPersonaHumana(t *testing.T) {
	reader := NewInMemoryReader()
	userID := id.NewUserID()
	reader.PutPersonaJuridica(&Perfil{UserID: userID, RazonSocial: "Productora SA"})
	reader.PutPersonaHumana(&Perfil{UserID: userID, NombreCompleto: "Ana Quiroga"})

	p, err := NewGate(reader).Profile(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, PerfilHumana, p.Tipo)
	assert.Equal(t, "Ana Quiroga", p.Nombre())
}

func TestGateProfileFallsBackToJuridica(t *testing.T) {
	reader := NewInMemoryReader()
	userID := id.NewUserID()
	reader.PutPersonaJuridica(&Perfil{UserID: userID, RazonSocial: "Productora SA"})

	p, err := NewGate(reader).Profile(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, PerfilJuridica, p.Tipo)
	assert.Equal(t, "Productora SA", p.Nombre())
}

func TestFiscalComplete(t *testing.T) {
	gate := NewGate(NewInMemoryReader())

	t.Run("complete profile passes", func(t *testing.T) {
		p := &Perfil{Fiscales: completeFiscales()}
		assert.NoError(t, gate.FiscalComplete(p))
	})

	t.Run("placeholder values count as missing", func(t *testing.T) {
		fiscales := completeFiscales()
		fiscales.ActividadDGR = "ninguna"
		fiscales.CodigoPostalFiscal = "  "
		p := &Perfil{Fiscales: fiscales}

		err := gate.FiscalComplete(p)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeIncompleteFiscalData))
		assert.ElementsMatch(t,
			[]string{"actividad_dgr", "codigo_postal_fiscal"},
			dErrors.FieldsOf(err)["missing_fields"])
	})
}

func TestContactoFallbackChain(t *testing.T) {
	p := &Perfil{Email: "ninguno", EmailCuenta: "cuenta@example.org"}
	assert.Equal(t, "cuenta@example.org", p.Contacto())

	p.Email = "perfil@example.org"
	assert.Equal(t, "perfil@example.org", p.Contacto())
}
