package convocatoria

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"convocatorias/internal/registry"
	id "convocatorias/pkg/domain"
	dErrors "convocatorias/pkg/domain-errors"
	"convocatorias/pkg/requestcontext"
)

func registeredUser(t *testing.T, reader *registry.InMemoryReader) id.UserID {
	t.Helper()
	userID := id.NewUserID()
	reader.PutPersonaHumana(&registry.Perfil{
		UserID:         userID,
		NombreCompleto: "Ana Quiroga",
		Email:          "ana@example.org",
	})
	return userID
}

func TestDestinoRouting(t *testing.T) {
	tests := []struct {
		linea Linea
		want  Destino
	}{
		{LineaFomento, DestinoPostulacion},
		{LineaIncentivo, DestinoPostulacion},
		{LineaLibre, DestinoPostulacion},
		{LineaFormacion, DestinoInscripcion},
		{LineaBeneficio, DestinoExencion},
	}
	for _, tt := range tests {
		t.Run(string(tt.linea), func(t *testing.T) {
			c := &Convocatoria{Linea: tt.linea}
			assert.Equal(t, tt.want, c.Destino())
		})
	}
}

func TestAbierta(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	c := &Convocatoria{Abre: now.Add(-time.Hour), Cierra: now.Add(time.Hour)}
	assert.True(t, c.Abierta(now))
	assert.False(t, c.Abierta(now.Add(2*time.Hour)))
	assert.False(t, c.Abierta(now.Add(-2*time.Hour)))

	sinCierre := &Convocatoria{Abre: now.Add(-time.Hour)}
	assert.True(t, sinCierre.Abierta(now.Add(24*365*time.Hour)))
}

func TestNewValidatesLinea(t *testing.T) {
	_, err := New("fomento-2026", "Fomento 2026", "inexistente", time.Now(), time.Time{})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestEnrollIdempotent(t *testing.T) {
	reader := registry.NewInMemoryReader()
	userID := registeredUser(t, reader)
	store := NewInMemory()
	svc := newService(store, reader)

	now := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), now)

	c, err := New("taller-guion", "Taller de guión", LineaFormacion, now.Add(-time.Hour), now.Add(time.Hour))
	require.NoError(t, err)
	require.NoError(t, store.Create(ctx, c))

	first, created, err := svc.Enroll(ctx, userID, c.ID)
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := svc.Enroll(ctx, userID, c.ID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
}

func TestEnrollRejectsWrongDestino(t *testing.T) {
	reader := registry.NewInMemoryReader()
	userID := registeredUser(t, reader)
	store := NewInMemory()
	svc := newService(store, reader)

	now := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), now)

	c, err := New("fomento-2026", "Fomento", LineaFomento, now.Add(-time.Hour), time.Time{})
	require.NoError(t, err)
	require.NoError(t, store.Create(ctx, c))

	_, _, err = svc.Enroll(ctx, userID, c.ID)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestEnrollRequiresRegistration(t *testing.T) {
	store := NewInMemory()
	svc := newService(store, registry.NewInMemoryReader())

	_, _, err := svc.Enroll(context.Background(), id.NewUserID(), id.NewConvocatoriaID())
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotRegistered))
}

// newService builds the service with a gate over the given reader.
func newService(store Store, reader registry.Reader) *Service {
	return NewService(store, registry.NewGate(reader))
}
