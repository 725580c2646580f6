package rendicion

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "convocatorias/pkg/domain"
	dErrors "convocatorias/pkg/domain-errors"
	"convocatorias/pkg/requestcontext"
)

func testCtx() context.Context {
	return requestcontext.WithTime(context.Background(),
		time.Date(2026, 7, 1, 11, 0, 0, 0, time.UTC))
}

func TestEnsureForPostulacionIsIdempotent(t *testing.T) {
	svc := New(NewInMemory())
	pid := id.NewPostulacionID()
	userID := id.NewUserID()

	first, created, err := svc.EnsureForPostulacion(testCtx(), pid, userID)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, DigitalBorrador, first.EstadoDigital)
	assert.Equal(t, FisicoPendiente, first.EstadoFisico)
	require.Len(t, first.Eventos, 1)
	assert.Equal(t, "creacion", first.Eventos[0].Accion)

	second, created, err := svc.EnsureForPostulacion(testCtx(), pid, userID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
}

func TestEnsureForPostulacionResyncsUser(t *testing.T) {
	svc := New(NewInMemory())
	pid := id.NewPostulacionID()

	_, _, err := svc.EnsureForPostulacion(testCtx(), pid, id.NewUserID())
	require.NoError(t, err)

	nuevo := id.NewUserID()
	r, created, err := svc.EnsureForPostulacion(testCtx(), pid, nuevo)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, nuevo, r.UserID)
	require.Len(t, r.Eventos, 2)
	assert.Equal(t, "resync_usuario", r.Eventos[1].Accion)
}

func TestDigitalTrackLifecycle(t *testing.T) {
	svc := New(NewInMemory())
	pid := id.NewPostulacionID()
	userID := id.NewUserID()
	admin := id.NewUserID()

	r, _, err := svc.EnsureForPostulacion(testCtx(), pid, userID)
	require.NoError(t, err)

	t.Run("submission requires a link", func(t *testing.T) {
		_, err := svc.SubmitDigital(testCtx(), r.ID, userID, "", "")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("stranger cannot submit", func(t *testing.T) {
		_, err := svc.SubmitDigital(testCtx(), r.ID, id.NewUserID(), "https://drive.example/x", "")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	t.Run("first submission lands in ENVIADO", func(t *testing.T) {
		got, err := svc.SubmitDigital(testCtx(), r.ID, userID, "https://drive.example/x", "adjunto facturas")
		require.NoError(t, err)
		assert.Equal(t, DigitalEnviado, got.EstadoDigital)
		assert.Equal(t, "https://drive.example/x", got.LinkDocumentacion)
	})

	t.Run("observation and resubmission land in SUBSANADO", func(t *testing.T) {
		got, err := svc.ObserveDigital(testCtx(), r.ID, admin, "faltan comprobantes")
		require.NoError(t, err)
		assert.Equal(t, DigitalObservado, got.EstadoDigital)
		assert.Equal(t, "faltan comprobantes", got.ObservacionAdmin)

		got, err = svc.SubmitDigital(testCtx(), r.ID, userID, "https://drive.example/y", "")
		require.NoError(t, err)
		assert.Equal(t, DigitalSubsanado, got.EstadoDigital)
	})

	t.Run("approval closes the track", func(t *testing.T) {
		got, err := svc.ResolveDigital(testCtx(), r.ID, admin, true)
		require.NoError(t, err)
		assert.Equal(t, DigitalAprobado, got.EstadoDigital)

		// Terminal: no further moves.
		_, err = svc.ObserveDigital(testCtx(), r.ID, admin, "tarde")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))
	})
}

func TestFisicoTrackIsIndependent(t *testing.T) {
	svc := New(NewInMemory())
	pid := id.NewPostulacionID()
	userID := id.NewUserID()
	admin := id.NewUserID()

	r, _, err := svc.EnsureForPostulacion(testCtx(), pid, userID)
	require.NoError(t, err)

	// The physical paperwork can move while the digital track sits in draft.
	got, err := svc.AdvanceFisico(testCtx(), r.ID, admin, FisicoRecibido)
	require.NoError(t, err)
	assert.Equal(t, FisicoRecibido, got.EstadoFisico)
	assert.Equal(t, DigitalBorrador, got.EstadoDigital)
	require.NotNil(t, got.FechaRecepcion)
	primera := *got.FechaRecepcion

	// Observed paperwork coming back does not restamp the receipt date.
	_, err = svc.AdvanceFisico(testCtx(), r.ID, admin, FisicoObservado)
	require.NoError(t, err)
	got, err = svc.AdvanceFisico(testCtx(), r.ID, admin, FisicoRecibido)
	require.NoError(t, err)
	assert.Equal(t, primera, *got.FechaRecepcion)

	t.Run("illegal jump is rejected", func(t *testing.T) {
		_, err := svc.AdvanceFisico(testCtx(), r.ID, admin, FisicoPendiente)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))
	})
}

func TestFullyClosed(t *testing.T) {
	svc := New(NewInMemory())
	pid := id.NewPostulacionID()
	userID := id.NewUserID()
	admin := id.NewUserID()

	r, _, err := svc.EnsureForPostulacion(testCtx(), pid, userID)
	require.NoError(t, err)

	_, err = svc.SubmitDigital(testCtx(), r.ID, userID, "https://drive.example/x", "")
	require.NoError(t, err)
	got, err := svc.ResolveDigital(testCtx(), r.ID, admin, true)
	require.NoError(t, err)
	assert.False(t, got.FullyClosed(), "digital alone does not close the rendicion")

	_, err = svc.AdvanceFisico(testCtx(), r.ID, admin, FisicoRecibido)
	require.NoError(t, err)
	got, err = svc.AdvanceFisico(testCtx(), r.ID, admin, FisicoAprobado)
	require.NoError(t, err)
	assert.True(t, got.FullyClosed())
}

func TestGetByPostulacion(t *testing.T) {
	svc := New(NewInMemory())
	pid := id.NewPostulacionID()

	_, err := svc.Get(testCtx(), pid)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))

	_, _, err = svc.EnsureForPostulacion(testCtx(), pid, id.NewUserID())
	require.NoError(t, err)

	r, err := svc.Get(testCtx(), pid)
	require.NoError(t, err)
	assert.Equal(t, pid, r.PostulacionID)
}
