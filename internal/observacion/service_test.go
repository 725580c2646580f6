package observacion

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"convocatorias/internal/documento"
	"convocatorias/internal/notify"
	id "convocatorias/pkg/domain"
	dErrors "convocatorias/pkg/domain-errors"
	"convocatorias/pkg/requestcontext"
)

func newTestService(t *testing.T) (*Service, *notify.Recorder) {
	t.Helper()
	links, err := NewLinkBuilder("https://tramites.example.org")
	require.NoError(t, err)
	recorder := notify.NewRecorder()
	return New(NewInMemory(), recorder, links), recorder
}

func testCtx() context.Context {
	return requestcontext.WithTime(context.Background(),
		time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC))
}

func record(owner documento.Owner, oid id.ObservacionID) RecordParams {
	return RecordParams{
		ObservacionID: oid,
		Owner:         owner,
		TipoDocumento: TipoFiscal,
		Descripcion:   "falta constancia de CUIT",
		CreadaPor:     id.NewUserID(),
		Contacto:      "ana@example.org",
	}
}

func TestRecordCreateNotifies(t *testing.T) {
	svc, recorder := newTestService(t)
	owner := documento.PostulacionOwner(id.NewPostulacionID())

	res, err := svc.Record(testCtx(), record(owner, id.ObservacionID{}))
	require.NoError(t, err)
	assert.True(t, res.Notified)
	assert.NoError(t, res.Warning)

	msgs := recorder.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "ana@example.org", msgs[0].To)
	assert.Contains(t, msgs[0].TextBody, "falta constancia de CUIT")
	assert.Contains(t, msgs[0].TextBody,
		"https://tramites.example.org/postulaciones/"+owner.ID.String()+"/subsanar/")
}

func TestRecordUnchangedUpdateDoesNotNotify(t *testing.T) {
	svc, recorder := newTestService(t)
	owner := documento.PostulacionOwner(id.NewPostulacionID())

	created, err := svc.Record(testCtx(), record(owner, id.ObservacionID{}))
	require.NoError(t, err)

	res, err := svc.Record(testCtx(), record(owner, created.Observacion.ID))
	require.NoError(t, err)
	assert.False(t, res.Notified)
	assert.Len(t, recorder.Messages(), 1, "no second notification for a no-op save")
}

func TestRecordMaterialChangeNotifiesAgain(t *testing.T) {
	svc, recorder := newTestService(t)
	owner := documento.PostulacionOwner(id.NewPostulacionID())

	created, err := svc.Record(testCtx(), record(owner, id.ObservacionID{}))
	require.NoError(t, err)

	params := record(owner, created.Observacion.ID)
	params.Descripcion = "falta constancia de CUIT actualizada"
	res, err := svc.Record(testCtx(), params)
	require.NoError(t, err)
	assert.True(t, res.Notified)
	assert.Len(t, recorder.Messages(), 2)
}

func TestRecordResolvedNeverNotifies(t *testing.T) {
	svc, recorder := newTestService(t)
	owner := documento.PostulacionOwner(id.NewPostulacionID())

	created, err := svc.Record(testCtx(), record(owner, id.ObservacionID{}))
	require.NoError(t, err)

	n, err := svc.ResolveAll(testCtx(), owner)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	params := record(owner, created.Observacion.ID)
	params.Descripcion = "otra cosa"
	res, err := svc.Record(testCtx(), params)
	require.NoError(t, err)
	assert.False(t, res.Notified)
	assert.Len(t, recorder.Messages(), 1)
}

func TestRecordDeliveryFailureIsAWarning(t *testing.T) {
	svc, recorder := newTestService(t)
	owner := documento.PostulacionOwner(id.NewPostulacionID())
	recorder.FailWith(errors.New("smtp down"))

	res, err := svc.Record(testCtx(), record(owner, id.ObservacionID{}))
	require.NoError(t, err, "the observation must persist despite the delivery failure")
	assert.False(t, res.Notified)
	assert.True(t, dErrors.HasCode(res.Warning, dErrors.CodeNotificationFailed))

	open, err := svc.ListOpen(testCtx(), owner)
	require.NoError(t, err)
	assert.Len(t, open, 1)
}

func TestRecordEmptyContactSkipsDispatch(t *testing.T) {
	svc, recorder := newTestService(t)
	owner := documento.PostulacionOwner(id.NewPostulacionID())

	params := record(owner, id.ObservacionID{})
	params.Contacto = ""
	res, err := svc.Record(testCtx(), params)
	require.NoError(t, err)
	assert.False(t, res.Notified)
	assert.NoError(t, res.Warning)
	assert.Empty(t, recorder.Messages())
}

func TestRecordValidation(t *testing.T) {
	svc, _ := newTestService(t)
	owner := documento.PostulacionOwner(id.NewPostulacionID())

	t.Run("unknown tipo", func(t *testing.T) {
		params := record(owner, id.ObservacionID{})
		params.TipoDocumento = "RARO"
		_, err := svc.Record(testCtx(), params)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("missing owner", func(t *testing.T) {
		params := record(documento.Owner{}, id.ObservacionID{})
		_, err := svc.Record(testCtx(), params)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	})
}

func TestResolveAllIsMonotonic(t *testing.T) {
	svc, _ := newTestService(t)
	owner := documento.PostulacionOwner(id.NewPostulacionID())

	for i := 0; i < 3; i++ {
		_, err := svc.Record(testCtx(), RecordParams{
			Owner:         owner,
			TipoDocumento: TipoGeneral,
			Descripcion:   "detalle",
			CreadaPor:     id.NewUserID(),
		})
		require.NoError(t, err)
	}

	n, err := svc.ResolveAll(testCtx(), owner)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	// A second resolution finds nothing open.
	n, err = svc.ResolveAll(testCtx(), owner)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	has, err := svc.HasOpen(testCtx(), owner)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestCorrectionLink(t *testing.T) {
	t.Run("absolute with base URL", func(t *testing.T) {
		links, err := NewLinkBuilder("https://tramites.example.org/app/")
		require.NoError(t, err)
		eid := id.NewExencionID()
		got := links.CorrectionLink(documento.ExencionOwner(eid))
		assert.Equal(t, "https://tramites.example.org/app/exencion/"+eid.String()+"/subsanar/", got)
	})

	t.Run("relative without base URL", func(t *testing.T) {
		links, err := NewLinkBuilder("")
		require.NoError(t, err)
		pid := id.NewPostulacionID()
		got := links.CorrectionLink(documento.PostulacionOwner(pid))
		assert.Equal(t, "/postulaciones/"+pid.String()+"/subsanar/", got)
	})

	t.Run("garbage base URL is rejected", func(t *testing.T) {
		_, err := NewLinkBuilder("::not-a-url")
		assert.Error(t, err)
	})
}
