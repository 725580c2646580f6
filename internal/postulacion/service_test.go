package postulacion

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"convocatorias/internal/blob"
	"convocatorias/internal/convocatoria"
	"convocatorias/internal/documento"
	"convocatorias/internal/notify"
	"convocatorias/internal/observacion"
	"convocatorias/internal/platform/config"
	"convocatorias/internal/registry"
	"convocatorias/internal/rendicion"
	id "convocatorias/pkg/domain"
	dErrors "convocatorias/pkg/domain-errors"
	"convocatorias/pkg/requestcontext"
)

var fixedNow = time.Date(2026, 8, 3, 10, 0, 0, 0, time.UTC)

type fixture struct {
	svc         *Service
	docs        *documento.Service
	rendiciones *rendicion.Service
	recorder    *notify.Recorder
	reader      *registry.InMemoryReader
	calls       *convocatoria.InMemory
	userID      id.UserID
	conv        *convocatoria.Convocatoria
}

func newFixture(t *testing.T, linea convocatoria.Linea) *fixture {
	t.Helper()

	reader := registry.NewInMemoryReader()
	userID := id.NewUserID()
	reader.PutPersonaHumana(&registry.Perfil{
		UserID:         userID,
		NombreCompleto: "Ana Quiroga",
		Email:          "ana@example.org",
	})
	gate := registry.NewGate(reader)

	calls := convocatoria.NewInMemory()
	conv, err := convocatoria.New("conv-2026", "Convocatoria 2026", linea,
		fixedNow.Add(-24*time.Hour), fixedNow.Add(24*time.Hour))
	require.NoError(t, err)
	require.NoError(t, calls.Create(context.Background(), conv))

	docs := documento.New(documento.NewInMemory(), blob.NewInMemory(), config.DefaultDocumentPolicy())
	recorder := notify.NewRecorder()
	links, err := observacion.NewLinkBuilder("")
	require.NoError(t, err)
	observations := observacion.New(observacion.NewInMemory(), recorder, links)
	rendiciones := rendicion.New(rendicion.NewInMemory())

	return &fixture{
		svc:         New(NewInMemory(), calls, gate, docs, observations, rendiciones),
		docs:        docs,
		rendiciones: rendiciones,
		recorder:    recorder,
		reader:      reader,
		calls:       calls,
		userID:      userID,
		conv:        conv,
	}
}

func (f *fixture) ctx() context.Context {
	ctx := requestcontext.WithUserID(context.Background(), f.userID)
	return requestcontext.WithTime(ctx, fixedNow)
}

func datosCompletos() DatosProyecto {
	return DatosProyecto{
		NombreProyecto:  "Mar adentro",
		TipoProyecto:    "largometraje",
		Genero:          "documental",
		DuracionMinutos: 80,
	}
}

// draft creates a draft with complete data and a pending PROYECTO document.
func (f *fixture) draft(t *testing.T) *Postulacion {
	t.Helper()
	p, err := f.svc.Create(f.ctx(), f.userID, f.conv.ID, datosCompletos(), true)
	require.NoError(t, err)
	_, err = f.docs.Upload(f.ctx(), documento.PostulacionOwner(p.ID),
		documento.TipoProyecto, "", documento.Upload{Nombre: "guion.pdf", Data: []byte("pdf")})
	require.NoError(t, err)
	return p
}

func (f *fixture) submitted(t *testing.T) *Postulacion {
	t.Helper()
	p := f.draft(t)
	p, err := f.svc.Submit(f.ctx(), p.ID, f.userID)
	require.NoError(t, err)
	return p
}

func TestCreate(t *testing.T) {
	f := newFixture(t, convocatoria.LineaFomento)

	t.Run("happy path", func(t *testing.T) {
		p, err := f.svc.Create(f.ctx(), f.userID, f.conv.ID, datosCompletos(), true)
		require.NoError(t, err)
		assert.Equal(t, EstadoBorrador, p.Estado)
		assert.Nil(t, p.FechaEnvio)
	})

	t.Run("second application to the same call conflicts", func(t *testing.T) {
		_, err := f.svc.Create(f.ctx(), f.userID, f.conv.ID, datosCompletos(), true)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})

	t.Run("unregistered user is gated", func(t *testing.T) {
		_, err := f.svc.Create(f.ctx(), id.NewUserID(), f.conv.ID, datosCompletos(), true)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotRegistered))
	})
}

func TestCreateRejectsClosedCall(t *testing.T) {
	f := newFixture(t, convocatoria.LineaFomento)
	late := requestcontext.WithTime(
		requestcontext.WithUserID(context.Background(), f.userID),
		fixedNow.Add(48*time.Hour))

	_, err := f.svc.Create(late, f.userID, f.conv.ID, datosCompletos(), true)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestCreateRejectsNonPostulacionCall(t *testing.T) {
	f := newFixture(t, convocatoria.LineaFormacion)
	_, err := f.svc.Create(f.ctx(), f.userID, f.conv.ID, DatosProyecto{}, false)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestSubmit(t *testing.T) {
	t.Run("stamps fecha_envio once and confirms the batch", func(t *testing.T) {
		f := newFixture(t, convocatoria.LineaFomento)
		p := f.draft(t)

		p, err := f.svc.Submit(f.ctx(), p.ID, f.userID)
		require.NoError(t, err)
		assert.Equal(t, EstadoEnviado, p.Estado)
		require.NotNil(t, p.FechaEnvio)
		assert.Equal(t, fixedNow, *p.FechaEnvio)

		sent, err := f.docs.CountSent(f.ctx(), documento.PostulacionOwner(p.ID), documento.TipoProyecto)
		require.NoError(t, err)
		assert.Equal(t, 1, sent)
	})

	t.Run("requires a pending project document", func(t *testing.T) {
		f := newFixture(t, convocatoria.LineaFomento)
		p, err := f.svc.Create(f.ctx(), f.userID, f.conv.ID, datosCompletos(), true)
		require.NoError(t, err)

		_, err = f.svc.Submit(f.ctx(), p.ID, f.userID)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))
	})

	t.Run("requires the sworn declaration", func(t *testing.T) {
		f := newFixture(t, convocatoria.LineaFomento)
		p, err := f.svc.Create(f.ctx(), f.userID, f.conv.ID, datosCompletos(), false)
		require.NoError(t, err)

		_, err = f.svc.Submit(f.ctx(), p.ID, f.userID)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("requires complete project fields", func(t *testing.T) {
		f := newFixture(t, convocatoria.LineaFomento)
		datos := datosCompletos()
		datos.Genero = ""
		p, err := f.svc.Create(f.ctx(), f.userID, f.conv.ID, datos, true)
		require.NoError(t, err)

		_, err = f.svc.Submit(f.ctx(), p.ID, f.userID)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		assert.Contains(t, dErrors.FieldsOf(err)["missing_fields"], "genero")
	})

	t.Run("linea libre waives project fields and documents", func(t *testing.T) {
		f := newFixture(t, convocatoria.LineaLibre)
		p, err := f.svc.Create(f.ctx(), f.userID, f.conv.ID, DatosProyecto{}, false)
		require.NoError(t, err)

		p, err = f.svc.Submit(f.ctx(), p.ID, f.userID)
		require.NoError(t, err)
		assert.Equal(t, EstadoEnviado, p.Estado)
	})

	t.Run("stranger cannot submit", func(t *testing.T) {
		f := newFixture(t, convocatoria.LineaFomento)
		p := f.draft(t)
		_, err := f.svc.Submit(f.ctx(), p.ID, id.NewUserID())
		assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}

func TestUpdateDatosOnlyInDraft(t *testing.T) {
	f := newFixture(t, convocatoria.LineaFomento)
	p := f.submitted(t)

	_, err := f.svc.UpdateDatos(f.ctx(), p.ID, f.userID, datosCompletos(), true)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))
}

func TestObservationRoundTrip(t *testing.T) {
	f := newFixture(t, convocatoria.LineaFomento)
	p := f.submitted(t)

	_, err := f.svc.StartReview(f.ctx(), p.ID)
	require.NoError(t, err)

	res, err := f.svc.Observe(f.ctx(), p.ID, ObserveParams{
		TipoDocumento: observacion.TipoProyecto,
		Descripcion:   "guion ilegible",
		CreadaPor:     id.NewUserID(),
	})
	require.NoError(t, err)
	assert.True(t, res.Notified, "the applicant hears about the first observation")

	got, err := f.svc.Get(f.ctx(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, EstadoObservado, got.Estado)

	// A second observation while parked records without a state change.
	_, err = f.svc.Observe(f.ctx(), p.ID, ObserveParams{
		TipoDocumento: observacion.TipoAdmin,
		Descripcion:   "falta DNI",
		CreadaPor:     id.NewUserID(),
	})
	require.NoError(t, err)

	// Correction: upload the SUBSANADO batch and resubmit.
	owner := documento.PostulacionOwner(p.ID)
	_, err = f.docs.Upload(f.ctx(), owner, documento.TipoSubsanado,
		documento.SubTipoProyecto, documento.Upload{Nombre: "guion-v2.pdf", Data: []byte("pdf")})
	require.NoError(t, err)

	fechaEnvioOriginal := *got.FechaEnvio
	got, err = f.svc.SubmitCorrection(f.ctx(), p.ID, f.userID)
	require.NoError(t, err)
	assert.Equal(t, EstadoRevisionAdmin, got.Estado)
	assert.Equal(t, fechaEnvioOriginal, *got.FechaEnvio, "correction must not restamp fecha_envio")
}

func TestSubmitCorrectionRequiresDocuments(t *testing.T) {
	f := newFixture(t, convocatoria.LineaFomento)
	p := f.submitted(t)
	_, err := f.svc.StartReview(f.ctx(), p.ID)
	require.NoError(t, err)
	_, err = f.svc.Observe(f.ctx(), p.ID, ObserveParams{
		TipoDocumento: observacion.TipoGeneral,
		Descripcion:   "falta algo",
		CreadaPor:     id.NewUserID(),
	})
	require.NoError(t, err)

	_, err = f.svc.SubmitCorrection(f.ctx(), p.ID, f.userID)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))
}

func TestFullLifecycle(t *testing.T) {
	f := newFixture(t, convocatoria.LineaFomento)
	p := f.submitted(t)

	_, err := f.svc.StartReview(f.ctx(), p.ID)
	require.NoError(t, err)
	_, err = f.svc.Admit(f.ctx(), p.ID)
	require.NoError(t, err)
	_, err = f.svc.SendToJury(f.ctx(), p.ID)
	require.NoError(t, err)

	got, err := f.svc.Decide(f.ctx(), p.ID, true)
	require.NoError(t, err)
	assert.Equal(t, EstadoSeleccionado, got.Estado)

	// Selection enabled the expense report.
	r, err := f.rendiciones.Get(f.ctx(), p.ID)
	require.NoError(t, err)

	// Finalize refuses until both tracks are approved.
	_, err = f.svc.Finalize(f.ctx(), p.ID)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))

	admin := id.NewUserID()
	_, err = f.rendiciones.SubmitDigital(f.ctx(), r.ID, f.userID, "https://drive.example/x", "")
	require.NoError(t, err)
	_, err = f.rendiciones.ResolveDigital(f.ctx(), r.ID, admin, true)
	require.NoError(t, err)
	_, err = f.rendiciones.AdvanceFisico(f.ctx(), r.ID, admin, rendicion.FisicoRecibido)
	require.NoError(t, err)
	_, err = f.rendiciones.AdvanceFisico(f.ctx(), r.ID, admin, rendicion.FisicoAprobado)
	require.NoError(t, err)

	got, err = f.svc.Finalize(f.ctx(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, EstadoFinalizado, got.Estado)
}

func TestDecideNotSelectedIsTerminal(t *testing.T) {
	f := newFixture(t, convocatoria.LineaFomento)
	p := f.submitted(t)

	_, err := f.svc.StartReview(f.ctx(), p.ID)
	require.NoError(t, err)
	_, err = f.svc.Admit(f.ctx(), p.ID)
	require.NoError(t, err)
	_, err = f.svc.SendToJury(f.ctx(), p.ID)
	require.NoError(t, err)

	got, err := f.svc.Decide(f.ctx(), p.ID, false)
	require.NoError(t, err)
	assert.Equal(t, EstadoNoSeleccionado, got.Estado)

	// No expense report for the not selected.
	_, err = f.rendiciones.Get(f.ctx(), p.ID)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))

	_, err = f.svc.Finalize(f.ctx(), p.ID)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))
}

func TestIllegalTransitionsAreRejected(t *testing.T) {
	f := newFixture(t, convocatoria.LineaFomento)
	p := f.draft(t)

	_, err := f.svc.Admit(f.ctx(), p.ID)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))

	_, err = f.svc.StartReview(f.ctx(), p.ID)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))
}

func TestCreateRendicionesBulk(t *testing.T) {
	f := newFixture(t, convocatoria.LineaFomento)

	// Three applicants reach the jury; one comes out no_seleccionado.
	var all, selected []*Postulacion
	for i := 0; i < 3; i++ {
		userID := id.NewUserID()
		f.reader.PutPersonaHumana(&registry.Perfil{UserID: userID, NombreCompleto: "Postulante"})
		ctx := requestcontext.WithTime(
			requestcontext.WithUserID(context.Background(), userID), fixedNow)

		p, err := f.svc.Create(ctx, userID, f.conv.ID, datosCompletos(), true)
		require.NoError(t, err)
		_, err = f.docs.Upload(ctx, documento.PostulacionOwner(p.ID),
			documento.TipoProyecto, "", documento.Upload{Nombre: "guion.pdf", Data: []byte("pdf")})
		require.NoError(t, err)
		_, err = f.svc.Submit(ctx, p.ID, userID)
		require.NoError(t, err)
		_, err = f.svc.StartReview(ctx, p.ID)
		require.NoError(t, err)
		_, err = f.svc.Admit(ctx, p.ID)
		require.NoError(t, err)
		_, err = f.svc.SendToJury(ctx, p.ID)
		require.NoError(t, err)
		p, err = f.svc.Decide(ctx, p.ID, i != 0)
		require.NoError(t, err)
		all = append(all, p)
		if i != 0 {
			selected = append(selected, p)
		}
	}
	require.Len(t, selected, 2)

	pids := make([]id.PostulacionID, 0, len(all)+1)
	for _, p := range all {
		pids = append(pids, p.ID)
	}
	pids = append(pids, id.NewPostulacionID())

	res, err := f.svc.CreateRendiciones(f.ctx(), pids)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Created, "selection already enabled them lazily")
	assert.Equal(t, 2, res.AlreadyExisted)
	assert.Equal(t, 1, res.Skipped, "the no_seleccionado row is passed over silently")
	require.Len(t, res.Rejected, 1, "unknown ids are reported, not skipped")

	t.Run("whole-call run covers every selected application", func(t *testing.T) {
		res, err := f.svc.CreateRendicionesForConvocatoria(f.ctx(), f.conv.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, res.AlreadyExisted)
		assert.Equal(t, 0, res.Skipped)
		assert.Empty(t, res.Rejected)
	})
}
