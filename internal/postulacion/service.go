package postulacion

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"convocatorias/internal/convocatoria"
	"convocatorias/internal/documento"
	"convocatorias/internal/observacion"
	"convocatorias/internal/platform/metrics"
	"convocatorias/internal/registry"
	"convocatorias/internal/rendicion"
	id "convocatorias/pkg/domain"
	dErrors "convocatorias/pkg/domain-errors"
	"convocatorias/pkg/platform/sentinel"
	"convocatorias/pkg/requestcontext"
)

// bulkConcurrency bounds parallel rendición creation during bulk enablement.
const bulkConcurrency = 8

// Service drives the application lifecycle. Every admin transition loads the
// aggregate, applies the model transition, and persists; guards live on the
// model, side effects here.
type Service struct {
	store        Store
	calls        convocatoria.Store
	gate         *registry.Gate
	docs         *documento.Service
	observations *observacion.Service
	rendiciones  *rendicion.Service
	logger       *slog.Logger
	metrics      *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(store Store, calls convocatoria.Store, gate *registry.Gate,
	docs *documento.Service, observations *observacion.Service,
	rendiciones *rendicion.Service, opts ...Option) *Service {
	s := &Service{
		store:        store,
		calls:        calls,
		gate:         gate,
		docs:         docs,
		observations: observations,
		rendiciones:  rendiciones,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create opens a draft application for the user against an open call. The
// registry gate runs first; unregistered users never reach the store. A
// second application against the same call is rejected as a conflict.
func (s *Service) Create(ctx context.Context, userID id.UserID, cid id.ConvocatoriaID, datos DatosProyecto, declaracion bool) (*Postulacion, error) {
	if _, err := s.gate.Profile(ctx, userID); err != nil {
		return nil, err
	}

	conv, err := s.calls.FindByID(ctx, cid)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "convocatoria not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load convocatoria")
	}

	now := requestcontext.Now(ctx)
	if !conv.Abierta(now) {
		return nil, dErrors.New(dErrors.CodeValidation, "convocatoria is not open")
	}
	if destino := conv.Destino(); destino != convocatoria.DestinoPostulacion {
		return nil, dErrors.Newf(dErrors.CodeValidation,
			"convocatoria routes to %s, not to a project application", destino)
	}

	p, err := newPostulacion(userID, conv, datos, declaracion, now)
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, p); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, "user already applied to this convocatoria")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create postulacion")
	}

	if s.metrics != nil {
		s.metrics.PostulacionesCreadas.Inc()
	}
	s.logger.InfoContext(ctx, "postulacion created",
		"postulacion_id", p.ID,
		"convocatoria_id", cid,
		"linea", p.Linea,
		"request_id", requestcontext.RequestID(ctx),
	)
	return p, nil
}

// UpdateDatos replaces the project fields while the application is still a
// draft. Anything past borrador is immutable to the applicant.
func (s *Service) UpdateDatos(ctx context.Context, pid id.PostulacionID, byUser id.UserID, datos DatosProyecto, declaracion bool) (*Postulacion, error) {
	return s.mutate(ctx, pid, func(p *Postulacion) error {
		if p.UserID != byUser {
			return dErrors.New(dErrors.CodeForbidden, "postulacion belongs to another user")
		}
		if p.Estado != EstadoBorrador {
			return dErrors.New(dErrors.CodeInvalidState, "only draft applications can be edited")
		}
		p.DatosProyecto = datos
		p.DeclaracionJurada = declaracion
		return nil
	})
}

// Submit is the applicant's point of no return. Project lines must carry the
// sworn declaration and at least one pending PROYECTO document; the batch
// confirm and the transition happen together, and the submission timestamp
// survives every later correction round.
func (s *Service) Submit(ctx context.Context, pid id.PostulacionID, byUser id.UserID) (*Postulacion, error) {
	p, err := s.load(ctx, pid)
	if err != nil {
		return nil, err
	}
	if p.UserID != byUser {
		return nil, dErrors.New(dErrors.CodeForbidden, "postulacion belongs to another user")
	}
	if err := p.CanSubmit(); err != nil {
		return nil, err
	}

	if p.Linea.RequiereProyecto() {
		if !p.DeclaracionJurada {
			return nil, dErrors.New(dErrors.CodeValidation, "sworn declaration must be accepted before submitting")
		}
		if _, err := s.docs.ConfirmBatch(ctx, documento.PostulacionOwner(p.ID), documento.TipoProyecto); err != nil {
			return nil, err
		}
	}

	p.ApplySubmit(requestcontext.Now(ctx))
	if err := s.store.Update(ctx, p); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update postulacion")
	}

	if s.metrics != nil {
		s.metrics.PostulacionesEnviadas.Inc()
	}
	s.logger.InfoContext(ctx, "postulacion submitted",
		"postulacion_id", p.ID,
		"request_id", requestcontext.RequestID(ctx),
	)
	return p, nil
}

// StartReview takes a submitted application under administrative review.
func (s *Service) StartReview(ctx context.Context, pid id.PostulacionID) (*Postulacion, error) {
	return s.mutate(ctx, pid, func(p *Postulacion) error {
		return p.StartReview()
	})
}

// ObserveParams carries the admin deficiency note attached when parking an
// application in observado.
type ObserveParams struct {
	ObservacionID id.ObservacionID
	TipoDocumento observacion.TipoDocumento
	Descripcion   string
	CreadaPor     id.UserID
}

// Observe parks the application for correction and records the deficiency.
// The first observation triggers the state change; further ones on an
// already-parked application only add or amend notes. The notification
// policy (notify once per material change) lives in the observation engine.
func (s *Service) Observe(ctx context.Context, pid id.PostulacionID, params ObserveParams) (*observacion.RecordResult, error) {
	p, err := s.load(ctx, pid)
	if err != nil {
		return nil, err
	}
	if p.Estado != EstadoObservado {
		if err := p.Observe(); err != nil {
			return nil, err
		}
		if err := s.store.Update(ctx, p); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update postulacion")
		}
	}

	contacto := ""
	if perfil, err := s.gate.Profile(ctx, p.UserID); err == nil {
		contacto = perfil.Contacto()
	}
	return s.observations.Record(ctx, observacion.RecordParams{
		ObservacionID: params.ObservacionID,
		Owner:         documento.PostulacionOwner(p.ID),
		TipoDocumento: params.TipoDocumento,
		Descripcion:   params.Descripcion,
		CreadaPor:     params.CreadaPor,
		Contacto:      contacto,
	})
}

// SubmitCorrection is the applicant's answer to observations: the pending
// SUBSANADO batch is confirmed, every open observation is resolved, and the
// application returns to administrative review.
func (s *Service) SubmitCorrection(ctx context.Context, pid id.PostulacionID, byUser id.UserID) (*Postulacion, error) {
	p, err := s.load(ctx, pid)
	if err != nil {
		return nil, err
	}
	if p.UserID != byUser {
		return nil, dErrors.New(dErrors.CodeForbidden, "postulacion belongs to another user")
	}
	if p.Estado != EstadoObservado {
		return nil, dErrors.New(dErrors.CodeInvalidState, "postulacion has no pending observations")
	}

	owner := documento.PostulacionOwner(p.ID)
	if _, err := s.docs.ConfirmBatch(ctx, owner, documento.TipoSubsanado); err != nil {
		return nil, err
	}
	if _, err := s.observations.ResolveAll(ctx, owner); err != nil {
		return nil, err
	}

	if err := p.StartReview(); err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, p); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update postulacion")
	}
	s.logger.InfoContext(ctx, "postulacion correction submitted",
		"postulacion_id", p.ID,
		"request_id", requestcontext.RequestID(ctx),
	)
	return p, nil
}

// Admit clears administrative review.
func (s *Service) Admit(ctx context.Context, pid id.PostulacionID) (*Postulacion, error) {
	return s.mutate(ctx, pid, func(p *Postulacion) error {
		return p.Admit()
	})
}

// SendToJury hands an admitted application to jury evaluation.
func (s *Service) SendToJury(ctx context.Context, pid id.PostulacionID) (*Postulacion, error) {
	return s.mutate(ctx, pid, func(p *Postulacion) error {
		return p.SendToJury()
	})
}

// Decide records the jury outcome. Selection enables the expense report
// immediately; a failure there does not undo the decision, the report is
// re-created lazily on first access or by the bulk enabler.
func (s *Service) Decide(ctx context.Context, pid id.PostulacionID, selected bool) (*Postulacion, error) {
	p, err := s.mutate(ctx, pid, func(p *Postulacion) error {
		return p.Decide(selected)
	})
	if err != nil {
		return nil, err
	}
	if selected {
		if _, _, err := s.rendiciones.EnsureForPostulacion(ctx, p.ID, p.UserID); err != nil {
			s.logger.WarnContext(ctx, "rendicion not enabled after selection",
				"postulacion_id", p.ID, "error", err,
				"request_id", requestcontext.RequestID(ctx))
		}
	}
	return p, nil
}

// Finalize closes a selected application. Both expense-report tracks must be
// approved first.
func (s *Service) Finalize(ctx context.Context, pid id.PostulacionID) (*Postulacion, error) {
	return s.mutate(ctx, pid, func(p *Postulacion) error {
		r, err := s.rendiciones.Get(ctx, p.ID)
		if err != nil {
			if dErrors.HasCode(err, dErrors.CodeNotFound) {
				return dErrors.New(dErrors.CodeInvalidState, "postulacion has no rendicion yet")
			}
			return err
		}
		if !r.FullyClosed() {
			return dErrors.New(dErrors.CodeInvalidState, "rendicion is not fully approved")
		}
		return p.Finalize()
	})
}

// BulkRejection names one application the bulk enabler could not serve.
type BulkRejection struct {
	PostulacionID id.PostulacionID
	Err           error
}

// BulkResult summarizes one bulk rendición enablement run. Skipped counts
// rows that are not in seleccionado; those are passed over silently rather
// than reported as failures.
type BulkResult struct {
	Created        int
	AlreadyExisted int
	Skipped        int
	Rejected       []BulkRejection
}

// CreateRendiciones enables the expense report for an explicit selection of
// applications. Idempotent per application; rows not in seleccionado are
// skipped, and failures are collected per row so one bad application never
// aborts the run.
func (s *Service) CreateRendiciones(ctx context.Context, pids []id.PostulacionID) (*BulkResult, error) {
	var (
		mu  sync.Mutex
		res BulkResult
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bulkConcurrency)
	for _, pid := range pids {
		g.Go(func() error {
			p, err := s.load(ctx, pid)
			var created bool
			if err == nil && p.Estado == EstadoSeleccionado {
				_, created, err = s.rendiciones.EnsureForPostulacion(ctx, p.ID, p.UserID)
			}
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				res.Rejected = append(res.Rejected, BulkRejection{PostulacionID: pid, Err: err})
			case p.Estado != EstadoSeleccionado:
				res.Skipped++
			case created:
				res.Created++
			default:
				res.AlreadyExisted++
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "bulk rendicion run aborted")
	}

	s.logger.InfoContext(ctx, "bulk rendiciones enabled",
		"requested", len(pids),
		"created", res.Created,
		"already_existed", res.AlreadyExisted,
		"skipped", res.Skipped,
		"rejected", len(res.Rejected),
		"request_id", requestcontext.RequestID(ctx),
	)
	return &res, nil
}

// CreateRendicionesForConvocatoria enables the expense report for every
// selected application of a call.
func (s *Service) CreateRendicionesForConvocatoria(ctx context.Context, cid id.ConvocatoriaID) (*BulkResult, error) {
	selected, err := s.store.ListByConvocatoriaAndEstado(ctx, cid, EstadoSeleccionado)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list selected postulaciones")
	}
	pids := make([]id.PostulacionID, 0, len(selected))
	for _, p := range selected {
		pids = append(pids, p.ID)
	}
	return s.CreateRendiciones(ctx, pids)
}

// Get loads an application by id.
func (s *Service) Get(ctx context.Context, pid id.PostulacionID) (*Postulacion, error) {
	return s.load(ctx, pid)
}

// ListByUser returns the user's applications, oldest first.
func (s *Service) ListByUser(ctx context.Context, userID id.UserID) ([]*Postulacion, error) {
	out, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list postulaciones")
	}
	return out, nil
}

func (s *Service) load(ctx context.Context, pid id.PostulacionID) (*Postulacion, error) {
	p, err := s.store.FindByID(ctx, pid)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "postulacion not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load postulacion")
	}
	return p, nil
}

func (s *Service) mutate(ctx context.Context, pid id.PostulacionID, fn func(*Postulacion) error) (*Postulacion, error) {
	p, err := s.load(ctx, pid)
	if err != nil {
		return nil, err
	}
	if err := fn(p); err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, p); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update postulacion")
	}
	return p, nil
}
