package exencion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"convocatorias/internal/convocatoria"
	"convocatorias/internal/documento"
	"convocatorias/internal/notify"
	"convocatorias/internal/observacion"
	"convocatorias/internal/platform/metrics"
	"convocatorias/internal/registry"
	id "convocatorias/pkg/domain"
	dErrors "convocatorias/pkg/domain-errors"
	"convocatorias/pkg/platform/sentinel"
	"convocatorias/pkg/requestcontext"
)

const bulkConcurrency = 8

// Service drives the exemption flow. Approval is two-phase: the state
// transition is made durable first, then the certificate and the mail run
// best-effort and surface as warnings. A lost certificate is recovered by
// Reissue, never by repeating the approval.
type Service struct {
	store        Store
	calls        convocatoria.Store
	gate         *registry.Gate
	docs         *documento.Service
	observations *observacion.Service
	issuer       *Issuer
	sender       notify.Sender
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
	issuer *Issuer, sender notify.Sender, opts ...Option) *Service {
	s := &Service{
		store:        store,
		calls:        calls,
		gate:         gate,
		docs:         docs,
		observations: observations,
		issuer:       issuer,
		sender:       sender,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Iniciar opens the user's exemption request against a beneficio call,
// freezing the registry's fiscal data into it. Idempotent: re-entry returns
// the existing request untouched, even if the registry changed since.
func (s *Service) Iniciar(ctx context.Context, userID id.UserID, cid id.ConvocatoriaID) (*Exencion, bool, error) {
	perfil, err := s.gate.Profile(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	if err := s.gate.FiscalComplete(perfil); err != nil {
		return nil, false, err
	}

	conv, err := s.calls.FindByID(ctx, cid)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, false, dErrors.New(dErrors.CodeNotFound, "convocatoria not found")
		}
		return nil, false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load convocatoria")
	}
	now := requestcontext.Now(ctx)
	if !conv.Abierta(now) {
		return nil, false, dErrors.New(dErrors.CodeValidation, "convocatoria is not open")
	}
	if conv.Destino() != convocatoria.DestinoExencion {
		return nil, false, dErrors.New(dErrors.CodeValidation, "convocatoria does not grant exemptions")
	}

	candidate := newExencion(userID, cid, snapshotFrom(perfil), now)
	e, created, err := s.store.GetOrCreate(ctx, candidate)
	if err != nil {
		return nil, false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create exencion")
	}
	if created {
		s.logger.InfoContext(ctx, "exencion iniciada",
			"exencion_id", e.ID,
			"convocatoria_id", cid,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	return e, created, nil
}

func snapshotFrom(p *registry.Perfil) Snapshot {
	return Snapshot{
		Nombre:        p.Nombre(),
		CUIT:          p.CUIT,
		Email:         p.Contacto(),
		DatosFiscales: p.Fiscales,
	}
}

// ApproveResult reports an approval: the durable aggregate plus any
// best-effort failures from the certificate or the mail.
type ApproveResult struct {
	Exencion *Exencion
	Warnings []error
}

// ApproveAndIssue approves the exemption and issues its constancia. The
// frozen snapshot must be complete; an exemption whose fiscal data went in
// with placeholders is rejected with the missing fields and no state change.
// Phase one (serial, number, dates, estado) commits before any side effect;
// phase two failures surface as warnings and are recoverable via Reissue.
// The serial is drawn only after every precondition passes, so rejected
// attempts never consume constancia numbers.
func (s *Service) ApproveAndIssue(ctx context.Context, eid id.ExencionID) (*ApproveResult, error) {
	e, err := s.load(ctx, eid)
	if err != nil {
		return nil, err
	}
	if e.Estado != EstadoEnviada {
		return nil, dErrors.Newf(dErrors.CodeInvalidState,
			"exencion cannot be approved from %s", e.Estado)
	}
	if missing := e.MissingFields(); len(missing) > 0 {
		return nil, dErrors.New(dErrors.CodeIncompleteFiscalData,
			"exencion snapshot is missing required fiscal data").
			WithField("missing_fields", missing)
	}

	serial, err := s.store.NextSerial(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to assign constancia serial")
	}
	if err := e.Aprobar(serial, requestcontext.Now(ctx)); err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, e); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update exencion")
	}
	s.logger.InfoContext(ctx, "exencion aprobada",
		"exencion_id", e.ID,
		"numero", e.NumeroConstancia,
		"request_id", requestcontext.RequestID(ctx),
	)

	res := &ApproveResult{Exencion: e}
	s.issueAndNotify(ctx, e, res)
	return res, nil
}

// Reissue regenerates the constancia of an already approved exemption and
// re-sends the mail. Number and dates are untouched; only the artifact and
// its locator change.
func (s *Service) Reissue(ctx context.Context, eid id.ExencionID) (*ApproveResult, error) {
	e, err := s.load(ctx, eid)
	if err != nil {
		return nil, err
	}
	if e.Estado != EstadoAprobada {
		return nil, dErrors.New(dErrors.CodeInvalidState, "only approved exemptions carry a constancia")
	}
	res := &ApproveResult{Exencion: e}
	s.issueAndNotify(ctx, e, res)
	return res, nil
}

// issueAndNotify runs the best-effort phase: certificate, locator persist,
// mail. Each failure lands in res.Warnings without undoing earlier steps.
func (s *Service) issueAndNotify(ctx context.Context, e *Exencion, res *ApproveResult) {
	loc, pdf, err := s.issuer.Issue(ctx, e)
	if err != nil {
		if s.metrics != nil {
			s.metrics.CertificadosFallidos.Inc()
		}
		s.logger.WarnContext(ctx, "constancia not issued",
			"exencion_id", e.ID, "error", err,
			"request_id", requestcontext.RequestID(ctx))
		res.Warnings = append(res.Warnings, err)
		return
	}
	e.ConstanciaLocator = string(loc)
	if err := s.store.Update(ctx, e); err != nil {
		res.Warnings = append(res.Warnings,
			dErrors.Wrap(err, dErrors.CodeArtifactFailed, "constancia issued but locator not persisted"))
		return
	}
	if s.metrics != nil {
		s.metrics.CertificadosEmitidos.Inc()
	}

	if e.Email == "" {
		s.logger.WarnContext(ctx, "exencion has no contact address, skipping constancia mail",
			"exencion_id", e.ID, "request_id", requestcontext.RequestID(ctx))
		return
	}
	msg := notify.Message{
		To:      e.Email,
		Subject: "Tu constancia de exención está lista",
		TextBody: fmt.Sprintf(
			"Tu exención fue aprobada. Constancia %s, válida hasta el %s.\n",
			e.NumeroConstancia, e.FechaVencimiento.Format("02/01/2006")),
		Attachment: &notify.Attachment{
			Filename:    ArtifactName(e),
			ContentType: "application/pdf",
			Data:        pdf,
		},
	}
	if err := s.sender.Send(ctx, msg); err != nil {
		res.Warnings = append(res.Warnings,
			dErrors.Wrap(err, dErrors.CodeNotificationFailed, "constancia mail not delivered"))
		s.logger.WarnContext(ctx, "constancia mail failed",
			"exencion_id", e.ID, "error", err,
			"request_id", requestcontext.RequestID(ctx))
		return
	}
	if s.metrics != nil {
		s.metrics.NotificacionesEnviadas.Inc()
	}
}

// Rechazar closes the exemption with the stated reason.
func (s *Service) Rechazar(ctx context.Context, eid id.ExencionID, motivo string) (*Exencion, error) {
	e, err := s.load(ctx, eid)
	if err != nil {
		return nil, err
	}
	if err := e.Rechazar(motivo); err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, e); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update exencion")
	}
	s.logger.InfoContext(ctx, "exencion rechazada",
		"exencion_id", e.ID,
		"request_id", requestcontext.RequestID(ctx),
	)
	return e, nil
}

// BatchRejection names one exemption the bulk approval could not serve.
type BatchRejection struct {
	ExencionID id.ExencionID
	Err        error
}

// BatchResult summarizes one bulk approval run. Warnings count exemptions
// approved whose certificate or mail failed.
type BatchResult struct {
	Approved int
	Warnings int
	Rejected []BatchRejection
}

// ApproveBatch approves every pending exemption of a call. Per-row failures
// are collected; one bad exemption never aborts the run.
func (s *Service) ApproveBatch(ctx context.Context, cid id.ConvocatoriaID) (*BatchResult, error) {
	pending, err := s.store.ListByConvocatoriaAndEstado(ctx, cid, EstadoEnviada)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list pending exenciones")
	}

	var (
		mu  sync.Mutex
		res BatchResult
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bulkConcurrency)
	for _, e := range pending {
		g.Go(func() error {
			one, err := s.ApproveAndIssue(ctx, e.ID)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				res.Rejected = append(res.Rejected, BatchRejection{ExencionID: e.ID, Err: err})
				return nil
			}
			res.Approved++
			if len(one.Warnings) > 0 {
				res.Warnings++
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "bulk approval aborted")
	}

	s.logger.InfoContext(ctx, "bulk exenciones approved",
		"convocatoria_id", cid,
		"approved", res.Approved,
		"warnings", res.Warnings,
		"rejected", len(res.Rejected),
		"request_id", requestcontext.RequestID(ctx),
	)
	return &res, nil
}

// ObserveParams carries the admin deficiency note on an exemption's
// paperwork.
type ObserveParams struct {
	ObservacionID id.ObservacionID
	TipoDocumento observacion.TipoDocumento
	Descripcion   string
	CreadaPor     id.UserID
}

// Observe records a deficiency on the exemption's documentation. The
// exemption itself stays ENVIADA; the observation engine decides whether
// the applicant is notified.
func (s *Service) Observe(ctx context.Context, eid id.ExencionID, params ObserveParams) (*observacion.RecordResult, error) {
	e, err := s.load(ctx, eid)
	if err != nil {
		return nil, err
	}
	if e.Estado != EstadoEnviada {
		return nil, dErrors.New(dErrors.CodeInvalidState, "only pending exemptions can be observed")
	}
	return s.observations.Record(ctx, observacion.RecordParams{
		ObservacionID: params.ObservacionID,
		Owner:         documento.ExencionOwner(e.ID),
		TipoDocumento: params.TipoDocumento,
		Descripcion:   params.Descripcion,
		CreadaPor:     params.CreadaPor,
		Contacto:      e.Email,
	})
}

// SubmitCorrection confirms the applicant's pending SUBSANADO batch and
// resolves every open observation. No estado change: the exemption was
// never parked, only its paperwork.
func (s *Service) SubmitCorrection(ctx context.Context, eid id.ExencionID, byUser id.UserID) (*Exencion, error) {
	e, err := s.load(ctx, eid)
	if err != nil {
		return nil, err
	}
	if e.UserID != byUser {
		return nil, dErrors.New(dErrors.CodeForbidden, "exencion belongs to another user")
	}
	if e.Estado != EstadoEnviada {
		return nil, dErrors.New(dErrors.CodeInvalidState, "exencion is already resolved")
	}

	owner := documento.ExencionOwner(e.ID)
	if _, err := s.docs.ConfirmBatch(ctx, owner, documento.TipoSubsanado); err != nil {
		return nil, err
	}
	if _, err := s.observations.ResolveAll(ctx, owner); err != nil {
		return nil, err
	}
	return e, nil
}

// Constancia is the public lookup view of an issued certificate.
type Constancia struct {
	Numero           string
	Nombre           string
	CUIT             string
	FechaEmision     string
	FechaVencimiento string
	Vigente          bool
}

// LookupConstancia is the public verification endpoint's read: anyone
// holding a constancia number can check validity. Unapproved or unknown
// numbers are indistinguishable.
func (s *Service) LookupConstancia(ctx context.Context, numero string) (*Constancia, error) {
	e, err := s.store.FindByNumero(ctx, numero)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "constancia not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up constancia")
	}
	if e.Estado != EstadoAprobada {
		return nil, dErrors.New(dErrors.CodeNotFound, "constancia not found")
	}
	return &Constancia{
		Numero:           e.NumeroConstancia,
		Nombre:           e.Nombre,
		CUIT:             e.CUIT,
		FechaEmision:     e.FechaEmision.Format("02/01/2006"),
		FechaVencimiento: e.FechaVencimiento.Format("02/01/2006"),
		Vigente:          e.Vigente(requestcontext.Now(ctx)),
	}, nil
}

// Get loads an exemption by id.
func (s *Service) Get(ctx context.Context, eid id.ExencionID) (*Exencion, error) {
	return s.load(ctx, eid)
}

// ListByUser returns the user's exemptions, oldest first.
func (s *Service) ListByUser(ctx context.Context, userID id.UserID) ([]*Exencion, error) {
	out, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list exenciones")
	}
	return out, nil
}

func (s *Service) load(ctx context.Context, eid id.ExencionID) (*Exencion, error) {
	e, err := s.store.FindByID(ctx, eid)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "exencion not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load exencion")
	}
	return e, nil
}
