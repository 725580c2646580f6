package observacion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"convocatorias/internal/documento"
	"convocatorias/internal/notify"
	"convocatorias/internal/platform/metrics"
	id "convocatorias/pkg/domain"
	dErrors "convocatorias/pkg/domain-errors"
	"convocatorias/pkg/platform/sentinel"
	"convocatorias/pkg/requestcontext"
)

// Service persists observations and owns the notify-once rule.
type Service struct {
	store   Store
	sender  notify.Sender
	links   *LinkBuilder
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(store Store, sender notify.Sender, links *LinkBuilder, opts ...Option) *Service {
	s := &Service{
		store:  store,
		sender: sender,
		links:  links,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RecordParams describes one create-or-update of an observation.
// A zero ObservacionID means create.
type RecordParams struct {
	ObservacionID id.ObservacionID
	Owner         documento.Owner
	TipoDocumento TipoDocumento
	Descripcion   string
	CreadaPor     id.UserID
	// Contacto is the applicant address notifications go to. Empty skips
	// dispatch (reported in the result, not an error).
	Contacto string
}

// RecordResult reports what happened: whether a notification went out, and
// the delivery warning when dispatch was attempted but failed. The state
// change is durable either way.
type RecordResult struct {
	Observacion *Observacion
	Notified    bool
	Warning     error
}

// Record persists or updates an observation. The applicant is notified only
// when the row is unresolved AND it is newly created or its material triple
// (categoria, descripcion, subsanada) changed against the persisted values.
// No-op re-saves notify nobody.
func (s *Service) Record(ctx context.Context, p RecordParams) (*RecordResult, error) {
	if p.Owner.IsZero() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "observacion owner is required")
	}
	if err := validate(p.TipoDocumento, p.Descripcion); err != nil {
		return nil, err
	}

	if p.ObservacionID.IsNil() {
		return s.create(ctx, p)
	}
	return s.update(ctx, p)
}

func (s *Service) create(ctx context.Context, p RecordParams) (*RecordResult, error) {
	o := &Observacion{
		ID:            id.NewObservacionID(),
		Owner:         p.Owner,
		TipoDocumento: p.TipoDocumento,
		Descripcion:   p.Descripcion,
		CreadaPor:     p.CreadaPor,
		FechaCreacion: requestcontext.Now(ctx),
	}
	if err := s.store.Create(ctx, o); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create observacion")
	}
	res := &RecordResult{Observacion: o}
	s.dispatch(ctx, o, p.Contacto, res)
	return res, nil
}

func (s *Service) update(ctx context.Context, p RecordParams) (*RecordResult, error) {
	prev, err := s.store.FindByID(ctx, p.ObservacionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "observacion not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load observacion")
	}
	if prev.Owner != p.Owner {
		return nil, dErrors.New(dErrors.CodeForbidden, "observacion belongs to another record")
	}

	// Diff against the persisted triple before writing anything.
	unchanged := prev.materialEquals(p.TipoDocumento, p.Descripcion, prev.Subsanada)

	prev.TipoDocumento = p.TipoDocumento
	prev.Descripcion = p.Descripcion
	if err := s.store.Update(ctx, prev); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update observacion")
	}

	res := &RecordResult{Observacion: prev}
	if unchanged || prev.Subsanada {
		if s.metrics != nil {
			s.metrics.NotificacionesOmitidas.Inc()
		}
		return res, nil
	}
	s.dispatch(ctx, prev, p.Contacto, res)
	return res, nil
}

// ResolveAll marks every open observation of owner resolved. Called when a
// SUBSANADO batch is confirmed; the flag never reverts.
func (s *Service) ResolveAll(ctx context.Context, owner documento.Owner) (int, error) {
	n, err := s.store.ResolveAll(ctx, owner)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve observaciones")
	}
	if n > 0 {
		s.logger.InfoContext(ctx, "observaciones resolved",
			"owner_tipo", owner.Tipo,
			"owner_id", owner.ID,
			"count", n,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	return n, nil
}

// ListOpen returns the unresolved observations of owner, oldest first.
func (s *Service) ListOpen(ctx context.Context, owner documento.Owner) ([]*Observacion, error) {
	out, err := s.store.ListOpen(ctx, owner)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list observaciones")
	}
	return out, nil
}

// HasOpen reports whether owner has at least one unresolved observation.
func (s *Service) HasOpen(ctx context.Context, owner documento.Owner) (bool, error) {
	open, err := s.ListOpen(ctx, owner)
	if err != nil {
		return false, err
	}
	return len(open) > 0, nil
}

// dispatch sends the correction notice best-effort. Failures land in
// res.Warning; they never undo the persisted observation.
func (s *Service) dispatch(ctx context.Context, o *Observacion, contacto string, res *RecordResult) {
	if contacto == "" {
		s.logger.WarnContext(ctx, "observacion has no contact address, skipping notification",
			"observacion_id", o.ID, "request_id", requestcontext.RequestID(ctx))
		return
	}
	link := s.links.CorrectionLink(o.Owner)
	msg := notify.Message{
		To:      contacto,
		Subject: "Tenés documentación observada",
		TextBody: fmt.Sprintf(
			"Tu presentación tiene una observación administrativa (%s): %s\n\n"+
				"Ingresá para subsanarla: %s\n", o.TipoDocumento, o.Descripcion, link),
	}
	if err := s.sender.Send(ctx, msg); err != nil {
		res.Warning = dErrors.Wrap(err, dErrors.CodeNotificationFailed, "observation notice not delivered")
		s.logger.WarnContext(ctx, "observacion notification failed",
			"observacion_id", o.ID, "error", err,
			"request_id", requestcontext.RequestID(ctx))
		return
	}
	res.Notified = true
	if s.metrics != nil {
		s.metrics.NotificacionesEnviadas.Inc()
	}
}
