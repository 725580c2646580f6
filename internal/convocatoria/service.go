package convocatoria

import (
	"context"
	"errors"
	"log/slog"

	"convocatorias/internal/registry"
	id "convocatorias/pkg/domain"
	dErrors "convocatorias/pkg/domain-errors"
	"convocatorias/pkg/platform/sentinel"
	"convocatorias/pkg/requestcontext"
)

// Service exposes the published calls and the formación enrollment flow.
type Service struct {
	store  Store
	gate   *registry.Gate
	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func NewService(store Store, gate *registry.Gate, opts ...Option) *Service {
	s := &Service{store: store, gate: gate, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Publish creates a call.
func (s *Service) Publish(ctx context.Context, c *Convocatoria) error {
	if err := s.store.Create(ctx, c); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create convocatoria")
	}
	s.logger.InfoContext(ctx, "convocatoria published",
		"convocatoria_id", c.ID,
		"slug", c.Slug,
		"linea", c.Linea,
		"request_id", requestcontext.RequestID(ctx),
	)
	return nil
}

// Get loads a call by id.
func (s *Service) Get(ctx context.Context, cid id.ConvocatoriaID) (*Convocatoria, error) {
	c, err := s.store.FindByID(ctx, cid)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "convocatoria not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load convocatoria")
	}
	return c, nil
}

// GetBySlug loads a call by its public slug.
func (s *Service) GetBySlug(ctx context.Context, slug string) (*Convocatoria, error) {
	c, err := s.store.FindBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "convocatoria not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load convocatoria")
	}
	return c, nil
}

// ListByLinea returns the calls of one funding line in display order.
func (s *Service) ListByLinea(ctx context.Context, linea Linea) ([]*Convocatoria, error) {
	if !linea.Valid() {
		return nil, dErrors.Newf(dErrors.CodeValidation, "unknown linea %q", linea)
	}
	out, err := s.store.ListByLinea(ctx, linea)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list convocatorias")
	}
	return out, nil
}

// Enroll is the formación entry flow: a registered user joins the call with
// no project form. Idempotent per (user, call).
func (s *Service) Enroll(ctx context.Context, userID id.UserID, cid id.ConvocatoriaID) (*Inscripcion, bool, error) {
	if _, err := s.gate.Profile(ctx, userID); err != nil {
		return nil, false, err
	}
	c, err := s.Get(ctx, cid)
	if err != nil {
		return nil, false, err
	}
	if !c.Abierta(requestcontext.Now(ctx)) {
		return nil, false, dErrors.New(dErrors.CodeValidation, "convocatoria is not open")
	}
	if c.Destino() != DestinoInscripcion {
		return nil, false, dErrors.New(dErrors.CodeValidation, "convocatoria does not take enrollments")
	}

	ins, created, err := s.store.GetOrCreateInscripcion(ctx, userID, cid)
	if err != nil {
		return nil, false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to enroll user")
	}
	if created {
		s.logger.InfoContext(ctx, "inscripcion created",
			"inscripcion_id", ins.ID,
			"convocatoria_id", cid,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	return ins, created, nil
}
