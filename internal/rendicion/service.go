package rendicion

import (
	"context"
	"errors"
	"log/slog"

	"convocatorias/internal/platform/metrics"
	id "convocatorias/pkg/domain"
	dErrors "convocatorias/pkg/domain-errors"
	"convocatorias/pkg/platform/sentinel"
	"convocatorias/pkg/requestcontext"
)

type Service struct {
	store   Store
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

func New(store Store, opts ...Option) *Service {
	s := &Service{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EnsureForPostulacion lazily creates the one-to-one rendición for a
// selected application. Idempotent: a second call returns the existing row
// and reports created=false. When the existing row's user diverges from the
// application's current applicant it is re-synced.
func (s *Service) EnsureForPostulacion(ctx context.Context, pid id.PostulacionID, userID id.UserID) (*Rendicion, bool, error) {
	now := requestcontext.Now(ctx)
	candidate := newRendicion(pid, userID, now)
	candidate.Append(now, "sistema", "creacion", "rendición habilitada por selección")

	r, created, err := s.store.GetOrCreate(ctx, candidate)
	if err != nil {
		return nil, false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to ensure rendicion")
	}
	if created {
		if s.metrics != nil {
			s.metrics.RendicionesCreadas.Inc()
		}
		s.logger.InfoContext(ctx, "rendicion created",
			"rendicion_id", r.ID,
			"postulacion_id", pid,
			"request_id", requestcontext.RequestID(ctx),
		)
		return r, true, nil
	}

	if r.UserID != userID {
		r.UserID = userID
		r.Append(now, "sistema", "resync_usuario", "usuario actualizado al postulante vigente")
		if err := s.store.Update(ctx, r); err != nil {
			return nil, false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resync rendicion user")
		}
	}
	return r, false, nil
}

// SubmitDigital is the applicant's digital-track submission: link to the
// external documentation plus optional remarks.
func (s *Service) SubmitDigital(ctx context.Context, rid id.RendicionID, byUser id.UserID, link, remarks string) (*Rendicion, error) {
	if link == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "documentation link is required")
	}
	return s.mutate(ctx, rid, func(r *Rendicion) error {
		if r.UserID != byUser {
			return dErrors.New(dErrors.CodeForbidden, "rendicion belongs to another user")
		}
		// Resubmission after observation lands in SUBSANADO, first
		// submission in ENVIADO.
		next := DigitalEnviado
		if r.EstadoDigital == DigitalObservado {
			next = DigitalSubsanado
		}
		if err := r.AdvanceDigital(next); err != nil {
			return err
		}
		r.LinkDocumentacion = link
		r.ObservacionUsuario = remarks
		r.Append(requestcontext.Now(ctx), byUser.String(), "envio_digital", link)
		return nil
	})
}

// ObserveDigital records an admin deficiency on the digital track.
func (s *Service) ObserveDigital(ctx context.Context, rid id.RendicionID, admin id.UserID, remarks string) (*Rendicion, error) {
	return s.mutate(ctx, rid, func(r *Rendicion) error {
		if err := r.AdvanceDigital(DigitalObservado); err != nil {
			return err
		}
		r.ObservacionAdmin = remarks
		r.Append(requestcontext.Now(ctx), admin.String(), "observacion_digital", remarks)
		return nil
	})
}

// ResolveDigital closes the digital track with approval or rejection.
func (s *Service) ResolveDigital(ctx context.Context, rid id.RendicionID, admin id.UserID, approved bool) (*Rendicion, error) {
	next := DigitalAprobado
	accion := "aprobacion_digital"
	if !approved {
		next = DigitalRechazado
		accion = "rechazo_digital"
	}
	return s.mutate(ctx, rid, func(r *Rendicion) error {
		if err := r.AdvanceDigital(next); err != nil {
			return err
		}
		r.Append(requestcontext.Now(ctx), admin.String(), accion, "")
		return nil
	})
}

// AdvanceFisico moves the physical-paperwork track.
func (s *Service) AdvanceFisico(ctx context.Context, rid id.RendicionID, admin id.UserID, next EstadoFisico) (*Rendicion, error) {
	return s.mutate(ctx, rid, func(r *Rendicion) error {
		now := requestcontext.Now(ctx)
		if err := r.AdvanceFisico(next, now); err != nil {
			return err
		}
		r.Append(now, admin.String(), "tramite_fisico", string(next))
		return nil
	})
}

// Get loads a rendición by application.
func (s *Service) Get(ctx context.Context, pid id.PostulacionID) (*Rendicion, error) {
	r, err := s.store.FindByPostulacion(ctx, pid)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "rendicion not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load rendicion")
	}
	return r, nil
}

func (s *Service) mutate(ctx context.Context, rid id.RendicionID, fn func(*Rendicion) error) (*Rendicion, error) {
	r, err := s.store.FindByID(ctx, rid)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "rendicion not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load rendicion")
	}
	if err := fn(r); err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, r); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update rendicion")
	}
	return r, nil
}
