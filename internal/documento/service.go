package documento

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"

	"convocatorias/internal/blob"
	"convocatorias/internal/platform/config"
	"convocatorias/internal/platform/metrics"
	id "convocatorias/pkg/domain"
	dErrors "convocatorias/pkg/domain-errors"
	"convocatorias/pkg/platform/sentinel"
	"convocatorias/pkg/requestcontext"
)

// Upload carries one incoming file.
type Upload struct {
	Nombre string
	Data   []byte
}

// Service runs the document sub-machine against the injected policy.
type Service struct {
	store   Store
	blobs   blob.Store
	policy  config.DocumentPolicy
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

func New(store Store, blobs blob.Store, policy config.DocumentPolicy, opts ...Option) *Service {
	s := &Service{
		store:  store,
		blobs:  blobs,
		policy: policy,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Upload validates the file against the policy, checks the quota, stores
// the payload, and creates the document in PENDIENTE. The quota is
// re-checked atomically at insert time by the store; the early Remaining
// read only produces a friendlier message.
func (s *Service) Upload(ctx context.Context, owner Owner, tipo Tipo, subTipo SubTipo, up Upload) (*Documento, error) {
	if owner.IsZero() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "document owner is required")
	}
	if err := ValidateTipo(tipo, subTipo); err != nil {
		return nil, err
	}
	if err := s.validateFile(up); err != nil {
		s.countRejected(string(dErrors.CodeOf(err)))
		return nil, err
	}

	max := s.policy.MaxFor(string(tipo))
	if max <= 0 {
		return nil, dErrors.Newf(dErrors.CodeValidation, "documents of tipo %s are not accepted", tipo)
	}

	loc, err := s.blobs.Store(ctx, up.Nombre, up.Data)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store file")
	}

	doc := &Documento{
		ID:            id.NewDocumentoID(),
		Owner:         owner,
		UserID:        requestcontext.UserID(ctx),
		Tipo:          tipo,
		SubTipo:       subTipo,
		EsSubsanacion: tipo == TipoSubsanado,
		Estado:        EstadoPendiente,
		Nombre:        up.Nombre,
		Size:          int64(len(up.Data)),
		Locator:       loc,
		FechaSubida:   requestcontext.Now(ctx),
	}

	if err := s.store.CreateIfWithinQuota(ctx, doc, max); err != nil {
		// The slot vanished between validation and insert, or was never
		// there. Clean up the orphaned blob best-effort.
		_ = s.blobs.Delete(ctx, loc)
		if errors.Is(err, sentinel.ErrQuotaExhausted) {
			s.countRejected("quota")
			return nil, dErrors.Newf(dErrors.CodeQuotaExceeded,
				"quota for %s documents reached (%d allowed)", tipo, max).
				WithField("remaining", 0).
				WithField("max", max)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create document")
	}

	if s.metrics != nil {
		s.metrics.DocumentosSubidos.Inc()
	}
	s.logger.InfoContext(ctx, "documento uploaded",
		"documento_id", doc.ID,
		"owner_tipo", owner.Tipo,
		"owner_id", owner.ID,
		"tipo", tipo,
		"request_id", requestcontext.RequestID(ctx),
	)
	return doc, nil
}

// Delete removes a document its owner no longer wants. Only the uploader
// may delete, and only while the document is still PENDIENTE.
func (s *Service) Delete(ctx context.Context, docID id.DocumentoID, byUser id.UserID) error {
	doc, err := s.store.FindByID(ctx, docID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "document not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load document")
	}
	if doc.UserID != byUser {
		return dErrors.New(dErrors.CodeForbidden, "document belongs to another user")
	}
	if err := s.store.DeletePendiente(ctx, docID); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrInvalidState):
			return dErrors.New(dErrors.CodeInvalidState, "sent documents are immutable")
		case errors.Is(err, sentinel.ErrNotFound):
			return dErrors.New(dErrors.CodeNotFound, "document not found")
		default:
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete document")
		}
	}
	// The blob is unreferenced now; losing this delete only leaks storage.
	if err := s.blobs.Delete(ctx, doc.Locator); err != nil {
		s.logger.WarnContext(ctx, "orphaned blob after document delete",
			"documento_id", docID, "locator", doc.Locator, "error", err)
	}
	return nil
}

// ConfirmBatch flips every PENDIENTE document of (owner, tipo) to ENVIADO
// in one atomic step. Rejects with invalid_state when nothing is pending:
// confirmation is the only path that advances documents, and confirming
// nothing would let callers fake a submission.
func (s *Service) ConfirmBatch(ctx context.Context, owner Owner, tipo Tipo) (int, error) {
	n, err := s.store.ConfirmBatch(ctx, owner, tipo, requestcontext.Now(ctx))
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to confirm documents")
	}
	if n == 0 {
		return 0, dErrors.Newf(dErrors.CodeInvalidState, "no pending %s documents to confirm", tipo)
	}
	s.logger.InfoContext(ctx, "documento batch confirmed",
		"owner_tipo", owner.Tipo,
		"owner_id", owner.ID,
		"tipo", tipo,
		"count", n,
		"request_id", requestcontext.RequestID(ctx),
	)
	return n, nil
}

// Remaining reports how many upload slots are left for (owner, tipo).
func (s *Service) Remaining(ctx context.Context, owner Owner, tipo Tipo) (int, error) {
	max := s.policy.MaxFor(string(tipo))
	active, err := s.store.CountActive(ctx, owner, tipo)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count documents")
	}
	if remaining := max - active; remaining > 0 {
		return remaining, nil
	}
	return 0, nil
}

// CountSent reports confirmed documents of (owner, tipo). The application
// machine uses it to require at least one sent PROYECTO document before
// submission.
func (s *Service) CountSent(ctx context.Context, owner Owner, tipo Tipo) (int, error) {
	n, err := s.store.CountSent(ctx, owner, tipo)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count documents")
	}
	return n, nil
}

// List returns every document of the owner, oldest first.
func (s *Service) List(ctx context.Context, owner Owner) ([]*Documento, error) {
	docs, err := s.store.ListByOwner(ctx, owner)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list documents")
	}
	return docs, nil
}

func (s *Service) validateFile(up Upload) error {
	if up.Nombre == "" || len(up.Data) == 0 {
		return dErrors.New(dErrors.CodeValidation, "file name and content are required")
	}
	ext := strings.ToLower(filepath.Ext(up.Nombre))
	allowed := false
	for _, a := range s.policy.AllowedExtensions {
		if ext == a {
			allowed = true
			break
		}
	}
	if !allowed {
		return dErrors.Newf(dErrors.CodeInvalidFile, "file must be one of %s",
			strings.Join(s.policy.AllowedExtensions, ", "))
	}
	if int64(len(up.Data)) > s.policy.MaxFileSize {
		return dErrors.Newf(dErrors.CodeFileTooLarge, "file exceeds %d MB",
			s.policy.MaxFileSize/(1024*1024)).
			WithField("max_bytes", s.policy.MaxFileSize)
	}
	return nil
}

func (s *Service) countRejected(reason string) {
	if s.metrics != nil {
		s.metrics.DocumentosRechazados.WithLabelValues(reason).Inc()
	}
}
