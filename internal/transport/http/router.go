package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"convocatorias/internal/convocatoria"
	"convocatorias/internal/documento"
	"convocatorias/internal/exencion"
	"convocatorias/internal/platform/middleware"
	"convocatorias/internal/postulacion"
	"convocatorias/internal/rendicion"
)

// Deps are the wired domain services the router exposes.
type Deps struct {
	Convocatorias *convocatoria.Service
	Postulaciones *postulacion.Service
	Documentos    *documento.Service
	Rendiciones   *rendicion.Service
	Exenciones    *exencion.Service
	Logger        *slog.Logger
}

// NewRouter builds the full route tree. Applicant routes live at the root;
// admin transitions sit under /admin and trust the upstream gateway for
// authorization, same as user identity.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Identity)
	r.Use(middleware.Logger(d.Logger))
	r.Use(middleware.Recovery(d.Logger))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	(&convocatoriaHandler{svc: d.Convocatorias}).Register(r)
	(&postulacionHandler{svc: d.Postulaciones, docs: d.Documentos}).Register(r)
	(&rendicionHandler{svc: d.Rendiciones}).Register(r)
	(&exencionHandler{svc: d.Exenciones, docs: d.Documentos}).Register(r)

	return r
}
