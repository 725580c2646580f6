package httptransport

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"convocatorias/internal/convocatoria"
	dErrors "convocatorias/pkg/domain-errors"
)

type convocatoriaHandler struct {
	svc *convocatoria.Service
}

func (h *convocatoriaHandler) Register(r chi.Router) {
	r.Get("/convocatorias", h.list)
	r.Get("/convocatorias/{slug}", h.get)
	r.Post("/convocatorias/{slug}/inscripcion", h.enroll)

	r.Post("/admin/convocatorias", h.publish)
}

type convocatoriaView struct {
	ID      string `json:"id"`
	Slug    string `json:"slug"`
	Titulo  string `json:"titulo"`
	Linea   string `json:"linea"`
	Destino string `json:"destino"`
	Abre    string `json:"abre"`
	Cierra  string `json:"cierra,omitempty"`
	Abierta bool   `json:"abierta"`
}

func viewConvocatoria(c *convocatoria.Convocatoria, now time.Time) convocatoriaView {
	v := convocatoriaView{
		ID:      c.ID.String(),
		Slug:    c.Slug,
		Titulo:  c.Titulo,
		Linea:   string(c.Linea),
		Destino: string(c.Destino()),
		Abre:    c.Abre.Format(time.RFC3339),
		Abierta: c.Abierta(now),
	}
	if !c.Cierra.IsZero() {
		v.Cierra = c.Cierra.Format(time.RFC3339)
	}
	return v
}

func (h *convocatoriaHandler) list(w http.ResponseWriter, r *http.Request) {
	linea := convocatoria.Linea(r.URL.Query().Get("linea"))
	calls, err := h.svc.ListByLinea(r.Context(), linea)
	if err != nil {
		writeError(w, err)
		return
	}
	now := time.Now()
	out := make([]convocatoriaView, 0, len(calls))
	for _, c := range calls {
		out = append(out, viewConvocatoria(c, now))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *convocatoriaHandler) get(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewConvocatoria(c, time.Now()))
}

func (h *convocatoriaHandler) enroll(w http.ResponseWriter, r *http.Request) {
	userID, err := requireUser(r)
	if err != nil {
		writeError(w, err)
		return
	}
	c, err := h.svc.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeError(w, err)
		return
	}
	ins, created, err := h.svc.Enroll(r.Context(), userID, c.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, map[string]string{
		"inscripcion_id":  ins.ID.String(),
		"convocatoria_id": ins.ConvocatoriaID.String(),
	})
}

type publishRequest struct {
	Slug   string `json:"slug"`
	Titulo string `json:"titulo"`
	Linea  string `json:"linea"`
	Abre   string `json:"abre"`
	Cierra string `json:"cierra"`
}

func (h *convocatoriaHandler) publish(w http.ResponseWriter, r *http.Request) {
	var req publishRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	abre, cierra, err := parseWindow(req.Abre, req.Cierra)
	if err != nil {
		writeError(w, err)
		return
	}
	c, err := convocatoria.New(req.Slug, req.Titulo, convocatoria.Linea(req.Linea), abre, cierra)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.svc.Publish(r.Context(), c); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, viewConvocatoria(c, time.Now()))
}

func parseWindow(abre, cierra string) (time.Time, time.Time, error) {
	from, err := time.Parse(time.RFC3339, abre)
	if err != nil {
		return time.Time{}, time.Time{}, badTime("abre")
	}
	var to time.Time
	if cierra != "" {
		if to, err = time.Parse(time.RFC3339, cierra); err != nil {
			return time.Time{}, time.Time{}, badTime("cierra")
		}
	}
	return from, to, nil
}

func badTime(field string) error {
	return dErrors.Newf(dErrors.CodeBadRequest, "%s must be RFC 3339", field)
}
