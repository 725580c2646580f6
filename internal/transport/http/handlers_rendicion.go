package httptransport

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"convocatorias/internal/rendicion"
	id "convocatorias/pkg/domain"
	dErrors "convocatorias/pkg/domain-errors"
)

type rendicionHandler struct {
	svc *rendicion.Service
}

func (h *rendicionHandler) Register(r chi.Router) {
	r.Get("/postulaciones/{id}/rendicion", h.getByPostulacion)
	r.Post("/rendiciones/{id}/enviar", h.submitDigital)

	r.Post("/admin/rendiciones/{id}/observar", h.observeDigital)
	r.Post("/admin/rendiciones/{id}/resolver", h.resolveDigital)
	r.Post("/admin/rendiciones/{id}/fisico", h.advanceFisico)
}

type eventoView struct {
	Fecha   string `json:"fecha"`
	Actor   string `json:"actor"`
	Accion  string `json:"accion"`
	Detalle string `json:"detalle,omitempty"`
}

type rendicionView struct {
	ID                 string       `json:"id"`
	PostulacionID      string       `json:"postulacion_id"`
	EstadoDigital      string       `json:"estado_digital"`
	EstadoFisico       string       `json:"estado_fisico"`
	LinkDocumentacion  string       `json:"link_documentacion,omitempty"`
	ObservacionUsuario string       `json:"observacion_usuario,omitempty"`
	ObservacionAdmin   string       `json:"observacion_admin,omitempty"`
	FechaRecepcion     string       `json:"fecha_recepcion,omitempty"`
	Cerrada            bool         `json:"cerrada"`
	Eventos            []eventoView `json:"eventos"`
}

func viewRendicion(r *rendicion.Rendicion) rendicionView {
	v := rendicionView{
		ID:                 r.ID.String(),
		PostulacionID:      r.PostulacionID.String(),
		EstadoDigital:      string(r.EstadoDigital),
		EstadoFisico:       string(r.EstadoFisico),
		LinkDocumentacion:  r.LinkDocumentacion,
		ObservacionUsuario: r.ObservacionUsuario,
		ObservacionAdmin:   r.ObservacionAdmin,
		Cerrada:            r.FullyClosed(),
		Eventos:            make([]eventoView, 0, len(r.Eventos)),
	}
	if r.FechaRecepcion != nil {
		v.FechaRecepcion = r.FechaRecepcion.Format(time.RFC3339)
	}
	for _, e := range r.Eventos {
		v.Eventos = append(v.Eventos, eventoView{
			Fecha:   e.Fecha.Format(time.RFC3339),
			Actor:   e.Actor,
			Accion:  e.Accion,
			Detalle: e.Detalle,
		})
	}
	return v
}

func (h *rendicionHandler) getByPostulacion(w http.ResponseWriter, r *http.Request) {
	userID, err := requireUser(r)
	if err != nil {
		writeError(w, err)
		return
	}
	pid, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	ren, err := h.svc.Get(r.Context(), id.PostulacionID(pid))
	if err != nil {
		writeError(w, err)
		return
	}
	if ren.UserID != userID {
		writeError(w, dErrors.New(dErrors.CodeForbidden, "rendicion belongs to another user"))
		return
	}
	writeJSON(w, http.StatusOK, viewRendicion(ren))
}

func (h *rendicionHandler) submitDigital(w http.ResponseWriter, r *http.Request) {
	userID, err := requireUser(r)
	if err != nil {
		writeError(w, err)
		return
	}
	rid, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var req struct {
		Link          string `json:"link"`
		Observaciones string `json:"observaciones"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	ren, err := h.svc.SubmitDigital(r.Context(), id.RendicionID(rid), userID, req.Link, req.Observaciones)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewRendicion(ren))
}

func (h *rendicionHandler) observeDigital(w http.ResponseWriter, r *http.Request) {
	admin, err := requireUser(r)
	if err != nil {
		writeError(w, err)
		return
	}
	rid, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var req struct {
		Observaciones string `json:"observaciones"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	ren, err := h.svc.ObserveDigital(r.Context(), id.RendicionID(rid), admin, req.Observaciones)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewRendicion(ren))
}

func (h *rendicionHandler) resolveDigital(w http.ResponseWriter, r *http.Request) {
	admin, err := requireUser(r)
	if err != nil {
		writeError(w, err)
		return
	}
	rid, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var req struct {
		Aprobada bool `json:"aprobada"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	ren, err := h.svc.ResolveDigital(r.Context(), id.RendicionID(rid), admin, req.Aprobada)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewRendicion(ren))
}

func (h *rendicionHandler) advanceFisico(w http.ResponseWriter, r *http.Request) {
	admin, err := requireUser(r)
	if err != nil {
		writeError(w, err)
		return
	}
	rid, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var req struct {
		Estado string `json:"estado"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	ren, err := h.svc.AdvanceFisico(r.Context(), id.RendicionID(rid), admin, rendicion.EstadoFisico(req.Estado))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewRendicion(ren))
}
