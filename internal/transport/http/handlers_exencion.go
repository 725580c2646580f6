package httptransport

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"convocatorias/internal/documento"
	"convocatorias/internal/exencion"
	"convocatorias/internal/observacion"
	id "convocatorias/pkg/domain"
	dErrors "convocatorias/pkg/domain-errors"
)

type exencionHandler struct {
	svc  *exencion.Service
	docs *documento.Service
}

func (h *exencionHandler) Register(r chi.Router) {
	r.Post("/exenciones", h.iniciar)
	r.Get("/exenciones", h.listMine)
	r.Get("/exenciones/{id}", h.get)
	r.Post("/exenciones/{id}/documentos", h.uploadDoc)
	r.Get("/exenciones/{id}/documentos", h.listDocs)
	r.Post("/exenciones/{id}/subsanar", h.submitCorrection)
	r.Get("/constancias/{numero}", h.lookupConstancia)

	r.Post("/admin/exenciones/{id}/observar", h.observe)
	r.Post("/admin/exenciones/{id}/aprobar", h.approve)
	r.Post("/admin/exenciones/{id}/rechazar", h.reject)
	r.Post("/admin/exenciones/{id}/reemitir", h.reissue)
	r.Post("/admin/convocatorias/{id}/exenciones/aprobar", h.approveBatch)
}

type exencionView struct {
	ID               string `json:"id"`
	ConvocatoriaID   string `json:"convocatoria_id"`
	Estado           string `json:"estado"`
	Motivo           string `json:"motivo,omitempty"`
	Nombre           string `json:"nombre"`
	CUIT             string `json:"cuit"`
	NumeroConstancia string `json:"numero_constancia,omitempty"`
	FechaEmision     string `json:"fecha_emision,omitempty"`
	FechaVencimiento string `json:"fecha_vencimiento,omitempty"`
}

func viewExencion(e *exencion.Exencion) exencionView {
	v := exencionView{
		ID:               e.ID.String(),
		ConvocatoriaID:   e.ConvocatoriaID.String(),
		Estado:           string(e.Estado),
		Motivo:           e.Motivo,
		Nombre:           e.Nombre,
		CUIT:             e.CUIT,
		NumeroConstancia: e.NumeroConstancia,
	}
	if e.FechaEmision != nil {
		v.FechaEmision = e.FechaEmision.Format(time.RFC3339)
	}
	if e.FechaVencimiento != nil {
		v.FechaVencimiento = e.FechaVencimiento.Format(time.RFC3339)
	}
	return v
}

func (h *exencionHandler) iniciar(w http.ResponseWriter, r *http.Request) {
	userID, err := requireUser(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req struct {
		ConvocatoriaID string `json:"convocatoria_id"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	cid, err := uuid.Parse(req.ConvocatoriaID)
	if err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid convocatoria_id"))
		return
	}
	e, created, err := h.svc.Iniciar(r.Context(), userID, id.ConvocatoriaID(cid))
	if err != nil {
		writeError(w, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, viewExencion(e))
}

func (h *exencionHandler) listMine(w http.ResponseWriter, r *http.Request) {
	userID, err := requireUser(r)
	if err != nil {
		writeError(w, err)
		return
	}
	es, err := h.svc.ListByUser(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]exencionView, 0, len(es))
	for _, e := range es {
		out = append(out, viewExencion(e))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *exencionHandler) get(w http.ResponseWriter, r *http.Request) {
	e, err := h.loadOwned(r)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewExencion(e))
}

func (h *exencionHandler) uploadDoc(w http.ResponseWriter, r *http.Request) {
	e, err := h.loadOwned(r)
	if err != nil {
		writeError(w, err)
		return
	}
	up, tipo, subTipo, err := readUpload(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	doc, err := h.docs.Upload(r.Context(), documento.ExencionOwner(e.ID), tipo, subTipo, up)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, viewDocumento(doc))
}

func (h *exencionHandler) listDocs(w http.ResponseWriter, r *http.Request) {
	e, err := h.loadOwned(r)
	if err != nil {
		writeError(w, err)
		return
	}
	docs, err := h.docs.List(r.Context(), documento.ExencionOwner(e.ID))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewDocumentos(docs))
}

func (h *exencionHandler) submitCorrection(w http.ResponseWriter, r *http.Request) {
	userID, err := requireUser(r)
	if err != nil {
		writeError(w, err)
		return
	}
	eid, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	e, err := h.svc.SubmitCorrection(r.Context(), id.ExencionID(eid), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewExencion(e))
}

func (h *exencionHandler) lookupConstancia(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.LookupConstancia(r.Context(), chi.URLParam(r, "numero"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"numero":            c.Numero,
		"nombre":            c.Nombre,
		"cuit":              c.CUIT,
		"fecha_emision":     c.FechaEmision,
		"fecha_vencimiento": c.FechaVencimiento,
		"vigente":           c.Vigente,
	})
}

func (h *exencionHandler) approve(w http.ResponseWriter, r *http.Request) {
	eid, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	res, err := h.svc.ApproveAndIssue(r.Context(), id.ExencionID(eid))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"exencion":     viewExencion(res.Exencion),
		"advertencias": warningStrings(res.Warnings),
	})
}

func (h *exencionHandler) reissue(w http.ResponseWriter, r *http.Request) {
	eid, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	res, err := h.svc.Reissue(r.Context(), id.ExencionID(eid))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"exencion":     viewExencion(res.Exencion),
		"advertencias": warningStrings(res.Warnings),
	})
}

func (h *exencionHandler) reject(w http.ResponseWriter, r *http.Request) {
	eid, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var req struct {
		Motivo string `json:"motivo"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	e, err := h.svc.Rechazar(r.Context(), id.ExencionID(eid), req.Motivo)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewExencion(e))
}

func (h *exencionHandler) approveBatch(w http.ResponseWriter, r *http.Request) {
	cid, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	res, err := h.svc.ApproveBatch(r.Context(), id.ConvocatoriaID(cid))
	if err != nil {
		writeError(w, err)
		return
	}
	rejected := make([]map[string]string, 0, len(res.Rejected))
	for _, rej := range res.Rejected {
		rejected = append(rejected, map[string]string{
			"exencion_id": rej.ExencionID.String(),
			"error":       rej.Err.Error(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"aprobadas":    res.Approved,
		"advertencias": res.Warnings,
		"rechazadas":   rejected,
	})
}

func (h *exencionHandler) observe(w http.ResponseWriter, r *http.Request) {
	admin, err := requireUser(r)
	if err != nil {
		writeError(w, err)
		return
	}
	eid, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var req observeRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	params := exencion.ObserveParams{
		TipoDocumento: observacion.TipoDocumento(req.TipoDocumento),
		Descripcion:   req.Descripcion,
		CreadaPor:     admin,
	}
	if req.ObservacionID != "" {
		oid, err := uuid.Parse(req.ObservacionID)
		if err != nil {
			writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid observacion_id"))
			return
		}
		params.ObservacionID = id.ObservacionID(oid)
	}
	res, err := h.svc.Observe(r.Context(), id.ExencionID(eid), params)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewRecordResult(res))
}

func (h *exencionHandler) loadOwned(r *http.Request) (*exencion.Exencion, error) {
	userID, err := requireUser(r)
	if err != nil {
		return nil, err
	}
	eid, err := pathUUID(r, "id")
	if err != nil {
		return nil, err
	}
	e, err := h.svc.Get(r.Context(), id.ExencionID(eid))
	if err != nil {
		return nil, err
	}
	if e.UserID != userID {
		return nil, dErrors.New(dErrors.CodeForbidden, "exencion belongs to another user")
	}
	return e, nil
}
