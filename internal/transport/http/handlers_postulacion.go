package httptransport

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"convocatorias/internal/documento"
	"convocatorias/internal/observacion"
	"convocatorias/internal/postulacion"
	id "convocatorias/pkg/domain"
	dErrors "convocatorias/pkg/domain-errors"
)

// maxUploadBytes caps the request body of document uploads, slightly above
// the policy's per-file limit so the policy error wins over a truncation.
const maxUploadBytes = 6 << 20

type postulacionHandler struct {
	svc  *postulacion.Service
	docs *documento.Service
}

func (h *postulacionHandler) Register(r chi.Router) {
	r.Post("/postulaciones", h.create)
	r.Get("/postulaciones", h.listMine)
	r.Get("/postulaciones/{id}", h.get)
	r.Put("/postulaciones/{id}", h.update)
	r.Post("/postulaciones/{id}/enviar", h.submit)
	r.Post("/postulaciones/{id}/subsanar", h.submitCorrection)
	r.Post("/postulaciones/{id}/documentos", h.uploadDoc)
	r.Get("/postulaciones/{id}/documentos", h.listDocs)
	r.Delete("/documentos/{id}", h.deleteDoc)

	r.Post("/admin/postulaciones/{id}/revision", h.startReview)
	r.Post("/admin/postulaciones/{id}/observar", h.observe)
	r.Post("/admin/postulaciones/{id}/admitir", h.admit)
	r.Post("/admin/postulaciones/{id}/jurado", h.sendToJury)
	r.Post("/admin/postulaciones/{id}/decidir", h.decide)
	r.Post("/admin/postulaciones/{id}/finalizar", h.finalize)
	r.Post("/admin/convocatorias/{id}/rendiciones", h.bulkRendiciones)
}

type postulacionView struct {
	ID                string `json:"id"`
	ConvocatoriaID    string `json:"convocatoria_id"`
	Linea             string `json:"linea"`
	NombreProyecto    string `json:"nombre_proyecto,omitempty"`
	TipoProyecto      string `json:"tipo_proyecto,omitempty"`
	Genero            string `json:"genero,omitempty"`
	DuracionMinutos   int    `json:"duracion_minutos,omitempty"`
	DeclaracionJurada bool   `json:"declaracion_jurada"`
	Estado            string `json:"estado"`
	FechaEnvio        string `json:"fecha_envio,omitempty"`
}

func viewPostulacion(p *postulacion.Postulacion) postulacionView {
	v := postulacionView{
		ID:                p.ID.String(),
		ConvocatoriaID:    p.ConvocatoriaID.String(),
		Linea:             string(p.Linea),
		NombreProyecto:    p.NombreProyecto,
		TipoProyecto:      p.TipoProyecto,
		Genero:            p.Genero,
		DuracionMinutos:   p.DuracionMinutos,
		DeclaracionJurada: p.DeclaracionJurada,
		Estado:            string(p.Estado),
	}
	if p.FechaEnvio != nil {
		v.FechaEnvio = p.FechaEnvio.Format(time.RFC3339)
	}
	return v
}

type postulacionRequest struct {
	ConvocatoriaID    string `json:"convocatoria_id"`
	NombreProyecto    string `json:"nombre_proyecto"`
	TipoProyecto      string `json:"tipo_proyecto"`
	Genero            string `json:"genero"`
	DuracionMinutos   int    `json:"duracion_minutos"`
	DeclaracionJurada bool   `json:"declaracion_jurada"`
}

func (req *postulacionRequest) datos() postulacion.DatosProyecto {
	return postulacion.DatosProyecto{
		NombreProyecto:  req.NombreProyecto,
		TipoProyecto:    req.TipoProyecto,
		Genero:          req.Genero,
		DuracionMinutos: req.DuracionMinutos,
	}
}

func (h *postulacionHandler) create(w http.ResponseWriter, r *http.Request) {
	userID, err := requireUser(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req postulacionRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	cid, err := uuid.Parse(req.ConvocatoriaID)
	if err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid convocatoria_id"))
		return
	}
	p, err := h.svc.Create(r.Context(), userID, id.ConvocatoriaID(cid), req.datos(), req.DeclaracionJurada)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, viewPostulacion(p))
}

func (h *postulacionHandler) listMine(w http.ResponseWriter, r *http.Request) {
	userID, err := requireUser(r)
	if err != nil {
		writeError(w, err)
		return
	}
	ps, err := h.svc.ListByUser(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]postulacionView, 0, len(ps))
	for _, p := range ps {
		out = append(out, viewPostulacion(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *postulacionHandler) get(w http.ResponseWriter, r *http.Request) {
	p, err := h.loadOwned(r)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewPostulacion(p))
}

func (h *postulacionHandler) update(w http.ResponseWriter, r *http.Request) {
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
	var req postulacionRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	p, err := h.svc.UpdateDatos(r.Context(), id.PostulacionID(pid), userID, req.datos(), req.DeclaracionJurada)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewPostulacion(p))
}

func (h *postulacionHandler) submit(w http.ResponseWriter, r *http.Request) {
	h.applicantTransition(w, r, h.svc.Submit)
}

func (h *postulacionHandler) submitCorrection(w http.ResponseWriter, r *http.Request) {
	h.applicantTransition(w, r, h.svc.SubmitCorrection)
}

func (h *postulacionHandler) applicantTransition(w http.ResponseWriter, r *http.Request,
	fn func(ctx context.Context, pid id.PostulacionID, byUser id.UserID) (*postulacion.Postulacion, error)) {
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
	p, err := fn(r.Context(), id.PostulacionID(pid), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewPostulacion(p))
}

func (h *postulacionHandler) uploadDoc(w http.ResponseWriter, r *http.Request) {
	p, err := h.loadOwned(r)
	if err != nil {
		writeError(w, err)
		return
	}
	up, tipo, subTipo, err := readUpload(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	doc, err := h.docs.Upload(r.Context(), documento.PostulacionOwner(p.ID), tipo, subTipo, up)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, viewDocumento(doc))
}

func (h *postulacionHandler) listDocs(w http.ResponseWriter, r *http.Request) {
	p, err := h.loadOwned(r)
	if err != nil {
		writeError(w, err)
		return
	}
	docs, err := h.docs.List(r.Context(), documento.PostulacionOwner(p.ID))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewDocumentos(docs))
}

func (h *postulacionHandler) deleteDoc(w http.ResponseWriter, r *http.Request) {
	userID, err := requireUser(r)
	if err != nil {
		writeError(w, err)
		return
	}
	docID, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.docs.Delete(r.Context(), id.DocumentoID(docID), userID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *postulacionHandler) startReview(w http.ResponseWriter, r *http.Request) {
	h.adminTransition(w, r, h.svc.StartReview)
}

func (h *postulacionHandler) admit(w http.ResponseWriter, r *http.Request) {
	h.adminTransition(w, r, h.svc.Admit)
}

func (h *postulacionHandler) sendToJury(w http.ResponseWriter, r *http.Request) {
	h.adminTransition(w, r, h.svc.SendToJury)
}

func (h *postulacionHandler) finalize(w http.ResponseWriter, r *http.Request) {
	h.adminTransition(w, r, h.svc.Finalize)
}

func (h *postulacionHandler) adminTransition(w http.ResponseWriter, r *http.Request,
	fn func(ctx context.Context, pid id.PostulacionID) (*postulacion.Postulacion, error)) {
	pid, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	p, err := fn(r.Context(), id.PostulacionID(pid))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewPostulacion(p))
}

type observeRequest struct {
	ObservacionID string `json:"observacion_id"`
	TipoDocumento string `json:"tipo_documento"`
	Descripcion   string `json:"descripcion"`
}

func (h *postulacionHandler) observe(w http.ResponseWriter, r *http.Request) {
	admin, err := requireUser(r)
	if err != nil {
		writeError(w, err)
		return
	}
	pid, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var req observeRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	params := postulacion.ObserveParams{
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
	res, err := h.svc.Observe(r.Context(), id.PostulacionID(pid), params)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewRecordResult(res))
}

func (h *postulacionHandler) decide(w http.ResponseWriter, r *http.Request) {
	pid, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var req struct {
		Seleccionada bool `json:"seleccionada"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	p, err := h.svc.Decide(r.Context(), id.PostulacionID(pid), req.Seleccionada)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewPostulacion(p))
}

// bulkRendiciones enables expense reports for an explicit id list when the
// body carries one, or for every selected application of the call otherwise.
func (h *postulacionHandler) bulkRendiciones(w http.ResponseWriter, r *http.Request) {
	cid, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var req struct {
		PostulacionIDs []string `json:"postulacion_ids"`
	}
	if r.ContentLength != 0 {
		if err := decode(r, &req); err != nil {
			writeError(w, err)
			return
		}
	}

	var res *postulacion.BulkResult
	if len(req.PostulacionIDs) > 0 {
		pids := make([]id.PostulacionID, 0, len(req.PostulacionIDs))
		for _, raw := range req.PostulacionIDs {
			pid, err := uuid.Parse(raw)
			if err != nil {
				writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid postulacion_id"))
				return
			}
			pids = append(pids, id.PostulacionID(pid))
		}
		res, err = h.svc.CreateRendiciones(r.Context(), pids)
	} else {
		res, err = h.svc.CreateRendicionesForConvocatoria(r.Context(), id.ConvocatoriaID(cid))
	}
	if err != nil {
		writeError(w, err)
		return
	}
	rejected := make([]map[string]string, 0, len(res.Rejected))
	for _, rej := range res.Rejected {
		rejected = append(rejected, map[string]string{
			"postulacion_id": rej.PostulacionID.String(),
			"error":          rej.Err.Error(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"creadas":       res.Created,
		"ya_existentes": res.AlreadyExisted,
		"omitidas":      res.Skipped,
		"rechazadas":    rejected,
	})
}

// loadOwned resolves the path application and enforces applicant ownership.
func (h *postulacionHandler) loadOwned(r *http.Request) (*postulacion.Postulacion, error) {
	userID, err := requireUser(r)
	if err != nil {
		return nil, err
	}
	pid, err := pathUUID(r, "id")
	if err != nil {
		return nil, err
	}
	p, err := h.svc.Get(r.Context(), id.PostulacionID(pid))
	if err != nil {
		return nil, err
	}
	if p.UserID != userID {
		return nil, dErrors.New(dErrors.CodeForbidden, "postulacion belongs to another user")
	}
	return p, nil
}

// readUpload pulls the multipart file plus tipo/sub_tipo fields.
func readUpload(w http.ResponseWriter, r *http.Request) (documento.Upload, documento.Tipo, documento.SubTipo, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return documento.Upload{}, "", "", dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid multipart body")
	}
	file, header, err := r.FormFile("archivo")
	if err != nil {
		return documento.Upload{}, "", "", dErrors.New(dErrors.CodeBadRequest, "archivo field is required")
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return documento.Upload{}, "", "", dErrors.Wrap(err, dErrors.CodeBadRequest, "failed to read file")
	}
	return documento.Upload{Nombre: header.Filename, Data: data},
		documento.Tipo(r.FormValue("tipo")),
		documento.SubTipo(r.FormValue("sub_tipo")),
		nil
}

type documentoView struct {
	ID          string `json:"id"`
	Tipo        string `json:"tipo"`
	SubTipo     string `json:"sub_tipo,omitempty"`
	Estado      string `json:"estado"`
	Nombre      string `json:"nombre"`
	Size        int64  `json:"size_bytes"`
	FechaSubida string `json:"fecha_subida"`
	FechaEnvio  string `json:"fecha_envio,omitempty"`
}

func viewDocumento(d *documento.Documento) documentoView {
	v := documentoView{
		ID:          d.ID.String(),
		Tipo:        string(d.Tipo),
		SubTipo:     string(d.SubTipo),
		Estado:      string(d.Estado),
		Nombre:      d.Nombre,
		Size:        d.Size,
		FechaSubida: d.FechaSubida.Format(time.RFC3339),
	}
	if d.FechaEnvio != nil {
		v.FechaEnvio = d.FechaEnvio.Format(time.RFC3339)
	}
	return v
}

func viewDocumentos(docs []*documento.Documento) []documentoView {
	out := make([]documentoView, 0, len(docs))
	for _, d := range docs {
		out = append(out, viewDocumento(d))
	}
	return out
}

type recordResultView struct {
	ObservacionID string `json:"observacion_id"`
	Notificada    bool   `json:"notificada"`
	Advertencia   string `json:"advertencia,omitempty"`
}

func viewRecordResult(res *observacion.RecordResult) recordResultView {
	v := recordResultView{
		ObservacionID: res.Observacion.ID.String(),
		Notificada:    res.Notified,
	}
	if res.Warning != nil {
		v.Advertencia = res.Warning.Error()
	}
	return v
}
