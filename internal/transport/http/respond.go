// Package httptransport is the thin HTTP layer. Handlers decode, delegate
// to the domain services, and encode; state rules stay in the domain.
package httptransport

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	id "convocatorias/pkg/domain"
	dErrors "convocatorias/pkg/domain-errors"
	"convocatorias/pkg/requestcontext"
)

// statusByCode translates domain error codes to HTTP statuses. Codes not
// listed fall through to 500.
var statusByCode = map[dErrors.Code]int{
	dErrors.CodeBadRequest:           http.StatusBadRequest,
	dErrors.CodeValidation:           http.StatusUnprocessableEntity,
	dErrors.CodeInvalidFile:          http.StatusUnprocessableEntity,
	dErrors.CodeFileTooLarge:         http.StatusRequestEntityTooLarge,
	dErrors.CodeIncompleteFiscalData: http.StatusUnprocessableEntity,
	dErrors.CodeNotRegistered:        http.StatusForbidden,
	dErrors.CodeForbidden:            http.StatusForbidden,
	dErrors.CodeNotFound:             http.StatusNotFound,
	dErrors.CodeQuotaExceeded:        http.StatusConflict,
	dErrors.CodeInvalidState:         http.StatusConflict,
	dErrors.CodeConflict:             http.StatusConflict,
}

type errorEnvelope struct {
	Error   string         `json:"error"`
	Message string         `json:"message,omitempty"`
	Fields  map[string]any `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	status, ok := statusByCode[code]
	if !ok {
		status = http.StatusInternalServerError
		code = dErrors.CodeInternal
	}
	env := errorEnvelope{Error: string(code), Fields: dErrors.FieldsOf(err)}
	// Internal details stay in the logs.
	if status != http.StatusInternalServerError {
		env.Message = err.Error()
	}
	writeJSON(w, status, env)
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid request body")
	}
	return nil
}

// requireUser rejects requests the gateway did not attach an identity to.
func requireUser(r *http.Request) (id.UserID, error) {
	userID := requestcontext.UserID(r.Context())
	if userID.IsNil() {
		return id.UserID{}, dErrors.New(dErrors.CodeForbidden, "authentication required")
	}
	return userID, nil
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	u, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeBadRequest, "invalid %s", name)
	}
	return u, nil
}

// warningStrings flattens best-effort failures for the response body.
func warningStrings(warnings []error) []string {
	var out []string
	for _, w := range warnings {
		out = append(out, w.Error())
	}
	return out
}
