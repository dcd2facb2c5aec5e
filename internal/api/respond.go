package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/Leanline-Systems/Gemba/internal/store"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeStoreError maps the domain error taxonomy onto HTTP statuses. The
// exact constraint message is passed through so administrative UIs can
// surface it verbatim.
func writeStoreError(w http.ResponseWriter, err error) {
	var validation *store.ValidationError
	var conflict *store.ConflictError
	var notFound *store.NotFoundError
	var invalidOp *store.InvalidOperationError

	switch {
	case errors.As(err, &validation):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
			"error":      validation.Error(),
			"constraint": validation.Constraint,
		})
	case errors.As(err, &conflict):
		body := map[string]string{"error": conflict.Error()}
		if conflict.ConflictingID != uuid.Nil {
			body["conflicting_id"] = conflict.ConflictingID.String()
		}
		writeJSON(w, http.StatusConflict, body)
	case errors.As(err, &notFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": notFound.Error()})
	case errors.As(err, &invalidOp):
		writeJSON(w, http.StatusConflict, map[string]string{"error": invalidOp.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}
