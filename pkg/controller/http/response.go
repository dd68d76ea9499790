package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/instaflow/pkg/domain/model"
	"github.com/secmon-lab/instaflow/pkg/utils/errutil"
	"github.com/secmon-lab/instaflow/pkg/utils/safe"
)

// maxJSONBody bounds request bodies other than archive uploads
const maxJSONBody = 1 << 20

// statusOf maps the error taxonomy onto HTTP status codes
func statusOf(err error) int {
	switch {
	case errors.Is(err, model.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrConflict), errors.Is(err, model.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, model.ErrFormat):
		return http.StatusUnprocessableEntity
	case errors.Is(err, model.ErrSizeLimit):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, model.ErrBusy):
		return http.StatusLocked
	case errors.Is(err, model.ErrNotConfigured):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	errutil.HandleHTTP(r.Context(), w, err, statusOf(err))
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, goerr.Wrap(err, "failed to marshal response"), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	safe.Write(r.Context(), w, data)
}

func writeFile(w http.ResponseWriter, r *http.Request, contentType, name string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	safe.Write(r.Context(), w, data)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return goerr.Wrap(model.ErrValidation, "invalid request body", goerr.V("cause", err.Error()))
	}
	return nil
}

func userIDParam(r *http.Request) (model.UserID, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, goerr.Wrap(model.ErrValidation, "invalid user id", goerr.V(model.UserIDKey, raw))
	}
	return model.UserID(id), nil
}
