package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/instaflow/pkg/domain/model"
	"github.com/secmon-lab/instaflow/pkg/service/archive"
	"github.com/secmon-lab/instaflow/pkg/usecase"
	"github.com/secmon-lab/instaflow/pkg/utils/errutil"
	"github.com/secmon-lab/instaflow/pkg/utils/safe"
)

const (
	uploadField = "file"

	// uploads up to this size are read so the size check can report them;
	// anything larger is cut off by the server
	maxUploadBody = archive.MaxSize + 1<<20
	multipartMem  = 8 << 20
)

func (s *Server) downloadBackup(w http.ResponseWriter, r *http.Request) {
	file, err := s.uc.Backup.CreateBackup(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeFile(w, r, "application/zip", file.Name, file.Data)
}

func (s *Server) saveBackup(w http.ResponseWriter, r *http.Request) {
	file, location, err := s.uc.Backup.SaveBackup(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, map[string]any{
		"name":     file.Name,
		"location": location,
		"message":  file.Message,
		"stats":    file.Stats,
	})
}

// restoreResponse is returned by every restore session endpoint
type restoreResponse struct {
	Session    *usecase.RestoreSessionStatus `json:"session"`
	Validation *archive.ValidationResult     `json:"validation,omitempty"`
	Outcome    *model.RestoreOutcome         `json:"outcome,omitempty"`
}

// startRestore opens a restore session with an uploaded archive, or with a
// stored one when the "name" query parameter is given.
func (s *Server) startRestore(w http.ResponseWriter, r *http.Request) {
	file, err := s.restoreSource(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	session := s.uc.Backup.NewRestoreSession()
	result, err := session.SelectFile(file)
	if err != nil {
		writeError(w, r, err)
		return
	}

	status := http.StatusCreated
	if !result.Valid {
		status = http.StatusUnprocessableEntity
		// nothing to confirm, so the session is not kept
		_ = s.uc.Backup.CloseRestoreSession(session.ID())
	}
	writeJSON(w, r, status, &restoreResponse{
		Session:    session.Status(),
		Validation: &result,
	})
}

func (s *Server) restoreSource(w http.ResponseWriter, r *http.Request) (*archive.File, error) {
	if name := r.URL.Query().Get("name"); name != "" {
		return s.uc.Backup.LoadBackup(r.Context(), name)
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)
	if err := r.ParseMultipartForm(multipartMem); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, goerr.Wrap(model.ErrSizeLimit, "File too large (max 50MB)")
		}
		return nil, goerr.Wrap(model.ErrValidation, "No file selected", goerr.V("cause", err.Error()))
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	f, header, err := r.FormFile(uploadField)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, goerr.Wrap(model.ErrValidation, "No file selected")
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read uploaded file")
	}
	defer safe.Close(r.Context(), f)

	// the session outlives this request, so keep the bytes rather than the temp file
	data, err := io.ReadAll(io.LimitReader(f, archive.MaxSize+1))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read uploaded file", goerr.V(model.FileNameKey, header.Filename))
	}
	return archive.NewFile(header.Filename, data), nil
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*usecase.RestoreSession, bool) {
	session, err := s.uc.Backup.RestoreSession(chi.URLParam(r, "sid"))
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	return session, true
}

func (s *Server) restoreStatus(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, r, http.StatusOK, &restoreResponse{Session: session.Status()})
}

func (s *Server) requestRestore(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := session.RequestRestore(); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, &restoreResponse{Session: session.Status()})
}

func (s *Server) confirmRestore(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}

	outcome, err := session.Confirm(r.Context())
	if err != nil && outcome == nil {
		writeError(w, r, err)
		return
	}

	status := http.StatusOK
	if err != nil {
		status = statusOf(err)
		_ = errutil.Handle(r.Context(), err, "restore failed")
	}
	writeJSON(w, r, status, &restoreResponse{
		Session: session.Status(),
		Outcome: outcome,
	})
}

func (s *Server) cancelRestore(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := session.Cancel(); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, &restoreResponse{Session: session.Status()})
}

func (s *Server) closeRestore(w http.ResponseWriter, r *http.Request) {
	if err := s.uc.Backup.CloseRestoreSession(chi.URLParam(r, "sid")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
