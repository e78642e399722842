package server

import (
	"errors"
	"io"
	"net/http"

	"choco-backend/internal/fileproc"
)

// handleInspect sniffs an uploaded file and returns a content summary.
func (s *Server) handleInspect(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(s.cfg.Files.MaxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	src, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, s.cfg.Files.MaxUploadSize+1))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read upload")
		return
	}

	info, err := s.files.Inspect(header.Filename, data)
	if err != nil {
		if errors.Is(err, fileproc.ErrTooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, err.Error())
		} else {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, info)
}
