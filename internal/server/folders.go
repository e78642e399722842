package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"choco-backend/internal/folder"
)

type folderCreateRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleFolderCreate(w http.ResponseWriter, r *http.Request) {
	var req folderCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	f, err := s.folders.CreateFolder(r.Context(), userID(r), req.Name)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to create folder: %v", err))
		return
	}
	writeJSON(w, http.StatusCreated, f)
}

func (s *Server) handleFolderList(w http.ResponseWriter, r *http.Request) {
	folders, err := s.folders.ListFolders(r.Context(), userID(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list folders")
		return
	}
	writeJSON(w, http.StatusOK, folders)
}

func (s *Server) handleFolderGet(w http.ResponseWriter, r *http.Request) {
	f, err := s.folders.GetFolder(r.Context(), userID(r), mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, folder.ErrNotFound) {
			writeError(w, http.StatusNotFound, "folder not found")
		} else {
			writeError(w, http.StatusInternalServerError, "failed to load folder")
		}
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (s *Server) handleFolderDelete(w http.ResponseWriter, r *http.Request) {
	err := s.folders.DeleteFolder(r.Context(), userID(r), mux.Vars(r)["id"])
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, folder.ErrNotFound):
		writeError(w, http.StatusNotFound, "folder not found")
	case errors.Is(err, folder.ErrNotEmpty):
		writeError(w, http.StatusConflict, "folder is not empty")
	default:
		writeError(w, http.StatusInternalServerError, "failed to delete folder")
	}
}

// handleFileUpload stores a multipart "file" field into a folder. The
// optional "tags" field is comma separated; "chat_id" links the file to
// a conversation.
func (s *Server) handleFileUpload(w http.ResponseWriter, r *http.Request) {
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

	if header.Size > s.cfg.Files.MaxUploadSize {
		writeError(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("file exceeds the %d byte limit", s.cfg.Files.MaxUploadSize))
		return
	}

	data, err := io.ReadAll(io.LimitReader(src, s.cfg.Files.MaxUploadSize+1))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read upload")
		return
	}
	if int64(len(data)) > s.cfg.Files.MaxUploadSize {
		writeError(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("file exceeds the %d byte limit", s.cfg.Files.MaxUploadSize))
		return
	}

	up := folder.FileUpload{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		ChatID:      r.FormValue("chat_id"),
		Data:        data,
	}
	if tags := r.FormValue("tags"); tags != "" {
		for _, tag := range strings.Split(tags, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				up.Tags = append(up.Tags, tag)
			}
		}
	}

	f, err := s.folders.SaveFile(r.Context(), userID(r), mux.Vars(r)["id"], up)
	if err != nil {
		if errors.Is(err, folder.ErrNotFound) {
			writeError(w, http.StatusNotFound, "folder not found")
		} else {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to store file: %v", err))
		}
		return
	}
	writeJSON(w, http.StatusCreated, f)
}

func (s *Server) handleFileList(w http.ResponseWriter, r *http.Request) {
	files, err := s.folders.ListFiles(r.Context(), userID(r), mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, folder.ErrNotFound) {
			writeError(w, http.StatusNotFound, "folder not found")
		} else {
			writeError(w, http.StatusInternalServerError, "failed to list files")
		}
		return
	}
	writeJSON(w, http.StatusOK, files)
}

func (s *Server) handleFileGet(w http.ResponseWriter, r *http.Request) {
	f, err := s.folders.GetFile(r.Context(), userID(r), mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, folder.ErrNotFound) {
			writeError(w, http.StatusNotFound, "file not found")
		} else {
			writeError(w, http.StatusInternalServerError, "failed to load file")
		}
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (s *Server) handleFileDownload(w http.ResponseWriter, r *http.Request) {
	f, data, err := s.folders.ReadFile(r.Context(), userID(r), mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, folder.ErrNotFound) {
			writeError(w, http.StatusNotFound, "file not found")
		} else {
			writeError(w, http.StatusInternalServerError, "failed to read file")
		}
		return
	}

	contentType := f.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", f.Name))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}

func (s *Server) handleFileDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.folders.DeleteFile(r.Context(), userID(r), mux.Vars(r)["id"]); err != nil {
		if errors.Is(err, folder.ErrNotFound) {
			writeError(w, http.StatusNotFound, "file not found")
		} else {
			writeError(w, http.StatusInternalServerError, "failed to delete file")
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
