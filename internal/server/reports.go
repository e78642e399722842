package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gorilla/mux"

	"choco-backend/internal/job"
	"choco-backend/internal/report"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// handleGenerate renders a report synchronously and streams it back.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var cfg report.Config
	if err := decodeJSON(r, &cfg); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid report config: %v", err))
		return
	}
	s.mergePresets(&cfg)

	dir, err := os.MkdirTemp("", "report-sync-*")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to allocate workspace")
		return
	}
	defer os.RemoveAll(dir)

	gen := report.NewGenerator(s.logger)
	path, err := gen.GenerateReport(&cfg, filepath.Join(dir, "report.xlsx"))
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, fmt.Sprintf("generation failed: %v", err))
		return
	}

	f, err := os.Open(path)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to open generated report")
		return
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to stat generated report")
		return
	}

	filename := r.URL.Query().Get("filename")
	if filename == "" {
		filename = "report.xlsx"
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.FormatInt(st.Size(), 10))
	io.Copy(w, f)
}

// handleValidate runs configuration validation without keeping output.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var cfg report.Config
	if err := decodeJSON(r, &cfg); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid report config: %v", err))
		return
	}
	s.mergePresets(&cfg)

	gen := report.NewGenerator(s.logger)
	writeJSON(w, http.StatusOK, gen.ValidateConfig(&cfg))
}

// handleExample returns a representative report configuration.
func (s *Server) handleExample(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, exampleConfig())
}

// handleParse reverses an uploaded workbook into its structural form.
// The multipart field "file" carries the workbook; the optional field
// "has_header" overrides row-1 header detection for every sheet.
func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(s.cfg.Files.MaxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	dir, err := os.MkdirTemp("", "report-parse-*")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to allocate workspace")
		return
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "upload.xlsx")
	dst, err := os.Create(path)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}
	if _, err := io.Copy(dst, file); err != nil {
		dst.Close()
		writeError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}
	dst.Close()

	var opts []report.ParseOption
	if v := r.FormValue("has_header"); v != "" {
		hasHeader, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "has_header must be a boolean")
			return
		}
		opts = append(opts, report.WithSheetHeader("", hasHeader))
	}

	parser := report.NewStructureParser(s.logger)
	ws, err := parser.ParseFile(path, opts...)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, fmt.Sprintf("failed to parse %s: %v", header.Filename, err))
		return
	}

	writeJSON(w, http.StatusOK, ws)
}

// jobSubmitRequest is the async generation payload.
type jobSubmitRequest struct {
	Filename string         `json:"filename,omitempty"`
	Config   *report.Config `json:"config"`
}

func (s *Server) handleJobSubmit(w http.ResponseWriter, r *http.Request) {
	var req jobSubmitRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err))
		return
	}
	if req.Config == nil {
		writeError(w, http.StatusBadRequest, "config is required")
		return
	}
	s.mergePresets(req.Config)

	j, err := s.jobs.Submit(r.Context(), userID(r), req.Config, req.Filename)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to submit job: %v", err))
		return
	}

	writeJSON(w, http.StatusAccepted, j)
}

func (s *Server) handleJobList(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.jobs.List(r.Context(), userID(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list jobs")
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

// ownedJob loads a job and enforces that it belongs to the caller.
func (s *Server) ownedJob(w http.ResponseWriter, r *http.Request) *job.Job {
	id := mux.Vars(r)["id"]
	j, err := s.jobs.Status(r.Context(), id)
	if err != nil {
		if errors.Is(err, job.ErrNotFound) {
			writeError(w, http.StatusNotFound, "job not found")
		} else {
			writeError(w, http.StatusInternalServerError, "failed to load job")
		}
		return nil
	}
	if j.UserID != userID(r) {
		writeError(w, http.StatusNotFound, "job not found")
		return nil
	}
	return j
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	j := s.ownedJob(w, r)
	if j == nil {
		return
	}
	writeJSON(w, http.StatusOK, j)
}

func (s *Server) handleJobDelete(w http.ResponseWriter, r *http.Request) {
	j := s.ownedJob(w, r)
	if j == nil {
		return
	}
	if err := s.jobs.Delete(r.Context(), j.ID); err != nil && !errors.Is(err, job.ErrNotFound) {
		writeError(w, http.StatusInternalServerError, "failed to delete job")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleJobDownload(w http.ResponseWriter, r *http.Request) {
	j := s.ownedJob(w, r)
	if j == nil {
		return
	}
	if j.Status != job.StatusCompleted || j.OutputPath == "" {
		writeError(w, http.StatusConflict, fmt.Sprintf("job is %s, not completed", j.Status))
		return
	}

	filename := j.Filename
	if filename == "" {
		filename = j.ID + ".xlsx"
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	http.ServeFile(w, r, j.OutputPath)
}

// exampleConfig builds a small two-column report with alternating rows,
// frozen header and a bar chart, usable as a starting template.
func exampleConfig() *report.Config {
	return &report.Config{
		Properties: &report.WorkbookProperties{
			Title:   "Monthly Sales",
			Creator: "choco-backend",
		},
		Sheets: []report.SheetConfig{
			{
				Name: "Sales",
				Headers: []report.HeaderConfig{
					{Title: "Region"},
					{Title: "Revenue", DataStyle: &report.StyleSpec{NumberFormat: "#,##0.00"}},
				},
				Data: [][]any{
					{"North", 12500.5},
					{"South", 9800.0},
					{"East", 15200.75},
					{"West", 11000.25},
				},
				Formatting: &report.FormattingConfig{
					FreezePanes: "A2",
					AlternatingRows: &report.AlternatingRows{
						StartRow: 2,
						EndRow:   5,
					},
				},
				Charts: []report.ChartDescriptor{
					{
						Type:      "bar",
						DataRange: "B2:B5",
						Title:     "Revenue by region",
						Position:  "D2",
					},
				},
			},
		},
	}
}
