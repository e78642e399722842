// Package server exposes the backend over HTTP: report generation and
// parsing, async report jobs, file inspection, chats, and folders.
// Authentication is external; callers identify themselves with an
// opaque X-User-ID header.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"choco-backend/internal/chat"
	"choco-backend/internal/client/agent"
	"choco-backend/internal/config"
	"choco-backend/internal/fileproc"
	"choco-backend/internal/folder"
	"choco-backend/internal/job"
	"choco-backend/internal/report"
)

// Server wires the services into an HTTP surface.
type Server struct {
	cfg     *config.Config
	jobs    *job.Service
	chats   *chat.Service
	folders *folder.Service
	files   *fileproc.Processor
	agent   *agent.Client
	logger  zerolog.Logger

	// presets are server-wide named styles merged into every incoming
	// report configuration; config-level styles with the same name win.
	presets []report.NamedStyle

	httpServer *http.Server
}

// SetStylePresets installs server-wide named styles. Call before Run.
func (s *Server) SetStylePresets(presets []report.NamedStyle) {
	s.presets = presets
}

// mergePresets prepends the server-wide presets to a configuration's
// own style list.
func (s *Server) mergePresets(cfg *report.Config) {
	if len(s.presets) == 0 {
		return
	}
	cfg.Styles = append(append([]report.NamedStyle{}, s.presets...), cfg.Styles...)
}

// New creates a Server over the given services.
func New(cfg *config.Config, jobs *job.Service, chats *chat.Service, folders *folder.Service, files *fileproc.Processor, agentClient *agent.Client, logger zerolog.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		jobs:    jobs,
		chats:   chats,
		folders: folders,
		files:   files,
		agent:   agentClient,
		logger:  logger.With().Str("component", "server").Logger(),
	}

	s.httpServer = &http.Server{
		Addr:         cfg.Server.Listen,
		Handler:      s.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return s
}

// Router builds the route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.loggingMiddleware)

	// Health
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.identityMiddleware)

	// Reports
	api.HandleFunc("/reports/generate", s.handleGenerate).Methods(http.MethodPost)
	api.HandleFunc("/reports/validate", s.handleValidate).Methods(http.MethodPost)
	api.HandleFunc("/reports/example", s.handleExample).Methods(http.MethodGet)
	api.HandleFunc("/reports/parse", s.handleParse).Methods(http.MethodPost)

	// Report jobs
	api.HandleFunc("/jobs", s.handleJobSubmit).Methods(http.MethodPost)
	api.HandleFunc("/jobs", s.handleJobList).Methods(http.MethodGet)
	api.HandleFunc("/jobs/{id}", s.handleJobStatus).Methods(http.MethodGet)
	api.HandleFunc("/jobs/{id}", s.handleJobDelete).Methods(http.MethodDelete)
	api.HandleFunc("/jobs/{id}/download", s.handleJobDownload).Methods(http.MethodGet)

	// File inspection
	api.HandleFunc("/files/inspect", s.handleInspect).Methods(http.MethodPost)

	// Chats
	api.HandleFunc("/chats", s.handleChatCreate).Methods(http.MethodPost)
	api.HandleFunc("/chats", s.handleChatList).Methods(http.MethodGet)
	api.HandleFunc("/chats/{id}", s.handleChatGet).Methods(http.MethodGet)
	api.HandleFunc("/chats/{id}", s.handleChatRename).Methods(http.MethodPatch)
	api.HandleFunc("/chats/{id}", s.handleChatDelete).Methods(http.MethodDelete)
	api.HandleFunc("/chats/{id}/messages", s.handleChatMessages).Methods(http.MethodGet)
	api.HandleFunc("/chats/{id}/messages", s.handleChatSend).Methods(http.MethodPost)

	// Folders and files
	api.HandleFunc("/folders", s.handleFolderCreate).Methods(http.MethodPost)
	api.HandleFunc("/folders", s.handleFolderList).Methods(http.MethodGet)
	api.HandleFunc("/folders/{id}", s.handleFolderGet).Methods(http.MethodGet)
	api.HandleFunc("/folders/{id}", s.handleFolderDelete).Methods(http.MethodDelete)
	api.HandleFunc("/folders/{id}/files", s.handleFileUpload).Methods(http.MethodPost)
	api.HandleFunc("/folders/{id}/files", s.handleFileList).Methods(http.MethodGet)
	api.HandleFunc("/files/{id}", s.handleFileGet).Methods(http.MethodGet)
	api.HandleFunc("/files/{id}", s.handleFileDelete).Methods(http.MethodDelete)
	api.HandleFunc("/files/{id}/download", s.handleFileDownload).Methods(http.MethodGet)

	return r
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.httpServer.Addr).Msg("http server listening")
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()

	s.logger.Info().Msg("shutting down http server")
	return s.httpServer.Shutdown(shutdownCtx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
