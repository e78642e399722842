package job

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"choco-backend/internal/report"
)

// Progress checkpoints of a report job.
const (
	progressAccepted  = 10
	progressBuilding  = 30
	progressRendering = 50
	progressSaving    = 90
	progressDone      = 100
)

// Config controls the async job service.
type Config struct {
	// OutputDir is where generated files land, keyed by job id.
	OutputDir string
	// Workers bounds concurrent renders.
	Workers int
	// RetentionTTL is how long finished jobs and their files are kept.
	RetentionTTL time.Duration
	// SweepInterval is how often expired jobs are removed.
	SweepInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.OutputDir == "" {
		c.OutputDir = "reports"
	}
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.RetentionTTL <= 0 {
		c.RetentionTTL = 24 * time.Hour
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = time.Hour
	}
	return c
}

// Renderer produces a report file from a configuration. Implementations
// need not be safe for concurrent use; the service calls Render from
// pool workers with no shared renderer state.
type Renderer interface {
	Render(cfg *report.Config, outputPath string) (path string, warnings []string, err error)
}

// GeneratorRenderer adapts the report generator to the Renderer
// interface, creating a generator per call so renders can run in
// parallel.
type GeneratorRenderer struct {
	Logger zerolog.Logger
}

func (r GeneratorRenderer) Render(cfg *report.Config, outputPath string) (string, []string, error) {
	g := report.NewGenerator(r.Logger)
	path, err := g.GenerateReport(cfg, outputPath)
	return path, g.Warnings(), err
}

// Service tracks report jobs and runs them on a bounded worker pool. The
// in-memory map is a cache over the durable store, so status survives a
// restart while polling stays cheap.
type Service struct {
	cfg      Config
	store    *Store
	renderer Renderer
	logger   zerolog.Logger

	group *errgroup.Group
	// wg tracks dispatched renders, including those still waiting for
	// a pool slot.
	wg sync.WaitGroup

	mu   sync.Mutex
	jobs map[string]*Job

	sweepCancel context.CancelFunc
	sweepDone   chan struct{}
}

// NewService creates the job service. The store must have its schema
// ensured by the caller.
func NewService(cfg Config, store *Store, renderer Renderer, logger zerolog.Logger) *Service {
	cfg = cfg.withDefaults()
	g := &errgroup.Group{}
	g.SetLimit(cfg.Workers)
	return &Service{
		cfg:      cfg,
		store:    store,
		renderer: renderer,
		logger:   logger.With().Str("component", "jobs").Logger(),
		group:    g,
		jobs:     make(map[string]*Job),
	}
}

// Submit registers a new job and schedules its render. The returned
// snapshot is already persisted in pending state; rendering starts as
// soon as a pool slot frees up.
func (s *Service) Submit(ctx context.Context, userID string, cfg *report.Config, filename string) (*Job, error) {
	now := time.Now().UTC()
	if filename == "" {
		filename = fmt.Sprintf("report_%s.xlsx", now.Format("20060102_150405"))
	}
	j := &Job{
		ID:        uuid.New().String(),
		UserID:    userID,
		Filename:  filename,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Save(ctx, j); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.jobs[j.ID] = j
	s.mu.Unlock()

	// Dispatch from a goroutine: group.Go blocks while the pool is
	// saturated, and Submit must return with the job pending rather
	// than stall the caller.
	id := j.ID
	s.wg.Add(1)
	go func() {
		s.group.Go(func() error {
			defer s.wg.Done()
			s.run(id, cfg)
			return nil
		})
	}()

	s.logger.Info().Str("job_id", id).Str("filename", filename).Msg("job submitted")
	return j.clone(), nil
}

// run executes one job. A render failure fails the job, never the pool.
func (s *Service) run(id string, cfg *report.Config) {
	s.update(id, StatusProcessing, progressAccepted, "validating configuration", nil)
	s.update(id, StatusProcessing, progressBuilding, "building workbook structure", nil)
	s.update(id, StatusProcessing, progressRendering, "rendering workbook", nil)

	outputPath := filepath.Join(s.cfg.OutputDir, id+".xlsx")
	path, warnings, err := s.renderer.Render(cfg, outputPath)
	if err != nil {
		s.fail(id, err)
		return
	}

	s.mu.Lock()
	if j, ok := s.jobs[id]; ok {
		j.OutputPath = path
		j.Warnings = warnings
	}
	s.mu.Unlock()

	s.update(id, StatusProcessing, progressSaving, "saving output", nil)
	now := time.Now().UTC()
	s.update(id, StatusCompleted, progressDone, "report generated", &now)
	s.logger.Info().Str("job_id", id).Str("path", path).Msg("job completed")
}

func (s *Service) fail(id string, cause error) {
	s.mu.Lock()
	if j, ok := s.jobs[id]; ok {
		j.Error = cause.Error()
	}
	s.mu.Unlock()
	now := time.Now().UTC()
	// Progress 0 never wins against the monotonic guard, so the job
	// keeps the progress it reached before failing.
	s.update(id, StatusFailed, 0, "report generation failed", &now)
	s.logger.Error().Err(cause).Str("job_id", id).Msg("job failed")
}

// update advances a job's state. Transitions only move forward: a
// terminal job is never touched again, the status never ranks down and
// the progress never decreases.
func (s *Service) update(id string, status Status, progress int, message string, completedAt *time.Time) {
	s.mu.Lock()
	j, ok := s.jobs[id]
	if !ok || j.Status.terminal() || statusRank(status) < statusRank(j.Status) {
		s.mu.Unlock()
		return
	}
	j.Status = status
	if progress > j.Progress {
		j.Progress = progress
	}
	j.Message = message
	j.UpdatedAt = time.Now().UTC()
	if completedAt != nil {
		j.CompletedAt = completedAt
	}
	snapshot := j.clone()
	s.mu.Unlock()

	if err := s.store.Save(context.Background(), snapshot); err != nil {
		s.logger.Error().Err(err).Str("job_id", id).Msg("failed to persist job state")
	}
}

// Status returns a snapshot of one job, falling back to the store for
// jobs submitted before a restart.
func (s *Service) Status(ctx context.Context, id string) (*Job, error) {
	s.mu.Lock()
	if j, ok := s.jobs[id]; ok {
		out := j.clone()
		s.mu.Unlock()
		return out, nil
	}
	s.mu.Unlock()

	return s.store.Get(ctx, id)
}

// List returns the jobs of one user, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]*Job, error) {
	return s.store.List(ctx, userID)
}

// Delete removes a job and its output file. A missing file is not an
// error: the sweep may already have taken it.
func (s *Service) Delete(ctx context.Context, id string) error {
	j, err := s.Status(ctx, id)
	if err != nil {
		return err
	}
	s.removeOutput(j)
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.jobs, id)
	s.mu.Unlock()
	return nil
}

// Start launches the retention sweeper. It runs until Close or context
// cancellation.
func (s *Service) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.sweepCancel = cancel
	s.sweepDone = make(chan struct{})

	go func() {
		defer close(s.sweepDone)
		ticker := time.NewTicker(s.cfg.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Sweep(ctx)
			}
		}
	}()
}

// Sweep removes jobs created more than the retention TTL ago together
// with their files, whatever state they were left in.
func (s *Service) Sweep(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-s.cfg.RetentionTTL)
	expired, err := s.store.ListExpired(ctx, cutoff)
	if err != nil {
		s.logger.Error().Err(err).Msg("retention sweep failed")
		return
	}
	for _, j := range expired {
		s.removeOutput(j)
		if err := s.store.Delete(ctx, j.ID); err != nil {
			s.logger.Error().Err(err).Str("job_id", j.ID).Msg("failed to delete expired job")
			continue
		}
		s.mu.Lock()
		delete(s.jobs, j.ID)
		s.mu.Unlock()
	}
	if len(expired) > 0 {
		s.logger.Info().Int("count", len(expired)).Msg("expired jobs removed")
	}
}

// removeOutput deletes the job file. Removal errors are logged and
// swallowed so cleanup can always make progress.
func (s *Service) removeOutput(j *Job) {
	if j.OutputPath == "" {
		return
	}
	if err := os.Remove(j.OutputPath); err != nil && !os.IsNotExist(err) {
		s.logger.Warn().Err(err).Str("job_id", j.ID).Msg("failed to remove job output")
	}
}

// Close stops the sweeper and waits for dispatched renders, queued
// ones included, to finish.
func (s *Service) Close() error {
	if s.sweepCancel != nil {
		s.sweepCancel()
		<-s.sweepDone
	}
	s.wg.Wait()
	if err := s.group.Wait(); err != nil {
		return fmt.Errorf("worker pool error: %w", err)
	}
	return nil
}
