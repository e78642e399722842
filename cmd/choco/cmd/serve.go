package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	// Database drivers selected by database.driver in the config.
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/spf13/cobra"

	"choco-backend/internal/chat"
	"choco-backend/internal/client/agent"
	"choco-backend/internal/config"
	"choco-backend/internal/fileproc"
	"choco-backend/internal/folder"
	"choco-backend/internal/job"
	"choco-backend/internal/server"
	"choco-backend/internal/storage"
	"choco-backend/internal/store"
)

// serveCmd represents the serve command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP backend",
	Long: `Run the backend HTTP server: report generation and parsing, async
report jobs, chats, folders/files and file inspection.

Example:
  choco serve -c config.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		runServe()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe() {
	configPath := GetConfigFile()

	// Step 1: Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		tmpLogger := setupLogger("error", "console")
		tmpLogger.Error().Err(err).Str("path", configPath).Msg("failed to load config")
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Step 2: Initialize logger with configuration
	logger := setupLogger(effectiveLogLevel(cfg.Logging.Level), cfg.Logging.Format)
	logger.Debug().
		Str("config_path", configPath).
		Str("log_format", cfg.Logging.Format).
		Msg("configuration loaded successfully")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Step 3: Open the metadata store and ensure schemas
	db, err := store.Open(cfg.Database)
	if err != nil {
		logger.Error().Err(err).Msg("failed to open database")
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Ping(ctx); err != nil {
		logger.Error().Err(err).Msg("database is unreachable")
		os.Exit(1)
	}

	// Step 4: Build services
	blobs, err := storage.NewFS(cfg.Storage.Root, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to initialize blob storage")
		os.Exit(1)
	}

	jobStore := job.NewStore(db)
	chats := chat.NewService(db, logger)
	folders := folder.NewService(db, blobs, logger)

	for name, ensure := range map[string]func(context.Context) error{
		"jobs":    jobStore.EnsureSchema,
		"chats":   chats.EnsureSchema,
		"folders": folders.EnsureSchema,
	} {
		if err := ensure(ctx); err != nil {
			logger.Error().Err(err).Str("schema", name).Msg("failed to ensure schema")
			os.Exit(1)
		}
	}

	jobs := job.NewService(job.Config{
		OutputDir:     cfg.Report.OutputDir,
		Workers:       cfg.Report.Workers,
		RetentionTTL:  cfg.Report.RetentionTTL,
		SweepInterval: cfg.Report.SweepInterval,
	}, jobStore, job.GeneratorRenderer{Logger: logger}, logger)
	jobs.Start(ctx)
	defer jobs.Close()

	files := fileproc.NewProcessor(cfg.Files.MaxUploadSize, logger)
	agentClient := agent.NewClient(&cfg.Agent, &cfg.HTTP.Retry, logger)

	// Step 5: Serve until interrupted
	srv := server.New(cfg, jobs, chats, folders, files, agentClient, logger)
	if cfg.Report.StylesPath != "" {
		styles, err := config.LoadStylePresets(cfg.Report.StylesPath)
		if err != nil {
			logger.Error().Err(err).Str("path", cfg.Report.StylesPath).Msg("failed to load style presets")
			os.Exit(1)
		}
		srv.SetStylePresets(styles)
		logger.Info().Int("count", len(styles)).Msg("loaded style presets")
	}
	if err := srv.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("server exited with error")
		os.Exit(1)
	}
	logger.Info().Msg("server stopped")
}
