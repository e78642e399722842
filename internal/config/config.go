// Package config provides configuration management for the backend.
package config

import (
	"time"

	"choco-backend/internal/store"
)

// Config is the root configuration structure for the backend.
type Config struct {
	Server   ServerConfig  `mapstructure:"server"`
	Database store.Config  `mapstructure:"database" validate:"required"`
	Storage  StorageConfig `mapstructure:"storage"`
	Report   ReportConfig  `mapstructure:"report"`
	Files    FilesConfig   `mapstructure:"files"`
	Agent    AgentConfig   `mapstructure:"agent"`
	HTTP     HTTPConfig    `mapstructure:"http"`
	Logging  LoggingConfig `mapstructure:"logging"`
}

// ServerConfig contains the HTTP server configuration.
type ServerConfig struct {
	Listen          string        `mapstructure:"listen" validate:"required"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// StorageConfig contains the blob storage configuration.
type StorageConfig struct {
	Root string `mapstructure:"root" validate:"required"`
}

// ReportConfig contains report generation configuration.
type ReportConfig struct {
	OutputDir     string        `mapstructure:"output_dir" validate:"required"`
	Workers       int           `mapstructure:"workers" validate:"gte=1,lte=64"`
	RetentionTTL  time.Duration `mapstructure:"retention_ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	// StylesPath points to the optional named style presets file.
	StylesPath string `mapstructure:"styles_path"`
}

// FilesConfig contains upload handling configuration.
type FilesConfig struct {
	// MaxUploadSize bounds file uploads and inspection, in bytes.
	MaxUploadSize int64 `mapstructure:"max_upload_size" validate:"gte=1"`
}

// AgentConfig contains the external AI agent configuration. The agent
// is optional; chat endpoints answer with an error when it is disabled.
type AgentConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Endpoint string        `mapstructure:"endpoint" validate:"omitempty,url"`
	Token    string        `mapstructure:"token"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// HTTPConfig contains HTTP client configurations including retry settings.
type HTTPConfig struct {
	Retry RetryConfig `mapstructure:"retry"`
}

// RetryConfig defines retry behavior for outbound HTTP requests.
type RetryConfig struct {
	MaxRetries int           `mapstructure:"max_retries" validate:"gte=0,lte=10"`
	BaseDelay  time.Duration `mapstructure:"base_delay"`
}

// LoggingConfig contains configurations for logging.
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
}
