package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string        `toml:"environment"` // "development" or "production"
	Server      ServerConfig  `toml:"server"`
	Storage     StorageConfig `toml:"storage"`
	Queue       QueueConfig   `toml:"queue"`
	Workers     WorkersConfig `toml:"workers"`
	Upload      UploadConfig  `toml:"upload"`
	Auth        AuthConfig    `toml:"auth"`
	AI          AIConfig      `toml:"ai"`
	Logging     LoggingConfig `toml:"logging"`
	Sweeper     SweeperConfig `toml:"sweeper"`
}

type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port" validate:"gte=0,lte=65535"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
	Blob   BlobConfig   `toml:"blob"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

// BlobConfig selects and configures the artifact (blob) store backend
type BlobConfig struct {
	Backend string         `toml:"backend" validate:"oneof=filesystem s3"` // "filesystem" or "s3"
	Path    string         `toml:"path"`                                   // Root directory for the filesystem backend
	S3      BlobS3Config   `toml:"s3"`
}

type BlobS3Config struct {
	Bucket          string `toml:"bucket"`
	Region          string `toml:"region"`
	Endpoint        string `toml:"endpoint"`         // Optional custom endpoint (minio etc.)
	CredentialsFile string `toml:"credentials_file"` // AWS shared credentials file location
}

type QueueConfig struct {
	PollInterval      string `toml:"poll_interval"`      // e.g., "250ms" - how often workers poll for messages
	VisibilityTimeout string `toml:"visibility_timeout"` // e.g., "5m" - message visibility timeout for redelivery
	MaxRetries        int    `toml:"max_retries"`        // Max attempts before a work item is dead-lettered
	BackoffBase       string `toml:"backoff_base"`       // Base for exponential retry backoff, e.g. "60s"
	DLQRetention      string `toml:"dlq_retention"`      // How long dead-lettered items are kept, e.g. "168h"
}

// WorkersConfig controls pool sizes per media type and per-stage budgets
type WorkersConfig struct {
	DocumentPool int               `toml:"document_pool"`
	AudioPool    int               `toml:"audio_pool"`
	VideoPool    int               `toml:"video_pool"`
	CDRPool      int               `toml:"cdr_pool"`
	GraphPool    int               `toml:"graph_pool"`
	StageTimeout string            `toml:"stage_timeout"`  // Default wall-clock budget per stage, e.g. "10m"
	StageTimeouts map[string]string `toml:"stage_timeouts"` // Per-stage overrides, keyed by stage name
	AIRateLimit  float64           `toml:"ai_rate_limit"`  // AI collaborator calls per second (0 = unlimited)
}

type UploadConfig struct {
	MaxFiles          int                 `toml:"max_files"`      // Max files per upload
	MaxFileSize       int64               `toml:"max_file_size"`  // Max size per file in bytes
	AllowedExtensions map[string][]string `toml:"allowed_extensions"` // media type -> extension allow-list
}

type AuthConfig struct {
	JWTSecret string `toml:"jwt_secret"`
	TokenTTL  string `toml:"token_ttl"` // e.g., "12h"
	UsersDir  string `toml:"users_dir"` // Directory containing seed user files (TOML)
}

// AIConfig selects the collaborator provider used by worker pipelines
type AIConfig struct {
	Provider          string `toml:"provider" validate:"oneof=claude gemini offline"` // "claude", "gemini", or "offline"
	AnthropicAPIKey   string `toml:"anthropic_api_key"`
	GoogleAPIKey      string `toml:"google_api_key"`
	CanonicalLanguage string `toml:"canonical_language"` // Target language for translation, default "en"
	EmbeddingDim      int    `toml:"embedding_dim"`      // Fixed embedding dimensionality
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// SweeperConfig controls the background blob/DLQ maintenance job
type SweeperConfig struct {
	Schedule    string `toml:"schedule"`     // Cron schedule, e.g. "@hourly"
	GracePeriod string `toml:"grace_period"` // Age before orphaned blob prefixes are removed
}

// DefaultConfig returns the configuration defaults applied before any file
// or environment override.
func DefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host: "localhost",
			Port: 8085,
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{Path: "./data/sentinel"},
			Blob: BlobConfig{
				Backend: "filesystem",
				Path:    "./data/blobs",
			},
		},
		Queue: QueueConfig{
			PollInterval:      "250ms",
			VisibilityTimeout: "5m",
			MaxRetries:        3,
			BackoffBase:       "60s",
			DLQRetention:      "168h",
		},
		Workers: WorkersConfig{
			DocumentPool: 2,
			AudioPool:    2,
			VideoPool:    1,
			CDRPool:      2,
			GraphPool:    1,
			StageTimeout: "10m",
			AIRateLimit:  2,
		},
		Upload: UploadConfig{
			MaxFiles:    20,
			MaxFileSize: 200 * 1024 * 1024,
			AllowedExtensions: map[string][]string{
				"document": {".pdf", ".doc", ".docx", ".txt", ".rtf"},
				"audio":    {".mp3", ".wav", ".m4a", ".ogg", ".flac"},
				"video":    {".mp4", ".mov", ".avi", ".mkv", ".webm"},
				"cdr":      {".csv", ".xls", ".xlsx"},
			},
		},
		Auth: AuthConfig{
			TokenTTL: "12h",
			UsersDir: "./users",
		},
		AI: AIConfig{
			Provider:          "offline",
			CanonicalLanguage: "en",
			EmbeddingDim:      768,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout", "file"},
		},
		Sweeper: SweeperConfig{
			Schedule:    "@hourly",
			GracePeriod: "24h",
		},
	}
}

// LoadConfig builds configuration in layers: defaults, then each config file
// in order, then SENTINEL_* environment variables. Later layers win.
func LoadConfig(paths ...string) (*Config, error) {
	cfg := DefaultConfig()

	for _, path := range paths {
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies SENTINEL_* environment variables over the loaded
// configuration. Only the settings that commonly differ per deployment are
// exposed this way; everything else belongs in the config file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SENTINEL_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("SENTINEL_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("SENTINEL_BADGER_PATH"); v != "" {
		cfg.Storage.Badger.Path = v
	}
	if v := os.Getenv("SENTINEL_BLOB_BACKEND"); v != "" {
		cfg.Storage.Blob.Backend = v
	}
	if v := os.Getenv("SENTINEL_BLOB_PATH"); v != "" {
		cfg.Storage.Blob.Path = v
	}
	if v := os.Getenv("SENTINEL_JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("SENTINEL_AI_PROVIDER"); v != "" {
		cfg.AI.Provider = v
	}
	if v := os.Getenv("SENTINEL_ANTHROPIC_API_KEY"); v != "" {
		cfg.AI.AnthropicAPIKey = v
	}
	if v := os.Getenv("SENTINEL_GOOGLE_API_KEY"); v != "" {
		cfg.AI.GoogleAPIKey = v
	}
	if v := os.Getenv("SENTINEL_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// ParseDurationOr parses s as a duration, falling back to def on error.
func ParseDurationOr(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}

// StageTimeoutFor returns the wall-clock budget for a stage, honoring
// per-stage overrides.
func (w *WorkersConfig) StageTimeoutFor(stage string) time.Duration {
	if override, ok := w.StageTimeouts[stage]; ok {
		if d, err := time.ParseDuration(override); err == nil {
			return d
		}
	}
	return ParseDurationOr(w.StageTimeout, 10*time.Minute)
}

// AllowedExtension reports whether filename carries an allowed extension for
// the given media type.
func (u *UploadConfig) AllowedExtension(mediaType, filename string) bool {
	exts, ok := u.AllowedExtensions[mediaType]
	if !ok {
		return false
	}
	lower := strings.ToLower(filename)
	for _, ext := range exts {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
