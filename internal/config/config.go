package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/pdf-merger/internal/model"
)

// Config holds the main configuration for the application.
type Config struct {
	Log      Log      `mapstructure:"log"`
	Job      Job      `mapstructure:"job"`
	Scratch  Scratch  `mapstructure:"scratch"`
	Worker   Worker   `mapstructure:"worker"`
	Server   Server   `mapstructure:"server"`
	Database Database `mapstructure:"database"`
	Storage  Storage  `mapstructure:"storage"`
	Kafka    Kafka    `mapstructure:"kafka"`
	Retry    Retry    `mapstructure:"retry"`
}

// Log holds logger settings.
type Log struct {
	Level string `mapstructure:"level"` // debug, info, warn or error
}

// Job holds defaults applied to jobs that do not set their own parameters.
type Job struct {
	Width        int  `mapstructure:"width"`         // target page width in pixels
	DPI          int  `mapstructure:"dpi"`           // PDF rasterisation DPI
	Compress     bool `mapstructure:"compress"`      // structural compression on/off
	Quality      int  `mapstructure:"quality"`       // image re-encode quality
	Parallelism  int  `mapstructure:"parallelism"`   // 0 means available CPUs
	ReleaseEvery int  `mapstructure:"release_every"` // pages between buffer releases
}

// Scratch holds the location of intermediate files.
type Scratch struct {
	Dir string `mapstructure:"dir"`
}

// Worker holds settings for the background job service.
type Worker struct {
	MaxJobs    int    `mapstructure:"max_jobs"`    // concurrent jobs
	StagingDir string `mapstructure:"staging_dir"` // where inputs are downloaded
}

// Server holds HTTP server-related configuration.
type Server struct {
	HTTPPort string `mapstructure:"http_port"` // HTTP port to listen on
}

// Database holds database master and slave configuration.
type Database struct {
	Master DatabaseNode   `mapstructure:"master"`
	Slaves []DatabaseNode `mapstructure:"slaves"`

	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DatabaseNode holds connection parameters for a single database node.
type DatabaseNode struct {
	Host    string `mapstructure:"host"`
	Port    string `mapstructure:"port"`
	User    string `mapstructure:"user"`
	Pass    string `mapstructure:"pass"`
	Name    string `mapstructure:"name"`
	SSLMode string `mapstructure:"ssl_mode"`
}

// Storage holds configuration for the object storage backend.
type Storage struct {
	Endpoint   string `mapstructure:"endpoint"`
	AccessKey  string `mapstructure:"access_key"`
	SecretKey  string `mapstructure:"secret_key"`
	BucketName string `mapstructure:"bucket_name"`
	UseSSL     bool   `mapstructure:"use_ssl"`
}

// Kafka holds configuration for the job command and progress event topics.
type Kafka struct {
	Enabled       bool     `mapstructure:"enabled"`
	GroupID       string   `mapstructure:"group_id"`       // Consumer group ID
	CommandsTopic string   `mapstructure:"commands_topic"` // submit/cancel commands
	EventsTopic   string   `mapstructure:"events_topic"`   // progress events
	Brokers       []string `mapstructure:"brokers"`        // List of Kafka broker addresses
}

// Retry defines retry policy configuration.
type Retry struct {
	Attempts int           `mapstructure:"attempts"` // Number of retry attempts
	Delay    time.Duration `mapstructure:"delay"`    // Initial delay between retries
	Backoff  float64       `mapstructure:"backoff"`  // Backoff multiplier for delays
}

// DSN returns the PostgreSQL DSN string for connecting to this database node.
func (n DatabaseNode) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		n.User, n.Pass, n.Host, n.Port, n.Name, n.SSLMode,
	)
}

// JobConfig builds a validated-shape JobConfig from the defaults.
func (j Job) JobConfig(outputPath string) model.JobConfig {
	return model.JobConfig{
		Width:      j.Width,
		DPI:        j.DPI,
		Compress:   j.Compress,
		Quality:    j.Quality,
		OutputPath: outputPath,
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")

	v.SetDefault("job.width", model.DefaultWidth)
	v.SetDefault("job.dpi", model.RenderDPI)
	v.SetDefault("job.compress", true)
	v.SetDefault("job.quality", model.DefaultQuality)
	v.SetDefault("job.parallelism", 0)
	v.SetDefault("job.release_every", 10)

	v.SetDefault("scratch.dir", filepath.Join(os.TempDir(), "pdf_merger_scratch"))

	v.SetDefault("worker.max_jobs", 2)
	v.SetDefault("worker.staging_dir", filepath.Join(os.TempDir(), "pdf_merger_staging"))

	v.SetDefault("server.http_port", ":8080")

	v.SetDefault("kafka.commands_topic", "pdf-merger.commands")
	v.SetDefault("kafka.events_topic", "pdf-merger.events")
	v.SetDefault("kafka.group_id", "pdf-merger")

	v.SetDefault("retry.attempts", 3)
	v.SetDefault("retry.delay", 500*time.Millisecond)
	v.SetDefault("retry.backoff", 2.0)
}

// bindEnv binds secrets and connection settings to environment variables.
func bindEnv(v *viper.Viper) error {
	bindings := map[string]string{
		"database.master.host": "DB_HOST",
		"database.master.port": "DB_PORT",
		"database.master.user": "DB_USER",
		"database.master.pass": "DB_PASSWORD",
		"database.master.name": "DB_NAME",
		"storage.access_key":   "MINIO_ACCESS_KEY",
		"storage.secret_key":   "MINIO_SECRET_KEY",
		"log.level":            "LOG_LEVEL",
	}

	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	return nil
}

// Load reads configuration from path. A missing file is not an error: the
// defaults, a .env file and environment variables still apply.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	if err := bindEnv(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads the configuration from the specified file path.
// It panics if the configuration cannot be loaded or unmarshaled.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		zlog.Logger.Panic().Err(err).Msg("failed to load config")
	}

	return cfg
}
