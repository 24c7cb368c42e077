package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aliskhannn/pdf-merger/internal/model"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	require.NoError(t, err)

	assert.Equal(t, model.DefaultWidth, cfg.Job.Width)
	assert.Equal(t, model.RenderDPI, cfg.Job.DPI)
	assert.True(t, cfg.Job.Compress)
	assert.Equal(t, model.DefaultQuality, cfg.Job.Quality)
	assert.Equal(t, 2, cfg.Worker.MaxJobs)
	assert.Equal(t, 500*time.Millisecond, cfg.Retry.Delay)
	assert.NotEmpty(t, cfg.Scratch.Dir)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	data := []byte(`
job:
  width: 1200
  compress: false
  quality: 60
scratch:
  dir: /var/tmp/merge
kafka:
  brokers: ["k1:9092", "k2:9092"]
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 1200, cfg.Job.Width)
	assert.False(t, cfg.Job.Compress)
	assert.Equal(t, 60, cfg.Job.Quality)
	assert.Equal(t, model.RenderDPI, cfg.Job.DPI)
	assert.Equal(t, "/var/tmp/merge", cfg.Scratch.Dir)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)

	jc := cfg.Job.JobConfig("out.pdf")
	assert.NoError(t, jc.Validate())
	assert.Equal(t, "out.pdf", jc.OutputPath)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("DB_HOST", "db.internal")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "db.internal", cfg.Database.Master.Host)
}

func TestLoadInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("job: [unterminated"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestDSN(t *testing.T) {
	n := DatabaseNode{Host: "h", Port: "5432", User: "u", Pass: "p", Name: "db", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@h:5432/db?sslmode=disable", n.DSN())
}
