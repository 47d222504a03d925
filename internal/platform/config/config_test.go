package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bjohan23/SDN-STAFF-sub000/internal/core/services"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

// chdir moves into dir for the test so Load does not pick up a stray .env.
func chdir(t *testing.T, dir string) {
	t.Helper()

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, DriverPostgres, cfg.Storage.Driver)
	assert.Equal(t, services.DefaultScoreWeights(), cfg.Scoring)
	assert.Equal(t, services.DefaultMatchWeights(), cfg.Matching)
	assert.Equal(t, time.Minute, cfg.Sweep.Interval)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_YAMLAndEnvOverride(t *testing.T) {
	chdir(t, t.TempDir())

	path := writeFile(t, "config.yaml", `
server:
  addr: ":9090"
  request_timeout: 15s
storage:
  driver: memory
scoring:
  historial: 0.4
  categoria: 0.2
  presupuesto: 0.2
  preferencias: 0.2
sweep:
  enabled: true
  interval: 30s
`)

	t.Setenv("STANDS_SERVER__ADDR", ":7070")
	t.Setenv("STANDS_REDIS__ENABLED", "true")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.Server.Addr)
	assert.Equal(t, 15*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, DriverMemory, cfg.Storage.Driver)
	assert.Equal(t, 0.4, cfg.Scoring.Historial)
	assert.True(t, cfg.Sweep.Enabled)
	assert.Equal(t, 30*time.Second, cfg.Sweep.Interval)
	assert.True(t, cfg.Redis.Enabled)
}

func TestLoad_RejectsWeightsNotSummingToOne(t *testing.T) {
	chdir(t, t.TempDir())

	path := writeFile(t, "config.yaml", `
scoring:
  historial: 0.5
  categoria: 0.5
  presupuesto: 0.5
  preferencias: 0.5
`)

	_, err := Load(path)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "sum to 1")
}

func TestLoad_RejectsUnknownDriver(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("STANDS_STORAGE__DRIVER", "sqlite")

	_, err := Load("")

	assert.Error(t, err)
}

func TestLoad_ReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("STANDS_DATABASE__HOST=db.internal\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("STANDS_DATABASE__HOST") })

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
}

func TestKafkaValidate(t *testing.T) {
	assert.Error(t, KafkaConfig{Enabled: true}.Validate())
	assert.NoError(t, KafkaConfig{Enabled: true, Brokers: []string{"localhost:9092"}}.Validate())
	assert.NoError(t, KafkaConfig{}.Validate())
}
