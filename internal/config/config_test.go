package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, ":8080", cfg.Server.Address)
	require.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
	require.Equal(t, "mongo", cfg.Database.Driver)
	require.Equal(t, "tri_tracker", cfg.Database.Name)
	require.Equal(t, 450, cfg.Import.ChunkSize)
	require.Equal(t, 50, cfg.Import.SampleRows)
	require.Equal(t, 8, cfg.Import.PreviewLimit)
	require.Equal(t, "orphan", cfg.Calendar.DeletePolicy)
	require.Empty(t, cfg.Kafka.BrokerList())
	require.False(t, cfg.S3.Enabled())
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := `
database:
  driver: memory
calendar:
  delete_policy: cascade
kafka:
  brokers: "k1:9092, k2:9092,"
jwt:
  leeway: 1m
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))
	t.Setenv("IMPORT_CHUNK_SIZE", "100")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	require.Equal(t, "memory", cfg.Database.Driver)
	require.Equal(t, "cascade", cfg.Calendar.DeletePolicy)
	require.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.BrokerList())
	require.Equal(t, time.Minute, cfg.JWT.Leeway)
	require.Equal(t, 100, cfg.Import.ChunkSize)
}

func TestLoadConfigRejectsUnknownDriver(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "sqlite")
	_, err := LoadConfig(t.TempDir())
	require.Error(t, err)
}
