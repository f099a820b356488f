package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"sravz-backend/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("NODE_ENV", "test")
	t.Setenv("NSQ_HOST", "nsqd:4150")
	t.Setenv("NSQ_LOOKUPD_HOST", "nsqlookupd:4161")
	t.Setenv("MONGOLAB_URI", "mongodb://localhost:27017")
	t.Setenv("EODHISTORICALDATA_API_KEY", "k1")
	t.Setenv("EODHISTORICALDATA_API_KEY2", "k2")
	t.Setenv("CONTABO_KEY", "ck")
	t.Setenv("CONTABO_SECRET", "cs")
}

func writeTOML(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.test.toml")
	require.NoError(t, os.WriteFile(path, []byte("[config]\nbackend_rust_topic = \"backend-test\"\n"), 0o644))
	t.Chdir(dir)
}

func TestLoad(t *testing.T) {
	setRequiredEnv(t)
	writeTOML(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "backend-test", cfg.BackendTopic)
	assert.Equal(t, "sravz", cfg.ContaboBucket)
	assert.Equal(t, "rust-backend", cfg.ContaboBucketKey)
	assert.Equal(t, 15, cfg.MaxInFlight)
	assert.Equal(t, 15*time.Minute, cfg.HandlerTimeout)
	assert.Contains(t, cfg.ContaboObjectURLPrefix, "usc1.contabostorage.com")
	assert.Contains(t, cfg.ContaboObjectURLPrefix, ":sravz/rust-backend/")
}

func TestLoadMissingRequiredVar(t *testing.T) {
	setRequiredEnv(t)
	writeTOML(t)
	t.Setenv("MONGOLAB_URI", "")

	_, err := Load()
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.ConfigMissing))
}

func TestLoadMissingTOML(t *testing.T) {
	setRequiredEnv(t)
	t.Chdir(t.TempDir())

	_, err := Load()
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.ConfigMissing))
}

func TestLoadOverrides(t *testing.T) {
	setRequiredEnv(t)
	writeTOML(t)
	t.Setenv("MAX_IN_FLIGHT", "5")
	t.Setenv("HANDLER_TIMEOUT", "30s")
	t.Setenv("STATUS_PORT", "8086")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.MaxInFlight)
	assert.Equal(t, 30*time.Second, cfg.HandlerTimeout)
	assert.Equal(t, 8086, cfg.StatusPort)
}
