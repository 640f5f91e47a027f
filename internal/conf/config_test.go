package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetViper isolates the global viper instance for a test
func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFromAppliesDefaults(t *testing.T) {
	resetViper(t)

	path := writeConfig(t, "api:\n  baseurl: https://api.example.com\n")

	settings, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, DefaultBatchSize, settings.Sync.BatchSize)
	assert.Equal(t, "https://api.example.com", settings.API.BaseURL)
	assert.Equal(t, 30*time.Second, settings.API.Timeout)
	assert.Equal(t, DatastoreSQLite, settings.Datastore.Type)
	assert.Equal(t, 16, settings.Datastore.SQLite.MinFreeMB)
	assert.Equal(t, "info", settings.Logging.DefaultLevel)
	assert.Equal(t, 64, settings.Notification.QueueSize)
	assert.Same(t, settings, GetSettings())
}

func TestLoadFromEnvironmentOverridesFile(t *testing.T) {
	resetViper(t)
	t.Setenv("DRIVESYNC_SYNC_BATCHSIZE", "250")
	t.Setenv("DRIVESYNC_DATASTORE_TYPE", "mysql")
	t.Setenv("DRIVESYNC_MYSQL_HOST", "db.internal")

	path := writeConfig(t, "sync:\n  batchsize: 100\n")

	settings, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, 250, settings.Sync.BatchSize)
	assert.Equal(t, DatastoreMySQL, settings.Datastore.Type)
	assert.Equal(t, "db.internal", settings.Datastore.MySQL.Host)
}

func TestLoadFromRejectsInvalidSettings(t *testing.T) {
	resetViper(t)

	path := writeConfig(t, "sync:\n  batchsize: 0\napi:\n  baseurl: not-a-url\n")

	_, err := LoadFrom(path)
	require.Error(t, err)

	var ve ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Errors, 2)
}

func TestLoadFromMissingFile(t *testing.T) {
	resetViper(t)

	_, err := LoadFrom(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.yaml")
}

func TestLoadCreatesDefaultConfig(t *testing.T) {
	resetViper(t)
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Chdir(t.TempDir())

	settings, err := Load()
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(home, ".config", "drivesync", "config.yaml"))
	assert.Equal(t, DefaultBatchSize, settings.Sync.BatchSize)
}

func TestEmbeddedConfigMatchesDefaults(t *testing.T) {
	resetViper(t)

	data, err := configFiles.ReadFile("config.yaml")
	require.NoError(t, err)

	settings, err := LoadFrom(writeConfig(t, string(data)))
	require.NoError(t, err)

	assert.Equal(t, DefaultBatchSize, settings.Sync.BatchSize)
	assert.Equal(t, "127.0.0.1:8090", settings.Server.Listen)
	assert.Equal(t, 30*time.Second, settings.Connectivity.CacheTTL)
	assert.True(t, settings.Connectivity.RequireInterface)
}
