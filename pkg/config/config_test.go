package config

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RequiredFieldMissing(t *testing.T) {
	t.Setenv("DATABASE_FILE_PATH", "")
	t.Setenv("JWT_SECRET", "test-secret-key")
	t.Setenv("CONFIG_FILE", "/nonexistent/config.yaml")

	cfg, err := New()
	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required config")
	assert.Contains(t, err.Error(), "DATABASE_FILE_PATH")
	assert.Contains(t, err.Error(), "database_file_path")
}

func TestNew_WithEnvVar(t *testing.T) {
	t.Setenv("DATABASE_FILE_PATH", "/tmp/test.db")
	t.Setenv("JWT_SECRET", "test-secret-key")
	t.Setenv("CONFIG_FILE", "/nonexistent/config.yaml")

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/test.db", cfg.DatabaseFilePath)
	assert.Equal(t, "test-secret-key", cfg.JWTSecret)
	assert.NotEmpty(t, cfg.Hostname)
}

func TestNew_WithConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
database_file_path: /data/library.db
server_port: 8080
database_debug: true
jwt_secret: test-secret-from-file
allow_registration: false
storage_directory: /data/books
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	t.Setenv("CONFIG_FILE", configPath)
	t.Setenv("DATABASE_FILE_PATH", "")
	os.Unsetenv("DATABASE_FILE_PATH")

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, "/data/library.db", cfg.DatabaseFilePath)
	assert.Equal(t, 8080, cfg.ServerPort)
	assert.True(t, cfg.DatabaseDebug)
	assert.False(t, cfg.AllowRegistration)
	assert.Equal(t, "/data/books", cfg.StorageDirectory)
}

func TestNew_EnvVarOverridesConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
database_file_path: /data/from-file.db
server_port: 8080
jwt_secret: test-secret-from-file
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	t.Setenv("CONFIG_FILE", configPath)
	t.Setenv("DATABASE_FILE_PATH", "/data/from-env.db")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DATABASE_CONNECT_RETRY_DELAY", "500ms")

	cfg, err := New()
	require.NoError(t, err)
	// Env vars should override config file
	assert.Equal(t, "/data/from-env.db", cfg.DatabaseFilePath)
	assert.Equal(t, 9090, cfg.ServerPort)
	assert.Equal(t, 500*time.Millisecond, cfg.DatabaseConnectRetryDelay)
}

func TestNew_Defaults(t *testing.T) {
	t.Setenv("DATABASE_FILE_PATH", "/tmp/test.db")
	t.Setenv("JWT_SECRET", "test-secret-key")
	t.Setenv("CONFIG_FILE", "/nonexistent/config.yaml")

	cfg, err := New()
	require.NoError(t, err)

	// Check defaults are applied
	assert.True(t, cfg.AllowRegistration)
	assert.Equal(t, 5, cfg.DatabaseConnectRetryCount)
	assert.Equal(t, 2*time.Second, cfg.DatabaseConnectRetryDelay)
	assert.False(t, cfg.DatabaseDebug)
	assert.Equal(t, "0.0.0.0", cfg.ServerHost)
	assert.Equal(t, 3689, cfg.ServerPort)
	assert.Equal(t, int64(500<<20), cfg.MaxUploadBytes)
	assert.Equal(t, 300, cfg.ThumbnailWidth)
}

func TestNew_InvalidValue(t *testing.T) {
	t.Setenv("DATABASE_FILE_PATH", "/tmp/test.db")
	t.Setenv("JWT_SECRET", "test-secret-key")
	t.Setenv("CONFIG_FILE", "/nonexistent/config.yaml")
	t.Setenv("SERVER_PORT", "70000")

	_, err := New()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
	assert.Contains(t, err.Error(), "SERVER_PORT")
}

func TestNewForTest(t *testing.T) {
	cfg := NewForTest()
	assert.Equal(t, ":memory:", cfg.DatabaseFilePath)
	assert.Equal(t, "127.0.0.1", cfg.ServerHost)
	assert.Equal(t, "test", cfg.Environment)
	assert.NotEmpty(t, cfg.JWTSecret)
}

func TestNewReader(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "reader.yaml")
	err := os.WriteFile(configPath, []byte("server_url: https://books.example.com\nsync_interval: 5m\n"), 0644)
	require.NoError(t, err)

	t.Setenv("READER_CONFIG_FILE", configPath)
	t.Setenv("READER_TOKEN", "abc123")
	t.Setenv("READER_OFFLINE_DB_PATH", filepath.Join(tmpDir, "offline.db"))
	// unprefixed variables belong to the server
	t.Setenv("TOKEN", "ignored")

	cfg, err := NewReader()
	require.NoError(t, err)
	assert.Equal(t, "https://books.example.com", cfg.ServerURL)
	assert.Equal(t, 5*time.Minute, cfg.SyncInterval)
	assert.Equal(t, "abc123", cfg.Token)
	assert.Equal(t, filepath.Join(tmpDir, "offline.db"), cfg.OfflineDBPath)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, "error", cfg.LogLevel)
	assert.False(t, cfg.HasCredentials())
}

func TestNewReader_InvalidURL(t *testing.T) {
	t.Setenv("READER_CONFIG_FILE", "/nonexistent/reader.yaml")
	t.Setenv("READER_SERVER_URL", "not a url")

	_, err := NewReader()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "READER_SERVER_URL")
}

func TestNewReaderForTest(t *testing.T) {
	dir := t.TempDir()
	cfg := NewReaderForTest(dir)
	assert.Equal(t, filepath.Join(dir, "offline.db"), cfg.OfflineDBPath)
	assert.Equal(t, time.Minute, cfg.SyncInterval)
}

func TestToSnakeCase(t *testing.T) {
	assert.Equal(t, "database_file_path", toSnakeCase("DatabaseFilePath"))
	assert.Equal(t, "server_port", toSnakeCase("ServerPort"))
	assert.Equal(t, "jwt_secret", toSnakeCase("JWTSecret"))
	assert.Equal(t, "offline_db_path", toSnakeCase("OfflineDBPath"))
}

func TestRetrievePublicConfig(t *testing.T) {
	e := echo.New()
	RegisterRoutes(e.Group("/api"), NewForTest())

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/config", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"allow_registration":true`)
	assert.Contains(t, rec.Body.String(), `"file_types":["epub","pdf","cbz","cbr"]`)
}
