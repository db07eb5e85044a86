package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/creasty/defaults"
)

// ReaderConfig configures the reading client. It is loaded like Config, from
// READER_CONFIG_FILE and READER_-prefixed environment variables.
type ReaderConfig struct {
	HTTPTimeout   time.Duration `koanf:"http_timeout" default:"30s"`
	LogLevel      string        `koanf:"log_level" default:"error" validate:"oneof=debug info warn error"`
	OfflineDBPath string        `koanf:"offline_db_path" validate:"required"`
	Password      string        `koanf:"password"`
	ServerURL     string        `koanf:"server_url" default:"http://localhost:3689" validate:"required,url"`
	SyncInterval  time.Duration `koanf:"sync_interval" default:"1m" validate:"min=1s"`
	Token         string        `koanf:"token"`
	Username      string        `koanf:"username"`
}

func NewReader() (*ReaderConfig, error) {
	cfg := &ReaderConfig{OfflineDBPath: defaultOfflineDBPath()}
	if err := load(cfg, envOr(readerConfigFileENV, defaultReaderConfigFile()), readerEnvPrefix); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NewReaderForTest returns a client configuration with its offline database
// under dir.
func NewReaderForTest(dir string) *ReaderConfig {
	cfg := &ReaderConfig{}
	_ = defaults.Set(cfg)
	cfg.OfflineDBPath = filepath.Join(dir, "offline.db")
	return cfg
}

func defaultReaderConfigFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "mylibrary", "reader.yaml")
}

func defaultOfflineDBPath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "mylibrary", "offline.db")
}

// HasCredentials reports whether a login can be attempted.
func (c *ReaderConfig) HasCredentials() bool {
	return c.Username != "" && c.Password != ""
}

func (c *ReaderConfig) String() string {
	return fmt.Sprintf("server=%s offline_db=%s", c.ServerURL, c.OfflineDBPath)
}
