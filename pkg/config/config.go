package config

import (
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/iancoleman/strcase"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

// Config is the server configuration. Values come from the YAML file named by
// CONFIG_FILE, then from environment variables named after the upper-cased
// keys, then from the defaults below.
type Config struct {
	AllowRegistration         bool          `koanf:"allow_registration" default:"true"`
	DatabaseConnectRetryCount int           `koanf:"database_connect_retry_count" default:"5"`
	DatabaseConnectRetryDelay time.Duration `koanf:"database_connect_retry_delay" default:"2s"`
	DatabaseDebug             bool          `koanf:"database_debug"`
	DatabaseFilePath          string        `koanf:"database_file_path" validate:"required"`
	Environment               string        `koanf:"environment" default:"development"`
	Hostname                  string        `koanf:"-"`
	JWTSecret                 string        `koanf:"jwt_secret" validate:"required"`
	MaxUploadBytes            int64         `koanf:"max_upload_bytes" default:"524288000" validate:"min=1"`
	ServerHost                string        `koanf:"server_host" default:"0.0.0.0"`
	ServerPort                int           `koanf:"server_port" default:"3689" validate:"min=1,max=65535"`
	StorageDirectory          string        `koanf:"storage_directory" default:"./tmp/books" validate:"required"`
	ThumbnailWidth            int           `koanf:"thumbnail_width" default:"300" validate:"min=16"`
}

const (
	configFileENV       = "CONFIG_FILE"
	readerConfigFileENV = "READER_CONFIG_FILE"
	readerEnvPrefix     = "READER_"
	defaultConfigFile   = "/config/config.yaml"
)

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

func New() (*Config, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return nil, errors.WithStack(err)
	}

	cfg := &Config{}
	if err := load(cfg, envOr(configFileENV, defaultConfigFile), ""); err != nil {
		return nil, err
	}
	cfg.Hostname = hostname
	return cfg, nil
}

// NewForTest returns a configuration backed by an in-memory database.
func NewForTest() *Config {
	cfg := &Config{}
	_ = defaults.Set(cfg)
	cfg.DatabaseFilePath = ":memory:"
	cfg.Environment = "test"
	cfg.JWTSecret = "test-secret"
	cfg.ServerHost = "127.0.0.1"
	cfg.StorageDirectory = os.TempDir()
	return cfg
}

// load fills dest from defaults, then configPath (if it exists), then the
// environment. Environment variables are matched by prefix plus the
// upper-cased key, and only for keys dest declares.
func load(dest interface{}, configPath, envPrefix string) error {
	if err := defaults.Set(dest); err != nil {
		return errors.WithStack(err)
	}

	k := koanf.New(".")

	if _, err := os.Stat(configPath); err == nil {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return errors.Wrapf(err, "failed to load config file %s", configPath)
		}
	}

	keys := configKeys(dest)
	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, envPrefix))
		if _, ok := keys[key]; !ok {
			return ""
		}
		return key
	}), nil)
	if err != nil {
		return errors.WithStack(err)
	}

	if err := k.Unmarshal("", dest); err != nil {
		return errors.WithStack(err)
	}

	return validate(dest, envPrefix)
}

// configKeys returns the koanf keys declared by dest's fields.
func configKeys(dest interface{}) map[string]struct{} {
	keys := map[string]struct{}{}
	t := reflect.TypeOf(dest).Elem()
	for i := 0; i < t.NumField(); i++ {
		tag := t.Field(i).Tag.Get("koanf")
		if tag == "" || tag == "-" {
			continue
		}
		keys[tag] = struct{}{}
	}
	return keys
}

func validate(dest interface{}, envPrefix string) error {
	err := validator.New().Struct(dest)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errors.WithStack(err)
	}

	missing := []string{}
	invalid := []string{}
	for _, fe := range verrs {
		key := toSnakeCase(fe.StructField())
		name := envPrefix + strings.ToUpper(key) + " (" + key + ")"
		if fe.Tag() == "required" {
			missing = append(missing, name)
		} else {
			invalid = append(invalid, name)
		}
	}
	if len(missing) > 0 {
		return errors.Errorf("missing required config: %s", strings.Join(missing, ", "))
	}
	return errors.Errorf("invalid config: %s", strings.Join(invalid, ", "))
}

func toSnakeCase(s string) string {
	return strcase.ToSnake(s)
}
