package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "./config/config.yml"

type Config struct {
	Server struct {
		Port int    `yaml:"port"`
		Mode string `yaml:"mode"` // gin mode: debug, release or test
	} `yaml:"server"`

	Storage Storage `yaml:"storage"`

	Auth struct {
		Username     string `yaml:"username"`
		Password     string `yaml:"password"`     // Hashed with bcrypt at startup when PasswordHash is empty
		PasswordHash string `yaml:"passwordHash"` // bcrypt hash, takes precedence over Password
		JWTSecret    string `yaml:"jwtSecret"`
		SessionTTL   int    `yaml:"sessionTTL"` // Session lifetime in minutes
		SecureCookie bool   `yaml:"secureCookie"`
	} `yaml:"auth"`

	CORS struct {
		AllowOrigins []string `yaml:"allowOrigins"`
	} `yaml:"cors"`

	PDF struct {
		BinaryPath string `yaml:"binaryPath"` // Path to the wkhtmltopdf executable; empty means PATH lookup
		DPI        uint   `yaml:"dpi"`
	} `yaml:"pdf"`

	Log struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"log"`
}

// Storage selects and configures the assessment backend
type Storage struct {
	Backend  string `yaml:"backend"` // file, bolt, redis or mongo
	Dir      string `yaml:"dir"`
	BoltPath string `yaml:"boltPath"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Mongo struct {
		URI        string `yaml:"uri"`
		Database   string `yaml:"database"`
		Collection string `yaml:"collection"`
	} `yaml:"mongo"`
}

// Default returns the configuration used when no file is present
func Default() *Config {
	var cfg Config
	cfg.Server.Port = 5000
	cfg.Server.Mode = "release"
	cfg.Storage.Backend = "file"
	cfg.Storage.Dir = "data/assessments"
	cfg.Storage.BoltPath = "data/assessments.db"
	cfg.Storage.Redis.Addr = "127.0.0.1:6379"
	cfg.Storage.Mongo.URI = "mongodb://localhost:27017"
	cfg.Storage.Mongo.Database = "provas"
	cfg.Storage.Mongo.Collection = "assessments"
	cfg.Auth.Username = "admin"
	cfg.Auth.Password = "admin"
	cfg.Auth.SessionTTL = 12 * 60
	cfg.PDF.DPI = 300
	cfg.Log.Level = "info"
	return &cfg
}

// LoadConfig reads the YAML file over the defaults and then applies environment overrides.
// A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal yaml: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// .env is optional; values already in the environment win
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Path returns CONFIG_PATH or the default location
func Path() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return DefaultPath
}

func applyEnv(cfg *Config) error {
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v, ok := os.LookupEnv(key)
		if !ok {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s must be a number: %w", key, err)
		}
		*dst = n
		return nil
	}

	str("PROVAS_MODE", &cfg.Server.Mode)
	str("PROVAS_STORAGE_BACKEND", &cfg.Storage.Backend)
	str("PROVAS_STORAGE_DIR", &cfg.Storage.Dir)
	str("PROVAS_BOLT_PATH", &cfg.Storage.BoltPath)
	str("PROVAS_REDIS_ADDR", &cfg.Storage.Redis.Addr)
	str("PROVAS_REDIS_PASSWORD", &cfg.Storage.Redis.Password)
	str("PROVAS_MONGO_URI", &cfg.Storage.Mongo.URI)
	str("PROVAS_AUTH_USERNAME", &cfg.Auth.Username)
	str("PROVAS_AUTH_PASSWORD", &cfg.Auth.Password)
	str("PROVAS_AUTH_PASSWORD_HASH", &cfg.Auth.PasswordHash)
	str("PROVAS_JWT_SECRET", &cfg.Auth.JWTSecret)
	str("PROVAS_WKHTMLTOPDF_PATH", &cfg.PDF.BinaryPath)
	str("PROVAS_LOG_LEVEL", &cfg.Log.Level)

	if err := num("PROVAS_PORT", &cfg.Server.Port); err != nil {
		return err
	}
	return num("PROVAS_REDIS_DB", &cfg.Storage.Redis.DB)
}

// Validate rejects settings the server cannot start with
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "file", "bolt", "redis", "mongo":
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Server.Port)
	}
	if c.Auth.Username == "" {
		return errors.New("auth username is required")
	}
	if c.Auth.Password == "" && c.Auth.PasswordHash == "" {
		return errors.New("auth password or passwordHash is required")
	}
	if c.Auth.SessionTTL <= 0 {
		return errors.New("auth sessionTTL must be positive")
	}
	return nil
}
