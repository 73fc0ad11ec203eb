package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultPort           = "3000"
	defaultEnv            = "development"
	defaultStoreDriver    = "postgres"
	defaultTokenTTL       = 7 * 24 * time.Hour
	defaultStorageTimeout = 30 * time.Second
	defaultMaxUploadBytes = 10 << 20
	defaultMinioBucket    = "elib"
)

// ConfigPath is the YAML config location (ELIB_CONFIG, default config.yaml).
var ConfigPath = envOr("ELIB_CONFIG", "config.yaml")

// EnvFilePath is the dotenv file loaded before environment overrides.
var EnvFilePath = envOr("ELIB_ENV_FILE", ".env")

// FileConfig represents configuration loaded from YAML, .env and the environment.
type FileConfig struct {
	Port                 string   `yaml:"port"`
	Env                  string   `yaml:"env"`
	LogLevel             string   `yaml:"logLevel"`
	StoreDriver          string   `yaml:"storeDriver"`
	DatabaseURL          string   `yaml:"databaseURL"`
	JWTSecret            string   `yaml:"jwtSecret"`
	TokenTTL             string   `yaml:"tokenTTL"`
	MinioEndpoint        string   `yaml:"minioEndpoint"`
	MinioAccessKey       string   `yaml:"minioAccessKey"`
	MinioSecretKey       string   `yaml:"minioSecretKey"`
	MinioBucket          string   `yaml:"minioBucket"`
	MinioUseSSL          bool     `yaml:"minioUseSSL"`
	StoragePublicBaseURL string   `yaml:"storagePublicBaseURL"`
	StorageTimeout       string   `yaml:"storageTimeout"`
	StagingDir           string   `yaml:"stagingDir"`
	MaxUploadBytes       int64    `yaml:"maxUploadBytes"`
	CORSOrigin           string   `yaml:"corsOrigin"`
	RedisAddr            string   `yaml:"redisAddr"`
	RedisPassword        string   `yaml:"redisPassword"`
	TrustedProxyCIDRs    []string `yaml:"trustedProxyCIDRs"`
}

// Load reads config from path (defaults to ConfigPath). A missing file is
// allowed so the service can run from environment variables alone.
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := loadEnvFile(EnvFilePath); err != nil {
		return cfg, err
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func loadEnvFile(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

func applyEnv(cfg *FileConfig) {
	setString := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v := strings.TrimSpace(os.Getenv(k)); v != "" {
				*dst = v
				return
			}
		}
	}
	setString(&cfg.Port, "PORT")
	setString(&cfg.Env, "APP_ENV", "NODE_ENV")
	setString(&cfg.LogLevel, "LOG_LEVEL")
	setString(&cfg.StoreDriver, "STORE_DRIVER")
	setString(&cfg.DatabaseURL, "DATABASE_URL")
	setString(&cfg.JWTSecret, "JWT_SECRET")
	setString(&cfg.TokenTTL, "TOKEN_TTL")
	setString(&cfg.MinioEndpoint, "MINIO_ENDPOINT")
	setString(&cfg.MinioAccessKey, "MINIO_ACCESS_KEY")
	setString(&cfg.MinioSecretKey, "MINIO_SECRET_KEY")
	setString(&cfg.MinioBucket, "MINIO_BUCKET")
	setString(&cfg.StoragePublicBaseURL, "STORAGE_PUBLIC_BASE_URL")
	setString(&cfg.StorageTimeout, "STORAGE_TIMEOUT")
	setString(&cfg.StagingDir, "STAGING_DIR")
	setString(&cfg.CORSOrigin, "CORS_ORIGIN")
	setString(&cfg.RedisAddr, "REDIS_ADDR")
	setString(&cfg.RedisPassword, "REDIS_PASSWORD")
	if v := strings.TrimSpace(os.Getenv("MINIO_USE_SSL")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.MinioUseSSL = b
		}
	}
	if v := os.Getenv("MAX_UPLOAD_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.MaxUploadBytes = n
		}
	}
	if v := os.Getenv("TRUSTED_PROXY_CIDRS"); v != "" {
		cfg.TrustedProxyCIDRs = splitCSV(v)
	}
}

func applyDefaults(cfg *FileConfig) {
	if cfg.Port == "" {
		cfg.Port = defaultPort
	}
	if cfg.Env == "" {
		cfg.Env = defaultEnv
	}
	if cfg.StoreDriver == "" {
		cfg.StoreDriver = defaultStoreDriver
	}
	cfg.StoreDriver = strings.ToLower(cfg.StoreDriver)
	if cfg.MinioBucket == "" {
		cfg.MinioBucket = defaultMinioBucket
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUploadBytes
	}
}

func validateConfig(cfg FileConfig) error {
	if cfg.Port == "" {
		return errors.New("config: port is required (set in config.yaml or PORT)")
	}
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		return errors.New("config: jwtSecret is required (set in config.yaml or JWT_SECRET)")
	}
	switch cfg.StoreDriver {
	case "postgres":
		if cfg.DatabaseURL == "" {
			return errors.New("config: databaseURL is required (set in config.yaml or DATABASE_URL)")
		}
	case "memory":
	default:
		return fmt.Errorf("config: unknown storeDriver %q (postgres|memory)", cfg.StoreDriver)
	}
	if cfg.MinioEndpoint == "" {
		return errors.New("config: minioEndpoint is required (set in config.yaml or MINIO_ENDPOINT)")
	}
	if cfg.MinioAccessKey == "" {
		return errors.New("config: minioAccessKey is required (set in config.yaml or MINIO_ACCESS_KEY)")
	}
	if cfg.MinioSecretKey == "" {
		return errors.New("config: minioSecretKey is required (set in config.yaml or MINIO_SECRET_KEY)")
	}
	if _, err := ParseDuration(cfg.TokenTTL, defaultTokenTTL); err != nil {
		return fmt.Errorf("config: tokenTTL: %w", err)
	}
	if _, err := ParseDuration(cfg.StorageTimeout, defaultStorageTimeout); err != nil {
		return fmt.Errorf("config: storageTimeout: %w", err)
	}
	return nil
}

// IsProduction reports whether error stacks must be hidden.
func (c FileConfig) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Env), "production")
}

// TokenTTLDuration returns the access token lifetime (default 7 days).
func (c FileConfig) TokenTTLDuration() time.Duration {
	d, _ := ParseDuration(c.TokenTTL, defaultTokenTTL)
	return d
}

// StorageTimeoutDuration bounds each object storage call (default 30s).
func (c FileConfig) StorageTimeoutDuration() time.Duration {
	d, _ := ParseDuration(c.StorageTimeout, defaultStorageTimeout)
	return d
}

// ParseDuration parses an optional positive duration string; empty yields def.
func ParseDuration(v string, def time.Duration) (time.Duration, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive, got %s", v)
	}
	return d, nil
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}
