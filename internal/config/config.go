package config

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Upload backends.
const (
	UploadBackendDisk = "disk"
	UploadBackendS3   = "s3"
)

// Config is the process configuration, read from the environment.
type Config struct {
	App     AppConfig
	DB      DBConfig
	JWT     JWTConfig
	Uploads UploadConfig
	S3      S3Config
}

type AppConfig struct {
	Host      string `envconfig:"HOST" default:"0.0.0.0"`
	Port      string `envconfig:"PORT" default:"5000"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`

	// BorrowRequiresAuth puts the borrow/return routes behind the auth gate.
	BorrowRequiresAuth bool `envconfig:"BORROW_REQUIRE_AUTH" default:"false"`
}

// Addr returns the listen address.
func (a AppConfig) Addr() string {
	return a.Host + ":" + a.Port
}

type DBConfig struct {
	URL             string        `envconfig:"DATABASE_URL" required:"true"`
	MaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"30m"`
}

type JWTConfig struct {
	Secret string `envconfig:"JWT_SECRET"`
}

type UploadConfig struct {
	Backend           string `envconfig:"UPLOAD_BACKEND" default:"disk"`
	Dir               string `envconfig:"UPLOAD_DIR" default:"uploads"`
	MaxMB             int    `envconfig:"UPLOAD_MAX_MB" default:"20"`
	MaxImageDimension int    `envconfig:"UPLOAD_MAX_IMAGE_DIMENSION" default:"0"`
}

// MaxBytes returns the request body limit for multipart uploads.
func (u UploadConfig) MaxBytes() int64 {
	if u.MaxMB <= 0 {
		return 20 << 20
	}
	return int64(u.MaxMB) << 20
}

type S3Config struct {
	Endpoint  string `envconfig:"S3_ENDPOINT"`
	AccessKey string `envconfig:"S3_ACCESS_KEY"`
	SecretKey string `envconfig:"S3_SECRET_KEY"`
	Bucket    string `envconfig:"S3_BUCKET"`
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadJWT reads only the JWT settings, for commands that need no database.
func LoadJWT() (*JWTConfig, error) {
	var cfg JWTConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.DB.URL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	c.Uploads.Backend = strings.ToLower(strings.TrimSpace(c.Uploads.Backend))
	switch c.Uploads.Backend {
	case UploadBackendDisk:
		if c.Uploads.Dir == "" {
			return fmt.Errorf("UPLOAD_DIR is required for the disk backend")
		}
	case UploadBackendS3:
		var missing []string
		for key, val := range map[string]string{
			"S3_ENDPOINT":   c.S3.Endpoint,
			"S3_ACCESS_KEY": c.S3.AccessKey,
			"S3_SECRET_KEY": c.S3.SecretKey,
			"S3_BUCKET":     c.S3.Bucket,
		} {
			if val == "" {
				missing = append(missing, key)
			}
		}
		if len(missing) > 0 {
			sort.Strings(missing)
			return fmt.Errorf("s3 upload backend requires %s", strings.Join(missing, ", "))
		}
	default:
		return fmt.Errorf("unknown UPLOAD_BACKEND %q", c.Uploads.Backend)
	}
	return nil
}
