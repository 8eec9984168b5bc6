// Package config loads gateway settings from the environment, with an
// optional .env overlay for local development.
package config

import (
	"fmt"
	"strings"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/joho/godotenv"
)

// Config holds runtime settings for the upload gateway.
type Config struct {
	ListenAddr string `env:"LISTEN_ADDR,default=:8080"`

	// Object storage. STORAGE_BACKEND selects s3 (default) or azure.
	StorageBackend     string `env:"STORAGE_BACKEND,default=s3"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	AWSSessionToken    string `env:"AWS_SESSION_TOKEN"`
	S3Bucket           string `env:"S3_BUCKET_NAME"`
	S3Region           string `env:"S3_REGION,default=ap-southeast-2"`
	S3Endpoint         string `env:"S3_ENDPOINT"`
	S3ObjectACL        string `env:"S3_OBJECT_ACL"`
	AzureAccount       string `env:"AZURE_STORAGE_ACCOUNT"`
	AzureKey           string `env:"AZURE_STORAGE_KEY"`
	AzureContainer     string `env:"AZURE_BLOB_CONTAINER"`

	// Identity provider. AUTH_MODE selects remote (default) or the
	// deprecated legacy shared-secret token scheme.
	AuthAPIBaseURL       string `env:"AUTH_API_BASE_URL"`
	AuthMode             string `env:"AUTH_MODE,default=remote"`
	LegacyTokenRealm     string `env:"LEGACY_TOKEN_REALM,default=bus"`
	LegacyTokenMaxAgeSec int    `env:"LEGACY_TOKEN_MAX_AGE_SECONDS,default=86400"`

	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS,default=*"`
	PresignExpirySec   int    `env:"PRESIGN_EXPIRY_SECONDS,default=3600"`
	MaxUploadBytes     int64  `env:"MAX_UPLOAD_BYTES,default=104857600"`

	// Upload screening.
	ScreenDisabled    bool   `env:"UPLOAD_SCREEN_DISABLED,default=false"`
	ScreenMode        string `env:"UPLOAD_SCREEN_MODE,default=enforce"`
	BlockedExtensions string `env:"UPLOAD_BLOCKED_EXTENSIONS"`
	ScreenSignatures  string `env:"UPLOAD_BLOCKED_SIGNATURES"`

	// Comma-separated archive mirror targets (sftp, ftps).
	Mirrors string `env:"MIRRORS"`
}

// Load reads settings from the process environment. A .env file in the
// working directory is applied first when present; real environment
// variables win over file values.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.StorageBackend {
	case "s3":
		if c.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET_NAME is required")
		}
	case "azure":
		if c.AzureAccount == "" || c.AzureKey == "" || c.AzureContainer == "" {
			return fmt.Errorf("AZURE_STORAGE_ACCOUNT/AZURE_STORAGE_KEY/AZURE_BLOB_CONTAINER are required for the azure backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.StorageBackend)
	}

	switch c.AuthMode {
	case "remote":
		if c.AuthAPIBaseURL == "" {
			return fmt.Errorf("AUTH_API_BASE_URL is required")
		}
	case "legacy":
		if c.LegacyTokenRealm == "" {
			return fmt.Errorf("LEGACY_TOKEN_REALM is required in legacy auth mode")
		}
	default:
		return fmt.Errorf("unknown auth mode %q", c.AuthMode)
	}
	return nil
}

// AllowedOrigins returns the parsed CORS origin allow-list.
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.CORSAllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// PresignExpiry returns the pre-signed URL lifetime as a duration.
func (c *Config) PresignExpiry() time.Duration {
	return time.Duration(c.PresignExpirySec) * time.Second
}

// LegacyTokenMaxAge returns the legacy token lifetime as a duration.
func (c *Config) LegacyTokenMaxAge() time.Duration {
	return time.Duration(c.LegacyTokenMaxAgeSec) * time.Second
}

// SplitList parses a comma-separated env value into trimmed items.
func SplitList(raw string) []string {
	var items []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
