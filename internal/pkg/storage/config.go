package storage

import (
	"fmt"
	"strings"

	"github.com/cardforgehq/cardforge/internal/pkg/env"
)

// Config holds the object storage settings. The endpoint points at a
// Backblaze B2 (S3-compatible) bucket by default.
type Config struct {
	EndpointURL     string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	PublicBaseURL   string
}

// ConfigFromEnv reads the object storage settings from the environment.
func ConfigFromEnv() Config {
	cfg := Config{
		EndpointURL:     env.GetEnv("B2_ENDPOINT", ""),
		Region:          env.GetEnv("B2_REGION", "us-east-005"),
		AccessKeyID:     env.GetEnv("B2_KEY_ID", ""),
		SecretAccessKey: env.GetEnv("B2_APP_KEY", ""),
		Bucket:          env.GetEnv("B2_BUCKET", ""),
		PublicBaseURL:   env.GetEnv("B2_PUBLIC_BASE_URL", ""),
	}
	if cfg.PublicBaseURL == "" && cfg.Bucket != "" {
		// B2's public download URL layout.
		cfg.PublicBaseURL = fmt.Sprintf("https://f005.backblazeb2.com/file/%s", cfg.Bucket)
	}
	cfg.PublicBaseURL = strings.TrimRight(cfg.PublicBaseURL, "/")
	return cfg
}

// IsEnabled reports whether object storage is configured.
func (c Config) IsEnabled() bool {
	return c.AccessKeyID != "" && c.SecretAccessKey != "" && c.Bucket != ""
}
