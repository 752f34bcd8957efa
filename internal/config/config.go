// Package config loads the gateway configuration from slidegate.json.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
)

const (
	// FileName is the default configuration file name.
	FileName = "slidegate.json"

	// DefaultAddress is the default listen address.
	DefaultAddress = ":8080"

	// DefaultMaxUploadMB is the default upload size cap. The original
	// deployments vary between 200MB and 500MB depending on target, so
	// this is configuration, never a compile-time constant.
	DefaultMaxUploadMB = 200

	// DefaultSpoolDir is where the disk store keeps spooled files.
	DefaultSpoolDir = "spool"

	// DefaultSpoolMaxAge is how long spool entries live before the
	// sweeper removes them.
	DefaultSpoolMaxAge = time.Hour

	// DefaultShutdownTimeout bounds graceful shutdown.
	DefaultShutdownTimeout = 10 * time.Second

	// DefaultSuccessBannerTTL is how long success banners stay visible.
	DefaultSuccessBannerTTL = 5 * time.Second

	// DefaultTheme is the initial page theme.
	DefaultTheme = "light"
)

// DefaultExtensions is the upload extension allowlist, matching what
// the conversion backend accepts.
var DefaultExtensions = []string{"png", "jpg", "jpeg", "gif", "bmp", "zip"}

// Config is the complete slidegate.json configuration.
type Config struct {
	// Address is the listen address, e.g. ":8080".
	Address string `json:"address,omitempty"`

	// BackendURL is the base URL of the conversion backend. Required.
	BackendURL string `json:"backend_url,omitempty"`

	// MaxUploadMB caps accepted upload size in megabytes.
	MaxUploadMB int `json:"max_upload_mb,omitempty"`

	// Extensions is the upload extension allowlist.
	Extensions []string `json:"extensions,omitempty"`

	// Spool configures the spool store.
	Spool SpoolConfig `json:"spool,omitempty"`

	// ShutdownTimeoutSeconds bounds graceful shutdown.
	ShutdownTimeoutSeconds int `json:"shutdown_timeout_seconds,omitempty"`

	// SuccessBannerSeconds is the success banner auto-expiry delay.
	SuccessBannerSeconds int `json:"success_banner_seconds,omitempty"`

	// Theme is the default page theme, "light" or "dark".
	Theme string `json:"theme,omitempty"`
}

// SpoolConfig configures where spooled files live.
type SpoolConfig struct {
	// Backend selects the store: "disk" (default) or "s3".
	Backend string `json:"backend,omitempty"`

	// Dir is the disk store directory.
	Dir string `json:"dir,omitempty"`

	// MaxAgeMinutes is the sweep age for spool entries.
	MaxAgeMinutes int `json:"max_age_minutes,omitempty"`

	// Bucket, Prefix and Region configure the S3 backend.
	Bucket string `json:"bucket,omitempty"`
	Prefix string `json:"prefix,omitempty"`
	Region string `json:"region,omitempty"`
}

// Default returns a Config with every field at its default.
func Default() *Config {
	return &Config{
		Address:                DefaultAddress,
		MaxUploadMB:            DefaultMaxUploadMB,
		Extensions:             append([]string(nil), DefaultExtensions...),
		Spool:                  SpoolConfig{Backend: "disk", Dir: DefaultSpoolDir},
		ShutdownTimeoutSeconds: int(DefaultShutdownTimeout / time.Second),
		SuccessBannerSeconds:   int(DefaultSuccessBannerTTL / time.Second),
		Theme:                  DefaultTheme,
	}
}

// Load reads the configuration file at path and fills in defaults for
// unset fields. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

// applyDefaults fills in defaults for any unset fields, the same way
// whether the config came from a file or from code.
func (c *Config) applyDefaults() {
	d := Default()
	if c.Address == "" {
		c.Address = d.Address
	}
	if c.MaxUploadMB <= 0 {
		c.MaxUploadMB = d.MaxUploadMB
	}
	if len(c.Extensions) == 0 {
		c.Extensions = d.Extensions
	}
	if c.Spool.Backend == "" {
		c.Spool.Backend = d.Spool.Backend
	}
	if c.Spool.Dir == "" {
		c.Spool.Dir = d.Spool.Dir
	}
	if c.ShutdownTimeoutSeconds <= 0 {
		c.ShutdownTimeoutSeconds = d.ShutdownTimeoutSeconds
	}
	if c.SuccessBannerSeconds <= 0 {
		c.SuccessBannerSeconds = d.SuccessBannerSeconds
	}
	if c.Theme == "" {
		c.Theme = d.Theme
	}
}

// Validate checks the configuration for contradictions.
func (c *Config) Validate() error {
	if c.BackendURL == "" {
		return fmt.Errorf("config: backend_url is required")
	}
	if c.Theme != "light" && c.Theme != "dark" {
		return fmt.Errorf("config: theme must be \"light\" or \"dark\", got %q", c.Theme)
	}
	switch c.Spool.Backend {
	case "disk":
	case "s3":
		if c.Spool.Bucket == "" {
			return fmt.Errorf("config: spool.bucket is required for the s3 backend")
		}
	default:
		return fmt.Errorf("config: unknown spool backend %q", c.Spool.Backend)
	}
	for _, ext := range c.Extensions {
		if ext == "" || strings.HasPrefix(ext, ".") {
			return fmt.Errorf("config: extensions must be bare lowercase names, got %q", ext)
		}
	}
	return nil
}

// MaxUploadBytes returns the upload cap in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

// SpoolMaxAge returns the sweep age for spool entries.
func (c *Config) SpoolMaxAge() time.Duration {
	if c.Spool.MaxAgeMinutes <= 0 {
		return DefaultSpoolMaxAge
	}
	return time.Duration(c.Spool.MaxAgeMinutes) * time.Minute
}

// ShutdownTimeout returns the graceful shutdown bound.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSeconds) * time.Second
}

// SuccessBannerTTL returns the success banner auto-expiry delay.
func (c *Config) SuccessBannerTTL() time.Duration {
	return time.Duration(c.SuccessBannerSeconds) * time.Second
}
