package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/slidegate-dev/slidegate/internal/config"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), config.FileName)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Address != config.DefaultAddress {
		t.Errorf("Address = %q", cfg.Address)
	}
	if cfg.MaxUploadMB != config.DefaultMaxUploadMB {
		t.Errorf("MaxUploadMB = %d", cfg.MaxUploadMB)
	}
	if cfg.Spool.Backend != "disk" {
		t.Errorf("Spool.Backend = %q", cfg.Spool.Backend)
	}
	if cfg.Theme != "light" {
		t.Errorf("Theme = %q", cfg.Theme)
	}
}

func TestLoadFillsUnsetFields(t *testing.T) {
	path := writeFile(t, `{"backend_url": "http://converter:5000", "max_upload_mb": 500}`)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.BackendURL != "http://converter:5000" {
		t.Errorf("BackendURL = %q", cfg.BackendURL)
	}
	if cfg.MaxUploadMB != 500 {
		t.Errorf("MaxUploadMB = %d", cfg.MaxUploadMB)
	}
	// Unset fields still default.
	if cfg.Address != config.DefaultAddress {
		t.Errorf("Address = %q", cfg.Address)
	}
	if len(cfg.Extensions) == 0 {
		t.Error("Extensions not defaulted")
	}
}

func TestLoadRejectsMalformedJSON(t *testing.T) {
	path := writeFile(t, `{"address": `)

	if _, err := config.Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{
			"valid disk config",
			func(c *config.Config) { c.BackendURL = "http://b" },
			"",
		},
		{
			"missing backend url",
			func(c *config.Config) {},
			"backend_url",
		},
		{
			"bad theme",
			func(c *config.Config) { c.BackendURL = "http://b"; c.Theme = "solarized" },
			"theme",
		},
		{
			"s3 without bucket",
			func(c *config.Config) { c.BackendURL = "http://b"; c.Spool.Backend = "s3" },
			"spool.bucket",
		},
		{
			"s3 with bucket",
			func(c *config.Config) {
				c.BackendURL = "http://b"
				c.Spool.Backend = "s3"
				c.Spool.Bucket = "decks"
			},
			"",
		},
		{
			"unknown backend",
			func(c *config.Config) { c.BackendURL = "http://b"; c.Spool.Backend = "floppy" },
			"spool backend",
		},
		{
			"dotted extension",
			func(c *config.Config) { c.BackendURL = "http://b"; c.Extensions = []string{".zip"} },
			"extensions",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestDerivedValues(t *testing.T) {
	cfg := config.Default()

	if got := cfg.MaxUploadBytes(); got != 200<<20 {
		t.Errorf("MaxUploadBytes() = %d", got)
	}
	if got := cfg.SpoolMaxAge(); got != time.Hour {
		t.Errorf("SpoolMaxAge() = %v", got)
	}
	cfg.Spool.MaxAgeMinutes = 5
	if got := cfg.SpoolMaxAge(); got != 5*time.Minute {
		t.Errorf("SpoolMaxAge() = %v", got)
	}
	if got := cfg.SuccessBannerTTL(); got != 5*time.Second {
		t.Errorf("SuccessBannerTTL() = %v", got)
	}
	if got := cfg.ShutdownTimeout(); got != 10*time.Second {
		t.Errorf("ShutdownTimeout() = %v", got)
	}
}
