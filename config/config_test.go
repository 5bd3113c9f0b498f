package config

import (
	"strings"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name: "zero target count",
			mutate: func(cfg *Config) {
				cfg.TargetCount = 0
			},
			wantErr: "target count",
		},
		{
			name: "empty output dir",
			mutate: func(cfg *Config) {
				cfg.OutputDir = ""
			},
			wantErr: "output dir",
		},
		{
			name: "start url without host",
			mutate: func(cfg *Config) {
				cfg.StartURL = "http://"
			},
			wantErr: "start URL",
		},
		{
			name: "negative settle delay",
			mutate: func(cfg *Config) {
				cfg.SettleDelay = -1 * time.Second
			},
			wantErr: "settle delay",
		},
		{
			name: "zero expand misses",
			mutate: func(cfg *Config) {
				cfg.MaxExpandMisses = 0
			},
			wantErr: "expand misses",
		},
		{
			name: "negative retries",
			mutate: func(cfg *Config) {
				cfg.MaxRetries = -1
			},
			wantErr: "max retries",
		},
		{
			name: "negative backoff",
			mutate: func(cfg *Config) {
				cfg.RetryBackoffMax = -1 * time.Second
			},
			wantErr: "retry backoff",
		},
		{
			name: "unknown browser",
			mutate: func(cfg *Config) {
				cfg.Browser = "firefox"
			},
			wantErr: "browser",
		},
		{
			name: "negative timeout",
			mutate: func(cfg *Config) {
				cfg.Timeout = -1 * time.Second
			},
			wantErr: "timeout",
		},
		{
			name: "unknown export format",
			mutate: func(cfg *Config) {
				cfg.ExportFormat = "parquet"
			},
			wantErr: "export format",
		},
		{
			name: "remote url without host",
			mutate: func(cfg *Config) {
				cfg.RemoteURL = "ws://"
			},
			wantErr: "remote URL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}
}

func TestStartURLOverrideValid(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StartURL = "https://www.reuters.com/markets/"
	cfg.Browser = "http"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("SCRAPER_TEST_INT", "42")
	t.Setenv("SCRAPER_TEST_BAD_INT", "forty")
	t.Setenv("SCRAPER_TEST_DURATION", "1500ms")
	t.Setenv("SCRAPER_TEST_BOOL", "true")
	t.Setenv("SCRAPER_TEST_BLANK", "   ")

	if n, ok, err := EnvInt("SCRAPER_TEST_INT"); err != nil || !ok || n != 42 {
		t.Fatalf("EnvInt = %d, %v, %v", n, ok, err)
	}
	if _, _, err := EnvInt("SCRAPER_TEST_BAD_INT"); err == nil {
		t.Fatalf("expected parse error for bad int")
	}
	if d, ok, err := EnvDuration("SCRAPER_TEST_DURATION"); err != nil || !ok || d != 1500*time.Millisecond {
		t.Fatalf("EnvDuration = %v, %v, %v", d, ok, err)
	}
	if b, ok, err := EnvBool("SCRAPER_TEST_BOOL"); err != nil || !ok || !b {
		t.Fatalf("EnvBool = %v, %v, %v", b, ok, err)
	}
	if _, ok := EnvString("SCRAPER_TEST_BLANK"); ok {
		t.Fatalf("blank value should be treated as unset")
	}
	if _, ok := EnvString("SCRAPER_TEST_MISSING"); ok {
		t.Fatalf("missing value should be unset")
	}
}
