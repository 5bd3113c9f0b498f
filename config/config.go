package config

import (
	"fmt"
	"net/url"
	"time"
)

// Config holds scraper configuration.
type Config struct {
	OutputDir        string
	TargetCount      int
	StartURL         string
	SettleDelay      time.Duration
	ScrollDelay      time.Duration
	MaxExpandMisses  int
	MaxCycles        int
	Browser          string // chrome or http
	RemoteURL        string
	Headless         bool
	Timeout          time.Duration
	MaxRetries       int
	RetryBackoff     time.Duration
	RetryBackoffMax  time.Duration
	UserAgent        string
	RequestsPerSec   float64
	PageCacheSize    int
	RespectRobotsTxt bool
	SyncWrites       bool
	ExportFormat     string // xlsx, csv, or json
	KeywordFile      string
	MetricsAddr      string
	Verbose          bool
	LogFile          string
}

// DefaultConfig returns conservative defaults for a browser-driven run.
func DefaultConfig() *Config {
	return &Config{
		OutputDir:        "output",
		TargetCount:      200,
		SettleDelay:      3 * time.Second,
		ScrollDelay:      1 * time.Second,
		MaxExpandMisses:  2,
		MaxCycles:        100,
		Browser:          "chrome",
		Headless:         true,
		Timeout:          30 * time.Second,
		MaxRetries:       0,
		RetryBackoff:     2 * time.Second,
		RetryBackoffMax:  30 * time.Second,
		UserAgent:        "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
		RequestsPerSec:   0,
		PageCacheSize:    128,
		RespectRobotsTxt: false,
		SyncWrites:       true,
		ExportFormat:     "xlsx",
		KeywordFile:      "companies.txt",
		Verbose:          false,
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.OutputDir == "" {
		return fmt.Errorf("output dir cannot be empty")
	}
	if c.TargetCount <= 0 {
		return fmt.Errorf("target count must be positive")
	}
	if c.StartURL != "" {
		parsedURL, err := url.Parse(c.StartURL)
		if err != nil {
			return fmt.Errorf("invalid start URL: %w", err)
		}
		if parsedURL.Host == "" {
			return fmt.Errorf("start URL must include a host")
		}
	}
	if c.SettleDelay < 0 {
		return fmt.Errorf("settle delay cannot be negative")
	}
	if c.ScrollDelay < 0 {
		return fmt.Errorf("scroll delay cannot be negative")
	}
	if c.MaxExpandMisses <= 0 {
		return fmt.Errorf("max expand misses must be positive")
	}
	if c.MaxCycles <= 0 {
		return fmt.Errorf("max cycles must be positive")
	}
	if c.Browser != "chrome" && c.Browser != "http" {
		return fmt.Errorf("browser must be chrome or http")
	}
	if c.RemoteURL != "" {
		parsedURL, err := url.Parse(c.RemoteURL)
		if err != nil {
			return fmt.Errorf("invalid remote URL: %w", err)
		}
		if parsedURL.Host == "" {
			return fmt.Errorf("remote URL must include a host")
		}
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if c.RetryBackoff < 0 || c.RetryBackoffMax < 0 {
		return fmt.Errorf("retry backoff cannot be negative")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	if c.RequestsPerSec < 0 {
		return fmt.Errorf("requests per second cannot be negative")
	}
	if c.PageCacheSize < 0 {
		return fmt.Errorf("page cache size cannot be negative")
	}
	if c.ExportFormat != "xlsx" && c.ExportFormat != "csv" && c.ExportFormat != "json" {
		return fmt.Errorf("export format must be xlsx, csv, or json")
	}

	return nil
}
