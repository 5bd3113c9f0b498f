package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/aluiziolira/go-scrape-news/config"
	"github.com/aluiziolira/go-scrape-news/scraper"
	"github.com/aluiziolira/go-scrape-news/sources"
)

var (
	cfg     = config.DefaultConfig()
	metrics = scraper.NewMetrics()

	// envErr holds the first malformed SCRAPER_* variable; reported before any command runs.
	envErr error
	// targetFromEnv records whether SCRAPER_TARGET overrode the source default.
	targetFromEnv bool

	closeLog      = func() error { return nil }
	metricsServer *http.Server
)

var rootCmd = &cobra.Command{
	Use:          "scraper",
	Short:        "scraper collects news listings and article details into resumable logs.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if envErr != nil {
			return envErr
		}
		cfg.ExportFormat = strings.ToLower(cfg.ExportFormat)
		cfg.Browser = strings.ToLower(cfg.Browser)

		logger, closer := newLogger(cfg.Verbose, cfg.LogFile)
		slog.SetDefault(logger)
		closeLog = closer

		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		startMetricsServer()
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		stopMetricsServer()
		return closeLog()
	},
}

func init() {
	applyEnv()

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfg.OutputDir, "output-dir", cfg.OutputDir, "Directory holding the logs and exports")
	flags.IntVar(&cfg.TargetCount, "target", cfg.TargetCount, "Listing stubs to collect (defaults to the source's target)")
	flags.StringVar(&cfg.StartURL, "start-url", cfg.StartURL, "Override the source's listing URL")
	flags.DurationVar(&cfg.SettleDelay, "settle-delay", cfg.SettleDelay, "Wait after navigation and load-more clicks")
	flags.DurationVar(&cfg.ScrollDelay, "scroll-delay", cfg.ScrollDelay, "Wait after scrolling to the bottom")
	flags.IntVar(&cfg.MaxExpandMisses, "max-expand-misses", cfg.MaxExpandMisses, "Consecutive load-more failures treated as the end of the listing")
	flags.IntVar(&cfg.MaxCycles, "max-cycles", cfg.MaxCycles, "Upper bound on listing cycles")
	flags.StringVar(&cfg.Browser, "browser", cfg.Browser, "Session backend: chrome or http")
	flags.StringVar(&cfg.RemoteURL, "remote-url", cfg.RemoteURL, "Attach to a running Chrome DevTools endpoint instead of launching one")
	flags.BoolVar(&cfg.Headless, "headless", cfg.Headless, "Run Chrome headless")
	flags.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Per-action timeout")
	flags.IntVar(&cfg.MaxRetries, "max-retries", cfg.MaxRetries, "Retries for transient navigation failures (0 leaves them to the next run)")
	flags.DurationVar(&cfg.RetryBackoff, "retry-backoff", cfg.RetryBackoff, "Initial retry backoff")
	flags.DurationVar(&cfg.RetryBackoffMax, "retry-backoff-max", cfg.RetryBackoffMax, "Maximum retry backoff")
	flags.StringVar(&cfg.UserAgent, "user-agent", cfg.UserAgent, "User agent sent by the session")
	flags.Float64Var(&cfg.RequestsPerSec, "rps", cfg.RequestsPerSec, "Navigation rate limit for the http browser (0 disables)")
	flags.IntVar(&cfg.PageCacheSize, "page-cache", cfg.PageCacheSize, "Pages cached by the http browser (0 disables)")
	flags.BoolVar(&cfg.RespectRobotsTxt, "respect-robots", cfg.RespectRobotsTxt, "Respect robots.txt directives (http browser)")
	flags.BoolVar(&cfg.SyncWrites, "sync", cfg.SyncWrites, "fsync every appended record")
	flags.StringVar(&cfg.ExportFormat, "format", cfg.ExportFormat, "Export format: xlsx, csv, or json")
	flags.StringVar(&cfg.KeywordFile, "keywords", cfg.KeywordFile, "Keyword file for search sources")
	flags.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "Prometheus metrics listen address (e.g. :9090)")
	flags.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "Also write JSON logs to this rotating file")
	flags.BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "Enable verbose logging")
}

func applyEnv() {
	if value, ok := config.EnvString("SCRAPER_OUTPUT_DIR"); ok {
		cfg.OutputDir = value
	}
	if value, ok, err := config.EnvInt("SCRAPER_TARGET"); err != nil {
		setEnvErr("SCRAPER_TARGET", err)
	} else if ok {
		cfg.TargetCount = value
		targetFromEnv = true
	}
	if value, ok := config.EnvString("SCRAPER_START_URL"); ok {
		cfg.StartURL = value
	}
	if value, ok, err := config.EnvDuration("SCRAPER_SETTLE_DELAY"); err != nil {
		setEnvErr("SCRAPER_SETTLE_DELAY", err)
	} else if ok {
		cfg.SettleDelay = value
	}
	if value, ok := config.EnvString("SCRAPER_BROWSER"); ok {
		cfg.Browser = value
	}
	if value, ok := config.EnvString("SCRAPER_REMOTE_URL"); ok {
		cfg.RemoteURL = value
	}
	if value, ok, err := config.EnvBool("SCRAPER_HEADLESS"); err != nil {
		setEnvErr("SCRAPER_HEADLESS", err)
	} else if ok {
		cfg.Headless = value
	}
	if value, ok, err := config.EnvDuration("SCRAPER_TIMEOUT"); err != nil {
		setEnvErr("SCRAPER_TIMEOUT", err)
	} else if ok {
		cfg.Timeout = value
	}
	if value, ok, err := config.EnvInt("SCRAPER_MAX_RETRIES"); err != nil {
		setEnvErr("SCRAPER_MAX_RETRIES", err)
	} else if ok {
		cfg.MaxRetries = value
	}
	if value, ok := config.EnvString("SCRAPER_FORMAT"); ok {
		cfg.ExportFormat = value
	}
	if value, ok := config.EnvString("SCRAPER_KEYWORDS"); ok {
		cfg.KeywordFile = value
	}
	if value, ok := config.EnvString("SCRAPER_METRICS_ADDR"); ok {
		cfg.MetricsAddr = value
	}
	if value, ok := config.EnvString("SCRAPER_LOG_FILE"); ok {
		cfg.LogFile = value
	}
}

func setEnvErr(key string, err error) {
	if envErr == nil {
		envErr = fmt.Errorf("invalid %s: %w", key, err)
	}
}

// driverFor returns a driver whose config carries the source's own target
// unless one was given explicitly.
func driverFor(cmd *cobra.Command, src *sources.Source) (*scraper.Driver, error) {
	c := *cfg
	if !cmd.Flags().Changed("target") && !targetFromEnv && src.TargetCount > 0 {
		c.TargetCount = src.TargetCount
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", src.Name, err)
	}
	return scraper.NewDriver(&c, metrics), nil
}

func lookupSources(names []string) ([]*sources.Source, error) {
	out := make([]*sources.Source, 0, len(names))
	for _, name := range names {
		src, err := sources.Lookup(name)
		if err != nil {
			return nil, fmt.Errorf("%w (known: %s)", err, strings.Join(sources.Names(), ", "))
		}
		out = append(out, src)
	}
	return out, nil
}

func startMetricsServer() {
	if cfg.MetricsAddr == "" {
		return
	}
	metricsServer = &http.Server{
		Addr:    cfg.MetricsAddr,
		Handler: promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", slog.Any("error", err))
		}
	}()
	slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
}

func stopMetricsServer() {
	if metricsServer == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("metrics server shutdown failed", slog.Any("error", err))
	}
}
