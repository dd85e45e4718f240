// Command hanmicrawl crawls articles published on a target date and
// delivers them to a file pair on disk or, when configured, by email.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/sjlee/hanmicrawl/article"
	"github.com/sjlee/hanmicrawl/browser"
	"github.com/sjlee/hanmicrawl/config"
	"github.com/sjlee/hanmicrawl/crawl"
	"github.com/sjlee/hanmicrawl/email"
	"github.com/sjlee/hanmicrawl/export"
	"github.com/sjlee/hanmicrawl/history"
)

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt parses an int from environment variable or returns default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func main() {
	configPath := flag.String("config", getEnv("HANMICRAWL_CONFIG", ""), "Path to config file (HANMICRAWL_CONFIG)")
	dateStr := flag.String("date", getEnv("HANMICRAWL_DATE", ""), "Target date YYYY-MM-DD, default today (HANMICRAWL_DATE)")
	maxArticles := flag.Int("max", getEnvInt("HANMICRAWL_MAX", 0), "Maximum article count, overrides config (HANMICRAWL_MAX)")
	outDir := flag.String("out", getEnv("HANMICRAWL_OUT", ""), "Output directory for exported files (HANMICRAWL_OUT)")
	shape := flag.String("shape", getEnv("HANMICRAWL_SHAPE", ""), "Listing shape: category or homepage (HANMICRAWL_SHAPE)")
	fileOnly := flag.Bool("file-only", false, "Export to files even when email delivery is configured")
	logLevel := flag.String("log-level", getEnv("HANMICRAWL_LOG_LEVEL", "info"), "Log level: debug, info, warn, error (HANMICRAWL_LOG_LEVEL)")
	flag.Parse()

	logger := newLogger(*logLevel)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fatal(logger, err)
	}
	if *maxArticles > 0 {
		cfg.MaxArticles = *maxArticles
	}
	if *shape != "" {
		cfg.Shape = *shape
	}
	if *outDir != "" {
		cfg.OutputDir = *outDir
	}

	target, err := buildTarget(cfg, *dateStr)
	if err != nil {
		fatal(logger, err)
	}

	var emailCfg *email.Config
	if !*fileOnly {
		emailCfg, err = cfg.EmailConfig()
		if err != nil {
			fatal(logger, err)
		}
	}

	crawlCfg := crawl.DefaultConfig()
	if cfg.ListingURL != "" {
		crawlCfg.ListingURL = cfg.ListingURL
	}
	crawlCfg.RequestDelay = cfg.RequestDelay()

	browserOpts := browser.Options{
		Headless:          cfg.HeadlessMode(),
		NavigationTimeout: cfg.NavTimeout(),
		SettleDelay:       cfg.SettleDelay(),
	}

	opts := crawl.Options{
		Launch: func(ctx context.Context) (crawl.Session, error) {
			session, err := browser.Launch(ctx, browserOpts)
			if err != nil {
				return nil, err
			}
			return session, nil
		},
		Config:   crawlCfg,
		FileSink: &export.FileSink{Dir: cfg.OutputDir},
		Progress: func(line string) { fmt.Println(line) },
		Logger:   logger,
	}
	if emailCfg != nil {
		opts.EmailSink = email.NewSink(*emailCfg)
	}
	if cfg.HistoryDB != "" {
		store, err := history.Open(cfg.HistoryDB)
		if err != nil {
			fatal(logger, err)
		}
		defer store.Close()
		opts.Recorder = store
	}

	// A signal stops the run between detail fetches; whatever was
	// collected by then is still dispatched.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	crawler := crawl.New(opts)
	result, err := crawler.Run(ctx, target)
	if err != nil {
		fatal(logger, err)
	}

	if result.DeliveryErr != nil {
		logger.Warn("articles collected but delivery failed", "error", result.DeliveryErr)
	}
	logger.Info("run finished",
		"run_id", result.RunID,
		"target_date", target.DateString(),
		"articles", len(result.Articles),
	)
}

// buildTarget resolves the crawl target from config and the date flag.
func buildTarget(cfg *config.File, dateStr string) (article.CrawlTarget, error) {
	date := time.Now()
	if dateStr != "" {
		parsed, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			return article.CrawlTarget{}, fmt.Errorf("invalid target date %q, want YYYY-MM-DD: %w", dateStr, err)
		}
		date = parsed
	}

	shape := article.ShapeCategory
	if cfg.Shape == "homepage" {
		shape = article.ShapeHomepage
	}

	return article.CrawlTarget{
		Date:        date,
		MaxArticles: cfg.MaxArticles,
		Shape:       shape,
	}, nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// fatal reports the single actionable failure message and exits.
func fatal(logger *slog.Logger, err error) {
	var launchErr *browser.LaunchError
	if errors.As(err, &launchErr) {
		fmt.Fprintf(os.Stderr, "browser engine unavailable: %v\n", launchErr.Unwrap())
		fmt.Fprintln(os.Stderr, launchErr.RemediationHint())
	} else {
		fmt.Fprintln(os.Stderr, err)
	}
	logger.Error("run aborted", "error", err)
	os.Exit(1)
}
