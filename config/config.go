// Package config loads run configuration from a YAML file and applies
// defaults. The config file is optional; flags in cmd/hanmicrawl
// override whatever it provides.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sjlee/hanmicrawl/email"
)

// EmailBlock mirrors the email section of the config file. All five
// fields are required together or the block must be left empty.
type EmailBlock struct {
	SMTPHost  string `yaml:"smtp_host"`
	SMTPPort  int    `yaml:"smtp_port"`
	Sender    string `yaml:"sender"`
	Password  string `yaml:"password"`
	Recipient string `yaml:"recipient"`
}

// File is the structure of the hanmicrawl config file.
type File struct {
	// ListingURL overrides the category listing page.
	ListingURL string `yaml:"listing_url"`
	// Shape selects the listing markup: "category" or "homepage".
	Shape string `yaml:"shape"`
	// MaxArticles caps how many articles one run collects.
	MaxArticles int `yaml:"max_articles"`
	// RequestDelayMS paces successive detail fetches.
	RequestDelayMS int `yaml:"request_delay_ms"`
	// SettleDelayMS is the post-navigation rendering wait.
	SettleDelayMS int `yaml:"settle_delay_ms"`
	// NavTimeoutSec bounds a single page navigation.
	NavTimeoutSec int `yaml:"nav_timeout_sec"`
	// Headless may be set to false for debugging navigation issues.
	Headless *bool `yaml:"headless"`
	// OutputDir receives the exported file pair.
	OutputDir string `yaml:"output_dir"`
	// HistoryDB enables the run-history store when non-empty.
	HistoryDB string `yaml:"history_db"`
	// Email enables the email sink when fully populated.
	Email EmailBlock `yaml:"email"`
}

// Defaults returns the configuration used when no file is present.
func Defaults() *File {
	return &File{
		Shape:          "category",
		MaxArticles:    10,
		RequestDelayMS: 1000,
		SettleDelayMS:  2000,
		NavTimeoutSec:  30,
	}
}

// Load reads the config file at path. A missing file yields defaults
// and no error; a file that exists but cannot be parsed is an error.
func Load(path string) (*File, error) {
	cfg := Defaults()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	if cfg.MaxArticles <= 0 {
		return nil, fmt.Errorf("max_articles must be positive, got %d", cfg.MaxArticles)
	}
	switch cfg.Shape {
	case "category", "homepage", "":
	default:
		return nil, fmt.Errorf("shape must be \"category\" or \"homepage\", got %q", cfg.Shape)
	}
	return cfg, nil
}

// RequestDelay returns the inter-request pacing as a duration.
func (f *File) RequestDelay() time.Duration {
	return time.Duration(f.RequestDelayMS) * time.Millisecond
}

// SettleDelay returns the rendering wait as a duration.
func (f *File) SettleDelay() time.Duration {
	return time.Duration(f.SettleDelayMS) * time.Millisecond
}

// NavTimeout returns the navigation timeout as a duration.
func (f *File) NavTimeout() time.Duration {
	return time.Duration(f.NavTimeoutSec) * time.Second
}

// HeadlessMode reports whether the browser should run headless.
// Defaults to true when the file does not say otherwise.
func (f *File) HeadlessMode() bool {
	if f.Headless == nil {
		return true
	}
	return *f.Headless
}

// EmailConfig validates the email block. It returns (nil, nil) when
// the block is entirely empty, a delivery config when all five fields
// are set, and an error for anything in between.
func (f *File) EmailConfig() (*email.Config, error) {
	b := f.Email
	if b == (EmailBlock{}) {
		return nil, nil
	}

	var missing []string
	if b.SMTPHost == "" {
		missing = append(missing, "smtp_host")
	}
	if b.SMTPPort == 0 {
		missing = append(missing, "smtp_port")
	}
	if b.Sender == "" {
		missing = append(missing, "sender")
	}
	if b.Password == "" {
		missing = append(missing, "password")
	}
	if b.Recipient == "" {
		missing = append(missing, "recipient")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("incomplete email configuration, missing: %v", missing)
	}

	return &email.Config{
		Host:      b.SMTPHost,
		Port:      b.SMTPPort,
		Sender:    b.Sender,
		Password:  b.Password,
		Recipient: b.Recipient,
	}, nil
}
