package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/aluiziolira/go-auction-lister/parser"
	"github.com/aluiziolira/go-auction-lister/pipeline"
)

// Config holds lister configuration.
type Config struct {
	MaxRetries     int
	InterItemDelay time.Duration
	RetryDelay     time.Duration
	ReloadSettle   time.Duration
	ElementTimeout time.Duration
	PauseMin       time.Duration
	PauseMax       time.Duration
	TypeDelayMin   time.Duration
	TypeDelayMax   time.Duration

	SellURL    string
	Headless   bool
	ProfileDir string
	ImageDir   string
	InputFile  string
	Encoding   string

	ReportFile   string
	ReportFormat string // csv, json, or both
	MetricsAddr  string
	SettingsPath string

	Probe    ProbeConfig
	Chatwork ChatworkConfig

	Verbose bool
}

// ProbeConfig controls the reachability check run before each reload.
type ProbeConfig struct {
	Enabled         bool
	UserAgent       string
	Timeout         time.Duration
	MaxAttempts     int
	RetryBackoff    time.Duration
	RetryBackoffMax time.Duration
}

// ChatworkConfig holds the relay settings.
type ChatworkConfig struct {
	Enabled  bool
	APIKey   string
	RoomID   string
	Endpoint string
}

// DefaultConfig returns the pacing used by a careful operator.
func DefaultConfig() *Config {
	return &Config{
		MaxRetries:     3,
		InterItemDelay: 2 * time.Second,
		RetryDelay:     2 * time.Second,
		ReloadSettle:   time.Second,
		ElementTimeout: 10 * time.Second,
		PauseMin:       time.Second,
		PauseMax:       3 * time.Second,
		TypeDelayMin:   10 * time.Millisecond,
		TypeDelayMax:   50 * time.Millisecond,

		SellURL:    "https://auctions.yahoo.co.jp/sell/jp/show/submit?category=0",
		Headless:   false,
		ProfileDir: ".lister/profile",
		Encoding:   string(parser.UTF8),

		ReportFile:   "output/report.csv",
		ReportFormat: pipeline.FormatCSV,
		SettingsPath: ".lister/settings.db",

		Probe: ProbeConfig{
			Enabled:         true,
			UserAgent:       "Mozilla/5.0 (compatible; auction-lister/1.0)",
			Timeout:         10 * time.Second,
			MaxAttempts:     3,
			RetryBackoff:    500 * time.Millisecond,
			RetryBackoffMax: 5 * time.Second,
		},
		Chatwork: ChatworkConfig{
			Endpoint: "https://api.chatwork.com/v2",
		},
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.MaxRetries < 1 {
		return fmt.Errorf("max retries must be at least 1")
	}
	if c.InterItemDelay < 0 {
		return fmt.Errorf("inter-item delay cannot be negative")
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("retry delay cannot be negative")
	}
	if c.ReloadSettle < 0 {
		return fmt.Errorf("reload settle cannot be negative")
	}
	if c.ElementTimeout <= 0 {
		return fmt.Errorf("element timeout must be positive")
	}
	if c.PauseMin < 0 || c.PauseMax < c.PauseMin {
		return fmt.Errorf("pause bounds (%s, %s) are invalid", c.PauseMin, c.PauseMax)
	}
	if c.TypeDelayMin < 0 || c.TypeDelayMax < c.TypeDelayMin {
		return fmt.Errorf("typing delay bounds (%s, %s) are invalid", c.TypeDelayMin, c.TypeDelayMax)
	}

	if c.SellURL == "" {
		return fmt.Errorf("sell URL cannot be empty")
	}
	parsedURL, err := url.Parse(c.SellURL)
	if err != nil {
		return fmt.Errorf("invalid sell URL: %w", err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("sell URL must include a host")
	}

	if _, err := parser.ParseEncoding(c.Encoding); err != nil {
		return err
	}
	if c.ReportFile == "" {
		return fmt.Errorf("report file cannot be empty")
	}
	switch c.ReportFormat {
	case pipeline.FormatCSV, pipeline.FormatJSON, pipeline.FormatBoth:
	default:
		return fmt.Errorf("report format must be csv, json, or both")
	}
	if c.SettingsPath == "" {
		return fmt.Errorf("settings path cannot be empty")
	}

	if c.Probe.Enabled {
		if c.Probe.Timeout <= 0 {
			return fmt.Errorf("probe timeout must be positive")
		}
		if c.Probe.MaxAttempts < 1 {
			return fmt.Errorf("probe attempts must be at least 1")
		}
		if c.Probe.RetryBackoffMax > 0 && c.Probe.RetryBackoff > c.Probe.RetryBackoffMax {
			return fmt.Errorf("probe backoff (%s) cannot exceed probe backoff max (%s)", c.Probe.RetryBackoff, c.Probe.RetryBackoffMax)
		}
	}

	if c.Chatwork.Enabled && (c.Chatwork.APIKey == "" || c.Chatwork.RoomID == "") {
		return fmt.Errorf("chatwork notifications need an API key and a room ID")
	}

	return nil
}

// ValidateRun adds the checks that only matter when posting.
func (c *Config) ValidateRun() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.InputFile == "" {
		return fmt.Errorf("input file cannot be empty")
	}
	if c.ImageDir == "" {
		return fmt.Errorf("no image folder selected")
	}
	return nil
}
