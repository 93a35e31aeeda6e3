package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/aluiziolira/go-auction-lister/config"
	"github.com/aluiziolira/go-auction-lister/settings"
)

var (
	configPath string
	envPath    string
	verbose    bool
	logLevel   = &slog.LevelVar{}
)

var rootCmd = &cobra.Command{
	Use:           "auction-lister",
	Short:         "auction-lister posts auction listings from a spreadsheet export, one at a time.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		slog.SetDefault(newLogger(os.Stdout, logLevel))
		if verbose {
			logLevel.Set(slog.LevelDebug)
		}
		return config.LoadDotEnv(envPath)
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "lister.json5", "Config file; <name>.local.<ext> is merged over it")
	flags.StringVar(&envPath, "env", ".env", "Environment file loaded before reading LISTER_* variables")
	flags.String("settings", "", "Preferences database path")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
}

func execute(ctx context.Context) int {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

// loadConfig layers defaults, the config file, stored preferences, the
// environment and explicitly set flags, in that order.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if err := cfg.LoadFile(configPath); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	path := settingsPath(cmd, cfg)
	store, err := settings.Open(cmd.Context(), path)
	if err != nil {
		return nil, err
	}
	prefs, err := store.Load(cmd.Context())
	store.Close()
	if err != nil {
		return nil, err
	}
	cfg.ApplyPreferences(prefs)

	if err := cfg.ApplyEnv(); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	if err := applyFlags(cmd, cfg); err != nil {
		return nil, err
	}
	cfg.SettingsPath = path
	if cfg.Verbose {
		logLevel.Set(slog.LevelDebug)
	}
	return cfg, nil
}

func settingsPath(cmd *cobra.Command, cfg *config.Config) string {
	path := cfg.SettingsPath
	if value, ok := config.EnvString("LISTER_SETTINGS"); ok {
		path = value
	}
	if cmd.Flags().Changed("settings") {
		path, _ = cmd.Flags().GetString("settings")
	}
	return path
}

// applyFlags copies the flags the user actually set. Flags a command does
// not define are skipped.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()

	strs := []struct {
		name string
		dst  *string
	}{
		{"input", &cfg.InputFile},
		{"images", &cfg.ImageDir},
		{"encoding", &cfg.Encoding},
		{"sell-url", &cfg.SellURL},
		{"profile", &cfg.ProfileDir},
		{"report", &cfg.ReportFile},
		{"format", &cfg.ReportFormat},
		{"metrics-addr", &cfg.MetricsAddr},
	}
	for _, s := range strs {
		if !flags.Changed(s.name) {
			continue
		}
		v, err := flags.GetString(s.name)
		if err != nil {
			return err
		}
		*s.dst = v
	}

	if flags.Changed("max-retries") {
		v, err := flags.GetInt("max-retries")
		if err != nil {
			return err
		}
		cfg.MaxRetries = v
	}

	durations := []struct {
		name string
		dst  *time.Duration
	}{
		{"inter-item-delay", &cfg.InterItemDelay},
		{"retry-delay", &cfg.RetryDelay},
		{"element-timeout", &cfg.ElementTimeout},
	}
	for _, d := range durations {
		if !flags.Changed(d.name) {
			continue
		}
		v, err := flags.GetDuration(d.name)
		if err != nil {
			return err
		}
		*d.dst = v
	}

	bools := []struct {
		name string
		dst  *bool
	}{
		{"headless", &cfg.Headless},
		{"notify", &cfg.Chatwork.Enabled},
		{"probe", &cfg.Probe.Enabled},
		{"verbose", &cfg.Verbose},
	}
	for _, b := range bools {
		if !flags.Changed(b.name) {
			continue
		}
		v, err := flags.GetBool(b.name)
		if err != nil {
			return err
		}
		*b.dst = v
	}

	return nil
}
