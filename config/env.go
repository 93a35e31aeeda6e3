package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads variables from the given files (default ".env") without
// overriding what is already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				slog.Debug("no env file", slog.String("path", p))
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
		slog.Debug("loaded env file", slog.String("path", p))
	}
	return nil
}

// EnvString returns the trimmed value of key when it is set and non-empty.
func EnvString(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}
	return value, true
}

// EnvInt parses key as an integer.
func EnvInt(key string) (int, bool, error) {
	value, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", key, err)
	}
	return n, true, nil
}

// EnvBool parses key with strconv.ParseBool.
func EnvBool(key string) (bool, bool, error) {
	value, ok := EnvString(key)
	if !ok {
		return false, false, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, false, fmt.Errorf("%s: %w", key, err)
	}
	return b, true, nil
}

// EnvDuration parses key as a Go duration. A bare integer is read as
// milliseconds.
func EnvDuration(key string) (time.Duration, bool, error) {
	value, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	d, err := parseDuration(value)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", key, err)
	}
	return d, true, nil
}

func parseDuration(value string) (time.Duration, error) {
	if ms, err := strconv.Atoi(value); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	return time.ParseDuration(value)
}

// ApplyEnv overrides c with LISTER_* and CHATWORK_* variables.
func (c *Config) ApplyEnv() error {
	ints := []struct {
		key string
		dst *int
	}{
		{"LISTER_MAX_RETRIES", &c.MaxRetries},
		{"LISTER_PROBE_ATTEMPTS", &c.Probe.MaxAttempts},
	}
	for _, e := range ints {
		v, ok, err := EnvInt(e.key)
		if err != nil {
			return err
		}
		if ok {
			*e.dst = v
		}
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"LISTER_INTER_ITEM_DELAY", &c.InterItemDelay},
		{"LISTER_RETRY_DELAY", &c.RetryDelay},
		{"LISTER_RELOAD_SETTLE", &c.ReloadSettle},
		{"LISTER_ELEMENT_TIMEOUT", &c.ElementTimeout},
		{"LISTER_PAUSE_MIN", &c.PauseMin},
		{"LISTER_PAUSE_MAX", &c.PauseMax},
		{"LISTER_TYPE_DELAY_MIN", &c.TypeDelayMin},
		{"LISTER_TYPE_DELAY_MAX", &c.TypeDelayMax},
		{"LISTER_PROBE_TIMEOUT", &c.Probe.Timeout},
	}
	for _, e := range durations {
		v, ok, err := EnvDuration(e.key)
		if err != nil {
			return err
		}
		if ok {
			*e.dst = v
		}
	}

	bools := []struct {
		key string
		dst *bool
	}{
		{"LISTER_HEADLESS", &c.Headless},
		{"LISTER_PROBE", &c.Probe.Enabled},
		{"LISTER_VERBOSE", &c.Verbose},
		{"CHATWORK_ENABLED", &c.Chatwork.Enabled},
	}
	for _, e := range bools {
		v, ok, err := EnvBool(e.key)
		if err != nil {
			return err
		}
		if ok {
			*e.dst = v
		}
	}

	strs := []struct {
		key string
		dst *string
	}{
		{"LISTER_SELL_URL", &c.SellURL},
		{"LISTER_PROFILE_DIR", &c.ProfileDir},
		{"LISTER_IMAGE_DIR", &c.ImageDir},
		{"LISTER_INPUT", &c.InputFile},
		{"LISTER_ENCODING", &c.Encoding},
		{"LISTER_REPORT", &c.ReportFile},
		{"LISTER_REPORT_FORMAT", &c.ReportFormat},
		{"LISTER_METRICS_ADDR", &c.MetricsAddr},
		{"LISTER_SETTINGS", &c.SettingsPath},
		{"CHATWORK_API_KEY", &c.Chatwork.APIKey},
		{"CHATWORK_ROOM_ID", &c.Chatwork.RoomID},
		{"CHATWORK_ENDPOINT", &c.Chatwork.Endpoint},
	}
	for _, e := range strs {
		if v, ok := EnvString(e.key); ok {
			*e.dst = v
		}
	}

	return nil
}
