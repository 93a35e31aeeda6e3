package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/titanous/json5"

	"github.com/aluiziolira/go-auction-lister/settings"
)

// File is the on-disk shape of a config file. Durations are Go duration
// strings ("2s", "750ms"). Unset fields keep the current value.
type File struct {
	MaxRetries     int    `json:"maxRetries"`
	InterItemDelay string `json:"interItemDelay"`
	RetryDelay     string `json:"retryDelay"`
	ReloadSettle   string `json:"reloadSettle"`
	ElementTimeout string `json:"elementTimeout"`
	PauseMin       string `json:"pauseMin"`
	PauseMax       string `json:"pauseMax"`
	TypeDelayMin   string `json:"typeDelayMin"`
	TypeDelayMax   string `json:"typeDelayMax"`

	SellURL    string `json:"sellUrl"`
	Headless   *bool  `json:"headless"`
	ProfileDir string `json:"profileDir"`
	ImageDir   string `json:"imageDir"`
	InputFile  string `json:"input"`
	Encoding   string `json:"encoding"`

	ReportFile   string `json:"report"`
	ReportFormat string `json:"reportFormat"`
	MetricsAddr  string `json:"metricsAddr"`
	SettingsPath string `json:"settings"`

	Probe struct {
		Enabled         *bool  `json:"enabled"`
		UserAgent       string `json:"userAgent"`
		Timeout         string `json:"timeout"`
		MaxAttempts     int    `json:"maxAttempts"`
		RetryBackoff    string `json:"retryBackoff"`
		RetryBackoffMax string `json:"retryBackoffMax"`
	} `json:"probe"`

	Chatwork struct {
		Enabled  *bool  `json:"enabled"`
		APIKey   string `json:"apiKey"`
		RoomID   string `json:"roomId"`
		Endpoint string `json:"endpoint"`
	} `json:"chatwork"`
}

func splitExt(f string) (string, string) {
	for i := len(f) - 1; i >= 0; i-- {
		if f[i] == '.' {
			return f[0:i], f[i+1:]
		}
	}
	return f, ""
}

// ReadConfig reads name and merges <name>.local.<ext> over it when present.
// It returns os.ErrNotExist when neither file exists.
func ReadConfig[T any](name string) (T, error) {
	var out T
	allNotFound := true

	dirname := filepath.Dir(name)
	prefixname, ext := splitExt(filepath.Base(name))

	defaultFile, err := os.ReadFile(name)
	if err != nil && !os.IsNotExist(err) {
		return out, err
	}
	if len(defaultFile) > 0 {
		if err := json5.Unmarshal(defaultFile, &out); err != nil {
			return out, fmt.Errorf("parse %s: %w", name, err)
		}
		allNotFound = false
	}

	localFilepath := filepath.Join(dirname, fmt.Sprintf("%s.local.%s", prefixname, ext))
	localFile, err := os.ReadFile(localFilepath)
	if err != nil && !os.IsNotExist(err) {
		return out, err
	}
	if len(localFile) > 0 {
		var override T
		if err := json5.Unmarshal(localFile, &override); err != nil {
			return out, fmt.Errorf("parse %s: %w", localFilepath, err)
		}
		if err := mergo.Merge(&out, override, mergo.WithOverride, mergo.WithoutDereference); err != nil {
			return out, err
		}
		slog.Info("merging config with local overrides", slog.String("local", localFilepath))
		allNotFound = false
	}

	if allNotFound {
		return out, os.ErrNotExist
	}
	return out, nil
}

// LoadFile reads path (and its .local override) into c. A missing file is
// not an error.
func (c *Config) LoadFile(path string) error {
	f, err := ReadConfig[File](path)
	if os.IsNotExist(err) {
		slog.Debug("no config file", slog.String("path", path))
		return nil
	}
	if err != nil {
		return err
	}
	return c.ApplyFile(f)
}

// ApplyFile copies every set field of f into c.
func (c *Config) ApplyFile(f File) error {
	if f.MaxRetries != 0 {
		c.MaxRetries = f.MaxRetries
	}
	if f.Probe.MaxAttempts != 0 {
		c.Probe.MaxAttempts = f.Probe.MaxAttempts
	}

	durations := []struct {
		name  string
		value string
		dst   *time.Duration
	}{
		{"interItemDelay", f.InterItemDelay, &c.InterItemDelay},
		{"retryDelay", f.RetryDelay, &c.RetryDelay},
		{"reloadSettle", f.ReloadSettle, &c.ReloadSettle},
		{"elementTimeout", f.ElementTimeout, &c.ElementTimeout},
		{"pauseMin", f.PauseMin, &c.PauseMin},
		{"pauseMax", f.PauseMax, &c.PauseMax},
		{"typeDelayMin", f.TypeDelayMin, &c.TypeDelayMin},
		{"typeDelayMax", f.TypeDelayMax, &c.TypeDelayMax},
		{"probe.timeout", f.Probe.Timeout, &c.Probe.Timeout},
		{"probe.retryBackoff", f.Probe.RetryBackoff, &c.Probe.RetryBackoff},
		{"probe.retryBackoffMax", f.Probe.RetryBackoffMax, &c.Probe.RetryBackoffMax},
	}
	for _, d := range durations {
		value := strings.TrimSpace(d.value)
		if value == "" {
			continue
		}
		parsed, err := parseDuration(value)
		if err != nil {
			return fmt.Errorf("config %s: %w", d.name, err)
		}
		*d.dst = parsed
	}

	bools := []struct {
		value *bool
		dst   *bool
	}{
		{f.Headless, &c.Headless},
		{f.Probe.Enabled, &c.Probe.Enabled},
		{f.Chatwork.Enabled, &c.Chatwork.Enabled},
	}
	for _, b := range bools {
		if b.value != nil {
			*b.dst = *b.value
		}
	}

	strs := []struct {
		value string
		dst   *string
	}{
		{f.SellURL, &c.SellURL},
		{f.ProfileDir, &c.ProfileDir},
		{f.ImageDir, &c.ImageDir},
		{f.InputFile, &c.InputFile},
		{f.Encoding, &c.Encoding},
		{f.ReportFile, &c.ReportFile},
		{f.ReportFormat, &c.ReportFormat},
		{f.MetricsAddr, &c.MetricsAddr},
		{f.SettingsPath, &c.SettingsPath},
		{f.Probe.UserAgent, &c.Probe.UserAgent},
		{f.Chatwork.APIKey, &c.Chatwork.APIKey},
		{f.Chatwork.RoomID, &c.Chatwork.RoomID},
		{f.Chatwork.Endpoint, &c.Chatwork.Endpoint},
	}
	for _, s := range strs {
		if s.value != "" {
			*s.dst = s.value
		}
	}

	return nil
}

// ApplyPreferences copies the preferences that were actually stored.
func (c *Config) ApplyPreferences(p settings.Preferences) {
	if p.Has(settings.KeyMaxRetries) {
		c.MaxRetries = p.MaxRetries
	}
	if p.Has(settings.KeyChatworkEnabled) {
		c.Chatwork.Enabled = p.ChatworkEnabled
	}
	if p.Has(settings.KeyChatworkAPIKey) {
		c.Chatwork.APIKey = p.ChatworkAPIKey
	}
	if p.Has(settings.KeyChatworkRoomID) {
		c.Chatwork.RoomID = p.ChatworkRoomID
	}
}
