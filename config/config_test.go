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
			name: "zero max retries",
			mutate: func(cfg *Config) {
				cfg.MaxRetries = 0
			},
			wantErr: "max retries",
		},
		{
			name: "negative retry delay",
			mutate: func(cfg *Config) {
				cfg.RetryDelay = -time.Second
			},
			wantErr: "retry delay",
		},
		{
			name: "zero element timeout",
			mutate: func(cfg *Config) {
				cfg.ElementTimeout = 0
			},
			wantErr: "element timeout",
		},
		{
			name: "inverted pause bounds",
			mutate: func(cfg *Config) {
				cfg.PauseMin = 5 * time.Second
				cfg.PauseMax = time.Second
			},
			wantErr: "pause bounds",
		},
		{
			name: "empty sell url",
			mutate: func(cfg *Config) {
				cfg.SellURL = ""
			},
			wantErr: "sell URL",
		},
		{
			name: "sell url without host",
			mutate: func(cfg *Config) {
				cfg.SellURL = "http://"
			},
			wantErr: "sell URL",
		},
		{
			name: "unknown encoding",
			mutate: func(cfg *Config) {
				cfg.Encoding = "latin1"
			},
			wantErr: "encoding",
		},
		{
			name: "unknown report format",
			mutate: func(cfg *Config) {
				cfg.ReportFormat = "xml"
			},
			wantErr: "report format",
		},
		{
			name: "probe backoff above max",
			mutate: func(cfg *Config) {
				cfg.Probe.RetryBackoff = 10 * time.Second
			},
			wantErr: "probe backoff",
		},
		{
			name: "chatwork without room",
			mutate: func(cfg *Config) {
				cfg.Chatwork.Enabled = true
				cfg.Chatwork.APIKey = "token"
			},
			wantErr: "chatwork",
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

func TestValidateRunNeedsInputAndImages(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.ValidateRun(); err == nil || !strings.Contains(err.Error(), "input") {
		t.Fatalf("expected input error, got %v", err)
	}
	cfg.InputFile = "items.csv"
	if err := cfg.ValidateRun(); err == nil || !strings.Contains(err.Error(), "image folder") {
		t.Fatalf("expected image folder error, got %v", err)
	}
	cfg.ImageDir = "img"
	if err := cfg.ValidateRun(); err != nil {
		t.Fatalf("ValidateRun: %v", err)
	}
}
