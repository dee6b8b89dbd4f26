package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadFromMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("expected default log level info, got %q", cfg.LogLevel)
	}
	if cfg.Tmux.Command != "tmux" {
		t.Fatalf("expected default tmux command, got %q", cfg.Tmux.Command)
	}
}

func TestLoadFromParsesOverrides(t *testing.T) {
	path := writeConfig(t, `
log_level: debug
log_file: /tmp/termlay.log
tmux:
  command: /usr/local/bin/tmux
`)
	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("expected log level debug, got %q", cfg.LogLevel)
	}
	if cfg.LogFile != "/tmp/termlay.log" {
		t.Fatalf("expected log file override, got %q", cfg.LogFile)
	}
	if cfg.Tmux.Command != "/usr/local/bin/tmux" {
		t.Fatalf("expected tmux command override, got %q", cfg.Tmux.Command)
	}
}

func TestLoadFromPartialConfigKeepsDefaults(t *testing.T) {
	path := writeConfig(t, "log_level: warn\n")
	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.LogLevel != "warn" {
		t.Fatalf("expected log level warn, got %q", cfg.LogLevel)
	}
	if cfg.Tmux.Command != "tmux" {
		t.Fatalf("expected default tmux command, got %q", cfg.Tmux.Command)
	}
}

func TestLoadFromRejectsBadYAML(t *testing.T) {
	path := writeConfig(t, "log_level: [unterminated\n")
	if _, err := LoadFrom(path); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestLoadFromRejectsUnknownLogLevel(t *testing.T) {
	path := writeConfig(t, "log_level: loud\n")
	if _, err := LoadFrom(path); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestSlogLevel(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		cfg := &Config{LogLevel: tt.level}
		if got := cfg.SlogLevel(); got != tt.want {
			t.Fatalf("SlogLevel(%q) = %v, want %v", tt.level, got, tt.want)
		}
	}
}
