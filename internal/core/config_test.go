package core

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadConfigDefaultsWhenMissing(t *testing.T) {
	t.Setenv(envHome, t.TempDir())
	t.Setenv(envAPIURL, "")
	t.Setenv(envSound, "")
	chdir(t, t.TempDir())

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.APIURL != DefaultAPIURL {
		t.Fatalf("expected default api url, got %q", cfg.APIURL)
	}
	if cfg.MessagePoll.Std() != 3*time.Second || cfg.GroupPoll.Std() != 5*time.Second {
		t.Fatalf("unexpected poll intervals: %v %v", cfg.MessagePoll.Std(), cfg.GroupPoll.Std())
	}
	if !cfg.Sound {
		t.Fatal("expected sound enabled by default")
	}
	if cfg.Path != "" {
		t.Fatalf("expected no config path, got %q", cfg.Path)
	}
}

func TestLoadConfigFileAndEnvPrecedence(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(envHome, dir)
	chdir(t, t.TempDir())
	path := filepath.Join(dir, "config.yaml")
	content := strings.Join([]string{
		"api_url: https://chat.example.com",
		"message_poll: 1.5",
		"group_poll: 10s",
		"sound: false",
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(envAPIURL, "https://override.example.com")
	t.Setenv(envSound, "")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.APIURL != "https://override.example.com" {
		t.Fatalf("expected env override, got %q", cfg.APIURL)
	}
	if cfg.MessagePoll.Std() != 1500*time.Millisecond {
		t.Fatalf("expected numeric seconds, got %v", cfg.MessagePoll.Std())
	}
	if cfg.GroupPoll.Std() != 10*time.Second {
		t.Fatalf("expected 10s, got %v", cfg.GroupPoll.Std())
	}
	if cfg.Sound {
		t.Fatal("expected sound disabled from file")
	}
	if cfg.Path != path {
		t.Fatalf("expected path %q, got %q", path, cfg.Path)
	}
}

func TestLoadConfigRejectsBadDuration(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(envHome, dir)
	chdir(t, t.TempDir())
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("message_poll: soon\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected error for invalid duration")
	}
}

func TestWriteConfigRoundTrip(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(envHome, dir)
	t.Setenv(envAPIURL, "")
	t.Setenv(envSound, "")
	chdir(t, t.TempDir())
	path := filepath.Join(dir, "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.APIURL = "https://chat.example.com"
	cfg.GroupPoll = Duration(7 * time.Second)
	if err := WriteConfig(path, cfg); err != nil {
		t.Fatalf("write config: %v", err)
	}
	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if loaded.APIURL != cfg.APIURL || loaded.GroupPoll != cfg.GroupPoll {
		t.Fatalf("round trip mismatch: %+v", loaded)
	}
}

func TestParseLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, "warn")
	logger.Info().Msg("hidden")
	logger.Warn().Str("component", "poll").Msg("shown")
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info should be filtered at warn level: %s", out)
	}
	if !strings.Contains(out, `"component":"poll"`) {
		t.Fatalf("expected structured field, got %s", out)
	}
}

func TestAvatar(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"alice", "Ⓐ"},
		{"Zed", "Ⓩ"},
		{"3po", "③"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Avatar(tt.name); got != tt.want {
				t.Fatalf("Avatar(%q) = %q, want %q", tt.name, got, tt.want)
			}
		})
	}
	if Avatar("_x") != Avatar("_x") {
		t.Fatal("generic avatar should be stable")
	}
	if Initial("bob") != "B" || Initial("") != "?" {
		t.Fatal("unexpected initials")
	}
}

// chdir changes the working directory for the duration of the test.
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(wd); err != nil {
			t.Errorf("restore working directory: %v", err)
		}
	})
}
