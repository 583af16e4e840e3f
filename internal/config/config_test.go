package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// isolate keeps tests from picking up a real portaria.yaml or PORTARIA_*
// variables from the developer's shell.
func isolate(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir())
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(key, envPrefix) {
			t.Setenv(key, "")
			os.Unsetenv(key)
		}
	}
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "portaria.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.HTTPAddr != ":8080" || cfg.Server.Env != "dev" || !cfg.IsDev() {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Database.Path != "./data/portaria.db" {
		t.Errorf("DB path = %q", cfg.Database.Path)
	}
	if cfg.Timezone.Name != "America/Sao_Paulo" {
		t.Errorf("timezone = %q", cfg.Timezone.Name)
	}
	if cfg.Export.LookaheadDays != 1 {
		t.Errorf("lookahead = %d", cfg.Export.LookaheadDays)
	}
	if cfg.Encoder.Timeout != 15*time.Second || cfg.Encoder.URL != "" {
		t.Errorf("unexpected encoder config: %+v", cfg.Encoder)
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	isolate(t)
	path := writeFile(t, `
server:
  http_addr: ":9090"
  cors_origins: ["http://a.example", "http://b.example"]
timezone:
  name: America/New_York
ingest:
  rate_limit_window: 30s
`)
	t.Setenv("PORTARIA_HTTP_ADDR", ":7070")
	t.Setenv("PORTARIA_ENCODER_URL", "http://encoder:5000/encode")
	t.Setenv("PORTARIA_EXPORT_LOOKAHEAD_DAYS", "2")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.HTTPAddr != ":7070" {
		t.Errorf("env should win over file, got %q", cfg.Server.HTTPAddr)
	}
	if cfg.Timezone.Name != "America/New_York" {
		t.Errorf("file value lost: %q", cfg.Timezone.Name)
	}
	if len(cfg.Server.CORSOrigins) != 2 {
		t.Errorf("cors origins = %v", cfg.Server.CORSOrigins)
	}
	if cfg.Ingest.RateLimitWindow != 30*time.Second {
		t.Errorf("rate window = %v", cfg.Ingest.RateLimitWindow)
	}
	if cfg.Encoder.URL != "http://encoder:5000/encode" || cfg.Export.LookaheadDays != 2 {
		t.Errorf("env overrides lost: %+v %+v", cfg.Encoder, cfg.Export)
	}
}

func TestLoad_PathFromEnv(t *testing.T) {
	isolate(t)
	t.Setenv(PathEnvVar, writeFile(t, "database:\n  path: /tmp/other.db\n"))

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Path != "/tmp/other.db" {
		t.Errorf("DB path = %q", cfg.Database.Path)
	}
}

func TestLoad_CORSFromEnv(t *testing.T) {
	isolate(t)
	t.Setenv("PORTARIA_CORS_ORIGINS", " http://a.example , ,http://b.example")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := []string{"http://a.example", "http://b.example"}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[0] != want[0] || cfg.Server.CORSOrigins[1] != want[1] {
		t.Errorf("cors origins = %v, want %v", cfg.Server.CORSOrigins, want)
	}
}

func TestLoad_UnknownEnvFallsBackToDev(t *testing.T) {
	isolate(t)
	t.Setenv("PORTARIA_ENV", "staging")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Env != "dev" {
		t.Errorf("env = %q", cfg.Server.Env)
	}

	t.Setenv("PORTARIA_ENV", "PROD")
	cfg, err = Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.IsDev() {
		t.Error("PROD should select prod")
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"negative lookahead", "PORTARIA_EXPORT_LOOKAHEAD_DAYS", "-1"},
		{"bad log format", "PORTARIA_LOG_FORMAT", "xml"},
		{"bad encoder url", "PORTARIA_ENCODER_URL", "not a url"},
		{"zero threshold", "PORTARIA_ENCODER_FAILURE_THRESHOLD", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			t.Setenv(tt.key, tt.val)
			if _, err := Load(""); err == nil {
				t.Errorf("expected an error for %s=%q", tt.key, tt.val)
			}
		})
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	isolate(t)
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected an error for a missing config file")
	}
}

func TestEnvKey(t *testing.T) {
	if got := envKey("PORTARIA_DB_PATH"); got != "database.path" {
		t.Errorf("envKey = %q", got)
	}
	if got := envKey("PORTARIA_CONFIG"); got != "" {
		t.Errorf("PORTARIA_CONFIG should not map to a key, got %q", got)
	}
}
