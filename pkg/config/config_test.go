package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CATALOG_API_URL", "")
	os.Unsetenv("CATALOG_API_URL")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.APIURL != "https://api.escuelajs.co/api/v1" {
		t.Fatalf("unexpected api url %q", cfg.APIURL)
	}
	if cfg.PageSize != 10 || cfg.RequestTimeout != 15*time.Second || cfg.Port != "8080" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.NATSURL != "" {
		t.Fatalf("events should be disabled by default, got %q", cfg.NATSURL)
	}
}

func TestLoadFromEnvFile(t *testing.T) {
	t.Setenv("CATALOG_PAGE_SIZE", "")
	os.Unsetenv("CATALOG_PAGE_SIZE")
	t.Setenv("CATALOG_API_URL", "")
	os.Unsetenv("CATALOG_API_URL")

	path := filepath.Join(t.TempDir(), ".env")
	content := "CATALOG_API_URL=http://localhost:3000/api\nCATALOG_PAGE_SIZE=25\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		os.Unsetenv("CATALOG_API_URL")
		os.Unsetenv("CATALOG_PAGE_SIZE")
	})

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.APIURL != "http://localhost:3000/api" || cfg.PageSize != 25 {
		t.Fatalf("env file not applied: %+v", cfg)
	}
}

func TestLoadRejectsBadPageSize(t *testing.T) {
	t.Setenv("CATALOG_PAGE_SIZE", "0")
	if _, err := Load(filepath.Join(t.TempDir(), "missing.env")); err == nil || !strings.Contains(err.Error(), "PAGE_SIZE") {
		t.Fatalf("expected page size error, got %v", err)
	}
}

func TestLoadRejectsMalformedDuration(t *testing.T) {
	t.Setenv("CATALOG_REQUEST_TIMEOUT", "soon")
	if _, err := Load(filepath.Join(t.TempDir(), "missing.env")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug, "WARN": slog.LevelWarn, "error": slog.LevelError, "": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := (Config{LogLevel: in}).Level(); got != want {
			t.Errorf("%q: expected %v, got %v", in, want, got)
		}
	}
}

func TestLoggerFormat(t *testing.T) {
	var buf strings.Builder
	Config{LogFormat: "text"}.Logger(&buf).Info("hello", "k", "v")
	if !strings.Contains(buf.String(), "k=v") {
		t.Fatalf("expected text output, got %s", buf.String())
	}
	buf.Reset()
	Config{LogFormat: "json"}.Logger(&buf).Info("hello", "k", "v")
	if !strings.Contains(buf.String(), `"k":"v"`) {
		t.Fatalf("expected json output, got %s", buf.String())
	}
}
