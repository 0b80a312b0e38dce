package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"SERVER_ADDR", "UPLOAD_DIR", "OCR_LANGUAGE", "OPENAI_MODEL"} {
		t.Setenv(key, "")
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("expected defaults, got error: %v", err)
	}
	if cfg.Server.Addr != ":5000" {
		t.Fatalf("unexpected addr: %s", cfg.Server.Addr)
	}
	if cfg.Storage.Dir != "/tmp/uploads" {
		t.Fatalf("unexpected storage dir: %s", cfg.Storage.Dir)
	}
	if cfg.Recognition.Language != "eng" {
		t.Fatalf("unexpected language: %s", cfg.Recognition.Language)
	}
	if cfg.Analysis.Model != "gpt-4o" {
		t.Fatalf("unexpected model: %s", cfg.Analysis.Model)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`
server:
  addr: ":8081"
  maxUploadBytes: 2048
recognition:
  language: deu
  timeout: 30s
analysis:
  endpoint: https://models.example.test
  model: gpt-4o-mini
redis:
  addr: redis:6379
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	t.Setenv("OPENAI_API_KEY", "secret")
	t.Setenv("OCR_LANGUAGE", "eng+deu")
	t.Setenv("ANALYSIS_TIMEOUT", "5s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.test, https://b.test")
	t.Setenv("OCR_GRAYSCALE", "true")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if cfg.Server.Addr != ":8081" || cfg.Server.MaxUploadBytes != 2048 {
		t.Fatalf("file values not applied: %+v", cfg.Server)
	}
	if cfg.Recognition.Language != "eng+deu" {
		t.Fatalf("env override not applied: %s", cfg.Recognition.Language)
	}
	if cfg.Recognition.Timeout != 30*time.Second {
		t.Fatalf("unexpected recognition timeout: %v", cfg.Recognition.Timeout)
	}
	if !cfg.Recognition.Grayscale {
		t.Fatal("expected grayscale to be enabled")
	}
	if cfg.Analysis.Token != "secret" || cfg.Analysis.Endpoint != "https://models.example.test" {
		t.Fatalf("unexpected analysis config: %+v", cfg.Analysis)
	}
	if cfg.Analysis.Timeout != 5*time.Second {
		t.Fatalf("unexpected analysis timeout: %v", cfg.Analysis.Timeout)
	}
	if !reflect.DeepEqual(cfg.Server.AllowedOrigins, []string{"https://a.test", "https://b.test"}) {
		t.Fatalf("unexpected origins: %v", cfg.Server.AllowedOrigins)
	}
	if cfg.Redis.Addr != "redis:6379" || cfg.Redis.StatusTTL != 10*time.Minute {
		t.Fatalf("unexpected redis config: %+v", cfg.Redis)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestLoadRejectsBadEnvValues(t *testing.T) {
	t.Setenv("OCR_TIMEOUT", "soon")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for invalid duration")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidateRequiresToken(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected missing token to be rejected")
	}
	cfg.Analysis.Token = "secret"
	cfg.Server.MaxUploadBytes = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected non-positive upload limit to be rejected")
	}
}
