package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)

	cfg, err := Load(nil)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != "8080" || cfg.StorageType != "memory" {
		t.Errorf("unexpected defaults: port %q storage %q", cfg.Port, cfg.StorageType)
	}
	if cfg.PersistDebounce != 500*time.Millisecond {
		t.Errorf("expected 500ms debounce, got %v", cfg.PersistDebounce)
	}
	if cfg.StorageMaxValueBytes != 5<<20 {
		t.Errorf("expected 5 MiB value limit, got %d", cfg.StorageMaxValueBytes)
	}
	if cfg.GapAnalysisWindow != 5 {
		t.Errorf("expected gap analysis window 5, got %d", cfg.GapAnalysisWindow)
	}
}

func TestLoadRequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := Load(nil)
	if err == nil || !strings.Contains(err.Error(), "JWTSecret") {
		t.Fatalf("expected JWTSecret validation error, got %v", err)
	}
}

func TestLoadLayering(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "studyhub.yaml")
	yaml := "port: \"9000\"\nstorage_type: sqlite\ngap_analysis_window: 7\npersist_debounce: 2s\n"
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("PORT", "9100")
	t.Setenv("GEMINI_CONCURRENT_REQUESTS", "3")

	cfg, err := Load([]string{"--config", path, "--port", "9200"})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		got  interface{}
		want interface{}
	}{
		{"flag beats env", cfg.Port, "9200"},
		{"file beats default", cfg.StorageType, "sqlite"},
		{"file int", cfg.GapAnalysisWindow, 7},
		{"file duration", cfg.PersistDebounce, 2 * time.Second},
		{"env int", cfg.GeminiConcurrentReqs, 3},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.got != tc.want {
				t.Errorf("Expected %v, got %v", tc.want, tc.got)
			}
		})
	}
}

func TestLoadRejectsInvalidStorage(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("STORAGE_TYPE", "postgres")
	t.Setenv("DATABASE_URL", "")

	if _, err := Load(nil); err == nil {
		t.Fatal("expected postgres without DATABASE_URL to fail validation")
	}

	t.Setenv("STORAGE_TYPE", "mongo")
	if _, err := Load(nil); err == nil {
		t.Fatal("expected unknown storage type to fail validation")
	}
}
