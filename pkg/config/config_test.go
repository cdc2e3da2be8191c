package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_DSN", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddr != ":8081" || cfg.DBDSN != "rt06.db" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.JWTExpiration != 120*time.Minute || cfg.ResetTTL != 2*time.Hour {
		t.Fatalf("unexpected token ttl %v / %v", cfg.JWTExpiration, cfg.ResetTTL)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "http://localhost:4200" {
		t.Fatalf("unexpected cors origins %v", cfg.CORSOrigins)
	}
	if cfg.SMTPConfigured() {
		t.Fatal("smtp should not be configured by default")
	}
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("DB_DRIVER", "mysql")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

func TestLoadDotEnvKeepsExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "# comment\nRT06_TEST_A=from-file\nexport RT06_TEST_B=\"quoted\"\nbroken-line\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("RT06_TEST_A", "from-env")
	t.Setenv("RT06_TEST_B", "")
	os.Unsetenv("RT06_TEST_B")

	LoadDotEnv(path)
	if got := os.Getenv("RT06_TEST_A"); got != "from-env" {
		t.Fatalf("existing var overwritten: %q", got)
	}
	if got := os.Getenv("RT06_TEST_B"); got != "quoted" {
		t.Fatalf("expected quoted value stripped, got %q", got)
	}
}
