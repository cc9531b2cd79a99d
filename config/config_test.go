package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "feedwise.toml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFileAndDefaults(t *testing.T) {
	path := writeConfig(t, `
[server]
address = ":9090"

[database]
dsn = "postgres://feedwise@localhost/feedwise?sslmode=disable"

[cache]
ttl_seconds = 30
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Address != ":9090" {
		t.Fatalf("address = %q", cfg.Server.Address)
	}
	if cfg.Cache.TTL() != 30*time.Second {
		t.Fatalf("ttl = %v", cfg.Cache.TTL())
	}
	// Values absent from the file keep their defaults.
	if cfg.Cache.Addr != "127.0.0.1:6379" {
		t.Fatalf("cache addr = %q", cfg.Cache.Addr)
	}
	if cfg.Database.MaxOpenConns != 10 {
		t.Fatalf("max open conns = %d", cfg.Database.MaxOpenConns)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
[database]
dsn = "postgres://from-file/db"
`)

	t.Setenv("FEEDWISE_DB_DSN", "postgres://from-env/db")
	t.Setenv("FEEDWISE_ADDR", ":7070")
	t.Setenv("FEEDWISE_CACHE_TTL_SECONDS", "120")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Database.DSN != "postgres://from-env/db" {
		t.Fatalf("dsn = %q", cfg.Database.DSN)
	}
	if cfg.Server.Address != ":7070" {
		t.Fatalf("address = %q", cfg.Server.Address)
	}
	if cfg.Cache.TTLSeconds != 120 {
		t.Fatalf("ttl seconds = %d", cfg.Cache.TTLSeconds)
	}
}

func TestMissingDSNRejected(t *testing.T) {
	t.Setenv("FEEDWISE_DB_DSN", "")
	if _, err := Load(""); err == nil {
		t.Fatal("Load() without DSN should fail")
	}
}

func TestMalformedFileRejected(t *testing.T) {
	path := writeConfig(t, `not = [valid`)
	if _, err := Load(path); err == nil {
		t.Fatal("Load() with malformed TOML should fail")
	}
}
