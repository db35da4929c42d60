package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sampleYAML = `
http:
  listen_addr: ":8080"
database:
  dsn: "role@tcp(127.0.0.1:3306)/role"
  password: "vault:secret/role/db#password"
lookup:
  cep_base_url: "https://viacep.com.br/ws"
`

func writeConf(t *testing.T, body string) string {
	t.Helper()
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "conf"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "conf", "global.yaml"), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return root
}

func TestLoad_DefaultsAndEnvOverlay(t *testing.T) {
	root := writeConf(t, sampleYAML)
	t.Setenv("ROLE_ROOT", root)
	t.Setenv("ROLE_AUTOSAVE__DEBOUNCE", "20s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Paths.Root != root {
		t.Fatalf("root = %q, want %q", cfg.Paths.Root, root)
	}
	if cfg.Autosave.Debounce != 20*time.Second {
		t.Fatalf("debounce = %v, want 20s", cfg.Autosave.Debounce)
	}
	if cfg.Autosave.MinNameLength != 2 || cfg.Scheduler.Interval != time.Minute {
		t.Fatalf("defaults not applied: %+v %+v", cfg.Autosave, cfg.Scheduler)
	}
	if cfg.HTTP.CORSOrigin != "*" {
		t.Fatalf("cors origin = %q", cfg.HTTP.CORSOrigin)
	}
	if Get() != cfg {
		t.Fatalf("Get() did not return the cached config")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	root := writeConf(t, "http:\n  listen_addr: \":8080\"\n")
	t.Setenv("ROLE_ROOT", root)

	if _, err := Load(); err == nil {
		t.Fatalf("expected validation error for missing database.dsn")
	}
}

type fakeVault map[string]string

func (f fakeVault) GetKV(_ context.Context, path, key string, _ time.Duration) (string, error) {
	v, ok := f[path+"#"+key]
	if !ok {
		return "", errors.New("not found")
	}
	return v, nil
}

func TestResolveSecrets(t *testing.T) {
	cfg := &Config{Database: Database{
		DSN:      "role@tcp(db:3306)/role",
		Password: "vault:secret/role/db#password",
	}}
	if !cfg.NeedsSecrets() {
		t.Fatalf("NeedsSecrets = false, want true")
	}
	if err := cfg.ResolveSecrets(context.Background(), fakeVault{"secret/role/db#password": "s3cr3t"}); err != nil {
		t.Fatalf("ResolveSecrets: %v", err)
	}
	if cfg.Database.Password != "s3cr3t" {
		t.Fatalf("password = %q", cfg.Database.Password)
	}
	if cfg.NeedsSecrets() {
		t.Fatalf("NeedsSecrets still true after resolve")
	}
}

func TestResolveSecrets_MissingKey(t *testing.T) {
	cfg := &Config{NATS: NATS{URL: "vault:secret/role/nats"}}
	if err := cfg.ResolveSecrets(context.Background(), fakeVault{}); err == nil {
		t.Fatalf("expected error for reference without #key")
	}
}
