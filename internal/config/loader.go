// internal/config/loader.go
//
// Configuration loader and hot-reloader.
//
/*
Context
--------
`Load()` builds one immutable `Config` struct from three layers (highest
precedence last):

  1. Optional `.env` file at `<root>/conf/.env`.
  2. `conf/global.yaml`.
  3. Environment variables prefixed `ROLE_`, where `__` maps to “.”
     (e.g., `ROLE_HTTP__LISTEN_ADDR → http.listen_addr`).

After merging, the tree is unmarshalled into strongly-typed structs,
filled with defaults, validated, enriched with the runtime root path, and
cached in an `atomic.Pointer` for lock-free reads.  `Reload()` simply calls
`Load()` again and swaps the pointer.

Secrets
-------
Values of the form `vault:<mount>/<path>#<key>` are left untouched by
`Load()`.  `ResolveSecrets()` swaps them for the plain value once a Vault
client is available, so config loading itself never touches the network.

Notes
-----
  • `rootDir()` climbs the cwd tree until it finds `conf/global.yaml`; this
    lets `go run ./cmd/web` work from any sub-directory.
  • Oxford commas, two spaces after periods.
*/
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	koanf "github.com/knadh/koanf/v2"
	"go.uber.org/zap"
)

const (
	envPrefix   = "ROLE_"
	vaultPrefix = "vault:"
)

var current atomic.Pointer[Config]

/*──────────────────────────── root discovery ───────────────────────────────*/

// rootDir resolves ROLE_ROOT or climbs directories until conf/global.yaml
// is found.  Falls back to executable heuristic for production layout.
func rootDir() string {
	if r := os.Getenv("ROLE_ROOT"); r != "" {
		return r
	}

	wd, _ := os.Getwd()
	dir := wd
	for {
		if _, err := os.Stat(filepath.Join(dir, "conf", "global.yaml")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir { // reached filesystem root
			break
		}
		dir = parent
	}

	exe, _ := os.Executable()
	if filepath.Base(filepath.Dir(exe)) == "bin" {
		return filepath.Dir(filepath.Dir(exe))
	}
	return wd
}

/*─────────────────────────────── loader ───────────────────────────────────*/

// Load reads .env, YAML, env overrides, validates, and caches Config.
func Load() (*Config, error) {
	root := rootDir()
	zap.S().Debugw("config root resolved", "root", root)

	// .env (optional, no error if missing)
	_ = godotenv.Load(filepath.Join(root, "conf", ".env"))

	k := koanf.New(".")

	yamlPath := filepath.Join(root, "conf", "global.yaml")
	if err := k.Load(file.Provider(yamlPath), yaml.Parser()); err != nil {
		zap.S().Errorw("config yaml load failed", "file", yamlPath, "err", err)
		return nil, err
	}
	zap.S().Debugw("config yaml loaded", "file", yamlPath)

	// Env overrides: ROLE_HTTP__LISTEN_ADDR → http.listen_addr
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, envPrefix)
		return strings.ToLower(strings.ReplaceAll(s, "__", "."))
	}), nil); err != nil {
		zap.S().Errorw("config env overlay failed", "err", err)
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		zap.S().Errorw("config unmarshal failed", "err", err)
		return nil, err
	}

	applyDefaults(&cfg)
	cfg.Paths.Root = root
	if err := validateStruct(&cfg); err != nil {
		zap.S().Errorw("config validation failed", "err", err)
		return nil, err
	}

	current.Store(&cfg)
	zap.S().Infow("config loaded",
		"listen_addr", cfg.HTTP.ListenAddr,
		"force_https", cfg.HTTP.ForceHTTPS,
		"nats", cfg.NATS.URL != "",
		"root", cfg.Paths.Root,
	)
	return &cfg, nil
}

// applyDefaults fills zero values that have a sensible fallback.
func applyDefaults(c *Config) {
	if c.HTTP.CORSOrigin == "" {
		c.HTTP.CORSOrigin = "*"
	}
	if c.Database.MaxOpen == 0 {
		c.Database.MaxOpen = 15
	}
	if c.Database.MaxIdle == 0 {
		c.Database.MaxIdle = 5
	}
	if c.Database.RetryBackoff == 0 {
		c.Database.RetryBackoff = 500 * time.Millisecond
	}
	if c.Scheduler.Interval == 0 {
		c.Scheduler.Interval = time.Minute
	}
	if c.Autosave.Debounce == 0 {
		c.Autosave.Debounce = 800 * time.Millisecond
	}
	if c.Autosave.MinNameLength == 0 {
		c.Autosave.MinNameLength = 2
	}
	if c.Autosave.SessionIdle == 0 {
		c.Autosave.SessionIdle = 30 * time.Minute
	}
	if c.NATS.SubjectPrefix == "" {
		c.NATS.SubjectPrefix = "role"
	}
	if c.Lookup.CacheSize == 0 {
		c.Lookup.CacheSize = 1024
	}
	if c.Lookup.Timeout == 0 {
		c.Lookup.Timeout = 5 * time.Second
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.MaxSizeMB == 0 {
		c.Log.MaxSizeMB = 50
	}
	if c.Log.MaxBackups == 0 {
		c.Log.MaxBackups = 7
	}
	if c.Log.MaxAgeDays == 0 {
		c.Log.MaxAgeDays = 14
	}
}

/*──────────────────────────── secrets ─────────────────────────────────────*/

// SecretGetter is the subset of vault.Client used to resolve references.
type SecretGetter interface {
	GetKV(ctx context.Context, secretPath, key string, ttl time.Duration) (string, error)
}

// NeedsSecrets reports whether any field carries a `vault:` reference.
func (c *Config) NeedsSecrets() bool {
	for _, p := range c.secretFields() {
		if strings.HasPrefix(*p, vaultPrefix) {
			return true
		}
	}
	return false
}

// ResolveSecrets replaces every `vault:<path>#<key>` value in place.
func (c *Config) ResolveSecrets(ctx context.Context, g SecretGetter) error {
	for _, p := range c.secretFields() {
		ref, ok := strings.CutPrefix(*p, vaultPrefix)
		if !ok {
			continue
		}
		path, key, ok := strings.Cut(ref, "#")
		if !ok {
			return fmt.Errorf("vault reference %q: missing #key", *p)
		}
		val, err := g.GetKV(ctx, path, key, 0)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", ref, err)
		}
		*p = val
	}
	return nil
}

func (c *Config) secretFields() []*string {
	return []*string{&c.Database.DSN, &c.Database.Password, &c.NATS.URL}
}

/*──────────────────────────── helpers ─────────────────────────────────────*/

func Get() *Config  { return current.Load() }
func Reload() error { _, err := Load(); return err }
