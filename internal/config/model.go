// internal/config/model.go
//
// Typed configuration model for ROLÊ.
//
// Context
// -------
// These structs define the shape of the configuration tree that
// `internal/config/loader.go` builds from three overlay layers:
//
//   • optional `.env`                        – dotenv values,
//   • `conf/global.yaml`                     – primary static file,
//   • `ROLE_`-prefixed environment overrides – highest precedence.
//
// Any value whose string begins with the prefix `vault:` is resolved
// through the Vault client by ResolveSecrets, so downstream code never
// sees Vault URIs.
//
// Notes
// -----
//   • Struct tags use `koanf:"…"`, not `yaml:"…"`.
//   • The `Paths` block is filled at runtime; YAML must not try to set it.
//   • Oxford commas, two spaces after periods.  No em-dash.

package config

import "time"

//
// HTTP section
//

// HTTP holds web-server tunables.
type HTTP struct {
	ListenAddr string `koanf:"listen_addr" validate:"required,hostname_port"`
	ForceHTTPS bool   `koanf:"force_https"`
	CORSOrigin string `koanf:"cors_origin"`
}

//
// Database section
//

// Database holds the DSN and pool settings for the content database.
//
// The DSN is kept in YAML so operators can tweak host, port, or flags.  The
// password is usually a `vault:` reference and is injected into the DSN at
// connect time.
type Database struct {
	DSN          string        `koanf:"dsn"           validate:"required"`
	Password     string        `koanf:"password"`
	MaxOpen      int           `koanf:"max_open"      validate:"gte=0"`
	MaxIdle      int           `koanf:"max_idle"      validate:"gte=0"`
	Retries      int           `koanf:"retries"       validate:"gte=0"`
	RetryBackoff time.Duration `koanf:"retry_backoff"`
	Migrate      bool          `koanf:"migrate"`
}

//
// Scheduler section
//

// Scheduler holds the cadence used by `rolectl tick --every`.  The web
// process never ticks on its own; an external trigger calls the function.
type Scheduler struct {
	Interval time.Duration `koanf:"interval" validate:"gte=0"`
}

//
// Autosave section
//

// Autosave holds server-side coordinator defaults.
type Autosave struct {
	Debounce      time.Duration `koanf:"debounce"        validate:"gte=0"`
	MinNameLength int           `koanf:"min_name_length" validate:"gte=0"`
	SessionIdle   time.Duration `koanf:"session_idle"    validate:"gte=0"`
}

//
// NATS section
//

// NATS configures the lifecycle event publisher.  An empty URL selects the
// log-only publisher.
type NATS struct {
	URL           string `koanf:"url"`
	SubjectPrefix string `koanf:"subject_prefix"`
}

//
// Lookup section
//

// Lookup configures the CEP lookup proxy.
type Lookup struct {
	CEPBaseURL string        `koanf:"cep_base_url" validate:"required,url"`
	CacheSize  int           `koanf:"cache_size"   validate:"gte=1"`
	Timeout    time.Duration `koanf:"timeout"`
}

//
// GeoIP section
//

// GeoIP points at an optional GeoLite2-City database.
type GeoIP struct {
	DBPath string `koanf:"db_path"`
}

//
// Log section
//

// Log tunes the rotating file logger.
type Log struct {
	Level      string `koanf:"level"       validate:"oneof=debug info warn error"`
	MaxSizeMB  int    `koanf:"max_size_mb" validate:"gte=1"`
	MaxBackups int    `koanf:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `koanf:"max_age_days" validate:"gte=0"`
}

//
// Paths section (runtime only)
//

// Paths is resolved at runtime, never set in YAML or env.
type Paths struct {
	Root string // ROLE_ROOT or discovered parent
}

//
// Root aggregate
//

// Config is the immutable aggregate returned by Load() and cached in an
// atomic.Pointer for lock-free reads throughout the app lifetime.
type Config struct {
	HTTP      HTTP      `koanf:"http"`
	Database  Database  `koanf:"database"`
	Scheduler Scheduler `koanf:"scheduler"`
	Autosave  Autosave  `koanf:"autosave"`
	NATS      NATS      `koanf:"nats"`
	Lookup    Lookup    `koanf:"lookup"`
	GeoIP     GeoIP     `koanf:"geoip"`
	Log       Log       `koanf:"log"`
	Paths     Paths     `koanf:"-"`
}
