// internal/config/model.go
//
// Typed configuration model for flatradar.
//
// Context
// -------
// These structs define the shape of the configuration tree that
// `internal/config/loader.go` builds from three overlay layers:
//
//   • optional `.env`                             – dotenv values,
//   • `conf/global.yaml`                           – primary static file,
//   • `FLATRADAR_`-prefixed environment overrides – highest precedence.
//
// Any value whose string begins with the prefix `vault:` is resolved
// through the Vault client *before* unmarshalling, so the model never
// stores Vault URIs—only plain strings.
//
// Validation happens immediately after unmarshal; the app fails fast if
// required fields are missing.
//
// Notes
// -----
//   • Struct tags use `koanf:"…"`, not `yaml:"…"`—Koanf ignores `yaml` tags
//     unless configured otherwise.
//   • The `Paths` block is filled at runtime; YAML must not try to set it.
//   • Oxford commas, two spaces after periods.  No em-dash.

package config

import "time"

//
// HTTP section — the small admin/metrics/webhook surface, not a
// per-tenant content server.
//

// HTTP holds the admin web-server tunables (metrics, healthz, and
// optionally a Telegram webhook receiver).
type HTTP struct {
	ListenAddr string `koanf:"listen_addr" validate:"required,hostname_port"`
	ForceHTTPS bool   `koanf:"force_https"`
}

//
// Bot section
//

// Bot holds the chat-platform identity and dispatch tunables from
// spec.md §6's environment contract.
type Bot struct {
	Token            string  `koanf:"token"              validate:"required"`
	CheckIntervalMin int     `koanf:"check_interval_min" validate:"required,min=1"`
	FXRateBYNUSD     float64 `koanf:"fx_rate_byn_usd"    validate:"required,gt=0"`
	MaxPhotosPerMsg  int     `koanf:"max_photos_per_msg" validate:"required,min=1"`
	AdminChatIDs     []int64 `koanf:"admin_chat_ids"`
}

// CheckInterval is the scheduler tick period (spec.md §4.11), taken from the
// required check_interval_min setting; there is no built-in default, so a
// config without it fails validation.
func (b Bot) CheckInterval() time.Duration {
	return time.Duration(b.CheckIntervalMin) * time.Minute
}

//
// Database section
//

// Database holds the remote cache store's DSN template and secret.
//
// The *template* (`CacheDSN`) is kept in YAML so operators can tweak
// host, port, or flags without touching Vault.  The *secret* portion
// (`CachePassword`) is stored in Vault and injected at runtime, keeping
// credentials out of flat files and git history.
type Database struct {
	CacheDSN      string `koanf:"cache_dsn"      validate:"required"`
	CachePassword string `koanf:"cache_password" validate:"required"`
}

//
// Paths section (runtime only)
//

// Paths is resolved at runtime—never set in YAML or env.  The loader
// discovers `Root` (repo root or FLATRADAR_ROOT override) so later code can
// build absolute file paths.
type Paths struct {
	Root string // FLATRADAR_ROOT or discovered parent
}

//
// Root aggregate
//

// Config is the immutable aggregate returned by Load() and cached in an
// atomic.Pointer for lock-free reads throughout the app lifetime.
type Config struct {
	HTTP     HTTP     `koanf:"http"`
	Bot      Bot      `koanf:"bot"`
	Database Database `koanf:"database"`
	Paths    Paths    `koanf:"-"` // not loaded from config files
}
