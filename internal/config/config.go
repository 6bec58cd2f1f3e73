// Package config loads emuconf's own settings from emuconf.toml.
//
// The file locates the emulator's settings tree, tunes logging, flushing,
// runtime notification, generic-INI fetching and file watching, and extends
// the built-in key policy and section alias tables. Missing fields keep their
// defaults.
package config

//go:generate go run ../../cmd/genconfig

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/bmatcuk/doublestar/v4"

	"tools.zach/dev/emuconf/internal/atomicfile"
	"tools.zach/dev/emuconf/internal/logger"
	"tools.zach/dev/emuconf/internal/migrate"
	"tools.zach/dev/emuconf/internal/paths"
	"tools.zach/dev/emuconf/internal/resolver"
	"tools.zach/dev/emuconf/internal/sections"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// DefaultGenericURL serves the emulator's bundled per-title settings.
const DefaultGenericURL = "https://raw.githubusercontent.com/dolphin-emu/dolphin/master/Data/Sys/GameSettings/{id}.ini"

// ///////////////////////////////////////////////
// Configuration Types
// ///////////////////////////////////////////////

// Config is the top-level emuconf.toml document.
type Config struct {
	// Version is the schema version used for migrations.
	Version int `toml:"version"`
	// Dirs locates the emulator settings tree.
	Dirs DirsConfig `toml:"dirs"`
	// Log holds logging settings.
	Log LogConfig `toml:"log"`
	// Flush controls how modified files are written.
	Flush FlushConfig `toml:"flush"`
	// Runtime configures the link to a running emulator core.
	Runtime RuntimeConfig `toml:"runtime"`
	// Generic configures downloading of generic game settings.
	Generic GenericConfig `toml:"generic"`
	// Watch configures live reload of externally edited files.
	Watch WatchConfig `toml:"watch"`
	// Games filters game discovery.
	Games GamesConfig `toml:"games"`
	// Policy extends the built-in key policy table.
	Policy PolicyConfig `toml:"policy"`
	// Sections adds canonical to physical section aliases.
	Sections map[string]string `toml:"sections,omitempty"`
}

// DirsConfig locates the emulator's settings tree.
type DirsConfig struct {
	// User is the user directory holding Config/ and GameSettings/.
	// Empty selects the platform default.
	User string `toml:"user"`
	// Sys is the read-only system directory holding GameSettings/.
	// Empty selects the platform default.
	Sys string `toml:"sys"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Level is the minimum level written to the log file.
	Level string `toml:"level"`
	// MaxSizeMB rotates the log once it reaches this size.
	MaxSizeMB int `toml:"max_size_mb"`
	// MaxBackups is how many rotated logs are kept.
	MaxBackups int `toml:"max_backups"`
}

// FlushConfig controls how modified files are written.
type FlushConfig struct {
	// Atomic replaces files through a temporary sibling instead of writing
	// them in place.
	Atomic bool `toml:"atomic"`
	// NotifyRuntime asks a running core to reload after a flush.
	NotifyRuntime bool `toml:"notify_runtime"`
}

// RuntimeConfig configures the link to a running emulator core.
type RuntimeConfig struct {
	// Enabled turns the link on.
	Enabled bool `toml:"enabled"`
	// Instance is the first IPC slot probed (0-9).
	Instance int `toml:"instance"`
	// DialTimeoutMS bounds each connection attempt.
	DialTimeoutMS int `toml:"dial_timeout_ms"`
}

// GenericConfig configures downloading of generic game settings.
type GenericConfig struct {
	// Fetch downloads a title's generic file when the system tree lacks it.
	Fetch bool `toml:"fetch"`
	// URL is the source template; {id} is replaced by the generic game ID.
	URL string `toml:"url"`
	// TimeoutSeconds bounds one download attempt.
	TimeoutSeconds int `toml:"timeout_seconds"`
	// Retries is how many times a failed download is retried.
	Retries int `toml:"retries"`
}

// WatchConfig configures live reload.
type WatchConfig struct {
	// PollIntervalSeconds is the fallback rescan interval when file
	// notifications are unavailable.
	PollIntervalSeconds int `toml:"poll_interval_seconds"`
	// DebounceMS coalesces bursts of events for one file.
	DebounceMS int `toml:"debounce_ms"`
}

// GamesConfig filters game discovery.
type GamesConfig struct {
	// Ignore lists glob patterns matched against game IDs.
	Ignore []string `toml:"ignore"`
}

// PolicyConfig extends the key policy table.
type PolicyConfig struct {
	// Invert lists additional keys stored as the negation of what is shown.
	Invert []string `toml:"invert"`
	// Percent lists additional keys stored as fractions and shown as percents.
	Percent []string `toml:"percent"`
}

// ///////////////////////////////////////////////
// Default Configuration
// ///////////////////////////////////////////////

// DefaultConfig returns a Config populated with defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: migrate.Config.CurrentVersion,
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  5,
			MaxBackups: 3,
		},
		Flush: FlushConfig{
			Atomic:        true,
			NotifyRuntime: true,
		},
		Runtime: RuntimeConfig{
			Enabled:       true,
			Instance:      0,
			DialTimeoutMS: 500,
		},
		Generic: GenericConfig{
			Fetch:          false,
			URL:            DefaultGenericURL,
			TimeoutSeconds: 10,
			Retries:        2,
		},
		Watch: WatchConfig{
			PollIntervalSeconds: 2,
			DebounceMS:          200,
		},
		Games: GamesConfig{
			Ignore: []string{},
		},
		Policy: PolicyConfig{
			Invert:  []string{},
			Percent: []string{},
		},
	}
}

// ExampleConfig returns the Config written to emuconf.default.toml.
func ExampleConfig() *Config {
	return DefaultConfig()
}

// ///////////////////////////////////////////////
// PeekVersion
// ///////////////////////////////////////////////

// PeekVersion reads just the version field from raw TOML. A missing, zero or
// unparsable version reads as 1, the unversioned schema.
func PeekVersion(data []byte) int {
	var v struct {
		Version int `toml:"version"`
	}
	if err := toml.Unmarshal(data, &v); err != nil || v.Version == 0 {
		return 1
	}
	return v.Version
}

// ///////////////////////////////////////////////
// Loading and Saving
// ///////////////////////////////////////////////

// Load reads path. A missing file yields DefaultConfig. Older schemas are
// migrated, backed up to path+".bak", and re-saved.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	version := PeekVersion(data)
	migrated := migrate.Config.NeedsMigration(version)
	if migrated {
		if backupErr := atomicfile.Write(path+".bak", data, 0o644); backupErr != nil {
			slog.Warn("failed to write config backup", "path", path, "error", backupErr)
		}
	}
	data, _, err = migrate.Config.Run(data, version)
	if err != nil {
		return nil, fmt.Errorf("migrate config: %w", err)
	}

	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Version = migrate.Config.CurrentVersion

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	if migrated {
		if err := cfg.Save(path); err != nil {
			slog.Warn("failed to save migrated config", "path", path, "error", err)
		}
	}
	return cfg, nil
}

// Save writes the config as TOML, atomically.
func (c *Config) Save(path string) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return atomicfile.Write(path, buf.Bytes(), 0o644)
}

// ///////////////////////////////////////////////
// Validation
// ///////////////////////////////////////////////

// Validate checks that all values are usable.
func (c *Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...)))
	}

	if _, ok := logger.ParseLevel(c.Log.Level); !ok {
		bad("log.level %q: must be trace, debug, info, warn, error or fail", c.Log.Level)
	}
	if c.Log.MaxSizeMB <= 0 {
		bad("log.max_size_mb must be > 0, got %d", c.Log.MaxSizeMB)
	}
	if c.Log.MaxBackups < 0 {
		bad("log.max_backups must be >= 0, got %d", c.Log.MaxBackups)
	}
	if c.Runtime.Instance < 0 || c.Runtime.Instance > 9 {
		bad("runtime.instance must be between 0 and 9, got %d", c.Runtime.Instance)
	}
	if c.Runtime.DialTimeoutMS <= 0 {
		bad("runtime.dial_timeout_ms must be > 0, got %d", c.Runtime.DialTimeoutMS)
	}
	if err := validGenericURL(c.Generic.URL); err != nil {
		bad("generic.url: %v", err)
	}
	if c.Generic.TimeoutSeconds <= 0 {
		bad("generic.timeout_seconds must be > 0, got %d", c.Generic.TimeoutSeconds)
	}
	if c.Generic.Retries < 0 {
		bad("generic.retries must be >= 0, got %d", c.Generic.Retries)
	}
	if c.Watch.PollIntervalSeconds <= 0 {
		bad("watch.poll_interval_seconds must be > 0, got %d", c.Watch.PollIntervalSeconds)
	}
	if c.Watch.DebounceMS < 0 {
		bad("watch.debounce_ms must be >= 0, got %d", c.Watch.DebounceMS)
	}
	for _, pattern := range c.Games.Ignore {
		if !doublestar.ValidatePattern(pattern) {
			bad("games.ignore pattern %q is malformed", pattern)
		}
	}
	if _, err := c.Policies(); err != nil {
		bad("policy: %v", err)
	}
	if _, err := c.Translator(); err != nil {
		bad("sections: %v", err)
	}
	return errors.Join(errs...)
}

func validGenericURL(raw string) error {
	if !strings.Contains(raw, "{id}") {
		return fmt.Errorf("%q lacks the {id} placeholder", raw)
	}
	u, err := url.Parse(strings.ReplaceAll(raw, "{id}", "GAL"))
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%q must use http or https", raw)
	}
	return nil
}

// ///////////////////////////////////////////////
// Derived Values
// ///////////////////////////////////////////////

// Policies returns the built-in key policies extended by [policy]. A key
// listed under both invert and percent is rejected.
func (c *Config) Policies() (resolver.Policies, error) {
	extra := make(map[string]resolver.Transform, len(c.Policy.Invert)+len(c.Policy.Percent))
	for _, k := range c.Policy.Invert {
		extra[k] = resolver.Invert
	}
	for _, k := range c.Policy.Percent {
		if extra[k] == resolver.Invert {
			return resolver.Policies{}, fmt.Errorf("key %q is both inverted and a percent", k)
		}
		extra[k] = resolver.Percent
	}
	for k := range extra {
		if strings.TrimSpace(k) == "" || strings.TrimSpace(k) != k {
			return resolver.Policies{}, fmt.Errorf("key %q is empty or padded", k)
		}
	}
	return resolver.DefaultPolicies().With(extra), nil
}

// Translator returns the default section table extended by [sections].
func (c *Config) Translator() (*sections.Translator, error) {
	if len(c.Sections) == 0 {
		return sections.Default(), nil
	}
	return sections.Default().With(c.Sections)
}

// IsIgnored reports whether gameID matches any games.ignore pattern.
func (c *Config) IsIgnored(gameID string) bool {
	for _, pattern := range c.Games.Ignore {
		matched, err := doublestar.Match(pattern, gameID)
		if err != nil {
			slog.Warn("invalid glob pattern", "pattern", pattern, "error", err)
			continue
		}
		if matched {
			return true
		}
	}
	return false
}

// GenericURL returns the download URL for gameID's generic settings.
func (c *Config) GenericURL(gameID string) string {
	return strings.ReplaceAll(c.Generic.URL, "{id}", url.PathEscape(paths.GenericID(gameID)))
}

// SettingsDirs returns the settings tree, filling empty entries with the
// platform defaults and expanding a leading "~".
func (c *Config) SettingsDirs() (paths.Dirs, error) {
	home, err := os.UserHomeDir()
	if err != nil && (c.Dirs.User == "" || strings.HasPrefix(c.Dirs.User, "~") || strings.HasPrefix(c.Dirs.Sys, "~")) {
		return paths.Dirs{}, fmt.Errorf("locating home directory: %w", err)
	}
	user, sys := c.Dirs.User, c.Dirs.Sys
	if user == "" {
		user = defaultUserDir(home, runtime.GOOS)
	}
	if sys == "" {
		sys = defaultSysDir(user, runtime.GOOS)
	}
	return paths.Dirs{User: expandHome(user, home), Sys: expandHome(sys, home)}, nil
}

func defaultUserDir(home, goos string) string {
	switch goos {
	case "windows":
		return filepath.Join(home, "Documents", "Dolphin Emulator")
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Dolphin")
	default:
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			return filepath.Join(xdg, "dolphin-emu")
		}
		return filepath.Join(home, ".local", "share", "dolphin-emu")
	}
}

// defaultSysDir falls back to a Sys directory beside the user tree on
// platforms without a shared install location.
func defaultSysDir(user, goos string) string {
	switch goos {
	case "linux", "freebsd", "openbsd", "netbsd":
		return "/usr/share/dolphin-emu/sys"
	default:
		return filepath.Join(user, paths.SysDir)
	}
}

func expandHome(p, home string) string {
	if p == "~" {
		return home
	}
	if strings.HasPrefix(p, "~/") || strings.HasPrefix(p, `~\`) {
		return filepath.Join(home, p[2:])
	}
	return p
}
