package config

// ///////////////////////////////////////////////
// Documentation Types
// ///////////////////////////////////////////////

// FieldDoc documents one emuconf.toml field for the generated default file.
type FieldDoc struct {
	// Comment is written above the field.
	Comment string
	// Alternatives are written as commented-out lines below the field.
	Alternatives []string
}

// ///////////////////////////////////////////////
// Field Documentation Map
// ///////////////////////////////////////////////

// ConfigDocs maps dotted TOML paths such as "flush.atomic" to their docs.
// cmd/genconfig uses it to annotate emuconf.default.toml.
var ConfigDocs = map[string]FieldDoc{
	// ── Root ──────────────────────────────────────────────────────
	"version": {
		Comment: "Schema version. Managed by emuconf; do not edit.",
	},

	// ── Dirs ──────────────────────────────────────────────────────
	"dirs.user": {
		Comment: "Emulator user directory holding Config/ and GameSettings/.\nEmpty picks the platform default. A leading ~ is expanded.",
		Alternatives: []string{
			`user = "~/.local/share/dolphin-emu"`,
			`user = "C:/Users/me/Documents/Dolphin Emulator"`,
		},
	},
	"dirs.sys": {
		Comment: "Read-only system directory whose GameSettings/ holds generic game files.",
		Alternatives: []string{
			`sys = "/usr/share/dolphin-emu/sys"`,
		},
	},

	// ── Log ──────────────────────────────────────────────────────
	"log.level": {
		Comment: "Minimum level written to emuconf.log.\nOptions: \"trace\", \"debug\", \"info\", \"warn\", \"error\", \"fail\"",
		Alternatives: []string{
			`level = "debug"`,
		},
	},
	"log.max_size_mb": {
		Comment: "Rotate the log once it reaches this many megabytes.",
	},
	"log.max_backups": {
		Comment: "Rotated logs to keep.",
	},

	// ── Flush ────────────────────────────────────────────────────
	"flush.atomic": {
		Comment: "Replace settings files through a temporary file and rename.\nfalse writes in place, which can leave a truncated file if interrupted.",
	},
	"flush.notify_runtime": {
		Comment: "Ask a running emulator core to reload its configuration after each flush.",
	},

	// ── Runtime ──────────────────────────────────────────────────
	"runtime.enabled": {
		Comment: "Connect to a running emulator core over its local IPC endpoint.",
	},
	"runtime.instance": {
		Comment: "First IPC slot to try (0-9). Later slots are probed in order.",
	},
	"runtime.dial_timeout_ms": {
		Comment: "Give up on a slot after this many milliseconds.",
	},

	// ── Generic ──────────────────────────────────────────────────
	"generic.fetch": {
		Comment: "Download a title's generic settings when the system directory lacks them.\nDownloads are cached in the emuconf data directory.",
	},
	"generic.url": {
		Comment: "Source URL. {id} becomes the three-character generic game ID.",
	},
	"generic.timeout_seconds": {
		Comment: "Timeout for one download attempt.",
	},
	"generic.retries": {
		Comment: "Retries after a failed download.",
	},

	// ── Watch ────────────────────────────────────────────────────
	"watch.poll_interval_seconds": {
		Comment: "Rescan interval used when file notifications are unavailable.",
	},
	"watch.debounce_ms": {
		Comment: "Coalesce bursts of writes to one file within this window.",
	},

	// ── Games ────────────────────────────────────────────────────
	"games.ignore": {
		Comment: "Game IDs hidden from `emuconf games`. Glob patterns supported.",
		Alternatives: []string{
			`ignore = ["R*", "GALE01"]`,
		},
	},

	// ── Policy ───────────────────────────────────────────────────
	"policy.invert": {
		Comment: "Extra keys stored as the negation of the shown checkbox.",
		Alternatives: []string{
			`invert = ["SkipIdle"]`,
		},
	},
	"policy.percent": {
		Comment: "Extra keys stored as a fraction and shown as a whole percentage.",
		Alternatives: []string{
			`percent = ["AudioStretchLatency"]`,
		},
	},

	// ── Sections ─────────────────────────────────────────────────
	"sections": {
		Comment: "Extra section aliases for per-game files, canonical = physical.",
		Alternatives: []string{
			`[sections]`,
			`Wii = "Wii"`,
		},
	},
}
