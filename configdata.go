// Package emuconf embeds the documented default configuration.
//
// The root package exists only to embed emuconf.default.toml, which
// cmd/genconfig regenerates from internal/config.
package emuconf

import _ "embed"

// DefaultConfigTOML is written to the data directory on first run.
//
//go:embed emuconf.default.toml
var DefaultConfigTOML []byte
