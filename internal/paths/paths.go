// Package paths centralizes file and directory names used across the project.
// Both the emulator's settings tree and emuconf's own data directory are
// described here as the single source of truth.
package paths

import (
	"path/filepath"
	"strings"
)

// ///////////////////////////////////////////////
// Constants
// ///////////////////////////////////////////////

// emuconf data directory file names.
const (
	ConfigFile      = "emuconf.toml"
	LogFile         = "emuconf.log"
	LockFile        = "emuconf.lock"
	GenericCacheDir = "generic-cache"
	BinaryName      = "emuconf"
	DataDirRel      = ".emuconf" // relative to $HOME
)

// Emulator settings tree names.
const (
	ConfigDir       = "Config"
	GameSettingsDir = "GameSettings"
	SysDir          = "Sys"
	IniExt          = ".ini"
)

// GenericIDLen is how many leading characters of a game ID are shared by
// every regional release of the same title.
const GenericIDLen = 3

// GenericID returns the region-independent prefix of a game ID.
// IDs shorter than [GenericIDLen] are returned unchanged.
func GenericID(gameID string) string {
	if len(gameID) <= GenericIDLen {
		return gameID
	}
	return gameID[:GenericIDLen]
}

// GameIDFromPath returns the game ID encoded in a per-game settings file name,
// or "" if path is not an .ini file.
func GameIDFromPath(path string) string {
	base := filepath.Base(path)
	if !strings.EqualFold(filepath.Ext(base), IniExt) {
		return ""
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ///////////////////////////////////////////////
// DataDir
// ///////////////////////////////////////////////

// DataDir provides path construction methods rooted at emuconf's own data
// directory.
type DataDir struct {
	Root string
}

// Config returns the full path to the config file.
func (d DataDir) Config() string { return filepath.Join(d.Root, ConfigFile) }

// Log returns the full path to the log file.
func (d DataDir) Log() string { return filepath.Join(d.Root, LogFile) }

// Lock returns the full path to the advisory lock file.
func (d DataDir) Lock() string { return filepath.Join(d.Root, LockFile) }

// GenericCache returns the directory holding downloaded generic game files.
func (d DataDir) GenericCache() string { return filepath.Join(d.Root, GenericCacheDir) }

// GenericCacheFile returns the cached copy of one generic game file.
func (d DataDir) GenericCacheFile(gameID string) string {
	return filepath.Join(d.GenericCache(), GenericID(gameID)+IniExt)
}

// ///////////////////////////////////////////////
// Dirs
// ///////////////////////////////////////////////

// Dirs locates the emulator's settings files. User is the writable user
// directory; Sys is the read-only directory shipped with the emulator.
type Dirs struct {
	User string
	Sys  string
}

// Global returns the path of a global settings file such as "Dolphin".
func (d Dirs) Global(name string) string {
	return filepath.Join(d.User, ConfigDir, name+IniExt)
}

// GameSettings returns the directory holding custom per-game files.
func (d Dirs) GameSettings() string {
	return filepath.Join(d.User, GameSettingsDir)
}

// CustomGame returns the user-editable override file for gameID.
func (d Dirs) CustomGame(gameID string) string {
	return filepath.Join(d.GameSettings(), gameID+IniExt)
}

// SysGameSettings returns the directory holding generic per-game files.
func (d Dirs) SysGameSettings() string {
	return filepath.Join(d.Sys, GameSettingsDir)
}

// GenericGame returns the generic file shared by all regions of gameID.
func (d Dirs) GenericGame(gameID string) string {
	return filepath.Join(d.SysGameSettings(), GenericID(gameID)+IniExt)
}
