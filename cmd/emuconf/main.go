// Package main implements emuconf, a command-line front end for the
// emulator's layered settings files.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"

	"github.com/urfave/cli/v3"

	"tools.zach/dev/emuconf/internal/paths"
)

// ///////////////////////////////////////////////
// Version
// ///////////////////////////////////////////////

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// resolveVersion returns [version] when it was set by the linker, otherwise
// a "dev+<hash>" tag built from the VCS info the toolchain embeds.
func resolveVersion() string {
	if version != "dev" {
		return version
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return version
	}
	var revision string
	var dirty bool
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if revision == "" {
		return version
	}
	hash := revision[:min(7, len(revision))]
	if dirty {
		return "dev+" + hash + ".dirty"
	}
	return "dev+" + hash
}

// defaultDataDir returns ~/.emuconf, or ./.emuconf when the home directory
// is unknown.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", paths.DataDirRel)
	}
	return filepath.Join(home, paths.DataDirRel)
}

// ///////////////////////////////////////////////
// Command Tree
// ///////////////////////////////////////////////

func newApp() *cli.Command {
	return &cli.Command{
		Name:    paths.BinaryName,
		Usage:   "inspect and edit layered emulator settings",
		Version: resolveVersion(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "data-dir",
				Value:   defaultDataDir(),
				Usage:   "emuconf data directory holding the config, log and caches",
				Sources: cli.EnvVars("EMUCONF_DATA_DIR"),
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "config file (default: <data-dir>/" + paths.ConfigFile + ")",
				Sources: cli.EnvVars("EMUCONF_CONFIG"),
			},
			&cli.StringFlag{
				Name:  "user-dir",
				Usage: "emulator user directory, overriding dirs.user",
			},
			&cli.StringFlag{
				Name:  "sys-dir",
				Usage: "emulator system directory, overriding dirs.sys",
			},
			&cli.StringFlag{
				Name:    "game",
				Aliases: []string{"g"},
				Usage:   "game ID enabling the per-game layers",
				Sources: cli.EnvVars("EMUCONF_GAME"),
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "also log debug output to stderr",
			},
		},
		Commands: []*cli.Command{
			getCommand(),
			setCommand(),
			resetCommand(),
			showCommand(),
			menuCommand(),
			gamesCommand(),
			flushCommand(),
			watchCommand(),
			fetchGenericCommand(),
			logsCommand(),
		},
	}
}

// ///////////////////////////////////////////////
// Main
// ///////////////////////////////////////////////

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "emuconf: %v\n", err)
		os.Exit(1)
	}
}
