package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	rootpkg "tools.zach/dev/emuconf"
	"tools.zach/dev/emuconf/internal/atomicfile"
	"tools.zach/dev/emuconf/internal/config"
	"tools.zach/dev/emuconf/internal/corelink"
	"tools.zach/dev/emuconf/internal/filelock"
	"tools.zach/dev/emuconf/internal/gameini"
	"tools.zach/dev/emuconf/internal/inifile"
	"tools.zach/dev/emuconf/internal/logger"
	"tools.zach/dev/emuconf/internal/paths"
	"tools.zach/dev/emuconf/internal/resolver"
)

// lockWait bounds how long a mutating command waits for another emuconf.
const lockWait = 2 * time.Second

// ///////////////////////////////////////////////
// Environment
// ///////////////////////////////////////////////

// env is everything one command invocation needs. Close releases it.
type env struct {
	data paths.DataDir
	cfg  *config.Config
	dirs paths.Dirs
	game string

	// res is nil for commands that never touch settings files.
	res *resolver.Resolver
	// core is nil when the runtime link is disabled.
	core *corelink.Client

	out, errOut io.Writer

	lock      *filelock.Lock
	logCloser io.Closer
	prevLog   *slog.Logger
}

// envMode selects what openEnv builds.
type envMode int

const (
	// modeConfig loads config and logging only.
	modeConfig envMode = iota
	// modeRead also builds a resolver.
	modeRead
	// modeWrite also holds the data directory lock.
	modeWrite
)

// openEnv loads the config, starts logging and builds the resolver.
func openEnv(ctx context.Context, cmd *cli.Command, mode envMode) (*env, error) {
	e := &env{
		data:   paths.DataDir{Root: cmd.String("data-dir")},
		game:   cmd.String("game"),
		out:    stdout(cmd),
		errOut: stderr(cmd),
	}
	if err := validGameID(e.game); err != nil {
		return nil, err
	}

	cfgPath := cmd.String("config")
	if cfgPath == "" {
		cfgPath = e.data.Config()
	}
	writeDefaultConfig(cfgPath)

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if dir := cmd.String("user-dir"); dir != "" {
		cfg.Dirs.User = dir
	}
	if dir := cmd.String("sys-dir"); dir != "" {
		cfg.Dirs.Sys = dir
	}
	e.cfg = cfg

	if err := e.startLogging(cmd.Bool("verbose")); err != nil {
		return nil, err
	}

	if mode == modeWrite {
		lock, err := filelock.Acquire(e.data.Lock(), lockWait)
		if err != nil {
			e.Close()
			if errors.Is(err, filelock.ErrLocked) {
				return nil, fmt.Errorf("another emuconf is editing settings: %w", err)
			}
			return nil, err
		}
		e.lock = lock
	}

	if e.dirs, err = cfg.SettingsDirs(); err != nil {
		e.Close()
		return nil, err
	}
	if mode == modeConfig {
		return e, nil
	}

	if err := e.buildResolver(ctx); err != nil {
		e.Close()
		return nil, err
	}
	return e, nil
}

// writeDefaultConfig writes the documented default file on first run.
func writeDefaultConfig(path string) {
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		return
	}
	if err := atomicfile.Write(path, rootpkg.DefaultConfigTOML, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to write default config: %v\n", err)
	}
}

func (e *env) startLogging(verbose bool) error {
	level, _ := logger.ParseLevel(e.cfg.Log.Level)
	opts := logger.Options{
		Path:         e.data.Log(),
		Level:        level,
		MaxSizeMB:    e.cfg.Log.MaxSizeMB,
		MaxBackups:   e.cfg.Log.MaxBackups,
		Console:      e.errOut,
		ConsoleLevel: slog.LevelWarn,
	}
	if verbose {
		opts.ConsoleLevel = slog.LevelDebug
	}
	log, closer, err := logger.New(opts)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	e.prevLog = slog.Default()
	slog.SetDefault(log)
	e.logCloser = closer
	return nil
}

func (e *env) buildResolver(ctx context.Context) error {
	policies, err := e.cfg.Policies()
	if err != nil {
		return err
	}
	translator, err := e.cfg.Translator()
	if err != nil {
		return err
	}

	opts := resolver.Options{
		Dirs:       e.dirs,
		GameID:     e.game,
		Translator: translator,
		Policies:   policies,
		Seeds:      resolver.DefaultSeeds(),
	}
	if e.cfg.Flush.Atomic {
		opts.Save = saveAtomic
	}

	if e.cfg.Runtime.Enabled {
		e.core = corelink.New(corelink.Options{
			Name:     paths.BinaryName,
			Instance: e.cfg.Runtime.Instance,
			Timeout:  time.Duration(e.cfg.Runtime.DialTimeoutMS) * time.Millisecond,
		})
		if e.cfg.Flush.NotifyRuntime {
			opts.Runtime = e.core
		} else {
			opts.Runtime = commitOnly{e.core}
		}
	}

	if e.game != "" && e.cfg.Generic.Fetch {
		path, err := e.fetcher().Resolve(ctx, e.dirs, e.game)
		switch {
		case errors.Is(err, gameini.ErrStale):
			slog.Warn("generic settings download failed, using cache", "game", e.game, "error", err)
		case errors.Is(err, gameini.ErrNotFound):
			slog.Debug("no generic settings published", "game", e.game)
		case err != nil:
			slog.Warn("generic settings unavailable", "game", e.game, "error", err)
		}
		opts.GenericPath = path
	}

	e.res = resolver.New(opts)
	return nil
}

func (e *env) fetcher() *gameini.Fetcher {
	return gameini.New(gameini.Options{
		URLFor:  e.cfg.GenericURL,
		Cache:   e.data,
		Timeout: time.Duration(e.cfg.Generic.TimeoutSeconds) * time.Second,
		Retries: e.cfg.Generic.Retries,
	})
}

// Close disconnects from the core, releases the lock and closes the log.
func (e *env) Close() {
	if e.core != nil {
		if err := e.core.Close(); err != nil {
			slog.Debug("closing core connection", "error", err)
		}
	}
	if err := e.lock.Release(); err != nil {
		slog.Warn("failed to release lock", "error", err)
	}
	if e.logCloser != nil {
		slog.SetDefault(e.prevLog)
		e.logCloser.Close()
	}
}

// reportLoadProblems prints skipped lines and unreadable files to errOut.
func (e *env) reportLoadProblems() {
	for _, d := range e.res.Diagnostics() {
		fmt.Fprintf(e.errOut, "warning: %v\n", d)
	}
	if err := e.res.LoadErrors(); err != nil {
		fmt.Fprintf(e.errOut, "warning: %v\n", err)
	}
}

// ///////////////////////////////////////////////
// Helpers
// ///////////////////////////////////////////////

// commitOnly forwards commits but drops reload requests.
type commitOnly struct {
	resolver.Runtime
}

func (commitOnly) ReloadConfig() error { return nil }

// saveAtomic replaces path through a temporary file.
func saveAtomic(f *inifile.File, path string) error {
	err := atomicfile.WriteFunc(path, 0o644, func(w io.Writer) error {
		_, err := f.WriteTo(w)
		return err
	})
	if err != nil {
		return fmt.Errorf("%w: %w", inifile.ErrIO, err)
	}
	return nil
}

// validGameID rejects IDs that would escape the GameSettings directory.
func validGameID(id string) error {
	if id == "" {
		return nil
	}
	if id == "." || id == ".." || strings.ContainsAny(id, `/\`) || id != filepath.Base(id) {
		return fmt.Errorf("invalid game ID %q", id)
	}
	return nil
}

func stdout(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

func stderr(cmd *cli.Command) io.Writer {
	if w := cmd.Root().ErrWriter; w != nil {
		return w
	}
	return os.Stderr
}
