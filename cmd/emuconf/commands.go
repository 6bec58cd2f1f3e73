package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/mattn/go-runewidth"
	"github.com/urfave/cli/v3"

	"tools.zach/dev/emuconf/internal/gameini"
	"tools.zach/dev/emuconf/internal/logger"
	"tools.zach/dev/emuconf/internal/paths"
	"tools.zach/dev/emuconf/internal/resolver"
	"tools.zach/dev/emuconf/internal/setting"
	"tools.zach/dev/emuconf/internal/view"
	"tools.zach/dev/emuconf/internal/watcher"
)

// ErrUsage is returned for missing or malformed positional arguments.
var ErrUsage = errors.New("usage")

// ///////////////////////////////////////////////
// Addresses
// ///////////////////////////////////////////////

// address is a parsed File/Section/Key argument.
type address struct {
	file    resolver.FileID
	section string
	key     string
}

func (a address) String() string {
	return a.file.String() + "/" + a.section + "/" + a.key
}

// parseAddress reads "File/Section/Key", for example "Dolphin/Core/CPUThread".
func parseAddress(s string) (address, error) {
	parts := strings.SplitN(s, "/", 3)
	if len(parts) != 3 || parts[1] == "" || parts[2] == "" {
		return address{}, fmt.Errorf("%w: address %q must be File/Section/Key", ErrUsage, s)
	}
	file, err := resolver.ParseFileID(parts[0])
	if err != nil {
		return address{}, fmt.Errorf("%w: %w", ErrUsage, err)
	}
	return address{file: file, section: parts[1], key: parts[2]}, nil
}

// argAddress parses the first positional argument.
func argAddress(cmd *cli.Command, want int) (address, error) {
	if cmd.NArg() != want {
		return address{}, fmt.Errorf("%w: %s %s", ErrUsage, cmd.Name, cmd.ArgsUsage)
	}
	return parseAddress(cmd.Args().First())
}

// parseValue converts command-line text for d. Checkboxes accept the usual
// boolean spellings; everything else is inferred like file text.
func parseValue(d view.Descriptor, described bool, text string) (setting.Value, error) {
	if described && d.Kind == view.CheckBox {
		b, err := strconv.ParseBool(strings.ToLower(text))
		if err != nil {
			return setting.Value{}, fmt.Errorf("%s expects true or false, got %q", d.Address(), text)
		}
		return setting.Bool(b), nil
	}
	return setting.Infer(text), nil
}

// presented formats v the way a settings screen shows it.
func presented(d view.Descriptor, v setting.Value) string {
	if label, ok := d.ChoiceLabel(v); ok {
		return fmt.Sprintf("%s (%s)", v.Text(), label)
	}
	if d.Kind == view.CheckBox {
		b, _ := v.AsBool()
		return strconv.FormatBool(b)
	}
	return v.Text() + d.Units
}

// ///////////////////////////////////////////////
// get / set / reset
// ///////////////////////////////////////////////

func rawFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "raw",
		Usage: "bypass the settings catalog and policies; read or store file text as is",
	}
}

func getCommand() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "print the effective value of a setting",
		ArgsUsage: "File/Section/Key",
		Flags: []cli.Flag{
			rawFlag(),
			&cli.BoolFlag{Name: "show-layer", Aliases: []string{"l"}, Usage: "also print the layer that supplied the value"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			addr, err := argAddress(cmd, 1)
			if err != nil {
				return err
			}
			e, err := openEnv(ctx, cmd, modeRead)
			if err != nil {
				return err
			}
			defer e.Close()

			raw, layer, ok := e.res.Lookup(addr.file, addr.section, addr.key)
			source := layer.String()
			if !ok {
				source = "default"
			}

			var text string
			d, described := view.Find(addr.file, addr.section, addr.key)
			switch {
			case described && !cmd.Bool("raw"):
				v, err := view.Read(e.res, d)
				if err != nil {
					return err
				}
				text = presented(d, v)
			case ok:
				text = raw.Text()
			default:
				return fmt.Errorf("%s: %w", addr, resolver.ErrUnset)
			}

			if cmd.Bool("show-layer") {
				fmt.Fprintf(e.out, "%s\t%s\n", text, source)
			} else {
				fmt.Fprintln(e.out, text)
			}
			e.reportLoadProblems()
			return nil
		},
	}
}

func setCommand() *cli.Command {
	return &cli.Command{
		Name:      "set",
		Usage:     "store a value in the topmost layer and flush it",
		ArgsUsage: "File/Section/Key VALUE",
		Flags: []cli.Flag{
			rawFlag(),
			&cli.BoolFlag{Name: "commit", Usage: "also push the value to a running core (requires --game)"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			addr, err := argAddress(cmd, 2)
			if err != nil {
				return err
			}
			e, err := openEnv(ctx, cmd, modeWrite)
			if err != nil {
				return err
			}
			defer e.Close()

			text := cmd.Args().Get(1)
			d, described := view.Find(addr.file, addr.section, addr.key)
			if cmd.Bool("raw") {
				described = false
			}
			v, err := parseValue(d, described, text)
			if err != nil {
				return err
			}
			if described {
				err = view.Write(e.res, d, v)
			} else {
				err = e.res.Set(addr.file, addr.section, addr.key, v)
			}
			if err != nil {
				return err
			}
			if err := e.res.Flush(); err != nil {
				return err
			}
			slog.Info("setting stored", "address", addr.String(), "game", e.game, "value", text)

			if cmd.Bool("commit") {
				if e.core == nil {
					return fmt.Errorf("commit %s: %w", addr, resolver.ErrNoRuntime)
				}
				if err := e.res.Commit(addr.file, addr.section, addr.key); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func resetCommand() *cli.Command {
	return &cli.Command{
		Name:      "reset",
		Usage:     "remove a setting from the topmost layer, restoring the lower layers' value",
		ArgsUsage: "File/Section/Key",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			addr, err := argAddress(cmd, 1)
			if err != nil {
				return err
			}
			e, err := openEnv(ctx, cmd, modeWrite)
			if err != nil {
				return err
			}
			defer e.Close()

			if !e.res.Delete(addr.file, addr.section, addr.key) {
				fmt.Fprintf(e.out, "%s was not set in the %s layer\n", addr, e.res.Layers()[0])
				return nil
			}
			return e.res.Flush()
		},
	}
}

// ///////////////////////////////////////////////
// show
// ///////////////////////////////////////////////

func showCommand() *cli.Command {
	return &cli.Command{
		Name:  "show",
		Usage: "print one layer's file as it would be saved",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "layer", Usage: "custom-game, generic-game or global (default: topmost)"},
			&cli.StringFlag{Name: "file", Value: resolver.Dolphin.String(), Usage: "global file to show"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			e, err := openEnv(ctx, cmd, modeRead)
			if err != nil {
				return err
			}
			defer e.Close()

			layer := e.res.Layers()[0]
			if name := cmd.String("layer"); name != "" {
				if layer, err = resolver.ParseLayer(name); err != nil {
					return err
				}
			}
			file, err := resolver.ParseFileID(cmd.String("file"))
			if err != nil {
				return err
			}

			img, err := e.res.Image(layer, file)
			if err != nil {
				return err
			}
			path, _ := e.res.Path(layer, file)
			fmt.Fprintf(e.out, "; %s\n", path)
			if _, err := img.WriteTo(e.out); err != nil {
				return err
			}
			e.reportLoadProblems()
			return nil
		},
	}
}

// ///////////////////////////////////////////////
// menu
// ///////////////////////////////////////////////

func menuCommand() *cli.Command {
	return &cli.Command{
		Name:      "menu",
		Usage:     "list settings screens, or show one with current values",
		ArgsUsage: "[TAG]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() == 0 {
				w := stdout(cmd)
				for _, tag := range view.Tags() {
					fmt.Fprintln(w, tag)
				}
				return nil
			}

			items, err := view.Menu(view.MenuTag(cmd.Args().First()))
			if err != nil {
				return err
			}
			e, err := openEnv(ctx, cmd, modeRead)
			if err != nil {
				return err
			}
			defer e.Close()

			if err := renderMenu(e.out, e.res, items); err != nil {
				return err
			}
			e.reportLoadProblems()
			return nil
		},
	}
}

// renderMenu writes one line per descriptor: title, presented value and
// address, aligned by display width.
func renderMenu(w io.Writer, s view.Store, items []view.Descriptor) error {
	type row struct {
		title, value, addr string
		header              bool
	}
	rows := make([]row, 0, len(items))
	titleWidth, valueWidth := 0, 0
	for _, d := range items {
		var r row
		switch d.Kind {
		case view.Header:
			rows = append(rows, row{title: d.Title, header: true})
			continue
		case view.Submenu:
			r = row{title: d.Title, value: "> " + string(d.Submenu)}
		default:
			v, err := view.Read(s, d)
			if err != nil {
				return err
			}
			r = row{title: d.Title, value: presented(d, v), addr: d.Address()}
		}
		titleWidth = max(titleWidth, runewidth.StringWidth(r.title))
		valueWidth = max(valueWidth, runewidth.StringWidth(r.value))
		rows = append(rows, r)
	}

	for _, r := range rows {
		if r.header {
			if _, err := fmt.Fprintf(w, "\n== %s ==\n", r.title); err != nil {
				return err
			}
			continue
		}
		line := runewidth.FillRight(r.title, titleWidth) + "  " + runewidth.FillRight(r.value, valueWidth)
		if r.addr != "" {
			line += "  " + r.addr
		}
		if _, err := fmt.Fprintln(w, strings.TrimRight(line, " ")); err != nil {
			return err
		}
	}
	return nil
}

// ///////////////////////////////////////////////
// games
// ///////////////////////////////////////////////

func gamesCommand() *cli.Command {
	return &cli.Command{
		Name:  "games",
		Usage: "list games that have custom settings",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			e, err := openEnv(ctx, cmd, modeConfig)
			if err != nil {
				return err
			}
			defer e.Close()

			ids, err := customGames(e.dirs.GameSettings(), e.cfg.IsIgnored)
			if err != nil {
				return err
			}
			for _, id := range ids {
				fmt.Fprintln(e.out, id)
			}
			return nil
		},
	}
}

// customGames returns the sorted IDs of per-game files in dir, minus ignored
// ones. A missing dir has no games.
func customGames(dir string, ignored func(string) bool) ([]string, error) {
	matches, err := doublestar.Glob(os.DirFS(dir), "*"+paths.IniExt)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}
	var ids []string
	for _, m := range matches {
		id := paths.GameIDFromPath(m)
		if id == "" || strings.HasPrefix(id, ".") || ignored(id) {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// ///////////////////////////////////////////////
// flush
// ///////////////////////////////////////////////

func flushCommand() *cli.Command {
	return &cli.Command{
		Name:  "flush",
		Usage: "load every global file, apply first-use defaults and write back changes",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			e, err := openEnv(ctx, cmd, modeWrite)
			if err != nil {
				return err
			}
			defer e.Close()

			for _, id := range resolver.FileIDs() {
				if _, err := e.res.Image(resolver.LayerGlobal, id); err != nil {
					return err
				}
			}
			e.reportLoadProblems()
			if !e.res.Dirty() {
				fmt.Fprintln(e.out, "nothing to flush")
				return nil
			}
			if err := e.res.Flush(); err != nil {
				return err
			}
			fmt.Fprintln(e.out, "flushed")
			return nil
		},
	}
}

// ///////////////////////////////////////////////
// watch
// ///////////////////////////////////////////////

func watchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "reload settings when files change on disk until interrupted",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "poll", Usage: "poll instead of using file notifications"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			e, err := openEnv(ctx, cmd, modeRead)
			if err != nil {
				return err
			}
			defer e.Close()

			w, err := watcher.New(watcher.Options{
				Dirs:         watchDirs(e.res.Paths()),
				PollInterval: time.Duration(e.cfg.Watch.PollIntervalSeconds) * time.Second,
				Debounce:     time.Duration(e.cfg.Watch.DebounceMS) * time.Millisecond,
				Polling:      cmd.Bool("poll"),
			})
			if err != nil {
				return err
			}
			defer w.Close()
			if w.Polling() {
				slog.Info("using polling mode for file watching")
			}

			ctx, stop := signal.NotifyContext(ctx, shutdownSignals()...)
			defer stop()
			return watchLoop(ctx, e, w.Events())
		},
	}
}

// watchDirs returns the distinct parent directories of files.
func watchDirs(files []string) []string {
	seen := map[string]bool{}
	var dirs []string
	for _, f := range files {
		dir := filepath.Dir(f)
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}
	return dirs
}

// watchLoop drops stale images as files change and asks the core to reload.
func watchLoop(ctx context.Context, e *env, events <-chan string) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case path, ok := <-events:
			if !ok {
				return nil
			}
			if !e.res.ReloadPath(path) {
				continue
			}
			fmt.Fprintf(e.out, "reloaded %s\n", path)
			slog.Info("settings file changed", "path", path)
			if e.core != nil && e.cfg.Flush.NotifyRuntime {
				if err := e.core.ReloadConfig(); err != nil {
					slog.Warn("runtime reload after external edit failed", "error", err)
				}
			}
		}
	}
}

// ///////////////////////////////////////////////
// fetch-generic
// ///////////////////////////////////////////////

func fetchGenericCommand() *cli.Command {
	return &cli.Command{
		Name:      "fetch-generic",
		Usage:     "download a title's generic settings into the cache",
		ArgsUsage: "GAMEID",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() != 1 {
				return fmt.Errorf("%w: fetch-generic GAMEID", ErrUsage)
			}
			id := cmd.Args().First()
			if err := validGameID(id); err != nil {
				return err
			}
			e, err := openEnv(ctx, cmd, modeConfig)
			if err != nil {
				return err
			}
			defer e.Close()

			path, err := e.fetcher().Fetch(ctx, id)
			if errors.Is(err, gameini.ErrStale) {
				fmt.Fprintf(e.errOut, "warning: %v\n", err)
				err = nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(e.out, path)
			return nil
		},
	}
}

// ///////////////////////////////////////////////
// logs
// ///////////////////////////////////////////////

func logsCommand() *cli.Command {
	return &cli.Command{
		Name:  "logs",
		Usage: "print the end of the emuconf log",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "lines", Aliases: []string{"n"}, Value: 50, Usage: "lines to print"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			data := paths.DataDir{Root: cmd.String("data-dir")}
			lines, err := logger.ReadTail(data.Log(), cmd.Int("lines"))
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					return fmt.Errorf("no log at %s", data.Log())
				}
				return err
			}
			w := stdout(cmd)
			for _, l := range lines {
				fmt.Fprintln(w, l)
			}
			return nil
		},
	}
}
