// Package integration exercises the settings stack end to end: layered
// files on disk, atomic saves, the core link and file watching.
package integration

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"tools.zach/dev/emuconf/internal/atomicfile"
	"tools.zach/dev/emuconf/internal/corelink"
	"tools.zach/dev/emuconf/internal/gameini"
	"tools.zach/dev/emuconf/internal/inifile"
	"tools.zach/dev/emuconf/internal/paths"
	"tools.zach/dev/emuconf/internal/resolver"
	"tools.zach/dev/emuconf/internal/setting"
	"tools.zach/dev/emuconf/internal/view"
	"tools.zach/dev/emuconf/internal/watcher"
)

// ///////////////////////////////////////////////
// Helpers
// ///////////////////////////////////////////////

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func newDirs(t *testing.T) paths.Dirs {
	t.Helper()
	root := t.TempDir()
	return paths.Dirs{User: filepath.Join(root, "User"), Sys: filepath.Join(root, "Sys")}
}

func atomicSave(f *inifile.File, path string) error {
	return atomicfile.WriteFunc(path, 0o644, func(w io.Writer) error {
		_, err := f.WriteTo(w)
		return err
	})
}

// recordingCore is an in-process emulator core. It acknowledges every
// command and remembers what it was sent.
type recordingCore struct {
	mu       sync.Mutex
	commands []map[string]any
}

func (c *recordingCore) dial(ctx context.Context) (net.Conn, error) {
	server, client := net.Pipe()
	go c.serve(server)
	return client, nil
}

func (c *recordingCore) serve(conn net.Conn) {
	defer conn.Close()
	if op, _, err := corelink.ReadFrame(conn); err != nil || op != corelink.OpHandshake {
		return
	}
	if err := c.send(conn, map[string]any{"cmd": "DISPATCH", "evt": "READY"}); err != nil {
		return
	}
	for {
		op, data, err := corelink.ReadFrame(conn)
		if err != nil || op == corelink.OpClose {
			return
		}
		var cmd map[string]any
		if err := json.Unmarshal(data, &cmd); err != nil {
			return
		}
		c.mu.Lock()
		c.commands = append(c.commands, cmd)
		c.mu.Unlock()
		if err := c.send(conn, map[string]any{"cmd": cmd["cmd"], "nonce": cmd["nonce"]}); err != nil {
			return
		}
	}
}

func (c *recordingCore) send(conn net.Conn, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return corelink.WriteFrame(conn, corelink.OpFrame, payload)
}

func (c *recordingCore) names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, cmd := range c.commands {
		name, _ := cmd["cmd"].(string)
		out = append(out, name)
	}
	return out
}

func (c *recordingCore) last() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.commands) == 0 {
		return nil
	}
	return c.commands[len(c.commands)-1]
}

// ///////////////////////////////////////////////
// Tests
// ///////////////////////////////////////////////

func TestEditFlushNotifiesCore(t *testing.T) {
	dirs := newDirs(t)
	writeFile(t, dirs.Global("GFX"), "[Settings]\nAspectRatio = 0\n")

	core := &recordingCore{}
	client := corelink.New(corelink.Options{Timeout: 2 * time.Second, Dial: core.dial})
	defer client.Close()

	r := resolver.New(resolver.Options{
		Dirs:    dirs,
		GameID:  "GALE01",
		Runtime: client,
		Save:    atomicSave,
	})

	d, ok := view.Find(resolver.GFX, "Settings", "AspectRatio")
	if !ok {
		t.Fatal("AspectRatio has no descriptor")
	}
	if err := view.Write(r, d, setting.Int(2)); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := r.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	if got := readFile(t, dirs.CustomGame("GALE01")); got != "[Video_Settings]\nAspectRatio = 2\n" {
		t.Errorf("custom file = %q", got)
	}
	if got := readFile(t, dirs.Global("GFX")); got != "[Settings]\nAspectRatio = 0\n" {
		t.Errorf("global file changed: %q", got)
	}
	if got := strings.Join(core.names(), ","); got != corelink.CmdReloadConfig {
		t.Errorf("core saw %q, want one reload", got)
	}

	if err := r.Commit(resolver.GFX, "Settings", "AspectRatio"); err != nil {
		t.Fatalf("commit: %v", err)
	}
	args, _ := core.last()["args"].(map[string]any)
	if args["game_id"] != "GALE01" || args["section"] != "Video_Settings" || args["key"] != "AspectRatio" || args["value"] != "2" {
		t.Errorf("commit args = %v", args)
	}

	entries, err := os.ReadDir(dirs.GameSettings())
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.Contains(e.Name(), ".tmp") {
			t.Errorf("temporary file left behind: %s", e.Name())
		}
	}
}

func TestFlushWithoutChangesSkipsCore(t *testing.T) {
	dirs := newDirs(t)
	writeFile(t, dirs.Global("Dolphin"), "[Core]\nSIDevice0 = 6\nSIDevice1 = 0\nSIDevice2 = 0\nSIDevice3 = 0\n")

	core := &recordingCore{}
	client := corelink.New(corelink.Options{Timeout: 2 * time.Second, Dial: core.dial})
	defer client.Close()

	r := resolver.New(resolver.Options{Dirs: dirs, Runtime: client, Seeds: resolver.DefaultSeeds()})
	if _, err := r.GetInt(resolver.Dolphin, "Core", "SIDevice0", 0); err != nil {
		t.Fatal(err)
	}
	if err := r.Flush(); err != nil {
		t.Fatal(err)
	}
	if names := core.names(); len(names) != 0 {
		t.Errorf("core contacted without a write: %v", names)
	}
}

func TestExternalEditIsPickedUp(t *testing.T) {
	dirs := newDirs(t)
	global := dirs.Global("Dolphin")
	writeFile(t, global, "[Core]\nCPUThread = True\n")

	r := resolver.New(resolver.Options{Dirs: dirs})
	if b, _ := r.GetBool(resolver.Dolphin, "Core", "CPUThread", false); !b {
		t.Fatal("initial value not read")
	}

	w, err := watcher.New(watcher.Options{
		Dirs:         []string{filepath.Dir(global)},
		PollInterval: 20 * time.Millisecond,
		Debounce:     10 * time.Millisecond,
		Polling:      true,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	// Let the poller take its first snapshot before editing.
	time.Sleep(60 * time.Millisecond)
	writeFile(t, global, "[Core]\nCPUThread = False\nExtra = 1\n")

	select {
	case path := <-w.Events():
		if !r.ReloadPath(path) {
			t.Fatalf("resolver does not know %s", path)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no change event")
	}

	if b, _ := r.GetBool(resolver.Dolphin, "Core", "CPUThread", true); b {
		t.Error("stale value after reload")
	}
}

func TestDownloadedGenericLayer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("[Settings]\nSafeTextureCacheColorSamples = 512\n[Core]\nCPUThread = False\n"))
	}))
	defer srv.Close()

	dirs := newDirs(t)
	writeFile(t, dirs.Global("Dolphin"), "[Core]\nCPUThread = True\n")
	writeFile(t, dirs.CustomGame("GALE01"), "")

	f := gameini.New(gameini.Options{
		URLFor:  func(id string) string { return srv.URL + "/" + paths.GenericID(id) + ".ini" },
		Cache:   paths.DataDir{Root: t.TempDir()},
		Timeout: 2 * time.Second,
	})
	path, err := f.Resolve(context.Background(), dirs, "GALE01")
	if err != nil {
		t.Fatal(err)
	}

	r := resolver.New(resolver.Options{Dirs: dirs, GameID: "GALE01", GenericPath: path})
	v, layer, ok := r.Lookup(resolver.Dolphin, "Core", "CPUThread")
	if !ok || layer != resolver.LayerGenericGame || !v.Equal(setting.Bool(false)) {
		t.Errorf("CPUThread = %#v from %s (ok=%v)", v, layer, ok)
	}
	if got := r.Get(resolver.GFX, "Settings", "SafeTextureCacheColorSamples", setting.Int(0)); !got.Equal(setting.Int(512)) {
		t.Errorf("generic GFX value = %#v", got)
	}
}
