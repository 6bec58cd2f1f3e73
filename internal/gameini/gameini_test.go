package gameini

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"tools.zach/dev/emuconf/internal/paths"
)

const melee = "# GAL - Super Smash Bros. Melee\n[Core]\nCPUThread = False\n[Video_Settings]\nSafeTextureCacheColorSamples = 512\n"

func newFetcher(t *testing.T, srv *httptest.Server) (*Fetcher, paths.DataDir) {
	t.Helper()
	data := paths.DataDir{Root: t.TempDir()}
	f := New(Options{
		URLFor:  func(id string) string { return srv.URL + "/GameSettings/" + paths.GenericID(id) + ".ini" },
		Cache:   data,
		Timeout: 2 * time.Second,
		Retries: 1,
	})
	f.client.RetryWaitMin = time.Millisecond
	f.client.RetryWaitMax = 5 * time.Millisecond
	return f, data
}

func TestFetch_DownloadsAndCaches(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/GameSettings/GAL.ini" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(melee))
	}))
	defer srv.Close()
	f, data := newFetcher(t, srv)

	path, err := f.Fetch(context.Background(), "GALE01")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if path != data.GenericCacheFile("GALE01") {
		t.Errorf("path = %q", path)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != melee {
		t.Errorf("cached body = %q", got)
	}
}

func TestFetch_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	f, _ := newFetcher(t, srv)

	if _, err := f.Fetch(context.Background(), "ZZZE01"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestFetch_RetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(melee))
	}))
	defer srv.Close()
	f, _ := newFetcher(t, srv)

	if _, err := f.Fetch(context.Background(), "GALE01"); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if hits.Load() != 2 {
		t.Errorf("server hit %d times, want 2", hits.Load())
	}
}

func TestFetch_FallsBackToCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	f, data := newFetcher(t, srv)

	cached := data.GenericCacheFile("GALP01")
	os.MkdirAll(filepath.Dir(cached), 0o755)
	os.WriteFile(cached, []byte(melee), 0o644)

	path, err := f.Fetch(context.Background(), "GALP01")
	if !errors.Is(err, ErrStale) {
		t.Fatalf("err = %v, want ErrStale", err)
	}
	if path != cached {
		t.Errorf("path = %q, want cached %q", path, cached)
	}
}

func TestFetch_FailsWithoutCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()
	f, _ := newFetcher(t, srv)

	path, err := f.Fetch(context.Background(), "GALE01")
	if err == nil || errors.Is(err, ErrStale) {
		t.Fatalf("err = %v, want a hard failure", err)
	}
	if path != "" {
		t.Errorf("path = %q, want empty", path)
	}
}

func TestFetch_RejectsMarkup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body>rate limited</body></html>"))
	}))
	defer srv.Close()
	f, data := newFetcher(t, srv)

	if _, err := f.Fetch(context.Background(), "GALE01"); err == nil {
		t.Fatal("expected markup to be rejected")
	}
	if _, err := os.Stat(data.GenericCacheFile("GALE01")); !os.IsNotExist(err) {
		t.Error("rejected body must not be cached")
	}
}

func TestResolve_PrefersSystemCopy(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(melee))
	}))
	defer srv.Close()
	f, _ := newFetcher(t, srv)

	root := t.TempDir()
	dirs := paths.Dirs{User: filepath.Join(root, "user"), Sys: filepath.Join(root, "sys")}
	os.MkdirAll(dirs.SysGameSettings(), 0o755)
	os.WriteFile(dirs.GenericGame("GALE01"), []byte(melee), 0o644)

	path, err := f.Resolve(context.Background(), dirs, "GALE01")
	if err != nil || path != "" {
		t.Errorf("Resolve = %q, %v; want system copy", path, err)
	}
	if hits.Load() != 0 {
		t.Error("system copy present but the network was used")
	}

	path, err = f.Resolve(context.Background(), dirs, "RMGE01")
	if err != nil || path == "" {
		t.Errorf("Resolve missing title = %q, %v", path, err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		body string
		ok   bool
	}{
		{"settings", melee, true},
		{"empty", "", true},
		{"html", "  <!DOCTYPE html>", false},
		{"prose", "just some words\nno sections here", false},
		{"binary", "\xff\xfe\x00", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate([]byte(tt.body))
			if (err == nil) != tt.ok {
				t.Errorf("validate(%q) = %v", strings.TrimSpace(tt.body), err)
			}
		})
	}
}
