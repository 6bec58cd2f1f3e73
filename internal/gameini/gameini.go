// Package gameini downloads generic per-title settings files when the
// emulator's system directory does not ship them.
//
// A download is validated as text, cached in emuconf's data directory, and
// reused when the network is unavailable.
package gameini

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hashicorp/go-retryablehttp"

	"tools.zach/dev/emuconf/internal/atomicfile"
	"tools.zach/dev/emuconf/internal/inifile"
	"tools.zach/dev/emuconf/internal/paths"
)

// maxBodyBytes bounds a downloaded settings file.
const maxBodyBytes = 1 << 20

// ErrNotFound is returned when the source has no file for a title.
var ErrNotFound = errors.New("no generic settings published for title")

// ErrStale is returned alongside a cached path when the download failed.
var ErrStale = errors.New("using cached generic settings")

// ///////////////////////////////////////////////
// Fetcher
// ///////////////////////////////////////////////

// Options configures a [Fetcher].
type Options struct {
	// URLFor maps a game ID to its download URL.
	URLFor func(gameID string) string
	// Cache is emuconf's data directory.
	Cache paths.DataDir
	// Timeout bounds one attempt.
	Timeout time.Duration
	// Retries is how many times a failed attempt is retried.
	Retries int
}

// Fetcher downloads and caches generic game files.
type Fetcher struct {
	urlFor func(string) string
	cache  paths.DataDir
	client *retryablehttp.Client
}

// New returns a Fetcher.
func New(opts Options) *Fetcher {
	client := retryablehttp.NewClient()
	client.RetryMax = opts.Retries
	client.RetryWaitMin = 200 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	client.HTTPClient.Timeout = opts.Timeout
	if client.HTTPClient.Timeout <= 0 {
		client.HTTPClient.Timeout = 10 * time.Second
	}
	client.Logger = nil
	return &Fetcher{urlFor: opts.URLFor, cache: opts.Cache, client: client}
}

// Resolve returns the file the generic layer should read for gameID. An
// empty path means the system directory's own copy exists and should be
// used. Otherwise the title is downloaded, or read from the cache when the
// download fails, in which case the returned error wraps [ErrStale].
func (f *Fetcher) Resolve(ctx context.Context, dirs paths.Dirs, gameID string) (string, error) {
	if _, err := os.Stat(dirs.GenericGame(gameID)); err == nil {
		return "", nil
	}
	return f.Fetch(ctx, gameID)
}

// Fetch downloads gameID's generic file into the cache and returns its path.
// When the download fails but a cached copy exists, the cached path is
// returned with an error wrapping [ErrStale] and the download error.
func (f *Fetcher) Fetch(ctx context.Context, gameID string) (string, error) {
	path := f.cache.GenericCacheFile(gameID)

	body, err := f.download(ctx, gameID)
	if err == nil {
		if werr := atomicfile.Write(path, body, 0o644); werr != nil {
			return "", fmt.Errorf("caching generic settings: %w", werr)
		}
		slog.Info("downloaded generic settings", "game", gameID, "path", path, "bytes", len(body))
		return path, nil
	}
	if errors.Is(err, ErrNotFound) {
		return "", err
	}

	if _, statErr := os.Stat(path); statErr == nil {
		slog.Warn("generic settings download failed, using cache", "game", gameID, "error", err)
		return path, fmt.Errorf("%w: %w", ErrStale, err)
	}
	return "", fmt.Errorf("fetching generic settings for %s: %w", gameID, err)
}

func (f *Fetcher) download(ctx context.Context, gameID string) ([]byte, error) {
	url := f.urlFor(gameID)
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "text/plain")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, paths.GenericID(gameID))
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", url, err)
	}
	if len(body) > maxBodyBytes {
		return nil, fmt.Errorf("response from %s exceeds %d bytes", url, maxBodyBytes)
	}
	if err := validate(body); err != nil {
		return nil, fmt.Errorf("response from %s: %w", url, err)
	}
	return body, nil
}

// validate rejects bodies that are clearly not a settings file, such as an
// HTML error page served with status 200.
func validate(body []byte) error {
	if !utf8.Valid(body) {
		return errors.New("not UTF-8 text")
	}
	trimmed := strings.TrimSpace(string(body))
	if strings.HasPrefix(trimmed, "<") {
		return errors.New("looks like markup, not a settings file")
	}
	file, err := inifile.Parse(bytes.NewReader(body))
	if err != nil {
		return err
	}
	if trimmed != "" && len(file.SectionNames()) == 0 {
		return errors.New("no sections")
	}
	return nil
}
