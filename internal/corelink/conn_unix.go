//go:build !windows

package corelink

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"
)

// socketPaths lists candidate sockets from slot first onwards, preferring
// $XDG_RUNTIME_DIR over /tmp.
func socketPaths(first int) []string {
	var dirs []string
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		dirs = append(dirs, dir)
	}
	dirs = append(dirs, os.TempDir())
	if os.TempDir() != "/tmp" {
		dirs = append(dirs, "/tmp")
	}

	var out []string
	for _, dir := range dirs {
		for i := max(first, 0); i < slotCount; i++ {
			out = append(out, filepath.Join(dir, fmt.Sprintf("emucore-ipc-%d", i)))
		}
	}
	return out
}

func dialCore(ctx context.Context, first int, timeout time.Duration) (net.Conn, error) {
	d := net.Dialer{Timeout: timeout}
	for _, path := range socketPaths(first) {
		conn, err := d.DialContext(ctx, "unix", path)
		if err == nil {
			return conn, nil
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", ErrIPCNotAvailable, ctx.Err())
		}
	}
	return nil, ErrIPCNotAvailable
}
