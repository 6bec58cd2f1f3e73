//go:build windows

package corelink

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/Microsoft/go-winio"
)

func dialCore(ctx context.Context, first int, timeout time.Duration) (net.Conn, error) {
	for i := max(first, 0); i < slotCount; i++ {
		attempt, cancel := context.WithTimeout(ctx, timeout)
		conn, err := winio.DialPipeContext(attempt, fmt.Sprintf(`\\.\pipe\emucore-ipc-%d`, i))
		cancel()
		if err == nil {
			return conn, nil
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", ErrIPCNotAvailable, ctx.Err())
		}
	}
	return nil, ErrIPCNotAvailable
}
