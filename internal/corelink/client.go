// Package corelink talks to a running emulator core over its local IPC
// endpoint: a Unix socket named emucore-ipc-N, or the named pipe
// \\.\pipe\emucore-ipc-N on Windows.
//
// Every frame is [4-byte LE opcode][4-byte LE length][JSON]. After a
// handshake the client sends commands and waits for the matching reply.
// [Client] implements resolver.Runtime.
package corelink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"sync"
	"time"

	"tools.zach/dev/emuconf/internal/resolver"
)

// ///////////////////////////////////////////////
// Sentinel Errors
// ///////////////////////////////////////////////

// ErrNotConnected is returned when a command is sent without a connection.
var ErrNotConnected = errors.New("not connected")

// ErrRejected is returned when the core answers a command with an error.
var ErrRejected = errors.New("command rejected by core")

// ///////////////////////////////////////////////
// Wire Types
// ///////////////////////////////////////////////

// Command names understood by the core.
const (
	CmdReloadConfig   = "RELOAD_CONFIG"
	CmdSetUserSetting = "SET_USER_SETTING"
)

type handshake struct {
	V      int    `json:"v"`
	Client string `json:"client"`
	PID    int    `json:"pid"`
}

type command struct {
	Cmd   string `json:"cmd"`
	Args  any    `json:"args,omitempty"`
	Nonce string `json:"nonce"`
}

// UserSetting is the argument of SET_USER_SETTING.
type UserSetting struct {
	GameID  string `json:"game_id"`
	Section string `json:"section"`
	Key     string `json:"key"`
	Value   string `json:"value"`
}

type reply struct {
	Cmd   string          `json:"cmd"`
	Evt   string          `json:"evt,omitempty"`
	Nonce string          `json:"nonce,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type errorData struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// rejection extracts an ERROR event's message, if r is one.
func (r reply) rejection() error {
	if r.Evt != "ERROR" {
		return nil
	}
	var d errorData
	_ = json.Unmarshal(r.Data, &d)
	return fmt.Errorf("%w: %s (code %d)", ErrRejected, d.Message, d.Code)
}

// ///////////////////////////////////////////////
// Client
// ///////////////////////////////////////////////

// DialFunc opens a raw connection to a core endpoint.
type DialFunc func(ctx context.Context) (net.Conn, error)

// Options configures a [Client].
type Options struct {
	// Name identifies this client in the handshake.
	Name string
	// Instance is the first endpoint slot probed.
	Instance int
	// Timeout bounds each dial and each command round trip.
	Timeout time.Duration
	// Dial overrides endpoint discovery.
	Dial DialFunc
}

// Client is a connection to one core. It connects lazily on the first
// command and reconnects after a failed round trip.
type Client struct {
	name    string
	timeout time.Duration
	dial    DialFunc

	mu    sync.Mutex
	conn  net.Conn
	nonce uint64
}

var _ resolver.Runtime = (*Client)(nil)

// New returns an unconnected client.
func New(opts Options) *Client {
	c := &Client{name: opts.Name, timeout: opts.Timeout, dial: opts.Dial}
	if c.name == "" {
		c.name = "emuconf"
	}
	if c.timeout <= 0 {
		c.timeout = 500 * time.Millisecond
	}
	if c.dial == nil {
		first, timeout := opts.Instance, c.timeout
		c.dial = func(ctx context.Context) (net.Conn, error) {
			return dialCore(ctx, first, timeout)
		}
	}
	return c
}

// Connect dials the core and performs the handshake, replacing any
// existing connection.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connect(ctx)
}

// Connected reports whether a connection is open.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Close sends a close frame and drops the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	_ = WriteFrame(c.conn, OpClose, []byte(`{}`))
	err := c.conn.Close()
	c.conn = nil
	return err
}

// ReloadConfig asks the core to re-read its settings files.
func (c *Client) ReloadConfig() error {
	return c.Do(context.Background(), CmdReloadConfig, nil)
}

// SetUserSetting stores one value in the core's per-game settings.
func (c *Client) SetUserSetting(gameID, section, key, value string) error {
	return c.Do(context.Background(), CmdSetUserSetting, UserSetting{
		GameID: gameID, Section: section, Key: key, Value: value,
	})
}

// Do sends cmd with args and waits for the reply carrying the same nonce.
func (c *Client) Do(ctx context.Context, cmd string, args any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		if err := c.connect(ctx); err != nil {
			return err
		}
	}
	err := c.roundTrip(cmd, args)
	if err != nil && !errors.Is(err, ErrRejected) {
		slog.Debug("dropping core connection", "cmd", cmd, "error", err)
		c.conn.Close()
		c.conn = nil
	}
	return err
}

// connect must be called with c.mu held.
func (c *Client) connect(ctx context.Context) error {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	conn, err := c.dial(ctx)
	if err != nil {
		return err
	}
	c.conn = conn
	if err := c.handshake(); err != nil {
		c.conn.Close()
		c.conn = nil
		return err
	}
	slog.Debug("connected to emulator core", "addr", conn.RemoteAddr())
	return nil
}

// handshake must be called with c.mu held and c.conn set.
func (c *Client) handshake() error {
	payload, err := json.Marshal(handshake{V: 1, Client: c.name, PID: os.Getpid()})
	if err != nil {
		return fmt.Errorf("marshaling handshake: %w", err)
	}
	c.conn.SetDeadline(time.Now().Add(c.timeout))
	defer c.conn.SetDeadline(time.Time{})

	if err := WriteFrame(c.conn, OpHandshake, payload); err != nil {
		return fmt.Errorf("handshake: %w", err)
	}
	op, data, err := ReadFrame(c.conn)
	if err != nil {
		return fmt.Errorf("reading handshake response: %w", err)
	}
	if op != OpFrame {
		return fmt.Errorf("unexpected handshake response opcode: %d", op)
	}
	var r reply
	if err := json.Unmarshal(data, &r); err != nil {
		return fmt.Errorf("parsing handshake response: %w", err)
	}
	if err := r.rejection(); err != nil {
		return fmt.Errorf("handshake: %w", err)
	}
	return nil
}

// roundTrip must be called with c.mu held and c.conn set.
func (c *Client) roundTrip(cmd string, args any) error {
	c.nonce++
	nonce := strconv.FormatUint(c.nonce, 10)
	payload, err := json.Marshal(command{Cmd: cmd, Args: args, Nonce: nonce})
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", cmd, err)
	}

	c.conn.SetDeadline(time.Now().Add(c.timeout))
	defer c.conn.SetDeadline(time.Time{})

	if err := WriteFrame(c.conn, OpFrame, payload); err != nil {
		return fmt.Errorf("%s: %w", cmd, err)
	}
	for {
		op, data, err := ReadFrame(c.conn)
		if err != nil {
			return fmt.Errorf("%s: %w", cmd, err)
		}
		if op == OpClose {
			return fmt.Errorf("%s: %w", cmd, ErrNotConnected)
		}
		var r reply
		if err := json.Unmarshal(data, &r); err != nil {
			return fmt.Errorf("%s: parsing reply: %w", cmd, err)
		}
		if r.Nonce != nonce {
			// Unsolicited events are not acted on.
			continue
		}
		return r.rejection()
	}
}
