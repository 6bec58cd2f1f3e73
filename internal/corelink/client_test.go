package corelink

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"
)

// ///////////////////////////////////////////////
// Fake core
// ///////////////////////////////////////////////

// fakeCore serves one connection: it answers the handshake with READY and
// hands every command to respond.
type fakeCore struct {
	t        *testing.T
	commands chan command
	respond  func(cmd command) []reply
}

func (f *fakeCore) serve(conn net.Conn) {
	defer conn.Close()
	op, data, err := ReadFrame(conn)
	if err != nil || op != OpHandshake {
		return
	}
	var hs handshake
	if err := json.Unmarshal(data, &hs); err != nil || hs.V != 1 {
		f.send(conn, reply{Cmd: "DISPATCH", Evt: "ERROR", Data: json.RawMessage(`{"code":4000,"message":"bad handshake"}`)})
		return
	}
	f.send(conn, reply{Cmd: "DISPATCH", Evt: "READY"})

	for {
		op, data, err := ReadFrame(conn)
		if err != nil || op == OpClose {
			return
		}
		var cmd command
		if err := json.Unmarshal(data, &cmd); err != nil {
			return
		}
		f.commands <- cmd
		for _, r := range f.respond(cmd) {
			f.send(conn, r)
		}
	}
}

func (f *fakeCore) send(conn net.Conn, r reply) {
	payload, _ := json.Marshal(r)
	if err := WriteFrame(conn, OpFrame, payload); err != nil {
		f.t.Logf("fake core write: %v", err)
	}
}

func ack(cmd command) []reply {
	return []reply{{Cmd: cmd.Cmd, Nonce: cmd.Nonce}}
}

// newPipeClient returns a client whose every dial reaches a fresh fake core.
func newPipeClient(t *testing.T, respond func(command) []reply) (*Client, chan command, *int) {
	t.Helper()
	commands := make(chan command, 16)
	dials := new(int)
	c := New(Options{
		Timeout: 2 * time.Second,
		Dial: func(ctx context.Context) (net.Conn, error) {
			*dials++
			server, client := net.Pipe()
			core := &fakeCore{t: t, commands: commands, respond: respond}
			go core.serve(server)
			return client, nil
		},
	})
	t.Cleanup(func() { c.Close() })
	return c, commands, dials
}

// ///////////////////////////////////////////////
// Tests
// ///////////////////////////////////////////////

func TestClient_ReloadConfig(t *testing.T) {
	c, commands, _ := newPipeClient(t, ack)

	if err := c.ReloadConfig(); err != nil {
		t.Fatalf("ReloadConfig: %v", err)
	}
	got := <-commands
	if got.Cmd != CmdReloadConfig {
		t.Errorf("cmd = %q", got.Cmd)
	}
	if !c.Connected() {
		t.Error("client should stay connected after a successful command")
	}
}

func TestClient_SetUserSetting(t *testing.T) {
	c, commands, _ := newPipeClient(t, ack)

	if err := c.SetUserSetting("GALE01", "Video_Settings", "AspectRatio", "2"); err != nil {
		t.Fatalf("SetUserSetting: %v", err)
	}
	got := <-commands
	if got.Cmd != CmdSetUserSetting {
		t.Fatalf("cmd = %q", got.Cmd)
	}
	raw, _ := json.Marshal(got.Args)
	var args UserSetting
	if err := json.Unmarshal(raw, &args); err != nil {
		t.Fatal(err)
	}
	want := UserSetting{GameID: "GALE01", Section: "Video_Settings", Key: "AspectRatio", Value: "2"}
	if args != want {
		t.Errorf("args = %+v, want %+v", args, want)
	}
}

func TestClient_NoncesIncrease(t *testing.T) {
	c, commands, dials := newPipeClient(t, ack)
	seen := map[string]bool{}
	for range 5 {
		if err := c.ReloadConfig(); err != nil {
			t.Fatalf("ReloadConfig: %v", err)
		}
		n := (<-commands).Nonce
		if seen[n] {
			t.Errorf("nonce %q reused", n)
		}
		seen[n] = true
	}
	if *dials != 1 {
		t.Errorf("dialed %d times, want 1", *dials)
	}
}

func TestClient_SkipsUnsolicitedEvents(t *testing.T) {
	c, _, _ := newPipeClient(t, func(cmd command) []reply {
		return []reply{
			{Cmd: "DISPATCH", Evt: "GAME_STARTED"},
			{Cmd: cmd.Cmd, Nonce: cmd.Nonce},
		}
	})
	if err := c.ReloadConfig(); err != nil {
		t.Fatalf("ReloadConfig: %v", err)
	}
}

func TestClient_Rejected(t *testing.T) {
	c, _, dials := newPipeClient(t, func(cmd command) []reply {
		return []reply{{
			Cmd: cmd.Cmd, Nonce: cmd.Nonce, Evt: "ERROR",
			Data: json.RawMessage(`{"code":4004,"message":"no game running"}`),
		}}
	})
	err := c.SetUserSetting("GALE01", "Core", "CPUThread", "True")
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("err = %v, want ErrRejected", err)
	}
	if !c.Connected() {
		t.Error("a rejection must not drop the connection")
	}
	if err := c.ReloadConfig(); !errors.Is(err, ErrRejected) {
		t.Errorf("second command: %v", err)
	}
	if *dials != 1 {
		t.Errorf("dialed %d times, want 1", *dials)
	}
}

func TestClient_ReconnectsAfterBrokenConnection(t *testing.T) {
	var calls atomic.Int32
	c, _, dials := newPipeClient(t, func(cmd command) []reply {
		if calls.Add(1) == 1 {
			return nil
		}
		return ack(cmd)
	})
	c.timeout = 200 * time.Millisecond

	if err := c.ReloadConfig(); err == nil {
		t.Fatal("expected a timeout when the core never answers")
	}
	if c.Connected() {
		t.Fatal("a failed round trip must drop the connection")
	}
	if err := c.ReloadConfig(); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if *dials != 2 {
		t.Errorf("dialed %d times, want 2", *dials)
	}
}

func TestClient_DialFailure(t *testing.T) {
	c := New(Options{Dial: func(context.Context) (net.Conn, error) {
		return nil, ErrIPCNotAvailable
	}})
	if err := c.ReloadConfig(); !errors.Is(err, ErrIPCNotAvailable) {
		t.Errorf("err = %v, want ErrIPCNotAvailable", err)
	}
	if c.Connected() {
		t.Error("client must not report a connection")
	}
}

func TestClient_HandshakeRejected(t *testing.T) {
	c := New(Options{Dial: func(context.Context) (net.Conn, error) {
		server, client := net.Pipe()
		go func() {
			defer server.Close()
			if _, _, err := ReadFrame(server); err != nil {
				return
			}
			payload, _ := json.Marshal(reply{Cmd: "DISPATCH", Evt: "ERROR", Data: json.RawMessage(`{"code":4000,"message":"busy"}`)})
			WriteFrame(server, OpFrame, payload)
		}()
		return client, nil
	}})
	err := c.Connect(context.Background())
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("err = %v, want ErrRejected", err)
	}
	if c.Connected() {
		t.Error("failed handshake must not leave a connection")
	}
}

func TestClient_CloseWithoutConnection(t *testing.T) {
	if err := New(Options{}).Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}
