// Package logger configures emuconf's structured logging.
//
// Every line has the form
//
//	2006-01-02T15:04:05.000Z [LEVEL] message | key=value, key2=value2
//
// and is written to a size-rotated file, optionally mirrored to stderr at its
// own level. Two levels extend the slog set: LevelTrace (-8) for per-line
// parser chatter and LevelFail (12) for errors that end the command.
package logger

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// ///////////////////////////////////////////////
// Levels
// ///////////////////////////////////////////////

const (
	LevelTrace slog.Level = -8
	LevelDebug slog.Level = slog.LevelDebug
	LevelInfo  slog.Level = slog.LevelInfo
	LevelWarn  slog.Level = slog.LevelWarn
	LevelError slog.Level = slog.LevelError
	LevelFail  slog.Level = 12
)

var levelNames = []struct {
	level slog.Level
	name  string
}{
	{LevelTrace, "TRACE"},
	{LevelDebug, "DEBUG"},
	{LevelInfo, "INFO"},
	{LevelWarn, "WARN"},
	{LevelError, "ERROR"},
	{LevelFail, "FAIL"},
}

// levelName rounds l up to the nearest named level.
func levelName(l slog.Level) string {
	for _, ln := range levelNames {
		if l <= ln.level {
			return ln.name
		}
	}
	return "FAIL"
}

// ParseLevel converts a case-insensitive level name. Unknown names report
// false and yield LevelInfo.
func ParseLevel(s string) (slog.Level, bool) {
	for _, ln := range levelNames {
		if strings.EqualFold(s, ln.name) {
			return ln.level, true
		}
	}
	return LevelInfo, false
}

// ///////////////////////////////////////////////
// LineHandler
// ///////////////////////////////////////////////

// lineEnding is CRLF on Windows so the log opens cleanly in Notepad.
var lineEnding = func() string {
	if runtime.GOOS == "windows" {
		return "\r\n"
	}
	return "\n"
}()

// LineHandler is a slog.Handler producing one human-readable line per record.
type LineHandler struct {
	w     io.Writer
	mu    *sync.Mutex
	level slog.Leveler
	// prefix is the dotted group path applied to attribute keys.
	prefix string
	// attrs are pre-rendered "key=value" pairs from WithAttrs.
	attrs []string
}

// NewLineHandler writes records at or above level to w.
func NewLineHandler(w io.Writer, level slog.Leveler) *LineHandler {
	return &LineHandler{w: w, mu: &sync.Mutex{}, level: level}
}

// Enabled implements slog.Handler.
func (h *LineHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle implements slog.Handler.
func (h *LineHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	b.WriteString(r.Time.UTC().Format("2006-01-02T15:04:05.000Z"))
	b.WriteString(" [")
	b.WriteString(levelName(r.Level))
	b.WriteString("] ")
	b.WriteString(r.Message)

	pairs := append([]string(nil), h.attrs...)
	r.Attrs(func(a slog.Attr) bool {
		pairs = appendAttr(pairs, h.prefix, a)
		return true
	})
	if len(pairs) > 0 {
		b.WriteString(" | ")
		b.WriteString(strings.Join(pairs, ", "))
	}
	b.WriteString(lineEnding)

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

// WithAttrs implements slog.Handler.
func (h *LineHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.attrs = append([]string(nil), h.attrs...)
	for _, a := range attrs {
		c.attrs = appendAttr(c.attrs, h.prefix, a)
	}
	return &c
}

// WithGroup implements slog.Handler.
func (h *LineHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := *h
	c.prefix = h.prefix + name + "."
	return &c
}

// appendAttr renders a, flattening group values into dotted keys.
func appendAttr(pairs []string, prefix string, a slog.Attr) []string {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return pairs
	}
	if a.Value.Kind() == slog.KindGroup {
		sub := prefix
		if a.Key != "" {
			sub = prefix + a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			pairs = appendAttr(pairs, sub, ga)
		}
		return pairs
	}
	return append(pairs, prefix+a.Key+"="+formatValue(a.Value.String()))
}

// formatValue quotes values that would make a line ambiguous, such as paths
// containing spaces or commas.
func formatValue(s string) string {
	if s == "" || strings.ContainsAny(s, " ,=|\"\r\n\t") {
		return strconv.Quote(s)
	}
	return s
}

// ///////////////////////////////////////////////
// Fan-out
// ///////////////////////////////////////////////

// tee forwards records to every handler that accepts them.
type tee []slog.Handler

func (t tee) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (t tee) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range t {
		if h.Enabled(ctx, r.Level) {
			errs = append(errs, h.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (t tee) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(tee, len(t))
	for i, h := range t {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (t tee) WithGroup(name string) slog.Handler {
	out := make(tee, len(t))
	for i, h := range t {
		out[i] = h.WithGroup(name)
	}
	return out
}

// ///////////////////////////////////////////////
// Constructor
// ///////////////////////////////////////////////

// Options configures [New].
type Options struct {
	// Path is the log file. Empty disables file logging.
	Path string
	// Level is the minimum level written to the file.
	Level slog.Level
	// MaxSizeMB rotates the file once it reaches this size.
	MaxSizeMB int
	// MaxBackups is how many rotated files are kept.
	MaxBackups int
	// Console, when non-nil, also receives records at ConsoleLevel or above.
	Console      io.Writer
	ConsoleLevel slog.Level
}

// nopCloser is returned when no file is open.
type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New builds a logger from opts. The returned io.Closer flushes and closes the
// log file.
func New(opts Options) (*slog.Logger, io.Closer, error) {
	var handlers tee
	var closer io.Closer = nopCloser{}

	if opts.Path != "" {
		if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
			return nil, nil, fmt.Errorf("creating log directory: %w", err)
		}
		maxSize := opts.MaxSizeMB
		if maxSize <= 0 {
			maxSize = 5
		}
		backups := opts.MaxBackups
		if backups <= 0 {
			backups = 3
		}
		lj := &lumberjack.Logger{
			Filename:   opts.Path,
			MaxSize:    maxSize,
			MaxBackups: backups,
			MaxAge:     28,
		}
		handlers = append(handlers, NewLineHandler(lj, opts.Level))
		closer = lj
	}
	if opts.Console != nil {
		handlers = append(handlers, NewLineHandler(opts.Console, opts.ConsoleLevel))
	}

	switch len(handlers) {
	case 0:
		return slog.New(slog.DiscardHandler), closer, nil
	case 1:
		return slog.New(handlers[0]), closer, nil
	default:
		return slog.New(handlers), closer, nil
	}
}

// Trace logs at LevelTrace.
func Trace(logger *slog.Logger, msg string, args ...any) {
	logger.Log(context.Background(), LevelTrace, msg, args...)
}

// Fail logs at LevelFail.
func Fail(logger *slog.Logger, msg string, args ...any) {
	logger.Log(context.Background(), LevelFail, msg, args...)
}

// ///////////////////////////////////////////////
// ReadTail
// ///////////////////////////////////////////////

// ReadTail returns up to the last n lines of the file at path, oldest first.
func ReadTail(path string, n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	ring := make([]string, n)
	count := 0
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		ring[count%n] = strings.TrimRight(sc.Text(), "\r")
		count++
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if count <= n {
		return ring[:count], nil
	}
	start := count % n
	return append(ring[start:], ring[:start]...), nil
}
