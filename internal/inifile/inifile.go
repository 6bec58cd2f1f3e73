// Package inifile reads and writes a single settings file.
//
// The grammar is deliberately small. A trimmed line of the form [name] opens a
// section, repeating a header merges into the existing section, and every other
// line is split on its first '=' into a trimmed key and value. Lines before the
// first header are ignored. A line with no '=' is skipped and recorded as a
// [Diagnostic]; nothing in a file can make a load fail. '#' has no meaning.
//
// Values are typed on load with [setting.Infer] and written back with
// [setting.Value.Text], sections first and then keys in ascending order.
package inifile

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"tools.zach/dev/emuconf/internal/setting"
)

// ///////////////////////////////////////////////
// Errors
// ///////////////////////////////////////////////

// ErrIO wraps every failure to read or write the physical file.
var ErrIO = errors.New("settings file I/O")

// ErrMalformedLine marks a [Diagnostic]. It is never returned from Load.
var ErrMalformedLine = errors.New("malformed line")

// Diagnostic describes a line that was skipped during parsing.
type Diagnostic struct {
	// Path is the file the line came from, empty when parsed from a reader.
	Path string
	// Line is the 1-based line number.
	Line int
	// Text is the raw line content.
	Text string
	// Reason says what was wrong with the line.
	Reason string
}

// Error implements error so diagnostics can be logged and matched like errors.
func (d Diagnostic) Error() string {
	loc := fmt.Sprintf("line %d", d.Line)
	if d.Path != "" {
		loc = fmt.Sprintf("%s:%d", d.Path, d.Line)
	}
	return fmt.Sprintf("%s: %s: %s %q", loc, ErrMalformedLine, d.Reason, d.Text)
}

// Unwrap returns [ErrMalformedLine].
func (d Diagnostic) Unwrap() error { return ErrMalformedLine }

// ///////////////////////////////////////////////
// File
// ///////////////////////////////////////////////

// File is the in-memory image of one physical settings file.
type File struct {
	sections map[string]*setting.Section
	diags    []Diagnostic
}

// New returns an empty File.
func New() *File {
	return &File{sections: make(map[string]*setting.Section)}
}

// Section returns the named section.
func (f *File) Section(name string) (*setting.Section, bool) {
	sec, ok := f.sections[name]
	return sec, ok
}

// EnsureSection returns the named section, creating it if needed.
func (f *File) EnsureSection(name string) *setting.Section {
	sec, ok := f.sections[name]
	if !ok {
		sec = setting.NewSection(name)
		f.sections[name] = sec
	}
	return sec
}

// SectionNames returns every section name in ascending order.
func (f *File) SectionNames() []string {
	names := make([]string, 0, len(f.sections))
	for name := range f.sections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get returns the value stored at section/key.
func (f *File) Get(section, key string) (setting.Value, bool) {
	sec, ok := f.sections[section]
	if !ok {
		return setting.Value{}, false
	}
	s, ok := sec.Get(key)
	if !ok {
		return setting.Value{}, false
	}
	return s.Value(), true
}

// Set stores v at section/key, creating the section lazily.
func (f *File) Set(section, key string, v setting.Value) {
	f.EnsureSection(section).Put(key, v)
}

// Delete removes section/key and reports whether it existed. The section
// itself is kept even when it becomes empty.
func (f *File) Delete(section, key string) bool {
	sec, ok := f.sections[section]
	if !ok {
		return false
	}
	return sec.Delete(key)
}

// DeleteSection removes a whole section.
func (f *File) DeleteSection(name string) bool {
	if _, ok := f.sections[name]; !ok {
		return false
	}
	delete(f.sections, name)
	return true
}

// Len returns the total number of settings across all sections.
func (f *File) Len() int {
	n := 0
	for _, sec := range f.sections {
		n += sec.Len()
	}
	return n
}

// Diagnostics returns the lines skipped while parsing.
func (f *File) Diagnostics() []Diagnostic {
	return f.diags
}

// Equal reports whether both images hold the same sections, keys and values.
// Diagnostics are not compared.
func (f *File) Equal(o *File) bool {
	if len(f.sections) != len(o.sections) {
		return false
	}
	for name, sec := range f.sections {
		other, ok := o.sections[name]
		if !ok || !sec.Equal(other) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy without diagnostics.
func (f *File) Clone() *File {
	c := New()
	for name, sec := range f.sections {
		c.sections[name] = sec.Clone()
	}
	return c
}

// ///////////////////////////////////////////////
// Parsing
// ///////////////////////////////////////////////

// Load reads the file at path. A missing file yields an empty File and no
// error. Any other read failure yields an empty File and an error wrapping
// [ErrIO], so callers can keep going with defaults.
func Load(path string) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			slog.Debug("settings file absent, starting empty", "path", path)
			return New(), nil
		}
		return New(), fmt.Errorf("%w: open %s: %w", ErrIO, path, err)
	}
	defer fh.Close()

	f, err := parse(fh, path)
	if err != nil {
		return New(), fmt.Errorf("%w: read %s: %w", ErrIO, path, err)
	}
	slog.Debug("loaded settings file", "path", path, "sections", len(f.sections), "settings", f.Len())
	return f, nil
}

// Parse reads a settings image from r. The only possible error is a read
// failure from r itself, wrapped in [ErrIO].
func Parse(r io.Reader) (*File, error) {
	f, err := parse(r, "")
	if err != nil {
		return New(), fmt.Errorf("%w: %w", ErrIO, err)
	}
	return f, nil
}

// maxLine bounds a single line. Longer lines are skipped with a diagnostic.
const maxLine = 1024 * 1024

func parse(r io.Reader, path string) (*File, error) {
	// A BOM selects UTF-8 or UTF-16 decoding. Without one the bytes pass
	// through untouched so non-UTF-8 values survive a save.
	dec := transform.NewReader(r, unicode.BOMOverride(transform.Nop))

	f := New()
	var current *setting.Section
	br := bufio.NewReaderSize(dec, 64*1024)

	lineNo := 0
	for {
		raw, tooLong, err := readLine(br)
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
		if raw == "" && !tooLong && errors.Is(err, io.EOF) {
			break
		}
		lineNo++
		if tooLong {
			f.diagnose(path, lineNo, raw[:min(len(raw), 64)], "line too long")
		} else {
			current = f.parseLine(current, path, lineNo, raw)
		}
		if errors.Is(err, io.EOF) {
			break
		}
	}
	return f, nil
}

// readLine returns the next line without its terminator. A line over
// [maxLine] is drained and reported as too long, returning only its head.
func readLine(br *bufio.Reader) (string, bool, error) {
	var buf []byte
	tooLong := false
	for {
		chunk, err := br.ReadSlice('\n')
		if !tooLong {
			if len(buf)+len(chunk) > maxLine {
				tooLong = true
				buf = append(buf, chunk[:min(len(chunk), 64)]...)
			} else {
				buf = append(buf, chunk...)
			}
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		line := strings.TrimRight(string(buf), "\r\n")
		return line, tooLong, err
	}
}

func (f *File) parseLine(current *setting.Section, path string, lineNo int, raw string) *setting.Section {
	line := strings.TrimSpace(raw)
	if line == "" {
		return current
	}

	if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
		name := line[1 : len(line)-1]
		if name == "" {
			f.diagnose(path, lineNo, raw, "empty section name")
			return nil
		}
		return f.EnsureSection(name)
	}

	if current == nil {
		return nil
	}

	key, value, found := strings.Cut(line, "=")
	if !found {
		f.diagnose(path, lineNo, raw, "missing '='")
		return current
	}
	key = strings.TrimSpace(key)
	if key == "" {
		f.diagnose(path, lineNo, raw, "empty key")
		return current
	}
	current.Put(key, setting.Infer(strings.TrimSpace(value)))
	return current
}

func (f *File) diagnose(path string, line int, text, reason string) {
	d := Diagnostic{Path: path, Line: line, Text: text, Reason: reason}
	f.diags = append(f.diags, d)
	slog.Warn("skipping malformed settings line", "path", path, "line", line, "reason", reason)
}

// ///////////////////////////////////////////////
// Serialization
// ///////////////////////////////////////////////

// Bytes renders the image in its on-disk form.
func (f *File) Bytes() []byte {
	var buf bytes.Buffer
	for _, name := range f.SectionNames() {
		sec := f.sections[name]
		buf.WriteString("[" + name + "]\n")
		for _, key := range sec.Keys() {
			s, _ := sec.Get(key)
			buf.WriteString(key + " = " + s.Value().Text() + "\n")
		}
	}
	return buf.Bytes()
}

// WriteTo writes the on-disk form to w.
func (f *File) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(f.Bytes())
	return int64(n), err
}

// Save overwrites path with the image, creating parent directories. The file
// is written in place; a crash mid-write can leave it truncated. Callers that
// need atomic replacement render with [File.WriteTo] into a temp file and
// rename it themselves.
func (f *File) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("%w: create directory for %s: %w", ErrIO, path, err)
	}
	fh, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: create %s: %w", ErrIO, path, err)
	}
	if _, err := f.WriteTo(fh); err != nil {
		fh.Close()
		return fmt.Errorf("%w: write %s: %w", ErrIO, path, err)
	}
	if err := fh.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %w", ErrIO, path, err)
	}
	slog.Debug("saved settings file", "path", path, "sections", len(f.sections))
	return nil
}
