// Package resolver resolves settings across the custom-game, generic-game and
// global layers.
//
// Reads walk the present layers in priority order and return the first hit;
// a key defined nowhere yields the caller's default. Writes land in the
// topmost present layer only, so a per-game change never alters the global
// files. Nothing is written to disk until [Resolver.Flush] or
// [Resolver.FlushLayer] is called.
//
// A Resolver is not safe for concurrent use. Callers serialize access,
// including keeping writes away from a layer while it is being flushed.
package resolver

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"tools.zach/dev/emuconf/internal/inifile"
	"tools.zach/dev/emuconf/internal/paths"
	"tools.zach/dev/emuconf/internal/sections"
	"tools.zach/dev/emuconf/internal/setting"
)

// ///////////////////////////////////////////////
// Sentinel Errors
// ///////////////////////////////////////////////

// ErrInvalidAddress is returned when a section, key or value cannot be
// represented in a settings file.
var ErrInvalidAddress = errors.New("invalid setting address")

// ErrNoGame is returned by operations that need a game context.
var ErrNoGame = errors.New("no game context")

// ErrNoRuntime is returned by [Resolver.Commit] when no runtime is configured.
var ErrNoRuntime = errors.New("no runtime configured")

// ErrUnset is returned by [Resolver.Commit] when no layer defines the key.
var ErrUnset = errors.New("setting not defined in any layer")

// ErrDirtyLoad is returned when flushing a file that failed to load; writing
// the empty stand-in image would erase whatever the file held.
var ErrDirtyLoad = errors.New("file was not read cleanly")

// ///////////////////////////////////////////////
// Options
// ///////////////////////////////////////////////

// SaveFunc writes a file image to path.
type SaveFunc func(f *inifile.File, path string) error

// Options configures a [Resolver].
type Options struct {
	// Dirs locates the settings tree.
	Dirs paths.Dirs
	// GameID enables the per-game layers when non-empty.
	GameID string
	// GenericPath overrides the generic-game file location, for example with
	// a downloaded copy. Empty uses [paths.Dirs.GenericGame].
	GenericPath string
	// Translator maps canonical section names for the custom-game layer.
	// Nil uses [sections.Default].
	Translator *sections.Translator
	// Policies drives the typed accessors. The zero value uses
	// [DefaultPolicies].
	Policies Policies
	// Runtime is notified after flushes and receives commits. May be nil.
	Runtime Runtime
	// Seeds are applied to global files that lack them on first load. They
	// are skipped while a game is selected so per-game sessions never write
	// the global layer.
	Seeds []Seed
	// Save writes files during a flush. Nil uses [inifile.File.Save].
	Save SaveFunc
}

// ///////////////////////////////////////////////
// Resolver
// ///////////////////////////////////////////////

// layerFile is one lazily loaded physical file.
type layerFile struct {
	layer Layer
	// id is only meaningful for global files.
	id   FileID
	path string

	// img is nil until the first touch.
	img *inifile.File
	// loadErr is the I/O error from the last load, if any.
	loadErr error
	// dirty is set by writes and seeds, cleared by a successful flush.
	dirty bool
}

// Resolver owns the layer images for one game context.
type Resolver struct {
	gameID     string
	translator *sections.Translator
	policies   Policies
	runtime    Runtime
	seeds      []Seed
	save       SaveFunc

	custom  *layerFile
	generic *layerFile
	global  map[FileID]*layerFile
}

// New creates a resolver. No file is read until it is first needed.
func New(opts Options) *Resolver {
	r := &Resolver{
		gameID:     opts.GameID,
		translator: opts.Translator,
		policies:   opts.Policies,
		runtime:    opts.Runtime,
		seeds:      opts.Seeds,
		save:       opts.Save,
		global:     make(map[FileID]*layerFile, len(FileIDs())),
	}
	if r.translator == nil {
		r.translator = sections.Default()
	}
	if r.policies.byKey == nil {
		r.policies = DefaultPolicies()
	}
	if r.save == nil {
		r.save = func(f *inifile.File, path string) error { return f.Save(path) }
	}

	for _, id := range FileIDs() {
		r.global[id] = &layerFile{layer: LayerGlobal, id: id, path: opts.Dirs.Global(id.String())}
	}
	if opts.GameID != "" {
		r.custom = &layerFile{layer: LayerCustomGame, path: opts.Dirs.CustomGame(opts.GameID)}
		genericPath := opts.GenericPath
		if genericPath == "" {
			genericPath = opts.Dirs.GenericGame(opts.GameID)
		}
		r.generic = &layerFile{layer: LayerGenericGame, path: genericPath}
	}
	return r
}

// GameID returns the active game, or "" for global-only resolution.
func (r *Resolver) GameID() string { return r.gameID }

// Translator returns the section table used for the custom-game layer.
func (r *Resolver) Translator() *sections.Translator { return r.translator }

// Policies returns the policy table used by the typed accessors.
func (r *Resolver) Policies() Policies { return r.policies }

// Layers reports the present layers in priority order.
func (r *Resolver) Layers() []Layer {
	if r.gameID == "" {
		return []Layer{LayerGlobal}
	}
	return []Layer{LayerCustomGame, LayerGenericGame, LayerGlobal}
}

// Path returns the physical file backing layer for file.
func (r *Resolver) Path(layer Layer, file FileID) (string, error) {
	lf, err := r.layerFile(layer, file)
	if err != nil {
		return "", err
	}
	return lf.path, nil
}

// Paths returns every physical file the resolver may read, in priority order.
func (r *Resolver) Paths() []string {
	var out []string
	if r.custom != nil {
		out = append(out, r.custom.path, r.generic.path)
	}
	for _, id := range FileIDs() {
		out = append(out, r.global[id].path)
	}
	return out
}

// layerFile selects the file for layer. file is ignored by per-game layers.
func (r *Resolver) layerFile(layer Layer, file FileID) (*layerFile, error) {
	switch layer {
	case LayerCustomGame:
		if r.custom == nil {
			return nil, ErrNoGame
		}
		return r.custom, nil
	case LayerGenericGame:
		if r.generic == nil {
			return nil, ErrNoGame
		}
		return r.generic, nil
	case LayerGlobal:
		lf, ok := r.global[file]
		if !ok {
			return nil, fmt.Errorf("unknown settings file %s", file)
		}
		return lf, nil
	default:
		return nil, fmt.Errorf("unknown layer %s", layer)
	}
}

// chain returns the files consulted for file, highest priority first.
func (r *Resolver) chain(file FileID) []*layerFile {
	global := r.global[file]
	if r.custom == nil {
		return []*layerFile{global}
	}
	return []*layerFile{r.custom, r.generic, global}
}

// top returns the file writes for file land in.
func (r *Resolver) top(file FileID) *layerFile {
	if r.custom != nil {
		return r.custom
	}
	return r.global[file]
}

// sectionFor translates a canonical section name for lf's layer.
func (r *Resolver) sectionFor(lf *layerFile, canonical string) string {
	if lf.layer == LayerCustomGame {
		return r.translator.ToPhysical(canonical)
	}
	return canonical
}

// image returns lf's contents, loading them on first use.
func (r *Resolver) image(lf *layerFile) *inifile.File {
	if lf.img != nil {
		return lf.img
	}
	img, err := inifile.Load(lf.path)
	if err != nil {
		slog.Warn("settings file unreadable, using empty image", "layer", lf.layer, "path", lf.path, "error", err)
	}
	lf.img = img
	lf.loadErr = err
	lf.dirty = false
	if lf.layer == LayerGlobal && r.gameID == "" {
		if n := r.applySeeds(lf); n > 0 {
			lf.dirty = true
			slog.Debug("seeded settings file", "path", lf.path, "count", n)
		}
	}
	return img
}

// ///////////////////////////////////////////////
// Raw Access
// ///////////////////////////////////////////////

// Get returns the effective value of file/section/key, or def when no layer
// defines it. Get never fails and never modifies a layer.
func (r *Resolver) Get(file FileID, section, key string, def setting.Value) setting.Value {
	if v, _, ok := r.Lookup(file, section, key); ok {
		return v
	}
	return def
}

// Lookup returns the effective value and the layer that supplied it.
func (r *Resolver) Lookup(file FileID, section, key string) (setting.Value, Layer, bool) {
	if _, ok := r.global[file]; !ok {
		return setting.Value{}, 0, false
	}
	for _, lf := range r.chain(file) {
		if v, ok := r.image(lf).Get(r.sectionFor(lf, section), key); ok {
			return v, lf.layer, true
		}
	}
	return setting.Value{}, 0, false
}

// LookupIn returns the value a single layer holds, without falling through.
func (r *Resolver) LookupIn(layer Layer, file FileID, section, key string) (setting.Value, bool) {
	lf, err := r.layerFile(layer, file)
	if err != nil {
		return setting.Value{}, false
	}
	return r.image(lf).Get(r.sectionFor(lf, section), key)
}

// Set writes v into the topmost present layer, creating the section if
// needed. Lower layers are never touched.
func (r *Resolver) Set(file FileID, section, key string, v setting.Value) error {
	if err := validate(section, key, v); err != nil {
		return err
	}
	if _, ok := r.global[file]; !ok {
		return fmt.Errorf("%w: unknown settings file %s", ErrInvalidAddress, file)
	}
	lf := r.top(file)
	r.image(lf).Set(r.sectionFor(lf, section), key, v)
	lf.dirty = true
	slog.Debug("setting written", "layer", lf.layer, "file", file, "section", section, "key", key, "value", v.Text())
	return nil
}

// Delete removes key from the topmost present layer, restoring whatever the
// lower layers define. It reports whether the key was present there.
func (r *Resolver) Delete(file FileID, section, key string) bool {
	if _, ok := r.global[file]; !ok {
		return false
	}
	lf := r.top(file)
	if !r.image(lf).Delete(r.sectionFor(lf, section), key) {
		return false
	}
	lf.dirty = true
	return true
}

// Image returns a copy of one layer's contents, in that layer's section
// naming.
func (r *Resolver) Image(layer Layer, file FileID) (*inifile.File, error) {
	lf, err := r.layerFile(layer, file)
	if err != nil {
		return nil, err
	}
	return r.image(lf).Clone(), nil
}

// Dirty reports whether any loaded file has unsaved changes.
func (r *Resolver) Dirty() bool {
	for _, lf := range r.all() {
		if lf.dirty {
			return true
		}
	}
	return false
}

// Diagnostics collects the skipped lines of every loaded file.
func (r *Resolver) Diagnostics() []inifile.Diagnostic {
	var out []inifile.Diagnostic
	for _, lf := range r.all() {
		if lf.img != nil {
			out = append(out, lf.img.Diagnostics()...)
		}
	}
	return out
}

// LoadErrors joins the I/O errors of every loaded file, or returns nil.
func (r *Resolver) LoadErrors() error {
	var errs []error
	for _, lf := range r.all() {
		if lf.loadErr != nil {
			errs = append(errs, lf.loadErr)
		}
	}
	return errors.Join(errs...)
}

func (r *Resolver) all() []*layerFile {
	var out []*layerFile
	if r.custom != nil {
		out = append(out, r.custom, r.generic)
	}
	for _, id := range FileIDs() {
		out = append(out, r.global[id])
	}
	return out
}

func validate(section, key string, v setting.Value) error {
	switch {
	case section == "" || strings.TrimSpace(section) != section || strings.ContainsAny(section, "[]\r\n"):
		return fmt.Errorf("%w: section %q", ErrInvalidAddress, section)
	case key == "" || strings.TrimSpace(key) != key || strings.ContainsAny(key, "=\r\n") || strings.HasPrefix(key, "["):
		return fmt.Errorf("%w: key %q", ErrInvalidAddress, key)
	}
	if v.Kind() == setting.KindString {
		text := v.Text()
		if strings.ContainsAny(text, "\r\n") || strings.TrimSpace(text) != text {
			return fmt.Errorf("%w: value for %s/%s cannot be stored verbatim", ErrInvalidAddress, section, key)
		}
	}
	return nil
}

// ///////////////////////////////////////////////
// Reload
// ///////////////////////////////////////////////

// Reload discards the in-memory images of layer, including unsaved changes.
// They are re-read on next use.
func (r *Resolver) Reload(layer Layer) error {
	switch layer {
	case LayerGlobal:
		for _, id := range FileIDs() {
			r.global[id].drop()
		}
		return nil
	default:
		lf, err := r.layerFile(layer, Dolphin)
		if err != nil {
			return err
		}
		lf.drop()
		return nil
	}
}

// ReloadPath discards the image backed by path and reports whether the
// resolver knew that file.
func (r *Resolver) ReloadPath(path string) bool {
	clean := filepath.Clean(path)
	for _, lf := range r.all() {
		if filepath.Clean(lf.path) == clean {
			if lf.dirty {
				slog.Warn("discarding unsaved changes after external edit", "path", lf.path)
			}
			lf.drop()
			return true
		}
	}
	return false
}

func (lf *layerFile) drop() {
	lf.img = nil
	lf.loadErr = nil
	lf.dirty = false
}
