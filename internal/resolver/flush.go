package resolver

import (
	"errors"
	"fmt"
	"log/slog"

	"tools.zach/dev/emuconf/internal/inifile"
)

// ///////////////////////////////////////////////
// Flush
// ///////////////////////////////////////////////

// FlushLayer writes every dirty file of layer back to disk. On success the
// runtime, if any, is asked to reload; a failing hook is logged and does not
// fail the flush.
func (r *Resolver) FlushLayer(layer Layer) error {
	var files []*layerFile
	switch layer {
	case LayerGlobal:
		for _, id := range FileIDs() {
			files = append(files, r.global[id])
		}
	default:
		lf, err := r.layerFile(layer, Dolphin)
		if err != nil {
			return err
		}
		files = append(files, lf)
	}

	written, err := r.flushFiles(files)
	if err != nil {
		return err
	}
	if written > 0 {
		r.notifyReload()
	}
	return nil
}

// Flush writes every dirty file in every layer. Files are independent, so a
// failure in one does not stop the others; all failures are returned joined.
func (r *Resolver) Flush() error {
	written, err := r.flushFiles(r.all())
	if written > 0 {
		r.notifyReload()
	}
	return err
}

func (r *Resolver) flushFiles(files []*layerFile) (int, error) {
	var errs []error
	written := 0
	for _, lf := range files {
		if !lf.dirty || lf.img == nil {
			continue
		}
		if lf.loadErr != nil {
			errs = append(errs, fmt.Errorf("%w: %w: refusing to overwrite %s: %w", inifile.ErrIO, ErrDirtyLoad, lf.path, lf.loadErr))
			continue
		}
		if err := r.save(lf.img, lf.path); err != nil {
			errs = append(errs, fmt.Errorf("flushing %s layer: %w", lf.layer, err))
			continue
		}
		lf.dirty = false
		written++
		slog.Info("flushed settings", "layer", lf.layer, "path", lf.path)
	}
	return written, errors.Join(errs...)
}

func (r *Resolver) notifyReload() {
	if r.runtime == nil {
		return
	}
	if err := r.runtime.ReloadConfig(); err != nil {
		slog.Warn("runtime reload after flush failed", "error", err)
	}
}
