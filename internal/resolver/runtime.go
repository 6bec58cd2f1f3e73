package resolver

import "fmt"

// Runtime is the running emulator core. Both hooks are best-effort from the
// resolver's point of view.
type Runtime interface {
	// ReloadConfig asks the core to re-read the merged settings.
	ReloadConfig() error
	// SetUserSetting pushes one value into the core's per-game settings.
	// section is the physical per-game section name.
	SetUserSetting(gameID, section, key, value string) error
}

// Commit pushes the effective value of file/section/key to the runtime for
// the active game. Unlike the reload hook, errors here are returned because
// the caller asked for this explicitly.
func (r *Resolver) Commit(file FileID, section, key string) error {
	if r.gameID == "" {
		return ErrNoGame
	}
	if r.runtime == nil {
		return ErrNoRuntime
	}
	v, _, ok := r.Lookup(file, section, key)
	if !ok {
		return fmt.Errorf("%w: %s/%s", ErrUnset, section, key)
	}
	physical := r.translator.ToPhysical(section)
	if err := r.runtime.SetUserSetting(r.gameID, physical, key, v.Text()); err != nil {
		return fmt.Errorf("committing %s/%s: %w", physical, key, err)
	}
	return nil
}
