// Package migrate upgrades versioned documents one schema step at a time.
package migrate

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
)

// ErrFutureVersion is returned when a document is newer than the registry
// understands. Such documents are never rewritten.
var ErrFutureVersion = errors.New("document version is newer than supported")

// ///////////////////////////////////////////////
// Types
// ///////////////////////////////////////////////

// Step upgrades a document from Version-1 to Version.
type Step struct {
	// Version is the schema version this step produces.
	Version int
	// Description is a short label for log output.
	Description string
	// Upgrade rewrites the document.
	Upgrade func(data []byte) ([]byte, error)
}

// Registry holds the schema steps for one document kind.
type Registry struct {
	// Name labels log lines, for example "emuconf.toml".
	Name string
	// CurrentVersion is the version documents are upgraded to.
	CurrentVersion int
	steps          []Step
}

// Config is the registry for emuconf.toml.
var Config = &Registry{Name: "emuconf.toml", CurrentVersion: 2}

// ///////////////////////////////////////////////
// Registration
// ///////////////////////////////////////////////

// Register adds s. It panics on a duplicate or out-of-range version, both of
// which are programming errors.
func (r *Registry) Register(s Step) {
	if s.Version < 2 || s.Version > r.CurrentVersion {
		panic(fmt.Sprintf("migrate: %s step v%d outside 2..%d", r.Name, s.Version, r.CurrentVersion))
	}
	for _, existing := range r.steps {
		if existing.Version == s.Version {
			panic(fmt.Sprintf("migrate: %s has two steps producing v%d (%q, %q)", r.Name, s.Version, existing.Description, s.Description))
		}
	}
	r.steps = append(r.steps, s)
	slices.SortFunc(r.steps, func(a, b Step) int { return a.Version - b.Version })
}

// Steps returns the registered steps in version order.
func (r *Registry) Steps() []Step {
	return slices.Clone(r.steps)
}

// ///////////////////////////////////////////////
// Running
// ///////////////////////////////////////////////

// NeedsMigration reports whether a document at version would be rewritten.
func (r *Registry) NeedsMigration(version int) bool {
	return version < r.CurrentVersion
}

// Run upgrades data from version to CurrentVersion. It returns the last
// version reached, which on error is the version of the returned-so-far data.
func (r *Registry) Run(data []byte, version int) ([]byte, int, error) {
	if version > r.CurrentVersion {
		return nil, version, fmt.Errorf("%w: %s v%d, supported v%d", ErrFutureVersion, r.Name, version, r.CurrentVersion)
	}
	for _, s := range r.steps {
		if s.Version <= version {
			continue
		}
		if s.Version != version+1 {
			return nil, version, fmt.Errorf("%s: no step from v%d to v%d", r.Name, version, version+1)
		}
		slog.Info("applying migration", "document", r.Name, "version", s.Version, "description", s.Description)
		next, err := s.Upgrade(data)
		if err != nil {
			return nil, version, fmt.Errorf("%s migration to v%d failed: %w", r.Name, s.Version, err)
		}
		data, version = next, s.Version
	}
	if version != r.CurrentVersion {
		return nil, version, fmt.Errorf("%s: no step from v%d to v%d", r.Name, version, version+1)
	}
	return data, version, nil
}
