package resolver

import (
	"fmt"
	"math"
	"strings"
)

// Transform describes how a stored value differs from what callers see.
type Transform int

const (
	// Identity stores values as presented.
	Identity Transform = iota
	// Invert stores the logical negation of a boolean.
	Invert
	// Percent stores a fraction and presents an integer percentage.
	Percent
)

// String returns the transform name as written in emuconf.toml.
func (t Transform) String() string {
	switch t {
	case Identity:
		return "identity"
	case Invert:
		return "invert"
	case Percent:
		return "percent"
	default:
		return fmt.Sprintf("transform(%d)", int(t))
	}
}

// ParseTransform accepts the names produced by [Transform.String].
func ParseTransform(s string) (Transform, error) {
	switch strings.ToLower(s) {
	case "identity":
		return Identity, nil
	case "invert":
		return Invert, nil
	case "percent":
		return Percent, nil
	}
	return Identity, fmt.Errorf("unknown transform %q", s)
}

// Policies maps setting keys to the [Transform] applied by the typed
// accessors. The zero value applies no transforms.
type Policies struct {
	byKey map[string]Transform
}

// NewPolicies copies m into a new table.
func NewPolicies(m map[string]Transform) Policies {
	p := Policies{byKey: make(map[string]Transform, len(m))}
	for k, t := range m {
		p.byKey[k] = t
	}
	return p
}

// DefaultPolicies returns the keys the emulator has always stored in a
// non-obvious form.
func DefaultPolicies() Policies {
	return NewPolicies(map[string]Transform{
		"EFBAccessEnable":         Invert,
		"EFBEmulateFormatChanges": Invert,
		"BBoxEnable":              Invert,
		"FastTextureSampling":     Invert,
		"Fastmem":                 Invert,
		"FastDiscSpeed":           Invert,
		"Overclock":               Percent,
		"EmulationSpeed":          Percent,
	})
}

// With returns a copy extended by extra. Entries in extra win.
func (p Policies) With(extra map[string]Transform) Policies {
	merged := make(map[string]Transform, len(p.byKey)+len(extra))
	for k, t := range p.byKey {
		merged[k] = t
	}
	for k, t := range extra {
		merged[k] = t
	}
	return Policies{byKey: merged}
}

// For returns the transform for key.
func (p Policies) For(key string) Transform {
	return p.byKey[key]
}

// Len returns the number of keys with a transform.
func (p Policies) Len() int { return len(p.byKey) }

func toPercent(fraction float64) int64 {
	return int64(math.Round(fraction * 100))
}

func fromPercent(percent float64) float64 {
	return percent / 100
}
