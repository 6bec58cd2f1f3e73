// Package sections maps canonical section names to the physical names used
// inside per-game override files.
package sections

import (
	"errors"
	"fmt"
	"sort"
)

// ErrNotBijective is returned by [New] when two entries collide in either
// direction.
var ErrNotBijective = errors.New("section table is not a bijection")

// Pair is one canonical/physical entry.
type Pair struct {
	Canonical string
	Physical  string
}

// Translator is an immutable two-way lookup table. Names absent from the table
// map to themselves. A nil *Translator is the identity translator.
type Translator struct {
	toPhysical  map[string]string
	toCanonical map[string]string
}

// defaultPairs is the table the per-game files have always used.
var defaultPairs = map[string]string{
	"Hardware":     "Video_Hardware",
	"Settings":     "Video_Settings",
	"Enhancements": "Video_Enhancements",
	"Stereoscopy":  "Video_Stereoscopy",
	"Hacks":        "Video_Hacks",
	"GameSpecific": "Video",
}

// Default returns a fresh translator over the standard table.
func Default() *Translator {
	t, err := New(defaultPairs)
	if err != nil {
		panic(err)
	}
	return t
}

// New builds a translator from canonical → physical entries. A physical name
// may not be claimed twice and may not shadow a different canonical entry,
// otherwise a name would translate ambiguously.
func New(pairs map[string]string) (*Translator, error) {
	t := &Translator{
		toPhysical:  make(map[string]string, len(pairs)),
		toCanonical: make(map[string]string, len(pairs)),
	}
	for canonical, physical := range pairs {
		if canonical == "" || physical == "" {
			return nil, fmt.Errorf("%w: empty name in %q → %q", ErrNotBijective, canonical, physical)
		}
		if prev, dup := t.toCanonical[physical]; dup {
			return nil, fmt.Errorf("%w: %q claimed by both %q and %q", ErrNotBijective, physical, prev, canonical)
		}
		t.toPhysical[canonical] = physical
		t.toCanonical[physical] = canonical
	}
	// A physical name may double as a canonical name only when the two
	// entries swap with each other.
	for canonical, physical := range t.toPhysical {
		if other, ok := t.toPhysical[physical]; ok && physical != canonical && other != canonical {
			return nil, fmt.Errorf("%w: %q is both a physical and a canonical name", ErrNotBijective, physical)
		}
	}
	return t, nil
}

// With returns a copy of t extended by extra entries, validated as a whole.
func (t *Translator) With(extra map[string]string) (*Translator, error) {
	merged := make(map[string]string, len(extra))
	if t != nil {
		for c, p := range t.toPhysical {
			merged[c] = p
		}
	}
	for c, p := range extra {
		merged[c] = p
	}
	return New(merged)
}

// ToPhysical translates a canonical name for use inside a per-game file.
func (t *Translator) ToPhysical(canonical string) string {
	if t == nil {
		return canonical
	}
	if p, ok := t.toPhysical[canonical]; ok {
		return p
	}
	return canonical
}

// ToCanonical translates a physical per-game section name back.
func (t *Translator) ToCanonical(physical string) string {
	if t == nil {
		return physical
	}
	if c, ok := t.toCanonical[physical]; ok {
		return c
	}
	return physical
}

// Pairs lists the table sorted by canonical name.
func (t *Translator) Pairs() []Pair {
	if t == nil {
		return nil
	}
	out := make([]Pair, 0, len(t.toPhysical))
	for c, p := range t.toPhysical {
		out = append(out, Pair{Canonical: c, Physical: p})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Canonical < out[j].Canonical })
	return out
}
