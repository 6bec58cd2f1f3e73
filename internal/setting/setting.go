package setting

import (
	"fmt"
	"sort"
)

// ///////////////////////////////////////////////
// Setting
// ///////////////////////////////////////////////

// Setting is a named value belonging to a section. The key and section are
// fixed at construction and the value's kind never changes afterwards; a write
// of a different kind replaces the Setting inside its [Section] instead.
type Setting struct {
	// key is the setting name within its section.
	key string
	// section is the name of the section this setting belongs to.
	section string
	// value is the current value; its kind is fixed.
	value Value
}

// New creates a Setting.
func New(key, section string, value Value) *Setting {
	return &Setting{key: key, section: section, value: value}
}

// Key returns the setting name.
func (s *Setting) Key() string { return s.key }

// Section returns the owning section name.
func (s *Setting) Section() string { return s.section }

// Value returns the current value.
func (s *Setting) Value() Value { return s.value }

// Kind returns the kind the setting was constructed with.
func (s *Setting) Kind() Kind { return s.value.kind }

// Set replaces the value. It fails with [ErrKindChanged] if v has a different
// kind than the current value.
func (s *Setting) Set(v Value) error {
	if v.kind != s.value.kind {
		return fmt.Errorf("%w: %s/%s is %s, got %s", ErrKindChanged, s.section, s.key, s.value.kind, v.kind)
	}
	s.value = v
	return nil
}

// ///////////////////////////////////////////////
// Section
// ///////////////////////////////////////////////

// Section is a named mapping from key to [Setting]. Lookup order is irrelevant;
// [Section.Keys] returns keys sorted for deterministic serialization.
type Section struct {
	name     string
	settings map[string]*Setting
}

// NewSection creates an empty section.
func NewSection(name string) *Section {
	return &Section{name: name, settings: make(map[string]*Setting)}
}

// Name returns the section name.
func (sec *Section) Name() string { return sec.name }

// Get returns the setting stored under key.
func (sec *Section) Get(key string) (*Setting, bool) {
	s, ok := sec.settings[key]
	return s, ok
}

// Put stores v under key. An existing setting of the same kind is updated in
// place; one of a different kind is replaced by a new Setting.
func (sec *Section) Put(key string, v Value) *Setting {
	if existing, ok := sec.settings[key]; ok && existing.Kind() == v.Kind() {
		existing.value = v
		return existing
	}
	s := New(key, sec.name, v)
	sec.settings[key] = s
	return s
}

// Delete removes key and reports whether it was present.
func (sec *Section) Delete(key string) bool {
	if _, ok := sec.settings[key]; !ok {
		return false
	}
	delete(sec.settings, key)
	return true
}

// Keys returns every key in ascending lexicographic order.
func (sec *Section) Keys() []string {
	keys := make([]string, 0, len(sec.settings))
	for k := range sec.settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of settings.
func (sec *Section) Len() int { return len(sec.settings) }

// Clone returns a deep copy.
func (sec *Section) Clone() *Section {
	c := NewSection(sec.name)
	for k, s := range sec.settings {
		c.settings[k] = New(s.key, s.section, s.value)
	}
	return c
}

// Equal reports whether both sections hold the same keys with equal values.
func (sec *Section) Equal(o *Section) bool {
	if sec.name != o.name || len(sec.settings) != len(o.settings) {
		return false
	}
	for k, s := range sec.settings {
		other, ok := o.settings[k]
		if !ok || !s.value.Equal(other.value) {
			return false
		}
	}
	return true
}
