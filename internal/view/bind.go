package view

import (
	"errors"
	"fmt"

	"tools.zach/dev/emuconf/internal/resolver"
	"tools.zach/dev/emuconf/internal/setting"
)

// ErrNotASetting is returned when reading or writing a header or submenu.
var ErrNotASetting = errors.New("descriptor does not edit a setting")

// ErrInvalidChoice is returned when a value is not one of a descriptor's
// choices, or lies outside a slider's range.
var ErrInvalidChoice = errors.New("value not allowed")

// Store is the typed access a settings screen needs. *resolver.Resolver
// satisfies it.
type Store interface {
	GetBool(file resolver.FileID, section, key string, def bool) (bool, error)
	GetInt(file resolver.FileID, section, key string, def int64) (int64, error)
	GetString(file resolver.FileID, section, key, def string) string
	SetBool(file resolver.FileID, section, key string, b bool) error
	SetInt(file resolver.FileID, section, key string, i int64) error
	SetString(file resolver.FileID, section, key, s string) error
}

var _ Store = (*resolver.Resolver)(nil)

// Read returns the presented value of d, falling back to d.Default.
func Read(s Store, d Descriptor) (setting.Value, error) {
	switch d.Kind {
	case CheckBox:
		def, _ := d.Default.AsBool()
		b, err := s.GetBool(d.File, d.Section, d.Key, def)
		return setting.Bool(b), err
	case SingleChoice, Slider:
		def, _ := d.Default.AsInt()
		i, err := s.GetInt(d.File, d.Section, d.Key, def)
		return setting.Int(i), err
	case StringSingleChoice, InputBinding:
		return setting.String(s.GetString(d.File, d.Section, d.Key, d.Default.AsString())), nil
	case Header, Submenu:
		return setting.Value{}, fmt.Errorf("%w: %s %q", ErrNotASetting, d.Kind, d.Title)
	default:
		return setting.Value{}, fmt.Errorf("%w: %s", ErrNotASetting, d.Kind)
	}
}

// Write stores a presented value for d after converting it to the kind the
// descriptor edits and checking it against choices and slider bounds.
func Write(s Store, d Descriptor, v setting.Value) error {
	switch d.Kind {
	case CheckBox:
		b, err := v.AsBool()
		if err != nil {
			return fmt.Errorf("%s: %w", d.Address(), err)
		}
		return s.SetBool(d.File, d.Section, d.Key, b)
	case SingleChoice:
		i, err := v.AsInt()
		if err != nil {
			return fmt.Errorf("%s: %w", d.Address(), err)
		}
		if err := checkChoice(d, setting.Int(i)); err != nil {
			return err
		}
		return s.SetInt(d.File, d.Section, d.Key, i)
	case Slider:
		i, err := v.AsInt()
		if err != nil {
			return fmt.Errorf("%s: %w", d.Address(), err)
		}
		if i < d.Min || i > d.Max {
			return fmt.Errorf("%w: %s must be between %d and %d, got %d", ErrInvalidChoice, d.Address(), d.Min, d.Max, i)
		}
		return s.SetInt(d.File, d.Section, d.Key, i)
	case StringSingleChoice:
		str := v.AsString()
		if err := checkChoice(d, setting.String(str)); err != nil {
			return err
		}
		return s.SetString(d.File, d.Section, d.Key, str)
	case InputBinding:
		return s.SetString(d.File, d.Section, d.Key, v.AsString())
	case Header, Submenu:
		return fmt.Errorf("%w: %s %q", ErrNotASetting, d.Kind, d.Title)
	default:
		return fmt.Errorf("%w: %s", ErrNotASetting, d.Kind)
	}
}

func checkChoice(d Descriptor, v setting.Value) error {
	if len(d.Choices) == 0 {
		return nil
	}
	if _, ok := d.ChoiceLabel(v); ok {
		return nil
	}
	return fmt.Errorf("%w: %s does not accept %s", ErrInvalidChoice, d.Address(), v.Text())
}

// Find returns the setting descriptor for file/section/key across every menu.
func Find(file resolver.FileID, section, key string) (Descriptor, bool) {
	for _, tag := range Tags() {
		items, err := Menu(tag)
		if err != nil {
			continue
		}
		for _, d := range items {
			if d.Kind.IsSetting() && d.File == file && d.Section == section && d.Key == key {
				return d, true
			}
		}
	}
	return Descriptor{}, false
}
