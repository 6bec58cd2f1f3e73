package resolver

import (
	"fmt"

	"tools.zach/dev/emuconf/internal/setting"
)

// ///////////////////////////////////////////////
// Typed Accessors
// ///////////////////////////////////////////////

// The typed accessors present values the way a settings screen shows them,
// applying the key's [Transform] in both directions. Defaults are given in
// presented form and returned untouched when no layer defines the key. A
// stored value that cannot be read as the requested type returns def together
// with an error wrapping [setting.ErrTypeMismatch].

// GetBool reads a boolean, un-inverting keys with the [Invert] transform.
func (r *Resolver) GetBool(file FileID, section, key string, def bool) (bool, error) {
	v, _, ok := r.Lookup(file, section, key)
	if !ok {
		return def, nil
	}
	b, err := v.AsBool()
	if err != nil {
		return def, fmt.Errorf("%s/%s: %w", section, key, err)
	}
	if r.policies.For(key) == Invert {
		b = !b
	}
	return b, nil
}

// GetInt reads an integer. Keys with the [Percent] transform are stored as
// fractions and returned as whole percentages.
func (r *Resolver) GetInt(file FileID, section, key string, def int64) (int64, error) {
	v, _, ok := r.Lookup(file, section, key)
	if !ok {
		return def, nil
	}
	if r.policies.For(key) == Percent {
		f, err := v.AsFloat()
		if err != nil {
			return def, fmt.Errorf("%s/%s: %w", section, key, err)
		}
		return toPercent(f), nil
	}
	i, err := v.AsInt()
	if err != nil {
		return def, fmt.Errorf("%s/%s: %w", section, key, err)
	}
	return i, nil
}

// GetFloat reads a float. Keys with the [Percent] transform are scaled to
// percentages.
func (r *Resolver) GetFloat(file FileID, section, key string, def float64) (float64, error) {
	v, _, ok := r.Lookup(file, section, key)
	if !ok {
		return def, nil
	}
	f, err := v.AsFloat()
	if err != nil {
		return def, fmt.Errorf("%s/%s: %w", section, key, err)
	}
	if r.policies.For(key) == Percent {
		f *= 100
	}
	return f, nil
}

// GetString reads the canonical text of any value.
func (r *Resolver) GetString(file FileID, section, key, def string) string {
	v, _, ok := r.Lookup(file, section, key)
	if !ok {
		return def
	}
	return v.AsString()
}

// SetBool writes a boolean, inverting keys with the [Invert] transform.
func (r *Resolver) SetBool(file FileID, section, key string, b bool) error {
	if r.policies.For(key) == Invert {
		b = !b
	}
	return r.Set(file, section, key, setting.Bool(b))
}

// SetInt writes an integer, or a fraction for [Percent] keys.
func (r *Resolver) SetInt(file FileID, section, key string, i int64) error {
	if r.policies.For(key) == Percent {
		return r.Set(file, section, key, setting.Float(fromPercent(float64(i))))
	}
	return r.Set(file, section, key, setting.Int(i))
}

// SetFloat writes a float, dividing [Percent] keys by 100.
func (r *Resolver) SetFloat(file FileID, section, key string, f float64) error {
	if r.policies.For(key) == Percent {
		f = fromPercent(f)
	}
	return r.Set(file, section, key, setting.Float(f))
}

// SetString writes a string verbatim.
func (r *Resolver) SetString(file FileID, section, key, s string) error {
	return r.Set(file, section, key, setting.String(s))
}
