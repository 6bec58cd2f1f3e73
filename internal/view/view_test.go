package view

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tools.zach/dev/emuconf/internal/paths"
	"tools.zach/dev/emuconf/internal/resolver"
	"tools.zach/dev/emuconf/internal/setting"
)

// ///////////////////////////////////////////////
// Catalog
// ///////////////////////////////////////////////

func TestEveryTagHasAMenu(t *testing.T) {
	for _, tag := range Tags() {
		items, err := Menu(tag)
		require.NoError(t, err, tag)
		assert.NotEmpty(t, items, tag)
	}
}

func TestUnknownMenu(t *testing.T) {
	for _, tag := range []MenuTag{"nope", GCPad(0), GCPad(5), Wiimote(9), "gcpad-x"} {
		_, err := Menu(tag)
		assert.ErrorIs(t, err, ErrUnknownMenu, tag)
	}
}

func TestDescriptorsAreWellFormed(t *testing.T) {
	for _, tag := range Tags() {
		items, _ := Menu(tag)
		seen := map[string]bool{}
		for _, d := range items {
			if d.Kind == Submenu {
				_, err := Menu(d.Submenu)
				assert.NoError(t, err, "%s links to missing menu %q", tag, d.Submenu)
				continue
			}
			if !d.Kind.IsSetting() {
				continue
			}
			addr := d.Address()
			assert.NotEmpty(t, d.Section, addr)
			assert.NotEmpty(t, d.Key, addr)
			assert.False(t, seen[addr], "%s repeats %s", tag, addr)
			seen[addr] = true

			switch d.Kind {
			case CheckBox:
				assert.Equal(t, setting.KindBool, d.Default.Kind(), addr)
			case SingleChoice, Slider:
				assert.Equal(t, setting.KindInt, d.Default.Kind(), addr)
			case StringSingleChoice, InputBinding:
				assert.Equal(t, setting.KindString, d.Default.Kind(), addr)
			}
			if len(d.Choices) > 0 {
				_, ok := d.ChoiceLabel(d.Default)
				assert.True(t, ok, "%s default is not one of its choices", addr)
			}
			if d.Kind == Slider {
				def, _ := d.Default.AsInt()
				assert.True(t, def >= d.Min && def <= d.Max, "%s default outside range", addr)
			}
		}
	}
}

func TestSubmenusOfControllerTypes(t *testing.T) {
	items, err := Menu(MenuGCPadTypes)
	require.NoError(t, err)
	require.Len(t, items, 4)
	assert.Equal(t, "SIDevice0", items[0].Key)
	assert.Equal(t, GCPad(1), items[0].Submenu)

	pad, err := Menu(items[3].Submenu)
	require.NoError(t, err)
	d, ok := findKey(pad, "InputA_3")
	require.True(t, ok)
	assert.Equal(t, InputBinding, d.Kind)

	remote, err := Menu(Wiimote(1))
	require.NoError(t, err)
	_, ok = findKey(remote, "WiimoteA_4")
	assert.True(t, ok, "remote 1 bindings follow the four GameCube ports")
}

func findKey(items []Descriptor, key string) (Descriptor, bool) {
	for _, d := range items {
		if d.Key == key {
			return d, true
		}
	}
	return Descriptor{}, false
}

func TestFind(t *testing.T) {
	d, ok := Find(resolver.GFX, "Hacks", "EFBAccessEnable")
	require.True(t, ok)
	assert.Equal(t, CheckBox, d.Kind)

	_, ok = Find(resolver.GFX, "Hacks", "NoSuchKey")
	assert.False(t, ok)
}

// ///////////////////////////////////////////////
// Read / Write
// ///////////////////////////////////////////////

func newStore(t *testing.T) (*resolver.Resolver, paths.Dirs) {
	t.Helper()
	root := t.TempDir()
	dirs := paths.Dirs{User: filepath.Join(root, "user"), Sys: filepath.Join(root, "sys")}
	return resolver.New(resolver.Options{Dirs: dirs}), dirs
}

func TestReadFallsBackToDefault(t *testing.T) {
	r, _ := newStore(t)
	d, ok := Find(resolver.GFX, "Hacks", "EFBEmulateFormatChanges")
	require.True(t, ok)

	v, err := Read(r, d)
	require.NoError(t, err)
	assert.True(t, setting.Bool(true).Equal(v))
	assert.False(t, r.Dirty())
}

func TestWriteAppliesPolicies(t *testing.T) {
	r, dirs := newStore(t)
	skip, _ := Find(resolver.GFX, "Hacks", "EFBAccessEnable")
	speed, _ := Find(resolver.Dolphin, "Core", "EmulationSpeed")

	require.NoError(t, Write(r, skip, setting.Bool(true)))
	require.NoError(t, Write(r, speed, setting.Int(75)))
	require.NoError(t, r.Flush())

	gfx, err := os.ReadFile(dirs.Global("GFX"))
	require.NoError(t, err)
	assert.Contains(t, string(gfx), "EFBAccessEnable = False")

	dolphin, err := os.ReadFile(dirs.Global("Dolphin"))
	require.NoError(t, err)
	assert.Contains(t, string(dolphin), "EmulationSpeed = 0.75")

	v, err := Read(r, speed)
	require.NoError(t, err)
	assert.True(t, setting.Int(75).Equal(v))
}

func TestWriteValidates(t *testing.T) {
	r, _ := newStore(t)
	aspect, _ := Find(resolver.GFX, "Settings", "AspectRatio")
	depth, _ := Find(resolver.GFX, "Stereoscopy", "StereoDepth")
	backend, _ := Find(resolver.Dolphin, "Core", "GFXBackend")

	assert.ErrorIs(t, Write(r, aspect, setting.Int(9)), ErrInvalidChoice)
	assert.ErrorIs(t, Write(r, depth, setting.Int(101)), ErrInvalidChoice)
	assert.ErrorIs(t, Write(r, backend, setting.String("D3D")), ErrInvalidChoice)
	assert.ErrorIs(t, Write(r, aspect, setting.String("wide")), setting.ErrTypeMismatch)
	assert.False(t, r.Dirty())

	require.NoError(t, Write(r, aspect, setting.String("2")), "text that parses is accepted")
	v, err := Read(r, aspect)
	require.NoError(t, err)
	assert.True(t, setting.Int(2).Equal(v))
}

func TestHeadersAreNotSettings(t *testing.T) {
	r, _ := newStore(t)
	_, err := Read(r, header("Buttons"))
	assert.ErrorIs(t, err, ErrNotASetting)
	assert.ErrorIs(t, Write(r, submenu("Hacks", MenuHacks), setting.Bool(true)), ErrNotASetting)
}
