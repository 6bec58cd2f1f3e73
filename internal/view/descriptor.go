// Package view describes settings the way a settings screen presents them.
//
// A [Descriptor] is a plain record: which setting it edits, how to label it,
// its default, and its allowed values. Descriptors carry no behavior; [Read]
// and [Write] pass them through to a [Store] such as *resolver.Resolver.
package view

import (
	"fmt"
	"strconv"
	"strings"

	"tools.zach/dev/emuconf/internal/resolver"
	"tools.zach/dev/emuconf/internal/setting"
)

// Kind is the widget a descriptor is rendered as.
type Kind int

const (
	// CheckBox toggles a boolean.
	CheckBox Kind = iota
	// SingleChoice picks one integer value from labelled options.
	SingleChoice
	// StringSingleChoice picks one string value from labelled options.
	StringSingleChoice
	// Slider sets a number between Min and Max.
	Slider
	// InputBinding maps a controller input.
	InputBinding
	// Header is a label with no setting behind it.
	Header
	// Submenu links to another MenuTag.
	Submenu
)

// String returns a short lowercase name.
func (k Kind) String() string {
	switch k {
	case CheckBox:
		return "checkbox"
	case SingleChoice:
		return "choice"
	case StringSingleChoice:
		return "string-choice"
	case Slider:
		return "slider"
	case InputBinding:
		return "binding"
	case Header:
		return "header"
	case Submenu:
		return "submenu"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// IsSetting reports whether descriptors of this kind edit a value.
func (k Kind) IsSetting() bool {
	switch k {
	case Header, Submenu:
		return false
	default:
		return true
	}
}

// Choice is one entry of a single-choice list.
type Choice struct {
	Label string
	Value setting.Value
}

// Descriptor binds one setting to its presentation.
type Descriptor struct {
	Kind Kind

	File    resolver.FileID
	Section string
	Key     string

	Title       string
	Description string

	// Default is the presented value used when no layer defines the key.
	Default setting.Value
	// Choices lists the allowed values of single-choice kinds.
	Choices []Choice
	// Min and Max bound slider values.
	Min, Max int64
	// Units is appended to slider values, for example "%".
	Units string
	// Submenu is the menu opened from this entry, if any.
	Submenu MenuTag
}

// Address returns "File/Section/Key" for setting descriptors.
func (d Descriptor) Address() string {
	if !d.Kind.IsSetting() {
		return ""
	}
	return d.File.String() + "/" + d.Section + "/" + d.Key
}

// ChoiceLabel returns the label of the choice holding v, if any.
func (d Descriptor) ChoiceLabel(v setting.Value) (string, bool) {
	for _, c := range d.Choices {
		if c.Value.Equal(v) {
			return c.Label, true
		}
	}
	return "", false
}

// ///////////////////////////////////////////////
// MenuTag
// ///////////////////////////////////////////////

// MenuTag names one settings screen.
type MenuTag string

const (
	// MenuConfig is the top-level screen linking to the others.
	MenuConfig MenuTag = "config"
	// MenuGeneral holds core emulation options.
	MenuGeneral MenuTag = "general"
	// MenuInterface holds front-end behaviour.
	MenuInterface MenuTag = "interface"
	// MenuGraphics holds the main video options.
	MenuGraphics MenuTag = "graphics"
	// MenuEnhancements holds rendering quality options.
	MenuEnhancements MenuTag = "enhancements"
	// MenuHacks holds speed hacks.
	MenuHacks MenuTag = "hacks"
	// MenuStereoscopy holds 3D output options.
	MenuStereoscopy MenuTag = "stereoscopy"
	// MenuGCPadTypes picks the device in each GameCube port.
	MenuGCPadTypes MenuTag = "gcpad"
	// MenuWiimoteTypes picks the source of each Wii Remote.
	MenuWiimoteTypes MenuTag = "wiimote"
	// MenuGameControls holds pointer sensitivity for game input.
	MenuGameControls MenuTag = "game-controls"
)

// Controller ports are numbered 1 to 4.
const maxPorts = 4

// GCPad returns the binding screen for GameCube port n.
func GCPad(n int) MenuTag { return MenuTag("gcpad-" + strconv.Itoa(n)) }

// GCAdapter returns the adapter options screen for GameCube port n.
func GCAdapter(n int) MenuTag { return MenuTag("gcadapter-" + strconv.Itoa(n)) }

// Wiimote returns the binding screen for Wii Remote n.
func Wiimote(n int) MenuTag { return MenuTag("wiimote-" + strconv.Itoa(n)) }

// port splits a numbered tag into its prefix and port number.
func (t MenuTag) port() (string, int, bool) {
	prefix, num, ok := strings.Cut(string(t), "-")
	if !ok {
		return "", 0, false
	}
	n, err := strconv.Atoi(num)
	if err != nil || n < 1 || n > maxPorts {
		return "", 0, false
	}
	return prefix, n, true
}
