package resolver

import (
	"fmt"
	"strings"
)

// ///////////////////////////////////////////////
// Layer
// ///////////////////////////////////////////////

// Layer identifies one configuration scope. Lower values take priority.
type Layer int

const (
	// LayerCustomGame is the user's per-game override file. It addresses
	// sections by their physical names.
	LayerCustomGame Layer = iota
	// LayerGenericGame is the file shared by every region of a title.
	LayerGenericGame
	// LayerGlobal holds one file per [FileID] and is always present.
	LayerGlobal
)

// String returns the layer name used in logs and CLI output.
func (l Layer) String() string {
	switch l {
	case LayerCustomGame:
		return "custom-game"
	case LayerGenericGame:
		return "generic-game"
	case LayerGlobal:
		return "global"
	default:
		return fmt.Sprintf("layer(%d)", int(l))
	}
}

// ParseLayer accepts the names produced by [Layer.String].
func ParseLayer(s string) (Layer, error) {
	for _, l := range []Layer{LayerCustomGame, LayerGenericGame, LayerGlobal} {
		if strings.EqualFold(s, l.String()) {
			return l, nil
		}
	}
	return 0, fmt.Errorf("unknown layer %q (want custom-game, generic-game or global)", s)
}

// ///////////////////////////////////////////////
// FileID
// ///////////////////////////////////////////////

// FileID selects one of the global settings files. The per-game layers keep
// every file's sections in a single file.
type FileID int

const (
	// Dolphin is the main emulator configuration.
	Dolphin FileID = iota
	// GFX holds video backend settings.
	GFX
	// GCPadNew holds GameCube controller profiles.
	GCPadNew
	// WiimoteNew holds Wii Remote profiles.
	WiimoteNew
)

// FileIDs lists every FileID in declaration order.
func FileIDs() []FileID {
	return []FileID{Dolphin, GFX, GCPadNew, WiimoteNew}
}

// String returns the file's base name without extension.
func (f FileID) String() string {
	switch f {
	case Dolphin:
		return "Dolphin"
	case GFX:
		return "GFX"
	case GCPadNew:
		return "GCPadNew"
	case WiimoteNew:
		return "WiimoteNew"
	default:
		return fmt.Sprintf("file(%d)", int(f))
	}
}

// ParseFileID accepts a file base name, case-insensitively.
func ParseFileID(s string) (FileID, error) {
	for _, f := range FileIDs() {
		if strings.EqualFold(s, f.String()) {
			return f, nil
		}
	}
	return 0, fmt.Errorf("unknown settings file %q (want Dolphin, GFX, GCPadNew or WiimoteNew)", s)
}
