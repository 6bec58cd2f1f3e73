package resolver

import (
	"fmt"

	"tools.zach/dev/emuconf/internal/setting"
)

// Seed is a value written into a global file the first time it is loaded
// without it. Seeds only apply when no game is selected.
type Seed struct {
	File    FileID
	Section string
	Key     string
	Value   setting.Value
}

// SI device and Wii Remote source values the emulator understands.
const (
	siDeviceNone         = 0
	siDeviceGCController = 6

	wiimoteSourceNone     = 0
	wiimoteSourceEmulated = 1
)

// DefaultSeeds gives a fresh install one GameCube controller in the first
// port and one emulated Wii Remote, with the remaining slots empty.
func DefaultSeeds() []Seed {
	seeds := make([]Seed, 0, 8)
	for i := range 4 {
		device := siDeviceNone
		if i == 0 {
			device = siDeviceGCController
		}
		seeds = append(seeds, Seed{
			File:    Dolphin,
			Section: "Core",
			Key:     fmt.Sprintf("SIDevice%d", i),
			Value:   setting.Int(int64(device)),
		})
	}
	for i := 1; i <= 4; i++ {
		source := wiimoteSourceNone
		if i == 1 {
			source = wiimoteSourceEmulated
		}
		seeds = append(seeds, Seed{
			File:    WiimoteNew,
			Section: fmt.Sprintf("Wiimote%d", i),
			Key:     "Source",
			Value:   setting.Int(int64(source)),
		})
	}
	return seeds
}

// applySeeds fills in missing seeded keys of a global file and returns how
// many were added.
func (r *Resolver) applySeeds(lf *layerFile) int {
	n := 0
	for _, s := range r.seeds {
		if s.File != lf.id {
			continue
		}
		if _, ok := lf.img.Get(s.Section, s.Key); ok {
			continue
		}
		lf.img.Set(s.Section, s.Key, s.Value)
		n++
	}
	return n
}
