// Package palette provides the fixed ordered display palette resources are
// colored from. A resource stores only its palette index; the rendered hex
// value is derived here, so re-seeding the base hue recolors the whole catalog
// consistently.
package palette

import (
	"fmt"
	"math"

	"labslot/pkg/model"
)

const (
	saturation = 0.60
	lightness  = 0.55
)

type Palette struct {
	colors []string
}

// New builds a palette of size evenly hue-spaced colors starting at baseHue
// degrees. The order is fixed: index i always renders the same color for a
// given seed.
func New(baseHue, size int) Palette {
	colors := make([]string, size)
	for i := range colors {
		hue := math.Mod(float64(baseHue)+float64(i)*360.0/float64(size), 360.0)
		colors[i] = hslToHex(hue, saturation, lightness)
	}
	return Palette{colors: colors}
}

func (p Palette) Size() int {
	return len(p.colors)
}

// Color returns the hex value for a palette index, or false when the index is
// out of range.
func (p Palette) Color(index int) (string, bool) {
	if index < 0 || index >= len(p.colors) {
		return "", false
	}
	return p.colors[index], true
}

func (p Palette) Entries() []model.PaletteEntry {
	entries := make([]model.PaletteEntry, len(p.colors))
	for i, c := range p.colors {
		entries[i] = model.PaletteEntry{Index: i, Color: c}
	}
	return entries
}

// Free returns the palette entries whose indices are not in use, preserving
// palette order. This is the candidate list offered when a resource is
// created or recolored.
func (p Palette) Free(used []int) []model.PaletteEntry {
	taken := make(map[int]struct{}, len(used))
	for _, u := range used {
		taken[u] = struct{}{}
	}

	free := []model.PaletteEntry{}
	for i, c := range p.colors {
		if _, ok := taken[i]; ok {
			continue
		}
		free = append(free, model.PaletteEntry{Index: i, Color: c})
	}
	return free
}

func hslToHex(h, s, l float64) string {
	c := (1 - math.Abs(2*l-1)) * s
	x := c * (1 - math.Abs(math.Mod(h/60.0, 2)-1))
	m := l - c/2

	var r, g, b float64
	switch {
	case h < 60:
		r, g, b = c, x, 0
	case h < 120:
		r, g, b = x, c, 0
	case h < 180:
		r, g, b = 0, c, x
	case h < 240:
		r, g, b = 0, x, c
	case h < 300:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}

	return fmt.Sprintf("#%02x%02x%02x",
		int(math.Round((r+m)*255)),
		int(math.Round((g+m)*255)),
		int(math.Round((b+m)*255)),
	)
}
