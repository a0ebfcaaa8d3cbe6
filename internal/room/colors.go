package room

import "github.com/lucasb-eyer/go-colorful"

// ColorWheel hands out well-distributed presence colors for room members
// using golden-ratio hue stepping. Each room owns its own wheel so colors
// stay distinct within a room.
type ColorWheel struct {
	counter int
}

func NewColorWheel() *ColorWheel {
	return &ColorWheel{}
}

// Next returns the next color in the sequence as an HTML hex string.
func (cw *ColorWheel) Next() string {
	const goldenRatio = 0.618033988749895
	hue := float64(cw.counter) * goldenRatio
	hue = hue - float64(int(hue)) // Keep fractional part
	cw.counter++

	color := colorful.Hsl(hue*360, 0.85, 0.55)
	return color.Hex()
}
