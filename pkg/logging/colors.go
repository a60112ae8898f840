package logging

import (
	"fmt"
	"math"
	"sync"
)

// ColorCycle produces a slowly shifting hue for highlighted log lines,
// ping-ponging between magenta and blue. It is an explicit value handed to
// whichever logger wants rotating colors; there is no package-level cycle.
type ColorCycle struct {
	mu        sync.Mutex
	hue       float64
	direction float64
	step      float64
}

// Hue bounds for the cycle.
const (
	cycleHueMax = 300
	cycleHueMin = 220
)

// NewColorCycle returns a cycle starting at magenta.
func NewColorCycle() *ColorCycle {
	return &ColorCycle{hue: cycleHueMax, direction: 1, step: 2}
}

// Next advances the cycle and returns the current color as a hex string.
func (c *ColorCycle) Next() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.hue += c.step * c.direction
	if c.hue > cycleHueMax {
		c.hue = cycleHueMax - (c.hue - cycleHueMax)
		c.direction = -1
	} else if c.hue < cycleHueMin {
		c.hue = cycleHueMin + (cycleHueMin - c.hue)
		c.direction = 1
	}
	return hueToHex(c.hue)
}

// hueToHex converts a hue (0-360) at full saturation and half lightness to a
// hex color string.
func hueToHex(h float64) string {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}

	x := 1 - math.Abs(math.Mod(h/60, 2)-1)
	var r, g, b float64
	switch {
	case h < 60:
		r, g, b = 1, x, 0
	case h < 120:
		r, g, b = x, 1, 0
	case h < 180:
		r, g, b = 0, 1, x
	case h < 240:
		r, g, b = 0, x, 1
	case h < 300:
		r, g, b = x, 0, 1
	default:
		r, g, b = 1, 0, x
	}

	// Lightness 0.5 at full saturation maps chroma straight to RGB.
	return fmt.Sprintf("#%02x%02x%02x", int(r*255), int(g*255), int(b*255))
}
