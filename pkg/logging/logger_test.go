package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColorCycleStaysInBounds(t *testing.T) {
	c := NewColorCycle()
	for i := 0; i < 500; i++ {
		hex := c.Next()
		require.Regexp(t, `^#[0-9a-f]{6}$`, hex)
		require.True(t, c.hue >= cycleHueMin && c.hue <= cycleHueMax,
			"hue %v escaped [%d, %d]", c.hue, cycleHueMin, cycleHueMax)
	}
}

func TestColorCycleChangesDirection(t *testing.T) {
	c := NewColorCycle()
	// Starting at the top of the range, the first step must reflect down.
	c.Next()
	assert.Equal(t, float64(-1), c.direction)

	for i := 0; i < 45; i++ {
		c.Next()
	}
	assert.Equal(t, float64(1), c.direction, "cycle should bounce off the lower bound")
}

func TestHueToHex(t *testing.T) {
	assert.Equal(t, "#ff0000", hueToHex(0))
	assert.Equal(t, "#00ff00", hueToHex(120))
	assert.Equal(t, "#0000ff", hueToHex(240))
	assert.Equal(t, "#ff00ff", hueToHex(300))
}

func TestLoggerMirrorsToTerminal(t *testing.T) {
	var buf bytes.Buffer
	log, _ := NewLogger("test", Options{
		Terminal:  &buf,
		LogColor:  "#404040",
		WarnColor: "#b84c44",
	})
	t.Cleanup(func() { _ = log.Close() })

	log.Infof("hello %s", "world")
	log.Warnf("careful")

	out := buf.String()
	assert.Contains(t, out, "hello world")
	assert.Contains(t, out, "careful")
}

func TestLoggerDebugSkipsTerminal(t *testing.T) {
	var buf bytes.Buffer
	log, _ := NewLogger("test", Options{Terminal: &buf, LogColor: "#404040"})
	t.Cleanup(func() { _ = log.Close() })

	log.Debugf("file only")
	assert.NotContains(t, buf.String(), "file only")
}

func TestWithComponentSharesRun(t *testing.T) {
	log, _ := NewLogger("root", Options{})
	t.Cleanup(func() { _ = log.Close() })

	child := log.WithComponent("child")
	assert.Equal(t, log.RunID(), child.RunID())
	assert.Equal(t, log.LogPath(), child.LogPath())
	assert.True(t, strings.Contains(child.entry("INFO", "x"), "[child]"))
}
