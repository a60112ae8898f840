package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, DefaultThreadCount, cfg.ThreadCount)
	assert.Equal(t, DefaultRetries, cfg.Retries)
	assert.Equal(t, DefaultLogColor, cfg.LogColor)
	assert.Equal(t, DefaultAppURL, cfg.AppURL)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
logColor: "#112233"
threadCount: 5
retries: 2
startDelay: ["00:00:10", "00:01:00"]
accountFilter: "*@gmail.com"
prompts:
  text: custom/text.txt
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "#112233", cfg.LogColor)
	assert.Equal(t, 5, cfg.ThreadCount)
	assert.Equal(t, 2, cfg.Retries)
	assert.Equal(t, "custom/text.txt", cfg.PromptFile("text"))

	min, max := cfg.StartDelayRange()
	assert.Equal(t, 10*time.Second, min)
	assert.Equal(t, time.Minute, max)

	g, err := cfg.CompileAccountFilter()
	require.NoError(t, err)
	require.NotNil(t, g)
	assert.True(t, g.Match("a@gmail.com"))
	assert.False(t, g.Match("a@proton.me"))
}

func TestLoadMalformedFileFails(t *testing.T) {
	path := writeConfig(t, "threadCount: [not an int")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestInvalidColorsFallBack(t *testing.T) {
	path := writeConfig(t, `
logColor: "definitely not a color"
warnColor: "#zzz"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultLogColor, cfg.LogColor)
	assert.Equal(t, DefaultWarnColor, cfg.WarnColor)
}

func TestParseHMS(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"00:00:00", 0},
		{"00:00:30", 30 * time.Second},
		{"01:02:03", time.Hour + 2*time.Minute + 3*time.Second},
		{"garbage", 0},
		{"1:2", 0},
		{"00:-1:00", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseHMS(tt.in), "input %q", tt.in)
	}
}

func TestStartDelayRangeDegenerate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StartDelay = []string{"00:01:00", "00:00:10"}

	min, max := cfg.StartDelayRange()
	assert.Equal(t, time.Minute, min)
	assert.Equal(t, time.Minute, max, "inverted range collapses to min")
}

func TestSafeColor(t *testing.T) {
	assert.Equal(t, "#abc", SafeColor("#abc", "#000"))
	assert.Equal(t, "#a1b2c3", SafeColor(" #a1b2c3 ", "#000"))
	assert.Equal(t, "212", SafeColor("212", "#000"))
	assert.Equal(t, "#000", SafeColor("999", "#000"))
	assert.Equal(t, "#000", SafeColor("none", "#000"))
	assert.Equal(t, "#000", SafeColor("", "#000"))
}

func TestCompileAccountFilterEmpty(t *testing.T) {
	cfg := DefaultConfig()
	g, err := cfg.CompileAccountFilter()
	require.NoError(t, err)
	assert.Nil(t, g)
}
