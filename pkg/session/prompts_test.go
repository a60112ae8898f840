package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomPrompt(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "text.txt")
	require.NoError(t, os.WriteFile(path, []byte("alpha\n\n  beta  \ngamma\n"), 0600))

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		prompt, err := RandomPrompt(path)
		require.NoError(t, err)
		seen[prompt] = true
	}

	for prompt := range seen {
		assert.Contains(t, []string{"alpha", "beta", "gamma"}, prompt, "prompts are trimmed and non-empty")
	}
}

func TestRandomPromptEmptyPath(t *testing.T) {
	_, err := RandomPrompt("")
	assert.ErrorIs(t, err, ErrPromptSource)
}

func TestRandomPromptMissingFile(t *testing.T) {
	_, err := RandomPrompt(filepath.Join(t.TempDir(), "nope.txt"))
	assert.ErrorIs(t, err, ErrPromptSource)
}

func TestRandomPromptBlankFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blank.txt")
	require.NoError(t, os.WriteFile(path, []byte("\n   \n\n"), 0600))

	_, err := RandomPrompt(path)
	assert.ErrorIs(t, err, ErrPromptSource)
}
