package session

import (
	"errors"
	"fmt"
	"math/rand"
	"os"
	"strings"
)

// ErrPromptSource marks a missing or empty prompt file. This is a
// configuration error: it is surfaced immediately and never retried.
var ErrPromptSource = errors.New("bad prompt source")

// RandomPrompt returns one non-empty line chosen uniformly from the file.
func RandomPrompt(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: no prompt file configured", ErrPromptSource)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrPromptSource, path, err)
	}

	var lines []string
	for _, line := range strings.Split(string(data), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return "", fmt.Errorf("%w: %s is empty", ErrPromptSource, path)
	}

	return lines[rand.Intn(len(lines))], nil
}
