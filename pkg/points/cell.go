// Package points tracks the displayed points counter through two independent
// channels: an active DOM poll and a push notification installed in the
// page. Both funnel into one deduplicated value cell.
package points

import (
	"fmt"
	"strings"
	"sync"
	"unicode"
)

// Source identifies which channel produced an observation.
type Source string

const (
	// SourcePoll is the periodic DOM re-read.
	SourcePoll Source = "poll"
	// SourcePush is the in-page mutation observer callback.
	SourcePush Source = "push"
	// SourceResponse is the network response sniffer.
	SourceResponse Source = "response"
)

// Cell holds the latest observed counter value. Whichever channel reports a
// new value first wins and becomes the authoritative last value; the other
// channel's duplicate report compares equal and is discarded, so one logical
// change never triggers two downstream writes.
type Cell struct {
	mu   sync.Mutex
	last *int
}

// Observe applies a value from a channel, reporting whether it was a real
// transition.
func (c *Cell) Observe(value int, _ Source) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.last != nil && *c.last == value {
		return false
	}
	v := value
	c.last = &v
	return true
}

// Seed sets the baseline value without counting it as a transition.
func (c *Cell) Seed(value int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := value
	c.last = &v
}

// Last returns the current value, if any observation has been made.
func (c *Cell) Last() (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last == nil {
		return 0, false
	}
	return *c.last, true
}

// ParsePoints extracts the integer value from the counter's displayed text,
// ignoring separators and any surrounding decoration.
func ParsePoints(raw string) (int, error) {
	var digits strings.Builder
	for _, r := range raw {
		if unicode.IsDigit(r) {
			digits.WriteRune(r)
		}
	}
	if digits.Len() == 0 {
		return 0, fmt.Errorf("no digits in counter text %q", raw)
	}

	var n int
	for _, r := range digits.String() {
		n = n*10 + int(r-'0')
	}
	return n, nil
}
