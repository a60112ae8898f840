package points

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCellFirstObservationIsTransition(t *testing.T) {
	c := &Cell{}
	assert.True(t, c.Observe(100, SourcePoll))

	v, ok := c.Last()
	require.True(t, ok)
	assert.Equal(t, 100, v)
}

func TestCellDeduplicatesAcrossChannels(t *testing.T) {
	c := &Cell{}
	c.Seed(100)

	// Push sees the new value first, poll reports the same value moments
	// later: only the first report is a transition.
	assert.True(t, c.Observe(130, SourcePush))
	assert.False(t, c.Observe(130, SourcePoll))
	assert.False(t, c.Observe(130, SourcePush))

	v, _ := c.Last()
	assert.Equal(t, 130, v)
}

func TestCellSeedIsNotATransition(t *testing.T) {
	c := &Cell{}
	c.Seed(50)
	assert.False(t, c.Observe(50, SourcePoll))
	assert.True(t, c.Observe(51, SourcePoll))
}

func TestCellConcurrentDuplicateReportsYieldOneTransition(t *testing.T) {
	c := &Cell{}
	c.Seed(10)

	var mu sync.Mutex
	transitions := 0

	var wg sync.WaitGroup
	observe := func(src Source) {
		defer wg.Done()
		if c.Observe(20, src) {
			mu.Lock()
			transitions++
			mu.Unlock()
		}
	}
	wg.Add(2)
	go observe(SourcePoll)
	go observe(SourcePush)
	wg.Wait()

	assert.Equal(t, 1, transitions, "one logical change, one downstream update")
}

func TestParsePoints(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"1,234", 1234, false},
		{" 42 pts", 42, false},
		{"0", 0, false},
		{"n/a", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := ParsePoints(tt.in)
		if tt.wantErr {
			assert.Error(t, err, "input %q", tt.in)
			continue
		}
		require.NoError(t, err, "input %q", tt.in)
		assert.Equal(t, tt.want, got, "input %q", tt.in)
	}
}
