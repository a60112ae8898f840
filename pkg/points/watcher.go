package points

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/junefarm/farmer/pkg/browser"
)

// PollInterval is how often the active channel re-reads the counter.
const PollInterval = time.Second

// ChangeFunc receives each deduplicated counter transition.
type ChangeFunc func(value int, source Source)

// Watcher feeds a Cell from three producers: the page-injected mutation
// observer (push), a Go-side poll of the counter selector, and a sniffer
// over points API responses. Downstream sees each transition exactly once.
type Watcher struct {
	cell      *Cell
	sess      *browser.Session
	selectors []string
	onChange  ChangeFunc

	mu      sync.Mutex
	stop    chan struct{}
	stopped bool
}

// NewWatcher creates a watcher over the session's counter element(s).
func NewWatcher(sess *browser.Session, selectors []string, onChange ChangeFunc) *Watcher {
	return &Watcher{
		cell:      &Cell{},
		sess:      sess,
		selectors: selectors,
		onChange:  onChange,
		stop:      make(chan struct{}),
	}
}

// Cell exposes the underlying value cell, e.g. for seeding a baseline.
func (w *Watcher) Cell() *Cell {
	return w.cell
}

// Install wires up all three channels and starts the poll loop.
func (w *Watcher) Install() error {
	err := w.sess.ExposeFunction(pushFunction, func(args ...any) any {
		if len(args) == 0 {
			return nil
		}
		if v, ok := asNumber(args[0]); ok {
			w.observe(v, SourcePush)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if _, err := w.sess.Evaluate(watcherScript, w.selectors); err != nil {
		return err
	}

	w.sniffResponses()
	go w.pollLoop()
	return nil
}

// Stop halts the poll loop. The in-page observer dies with the page.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.stopped {
		w.stopped = true
		close(w.stop)
	}
}

func (w *Watcher) observe(value int, source Source) {
	if w.cell.Observe(value, source) && w.onChange != nil {
		w.onChange(value, source)
	}
}

func (w *Watcher) pollLoop() {
	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stop:
			return
		case <-ticker.C:
		}
		if w.sess.IsClosed() {
			return
		}
		for _, sel := range w.selectors {
			raw, err := w.sess.InnerText(sel)
			if err != nil {
				continue
			}
			if v, err := ParsePoints(raw); err == nil {
				w.observe(v, SourcePoll)
				break
			}
		}
	}
}

// sniffResponses feeds the cell from points API responses, the same signal
// the page itself consumes.
func (w *Watcher) sniffResponses() {
	w.sess.OnResponse(func(resp playwright.Response) {
		if !strings.Contains(resp.URL(), "points") {
			return
		}
		contentType, _ := resp.HeaderValue("content-type")
		if !strings.HasPrefix(contentType, "application/json") {
			return
		}
		body, err := resp.Body()
		if err != nil {
			return
		}
		var payload struct {
			Points *int `json:"points"`
		}
		if err := json.Unmarshal(body, &payload); err != nil || payload.Points == nil {
			return
		}
		w.observe(*payload.Points, SourceResponse)
	})
}

func asNumber(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
