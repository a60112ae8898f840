package browser

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/playwright-community/playwright-go"
)

// Human-like interaction: pointer glides with a slight wobble, per-character
// typing with uneven delays. Nothing here is exact; the point is that no two
// runs produce the same timing trace.

// Jitter sleeps for a random duration in [min, max].
func Jitter(min, max time.Duration) {
	if max <= min {
		time.Sleep(min)
		return
	}
	time.Sleep(min + time.Duration(rand.Int63n(int64(max-min))))
}

func randBetween(min, max float64) float64 {
	return min + rand.Float64()*(max-min)
}

// HumanClick glides the pointer to a random spot inside the element matching
// the selector and clicks it.
func (s *Session) HumanClick(selector string) error {
	if err := s.guard(); err != nil {
		return err
	}

	el, err := s.page.QuerySelector(selector)
	if err != nil || el == nil {
		return fmt.Errorf("element %q not found", selector)
	}
	return s.glideAndClick(el)
}

// HumanClickIfExists clicks like HumanClick but treats a missing element as
// a no-op, reporting whether a click happened.
func (s *Session) HumanClickIfExists(selector string) (bool, error) {
	if err := s.guard(); err != nil {
		return false, err
	}

	el, err := s.page.QuerySelector(selector)
	if err != nil || el == nil {
		return false, nil
	}
	if err := s.glideAndClick(el); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Session) glideAndClick(el playwright.ElementHandle) error {
	box, err := el.BoundingBox()
	if err != nil || box == nil {
		return fmt.Errorf("element has no bounding box")
	}

	targetX := box.X + randBetween(2, box.Width-2)
	targetY := box.Y + randBetween(2, box.Height-2)
	startX := randBetween(0, 50)
	startY := randBetween(0, 50)

	steps := 10 + rand.Intn(6)
	for i := 0; i < steps; i++ {
		if s.page.IsClosed() {
			return ErrPageClosed
		}
		t := float64(i) / float64(steps)
		wobble := math.Sin(t*math.Pi*2) * randBetween(1, 3)
		x := startX + (targetX-startX)*t + wobble
		y := startY + (targetY-startY)*t + wobble
		if err := s.page.Mouse().Move(x, y, playwright.MouseMoveOptions{Steps: playwright.Int(1)}); err != nil {
			if s.page.IsClosed() {
				return ErrPageClosed
			}
			return fmt.Errorf("pointer move failed: %w", err)
		}
		Jitter(10*time.Millisecond, 30*time.Millisecond)
	}

	if s.page.IsClosed() {
		return ErrPageClosed
	}
	if err := s.page.Mouse().Click(targetX, targetY, playwright.MouseClickOptions{
		Delay: playwright.Float(randBetween(50, 200)),
	}); err != nil {
		if s.page.IsClosed() {
			return ErrPageClosed
		}
		return fmt.Errorf("click failed: %w", err)
	}
	return nil
}

// HumanType types text into the focused element one character at a time,
// with uneven inter-key delays and the occasional short pause.
func (s *Session) HumanType(text string) error {
	for _, ch := range text {
		if s.page.IsClosed() {
			return ErrPageClosed
		}
		err := s.page.Keyboard().Type(string(ch), playwright.KeyboardTypeOptions{
			Delay: playwright.Float(randBetween(6, 24)),
		})
		if err != nil {
			if s.page.IsClosed() {
				return ErrPageClosed
			}
			return fmt.Errorf("typing failed: %w", err)
		}
		if rand.Float64() < 0.05 {
			Jitter(10*time.Millisecond, 14*time.Millisecond)
		}
	}
	return nil
}

// TypeInto waits for the selector, focuses it with a human-like click, then
// types the text character by character.
func (s *Session) TypeInto(selector, text string, timeout time.Duration) error {
	if err := s.WaitForSelector(selector, timeout); err != nil {
		return err
	}
	if err := s.HumanClick(selector); err != nil {
		return err
	}
	Jitter(100*time.Millisecond, 300*time.Millisecond)
	return s.HumanType(text)
}
