package session

import (
	"time"

	"github.com/junefarm/farmer/pkg/browser"
)

// page is the slice of browser.Session the driver needs. Narrowing it keeps
// every lifecycle decision exercisable with a fake page.
type page interface {
	Navigate(url string) error
	WaitForSelector(selector string, timeout time.Duration) error
	RaceSelectors(selA, selB string, timeout time.Duration) (browser.RaceWinner, error)
	HasSelector(selector string) bool
	InnerText(selector string) (string, error)
	CursorStyle(selector string) (string, error)
	HumanClick(selector string) error
	HumanClickIfExists(selector string) (bool, error)
	HumanType(text string) error
	TypeInto(selector, text string, timeout time.Duration) error
	KeyPress(key string) error
	SetTitle(title string) error
	IsClosed() bool
	Close() error
}

var _ page = (*browser.Session)(nil)

// codeFetcher resolves a login verification code for an account.
type codeFetcher interface {
	FetchCode(email, password string) (string, error)
}
