package session

// Mode is one of the three interaction surfaces, ground in fixed order.
type Mode string

const (
	ModeText   Mode = "text"
	ModeImages Mode = "images"
	ModeVideos Mode = "videos"
)

// Modes is the fixed grind order.
var Modes = []Mode{ModeText, ModeImages, ModeVideos}

// DOM selectors for the target surface.
const (
	selPoints      = "span.tabular-nums"
	selSignIn      = `button:has-text("Sign in")`
	selEmailInput  = "#email"
	selSubmit      = `button[type="submit"]`
	selLoginFinish = "div.sc-aaec2400-4"
	selVerifyCode  = `input[aria-label="Verification code"]`
	selNewChat     = `button[data-tour="new-chat-button"]`
	selUsageLimit  = `div:has-text("You have reached your 5-hour usage limit")`
)

// PointsSelectors are the candidate counter elements, most specific first.
var PointsSelectors = []string{".text-arcticNights .tabular-nums", selPoints}

// Mode buttons are identified by their icon.
var modeButtons = map[Mode]string{
	ModeText:   "button:has(svg.lucide-message-circle)",
	ModeImages: "button:has(svg.lucide-image)",
	ModeVideos: "button:has(svg.lucide-tv-minimal-play)",
}

// Each mode has its own prompt textarea.
var modeTextareas = map[Mode]string{
	ModeText:   `textarea[placeholder="Type your question here..."]`,
	ModeImages: `textarea[placeholder="Describe an image here..."]`,
	ModeVideos: `textarea[placeholder="Describe a video here..."]`,
}
