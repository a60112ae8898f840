// Package config loads the farmer's YAML configuration.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gobwas/glob"
	"gopkg.in/yaml.v3"
)

// Default values applied when the config file is missing or partial.
const (
	DefaultLogColor    = "#404040"
	DefaultWarnColor   = "#b84c44"
	DefaultFrameColor  = "#6d5acf"
	DefaultPointsColor = "#d33682"

	DefaultThreadCount = 3
	DefaultRetries     = 3

	DefaultAppURL = "https://askjune.ai/app/chat"
)

// Config represents the farmer configuration file.
type Config struct {
	// Terminal colors. Invalid values fall back to defaults during Validate.
	LogColor    string `yaml:"logColor"`
	WarnColor   string `yaml:"warnColor"`
	FrameColor  string `yaml:"frameColor"`
	PointsColor string `yaml:"pointsColor"`

	// ThreadCount caps how many sessions run concurrently.
	ThreadCount int `yaml:"threadCount"`

	// StartDelay is a [min, max] pair of HH:MM:SS strings; each session
	// launch is staggered by a random delay drawn from this range.
	StartDelay []string `yaml:"startDelay"`

	// Retries is the per-session attempt budget.
	Retries int `yaml:"retries"`

	// AccountFilter optionally restricts a run to emails matching a glob
	// pattern, e.g. "*@gmail.com".
	AccountFilter string `yaml:"accountFilter"`

	// AppURL is the chat surface the sessions drive.
	AppURL string `yaml:"appURL"`

	// Headless runs browsers without a visible window.
	Headless bool `yaml:"headless"`

	// Prompts maps an interaction mode (text, images, videos) to the file
	// holding its prompt lines.
	Prompts map[string]string `yaml:"prompts"`

	// IMAP configures verification-code retrieval.
	IMAP IMAPConfig `yaml:"imap"`
}

// IMAPConfig holds mailbox lookup settings. Empty fields use the well-known
// defaults, overridable through IMAP_HOST / IMAP_PORT.
type IMAPConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	Mailbox     string `yaml:"mailbox"`
	Sender      string `yaml:"sender"`
	SearchLimit int    `yaml:"searchLimit"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		LogColor:    DefaultLogColor,
		WarnColor:   DefaultWarnColor,
		FrameColor:  DefaultFrameColor,
		PointsColor: DefaultPointsColor,
		ThreadCount: DefaultThreadCount,
		StartDelay:  []string{"00:00:00", "00:00:00"},
		Retries:     DefaultRetries,
		AppURL:      DefaultAppURL,
		Prompts: map[string]string{
			"text":   "prompts/text.txt",
			"images": "prompts/images.txt",
			"videos": "prompts/videos.txt",
		},
	}
}

// Load reads the configuration from path. A missing file yields the default
// configuration; a malformed one is an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.Validate()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	cfg.Validate()
	return cfg, nil
}

// Validate normalizes the configuration in place, replacing out-of-range or
// malformed values with defaults rather than failing the run.
func (c *Config) Validate() {
	c.LogColor = SafeColor(c.LogColor, DefaultLogColor)
	c.WarnColor = SafeColor(c.WarnColor, DefaultWarnColor)
	c.FrameColor = SafeColor(c.FrameColor, DefaultFrameColor)
	c.PointsColor = SafeColor(c.PointsColor, DefaultPointsColor)

	if c.ThreadCount < 1 {
		c.ThreadCount = DefaultThreadCount
	}
	if c.Retries < 1 {
		c.Retries = DefaultRetries
	}
	if c.AppURL == "" {
		c.AppURL = DefaultAppURL
	}
	if c.Prompts == nil {
		c.Prompts = DefaultConfig().Prompts
	}
}

// StartDelayRange returns the configured stagger window. Malformed entries
// parse to zero; an inverted range collapses to a fixed minimum.
func (c *Config) StartDelayRange() (min, max time.Duration) {
	if len(c.StartDelay) > 0 {
		min = ParseHMS(c.StartDelay[0])
	}
	if len(c.StartDelay) > 1 {
		max = ParseHMS(c.StartDelay[1])
	}
	if max < min {
		max = min
	}
	return min, max
}

// CompileAccountFilter compiles the account filter pattern. An empty pattern
// returns nil, meaning all accounts match.
func (c *Config) CompileAccountFilter() (glob.Glob, error) {
	pattern := strings.TrimSpace(c.AccountFilter)
	if pattern == "" {
		return nil, nil
	}
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid accountFilter %q: %w", pattern, err)
	}
	return g, nil
}

// PromptFile returns the prompt source configured for a mode.
func (c *Config) PromptFile(mode string) string {
	return c.Prompts[mode]
}

// ParseHMS converts an "HH:MM:SS" string to a duration. Malformed input
// parses to zero.
func ParseHMS(s string) time.Duration {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 3 {
		return 0
	}
	var secs [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0
		}
		secs[i] = n
	}
	return time.Duration(secs[0]*3600+secs[1]*60+secs[2]) * time.Second
}

var (
	hexColorRe  = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)
	ansiColorRe = regexp.MustCompile(`^\d{1,3}$`)
)

// SafeColor validates a terminal color string (hex or ANSI 0-255), returning
// the fallback for anything lipgloss could not render meaningfully.
func SafeColor(value, fallback string) string {
	v := strings.TrimSpace(value)
	if v == "" || strings.EqualFold(v, "none") {
		return fallback
	}
	if hexColorRe.MatchString(v) {
		return v
	}
	if ansiColorRe.MatchString(v) {
		if n, err := strconv.Atoi(v); err == nil && n <= 255 {
			return v
		}
	}
	return fallback
}
