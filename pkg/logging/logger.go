// Package logging provides structured logging for farmer components.
// All entries are written to a run-specific file under ~/.farmer/logs/;
// Info and Warn lines are additionally mirrored to the terminal with
// lipgloss styling.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
)

// Options configures terminal output for a logger.
type Options struct {
	// Terminal receives styled Info/Warn/Error lines. Nil disables
	// terminal mirroring (file only).
	Terminal io.Writer

	// LogColor and WarnColor style normal and warning lines.
	LogColor  string
	WarnColor string

	// Cycle, when set, overrides LogColor with a rotating hue on each
	// Info line. Used for the points ledger output.
	Cycle *ColorCycle
}

// Logger writes component-tagged log entries.
type Logger struct {
	runID     string
	component string
	file      *os.File
	logger    *log.Logger
	opts      Options
	mu        sync.Mutex
	logPath   string
	closeOnce sync.Once
}

var (
	runID     string
	runIDOnce sync.Once

	logDir   string
	initOnce sync.Once
	initErr  error
)

func getRunID() string {
	runIDOnce.Do(func() {
		runID = uuid.New().String()
	})
	return runID
}

func initLogDirectory() error {
	initOnce.Do(func() {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			initErr = fmt.Errorf("failed to get home directory: %w", err)
			return
		}
		logDir = filepath.Join(homeDir, ".farmer", "logs")
		if err := os.MkdirAll(logDir, 0750); err != nil {
			initErr = fmt.Errorf("failed to create log directory: %w", err)
		}
	})
	return initErr
}

// NewLogger creates a logger for a component. All loggers of one run append
// to the same file, named by the run id. If the log file cannot be opened it
// falls back to stderr and returns the error alongside a usable logger.
func NewLogger(component string, opts Options) (*Logger, error) {
	if err := initLogDirectory(); err != nil {
		return newFallbackLogger(component, opts, err), err
	}

	id := getRunID()
	logPath := filepath.Join(logDir, fmt.Sprintf("%s-farmer.log", id))

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return newFallbackLogger(component, opts, fmt.Errorf("failed to open log file: %w", err)), err
	}

	return &Logger{
		runID:     id,
		component: component,
		file:      file,
		logger:    log.New(file, "", 0),
		opts:      opts,
		logPath:   logPath,
	}, nil
}

func newFallbackLogger(component string, opts Options, err error) *Logger {
	logger := log.New(os.Stderr, fmt.Sprintf("[%s] ", component), log.LstdFlags)
	logger.Printf("WARNING: file logging unavailable: %v", err)

	return &Logger{
		runID:     getRunID(),
		component: component,
		logger:    logger,
		opts:      opts,
	}
}

// WithComponent returns a logger sharing this logger's output and options
// under a different component tag.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		runID:     l.runID,
		component: component,
		file:      l.file,
		logger:    l.logger,
		opts:      l.opts,
		logPath:   l.logPath,
	}
}

func (l *Logger) entry(level, message string) string {
	timestamp := time.Now().Format("2006-01-02 15:04:05.000")
	return fmt.Sprintf("[%s] [%s] [%s] %s", timestamp, l.component, level, message)
}

func (l *Logger) write(level, color, format string, v ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	message := fmt.Sprintf(format, v...)
	l.logger.Println(l.entry(level, message))

	if l.opts.Terminal != nil {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(color))
		fmt.Fprintln(l.opts.Terminal, style.Render(message))
	}
}

// Infof logs an info line, styled with the log color or the rotating cycle.
func (l *Logger) Infof(format string, v ...any) {
	color := l.opts.LogColor
	if l.opts.Cycle != nil {
		color = l.opts.Cycle.Next()
	}
	l.write("INFO", color, format, v...)
}

// Warnf logs a warning line in the warn color.
func (l *Logger) Warnf(format string, v ...any) {
	l.write("WARN", l.opts.WarnColor, format, v...)
}

// Errorf logs an error line in the warn color.
func (l *Logger) Errorf(format string, v ...any) {
	l.write("ERROR", l.opts.WarnColor, format, v...)
}

// Debugf logs a debug line to the file only.
func (l *Logger) Debugf(format string, v ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logger.Println(l.entry("DEBUG", fmt.Sprintf(format, v...)))
}

// RunID returns the id shared by all loggers of this process.
func (l *Logger) RunID() string {
	return l.runID
}

// LogPath returns the log file path, empty in fallback mode.
func (l *Logger) LogPath() string {
	return l.logPath
}

// Close closes the log file. Safe to call multiple times.
func (l *Logger) Close() error {
	var err error
	l.closeOnce.Do(func() {
		if l.file != nil {
			err = l.file.Close()
		}
	})
	return err
}
