// Package logger provides the leveled console logger used for harness
// diagnostics.
//
// Verdict lines are report output and never go through this package; the
// logger writes to the diagnostic stream so that the primary report stays
// clean.
package logger

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

// Level is a log severity.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel converts a level name (debug, info, warn, error) to a Level.
// Matching is case-insensitive and ignores surrounding whitespace.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return fmt.Sprintf("LEVEL(%d)", int(l))
	}
}

// Console writes timestamped, leveled messages to a writer. It is safe for
// concurrent use.
type Console struct {
	mu     sync.Mutex
	w      io.Writer
	level  Level
	colors map[Level]*color.Color
	now    func() time.Time
}

// New creates a Console writing messages at or above level to w. A nil
// writer discards everything. Colored level tags are used when colored is
// true.
func New(w io.Writer, level Level, colored bool) *Console {
	c := &Console{w: w, level: level, now: time.Now}
	if colored {
		c.colors = map[Level]*color.Color{
			LevelDebug: color.New(color.FgHiBlack),
			LevelInfo:  color.New(color.FgCyan),
			LevelWarn:  color.New(color.FgYellow),
			LevelError: color.New(color.FgRed, color.Bold),
		}
		for _, col := range c.colors {
			col.EnableColor()
		}
	}
	return c
}

// Discard returns a Console that drops every message.
func Discard() *Console {
	return New(nil, LevelError, false)
}

// Debugf logs at debug level.
func (c *Console) Debugf(format string, args ...any) { c.logf(LevelDebug, format, args...) }

// Infof logs at info level.
func (c *Console) Infof(format string, args ...any) { c.logf(LevelInfo, format, args...) }

// Warnf logs at warn level.
func (c *Console) Warnf(format string, args ...any) { c.logf(LevelWarn, format, args...) }

// Errorf logs at error level.
func (c *Console) Errorf(format string, args ...any) { c.logf(LevelError, format, args...) }

func (c *Console) logf(level Level, format string, args ...any) {
	if c == nil || c.w == nil || level < c.level {
		return
	}
	tag := level.String()
	if col, ok := c.colors[level]; ok {
		tag = col.Sprint(tag)
	}
	msg := fmt.Sprintf(format, args...)

	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = fmt.Fprintf(c.w, "[%s] %s %s\n", c.now().Format("15:04:05"), tag, msg)
}
