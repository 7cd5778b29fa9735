// Package logging is the domain event/conditions log: append-only, rotated
// by age, distinct from process logging on stderr, which uses the standard
// log package directly.
//
// One events-<date>.log file and one conditions-<date>.log file are kept
// per day, both under a single directory, both append-only, both guarded by
// an advisory file lock for the duration of a write.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// Level is an event's severity. Debug events are recorded only when the
// log is in debug mode.
type Level int

const (
	LevelDebug Level = iota
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "Debug"
	case LevelError:
		return "Error"
	default:
		return "Unknown"
	}
}

// Conditions is one sample of the four core measurements plus the relay
// status line.
type Conditions struct {
	Setpoint       float64
	Return         float64
	Coil           float64
	Supply         float64
	Status         string
	Compressor     string
	Fan            string
	Valve          string
	ElectricHeater string // "N/A" when the unit has no electric heater stage
}

// Log is the append-only event/conditions log rooted at dir.
type Log struct {
	mu     sync.Mutex
	dir    string
	debug  bool
	nowFn  func() time.Time
}

// New creates a Log rooted at dir, creating the directory if necessary.
// debug gates whether Debug-level events are recorded.
func New(dir string, debug bool) (*Log, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	return &Log{dir: dir, debug: debug, nowFn: time.Now}, nil
}

// SetDebug changes whether Debug-level events are recorded, reflecting a
// live config.Update of debug.code.
func (l *Log) SetDebug(debug bool) {
	l.mu.Lock()
	l.debug = debug
	l.mu.Unlock()
}

func (l *Log) now() time.Time {
	if l.nowFn != nil {
		return l.nowFn()
	}
	return time.Now()
}

func (l *Log) filename(base string) string {
	date := l.now().Format("2006-01-02")
	return filepath.Join(l.dir, fmt.Sprintf("%s-%s.log", base, date))
}

// Event appends an event line, subject to the debug gate for LevelDebug.
// Error events are never gated.
func (l *Log) Event(level Level, message string) error {
	l.mu.Lock()
	debug := l.debug
	l.mu.Unlock()

	if level == LevelDebug && !debug {
		return nil
	}

	ts := l.now().Format("2006-01-02 15:04:05")
	line := fmt.Sprintf("[%s] %s] %s\n", ts, level, message)
	return l.appendLocked(l.filename("events"), line)
}

// Debugf is a convenience wrapper around Event(LevelDebug, ...).
func (l *Log) Debugf(format string, args ...interface{}) error {
	return l.Event(LevelDebug, fmt.Sprintf(format, args...))
}

// Errorf is a convenience wrapper around Event(LevelError, ...).
func (l *Log) Errorf(format string, args ...interface{}) error {
	return l.Event(LevelError, fmt.Sprintf(format, args...))
}

// Conditions appends one conditions sample line.
func (l *Log) Conditions(c Conditions) error {
	ts := l.now().Format("2006-01-02 15:04:05")
	line := fmt.Sprintf(
		"%s - Setpoint: %.1f, Return Sensor: %.1f, Coil Sensor: %.1f, Supply: %.1f, Status: %s, Compressor: %s, Fan: %s, Valve: %s, Electric_heater: %s\n",
		ts, c.Setpoint, c.Return, c.Coil, c.Supply, c.Status, c.Compressor, c.Fan, c.Valve, c.ElectricHeater,
	)
	return l.appendLocked(l.filename("conditions"), line)
}

func (l *Log) appendLocked(path, line string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		return fmt.Errorf("lock log file: %w", err)
	}
	defer unix.Flock(int(f.Fd()), unix.LOCK_UN)

	_, err = f.WriteString(line)
	return err
}

// ReadEvents returns the raw contents of the events log for the given
// YYYY-MM-DD date, for the logs/events download endpoint.
func (l *Log) ReadEvents(date string) ([]byte, error) {
	return l.readLocked(filepath.Join(l.dir, fmt.Sprintf("events-%s.log", date)))
}

// ReadConditions returns the raw contents of the conditions log for the
// given YYYY-MM-DD date, for the logs/conditions download endpoint.
func (l *Log) ReadConditions(date string) ([]byte, error) {
	return l.readLocked(filepath.Join(l.dir, fmt.Sprintf("conditions-%s.log", date)))
}

func (l *Log) readLocked(path string) ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if err := unix.Flock(int(f.Fd()), unix.LOCK_SH); err != nil {
		return nil, fmt.Errorf("lock log file: %w", err)
	}
	defer unix.Flock(int(f.Fd()), unix.LOCK_UN)

	return io.ReadAll(f)
}

// ClearOld removes any regular file under dir whose modification time is
// older than the given retention in days.
func (l *Log) ClearOld(days int) error {
	cutoff := l.now().Add(-time.Duration(days) * 24 * time.Hour)

	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return fmt.Errorf("read log directory: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			_ = os.Remove(filepath.Join(l.dir, e.Name()))
		}
	}
	return nil
}
