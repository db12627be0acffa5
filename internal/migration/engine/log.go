package engine

import (
	"fmt"
	"sync"
	"time"
)

// Log is the append-only, in-memory audit trail of a migration run. Admins
// retrieve it after any trigger; nothing is ever removed or rewritten.
type Log struct {
	mu    sync.Mutex
	clock func() time.Time
	lines []string
}

// NewLog constructs an empty migration log.
func NewLog() *Log {
	return &Log{clock: time.Now}
}

// Appendf formats and appends one timestamped line.
func (l *Log) Appendf(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	line := fmt.Sprintf("%s %s", l.clock().UTC().Format(time.RFC3339), fmt.Sprintf(format, args...))
	l.lines = append(l.lines, line)
}

// Lines returns a copy of the log in append order.
func (l *Log) Lines() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.lines))
	copy(out, l.lines)
	return out
}

// Len returns the number of appended lines.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.lines)
}
