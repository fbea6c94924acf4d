// Package klog sets up the daemon's leveled logging and keeps a
// bounded in-memory record buffer behind the /log endpoint's NDJSON
// stream. Console output goes through github.com/charmbracelet/log,
// the same logging library the rest of the daemon uses; the buffer
// captures every emitted line with its timestamp so a client can seek
// backwards and optionally follow live.
package klog

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/kvmd-go/kvmd/internal/primitives"
)

// Record is one captured log line.
type Record struct {
	TS   time.Time `json:"ts"`
	Line string    `json:"line"`
}

// maxRecords bounds the in-memory buffer; old records are dropped
// from the front once exceeded.
const maxRecords = 10000

// Buffer is an io.Writer capturing formatted log lines as timestamped
// records. It is safe for concurrent use and feeds the /log endpoint.
type Buffer struct {
	mu       sync.Mutex
	records  []Record
	notifier *primitives.Notifier
}

// NewBuffer returns an empty Buffer.
func NewBuffer() *Buffer {
	return &Buffer{notifier: primitives.NewNotifier()}
}

// Write captures one or more newline-separated formatted lines.
func (b *Buffer) Write(p []byte) (int, error) {
	now := time.Now()

	b.mu.Lock()
	for _, line := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
		if line == "" {
			continue
		}
		b.records = append(b.records, Record{TS: now, Line: line})
	}
	if n := len(b.records); n > maxRecords {
		b.records = append([]Record(nil), b.records[n-maxRecords:]...)
	}
	b.mu.Unlock()

	b.notifier.Notify(0)
	return len(p), nil
}

// Seek returns a snapshot of the records emitted within the last
// seek duration; seek <= 0 means no history, only what follows.
func (b *Buffer) Seek(seek time.Duration) []Record {
	b.mu.Lock()
	defer b.mu.Unlock()

	if seek <= 0 {
		return nil
	}
	cutoff := time.Now().Add(-seek)
	for i, rec := range b.records {
		if rec.TS.After(cutoff) {
			return append([]Record(nil), b.records[i:]...)
		}
	}
	return nil
}

// Notifier exposes the wakeup signal used by followers of the live
// stream; after each wakeup call Since to collect what arrived.
func (b *Buffer) Notifier() *primitives.Notifier { return b.notifier }

// Since returns every record newer than after.
func (b *Buffer) Since(after time.Time) []Record {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, rec := range b.records {
		if rec.TS.After(after) {
			return append([]Record(nil), b.records[i:]...)
		}
	}
	return nil
}

// New builds the daemon logger at the named level ("debug", "info",
// "warn", "error"), teeing output into buf when non-nil.
func New(level string, buf *Buffer) *log.Logger {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}

	var out io.Writer = os.Stderr
	if buf != nil {
		out = io.MultiWriter(os.Stderr, buf)
	}
	return log.NewWithOptions(out, log.Options{
		ReportTimestamp: true,
		Level:           lvl,
	})
}
