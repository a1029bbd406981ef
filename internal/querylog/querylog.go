// Package querylog appends one JSON line per executed query to a per-day
// log file, for offline usage analysis.
package querylog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Entry is one executed query.
type Entry struct {
	Timestamp     time.Time `json:"timestamp"`
	Query         string    `json:"query"`
	ExecutionTime float64   `json:"execution_time"`
	RowCount      int       `json:"row_count"`
	UserID        string    `json:"user_id"`
}

// Logger writes entries under a directory, one file per day
// (query_log_YYYYMMDD.jsonl). A nil logger or empty directory disables
// logging.
type Logger struct {
	dir string
	mu  sync.Mutex
}

func New(dir string) *Logger {
	return &Logger{dir: dir}
}

// Append records one entry. Zero fields are defaulted: Timestamp to now,
// UserID to "anonymous".
func (l *Logger) Append(entry Entry) error {
	if l == nil || l.dir == "" {
		return nil
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	if entry.UserID == "" {
		entry.UserID = "anonymous"
	}

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode query log entry: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create query log dir: %w", err)
	}

	name := fmt.Sprintf("query_log_%s.jsonl", entry.Timestamp.Format("20060102"))
	f, err := os.OpenFile(filepath.Join(l.dir, name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open query log file: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to write query log entry: %w", err)
	}
	return nil
}
