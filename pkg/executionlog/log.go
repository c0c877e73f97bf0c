package executionlog

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/basinforge/skillforge/pkg/ferr"
)

// Log is an append-only, line-delimited JSON record sequence. No line is
// ever mutated or removed once written.
type Log struct {
	path string
	mu   sync.Mutex
}

// NewLog opens (without requiring it to exist yet) a log file at path.
func NewLog(path string) *Log {
	return &Log{path: path}
}

// Append writes one record followed by a newline and fsyncs before
// returning, so a crash immediately after Append cannot lose the write.
func (l *Log) Append(record Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return &ferr.StoreError{Op: "mkdir execution log dir", Cause: err}
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return &ferr.StoreError{Op: "open execution log", Cause: err}
	}
	defer func() { _ = f.Close() }()

	line, err := json.Marshal(record)
	if err != nil {
		return &ferr.StoreError{Op: "marshal execution record", Cause: err}
	}
	line = append(line, '\n')

	if _, err := f.Write(line); err != nil {
		return &ferr.StoreError{Op: "write execution record", Cause: err}
	}
	if err := f.Sync(); err != nil {
		return &ferr.StoreError{Op: "fsync execution log", Cause: err}
	}
	return nil
}

// Filter restricts which records Read returns.
type Filter struct {
	OnlyFailures bool
	SkillName    string
	Limit        int // 0 means unlimited
}

func (f Filter) matches(r Record) bool {
	if f.OnlyFailures && r.Success {
		return false
	}
	if f.SkillName != "" && r.SkillName != f.SkillName {
		return false
	}
	return true
}

// Read streams the log, silently dropping malformed lines, applying
// filter, and returning the last Limit matches in file order.
func (l *Log) Read(filter Filter) ([]Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, &ferr.StoreError{Op: "open execution log", Cause: err}
	}
	defer func() { _ = f.Close() }()

	var matches []Record
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var record Record
		if err := json.Unmarshal(line, &record); err != nil {
			continue // malformed lines are silently dropped, never fatal
		}
		if filter.matches(record) {
			matches = append(matches, record)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, &ferr.StoreError{Op: "scan execution log", Cause: err}
	}

	if filter.Limit > 0 && len(matches) > filter.Limit {
		matches = matches[len(matches)-filter.Limit:]
	}
	return matches, nil
}
