package audit

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ppiankov/guardsim/internal/model"
)

// Log is the persistent decision log: one JSONL file whose chain continues
// across every run that appends to it. Safe for concurrent use.
type Log struct {
	mu    sync.Mutex
	path  string
	file  *os.File
	chain chain
}

// Open opens or creates the log at path and resumes its chain.
func Open(path string) (*Log, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("audit: create directory: %w", err)
	}
	tip, err := tipOf(path)
	if err != nil {
		return nil, err
	}
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("audit: open file: %w", err)
	}
	return &Log{path: path, file: file, chain: chain{tip: tip}}, nil
}

// tipOf returns the hash of the last entry in an existing log.
func tipOf(path string) (string, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return GenesisHash, nil
	}
	if err != nil {
		return "", fmt.Errorf("audit: read existing log: %w", err)
	}
	defer f.Close()

	tip := GenesisHash
	err = eachLine(f, func(_ int, line []byte) error {
		if len(line) > 0 {
			tip = HashLine(line)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("audit: scan existing log: %w", err)
	}
	return tip, nil
}

// Path returns the log file location.
func (l *Log) Path() string { return l.path }

// Record appends entry, stamping it when Timestamp is empty, and syncs.
func (l *Log) Record(entry AuditEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if entry.Timestamp == "" {
		entry.Timestamp = model.FormatTime(time.Now())
	}
	line, err := l.chain.encode(entry)
	if err != nil {
		return err
	}
	if _, err := l.file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("audit: write entry: %w", err)
	}
	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("audit: sync: %w", err)
	}
	l.chain.advance(line)
	return nil
}

// RecordStep appends one execution step. Satisfies runner.Recorder.
func (l *Log) RecordStep(runID, policyHash string, step model.ExecutionStep) error {
	return l.Record(FromStep(runID, policyHash, step))
}

// Close closes the underlying file.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}

// EncodeChain renders entries as a standalone chain starting at GenesisHash,
// the in-memory form of a run's decision_chain.jsonl.
func EncodeChain(entries []AuditEntry) ([]byte, error) {
	var buf bytes.Buffer
	c := newChain()
	for _, e := range entries {
		line, err := c.encode(e)
		if err != nil {
			return nil, err
		}
		buf.Write(line)
		buf.WriteByte('\n')
		c.advance(line)
	}
	return buf.Bytes(), nil
}
