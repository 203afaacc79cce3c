// Package eventlog is the process-wide append-only JSON-lines event sink:
// every connection, analyzer, and supervisor event is serialized as one
// line here, independent of the ambient zap diagnostic logger.
package eventlog

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"
)

// DefaultRotationThreshold mirrors the Python prototype's 100 MiB default.
const DefaultRotationThreshold = 100 * 1024 * 1024

// Logger is a mutex-linearized, size-rotated, gzip-archiving JSON-lines
// sink. The zero value is not usable; construct with Open.
type Logger struct {
	mu        sync.Mutex
	path      string
	file      *os.File
	threshold int64
}

// Open creates or appends to the log at path, rotating once its size
// exceeds thresholdBytes.
func Open(path string, thresholdBytes int64) (*Logger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return nil, fmt.Errorf("eventlog: open %s: %w", path, err)
	}
	return &Logger{path: path, file: f, threshold: thresholdBytes}, nil
}

// Close flushes and releases the underlying file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}

// Log serializes one entry (timestamp, type, event, plus the caller's
// fields) as a single JSON line, linearized with every other Log call.
// Rotation is checked before the write, under the same lock.
func (l *Logger) Log(entryType, event string, fields map[string]interface{}) error {
	entry := make(map[string]interface{}, len(fields)+3)
	for k, v := range fields {
		entry[k] = v
	}
	entry["timestamp"] = time.Now().UTC().Format("2006-01-02T15:04:05.000000") + "Z"
	entry["type"] = entryType
	entry["event"] = event

	line, err := json.Marshal(renderValue(entry))
	if err != nil {
		return fmt.Errorf("eventlog: marshal entry: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.rotateIfNeededLocked(); err != nil {
		return err
	}

	if _, err := l.file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("eventlog: write entry: %w", err)
	}
	return l.file.Sync()
}

func (l *Logger) rotateIfNeededLocked() error {
	info, err := l.file.Stat()
	if err != nil {
		return fmt.Errorf("eventlog: stat: %w", err)
	}
	if info.Size() <= l.threshold {
		return nil
	}
	return l.rotateLocked()
}

var rotatedSegmentRe = regexp.MustCompile(`\.(\d+)\.gz$`)

// rotateLocked closes the active file, copies its bytes into the next
// <log>.NNN.gz (NNN is one more than the largest segment number already
// present in the log's directory, 0 if there is none, zero-padded to 3
// digits), then reopens the original path truncated. Must be called with
// l.mu held.
func (l *Logger) rotateLocked() error {
	if err := l.file.Close(); err != nil {
		return fmt.Errorf("eventlog: close for rotation: %w", err)
	}

	n, err := nextSegmentNumber(l.path)
	if err != nil {
		return err
	}

	if err := gzipCopy(l.path, fmt.Sprintf("%s.%03d.gz", l.path, n)); err != nil {
		return err
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o640)
	if err != nil {
		return fmt.Errorf("eventlog: reopen after rotation: %w", err)
	}
	l.file = f
	return nil
}

// nextSegmentNumber scans the log's directory for <base>.NNN.gz files and
// returns one plus the largest NNN seen, matching the Python prototype's
// max-plus-one scheme (not a running counter: deleting segments lets
// numbers be reused).
func nextSegmentNumber(path string) (int, error) {
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("eventlog: list %s: %w", dir, err)
	}

	n := 0
	prefix := base + "."
	for _, e := range entries {
		name := e.Name()
		if len(name) <= len(prefix) || name[:len(prefix)] != prefix {
			continue
		}
		m := rotatedSegmentRe.FindStringSubmatch(name[len(prefix)-1:])
		if m == nil {
			continue
		}
		var num int
		if _, err := fmt.Sscanf(m[1], "%d", &num); err == nil && num+1 > n {
			n = num + 1
		}
	}
	return n, nil
}

func gzipCopy(srcPath, dstPath string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("eventlog: reopen %s for rotation copy: %w", srcPath, err)
	}
	defer src.Close()

	dst, err := os.Create(dstPath)
	if err != nil {
		return fmt.Errorf("eventlog: create %s: %w", dstPath, err)
	}
	defer dst.Close()

	gw := gzip.NewWriter(dst)
	if _, err := io.Copy(gw, src); err != nil {
		return fmt.Errorf("eventlog: gzip rotation copy: %w", err)
	}
	return gw.Close()
}
