package pipeline

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/aluiziolira/go-scrape-news/models"
)

// ErrLogClosed is returned by Append after Close.
var ErrLogClosed = errors.New("append log: closed")

// maxLineSize bounds a single record line; article bodies can be long.
const maxLineSize = 16 << 20

// AppendLog is a line-delimited JSON file that only grows. Each Append is a
// single write of one complete line, optionally fsynced, so a reader sees
// either the previous records or the previous records plus the new one.
type AppendLog struct {
	path string
	sync bool

	mu     sync.Mutex
	file   *os.File
	closed bool
}

// LogOptions tunes an AppendLog.
type LogOptions struct {
	// SyncWrites fsyncs after every record.
	SyncWrites bool
}

// OpenAppendLog opens path for appending, creating it and its directory if
// needed. A partial trailing line left by an interrupted write is repaired
// before the first append.
func OpenAppendLog(path string, opts LogOptions) (*AppendLog, error) {
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	if err := repairTail(path); err != nil {
		return nil, fmt.Errorf("repair log %s: %w", path, err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log %s: %w", path, err)
	}
	return &AppendLog{path: path, sync: opts.SyncWrites, file: f}, nil
}

// Path returns the file backing the log.
func (l *AppendLog) Path() string {
	return l.path
}

// Append durably writes one record.
func (l *AppendLog) Append(rec models.Record) error {
	line, err := encodeLine(rec)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrLogClosed
	}
	if _, err := l.file.Write(line); err != nil {
		return fmt.Errorf("write log %s: %w", l.path, err)
	}
	if l.sync {
		if err := l.file.Sync(); err != nil {
			return fmt.Errorf("sync log %s: %w", l.path, err)
		}
	}
	return nil
}

// LoadAll reads back every complete record in append order.
func (l *AppendLog) LoadAll() ([]models.Record, error) {
	return LoadAll(l.path)
}

// Close flushes and closes the handle. Calling Close twice is harmless.
func (l *AppendLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	return l.file.Close()
}

// LoadAll parses the log at path. Lines may carry a trailing comma (the
// legacy "json,\n" layout). A malformed final line is a torn write and is
// dropped; malformed interior lines are skipped with a warning. A missing
// file is an empty log.
func LoadAll(path string) ([]models.Record, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open log %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var (
		records []models.Record
		pending []int // line numbers of malformed lines not yet known to be interior
		lineNo  int
	)
	for scanner.Scan() {
		lineNo++
		line := trimSeparator(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var rec models.Record
		if err := json.Unmarshal(line, &rec); err != nil {
			pending = append(pending, lineNo)
			continue
		}
		for _, n := range pending {
			slog.Warn("skipping malformed log line", slog.String("path", path), slog.Int("line", n))
		}
		pending = pending[:0]
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return records, fmt.Errorf("read log %s: %w", path, err)
	}
	for _, n := range pending {
		slog.Debug("discarding truncated log tail", slog.String("path", path), slog.Int("line", n))
	}
	return records, nil
}

func encodeLine(rec models.Record) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(rec); err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	return buf.Bytes(), nil
}

func trimSeparator(line []byte) []byte {
	line = bytes.TrimSpace(line)
	return bytes.TrimSpace(bytes.TrimSuffix(line, []byte(",")))
}

// repairTail makes sure the file ends on a line boundary. An unterminated
// tail that is a complete record gets its newline; anything else is cut.
func repairTail(path string) error {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	size := info.Size()
	if size == 0 {
		return nil
	}

	last := make([]byte, 1)
	if _, err := f.ReadAt(last, size-1); err != nil {
		return err
	}
	if last[0] == '\n' {
		return nil
	}

	start, err := lastLineStart(f, size)
	if err != nil {
		return err
	}
	tail := make([]byte, size-start)
	if _, err := f.ReadAt(tail, start); err != nil && !errors.Is(err, io.EOF) {
		return err
	}

	var rec models.Record
	if json.Unmarshal(trimSeparator(tail), &rec) == nil {
		if _, err := f.WriteAt([]byte("\n"), size); err != nil {
			return err
		}
		return f.Sync()
	}

	slog.Warn("truncating partial log tail", slog.String("path", path), slog.Int64("bytes", size-start))
	if err := f.Truncate(start); err != nil {
		return err
	}
	return f.Sync()
}

// lastLineStart returns the offset just past the final newline in f.
func lastLineStart(f *os.File, size int64) (int64, error) {
	const chunk = 4096
	buf := make([]byte, chunk)
	end := size
	for end > 0 {
		n := int64(chunk)
		if end < n {
			n = end
		}
		if _, err := f.ReadAt(buf[:n], end-n); err != nil && !errors.Is(err, io.EOF) {
			return 0, err
		}
		if i := bytes.LastIndexByte(buf[:n], '\n'); i >= 0 {
			return end - n + int64(i) + 1, nil
		}
		end -= n
	}
	return 0, nil
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}
