package runstore

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/quotientlab/groundtrace/internal/chain"
)

// File names inside a run folder.
const (
	LogFile      = "trace.log"
	DigestsFile  = "digests.json"
	ArtifactFile = "artifact.txt"
	ResultFile   = "result.json"
)

// Run is one run folder under the store root.
type Run struct {
	ID  string
	dir string
}

// Dir returns the run folder path.
func (r *Run) Dir() string { return r.dir }

// CreateRun allocates a fresh run folder named by a UUIDv7, so folder
// names sort by creation time.
func (s *Store) CreateRun() (*Run, error) {
	id := uuid.Must(uuid.NewV7()).String()
	dir := filepath.Join(s.root, id)
	if err := os.Mkdir(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create run folder: %w", err)
	}
	return &Run{ID: id, dir: dir}, nil
}

// OpenRun opens an existing run folder by ID.
func (s *Store) OpenRun(id string) (*Run, error) {
	dir := filepath.Join(s.root, id)
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("open run %s: %w", id, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("open run %s: not a directory", id)
	}
	return &Run{ID: id, dir: dir}, nil
}

// OpenDir wraps an arbitrary directory as a run folder, for verifying
// runs that live outside a store root.
func OpenDir(dir string) (*Run, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("open run dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("open run dir %s: not a directory", dir)
	}
	return &Run{ID: filepath.Base(dir), dir: dir}, nil
}

// LogWriter appends step lines to trace.log. Lines are flushed and the
// file synced on Close so a crash after Close never loses a step.
type LogWriter struct {
	f  *os.File
	bw *bufio.Writer
}

// NewLogWriter opens trace.log for appending.
func (r *Run) NewLogWriter() (*LogWriter, error) {
	f, err := os.OpenFile(filepath.Join(r.dir, LogFile), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open trace log: %w", err)
	}
	return &LogWriter{f: f, bw: bufio.NewWriter(f)}, nil
}

// Append writes one step line followed by a newline.
func (w *LogWriter) Append(line []byte) error {
	if _, err := w.bw.Write(line); err != nil {
		return fmt.Errorf("append step line: %w", err)
	}
	if err := w.bw.WriteByte('\n'); err != nil {
		return fmt.Errorf("append step line: %w", err)
	}
	return nil
}

// Close flushes, syncs, and closes the log. Every error path still
// closes the underlying file.
func (w *LogWriter) Close() error {
	flushErr := w.bw.Flush()
	syncErr := w.f.Sync()
	closeErr := w.f.Close()
	if flushErr != nil {
		return fmt.Errorf("flush trace log: %w", flushErr)
	}
	if syncErr != nil {
		return fmt.Errorf("sync trace log: %w", syncErr)
	}
	if closeErr != nil {
		return fmt.Errorf("close trace log: %w", closeErr)
	}
	return nil
}

// ReadLogLines returns the raw step lines of trace.log, without
// trailing newlines. Blank lines are dropped.
func (r *Run) ReadLogLines() ([][]byte, error) {
	data, err := os.ReadFile(filepath.Join(r.dir, LogFile))
	if err != nil {
		return nil, fmt.Errorf("read trace log: %w", err)
	}
	var lines [][]byte
	for _, line := range bytes.Split(data, []byte("\n")) {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// WriteArtifact writes the human-readable artifact once.
func (r *Run) WriteArtifact(text string) error {
	return writeOnce(filepath.Join(r.dir, ArtifactFile), []byte(text))
}

// WriteDigests writes digests.json once.
func (r *Run) WriteDigests(anchor chain.Anchor) error {
	data, err := json.MarshalIndent(anchor, "", "  ")
	if err != nil {
		return fmt.Errorf("encode digests: %w", err)
	}
	return writeOnce(filepath.Join(r.dir, DigestsFile), append(data, '\n'))
}

// ReadDigests reads digests.json back as an anchor.
func (r *Run) ReadDigests() (chain.Anchor, error) {
	var anchor chain.Anchor
	data, err := os.ReadFile(filepath.Join(r.dir, DigestsFile))
	if err != nil {
		return anchor, fmt.Errorf("read digests: %w", err)
	}
	if err := json.Unmarshal(data, &anchor); err != nil {
		return anchor, fmt.Errorf("decode digests: %w", err)
	}
	return anchor, nil
}

// ReadDigestsRaw returns the digests.json bytes for verifiers that
// parse and reject malformed anchors themselves.
func (r *Run) ReadDigestsRaw() ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(r.dir, DigestsFile))
	if err != nil {
		return nil, fmt.Errorf("read digests: %w", err)
	}
	return data, nil
}

// WriteResult writes result.json once, stamping created_at if unset.
func (r *Run) WriteResult(rec Record) error {
	if rec.CreatedAt == "" {
		rec.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return writeOnce(filepath.Join(r.dir, ResultFile), append(data, '\n'))
}

// ReadResult reads result.json back.
func (r *Run) ReadResult() (Record, error) {
	var rec Record
	data, err := os.ReadFile(filepath.Join(r.dir, ResultFile))
	if err != nil {
		return rec, fmt.Errorf("read result: %w", err)
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, fmt.Errorf("decode result: %w", err)
	}
	return rec, nil
}

// ReadArtifact reads artifact.txt back.
func (r *Run) ReadArtifact() (string, error) {
	data, err := os.ReadFile(filepath.Join(r.dir, ArtifactFile))
	if err != nil {
		return "", fmt.Errorf("read artifact: %w", err)
	}
	return string(data), nil
}

// writeOnce refuses to overwrite an existing file. Run artifacts are
// immutable once written.
func writeOnce(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("%s already written", filepath.Base(path))
		}
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	_, writeErr := f.Write(data)
	syncErr := f.Sync()
	closeErr := f.Close()
	if writeErr != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), writeErr)
	}
	if syncErr != nil {
		return fmt.Errorf("sync %s: %w", filepath.Base(path), syncErr)
	}
	if closeErr != nil {
		return fmt.Errorf("close %s: %w", filepath.Base(path), closeErr)
	}
	return nil
}

// Verdict strings stored in result.json and the index.
const (
	VerdictOK       = "OK"
	VerdictError    = "ERROR"
	VerdictValid    = "VALID"
	VerdictMismatch = "MISMATCH"
)

// NormalizeVerdict maps a free-form verdict onto the stored set,
// defaulting to ERROR for anything unrecognized.
func NormalizeVerdict(v string) string {
	switch strings.ToUpper(v) {
	case VerdictOK, VerdictError, VerdictValid, VerdictMismatch:
		return strings.ToUpper(v)
	default:
		return VerdictError
	}
}
