package xfer

import (
    "bufio"
    "crypto/rand"
    "encoding/hex"
    "encoding/json"
    "fmt"
    "os"
    "path/filepath"
    "sync"
    "time"

    "github.com/dsoprea/go-logging"
)

var translogLogger = log.NewLogger("xfer.translog")

// transactionLogVersion is the only version this implementation writes or
// reads; an unrecognized version in an existing log file is rejected
// rather than guessed at (spec.md section 6.5).
const transactionLogVersion = 1

// translogHeader is the first line written to a transaction log.
type translogHeader struct {
    Version        int             `json:"version"`
    OperationID    string          `json:"operation_id"`
    StartedAt      time.Time       `json:"started_at"`
    ConfigSnapshot json.RawMessage `json:"config_snapshot,omitempty"`
}

// translogFooter is the last line written to a transaction log.
type translogFooter struct {
    Status         string    `json:"status"` // "Completed" or "Aborted"
    CompletedAt    time.Time `json:"completed_at"`
    FilesProcessed int       `json:"files_processed"`
    FilesFailed    int       `json:"files_failed"`
}

// translogRecord is the on-disk shape of one TransactionLogEntry line.
type translogRecord struct {
    Op          string    `json:"op"`
    Source      string    `json:"source"`
    Dest        string    `json:"dest"`
    Bytes       int64     `json:"bytes"`
    StartedAt   time.Time `json:"started_at"`
    CompletedAt time.Time `json:"completed_at"`
    Status      string    `json:"status"`
    Checksum    string    `json:"checksum,omitempty"`
}

// DefaultLogFileName builds the default transaction log file name for now
// (spec.md section 4.5.4): transaction-<UTC timestamp>-<8 hex random>.json.
func DefaultLogFileName(now time.Time) (string, error) {
    var buf [4]byte
    if _, err := rand.Read(buf[:]); err != nil {
        return "", fmt.Errorf("generate random suffix: %w", err)
    }
    ts := now.UTC().Format("20060102T150405Z")
    return fmt.Sprintf("transaction-%s-%s.json", ts, hex.EncodeToString(buf[:])), nil
}

// TransactionLogWriter is the single owner of the transaction log file;
// workers must only reach it through Append (spec.md section 5: "the
// transaction-log writer... [is a] single-owner" component).
type TransactionLogWriter struct {
    f  *os.File
    bw *bufio.Writer

    mu             sync.Mutex
    lastFlush      time.Time
    unflushedBytes int
    filesProcessed int
    filesFailed    int
}

// flushThresholdBytes and flushInterval bound how long a record can sit
// unflushed (spec.md section 4.5.4: "flushed at most once per 1MiB or 1s").
const flushThresholdBytes = 1 << 20

var flushInterval = time.Second

// OpenTransactionLog creates path and writes the opening header, fsyncing
// it before returning.
func OpenTransactionLog(path string, operationID string, configSnapshot interface{}) (*TransactionLogWriter, error) {
    if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
        return nil, fmt.Errorf("mkdir %s: %w", filepath.Dir(path), err)
    }

    f, err := os.Create(path)
    if err != nil {
        return nil, fmt.Errorf("create transaction log %s: %w", path, err)
    }

    snapshot, err := json.Marshal(configSnapshot)
    if err != nil {
        f.Close()
        return nil, fmt.Errorf("marshal config snapshot: %w", err)
    }

    header := translogHeader{
        Version:        transactionLogVersion,
        OperationID:    operationID,
        StartedAt:      time.Now().UTC(),
        ConfigSnapshot: snapshot,
    }

    w := &TransactionLogWriter{f: f, bw: bufio.NewWriter(f), lastFlush: time.Now()}
    if err := w.writeLine(header); err != nil {
        f.Close()
        return nil, err
    }
    if err := w.flush(true); err != nil {
        f.Close()
        return nil, err
    }

    return w, nil
}

// Append writes one completed TransactionLogEntry as a JSON line, flushing
// (and fsyncing) whenever the unflushed buffer exceeds flushThresholdBytes
// or flushInterval has elapsed since the last flush.
func (w *TransactionLogWriter) Append(entry TransactionLogEntry) {
    w.mu.Lock()
    defer w.mu.Unlock()

    rec := translogRecord{
        Op:          entry.Op.String(),
        Source:      entry.Source,
        Dest:        entry.Dest,
        Bytes:       entry.Bytes,
        StartedAt:   entry.StartedAt,
        CompletedAt: entry.CompletedAt,
        Status:      entry.Status.String(),
        Checksum:    entry.Checksum,
    }

    if entry.Status == StatusFailed {
        w.filesFailed++
    } else {
        w.filesProcessed++
    }

    if err := w.writeLineLocked(rec); err != nil {
        translogLogger.Warningf(nil, "failed to append transaction log record for %s: %v", entry.Source, err)
        return
    }

    due := w.unflushedBytes >= flushThresholdBytes || time.Since(w.lastFlush) >= flushInterval
    if due {
        if err := w.flushLocked(false); err != nil {
            translogLogger.Warningf(nil, "failed to flush transaction log: %v", err)
        }
    }
}

// Close writes the closing footer, flushes and fsyncs, then closes the
// underlying file.
func (w *TransactionLogWriter) Close(status string, filesProcessed, filesFailed int) error {
    w.mu.Lock()
    defer w.mu.Unlock()

    footer := translogFooter{
        Status:         status,
        CompletedAt:    time.Now().UTC(),
        FilesProcessed: filesProcessed,
        FilesFailed:    filesFailed,
    }
    if err := w.writeLineLocked(footer); err != nil {
        w.f.Close()
        return err
    }
    if err := w.flushLocked(true); err != nil {
        w.f.Close()
        return err
    }
    return w.f.Close()
}

func (w *TransactionLogWriter) writeLine(v interface{}) error {
    w.mu.Lock()
    defer w.mu.Unlock()
    return w.writeLineLocked(v)
}

func (w *TransactionLogWriter) writeLineLocked(v interface{}) error {
    b, err := json.Marshal(v)
    if err != nil {
        return fmt.Errorf("marshal transaction log line: %w", err)
    }
    b = append(b, '\n')
    n, err := w.bw.Write(b)
    w.unflushedBytes += n
    if err != nil {
        return fmt.Errorf("write transaction log line: %w", err)
    }
    return nil
}

func (w *TransactionLogWriter) flush(force bool) error {
    w.mu.Lock()
    defer w.mu.Unlock()
    return w.flushLocked(force)
}

func (w *TransactionLogWriter) flushLocked(force bool) error {
    if err := w.bw.Flush(); err != nil {
        return fmt.Errorf("flush transaction log buffer: %w", err)
    }
    if err := w.f.Sync(); err != nil {
        return fmt.Errorf("fsync transaction log: %w", err)
    }
    w.unflushedBytes = 0
    w.lastFlush = time.Now()
    return nil
}
