package xfer

import (
    "bufio"
    "crypto/sha256"
    "encoding/hex"
    "encoding/json"
    "fmt"
    "io"
    "os"
    "path/filepath"
    "strings"
    "time"
)

// LogSummary is one entry returned by ListLogs: everything list mode needs,
// taken from the header, the footer if present, and a count of the record
// lines (spec.md section 4.5.5).
type LogSummary struct {
    Path        string
    OperationID string
    StartedAt   time.Time
    Status      string // footer status if the log has one, else "Incomplete"
    FileCount   int
}

// ListLogs enumerates transaction-log files in dir and summarizes each one,
// reading every line of the file to count its records.
func ListLogs(dir string) ([]LogSummary, error) {
    entries, err := os.ReadDir(dir)
    if err != nil {
        return nil, fmt.Errorf("read log dir %s: %w", dir, err)
    }

    var summaries []LogSummary
    for _, e := range entries {
        if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
            continue
        }
        path := filepath.Join(dir, e.Name())
        summary, err := summarizeLog(path)
        if err != nil {
            translogLogger.Warningf(nil, "skipping unreadable transaction log %s: %v", path, err)
            continue
        }
        summaries = append(summaries, summary)
    }
    return summaries, nil
}

func summarizeLog(path string) (LogSummary, error) {
    f, err := os.Open(path)
    if err != nil {
        return LogSummary{}, err
    }
    defer f.Close()

    scanner := bufio.NewScanner(f)
    scanner.Buffer(make([]byte, 0, 64*1024), 1<<24)

    var header translogHeader
    headerSeen := false
    count := 0
    status := "Incomplete"

    for scanner.Scan() {
        line := scanner.Bytes()
        if len(line) == 0 {
            continue
        }
        if !headerSeen {
            if err := json.Unmarshal(line, &header); err != nil {
                return LogSummary{}, fmt.Errorf("parse header: %w", err)
            }
            if header.Version != transactionLogVersion {
                return LogSummary{}, fmt.Errorf("unsupported transaction log version %d", header.Version)
            }
            headerSeen = true
            continue
        }

        // Records and the footer both carry "status"; only records carry "op".
        var probe struct {
            Op string `json:"op"`
        }
        _ = json.Unmarshal(line, &probe)

        var footer translogFooter
        if err := json.Unmarshal(line, &footer); err == nil && footer.Status != "" && probe.Op == "" {
            status = footer.Status
            continue
        }
        count++
    }
    if err := scanner.Err(); err != nil {
        return LogSummary{}, err
    }
    if !headerSeen {
        return LogSummary{}, fmt.Errorf("transaction log %s has no header", path)
    }

    return LogSummary{
        Path:        path,
        OperationID: header.OperationID,
        StartedAt:   header.StartedAt,
        Status:      status,
        FileCount:   count,
    }, nil
}

// ReadEntries parses path and returns its summary plus every completed
// TransactionLogEntry in completion order, for read-only consumers (the
// report verb) that never replay or mutate the filesystem.
func ReadEntries(path string) (LogSummary, []TransactionLogEntry, error) {
    summary, err := summarizeLog(path)
    if err != nil {
        return LogSummary{}, nil, err
    }

    _, records, err := readLogRecords(path)
    if err != nil {
        return LogSummary{}, nil, err
    }

    entries := make([]TransactionLogEntry, len(records))
    for i, rec := range records {
        entries[i] = TransactionLogEntry{
            Source:      rec.Source,
            Dest:        rec.Dest,
            Bytes:       rec.Bytes,
            StartedAt:   rec.StartedAt,
            CompletedAt: rec.CompletedAt,
            Checksum:    rec.Checksum,
        }
        switch rec.Op {
        case "Move":
            entries[i].Op = OpMove
        case "DirectoryCreate":
            entries[i].Op = OpDirectoryCreate
        default:
            entries[i].Op = OpCopy
        }
        if rec.Status == "Success" {
            entries[i].Status = StatusSuccess
        } else {
            entries[i].Status = StatusFailed
        }
    }

    return summary, entries, nil
}

// readLogRecords parses every body record (excluding header and footer)
// from path, in file (completion) order.
func readLogRecords(path string) (translogHeader, []translogRecord, error) {
    f, err := os.Open(path)
    if err != nil {
        return translogHeader{}, nil, err
    }
    defer f.Close()

    scanner := bufio.NewScanner(f)
    scanner.Buffer(make([]byte, 0, 64*1024), 1<<24)

    var header translogHeader
    headerSeen := false
    var records []translogRecord

    for scanner.Scan() {
        line := scanner.Bytes()
        if len(line) == 0 {
            continue
        }
        if !headerSeen {
            if err := json.Unmarshal(line, &header); err != nil {
                return translogHeader{}, nil, fmt.Errorf("parse header: %w", err)
            }
            if header.Version != transactionLogVersion {
                return translogHeader{}, nil, fmt.Errorf("unsupported transaction log version %d", header.Version)
            }
            headerSeen = true
            continue
        }

        // Records and the footer both carry "status"; only records carry "op".
        var probe struct {
            Op string `json:"op"`
        }
        _ = json.Unmarshal(line, &probe)

        var footer translogFooter
        if err := json.Unmarshal(line, &footer); err == nil && footer.Status != "" && probe.Op == "" {
            continue
        }

        var rec translogRecord
        if err := json.Unmarshal(line, &rec); err != nil {
            return translogHeader{}, nil, fmt.Errorf("parse record: %w", err)
        }
        records = append(records, rec)
    }
    if err := scanner.Err(); err != nil {
        return translogHeader{}, nil, err
    }
    if !headerSeen {
        return translogHeader{}, nil, fmt.Errorf("transaction log %s has no header", path)
    }

    return header, records, nil
}

// RollbackResult summarizes a replay (spec.md section 4.5.5).
type RollbackResult struct {
    Reverted       int
    Skipped        int
    Failed         int
    PartialSuccess bool
}

// ConfirmFunc is asked once before a rollback proceeds, unless the caller
// already has --yes semantics (pass a func that always returns true).
type ConfirmFunc func(summary LogSummary) bool

// Rollback replays path's records in reverse completion order, undoing
// each Copy (delete dest), Move (move dest back to source), and
// DirectoryCreate (remove if empty) operation. It never touches records
// from any other log file.
func Rollback(path string, confirm ConfirmFunc) (RollbackResult, error) {
    summary, err := summarizeLog(path)
    if err != nil {
        return RollbackResult{}, err
    }
    if confirm != nil && !confirm(summary) {
        return RollbackResult{}, nil
    }

    _, records, err := readLogRecords(path)
    if err != nil {
        return RollbackResult{}, err
    }

    var result RollbackResult
    for i := len(records) - 1; i >= 0; i-- {
        rec := records[i]
        if rec.Status != "Success" {
            result.Skipped++
            continue
        }

        if err := revertOne(rec); err != nil {
            translogLogger.Warningf(nil, "rollback failed for %s -> %s: %v", rec.Source, rec.Dest, err)
            result.Failed++
            continue
        }
        result.Reverted++
    }

    result.PartialSuccess = result.Failed > 0 && result.Reverted > 0
    return result, nil
}

func revertOne(rec translogRecord) error {
    switch rec.Op {
    case "Copy":
        match, err := destMatchesRecord(rec)
        if err != nil {
            return err
        }
        if !match {
            return fmt.Errorf("destination %s no longer matches logged checksum/size, refusing to delete", rec.Dest)
        }
        return os.Remove(rec.Dest)

    case "Move":
        if _, err := os.Stat(rec.Dest); err != nil {
            return fmt.Errorf("stat %s: %w", rec.Dest, err)
        }
        if err := os.MkdirAll(filepath.Dir(rec.Source), 0o755); err != nil {
            return fmt.Errorf("recreate source dir: %w", err)
        }
        return os.Rename(rec.Dest, rec.Source)

    case "DirectoryCreate":
        entries, err := os.ReadDir(rec.Dest)
        if err != nil {
            if os.IsNotExist(err) {
                return nil
            }
            return err
        }
        if len(entries) > 0 {
            return nil // not empty; leave it alone
        }
        return os.Remove(rec.Dest)

    default:
        return fmt.Errorf("unknown transaction log operation %q", rec.Op)
    }
}

func destMatchesRecord(rec translogRecord) (bool, error) {
    info, err := os.Stat(rec.Dest)
    if err != nil {
        if os.IsNotExist(err) {
            return false, nil
        }
        return false, err
    }

    if rec.Checksum == "" {
        return info.Size() == rec.Bytes, nil
    }

    f, err := os.Open(rec.Dest)
    if err != nil {
        return false, err
    }
    defer f.Close()

    h := sha256.New()
    if _, err := io.Copy(h, f); err != nil {
        return false, err
    }
    return hex.EncodeToString(h.Sum(nil)) == rec.Checksum, nil
}
