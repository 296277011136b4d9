// Package xfer implements the parallel copy/move executor and its
// transaction log, rollback, and progress reporting (spec.md section 4.5).
package xfer

import (
    "time"

    "github.com/dsoprea/go-logging"

    "github.com/dsoprea/go-photocopy/plan"
)

var xferLogger = log.NewLogger("xfer.executor")

// Op names the operation an executed file-transfer step performed.
type Op int

const (
    OpCopy Op = iota
    OpMove
    OpDirectoryCreate
)

func (o Op) String() string {
    switch o {
    case OpMove:
        return "Move"
    case OpDirectoryCreate:
        return "DirectoryCreate"
    default:
        return "Copy"
    }
}

// Status is the terminal outcome of one TransactionLogEntry.
type Status int

const (
    StatusSuccess Status = iota
    StatusFailed
)

func (s Status) String() string {
    if s == StatusFailed {
        return "Failed"
    }
    return "Success"
}

// TransactionLogEntry is one completed operation record (spec.md section 3).
type TransactionLogEntry struct {
    Op          Op
    Source      string
    Dest        string
    Bytes       int64
    StartedAt   time.Time
    CompletedAt time.Time
    Status      Status
    Checksum    string // optional
}

// Progress is the counters an injected Reporter receives after every
// completed (or failed/skipped) file.
type Progress struct {
    FilesProcessed int
    FilesFailed    int
    FilesSkipped   int
    BytesProcessed int64
    CurrentPath    string
}

// maxErrorListEntries bounds CopyResult.Errors; beyond it, failures are
// still counted but no longer retained individually (spec.md section 4.5.3).
const maxErrorListEntries = 1000

// CopyResult aggregates a finished run's counters and a bounded error list.
type CopyResult struct {
    FilesProcessed int
    FilesFailed    int
    FilesSkipped   int
    BytesProcessed int64
    Errors         []error
    ErrorCount     int // total count, including entries beyond the bounded list
    Canceled       bool
}

func (r *CopyResult) addError(err error) {
    r.ErrorCount++
    if len(r.Errors) < maxErrorListEntries {
        r.Errors = append(r.Errors, err)
    }
}

// Reporter is the sole component permitted to touch the console/TUI; the
// executor only calls Report and Finish.
type Reporter interface {
    Report(p Progress)
    Finish(r CopyResult)
}

// Job is one unit of work dispatched to the executor's worker pool.
type Job struct {
    Plan plan.DestinationPlan
    Move bool // false = Copy
}
