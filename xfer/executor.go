package xfer

import (
    "context"
    "crypto/sha256"
    "encoding/hex"
    "fmt"
    "io"
    "os"
    "path/filepath"
    "sync"
    "time"

    "github.com/dsoprea/go-photocopy/plan"
)

// copyBufSize is the chunked-copy buffer size; large enough to amortize
// syscall overhead on the multi-gigabyte video files a photo library
// accumulates.
const copyBufSize = 256 * 1024

// ExecutorConfig configures an Executor's worker pool and log destination.
type ExecutorConfig struct {
    Workers  int
    Reporter Reporter
    LogWriter *TransactionLogWriter // may be nil (no transaction log)
}

// Executor runs a pool of workers against a stream of Jobs, performing the
// file-level state machine of spec.md section 4.6.
type Executor struct {
    cfg ExecutorConfig

    mu     sync.Mutex
    result CopyResult
}

// NewExecutor builds an Executor. A zero or negative Workers count defaults
// to 1.
func NewExecutor(cfg ExecutorConfig) *Executor {
    if cfg.Workers <= 0 {
        cfg.Workers = 1
    }
    return &Executor{cfg: cfg}
}

// Run dispatches jobs across the configured worker pool, blocking until all
// jobs are processed or ctx is canceled. It never returns a non-nil error
// for a per-file failure; failures are recorded on the returned CopyResult.
func (e *Executor) Run(ctx context.Context, jobs []plan.DestinationPlan, moveSet map[string]bool) CopyResult {
    jobCh := make(chan plan.DestinationPlan)

    var wg sync.WaitGroup
    for w := 0; w < e.cfg.Workers; w++ {
        wg.Add(1)
        go func() {
            defer wg.Done()
            for dp := range jobCh {
                e.runOne(ctx, dp, moveSet[dp.File.Source.Path])
            }
        }()
    }

dispatch:
    for _, dp := range jobs {
        select {
        case <-ctx.Done():
            break dispatch
        case jobCh <- dp:
        }
    }
    close(jobCh)
    wg.Wait()

    e.mu.Lock()
    result := e.result
    result.Canceled = ctx.Err() != nil
    e.mu.Unlock()

    if e.cfg.Reporter != nil {
        e.cfg.Reporter.Finish(result)
    }
    return result
}

// runOne executes the full state machine for one destination plan: the
// main file, then each related (sidecar/companion) file, with up to
// maxRetries retries (maxRetries+1 attempts) on transient failures.
func (e *Executor) runOne(ctx context.Context, dp plan.DestinationPlan, move bool) {
    if ctx.Err() != nil {
        return
    }

    entry, err := e.attempt(ctx, dp, move)
    e.record(dp.File.Source.Path, dp.CollisionAction, entry, err)

    if err != nil {
        return
    }

    for relatedSrc, relatedDest := range dp.RelatedPaths {
        relEntry, relErr := e.attemptPath(ctx, relatedSrc, relatedDest, dp.CollisionAction, move)
        e.record(relatedSrc, dp.CollisionAction, relEntry, relErr)
    }
}

// attempt runs the main file's transfer with retry/backoff, classifying
// failures per Classify.
func (e *Executor) attempt(ctx context.Context, dp plan.DestinationPlan, move bool) (TransactionLogEntry, error) {
    return e.attemptPath(ctx, dp.File.Source.Path, dp.PlannedPath, dp.CollisionAction, move)
}

func (e *Executor) attemptPath(ctx context.Context, source, dest string, action plan.CollisionAction, move bool) (TransactionLogEntry, error) {
    var lastErr error

    for attemptNum := 0; attemptNum <= maxRetries; attemptNum++ {
        if ctx.Err() != nil {
            return TransactionLogEntry{}, ctx.Err()
        }

        entry, err := e.transferOnce(source, dest, action, move)
        if err == nil {
            return entry, nil
        }

        class := Classify(ctx, err)
        switch class {
        case ClassCancellation:
            return TransactionLogEntry{}, err
        case ClassTransient:
            lastErr = err
            if attemptNum < maxRetries {
                xferLogger.Debugf(nil, "transient error on %s (attempt %d/%d): %v", source, attemptNum+1, maxRetries, err)
                if sleepErr := backoffSleep(ctx, attemptNum); sleepErr != nil {
                    return TransactionLogEntry{}, sleepErr
                }
                continue
            }
            return TransactionLogEntry{}, lastErr
        default: // ClassFatal
            return TransactionLogEntry{}, err
        }
    }

    return TransactionLogEntry{}, lastErr
}

// transferOnce performs exactly one copy/move/skip/reuse/overwrite attempt
// with no retry logic of its own.
func (e *Executor) transferOnce(source, dest string, action plan.CollisionAction, move bool) (TransactionLogEntry, error) {
    started := time.Now().UTC()

    entry := TransactionLogEntry{
        Source:    source,
        Dest:      dest,
        StartedAt: started,
    }

    switch action {
    case plan.ActionSkip:
        entry.Op = OpCopy
        entry.Status = StatusSuccess
        entry.CompletedAt = time.Now().UTC()
        return entry, nil

    case plan.ActionReuseExisting:
        entry.Op = OpCopy
        entry.Status = StatusSuccess
        entry.CompletedAt = time.Now().UTC()
        return entry, nil
    }

    if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
        return TransactionLogEntry{}, fmt.Errorf("mkdir %s: %w", filepath.Dir(dest), err)
    }

    var (
        n   int64
        sum string
        err error
    )
    if move {
        entry.Op = OpMove
        n, sum, err = moveFile(source, dest)
    } else {
        entry.Op = OpCopy
        n, sum, err = copyFile(source, dest)
    }
    if err != nil {
        return TransactionLogEntry{}, err
    }

    entry.Bytes = n
    entry.Checksum = sum
    entry.Status = StatusSuccess
    entry.CompletedAt = time.Now().UTC()
    return entry, nil
}

// copyFile streams source to dest with a chunked buffer, returning the
// byte count and SHA-256 digest of what was written.
func copyFile(source, dest string) (int64, string, error) {
    in, err := os.Open(source)
    if err != nil {
        return 0, "", fmt.Errorf("open %s: %w", source, err)
    }
    defer in.Close()

    out, err := os.Create(dest)
    if err != nil {
        return 0, "", fmt.Errorf("create %s: %w", dest, err)
    }

    h := sha256.New()
    w := io.MultiWriter(out, h)

    buf := make([]byte, copyBufSize)
    n, err := io.CopyBuffer(w, in, buf)
    if err != nil {
        out.Close()
        return 0, "", fmt.Errorf("copy %s to %s: %w", source, dest, err)
    }
    if err := out.Close(); err != nil {
        return 0, "", fmt.Errorf("close %s: %w", dest, err)
    }

    if info, statErr := in.Stat(); statErr == nil {
        _ = os.Chtimes(dest, time.Now(), info.ModTime())
    }

    return n, hex.EncodeToString(h.Sum(nil)), nil
}

// moveFile renames source to dest, falling back to copy-then-remove across
// filesystem/device boundaries where os.Rename cannot cross.
func moveFile(source, dest string) (int64, string, error) {
    if err := os.Rename(source, dest); err == nil {
        info, statErr := os.Stat(dest)
        var size int64
        if statErr == nil {
            size = info.Size()
        }
        sum, sumErr := fileChecksum(dest)
        if sumErr != nil {
            return size, "", nil
        }
        return size, sum, nil
    }

    n, sum, err := copyFile(source, dest)
    if err != nil {
        return 0, "", err
    }
    if err := os.Remove(source); err != nil {
        return n, sum, fmt.Errorf("remove source %s after copy: %w", source, err)
    }
    return n, sum, nil
}

func fileChecksum(path string) (string, error) {
    f, err := os.Open(path)
    if err != nil {
        return "", err
    }
    defer f.Close()

    h := sha256.New()
    if _, err := io.Copy(h, f); err != nil {
        return "", err
    }
    return hex.EncodeToString(h.Sum(nil)), nil
}

// record applies the outcome of one file attempt to the aggregate result,
// reports progress, and writes a transaction log entry if configured.
func (e *Executor) record(path string, action plan.CollisionAction, entry TransactionLogEntry, err error) {
    e.mu.Lock()
    if err != nil {
        e.result.FilesFailed++
        e.result.addError(fmt.Errorf("%s: %w", path, err))
    } else if action == plan.ActionSkip {
        e.result.FilesSkipped++
    } else {
        e.result.FilesProcessed++
        e.result.BytesProcessed += entry.Bytes
    }
    progress := Progress{
        FilesProcessed: e.result.FilesProcessed,
        FilesFailed:    e.result.FilesFailed,
        FilesSkipped:   e.result.FilesSkipped,
        BytesProcessed: e.result.BytesProcessed,
        CurrentPath:    path,
    }
    e.mu.Unlock()

    if e.cfg.Reporter != nil {
        e.cfg.Reporter.Report(progress)
    }

    // Skip and ReuseExisting perform no I/O, so they leave no record to
    // roll back; logging them would give rollback a fabricated Bytes=0
    // entry to match against a file it never touched.
    loggable := action != plan.ActionSkip && action != plan.ActionReuseExisting
    if e.cfg.LogWriter != nil && err == nil && loggable {
        e.cfg.LogWriter.Append(entry)
    }
}
