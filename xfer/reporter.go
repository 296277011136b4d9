package xfer

import (
    "encoding/json"
    "fmt"
    "io"
    "sync"

    "github.com/sbwhitecap/tqdm"
    "github.com/sbwhitecap/tqdm/iterators"
    "gopkg.in/cheggaaa/pb.v1"
)

// ConsoleReporter drives a cheggaaa/pb progress bar over the total file
// count, one Increment per processed/failed/skipped file.
type ConsoleReporter struct {
    bar *pb.ProgressBar

    mu   sync.Mutex
    seen int
}

// NewConsoleReporter builds a ConsoleReporter for a run of totalFiles files.
func NewConsoleReporter(totalFiles int) *ConsoleReporter {
    bar := pb.New(totalFiles)
    bar.Prefix("Transferring ")
    bar.SetMaxWidth(100)
    bar.Start()
    return &ConsoleReporter{bar: bar}
}

func (r *ConsoleReporter) Report(p Progress) {
    r.mu.Lock()
    defer r.mu.Unlock()

    total := p.FilesProcessed + p.FilesFailed + p.FilesSkipped
    for ; r.seen < total; r.seen++ {
        r.bar.Increment()
    }
}

func (r *ConsoleReporter) Finish(result CopyResult) {
    r.bar.FinishPrint(fmt.Sprintf(
        "processed %d, failed %d, skipped %d",
        result.FilesProcessed, result.FilesFailed, result.FilesSkipped))
}

// JSONReporter writes one JSON object per progress update and a final
// summary object to w, for scripted/non-interactive invocations.
type JSONReporter struct {
    w  io.Writer
    mu sync.Mutex
}

// NewJSONReporter builds a JSONReporter writing to w.
func NewJSONReporter(w io.Writer) *JSONReporter {
    return &JSONReporter{w: w}
}

func (r *JSONReporter) Report(p Progress) {
    r.mu.Lock()
    defer r.mu.Unlock()
    enc := json.NewEncoder(r.w)
    _ = enc.Encode(p)
}

func (r *JSONReporter) Finish(result CopyResult) {
    r.mu.Lock()
    defer r.mu.Unlock()

    errStrings := make([]string, len(result.Errors))
    for i, err := range result.Errors {
        errStrings[i] = err.Error()
    }

    summary := struct {
        FilesProcessed int      `json:"files_processed"`
        FilesFailed    int      `json:"files_failed"`
        FilesSkipped   int      `json:"files_skipped"`
        BytesProcessed int64    `json:"bytes_processed"`
        Errors         []string `json:"errors,omitempty"`
        ErrorCount     int      `json:"error_count"`
        Canceled       bool     `json:"canceled"`
    }{
        FilesProcessed: result.FilesProcessed,
        FilesFailed:    result.FilesFailed,
        FilesSkipped:   result.FilesSkipped,
        BytesProcessed: result.BytesProcessed,
        Errors:         errStrings,
        ErrorCount:     result.ErrorCount,
        Canceled:       result.Canceled,
    }

    enc := json.NewEncoder(r.w)
    _ = enc.Encode(summary)
}

// GroupReporter drives progress over one bounded batch of items (a single
// directory sweep's worth of files) using tqdm's iterator-driven bar,
// mirroring copy_files.go's tqdm.With(iterators.Interval(...), title, ...)
// usage. It is distinct from Reporter: the scan command knows its batch
// size up front and drives the loop itself, rather than having progress
// pushed at it from a worker pool.
type GroupReporter struct {
    title string
}

// NewGroupReporter builds a GroupReporter that labels its bar with title.
func NewGroupReporter(title string) *GroupReporter {
    return &GroupReporter{title: title}
}

// Run iterates i = 0..n-1, invoking fn for each index under a tqdm bar.
// It stops early if fn returns true.
func (r *GroupReporter) Run(n int, fn func(i int) bool) {
    tqdm.With(iterators.Interval(0, n), r.title, func(v interface{}) (brk bool) {
        i := v.(int)
        return fn(i)
    })
}
