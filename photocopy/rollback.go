package photocopy

import (
    "fmt"

    "github.com/dsoprea/go-photocopy/xfer"
)

// ListTransactionLogs lists every transaction log under dir (spec.md
// section 4.5.5 list mode), or the default log directory if dir is empty.
func ListTransactionLogs(dir string) ([]xfer.LogSummary, error) {
    if dir == "" {
        defaultDir, err := DefaultLogDir()
        if err != nil {
            return nil, err
        }
        dir = defaultDir
    }
    return xfer.ListLogs(dir)
}

// RunRollback replays logPath in reverse (spec.md section 4.5.5). confirm
// is asked once before anything is touched; pass a function that always
// returns true for --yes semantics.
func RunRollback(logPath string, confirm xfer.ConfirmFunc) (xfer.RollbackResult, error) {
    result, err := xfer.Rollback(logPath, confirm)
    if err != nil {
        return xfer.RollbackResult{}, fmt.Errorf("rollback %s: %w", logPath, err)
    }
    return result, nil
}
