package photocopy

import (
    "path/filepath"
    "testing"

    "github.com/dsoprea/go-photocopy/xfer"
)

func TestListTransactionLogsEmptyDir(t *testing.T) {
    // An existing but empty directory yields no summaries and no error.
    // The dir == "" defaulting branch is not exercised here: it would read
    // the real user home, where xfer.ListLogs reports a missing log
    // directory as a read error.
    dir := t.TempDir()
    logs, err := ListTransactionLogs(dir)
    if err != nil {
        t.Fatalf("ListTransactionLogs: %v", err)
    }
    if len(logs) != 0 {
        t.Fatalf("expected no logs in an empty directory, got %d", len(logs))
    }
}

func TestRunRollbackDeclinedConfirm(t *testing.T) {
    dir := t.TempDir()
    logPath := filepath.Join(dir, "transaction-test.json")

    writer, err := xfer.OpenTransactionLog(logPath, "op1", map[string]interface{}{"operation": "copy"})
    if err != nil {
        t.Fatalf("OpenTransactionLog: %v", err)
    }
    if err := writer.Close("Completed", 0, 0); err != nil {
        t.Fatalf("Close: %v", err)
    }

    result, err := RunRollback(logPath, func(xfer.LogSummary) bool { return false })
    if err != nil {
        t.Fatalf("RunRollback: %v", err)
    }
    if result.Reverted != 0 || result.Failed != 0 {
        t.Fatalf("expected a no-op result when confirm declines, got %+v", result)
    }
}

func TestRunRollbackMissingLog(t *testing.T) {
    if _, err := RunRollback(filepath.Join(t.TempDir(), "missing.json"), nil); err == nil {
        t.Fatalf("expected an error for a missing transaction log")
    }
}

func TestListTransactionLogsFindsWrittenLog(t *testing.T) {
    dir := t.TempDir()
    logPath := filepath.Join(dir, "transaction-test.json")

    writer, err := xfer.OpenTransactionLog(logPath, "op2", map[string]interface{}{"operation": "copy"})
    if err != nil {
        t.Fatalf("OpenTransactionLog: %v", err)
    }
    if err := writer.Close("Completed", 0, 0); err != nil {
        t.Fatalf("Close: %v", err)
    }

    logs, err := ListTransactionLogs(dir)
    if err != nil {
        t.Fatalf("ListTransactionLogs: %v", err)
    }
    if len(logs) != 1 || logs[0].OperationID != "op2" {
        t.Fatalf("ListTransactionLogs() = %+v, want a single entry for op2", logs)
    }
}
