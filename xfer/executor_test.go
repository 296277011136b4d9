package xfer

import (
    "context"
    "os"
    "path/filepath"
    "testing"

    "github.com/dsoprea/go-photocopy/enrich"
    "github.com/dsoprea/go-photocopy/plan"
)

func newDestinationPlan(t *testing.T, source, dest string, action plan.CollisionAction) plan.DestinationPlan {
    t.Helper()
    return plan.DestinationPlan{
        File: &enrich.EnrichedFile{
            Source: enrich.SourceFile{Path: source},
        },
        PlannedPath:     dest,
        CollisionAction: action,
    }
}

func TestExecutorCopiesFile(t *testing.T) {
    dir := t.TempDir()
    source := filepath.Join(dir, "a.jpg")
    if err := os.WriteFile(source, []byte("hello"), 0o644); err != nil {
        t.Fatalf("write source: %v", err)
    }
    dest := filepath.Join(dir, "out", "a.jpg")

    e := NewExecutor(ExecutorConfig{Workers: 2})
    result := e.Run(context.Background(), []plan.DestinationPlan{
        newDestinationPlan(t, source, dest, plan.ActionWrite),
    }, nil)

    if result.FilesProcessed != 1 || result.FilesFailed != 0 {
        t.Fatalf("unexpected result: %+v", result)
    }
    content, err := os.ReadFile(dest)
    if err != nil {
        t.Fatalf("read dest: %v", err)
    }
    if string(content) != "hello" {
        t.Fatalf("unexpected dest content: %q", content)
    }
    if _, err := os.Stat(source); err != nil {
        t.Fatalf("expected source to still exist after copy: %v", err)
    }
}

func TestExecutorMovesFile(t *testing.T) {
    dir := t.TempDir()
    source := filepath.Join(dir, "a.jpg")
    if err := os.WriteFile(source, []byte("hello"), 0o644); err != nil {
        t.Fatalf("write source: %v", err)
    }
    dest := filepath.Join(dir, "out", "a.jpg")

    e := NewExecutor(ExecutorConfig{Workers: 1})
    moveSet := map[string]bool{source: true}
    result := e.Run(context.Background(), []plan.DestinationPlan{
        newDestinationPlan(t, source, dest, plan.ActionWrite),
    }, moveSet)

    if result.FilesProcessed != 1 {
        t.Fatalf("unexpected result: %+v", result)
    }
    if _, err := os.Stat(source); !os.IsNotExist(err) {
        t.Fatalf("expected source to be removed after move, stat err: %v", err)
    }
    if _, err := os.Stat(dest); err != nil {
        t.Fatalf("expected dest to exist after move: %v", err)
    }
}

func TestExecutorSkipCountsAsSkipped(t *testing.T) {
    dir := t.TempDir()
    source := filepath.Join(dir, "a.jpg")
    if err := os.WriteFile(source, []byte("hello"), 0o644); err != nil {
        t.Fatalf("write source: %v", err)
    }
    dest := filepath.Join(dir, "a.jpg")

    e := NewExecutor(ExecutorConfig{Workers: 1})
    result := e.Run(context.Background(), []plan.DestinationPlan{
        newDestinationPlan(t, source, dest, plan.ActionSkip),
    }, nil)

    if result.FilesSkipped != 1 || result.FilesProcessed != 0 {
        t.Fatalf("unexpected result: %+v", result)
    }
}

func TestExecutorDoesNotLogSkipOrReuseExisting(t *testing.T) {
    dir := t.TempDir()
    source := filepath.Join(dir, "a.jpg")
    if err := os.WriteFile(source, []byte("hello"), 0o644); err != nil {
        t.Fatalf("write source: %v", err)
    }
    dest := filepath.Join(dir, "existing.jpg")
    if err := os.WriteFile(dest, []byte("already here"), 0o644); err != nil {
        t.Fatalf("write dest: %v", err)
    }

    logPath := filepath.Join(dir, "transaction-test.json")
    writer, err := OpenTransactionLog(logPath, "op-skip-reuse", nil)
    if err != nil {
        t.Fatalf("OpenTransactionLog: %v", err)
    }

    e := NewExecutor(ExecutorConfig{Workers: 1, LogWriter: writer})
    result := e.Run(context.Background(), []plan.DestinationPlan{
        newDestinationPlan(t, source, dest, plan.ActionSkip),
        newDestinationPlan(t, source, dest, plan.ActionReuseExisting),
    }, nil)

    if err := writer.Close("Completed", result.FilesProcessed, result.FilesFailed); err != nil {
        t.Fatalf("Close: %v", err)
    }

    _, entries, err := ReadEntries(logPath)
    if err != nil {
        t.Fatalf("ReadEntries: %v", err)
    }
    if len(entries) != 0 {
        t.Fatalf("expected no logged entries for Skip/ReuseExisting actions, got %d", len(entries))
    }
}

func TestExecutorRecordsFailureForMissingSource(t *testing.T) {
    dir := t.TempDir()
    source := filepath.Join(dir, "missing.jpg")
    dest := filepath.Join(dir, "out", "missing.jpg")

    e := NewExecutor(ExecutorConfig{Workers: 1})
    result := e.Run(context.Background(), []plan.DestinationPlan{
        newDestinationPlan(t, source, dest, plan.ActionWrite),
    }, nil)

    if result.FilesFailed != 1 || result.FilesProcessed != 0 {
        t.Fatalf("unexpected result: %+v", result)
    }
    if len(result.Errors) != 1 {
        t.Fatalf("expected one recorded error, got %d", len(result.Errors))
    }
}
