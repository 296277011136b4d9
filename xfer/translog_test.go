package xfer

import (
    "encoding/json"
    "os"
    "path/filepath"
    "strings"
    "testing"
    "time"
)

func TestOpenTransactionLogWritesHeader(t *testing.T) {
    dir := t.TempDir()
    path := filepath.Join(dir, "transaction-test.json")

    w, err := OpenTransactionLog(path, "op-1", map[string]string{"mode": "copy"})
    if err != nil {
        t.Fatalf("OpenTransactionLog: %v", err)
    }
    if err := w.Close("Completed", 0, 0); err != nil {
        t.Fatalf("Close: %v", err)
    }

    data, err := os.ReadFile(path)
    if err != nil {
        t.Fatalf("read log: %v", err)
    }
    lines := strings.Split(strings.TrimSpace(string(data)), "\n")
    if len(lines) != 2 {
        t.Fatalf("expected header+footer only, got %d lines", len(lines))
    }

    var header translogHeader
    if err := json.Unmarshal([]byte(lines[0]), &header); err != nil {
        t.Fatalf("unmarshal header: %v", err)
    }
    if header.OperationID != "op-1" || header.Version != transactionLogVersion {
        t.Fatalf("unexpected header: %+v", header)
    }

    var footer translogFooter
    if err := json.Unmarshal([]byte(lines[1]), &footer); err != nil {
        t.Fatalf("unmarshal footer: %v", err)
    }
    if footer.Status != "Completed" {
        t.Fatalf("unexpected footer: %+v", footer)
    }
}

func TestAppendWritesOneLinePerRecordInOrder(t *testing.T) {
    dir := t.TempDir()
    path := filepath.Join(dir, "transaction-test.json")

    w, err := OpenTransactionLog(path, "op-1", nil)
    if err != nil {
        t.Fatalf("OpenTransactionLog: %v", err)
    }

    w.Append(TransactionLogEntry{
        Op: OpCopy, Source: "/a", Dest: "/b/a", Bytes: 10,
        StartedAt: time.Now(), CompletedAt: time.Now(), Status: StatusSuccess, Checksum: "deadbeef",
    })
    w.Append(TransactionLogEntry{
        Op: OpMove, Source: "/c", Dest: "/b/c", Bytes: 20,
        StartedAt: time.Now(), CompletedAt: time.Now(), Status: StatusSuccess,
    })

    if err := w.Close("Completed", 2, 0); err != nil {
        t.Fatalf("Close: %v", err)
    }

    header, records, err := readLogRecords(path)
    if err != nil {
        t.Fatalf("readLogRecords: %v", err)
    }
    if header.OperationID != "op-1" {
        t.Fatalf("unexpected header: %+v", header)
    }
    if len(records) != 2 {
        t.Fatalf("expected 2 records, got %d", len(records))
    }
    if records[0].Source != "/a" || records[1].Source != "/c" {
        t.Fatalf("records out of order: %+v", records)
    }
}
