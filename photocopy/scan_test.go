package photocopy

import (
    "os"
    "path/filepath"
    "testing"

    "github.com/dsoprea/go-photocopy/xfer"
)

func TestDriverScanNoGroupReporter(t *testing.T) {
    src := t.TempDir()
    dest := t.TempDir()

    if err := os.WriteFile(filepath.Join(src, "note.txt"), []byte("hello"), 0o644); err != nil {
        t.Fatal(err)
    }

    d := newTestDriver(t, src, dest)
    result, err := d.Scan(nil, DefaultValidators())
    if err != nil {
        t.Fatalf("Scan: %v", err)
    }
    if len(result.Files) != 1 {
        t.Fatalf("expected 1 scanned file, got %d", len(result.Files))
    }
    // note.txt has no checksum-eligible content path beyond the checksum
    // step (which always runs) but never gets a resolved date, so
    // date_resolved must fail validation.
    found := false
    for _, f := range result.Failures {
        if f.Validator == "date_resolved" {
            found = true
        }
    }
    if !found {
        t.Fatalf("expected a date_resolved validation failure, got %v", result.Failures)
    }
}

func TestDriverScanWithGroupReporter(t *testing.T) {
    src := t.TempDir()
    dest := t.TempDir()

    for _, name := range []string{"a.txt", "b.txt"} {
        if err := os.WriteFile(filepath.Join(src, name), []byte("x"), 0o644); err != nil {
            t.Fatal(err)
        }
    }

    d := newTestDriver(t, src, dest)
    group := xfer.NewGroupReporter("scan")
    result, err := d.Scan(group, nil)
    if err != nil {
        t.Fatalf("Scan: %v", err)
    }
    if len(result.Files) != 2 {
        t.Fatalf("expected 2 scanned files, got %d", len(result.Files))
    }
}
