package photocopy

import (
    "os"
    "path/filepath"
    "testing"
)

// sampleGazetteerTSV is a minimal GeoNames-shaped fixture: one city big
// enough to qualify as a "city" candidate.
const sampleGazetteerTSV = "2988507\tParis\tParis\t\t48.85341\t2.3488\tP\tPPLC\tFR\t\t11\t75\t\t\t2138551\t\t\t\tEurope/Paris\t2020-01-01\n"

func writeSampleGazetteer(t *testing.T) string {
    t.Helper()
    dir := t.TempDir()
    path := filepath.Join(dir, "gazetteer.tsv")
    if err := os.WriteFile(path, []byte(sampleGazetteerTSV), 0o644); err != nil {
        t.Fatalf("writing sample gazetteer: %v", err)
    }
    return path
}

func newTestDriver(t *testing.T, srcRoot, destRoot string) *Driver {
    t.Helper()
    gazetteer := writeSampleGazetteer(t)

    d, err := NewDriver(Options{
        SourceRoot: srcRoot,
        DestRoot:   destRoot,
        Template:   "{year}/{month}/{name}{ext}",
        LogDir:     t.TempDir(),

        GazetteerDataPath:  gazetteer,
        GazetteerIndexPath: gazetteer + ".geostreamindex",
    })
    if err != nil {
        t.Fatalf("NewDriver: %v", err)
    }
    t.Cleanup(func() { d.Close() })
    return d
}

func TestNewDriverOpensAndCloses(t *testing.T) {
    src := t.TempDir()
    dest := t.TempDir()
    d := newTestDriver(t, src, dest)
    if d.engine == nil {
        t.Fatalf("expected a non-nil geocoding engine")
    }
}

func TestDriverPlanEmptySource(t *testing.T) {
    src := t.TempDir()
    dest := t.TempDir()
    d := newTestDriver(t, src, dest)

    plans, err := d.Plan()
    if err != nil {
        t.Fatalf("Plan: %v", err)
    }
    if len(plans) != 0 {
        t.Fatalf("expected no plans for an empty source tree, got %d", len(plans))
    }
}

func TestDriverPlanOneFile(t *testing.T) {
    src := t.TempDir()
    dest := t.TempDir()

    if err := os.WriteFile(filepath.Join(src, "note.txt"), []byte("hello"), 0o644); err != nil {
        t.Fatal(err)
    }

    d := newTestDriver(t, src, dest)
    plans, err := d.Plan()
    if err != nil {
        t.Fatalf("Plan: %v", err)
    }
    if len(plans) != 1 {
        t.Fatalf("expected 1 plan, got %d", len(plans))
    }
}

func TestNewOperationIDIsUnique(t *testing.T) {
    a, err := newOperationID()
    if err != nil {
        t.Fatalf("newOperationID: %v", err)
    }
    b, err := newOperationID()
    if err != nil {
        t.Fatalf("newOperationID: %v", err)
    }
    if a == b {
        t.Fatalf("expected distinct operation ids, got %q twice", a)
    }
    if len(a) != 16 {
        t.Fatalf("expected a 16-hex-character operation id, got %q", a)
    }
}
