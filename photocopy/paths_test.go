package photocopy

import (
    "os"
    "path/filepath"
    "testing"
)

func TestFindBoundaryFileGazetteerDirWins(t *testing.T) {
    dir := t.TempDir()
    gazetteerDir := filepath.Join(dir, "gazetteer")
    if err := os.MkdirAll(gazetteerDir, 0o755); err != nil {
        t.Fatal(err)
    }

    boundary := filepath.Join(gazetteerDir, boundaryFileName)
    if err := os.WriteFile(boundary, []byte("x"), 0o644); err != nil {
        t.Fatal(err)
    }

    got, err := FindBoundaryFile(gazetteerDir)
    if err != nil {
        t.Fatalf("FindBoundaryFile: %v", err)
    }
    if got != boundary {
        t.Fatalf("FindBoundaryFile() = %q, want %q", got, boundary)
    }
}

func TestFindBoundaryFileNoneFound(t *testing.T) {
    dir := t.TempDir()
    got, err := FindBoundaryFile(dir)
    if err != nil {
        t.Fatalf("FindBoundaryFile: %v", err)
    }
    if got != "" {
        t.Fatalf("FindBoundaryFile() = %q, want empty", got)
    }
}

func TestBoundarySearchPathOrder(t *testing.T) {
    candidates, err := boundarySearchPath("/some/gazetteer")
    if err != nil {
        t.Fatalf("boundarySearchPath: %v", err)
    }
    if len(candidates) != 4 {
        t.Fatalf("boundarySearchPath() returned %d candidates, want 4", len(candidates))
    }
    if candidates[0] != filepath.Join("/some/gazetteer", boundaryFileName) {
        t.Fatalf("first candidate = %q, want gazetteer dir entry", candidates[0])
    }
}

func TestDefaultLogDir(t *testing.T) {
    got, err := DefaultLogDir()
    if err != nil {
        t.Fatalf("DefaultLogDir: %v", err)
    }
    if filepath.Base(got) != "logs" {
        t.Fatalf("DefaultLogDir() = %q, want a path ending in logs", got)
    }
}

func TestGazetteerIndexPath(t *testing.T) {
    got := GazetteerIndexPath("/data/cities.tsv")
    want := "/data/cities.tsv.geostreamindex"
    if got != want {
        t.Fatalf("GazetteerIndexPath() = %q, want %q", got, want)
    }
}

func TestPersistentCachePath(t *testing.T) {
    got := PersistentCachePath("/data/cities.tsv")
    want := filepath.Join("/data", ".geocache.pogreb")
    if got != want {
        t.Fatalf("PersistentCachePath() = %q, want %q", got, want)
    }
}
