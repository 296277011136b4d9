package photocopy

import (
    "os"
    "path/filepath"
    "testing"

    "github.com/dsoprea/go-photocopy/enrich"
    "github.com/dsoprea/go-photocopy/geocode"
    "github.com/dsoprea/go-photocopy/plan"
    "github.com/dsoprea/go-photocopy/xfer"
)

func TestSanitizePageID(t *testing.T) {
    got := sanitizePageID("/dest/2024/07-Paris")
    for _, r := range got {
        ok := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_'
        if !ok {
            t.Fatalf("sanitizePageID() = %q contains non-alphanumeric rune %q", got, r)
        }
    }
}

func TestGroupByDestinationDirSkipsSkipped(t *testing.T) {
    plans := []plan.DestinationPlan{
        {PlannedPath: filepath.Join("dest", "2024", "a.jpg")},
        {PlannedPath: filepath.Join("dest", "2024", "b.jpg")},
        {PlannedPath: filepath.Join("dest", "2025", "c.jpg")},
        {PlannedPath: filepath.Join("dest", "2025", "d.jpg"), CollisionAction: plan.ActionSkip},
    }

    byDir := groupByDestinationDir(plans)
    if len(byDir[filepath.Join("dest", "2024")]) != 2 {
        t.Fatalf("expected 2 entries in dest/2024, got %d", len(byDir[filepath.Join("dest", "2024")]))
    }
    if len(byDir[filepath.Join("dest", "2025")]) != 1 {
        t.Fatalf("expected 1 non-skipped entry in dest/2025, got %d", len(byDir[filepath.Join("dest", "2025")]))
    }
}

func TestTallyByPlaceCountsAndSkipsUnlocated(t *testing.T) {
    plans := []plan.DestinationPlan{
        {File: &enrich.EnrichedFile{Metadata: enrich.FileMetadata{
            Coordinates: &enrich.Coordinates{Latitude: 48.8, Longitude: 2.3},
            Location:    &geocode.LocationData{City: "Paris"},
        }}},
        {File: &enrich.EnrichedFile{Metadata: enrich.FileMetadata{
            Coordinates: &enrich.Coordinates{Latitude: 48.9, Longitude: 2.4},
            Location:    &geocode.LocationData{City: "Paris"},
        }}},
        {File: &enrich.EnrichedFile{Metadata: enrich.FileMetadata{}}}, // no location, skipped
    }

    tallies := tallyByPlace(plans)
    if len(tallies) != 1 {
        t.Fatalf("expected 1 distinct place, got %d", len(tallies))
    }
    if tallies[0].name != "Paris" || tallies[0].count != 2 {
        t.Fatalf("tallyByPlace() = %+v, want Paris with count 2", tallies[0])
    }
}

func TestBuildHTMLCatalogWritesSite(t *testing.T) {
    outDir := t.TempDir()
    srcFile := filepath.Join(t.TempDir(), "photo.jpg")
    if err := os.WriteFile(srcFile, []byte("x"), 0o644); err != nil {
        t.Fatal(err)
    }

    destPath := filepath.Join(outDir, "2024", "07", "photo.jpg")
    if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
        t.Fatal(err)
    }
    if err := os.WriteFile(destPath, []byte("x"), 0o644); err != nil {
        t.Fatal(err)
    }

    plans := []plan.DestinationPlan{
        {
            File:        &enrich.EnrichedFile{Source: enrich.SourceFile{Path: srcFile}},
            PlannedPath: destPath,
        },
    }

    if err := BuildHTMLCatalog(outDir, plans); err != nil {
        t.Fatalf("BuildHTMLCatalog: %v", err)
    }
}

func TestReportFromLogGroupsSuccessfulEntries(t *testing.T) {
    logDir := t.TempDir()
    logPath := filepath.Join(logDir, "transaction-test.json")

    writer, err := xfer.OpenTransactionLog(logPath, "op3", map[string]interface{}{"operation": "copy"})
    if err != nil {
        t.Fatalf("OpenTransactionLog: %v", err)
    }

    outDir := t.TempDir()
    destPath := filepath.Join(outDir, "2024", "photo.jpg")
    if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
        t.Fatal(err)
    }
    if err := os.WriteFile(destPath, []byte("x"), 0o644); err != nil {
        t.Fatal(err)
    }

    entry := xfer.TransactionLogEntry{
        Op:     xfer.OpCopy,
        Source: "/src/photo.jpg",
        Dest:   destPath,
        Status: xfer.StatusSuccess,
    }
    writer.Append(entry)
    if err := writer.Close("Completed", 1, 0); err != nil {
        t.Fatalf("Close: %v", err)
    }

    if err := ReportFromLog(logPath, outDir); err != nil {
        t.Fatalf("ReportFromLog: %v", err)
    }
}
