package enrich

import (
    "os"
    "path/filepath"
    "testing"
)

func TestStepChecksumComputesSHA256(t *testing.T) {
    path := filepath.Join(t.TempDir(), "empty.jpg")
    if err := os.WriteFile(path, nil, 0o644); err != nil {
        t.Fatalf("write empty file: %v", err)
    }

    ef := &EnrichedFile{Source: SourceFile{Path: path, Kind: KindStillImage}}
    p := NewPipeline(PipelineConfig{})
    p.stepChecksum(ef)

    if ef.Metadata.Checksum != emptyFileChecksum {
        t.Fatalf("expected canonical empty-file checksum, got %s", ef.Metadata.Checksum)
    }
}

func TestStepDateTimeFallsBackToOlderOfFileTimes(t *testing.T) {
    path := filepath.Join(t.TempDir(), "noexif.jpg")
    if err := os.WriteFile(path, []byte("not a real jpeg"), 0o644); err != nil {
        t.Fatalf("write file: %v", err)
    }

    ef := &EnrichedFile{Source: SourceFile{Path: path, Kind: KindStillImage}}
    p := NewPipeline(PipelineConfig{})
    p.stepDateTime(ef)

    if ef.Metadata.Datetime.IsZero() {
        t.Fatalf("expected a fallback timestamp from file modification time")
    }
    if ef.Metadata.Datetime.Source != DateTimeFileModification && ef.Metadata.Datetime.Source != DateTimeFileCreation {
        t.Fatalf("expected a file-time-derived source, got %v", ef.Metadata.Datetime.Source)
    }
}

func TestStepLocationMarksNoGpsDataWhenCoordinatesMissing(t *testing.T) {
    path := filepath.Join(t.TempDir(), "noexif.jpg")
    if err := os.WriteFile(path, []byte("not a real jpeg"), 0o644); err != nil {
        t.Fatalf("write file: %v", err)
    }

    ef := &EnrichedFile{Source: SourceFile{Path: path, Kind: KindStillImage}}
    p := NewPipeline(PipelineConfig{})
    p.stepLocation(ef)

    if ef.Metadata.UnknownReason != ReasonNoGpsData {
        t.Fatalf("expected NoGpsData reason, got %v", ef.Metadata.UnknownReason)
    }
}
