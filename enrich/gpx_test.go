package enrich

import (
    "os"
    "path/filepath"
    "testing"
    "time"
)

const sampleGPX = `<?xml version="1.0" encoding="UTF-8"?>
<gpx version="1.1" creator="test">
  <trk>
    <trkseg>
      <trkpt lat="48.8534" lon="2.3488"><time>2024-06-01T14:00:00Z</time></trkpt>
      <trkpt lat="48.86" lon="2.35"><time>2024-06-01T14:20:00Z</time></trkpt>
      <trkpt lat="48.87" lon="2.36"><time>2024-06-01T15:00:00Z</time></trkpt>
    </trkseg>
  </trk>
</gpx>`

func writeSampleGPX(t *testing.T) string {
    t.Helper()
    path := filepath.Join(t.TempDir(), "trail.gpx")
    if err := os.WriteFile(path, []byte(sampleGPX), 0o644); err != nil {
        t.Fatalf("write sample gpx: %v", err)
    }
    return path
}

func TestLoadGPSTrailSortedByTime(t *testing.T) {
    points, err := loadGPSTrail(writeSampleGPX(t))
    if err != nil {
        t.Fatalf("loadGPSTrail: %v", err)
    }
    if len(points) != 3 {
        t.Fatalf("expected 3 points, got %d", len(points))
    }
    for i := 1; i < len(points); i++ {
        if points[i].When.Before(points[i-1].When) {
            t.Fatalf("expected points sorted ascending by time")
        }
    }
}

func TestNearestTrailPointPrefersCloserSideWithinWindow(t *testing.T) {
    points, err := loadGPSTrail(writeSampleGPX(t))
    if err != nil {
        t.Fatalf("loadGPSTrail: %v", err)
    }

    when := time.Date(2024, 6, 1, 14, 5, 0, 0, time.UTC)
    pt, ok := nearestTrailPoint(points, when, 10*time.Minute)
    if !ok {
        t.Fatalf("expected a match within window")
    }
    if pt.Latitude != 48.8534 {
        t.Fatalf("expected nearest point to be the 14:00 fix, got %+v", pt)
    }
}

func TestNearestTrailPointNoneOutsideWindow(t *testing.T) {
    points, err := loadGPSTrail(writeSampleGPX(t))
    if err != nil {
        t.Fatalf("loadGPSTrail: %v", err)
    }

    when := time.Date(2024, 6, 1, 14, 35, 0, 0, time.UTC)
    if _, ok := nearestTrailPoint(points, when, 10*time.Minute); ok {
        t.Fatalf("expected no match: 14:35 is 15min from 14:20 and 25min from 15:00, both outside a 10min window")
    }
}
