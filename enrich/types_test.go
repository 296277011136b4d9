package enrich

import "testing"

func TestDetectKindByExtension(t *testing.T) {
    cases := map[string]Kind{
        "photo.JPG":   KindStillImage,
        "clip.mov":    KindVideo,
        "sidecar.xmp": KindSidecarXMP,
        "sidecar.json": KindSidecarJSON,
        "edit.aae":    KindSidecarAAE,
        "track.gpx":   KindGPSTrail,
        "readme.txt":  KindOther,
    }

    for path, want := range cases {
        if got := DetectKind(path); got != want {
            t.Errorf("DetectKind(%q) = %v, want %v", path, got, want)
        }
    }
}

func TestDetectKindSniffFallsBackToMagicBytes(t *testing.T) {
    jpegHead := []byte{0xFF, 0xD8, 0xFF, 0xE0}
    if got := DetectKindSniff("noext", jpegHead); got != KindStillImage {
        t.Fatalf("expected still image from JPEG magic bytes, got %v", got)
    }

    mp4Head := []byte{0, 0, 0, 0x18, 'f', 't', 'y', 'p'}
    if got := DetectKindSniff("noext", mp4Head); got != KindVideo {
        t.Fatalf("expected video from ftyp magic bytes, got %v", got)
    }

    if got := DetectKindSniff("noext", []byte{0x00}); got != KindOther {
        t.Fatalf("expected other for unrecognized bytes, got %v", got)
    }
}

func TestSourceFileRelDir(t *testing.T) {
    under := SourceFile{Path: "/src/2024/vacation/IMG_0001.jpg", Root: "/src"}
    if got, want := under.RelDir(), "2024/vacation"; got != want {
        t.Fatalf("RelDir() = %q, want %q", got, want)
    }

    atRoot := SourceFile{Path: "/src/IMG_0002.jpg", Root: "/src"}
    if got, want := atRoot.RelDir(), "."; got != want {
        t.Fatalf("RelDir() = %q, want %q", got, want)
    }

    noRoot := SourceFile{Path: "/src/2024/IMG_0003.jpg"}
    if got, want := noRoot.RelDir(), "/src/2024"; got != want {
        t.Fatalf("RelDir() = %q, want %q", got, want)
    }
}

func TestCoordinatesIsNull(t *testing.T) {
    if !(Coordinates{}).IsNull() {
        t.Fatalf("expected zero-value coordinates to be null island")
    }
    if (Coordinates{Latitude: 48.8, Longitude: 2.3}).IsNull() {
        t.Fatalf("expected non-zero coordinates to not be null island")
    }
}

func TestFileMetadataComplete(t *testing.T) {
    complete := FileMetadata{UnknownReason: ReasonNone}
    if !complete.Complete() {
        t.Fatalf("expected ReasonNone metadata to be complete")
    }

    incomplete := FileMetadata{UnknownReason: ReasonNoGpsData}
    if incomplete.Complete() {
        t.Fatalf("expected NoGpsData metadata to be incomplete")
    }
}
