// Package enrich implements the metadata enrichment pipeline: ordered
// per-file steps that populate datetime, location, sidecar, and checksum
// metadata, followed by cross-file enrichers that reconcile Live-Photo
// pairs and GPS-trail companions across a whole batch.
package enrich

import (
    "fmt"
    "path/filepath"
    "strings"
    "time"

    "github.com/dsoprea/go-logging"

    "github.com/dsoprea/go-photocopy/geocode"
)

var enrichLogger = log.NewLogger("enrich.pipeline")

// Kind classifies a SourceFile by extension and, where ambiguous, magic
// bytes (spec.md section 3.1).
type Kind int

const (
    KindOther Kind = iota
    KindStillImage
    KindVideo
    KindSidecarXMP
    KindSidecarJSON
    KindSidecarAAE
    KindGPSTrail
)

func (k Kind) String() string {
    switch k {
    case KindStillImage:
        return "still_image"
    case KindVideo:
        return "video"
    case KindSidecarXMP:
        return "sidecar_xmp"
    case KindSidecarJSON:
        return "sidecar_json"
    case KindSidecarAAE:
        return "sidecar_aae"
    case KindGPSTrail:
        return "gps_trail"
    default:
        return "other"
    }
}

// stillImageExt enumerates extensions recognized as still images, mirroring
// the teacher's rawExt extension-set style (nir0k-GeoRAW/internal/media/metadata.go)
// generalized from RAW-only to every still format the pipeline handles.
var stillImageExt = map[string]bool{
    ".jpg": true, ".jpeg": true, ".heic": true, ".heif": true,
    ".tif": true, ".tiff": true, ".png": true, ".avif": true,
    ".cr2": true, ".cr3": true, ".nef": true, ".nrw": true,
    ".arw": true, ".dng": true, ".raf": true, ".rw2": true,
    ".orf": true, ".pef": true, ".srw": true, ".3fr": true,
}

var videoExt = map[string]bool{
    ".mov": true, ".mp4": true, ".m4v": true, ".avi": true, ".mts": true,
}

// DetectKind classifies path by extension alone; callers needing the
// magic-byte fallback for ambiguous extensions should use DetectKindSniff.
func DetectKind(path string) Kind {
    ext := strings.ToLower(filepath.Ext(path))

    switch {
    case stillImageExt[ext]:
        return KindStillImage
    case videoExt[ext]:
        return KindVideo
    case ext == ".xmp":
        return KindSidecarXMP
    case ext == ".json":
        return KindSidecarJSON
    case ext == ".aae":
        return KindSidecarAAE
    case ext == ".gpx":
        return KindGPSTrail
    default:
        return KindOther
    }
}

// magicSniffLen is how many leading bytes DetectKindSniff inspects to
// disambiguate an extensionless or misleadingly-named file.
const magicSniffLen = 16

// DetectKindSniff classifies path, falling back to magic-byte inspection of
// head (the file's first magicSniffLen-or-fewer bytes) when the extension
// alone is ambiguous (empty or unrecognized).
func DetectKindSniff(path string, head []byte) Kind {
    byExt := DetectKind(path)
    if byExt != KindOther {
        return byExt
    }

    switch {
    case len(head) >= 3 && head[0] == 0xFF && head[1] == 0xD8 && head[2] == 0xFF:
        return KindStillImage // JPEG SOI marker
    case len(head) >= 8 && string(head[4:8]) == "ftyp":
        return KindVideo // ISO base media container (mp4/mov family)
    case len(head) >= 8 && string(head[0:8]) == "\x89PNG\r\n\x1a\n":
        return KindStillImage
    default:
        return KindOther
    }
}

// DateTimeSource names where FileDateTime.When was sourced from.
type DateTimeSource int

const (
    DateTimeUnknown DateTimeSource = iota
    DateTimeExifOriginal
    DateTimeExifDigitized
    DateTimeSidecar
    DateTimeFileCreation
    DateTimeFileModification
)

// FileDateTime is a resolved capture timestamp and its provenance.
type FileDateTime struct {
    When   time.Time
    Source DateTimeSource
}

// IsZero reports whether no timestamp could be resolved at all, the
// invariant spec.md section 3.1 ties to DateTimeUnknown.
func (dt FileDateTime) IsZero() bool {
    return dt.Source == DateTimeUnknown
}

// Coordinates is a WGS84 lat/lon pair. The literal pair (0,0) is treated as
// "no data" throughout this package (the "null island" policy).
type Coordinates struct {
    Latitude  float64
    Longitude float64
}

// IsNull reports whether c is the null-island sentinel.
func (c Coordinates) IsNull() bool {
    return c.Latitude == 0 && c.Longitude == 0
}

// UnknownReason explains why FileMetadata could not be completed under the
// active policy.
type UnknownReason int

const (
    ReasonNone UnknownReason = iota
    ReasonNoGpsData
    ReasonGpsExtractionError
    ReasonGeocodingFailed
    ReasonNoDate
)

func (r UnknownReason) String() string {
    switch r {
    case ReasonNoGpsData:
        return "NoGpsData"
    case ReasonGpsExtractionError:
        return "GpsExtractionError"
    case ReasonGeocodingFailed:
        return "GeocodingFailed"
    case ReasonNoDate:
        return "NoDate"
    default:
        return "None"
    }
}

// FileMetadata is the accumulated per-file enrichment result.
type FileMetadata struct {
    Datetime      FileDateTime
    Coordinates   *Coordinates
    Location      *geocode.LocationData
    Checksum      string // lowercase hex-64, empty if not computed
    UnknownReason UnknownReason

    CameraMake  string
    CameraModel string
}

// Complete reports whether metadata is deemed complete under the active
// policy (spec.md section 3.1: UnknownReason == None iff complete).
func (m FileMetadata) Complete() bool {
    return m.UnknownReason == ReasonNone
}

// SourceFile is a read-only reference to a filesystem file plus its
// detected kind.
type SourceFile struct {
    Path    string
    Root    string // scan root Path was found under, for source-relative tokens
    Kind    Kind
    Size    int64
    ModTime time.Time
}

// Stem returns the filename without its final extension.
func (s SourceFile) Stem() string {
    base := filepath.Base(s.Path)
    return strings.TrimSuffix(base, filepath.Ext(base))
}

// RelDir returns Path's parent directory relative to Root (the "." given
// by filepath.Rel for a file directly under Root), or Path's absolute
// parent directory if Root is unset or Path does not fall under it.
func (s SourceFile) RelDir() string {
    dir := filepath.Dir(s.Path)
    if s.Root == "" {
        return dir
    }

    rel, err := filepath.Rel(s.Root, dir)
    if err != nil {
        return dir
    }
    return rel
}

// EnrichedFile wraps a SourceFile with its resolved metadata and any
// related files (sidecars, Live-Photo companions) co-moved with it.
type EnrichedFile struct {
    Source   SourceFile
    Metadata FileMetadata
    Related  []SourceFile

    // Trace is a per-file diagnostic trail recording why enrichment made
    // the decisions it did; adapted from the teacher's process-global
    // image_trace.go into a per-file slice.
    Trace []string
}

// pushTrace appends a diagnostic line, grounded on image_trace.go's
// PushDebugTrace/PushWarningTrace convention of a free-text trail per file.
func (ef *EnrichedFile) pushTrace(format string, args ...interface{}) {
    ef.Trace = append(ef.Trace, fmt.Sprintf(format, args...))
}
