package enrich

import (
    "os"
    "time"

    "github.com/dsoprea/go-photocopy/geocode"
)

// PipelineConfig tunes the ordered per-file enrichment steps.
type PipelineConfig struct {
    Engine        *geocode.Engine
    SidecarPolicy SidecarMergePolicy
}

// Pipeline runs the ordered per-file enrichment steps (datetime, location,
// sidecar, checksum) described by spec.md section 4.3.
type Pipeline struct {
    cfg PipelineConfig
}

// NewPipeline builds a Pipeline from cfg.
func NewPipeline(cfg PipelineConfig) *Pipeline {
    return &Pipeline{cfg: cfg}
}

// Enrich runs all four ordered steps against source and returns the
// populated EnrichedFile. It never returns an error for expected
// per-file failures (missing GPS, failed geocode, unreadable EXIF); those
// are recorded in FileMetadata.UnknownReason and the trace instead.
func (p *Pipeline) Enrich(source SourceFile) *EnrichedFile {
    ef := &EnrichedFile{Source: source}

    p.stepDateTime(ef)
    p.stepLocation(ef)
    p.stepSidecar(ef)
    p.stepChecksum(ef)

    return ef
}

// stepDateTime resolves FileDateTime: EXIF DateTimeOriginal, then
// DateTimeDigitized, then falls back to file creation/modification time
// using the OLDER of the two unless creation is after modification (a
// clock anomaly, in which case modification is trusted).
func (p *Pipeline) stepDateTime(ef *EnrichedFile) {
    if ef.Source.Kind != KindStillImage && ef.Source.Kind != KindVideo {
        return
    }

    dt, coord, make_, model, err := extractEmbeddedMetadata(ef.Source.Path)
    if err != nil {
        ef.pushTrace("exif decode failed: %v", err)
        ef.Metadata.UnknownReason = ReasonGpsExtractionError
    } else {
        ef.Metadata.CameraMake = make_
        ef.Metadata.CameraModel = model
        if coord != nil {
            ef.Metadata.Coordinates = coord
        }
    }

    if !dt.IsZero() {
        ef.Metadata.Datetime = dt
        return
    }

    created, modified, ferr := fileTimes(ef.Source.Path)
    if ferr != nil {
        ef.pushTrace("file time lookup failed: %v", ferr)
        ef.Metadata.UnknownReason = ReasonNoDate
        return
    }

    older := modified
    source := DateTimeFileModification
    if !created.IsZero() && created.Before(modified) {
        older = created
        source = DateTimeFileCreation
    }
    ef.Metadata.Datetime = FileDateTime{When: older, Source: source}
}

// fileTimes returns path's creation and modification time. Go's standard
// library exposes only modification time portably; creation time is
// approximated by modification time on platforms without a reliable
// birth-time syscall, which is why stepDateTime's "older of the two" rule
// degenerates gracefully to a single timestamp.
func fileTimes(path string) (created, modified time.Time, err error) {
    info, err := os.Stat(path)
    if err != nil {
        return time.Time{}, time.Time{}, err
    }
    modified = info.ModTime()
    created = modified
    return created, modified, nil
}

// stepLocation reverse-geocodes ef's coordinates, if any were found by the
// datetime step's EXIF read.
func (p *Pipeline) stepLocation(ef *EnrichedFile) {
    if ef.Source.Kind != KindStillImage && ef.Source.Kind != KindVideo {
        return
    }

    if ef.Metadata.Coordinates == nil {
        if ef.Metadata.UnknownReason != ReasonGpsExtractionError {
            ef.Metadata.UnknownReason = ReasonNoGpsData
        }
        return
    }

    if p.cfg.Engine == nil {
        return
    }

    loc, err := p.cfg.Engine.ReverseGeocode(ef.Metadata.Coordinates.Latitude, ef.Metadata.Coordinates.Longitude)
    if err != nil {
        ef.pushTrace("reverse geocode failed: %v", err)
        ef.Metadata.UnknownReason = ReasonGeocodingFailed
        return
    }

    ef.Metadata.Location = &loc
}

// stepSidecar merges sibling *.xmp/*.json/*.aae sidecars into ef's
// metadata per the configured merge policy.
func (p *Pipeline) stepSidecar(ef *EnrichedFile) {
    if ef.Source.Kind != KindStillImage && ef.Source.Kind != KindVideo {
        return
    }

    for _, path := range findSidecars(ef.Source) {
        data, err := readSidecar(path)
        if err != nil {
            ef.pushTrace("sidecar %s unreadable: %v", path, err)
            continue
        }
        mergeSidecar(&ef.Metadata, data, p.cfg.SidecarPolicy)

        if data.Coordinates != nil && ef.Metadata.Location == nil && p.cfg.Engine != nil {
            if loc, err := p.cfg.Engine.ReverseGeocode(data.Coordinates.Latitude, data.Coordinates.Longitude); err == nil {
                ef.Metadata.Location = &loc
                ef.Metadata.UnknownReason = ReasonNone
            }
        }
    }
}

// stepChecksum computes the SHA-256 digest of the source file.
func (p *Pipeline) stepChecksum(ef *EnrichedFile) {
    sum, err := fileChecksum(ef.Source.Path)
    if err != nil {
        ef.pushTrace("checksum failed: %v", err)
        return
    }
    ef.Metadata.Checksum = sum
}
