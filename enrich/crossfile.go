package enrich

import (
    "path/filepath"
    "strings"
    "time"

    "github.com/dsoprea/go-photocopy/geocode"
    "github.com/dsoprea/go-photocopy/geohash"
)

// livePhotoStillExt are the still-image extensions eligible for Live-Photo
// companion inheritance; mp4 companions are explicitly excluded (only mov
// pairs with a still).
var livePhotoStillExt = map[string]bool{
    ".heic": true, ".heif": true, ".jpg": true, ".jpeg": true,
}

// ApplyLivePhotoInheritance scans files for same-stem still/.mov pairs and
// copies whichever of the pair first carries coordinates onto the other,
// case-insensitively matching the base name. mp4 companions never
// participate (only .mov is recognized as a Live-Photo video companion).
func ApplyLivePhotoInheritance(files []*EnrichedFile) {
    byStem := make(map[string][]*EnrichedFile)
    for _, ef := range files {
        key := strings.ToLower(ef.Source.Stem())
        byStem[key] = append(byStem[key], ef)
    }

    for _, group := range byStem {
        if len(group) < 2 {
            continue
        }

        var still, video *EnrichedFile
        for _, ef := range group {
            ext := strings.ToLower(filepath.Ext(ef.Source.Path))
            switch {
            case ef.Source.Kind == KindStillImage && livePhotoStillExt[ext]:
                still = ef
            case ef.Source.Kind == KindVideo && ext == ".mov":
                video = ef
            }
        }

        if still == nil || video == nil {
            continue
        }

        switch {
        case still.Metadata.Coordinates != nil && video.Metadata.Coordinates == nil:
            inheritCoordinates(video, still)
        case video.Metadata.Coordinates != nil && still.Metadata.Coordinates == nil:
            inheritCoordinates(still, video)
        }
    }
}

func inheritCoordinates(dst, src *EnrichedFile) {
    coord := *src.Metadata.Coordinates
    dst.Metadata.Coordinates = &coord
    if src.Metadata.Location != nil {
        loc := *src.Metadata.Location
        dst.Metadata.Location = &loc
    }
    dst.Metadata.UnknownReason = ReasonNone
    dst.pushTrace("inherited coordinates from live-photo companion %s", src.Source.Path)
    enrichLogger.Debugf(nil, "live-photo inheritance: %s -> %s", src.Source.Path, dst.Source.Path)
}

// ApplyCompanionGPS fills in coordinates for files that still lack them
// from the nearest GPS-trail fix within window, adapted from
// findLocationByTimeBestGuess's nearest-previous/next-within-window rule.
// Files whose embedded-metadata read errored (ReasonGpsExtractionError)
// are never assigned trail coordinates, even though stepDateTime still
// gives them a file-mtime-derived Datetime to fall back on.
func ApplyCompanionGPS(files []*EnrichedFile, trailPaths []string, window time.Duration, engine *geocode.Engine) {
    var points []trailPoint
    for _, path := range trailPaths {
        loaded, err := loadGPSTrail(path)
        if err != nil {
            enrichLogger.Warningf(nil, "companion gps trail %s unreadable: %v", path, err)
            continue
        }
        points = append(points, loaded...)
    }
    if len(points) == 0 {
        return
    }

    for _, ef := range files {
        if ef.Source.Kind != KindStillImage && ef.Source.Kind != KindVideo {
            continue
        }
        if ef.Metadata.Coordinates != nil {
            continue
        }
        if ef.Metadata.UnknownReason == ReasonGpsExtractionError {
            continue
        }
        if ef.Metadata.Datetime.IsZero() {
            continue
        }

        pt, ok := nearestTrailPoint(points, ef.Metadata.Datetime.When, window)
        if !ok {
            continue
        }

        coord := Coordinates{Latitude: pt.Latitude, Longitude: pt.Longitude}
        ef.Metadata.Coordinates = &coord
        ef.pushTrace("assigned coordinates from gps trail at %s", pt.When.Format(time.RFC3339))
        enrichLogger.Debugf(nil, "assigned trail fix to %s: cell [%s]", ef.Source.Path, geohash.CellIDForCoordinate(coord.Latitude, coord.Longitude))

        if engine != nil {
            if loc, err := engine.ReverseGeocode(coord.Latitude, coord.Longitude); err == nil {
                ef.Metadata.Location = &loc
                ef.Metadata.UnknownReason = ReasonNone
            } else {
                ef.Metadata.UnknownReason = ReasonGeocodingFailed
            }
        }
    }
}
