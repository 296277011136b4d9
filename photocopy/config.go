// Package photocopy orchestrates the scan, enrich, plan, and execute stages
// into the four (plus report) verbs a command-line tool exposes.
package photocopy

import (
    "time"

    "github.com/dsoprea/go-photocopy/enrich"
    "github.com/dsoprea/go-photocopy/plan"
)

const (
    // defaultCellCacheBytes bounds the geocode engine's in-memory LRU cell
    // cache when the caller doesn't specify one.
    defaultCellCacheBytes = 32 * 1024 * 1024

    // defaultWorkerCount is used when Options.Workers is zero or negative.
    defaultWorkerCount = 4

    // defaultGpsProximityWindow is the companion-GPS nearest-timestamp
    // search window when Options.GPSProximityWindow is zero.
    defaultGpsProximityWindow = 5 * time.Minute
)

// Options configures one Driver run. All fields are already-validated Go
// values; no flag/env/file parsing happens in this package (that is
// command/photocopy's job).
type Options struct {
    SourceRoot string
    DestRoot   string
    Excludes   []string

    Template        string
    Casing          plan.CasingPolicy
    DuplicatePolicy plan.DuplicatePolicy
    DuplicatesFormat string

    SidecarPolicy      enrich.SidecarMergePolicy
    GPSTrailPaths      []string
    GPSProximityWindow time.Duration

    GazetteerDataPath   string
    GazetteerIndexPath  string
    BoundaryPath        string
    PersistentCachePath string
    CellCacheBytes      int

    Workers int
    Move    bool

    LogDir string
}

func (o Options) workers() int {
    if o.Workers <= 0 {
        return defaultWorkerCount
    }
    return o.Workers
}

func (o Options) gpsProximityWindow() time.Duration {
    if o.GPSProximityWindow <= 0 {
        return defaultGpsProximityWindow
    }
    return o.GPSProximityWindow
}

func (o Options) cellCacheBytes() int {
    if o.CellCacheBytes <= 0 {
        return defaultCellCacheBytes
    }
    return o.CellCacheBytes
}
