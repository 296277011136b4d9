package geocode

import (
    "bufio"
    "os"
    "sort"
    "strings"

    "github.com/dsoprea/go-logging"

    "github.com/dsoprea/go-photocopy/geohash"
)

// EngineConfig configures a new Engine.
type EngineConfig struct {
    // GazetteerDataPath is the raw GeoNames TSV file.
    GazetteerDataPath string

    // GazetteerIndexPath is the .geostreamindex sidecar. If missing or
    // stale relative to GazetteerDataPath it is rebuilt automatically.
    GazetteerIndexPath string

    // BoundaryPath is the optional .geobounds country-boundary file. If
    // empty, country resolution falls back to the gazetteer record's own
    // country_code field.
    BoundaryPath string

    // PersistentCachePath is the optional pogreb database path for
    // cross-run result caching. If empty, no persistent cache is used.
    PersistentCachePath string

    // CellCacheBytes bounds the in-memory LRU cell cache. Zero uses the
    // package default.
    CellCacheBytes int

    // BuildProgress, if set, is invoked once after a gazetteer index
    // rebuild completes.
    BuildProgress func()
}

// Engine is the reverse-geocoding engine (spec.md section 4.2): given a
// coordinate, it resolves a best-guess district, city, county, state, and
// country, backed by a stream-indexed gazetteer and an optional
// country-boundary polygon index.
type Engine struct {
    dataPath string
    dataFile *os.File

    gaz    *GazetteerIndex
    bounds *BoundaryIndex

    cells      *CellCache
    rounded    *RoundedCache
    persistent *PersistentCache
}

// NewEngine builds an Engine from cfg, opening (and if necessary rebuilding)
// the gazetteer stream index and, if configured, the boundary index and
// persistent cache.
func NewEngine(cfg EngineConfig) (eng *Engine, err error) {
    defer func() {
        if state := recover(); state != nil {
            err = log.Wrap(state.(error))
        }
    }()

    gaz, err := EnsureGazetteerIndex(cfg.GazetteerDataPath, cfg.GazetteerIndexPath, cfg.BuildProgress)
    log.PanicIf(err)

    dataFile, err := os.Open(cfg.GazetteerDataPath)
    log.PanicIf(err)

    eng = &Engine{
        dataPath: cfg.GazetteerDataPath,
        dataFile: dataFile,
        gaz:      gaz,
        cells:    NewCellCache(cfg.CellCacheBytes),
        rounded:  NewRoundedCache(),
    }

    if cfg.BoundaryPath != "" {
        bounds, boundsErr := OpenBoundaryIndex(cfg.BoundaryPath)
        log.PanicIf(boundsErr)
        eng.bounds = bounds
    }

    if cfg.PersistentCachePath != "" {
        pc, pcErr := OpenPersistentCache(cfg.PersistentCachePath)
        log.PanicIf(pcErr)
        eng.persistent = pc
    }

    return eng, nil
}

// Close releases the gazetteer data file and any optional indexes/caches.
func (e *Engine) Close() error {
    if e.bounds != nil {
        e.bounds.Close()
    }
    if e.persistent != nil {
        e.persistent.Close()
    }
    return e.dataFile.Close()
}

// CacheStats returns the in-memory cell cache's cumulative hit/miss counts.
func (e *Engine) CacheStats() (hits, misses uint64) {
    return e.cells.Stats()
}

// loadCell returns the decoded Place records for a precision-4 geohash
// cell, consulting the LRU cache first and falling back to seeking into
// the raw gazetteer file at the offsets recorded in the stream index.
func (e *Engine) loadCell(cell string) ([]Place, error) {
    if places, found := e.cells.Get(cell); found {
        return places, nil
    }

    offsets := e.gaz.Offsets(cell)
    places := make([]Place, 0, len(offsets))

    for _, off := range offsets {
        if _, err := e.dataFile.Seek(off, 0); err != nil {
            return nil, err
        }

        r := bufio.NewReader(e.dataFile)
        line, err := r.ReadString('\n')
        if err != nil && line == "" {
            return nil, err
        }

        trimmed := strings.TrimRight(line, "\r\n")
        place, parseErr := parseGazetteerLine(trimmed)
        if parseErr != nil {
            continue
        }

        places = append(places, place)
    }

    e.cells.Put(cell, places)
    return places, nil
}

// candidate pairs a gazetteer Place with its distance from the query point.
type candidate struct {
    place    Place
    distance float64
}

// ReverseGeocode resolves (lat, lon) to a best-guess LocationData, per
// spec.md section 4.2.1's district/city dual-candidate selection rule.
func (e *Engine) ReverseGeocode(lat, lon float64) (loc LocationData, err error) {
    defer func() {
        if state := recover(); state != nil {
            err = log.Wrap(state.(error))
        }
    }()

    if cached, found := e.rounded.Get(lat, lon); found {
        return cached, nil
    }

    if e.persistent != nil {
        if cached, found, cacheErr := e.persistent.Get(lat, lon); cacheErr == nil && found {
            e.rounded.Put(lat, lon, cached)
            return cached, nil
        }
    }

    candidates, err := e.gatherCandidates(lat, lon)
    log.PanicIf(err)

    if len(candidates) == 0 {
        return LocationData{}, ErrNoNearestPlace
    }

    sort.Slice(candidates, func(i, j int) bool {
        return candidates[i].distance < candidates[j].distance
    })

    district := selectDistrict(candidates)
    city := selectCity(candidates)

    loc = LocationData{
        County:     district.place.Admin2,
        State:      district.place.Admin1,
        Population: district.place.Population,
    }

    if city != nil {
        loc.City = city.place.Name
        if city.place.Name != district.place.Name {
            loc.District = district.place.Name
        }
    } else {
        loc.District = district.place.Name
    }

    if e.bounds != nil {
        if code, ok, boundErr := e.bounds.Lookup(lat, lon); boundErr == nil && ok {
            loc.Country = code
        }
    }
    if loc.Country == "" {
        loc.Country = district.place.CountryCode
    }

    e.rounded.Put(lat, lon, loc)
    if e.persistent != nil {
        if putErr := e.persistent.Put(lat, lon, loc); putErr != nil {
            geocodeLogger.Warningf(nil, "failed to persist geocode result: %s", putErr)
        }
    }

    return loc, nil
}

// gatherCandidates collects every Place within distanceCapKm of (lat, lon)
// by scanning the query cell and its 8 neighbors.
func (e *Engine) gatherCandidates(lat, lon float64) ([]candidate, error) {
    cell, err := geohash.Encode(lat, lon, cellPrecision)
    if err != nil {
        return nil, err
    }

    cellsToScan := []string{cell}
    if neighbors, nerr := geohash.Neighbors(cell); nerr == nil {
        cellsToScan = append(cellsToScan, neighbors...)
    }

    var candidates []candidate
    for _, c := range cellsToScan {
        places, loadErr := e.loadCell(c)
        if loadErr != nil {
            return nil, loadErr
        }

        for _, p := range places {
            d := geohash.Haversine(lat, lon, p.Latitude, p.Longitude)
            if d <= distanceCapKm {
                candidates = append(candidates, candidate{place: p, distance: d})
            }
        }
    }

    return candidates, nil
}

// selectDistrict applies the feature-priority tie-break: starting from the
// nearest candidate, a later (farther) candidate only replaces it if it
// lies within priorityThresholdKm of the current pick's distance and
// outranks it by feature class (populated place > admin area > landmark).
func selectDistrict(sorted []candidate) candidate {
    best := sorted[0]

    for _, c := range sorted[1:] {
        if c.distance-best.distance > priorityThresholdKm {
            break
        }
        if c.place.featurePriority() > best.place.featurePriority() {
            best = c
        }
    }

    return best
}

// selectCity returns the nearest candidate that qualifies as a city
// (population >= cityPopulationThreshold), or nil if none do.
func selectCity(sorted []candidate) *candidate {
    for i := range sorted {
        if sorted[i].place.IsCity() {
            return &sorted[i]
        }
    }
    return nil
}
