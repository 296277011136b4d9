// Package geocode implements the reverse-geocoding engine: a stream-indexed
// gazetteer lookup and a country-boundary polygon lookup, both backed by
// on-disk formats too large to hold in memory, fronted by an LRU cell cache.
package geocode

import (
    "errors"

    "github.com/dsoprea/go-logging"
)

var geocodeLogger = log.NewLogger("geocode.engine")

// ErrNoNearestPlace mirrors the teacher's CityIndex.Nearest not-found
// sentinel (ErrNoNearestCity in go-geographic-attractor/index); returned
// when no gazetteer candidate falls within the 50km cap.
var ErrNoNearestPlace = errors.New("geocode: no nearest place within range")

// Place is one parsed gazetteer record (GeoNames TSV line), restricted to
// the fields the engine needs (spec.md section 4.2.1).
type Place struct {
    Name         string
    Latitude     float64
    Longitude    float64
    FeatureClass string // "P" or "A"
    FeatureCode  string
    CountryCode  string
    Admin1       string // state
    Admin2       string // county
    Population   int64
}

// featurePriority ranks populated places above administrative areas above
// everything else (landmarks), per spec.md section 4.2.1.
func (p Place) featurePriority() int {
    switch p.FeatureClass {
    case "P":
        return 2
    case "A":
        return 1
    default:
        return 0
    }
}

// IsCity reports whether p qualifies for the "cities" candidate set
// (population >= 100,000).
func (p Place) IsCity() bool {
    return p.Population >= cityPopulationThreshold
}

// LocationData is the resolved, user-facing reverse-geocode result.
type LocationData struct {
    District   string
    City       string
    County     string
    State      string
    Country    string
    Population int64
}

// Empty reports whether no location fields at all were resolved.
func (l LocationData) Empty() bool {
    return l.District == "" && l.City == "" && l.Country == ""
}

const (
    // cityPopulationThreshold is the population at/above which a populated
    // place qualifies as a "city" candidate (spec.md section 4.2.1).
    cityPopulationThreshold = 100000

    // distanceCapKm bounds candidate consideration for a reverse-geocode
    // query.
    distanceCapKm = 50.0

    // priorityThresholdKm is the distance within which two candidates are
    // considered "close enough" that feature priority breaks the tie
    // instead of raw distance.
    priorityThresholdKm = 15.0

    // cellPrecision is the geohash precision used to bucket gazetteer
    // offsets and country-boundary cache cells.
    cellPrecision = 4
)
