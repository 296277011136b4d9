package enrich

import (
    "fmt"
    "sort"
    "time"

    "github.com/tkrajina/gpxgo/gpx"
)

// trailPoint is one timestamped fix read out of a gps_trail file.
type trailPoint struct {
    When      time.Time
    Latitude  float64
    Longitude float64
}

// loadGPSTrail reads every track/route point carrying a timestamp out of a
// GPX file, sorted ascending by time.
func loadGPSTrail(path string) ([]trailPoint, error) {
    g, err := gpx.ParseFile(path)
    if err != nil {
        return nil, fmt.Errorf("parse gpx %s: %w", path, err)
    }

    var points []trailPoint
    for _, track := range g.Tracks {
        for _, segment := range track.Segments {
            for _, pt := range segment.Points {
                if pt.Timestamp.IsZero() {
                    continue
                }
                points = append(points, trailPoint{
                    When:      pt.Timestamp.UTC(),
                    Latitude:  pt.GetLatitude(),
                    Longitude: pt.GetLongitude(),
                })
            }
        }
    }

    sort.Slice(points, func(i, j int) bool { return points[i].When.Before(points[j].When) })
    return points, nil
}

// nearestTrailPoint adapts findLocationByTimeBestGuess's binary-search and
// nearest-of-{previous,next}-within-window logic to a flat, pre-sorted
// slice of trail points. ok is false when no point falls within window of
// when.
func nearestTrailPoint(points []trailPoint, when time.Time, window time.Duration) (trailPoint, bool) {
    if len(points) == 0 {
        return trailPoint{}, false
    }

    pos := sort.Search(len(points), func(i int) bool { return !points[i].When.Before(when) })

    if pos < len(points) && points[pos].When.Equal(when) {
        return points[pos], true
    }

    var hasPrev, hasNext bool
    var prev, next trailPoint

    if pos > 0 {
        prev = points[pos-1]
        hasPrev = true
    }
    if pos < len(points) {
        next = points[pos]
        hasNext = true
    }

    var sincePrev, untilNext time.Duration
    if hasPrev {
        sincePrev = when.Sub(prev.When)
    }
    if hasNext {
        untilNext = next.When.Sub(when)
    }

    switch {
    case hasPrev && sincePrev <= window && (!hasNext || untilNext > window):
        return prev, true
    case hasPrev && hasNext && sincePrev <= window && untilNext <= window:
        if sincePrev < untilNext {
            return prev, true
        }
        return next, true
    case hasNext && untilNext <= window:
        return next, true
    default:
        return trailPoint{}, false
    }
}
