package geohash

import (
    "github.com/golang/geo/s2"
)

// CellIDForCoordinate returns the canonical leaf s2 cell token for (lat,
// lon), for diagnostic logging of near-duplicate GPS fixes during
// companion-GPS ingestion. It carries no role in the geohash/gazetteer
// lookup path itself; it exists purely to give two independently-derived
// coordinates a short, comparable identifier in log output.
func CellIDForCoordinate(lat, lon float64) string {
    cell := s2.CellIDFromLatLng(s2.LatLngFromDegrees(lat, lon))
    return cell.ToToken()
}
