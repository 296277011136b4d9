package geocode

import (
    "path/filepath"
    "testing"

    "github.com/dsoprea/go-photocopy/geohash"
)

func squarePolygon(minLat, minLon, maxLat, maxLon float64) geohash.Polygon {
    return geohash.Polygon{
        Exterior: geohash.Ring{
            geohash.Quantize(minLat, minLon),
            geohash.Quantize(minLat, maxLon),
            geohash.Quantize(maxLat, maxLon),
            geohash.Quantize(maxLat, minLon),
        },
    }
}

func TestBoundaryIndexLookupResolvesCountry(t *testing.T) {
    countries := []BoundaryCountry{
        {Alpha2: "FR", Alpha3: "FRA", Name: "France", Polygons: []geohash.Polygon{squarePolygon(42, -5, 51, 8)}},
        {Alpha2: "DE", Alpha3: "DEU", Name: "Germany", Polygons: []geohash.Polygon{squarePolygon(47, 6, 55, 15)}},
    }

    path := filepath.Join(t.TempDir(), "countries.geobounds")
    if err := WriteBoundaryIndex(countries, path); err != nil {
        t.Fatalf("WriteBoundaryIndex: %v", err)
    }

    bi, err := OpenBoundaryIndex(path)
    if err != nil {
        t.Fatalf("OpenBoundaryIndex: %v", err)
    }
    defer bi.Close()

    code, ok, err := bi.Lookup(48.85, 2.35) // Paris, well inside FR
    if err != nil {
        t.Fatalf("Lookup: %v", err)
    }
    if !ok || code != "FR" {
        t.Fatalf("expected FR, got %q (ok=%v)", code, ok)
    }

    code, ok, err = bi.Lookup(52.5, 13.4) // Berlin, well inside DE
    if err != nil {
        t.Fatalf("Lookup: %v", err)
    }
    if !ok || code != "DE" {
        t.Fatalf("expected DE, got %q (ok=%v)", code, ok)
    }
}

func TestBoundaryIndexLookupOceanFallback(t *testing.T) {
    countries := []BoundaryCountry{
        {Alpha2: "FR", Alpha3: "FRA", Name: "France", Polygons: []geohash.Polygon{squarePolygon(42, -5, 51, 8)}},
    }

    path := filepath.Join(t.TempDir(), "countries.geobounds")
    if err := WriteBoundaryIndex(countries, path); err != nil {
        t.Fatalf("WriteBoundaryIndex: %v", err)
    }

    bi, err := OpenBoundaryIndex(path)
    if err != nil {
        t.Fatalf("OpenBoundaryIndex: %v", err)
    }
    defer bi.Close()

    _, ok, err := bi.Lookup(0, -140) // middle of the Pacific
    if err != nil {
        t.Fatalf("Lookup: %v", err)
    }
    if ok {
        t.Fatalf("expected no country match over open ocean")
    }
}

func TestBoundaryIndexSingleCountryCacheBuiltAtWriteTime(t *testing.T) {
    countries := []BoundaryCountry{
        {Alpha2: "FR", Alpha3: "FRA", Name: "France", Polygons: []geohash.Polygon{squarePolygon(42, -5, 51, 8)}},
    }

    path := filepath.Join(t.TempDir(), "countries.geobounds")
    if err := WriteBoundaryIndex(countries, path); err != nil {
        t.Fatalf("WriteBoundaryIndex: %v", err)
    }

    bi, err := OpenBoundaryIndex(path)
    if err != nil {
        t.Fatalf("OpenBoundaryIndex: %v", err)
    }
    defer bi.Close()

    // A single country's interior cells should already be resolved in the
    // single-country cache without having issued any Lookup call yet.
    cell, err := geohash.Encode(48.85, 2.35, cellPrecision)
    if err != nil {
        t.Fatalf("Encode: %v", err)
    }

    if _, cached := bi.singleCountryCache[cell]; !cached {
        t.Fatalf("expected cell %s to be precomputed in the single-country cache", cell)
    }
}
