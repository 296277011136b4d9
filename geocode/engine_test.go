package geocode

import (
    "path/filepath"
    "testing"
)

func newTestEngine(t *testing.T) *Engine {
    t.Helper()

    dataPath := writeSampleGazetteer(t)
    indexPath := filepath.Join(filepath.Dir(dataPath), "gazetteer.geostreamindex")

    eng, err := NewEngine(EngineConfig{
        GazetteerDataPath:  dataPath,
        GazetteerIndexPath: indexPath,
    })
    if err != nil {
        t.Fatalf("NewEngine: %v", err)
    }
    t.Cleanup(func() { eng.Close() })

    return eng
}

func TestReverseGeocodePrefersCityOverNearbyAdminArea(t *testing.T) {
    eng := newTestEngine(t)

    loc, err := eng.ReverseGeocode(48.85341, 2.3488)
    if err != nil {
        t.Fatalf("ReverseGeocode: %v", err)
    }

    if loc.City != "Paris" {
        t.Fatalf("expected city Paris, got %q", loc.City)
    }
    if loc.District != "" {
        t.Fatalf("expected empty district when nearest candidate is the city itself, got %q", loc.District)
    }
    if loc.Country != "FR" {
        t.Fatalf("expected country FR, got %q", loc.Country)
    }
}

func TestReverseGeocodeDistinguishesDistrictFromNearestCity(t *testing.T) {
    eng := newTestEngine(t)

    loc, err := eng.ReverseGeocode(48.9, 2.4)
    if err != nil {
        t.Fatalf("ReverseGeocode: %v", err)
    }

    if loc.District != "Paris Sample Town" {
        t.Fatalf("expected district 'Paris Sample Town', got %q", loc.District)
    }
    if loc.City != "Paris" {
        t.Fatalf("expected nearest qualifying city to still be Paris, got %q", loc.City)
    }
}

func TestReverseGeocodeNoNearestPlace(t *testing.T) {
    eng := newTestEngine(t)

    // Roughly the middle of the South Pacific: nothing within 50km of any
    // sample gazetteer entry.
    _, err := eng.ReverseGeocode(-40.0, -140.0)
    if err != ErrNoNearestPlace {
        t.Fatalf("expected ErrNoNearestPlace, got %v", err)
    }
}

func TestReverseGeocodeUsesRoundedCache(t *testing.T) {
    eng := newTestEngine(t)

    if _, err := eng.ReverseGeocode(48.85341, 2.3488); err != nil {
        t.Fatalf("first ReverseGeocode: %v", err)
    }

    _, misses1 := eng.CacheStats()

    if _, err := eng.ReverseGeocode(48.85341, 2.3488); err != nil {
        t.Fatalf("second ReverseGeocode: %v", err)
    }

    _, misses2 := eng.CacheStats()

    if misses2 != misses1 {
        t.Fatalf("expected second identical query to be served from the rounded cache without touching the cell cache, misses went from %d to %d", misses1, misses2)
    }
}
