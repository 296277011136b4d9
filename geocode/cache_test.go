package geocode

import "testing"

func TestCellCacheEvictsLeastRecentlyUsed(t *testing.T) {
    // Budget fits roughly one cell's worth of places.
    cache := NewCellCache(estimatedPlaceBytes * 2)

    cache.Put("cell1", []Place{{Name: "a"}, {Name: "b"}})
    cache.Put("cell2", []Place{{Name: "c"}, {Name: "d"}})

    if _, found := cache.Get("cell1"); found {
        t.Fatalf("expected cell1 to have been evicted to make room for cell2")
    }
    if _, found := cache.Get("cell2"); !found {
        t.Fatalf("expected cell2 to remain cached")
    }
}

func TestCellCacheStatsCountHitsAndMisses(t *testing.T) {
    cache := NewCellCache(estimatedPlaceBytes * 4)

    cache.Put("cell1", []Place{{Name: "a"}})
    cache.Put("cell2", []Place{{Name: "b"}})

    hits, misses := cache.Stats()
    if hits != 0 || misses != 0 {
        t.Fatalf("expected no hits/misses before any Get, got hits=%d misses=%d", hits, misses)
    }

    if _, found := cache.Get("cell1"); !found {
        t.Fatalf("expected cell1 to be cached")
    }

    hits, misses = cache.Stats()
    if hits != 1 || misses != 0 {
        t.Fatalf("expected 1 hit, got hits=%d misses=%d", hits, misses)
    }

    if _, found := cache.Get("missing"); found {
        t.Fatalf("expected miss for uncached key")
    }

    hits, misses = cache.Stats()
    if hits != 1 || misses != 1 {
        t.Fatalf("expected 1 hit and 1 miss, got hits=%d misses=%d", hits, misses)
    }
}

func TestRoundedCacheClearsOnOverflow(t *testing.T) {
    cache := NewRoundedCache()

    for i := 0; i < roundedCacheLimit; i++ {
        cache.Put(float64(i), 0, LocationData{City: "x"})
    }

    if len(cache.entries) != roundedCacheLimit {
        t.Fatalf("expected cache to hold exactly %d entries, got %d", roundedCacheLimit, len(cache.entries))
    }

    cache.Put(9999, 9999, LocationData{City: "overflow"})

    if len(cache.entries) != 1 {
        t.Fatalf("expected overflow Put to clear the cache down to 1 entry, got %d", len(cache.entries))
    }

    if _, found := cache.Get(0, 0); found {
        t.Fatalf("expected earlier entries to have been cleared on overflow")
    }
}
