package geocode

import (
    "container/list"
    "encoding/binary"
    "encoding/json"
    "fmt"
    "sync"

    "github.com/akrylysov/pogreb"
    "github.com/cespare/xxhash/v2"
    "github.com/dsoprea/go-logging"
)

// defaultCellCacheBytes bounds the in-memory LRU cell cache by an estimated
// byte budget rather than an entry count, since gazetteer cells hold wildly
// different numbers of places (spec.md section 4.2.1).
const defaultCellCacheBytes = 100 * 1024 * 1024

// roundedCacheLimit bounds the secondary rounded-coordinate lookup cache;
// it is cleared outright on overflow rather than evicted incrementally.
const roundedCacheLimit = 10000

// estimatedPlaceBytes approximates a Place's resident size for cache
// accounting purposes; it does not need to be exact.
const estimatedPlaceBytes = 160

// cellCacheEntry is one node in the LRU list: a cell's decoded Place slice.
type cellCacheEntry struct {
    cell   string
    places []Place
    bytes  int
}

// CellCache is an LRU cache, bounded by estimated byte size, mapping
// geohash cells to their decoded gazetteer Place lists. It is the engine's
// primary defense against re-parsing gazetteer lines on every query
// (spec.md section 4.2.1, "LRU cell cache").
type CellCache struct {
    mu        sync.Mutex
    budget    int
    used      int
    entries   map[string]*list.Element
    order     *list.List // front = most recently used

    hits, misses uint64
}

// NewCellCache constructs a cache with the given byte budget. A budget <= 0
// uses defaultCellCacheBytes.
func NewCellCache(budgetBytes int) *CellCache {
    if budgetBytes <= 0 {
        budgetBytes = defaultCellCacheBytes
    }

    return &CellCache{
        budget:  budgetBytes,
        entries: make(map[string]*list.Element),
        order:   list.New(),
    }
}

// Get returns the cached places for cell, promoting it to most-recently-used.
func (c *CellCache) Get(cell string) ([]Place, bool) {
    c.mu.Lock()
    defer c.mu.Unlock()

    el, found := c.entries[cell]
    if !found {
        c.misses++
        return nil, false
    }

    c.order.MoveToFront(el)
    c.hits++
    return el.Value.(*cellCacheEntry).places, true
}

// Put inserts or replaces the places cached for cell, evicting the
// least-recently-used entries until the cache fits within budget.
func (c *CellCache) Put(cell string, places []Place) {
    c.mu.Lock()
    defer c.mu.Unlock()

    size := len(places) * estimatedPlaceBytes

    if el, found := c.entries[cell]; found {
        old := el.Value.(*cellCacheEntry)
        c.used -= old.bytes
        old.places = places
        old.bytes = size
        c.used += size
        c.order.MoveToFront(el)
    } else {
        entry := &cellCacheEntry{cell: cell, places: places, bytes: size}
        el := c.order.PushFront(entry)
        c.entries[cell] = el
        c.used += size
    }

    for c.used > c.budget && c.order.Len() > 1 {
        back := c.order.Back()
        if back == nil {
            break
        }
        evicted := back.Value.(*cellCacheEntry)
        c.order.Remove(back)
        delete(c.entries, evicted.cell)
        c.used -= evicted.bytes
    }
}

// Stats returns cumulative hit/miss counts.
func (c *CellCache) Stats() (hits, misses uint64) {
    c.mu.Lock()
    defer c.mu.Unlock()
    return c.hits, c.misses
}

// roundedKey quantizes (lat, lon) to 4 decimal places (~11m resolution) for
// the secondary lookup cache, which short-circuits repeat queries for
// effectively the same point without touching the cell cache at all.
func roundedKey(lat, lon float64) string {
    return fmt.Sprintf("%.4f,%.4f", lat, lon)
}

// pogrebKey reduces a rounded-coordinate key to its 8-byte xxhash digest so
// the on-disk cache stores and compares fixed-size keys instead of the
// variable-length decimal string, the same fast-hash-as-key pattern used
// elsewhere in the ecosystem for content-addressed lookups.
func pogrebKey(rounded string) []byte {
    var buf [8]byte
    binary.BigEndian.PutUint64(buf[:], xxhash.Sum64String(rounded))
    return buf[:]
}

// RoundedCache memoizes whole ReverseGeocode results by rounded coordinate.
// It is cleared entirely when it exceeds roundedCacheLimit entries rather
// than evicted incrementally, matching spec.md section 4.2.1's description
// of this as a cheap secondary cache rather than a second LRU.
type RoundedCache struct {
    mu      sync.Mutex
    entries map[string]LocationData
}

// NewRoundedCache constructs an empty secondary cache.
func NewRoundedCache() *RoundedCache {
    return &RoundedCache{entries: make(map[string]LocationData, roundedCacheLimit)}
}

// Get returns a cached result for (lat, lon), if present.
func (r *RoundedCache) Get(lat, lon float64) (LocationData, bool) {
    r.mu.Lock()
    defer r.mu.Unlock()

    loc, found := r.entries[roundedKey(lat, lon)]
    return loc, found
}

// Put stores a result for (lat, lon), clearing the whole cache first if it
// has grown past roundedCacheLimit.
func (r *RoundedCache) Put(lat, lon float64, loc LocationData) {
    r.mu.Lock()
    defer r.mu.Unlock()

    if len(r.entries) >= roundedCacheLimit {
        r.entries = make(map[string]LocationData, roundedCacheLimit)
    }

    r.entries[roundedKey(lat, lon)] = loc
}

// PersistentCache is a cross-run geocode result cache backed by pogreb,
// grounded on the teacher's pogreb-backed CityIndex store (GetCityIndex in
// the now-removed utility.go). Unlike CellCache and RoundedCache, entries
// here survive process restarts, so repeated runs over the same photo
// library never re-walk the gazetteer for coordinates already resolved.
type PersistentCache struct {
    db *pogreb.DB
}

// OpenPersistentCache opens (creating if absent) the pogreb database at
// path, conventionally <gazetteer-dir>/.geocache.pogreb.
func OpenPersistentCache(path string) (pc *PersistentCache, err error) {
    defer func() {
        if state := recover(); state != nil {
            err = log.Wrap(state.(error))
        }
    }()

    db, err := pogreb.Open(path, nil)
    log.PanicIf(err)

    return &PersistentCache{db: db}, nil
}

// Close flushes and closes the underlying pogreb database.
func (pc *PersistentCache) Close() error {
    return pc.db.Close()
}

// Get returns a previously persisted LocationData for (lat, lon), rounded
// to the same 4-decimal-place key used by RoundedCache.
func (pc *PersistentCache) Get(lat, lon float64) (LocationData, bool, error) {
    key := pogrebKey(roundedKey(lat, lon))

    raw, err := pc.db.Get(key)
    if err != nil {
        return LocationData{}, false, err
    }
    if raw == nil {
        return LocationData{}, false, nil
    }

    var loc LocationData
    if err := json.Unmarshal(raw, &loc); err != nil {
        return LocationData{}, false, err
    }

    return loc, true, nil
}

// Put persists a LocationData for (lat, lon).
func (pc *PersistentCache) Put(lat, lon float64, loc LocationData) error {
    raw, err := json.Marshal(loc)
    if err != nil {
        return err
    }

    return pc.db.Put(pogrebKey(roundedKey(lat, lon)), raw)
}
