// Package geohash implements the base-32 geohash primitives, Haversine
// distance, and quantized-polygon point-in-polygon testing that the
// reverse-geocoding engine in package geocode is built on.
package geohash

import (
    "errors"
    "strings"
)

// base32Alphabet is the geohash alphabet: digits and lowercase letters minus
// "a", "i", "l", "o" (easily confused with "0", "1").
const base32Alphabet = "0123456789bcdefghjkmnpqrstuvwxyz"

var base32Index [256]int8

func init() {
    for i := range base32Index {
        base32Index[i] = -1
    }
    for i := 0; i < len(base32Alphabet); i++ {
        base32Index[base32Alphabet[i]] = int8(i)
    }
}

// ErrInvalidPrecision is returned when a requested geohash length falls
// outside [1,12].
var ErrInvalidPrecision = errors.New("geohash: precision must be within [1,12]")

// ErrInvalidGeohash is returned when decoding encounters a character outside
// the base-32 alphabet.
var ErrInvalidGeohash = errors.New("geohash: invalid character")

// BoundingBox is the rectangle decoded from a geohash cell.
type BoundingBox struct {
    MinLat, MaxLat float64
    MinLon, MaxLon float64
}

// Contains reports whether (lat, lon) falls within the box, inclusive of
// its edges.
func (bb BoundingBox) Contains(lat, lon float64) bool {
    return lat >= bb.MinLat && lat <= bb.MaxLat && lon >= bb.MinLon && lon <= bb.MaxLon
}

// Center returns the midpoint of the box.
func (bb BoundingBox) Center() (lat, lon float64) {
    return (bb.MinLat + bb.MaxLat) / 2, (bb.MinLon + bb.MaxLon) / 2
}

// Encode produces a base-32 geohash string of the given precision (number of
// characters, 1-12) for (lat, lon). It alternately bisects longitude then
// latitude, consuming 5 bits per output character.
func Encode(lat, lon float64, precision int) (string, error) {
    if precision < 1 || precision > 12 {
        return "", ErrInvalidPrecision
    }

    latRange := [2]float64{-90, 90}
    lonRange := [2]float64{-180, 180}

    var buf strings.Builder
    buf.Grow(precision)

    bit := 0
    bitsConsumed := 0
    evenBit := true // longitude goes first
    ch := 0

    for buf.Len() < precision {
        if evenBit {
            mid := (lonRange[0] + lonRange[1]) / 2
            if lon >= mid {
                ch |= 1 << uint(4-bitsConsumed)
                lonRange[0] = mid
            } else {
                lonRange[1] = mid
            }
        } else {
            mid := (latRange[0] + latRange[1]) / 2
            if lat >= mid {
                ch |= 1 << uint(4-bitsConsumed)
                latRange[0] = mid
            } else {
                latRange[1] = mid
            }
        }

        evenBit = !evenBit
        bitsConsumed++
        bit++

        if bitsConsumed == 5 {
            buf.WriteByte(base32Alphabet[ch])
            bitsConsumed = 0
            ch = 0
        }
    }

    return buf.String(), nil
}

// DecodeBounds returns the rectangle that a geohash string addresses.
func DecodeBounds(s string) (BoundingBox, error) {
    if s == "" {
        return BoundingBox{}, ErrInvalidGeohash
    }

    latRange := [2]float64{-90, 90}
    lonRange := [2]float64{-180, 180}

    evenBit := true
    for i := 0; i < len(s); i++ {
        idx := base32Index[s[i]]
        if idx < 0 {
            return BoundingBox{}, ErrInvalidGeohash
        }

        for bitN := 4; bitN >= 0; bitN-- {
            bitVal := (int(idx) >> uint(bitN)) & 1

            if evenBit {
                mid := (lonRange[0] + lonRange[1]) / 2
                if bitVal == 1 {
                    lonRange[0] = mid
                } else {
                    lonRange[1] = mid
                }
            } else {
                mid := (latRange[0] + latRange[1]) / 2
                if bitVal == 1 {
                    latRange[0] = mid
                } else {
                    latRange[1] = mid
                }
            }

            evenBit = !evenBit
        }
    }

    return BoundingBox{
        MinLat: latRange[0],
        MaxLat: latRange[1],
        MinLon: lonRange[0],
        MaxLon: lonRange[1],
    }, nil
}

// Center decodes s and returns the midpoint of its cell.
func Center(s string) (lat, lon float64, err error) {
    bb, err := DecodeBounds(s)
    if err != nil {
        return 0, 0, err
    }

    lat, lon = bb.Center()
    return lat, lon, nil
}

// direction indices into the 8-neighbor compass, matching the order N, NE,
// E, SE, S, SW, W, NW used by Neighbors.
const (
    DirN = iota
    DirNE
    DirE
    DirSE
    DirS
    DirSW
    DirW
    DirNW
)

// Neighbors returns the up-to-eight cells adjacent to s at the same
// precision: N, NE, E, SE, S, SW, W, NW. Longitude wraps across +/-180.
// Neighbors that would cross a pole are omitted (the cell doesn't exist).
func Neighbors(s string) ([]string, error) {
    bb, err := DecodeBounds(s)
    if err != nil {
        return nil, err
    }

    precision := len(s)
    latStep := bb.MaxLat - bb.MinLat
    lonStep := bb.MaxLon - bb.MinLon

    lat, lon := bb.Center()

    offsets := [8][2]float64{
        {latStep, 0},          // N
        {latStep, lonStep},    // NE
        {0, lonStep},          // E
        {-latStep, lonStep},   // SE
        {-latStep, 0},         // S
        {-latStep, -lonStep},  // SW
        {0, -lonStep},         // W
        {latStep, -lonStep},   // NW
    }

    out := make([]string, 0, 8)
    for _, off := range offsets {
        nLat := lat + off[0]
        nLon := lon + off[1]

        if nLat > 90 || nLat < -90 {
            // Crossing a pole: this neighbor doesn't exist.
            continue
        }

        nLon = wrapLongitude(nLon)

        cell, err := Encode(nLat, nLon, precision)
        if err != nil {
            return nil, err
        }

        out = append(out, cell)
    }

    return out, nil
}

// wrapLongitude normalizes lon into [-180, 180].
func wrapLongitude(lon float64) float64 {
    for lon > 180 {
        lon -= 360
    }
    for lon < -180 {
        lon += 360
    }
    return lon
}

// ClampLatitude clamps lat into [-90, 90].
func ClampLatitude(lat float64) float64 {
    if lat > 90 {
        return 90
    }
    if lat < -90 {
        return -90
    }
    return lat
}

// NormalizeLongitude wraps lon into [-180, 180] before point-in-polygon
// testing, per spec.
func NormalizeLongitude(lon float64) float64 {
    return wrapLongitude(lon)
}
