package enrich

import (
    "fmt"
    "io"
    "os"
    "strings"

    "github.com/evanoberholster/imagemeta"
    "github.com/evanoberholster/imagemeta/exif2"
)

// readExif opens path and decodes its EXIF block, recovering from decoder
// panics the way decodeExifSafe does in the teacher's media package: a
// malformed file yields an error, never a crashed process.
func readExif(path string) (ex exif2.Exif, err error) {
    file, err := os.Open(path)
    if err != nil {
        return exif2.Exif{}, fmt.Errorf("open %s: %w", path, err)
    }
    defer file.Close()

    return decodeExifSafe(file, path)
}

func decodeExifSafe(r io.ReadSeeker, path string) (ex exif2.Exif, err error) {
    defer func() {
        if rec := recover(); rec != nil {
            err = fmt.Errorf("panic while decoding exif from %s: %v", path, rec)
        }
    }()

    ex, err = imagemeta.Decode(r)
    return ex, err
}

// exifDateTime resolves a capture timestamp from an already-decoded EXIF
// block, preferring DateTimeOriginal, then CreateDate, then ModifyDate.
func exifDateTime(ex exif2.Exif) FileDateTime {
    if ts := ex.DateTimeOriginal(); !ts.IsZero() {
        return FileDateTime{When: ts, Source: DateTimeExifOriginal}
    }
    if ts := ex.CreateDate(); !ts.IsZero() {
        return FileDateTime{When: ts, Source: DateTimeExifDigitized}
    }
    if ts := ex.ModifyDate(); !ts.IsZero() {
        return FileDateTime{When: ts, Source: DateTimeExifDigitized}
    }
    return FileDateTime{}
}

// exifCoordinates resolves GPS coordinates from an already-decoded EXIF
// block. ok is false when the block carries no GPS data at all.
func exifCoordinates(ex exif2.Exif) (Coordinates, bool) {
    lat := ex.GPS.Latitude()
    lon := ex.GPS.Longitude()
    if lat == 0 && lon == 0 {
        return Coordinates{}, false
    }
    return Coordinates{Latitude: lat, Longitude: lon}, true
}

// extractEmbeddedMetadata reads path's EXIF block and returns whatever
// datetime, coordinates, and camera fields it carries. A decode error is
// returned rather than swallowed; callers translate it into an
// UnknownReason.
func extractEmbeddedMetadata(path string) (FileDateTime, *Coordinates, string, string, error) {
    ex, err := readExif(path)
    if err != nil {
        return FileDateTime{}, nil, "", "", err
    }

    dt := exifDateTime(ex)

    var coordPtr *Coordinates
    if coord, ok := exifCoordinates(ex); ok {
        coordPtr = &coord
    }

    return dt, coordPtr, strings.TrimSpace(ex.Make), strings.TrimSpace(ex.Model), nil
}
