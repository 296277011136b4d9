package geocode

import (
    "bufio"
    "compress/gzip"
    "encoding/binary"
    "fmt"
    "io"
    "os"
    "sort"
    "strconv"
    "strings"
    "time"

    "github.com/dsoprea/go-logging"

    "github.com/dsoprea/go-photocopy/geohash"
)

// gsixMagic and gsixVersion identify the on-disk gazetteer index format
// (spec.md section 4.2.1).
var gsixMagic = [4]byte{'G', 'S', 'I', 'X'}

const gsixVersion = 2

// GazetteerIndex maps precision-4 geohash cells to the byte offsets, within
// the raw gazetteer TSV file, at which matching lines begin. It does not
// hold gazetteer records themselves -- those are read on demand by Engine.
type GazetteerIndex struct {
    Precision int
    cells     map[string][]int64
    total     uint64
}

// BuildGazetteerIndex streams the GeoNames-format TSV file at dataPath and
// produces an in-memory GazetteerIndex. Lines whose feature_class is not "P"
// or "A" are skipped; lines with fewer than 15 columns, or unparseable
// numeric fields, are skipped with a debug log rather than failing the
// build (spec.md section 6.3).
func BuildGazetteerIndex(dataPath string) (idx *GazetteerIndex, err error) {
    defer func() {
        if state := recover(); state != nil {
            err = log.Wrap(state.(error))
        }
    }()

    f, err := os.Open(dataPath)
    log.PanicIf(err)
    defer f.Close()

    idx = &GazetteerIndex{
        Precision: cellPrecision,
        cells:     make(map[string][]int64),
    }

    reader := bufio.NewReaderSize(f, 1<<20)

    var offset int64
    for {
        lineStart := offset

        line, readErr := reader.ReadString('\n')
        offset += int64(len(line))

        trimmed := strings.TrimRight(line, "\r\n")
        if trimmed != "" {
            place, parseErr := parseGazetteerLine(trimmed)
            if parseErr == nil {
                cell, cellErr := geohash.Encode(place.Latitude, place.Longitude, cellPrecision)
                if cellErr == nil {
                    idx.cells[cell] = append(idx.cells[cell], lineStart)
                    idx.total++
                }
            } else {
                geocodeLogger.Debugf(nil, "skipping unparseable gazetteer line at offset %d: %s", lineStart, parseErr)
            }
        }

        if readErr == io.EOF {
            break
        } else if readErr != nil {
            log.Panic(readErr)
        }
    }

    for cell := range idx.cells {
        sort.Slice(idx.cells[cell], func(i, j int) bool {
            return idx.cells[cell][i] < idx.cells[cell][j]
        })
    }

    return idx, nil
}

// parseGazetteerLine parses one GeoNames TSV line, extracting only the
// fields the engine needs (spec.md section 4.2.1: name[1], latitude[4],
// longitude[5], feature_class[6], feature_code[7], country_code[8],
// admin1_code[10], admin2_code[11], population[14]).
func parseGazetteerLine(line string) (Place, error) {
    fields := strings.Split(line, "\t")
    if len(fields) < 15 {
        return Place{}, fmt.Errorf("fewer than 15 columns (%d)", len(fields))
    }

    featureClass := fields[6]
    if featureClass != "P" && featureClass != "A" {
        return Place{}, fmt.Errorf("feature_class %q not indexed", featureClass)
    }

    lat, err := strconv.ParseFloat(fields[4], 64)
    if err != nil {
        return Place{}, fmt.Errorf("bad latitude: %w", err)
    }

    lon, err := strconv.ParseFloat(fields[5], 64)
    if err != nil {
        return Place{}, fmt.Errorf("bad longitude: %w", err)
    }

    var population int64
    if fields[14] != "" {
        population, err = strconv.ParseInt(fields[14], 10, 64)
        if err != nil {
            population = 0
        }
    }

    return Place{
        Name:         fields[1],
        Latitude:     lat,
        Longitude:    lon,
        FeatureClass: featureClass,
        FeatureCode:  fields[7],
        CountryCode:  fields[8],
        Admin1:       fields[10],
        Admin2:       fields[11],
        Population:   population,
    }, nil
}

// WriteGazetteerIndex serializes idx to path, gzip-compressed, in the
// GSIX binary format (spec.md section 4.2.1):
//
//   header: magic "GSIX", version u8, precision u8, reserved u8, cell
//           count u32, total entry count u64
//   per cell: length-prefixed ASCII geohash, offset count i32, delta-encoded
//             offsets as i64
func WriteGazetteerIndex(idx *GazetteerIndex, path string) (err error) {
    defer func() {
        if state := recover(); state != nil {
            err = log.Wrap(state.(error))
        }
    }()

    f, err := os.Create(path)
    log.PanicIf(err)
    defer f.Close()

    gz := gzip.NewWriter(f)
    defer gz.Close()

    w := bufio.NewWriter(gz)
    defer w.Flush()

    _, err = w.Write(gsixMagic[:])
    log.PanicIf(err)

    err = binary.Write(w, binary.BigEndian, uint8(gsixVersion))
    log.PanicIf(err)
    err = binary.Write(w, binary.BigEndian, uint8(idx.Precision))
    log.PanicIf(err)
    err = binary.Write(w, binary.BigEndian, uint8(0)) // reserved
    log.PanicIf(err)

    err = binary.Write(w, binary.BigEndian, uint32(len(idx.cells)))
    log.PanicIf(err)
    err = binary.Write(w, binary.BigEndian, idx.total)
    log.PanicIf(err)

    cellNames := make([]string, 0, len(idx.cells))
    for cell := range idx.cells {
        cellNames = append(cellNames, cell)
    }
    sort.Strings(cellNames)

    for _, cell := range cellNames {
        offsets := idx.cells[cell]

        err = binary.Write(w, binary.BigEndian, uint8(len(cell)))
        log.PanicIf(err)
        _, err = w.WriteString(cell)
        log.PanicIf(err)

        err = binary.Write(w, binary.BigEndian, int32(len(offsets)))
        log.PanicIf(err)

        var prev int64
        for _, off := range offsets {
            delta := off - prev
            err = binary.Write(w, binary.BigEndian, delta)
            log.PanicIf(err)
            prev = off
        }
    }

    return nil
}

// ReadGazetteerIndex loads a GSIX file written by WriteGazetteerIndex.
func ReadGazetteerIndex(path string) (idx *GazetteerIndex, err error) {
    defer func() {
        if state := recover(); state != nil {
            err = log.Wrap(state.(error))
        }
    }()

    f, err := os.Open(path)
    log.PanicIf(err)
    defer f.Close()

    gz, err := gzip.NewReader(f)
    log.PanicIf(err)
    defer gz.Close()

    r := bufio.NewReader(gz)

    var magic [4]byte
    _, err = io.ReadFull(r, magic[:])
    log.PanicIf(err)
    if magic != gsixMagic {
        log.Panicf("gazetteer index: bad magic %q", magic)
    }

    var version, precision, reserved uint8
    log.PanicIf(binary.Read(r, binary.BigEndian, &version))
    if version != gsixVersion {
        log.Panicf("gazetteer index: unsupported version %d (reader supports %d)", version, gsixVersion)
    }
    log.PanicIf(binary.Read(r, binary.BigEndian, &precision))
    log.PanicIf(binary.Read(r, binary.BigEndian, &reserved))

    var cellCount uint32
    log.PanicIf(binary.Read(r, binary.BigEndian, &cellCount))
    var totalCount uint64
    log.PanicIf(binary.Read(r, binary.BigEndian, &totalCount))

    idx = &GazetteerIndex{
        Precision: int(precision),
        cells:     make(map[string][]int64, cellCount),
        total:     totalCount,
    }

    for i := uint32(0); i < cellCount; i++ {
        var nameLen uint8
        log.PanicIf(binary.Read(r, binary.BigEndian, &nameLen))

        nameBuf := make([]byte, nameLen)
        _, err = io.ReadFull(r, nameBuf)
        log.PanicIf(err)

        var offsetCount int32
        log.PanicIf(binary.Read(r, binary.BigEndian, &offsetCount))

        offsets := make([]int64, offsetCount)
        var prev int64
        for j := int32(0); j < offsetCount; j++ {
            var delta int64
            log.PanicIf(binary.Read(r, binary.BigEndian, &delta))
            prev += delta
            offsets[j] = prev
        }

        idx.cells[string(nameBuf)] = offsets
    }

    return idx, nil
}

// Offsets returns the byte offsets recorded for the given precision-4 cell.
func (idx *GazetteerIndex) Offsets(cell string) []int64 {
    return idx.cells[cell]
}

// TotalEntries returns the number of indexed gazetteer lines.
func (idx *GazetteerIndex) TotalEntries() uint64 {
    return idx.total
}

// CellCount returns the number of distinct geohash cells in the index.
func (idx *GazetteerIndex) CellCount() int {
    return len(idx.cells)
}

// NeedsRebuild reports whether the index file at indexPath is missing or
// older than the data file at dataPath, per spec.md section 4.2.1 ("The
// index is rebuilt whenever its modification time is older than the data
// file's").
func NeedsRebuild(dataPath, indexPath string) (bool, error) {
    dataInfo, err := os.Stat(dataPath)
    if err != nil {
        return false, err
    }

    indexInfo, err := os.Stat(indexPath)
    if err != nil {
        if os.IsNotExist(err) {
            return true, nil
        }
        return false, err
    }

    return indexInfo.ModTime().Before(dataInfo.ModTime()), nil
}

// EnsureGazetteerIndex opens the index at indexPath, rebuilding it from
// dataPath first if it is missing or stale. progress, if non-nil, is called
// once, after a rebuild's scan of dataPath completes; it is not called when
// an up-to-date index is read (grounded on the teacher's pb.v1-driven
// GetCityIndex/GetImageTimeIndex progress callbacks in the now-removed
// utility.go).
func EnsureGazetteerIndex(dataPath, indexPath string, progress func()) (*GazetteerIndex, error) {
    stale, err := NeedsRebuild(dataPath, indexPath)
    if err != nil {
        return nil, err
    }

    if !stale {
        return ReadGazetteerIndex(indexPath)
    }

    started := time.Now()
    geocodeLogger.Infof(nil, "rebuilding gazetteer index %s from %s", indexPath, dataPath)

    idx, err := BuildGazetteerIndex(dataPath)
    if err != nil {
        return nil, err
    }
    if progress != nil {
        progress()
    }

    if err := WriteGazetteerIndex(idx, indexPath); err != nil {
        return nil, err
    }

    geocodeLogger.Infof(nil, "gazetteer index rebuilt in %s: %d cells, %d entries", time.Since(started), idx.CellCount(), idx.TotalEntries())

    return idx, nil
}
