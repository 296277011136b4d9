package enrich

import (
    "encoding/json"
    "encoding/xml"
    "fmt"
    "os"
    "path/filepath"
    "strconv"
    "strings"
    "time"
)

// sidecarData is whatever a *.xmp/*.json/*.aae sidecar was able to supply;
// zero-value fields mean "not present in this sidecar".
type sidecarData struct {
    When        time.Time
    Coordinates *Coordinates
    CameraMake  string
    CameraModel string
}

// findSidecars returns the sibling sidecar paths for source (same directory,
// same stem, the three recognized sidecar extensions), in the fixed
// precedence order xmp, json, aae used by mergeSidecar below.
func findSidecars(source SourceFile) []string {
    dir := filepath.Dir(source.Path)
    stem := source.Stem()

    var found []string
    for _, ext := range []string{".xmp", ".json", ".aae"} {
        candidate := filepath.Join(dir, stem+ext)
        if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
            found = append(found, candidate)
        }
        // Double-extension sidecars, e.g. photo.jpg.json (Google Takeout).
        candidate = source.Path + ext
        if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
            found = append(found, candidate)
        }
    }
    return found
}

// readSidecar dispatches to the format-specific reader for path based on
// its extension.
func readSidecar(path string) (sidecarData, error) {
    switch strings.ToLower(filepath.Ext(path)) {
    case ".xmp":
        coord, ts, err := readXMPSidecar(path)
        if err != nil {
            return sidecarData{}, err
        }
        return sidecarData{When: ts, Coordinates: coord}, nil
    case ".json":
        return readJSONSidecar(path)
    case ".aae":
        return readAAESidecar(path)
    default:
        return sidecarData{}, fmt.Errorf("unrecognized sidecar extension %s", path)
    }
}

// takeoutJSON mirrors the handful of fields a Google-Photos-Takeout-style
// JSON sidecar carries that this pipeline cares about.
type takeoutJSON struct {
    PhotoTakenTime struct {
        Timestamp string `json:"timestamp"`
    } `json:"photoTakenTime"`
    GeoData struct {
        Latitude  float64 `json:"latitude"`
        Longitude float64 `json:"longitude"`
    } `json:"geoData"`
    GeoDataExif struct {
        Latitude  float64 `json:"latitude"`
        Longitude float64 `json:"longitude"`
    } `json:"geoDataExif"`
    CameraMake  string `json:"cameraMake"`
    CameraModel string `json:"cameraModel"`
}

func readJSONSidecar(path string) (sidecarData, error) {
    raw, err := os.ReadFile(path)
    if err != nil {
        return sidecarData{}, fmt.Errorf("read %s: %w", path, err)
    }

    var doc takeoutJSON
    if err := json.Unmarshal(raw, &doc); err != nil {
        return sidecarData{}, fmt.Errorf("parse %s: %w", path, err)
    }

    var data sidecarData

    if doc.PhotoTakenTime.Timestamp != "" {
        if secs, err := strconv.ParseInt(doc.PhotoTakenTime.Timestamp, 10, 64); err == nil {
            data.When = time.Unix(secs, 0).UTC()
        }
    }

    lat, lon := doc.GeoData.Latitude, doc.GeoData.Longitude
    if lat == 0 && lon == 0 {
        lat, lon = doc.GeoDataExif.Latitude, doc.GeoDataExif.Longitude
    }
    if lat != 0 || lon != 0 {
        data.Coordinates = &Coordinates{Latitude: lat, Longitude: lon}
    }

    data.CameraMake = doc.CameraMake
    data.CameraModel = doc.CameraModel

    return data, nil
}

// aaePlist is the minimal subset of an Apple .aae adjustment sidecar (an
// XML plist) this pipeline reads: its creation-date key, when present.
// AAE files describe nondestructive edits and typically carry no GPS data
// of their own, so Coordinates is always left nil here.
type aaePlist struct {
    XMLName xml.Name   `xml:"plist"`
    Dict    aaeDictXML `xml:"dict"`
}

type aaeDictXML struct {
    Keys    []string `xml:"key"`
    Strings []string `xml:"string"`
}

func readAAESidecar(path string) (sidecarData, error) {
    raw, err := os.ReadFile(path)
    if err != nil {
        return sidecarData{}, fmt.Errorf("read %s: %w", path, err)
    }

    var doc aaePlist
    if err := xml.Unmarshal(raw, &doc); err != nil {
        return sidecarData{}, fmt.Errorf("parse %s: %w", path, err)
    }

    var data sidecarData
    for i, key := range doc.Dict.Keys {
        if key != "adjustmentTimestamp" || i >= len(doc.Dict.Strings) {
            continue
        }
        if ts, err := time.Parse(time.RFC3339, doc.Dict.Strings[i]); err == nil {
            data.When = ts
        }
    }
    return data, nil
}

// SidecarMergePolicy selects how sidecar-derived fields combine with
// already-extracted embedded metadata (spec.md section 4.3 step 3).
type SidecarMergePolicy int

const (
    PolicyEmbeddedFirst SidecarMergePolicy = iota
    PolicySidecarFirst
    PolicyMergePreferEmbedded
)

// mergeSidecar folds sidecar data produced by readSidecar into meta
// according to policy. merge_prefer_embedded never downgrades an
// already-resolved date source, so it only fills meta.Datetime when it
// was still zero going in.
func mergeSidecar(meta *FileMetadata, data sidecarData, policy SidecarMergePolicy) {
    switch policy {
    case PolicySidecarFirst:
        if !data.When.IsZero() {
            meta.Datetime = FileDateTime{When: data.When, Source: DateTimeSidecar}
        }
        if data.Coordinates != nil {
            meta.Coordinates = data.Coordinates
        }
        if data.CameraMake != "" {
            meta.CameraMake = data.CameraMake
        }
        if data.CameraModel != "" {
            meta.CameraModel = data.CameraModel
        }

    case PolicyMergePreferEmbedded:
        if meta.Coordinates == nil && data.Coordinates != nil {
            meta.Coordinates = data.Coordinates
        }
        if meta.CameraMake == "" {
            meta.CameraMake = data.CameraMake
        }
        if meta.CameraModel == "" {
            meta.CameraModel = data.CameraModel
        }
        if meta.Datetime.IsZero() && !data.When.IsZero() {
            meta.Datetime = FileDateTime{When: data.When, Source: DateTimeSidecar}
        }
        // Never downgrade an already-embedded date source, even if the
        // sidecar also carries a timestamp.

    default: // PolicyEmbeddedFirst

        if meta.Coordinates == nil && data.Coordinates != nil {
            meta.Coordinates = data.Coordinates
        }
        if meta.CameraMake == "" {
            meta.CameraMake = data.CameraMake
        }
        if meta.CameraModel == "" {
            meta.CameraModel = data.CameraModel
        }
        if meta.Datetime.IsZero() && !data.When.IsZero() {
            meta.Datetime = FileDateTime{When: data.When, Source: DateTimeSidecar}
        }
    }
}
