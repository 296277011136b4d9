package plan

import (
    "fmt"
    "path/filepath"
    "strings"

    "github.com/dsoprea/go-photocopy/enrich"
)

// missingValuePlaceholder is substituted for a plain token that resolves
// to empty (no fallback literal given), so the expanded path never
// contains an empty path segment (spec.md section 4.4.1 example 2: a
// missing {country} becomes "_", not "").
const missingValuePlaceholder = "_"

// expandToken resolves tok against ef's metadata/source fields.
func expandToken(tok token, ef *enrich.EnrichedFile) string {
    switch tok.kind {
    case tokenFallback:
        if v := tokenValue(tok.name, ef); v != "" {
            return v
        }
        return tok.fallback

    case tokenConditional:
        if evalPredicate(tok.predicate, ef) {
            if v := tokenValue(tok.name, ef); v != "" {
                return v
            }
            return missingValuePlaceholder
        }
        return tok.fallback

    default: // tokenPlain
        if v := tokenValue(tok.name, ef); v != "" {
            return v
        }
        return missingValuePlaceholder
    }
}

// tokenValue resolves a plain token name to its raw (unsanitized,
// uncased) string value, or "" if that field is unset for ef.
func tokenValue(name string, ef *enrich.EnrichedFile) string {
    when := ef.Metadata.Datetime.When

    switch name {
    case "year":
        if ef.Metadata.Datetime.IsZero() {
            return ""
        }
        return fmt.Sprintf("%04d", when.Year())
    case "month":
        if ef.Metadata.Datetime.IsZero() {
            return ""
        }
        return fmt.Sprintf("%02d", int(when.Month()))
    case "day":
        if ef.Metadata.Datetime.IsZero() {
            return ""
        }
        return fmt.Sprintf("%02d", when.Day())
    case "hour":
        if ef.Metadata.Datetime.IsZero() {
            return ""
        }
        return fmt.Sprintf("%02d", when.Hour())
    case "minute":
        if ef.Metadata.Datetime.IsZero() {
            return ""
        }
        return fmt.Sprintf("%02d", when.Minute())
    case "name":
        return ef.Source.Stem()
    case "ext":
        return strings.ToLower(filepath.Ext(ef.Source.Path))
    case "directory":
        return ef.Source.RelDir()
    case "camera_make":
        return ef.Metadata.CameraMake
    case "camera_model":
        return ef.Metadata.CameraModel
    case "city":
        if ef.Metadata.Location == nil {
            return ""
        }
        return ef.Metadata.Location.City
    case "district":
        if ef.Metadata.Location == nil {
            return ""
        }
        return ef.Metadata.Location.District
    case "county":
        if ef.Metadata.Location == nil {
            return ""
        }
        return ef.Metadata.Location.County
    case "state":
        if ef.Metadata.Location == nil {
            return ""
        }
        return ef.Metadata.Location.State
    case "country":
        if ef.Metadata.Location == nil {
            return ""
        }
        return ef.Metadata.Location.Country
    default:
        return ""
    }
}

func evalPredicate(name string, ef *enrich.EnrichedFile) bool {
    switch name {
    case "hasGps":
        return ef.Metadata.Coordinates != nil
    case "hasLocation":
        return ef.Metadata.Location != nil && !ef.Metadata.Location.Empty()
    case "hasCity":
        return ef.Metadata.Location != nil && ef.Metadata.Location.City != ""
    case "hasDate":
        return !ef.Metadata.Datetime.IsZero()
    default:
        return false
    }
}
