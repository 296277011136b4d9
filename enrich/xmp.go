package enrich

import (
    "encoding/xml"
    "fmt"
    "os"
    "strconv"
    "strings"
    "time"
)

// xmpPacket, rdfContainer, and rdfDescription mirror the wrapper structure
// the teacher's writer emits (x:xmpmeta / rdf:RDF / rdf:Description),
// read back here in reverse with an attribute catch-all since the
// namespace prefix on each exif:GPS* attribute is not known in advance.
type xmpPacket struct {
    XMLName xml.Name      `xml:"xmpmeta"`
    RDF     rdfContainer  `xml:"RDF"`
}

type rdfContainer struct {
    Description rdfDescription `xml:"Description"`
}

type rdfDescription struct {
    Attrs []xml.Attr `xml:",any,attr"`
}

func (d rdfDescription) attr(localName string) (string, bool) {
    for _, a := range d.Attrs {
        if a.Name.Local == localName {
            return a.Value, true
        }
    }
    return "", false
}

// readXMPSidecar parses an XMP sidecar file written in the
// exif:GPSLatitude="DDD,MM.mmmmmmmmmm[N|S]" degrees-plus-decimal-minutes
// format and returns whatever GPS coordinates and timestamp it carries.
func readXMPSidecar(path string) (*Coordinates, time.Time, error) {
    raw, err := os.ReadFile(path)
    if err != nil {
        return nil, time.Time{}, fmt.Errorf("read %s: %w", path, err)
    }

    // Strip the leading/trailing xpacket processing instructions; they are
    // not well-formed XML content for encoding/xml's purposes.
    text := string(raw)
    if i := strings.Index(text, "<x:xmpmeta"); i >= 0 {
        text = text[i:]
    }
    if i := strings.LastIndex(text, "</x:xmpmeta>"); i >= 0 {
        text = text[:i+len("</x:xmpmeta>")]
    }
    text = strings.Replace(text, "x:xmpmeta", "xmpmeta", 2)

    var packet xmpPacket
    if err := xml.Unmarshal([]byte(text), &packet); err != nil {
        return nil, time.Time{}, fmt.Errorf("parse xmp %s: %w", path, err)
    }

    desc := packet.RDF.Description

    latRaw, hasLat := desc.attr("GPSLatitude")
    lonRaw, hasLon := desc.attr("GPSLongitude")
    if !hasLat || !hasLon {
        return nil, time.Time{}, nil
    }

    lat, err := parseGPSCoordinate(latRaw, "N")
    if err != nil {
        return nil, time.Time{}, fmt.Errorf("parse GPSLatitude %q: %w", latRaw, err)
    }
    lon, err := parseGPSCoordinate(lonRaw, "E")
    if err != nil {
        return nil, time.Time{}, fmt.Errorf("parse GPSLongitude %q: %w", lonRaw, err)
    }

    coord := &Coordinates{Latitude: lat, Longitude: lon}

    var ts time.Time
    dateRaw, hasDate := desc.attr("GPSDateStamp")
    timeRaw, hasTime := desc.attr("GPSTimeStamp")
    if hasDate && hasTime {
        if parsed, err := time.Parse("2006:01:02 15:04:05", dateRaw+" "+timeRaw); err == nil {
            ts = parsed
        }
    }

    return coord, ts, nil
}

// parseGPSCoordinate parses the "DDD,MM.mmmmmmmmmm[N|S|E|W]" format emitted
// by formatGPSCoordinate in the teacher's writer: degrees, a comma, decimal
// minutes, and a single trailing hemisphere letter.
func parseGPSCoordinate(raw string, positiveRef string) (float64, error) {
    if len(raw) == 0 {
        return 0, fmt.Errorf("empty value")
    }

    ref := raw[len(raw)-1:]
    body := raw[:len(raw)-1]

    parts := strings.SplitN(body, ",", 2)
    if len(parts) != 2 {
        return 0, fmt.Errorf("expected \"deg,min<ref>\", got %q", raw)
    }

    deg, err := strconv.ParseFloat(parts[0], 64)
    if err != nil {
        return 0, fmt.Errorf("degrees: %w", err)
    }
    minutes, err := strconv.ParseFloat(parts[1], 64)
    if err != nil {
        return 0, fmt.Errorf("minutes: %w", err)
    }

    value := deg + minutes/60
    if !strings.EqualFold(ref, positiveRef) {
        value = -value
    }
    return value, nil
}
