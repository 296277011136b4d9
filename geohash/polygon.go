package geohash

// QuantizedPoint is a (lat, lon) pair quantized to degrees x 100, recoverable
// to +/-0.01 degrees, matching the on-disk ring encoding used by the country
// boundary file (spec.md section 4.1/4.2.2).
type QuantizedPoint struct {
    Lat100 int16
    Lon100 int16
}

// Quantize converts floating-point degrees into the on-disk representation.
func Quantize(lat, lon float64) QuantizedPoint {
    return QuantizedPoint{
        Lat100: int16(lat * 100),
        Lon100: int16(lon * 100),
    }
}

// Dequantize recovers floating-point degrees from the on-disk representation.
func (p QuantizedPoint) Dequantize() (lat, lon float64) {
    return float64(p.Lat100) / 100, float64(p.Lon100) / 100
}

// Ring is a closed sequence of quantized vertices forming one ring of a
// polygon (exterior or hole). The ring is implicitly closed: the last point
// connects back to the first.
type Ring []QuantizedPoint

// Polygon is an exterior ring minus zero or more hole rings.
type Polygon struct {
    Exterior Ring
    Holes    []Ring
}

// Contains reports whether (lat, lon) is inside the polygon: inside the
// exterior ring and outside every hole.
func (poly Polygon) Contains(lat, lon float64) bool {
    lat = ClampLatitude(lat)
    lon = NormalizeLongitude(lon)

    if !poly.Exterior.containsPoint(lat, lon) {
        return false
    }

    for _, hole := range poly.Holes {
        if hole.containsPoint(lat, lon) {
            return false
        }
    }

    return true
}

// containsPoint implements the even-odd ray-cast rule over the quantized
// ring. The test point is quantized the same way the ring was so that
// boundary behavior is consistent with the stored precision.
func (r Ring) containsPoint(lat, lon float64) bool {
    n := len(r)
    if n < 3 {
        return false
    }

    qp := Quantize(lat, lon)
    x, y := float64(qp.Lon100), float64(qp.Lat100)

    inside := false
    j := n - 1
    for i := 0; i < n; i++ {
        xi, yi := float64(r[i].Lon100), float64(r[i].Lat100)
        xj, yj := float64(r[j].Lon100), float64(r[j].Lat100)

        intersects := (yi > y) != (yj > y) &&
            x < (xj-xi)*(y-yi)/(yj-yi)+xi

        if intersects {
            inside = !inside
        }

        j = i
    }

    return inside
}

// BoundsOf computes the bounding box of a ring in floating-point degrees,
// used as a cheap pre-filter before the full ray-cast test.
func BoundsOf(r Ring) BoundingBox {
    if len(r) == 0 {
        return BoundingBox{}
    }

    minLat, maxLat := float64(r[0].Lat100)/100, float64(r[0].Lat100)/100
    minLon, maxLon := float64(r[0].Lon100)/100, float64(r[0].Lon100)/100

    for _, p := range r[1:] {
        lat, lon := p.Dequantize()
        if lat < minLat {
            minLat = lat
        }
        if lat > maxLat {
            maxLat = lat
        }
        if lon < minLon {
            minLon = lon
        }
        if lon > maxLon {
            maxLon = lon
        }
    }

    return BoundingBox{MinLat: minLat, MaxLat: maxLat, MinLon: minLon, MaxLon: maxLon}
}
