package geo

import (
	"math"

	"github.com/vbonduro/shopexplore/internal/domain"
)

// Box is a latitude/longitude rectangle in degrees.
type Box struct {
	MinLat, MaxLat float64
	MinLon, MaxLon float64
}

// BoundingBox returns a rectangle that contains every point within radiusKm
// of center. ok is false when the rectangle would cross a pole or the
// antimeridian; callers should then scan without a prefilter.
func BoundingBox(center domain.Coordinate, radiusKm float64) (box Box, ok bool) {
	angular := radiusKm / EarthRadiusKm
	dLat := angular * 180 / math.Pi

	box.MinLat = center.Latitude - dLat
	box.MaxLat = center.Latitude + dLat
	if box.MinLat < -90 || box.MaxLat > 90 || angular >= math.Pi/2 {
		return Box{}, false
	}

	ratio := math.Sin(angular) / math.Cos(toRadians(center.Latitude))
	if ratio >= 1 {
		return Box{}, false
	}
	dLon := math.Asin(ratio) * 180 / math.Pi

	box.MinLon = center.Longitude - dLon
	box.MaxLon = center.Longitude + dLon
	if box.MinLon < -180 || box.MaxLon > 180 {
		return Box{}, false
	}
	return box, true
}

func (b Box) Contains(c domain.Coordinate) bool {
	return c.Latitude >= b.MinLat && c.Latitude <= b.MaxLat &&
		c.Longitude >= b.MinLon && c.Longitude <= b.MaxLon
}
