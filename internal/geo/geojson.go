package geo

import (
	"fmt"

	"github.com/vbonduro/shopexplore/internal/domain"
)

const pointType = "Point"

// Point is a GeoJSON point. Coordinates are ordered [longitude, latitude],
// the reverse of domain.Coordinate's field order.
type Point struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

func PointFrom(c domain.Coordinate) Point {
	return Point{Type: pointType, Coordinates: []float64{c.Longitude, c.Latitude}}
}

// Coordinate converts p to the canonical representation and validates it.
func (p Point) Coordinate() (domain.Coordinate, error) {
	if p.Type != pointType {
		return domain.Coordinate{}, fmt.Errorf("%w: geometry type %q is not %q", ErrInvalidCoordinate, p.Type, pointType)
	}
	if len(p.Coordinates) != 2 {
		return domain.Coordinate{}, fmt.Errorf("%w: point needs [lng, lat], got %d values", ErrInvalidCoordinate, len(p.Coordinates))
	}
	c := domain.Coordinate{Latitude: p.Coordinates[1], Longitude: p.Coordinates[0]}
	if err := Validate(c); err != nil {
		return domain.Coordinate{}, err
	}
	return c, nil
}
