package geo

import (
	"slices"

	"github.com/vbonduro/shopexplore/internal/domain"
)

// DefaultRadiusKm is the radius within which a shop counts as nearby.
const DefaultRadiusKm = 2.0

// FallbackCenter is shown as the map center when the user's location is
// unavailable. It is never used as a filter origin.
var FallbackCenter = domain.Coordinate{Latitude: 40.7128, Longitude: -74.0060}

// FilterNearby returns the shops within radiusKm of user, preserving input
// order. The result is never nil.
func FilterNearby(user domain.Coordinate, shops []*domain.Shop, radiusKm float64) []*domain.Shop {
	nearby := make([]*domain.Shop, 0, len(shops))
	for _, shop := range shops {
		if Distance(user, shop.Location) <= radiusKm {
			nearby = append(nearby, shop)
		}
	}
	return nearby
}

// Nearby pairs a shop with its distance from a reference coordinate.
type Nearby struct {
	Shop       *domain.Shop
	DistanceKm float64
}

// Annotate computes the distance from user to every shop, keeping order.
func Annotate(user domain.Coordinate, shops []*domain.Shop) []Nearby {
	out := make([]Nearby, 0, len(shops))
	for _, shop := range shops {
		out = append(out, Nearby{Shop: shop, DistanceKm: Distance(user, shop.Location)})
	}
	return out
}

// SortByDistance orders results closest first. Ties keep their relative order.
func SortByDistance(results []Nearby) {
	slices.SortStableFunc(results, func(a, b Nearby) int {
		switch {
		case a.DistanceKm < b.DistanceKm:
			return -1
		case a.DistanceKm > b.DistanceKm:
			return 1
		default:
			return 0
		}
	})
}

// Fix is the outcome of asking the client for its position. A nil Coordinate
// means the location was denied or unavailable.
type Fix struct {
	Coordinate *domain.Coordinate
}

func (f Fix) Denied() bool {
	return f.Coordinate == nil
}
