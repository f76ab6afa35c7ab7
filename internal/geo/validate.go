package geo

import (
	"errors"
	"fmt"

	"github.com/vbonduro/shopexplore/internal/domain"
)

var ErrInvalidCoordinate = errors.New("invalid coordinate")

// Validate checks that c lies within the geographic range. NaN and infinite
// values fail the range comparisons and are rejected too.
func Validate(c domain.Coordinate) error {
	if !(c.Latitude >= -90 && c.Latitude <= 90) {
		return fmt.Errorf("%w: latitude %v out of range [-90, 90]", ErrInvalidCoordinate, c.Latitude)
	}
	if !(c.Longitude >= -180 && c.Longitude <= 180) {
		return fmt.Errorf("%w: longitude %v out of range [-180, 180]", ErrInvalidCoordinate, c.Longitude)
	}
	return nil
}
