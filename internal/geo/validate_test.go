package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vbonduro/shopexplore/internal/domain"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		coord   domain.Coordinate
		wantErr bool
	}{
		{name: "new york", coord: domain.Coordinate{Latitude: 40.7128, Longitude: -74.0060}},
		{name: "north pole", coord: domain.Coordinate{Latitude: 90, Longitude: 0}},
		{name: "south pole", coord: domain.Coordinate{Latitude: -90, Longitude: 0}},
		{name: "date line east", coord: domain.Coordinate{Latitude: 0, Longitude: 180}},
		{name: "date line west", coord: domain.Coordinate{Latitude: 0, Longitude: -180}},
		{name: "latitude too high", coord: domain.Coordinate{Latitude: 90.0001, Longitude: 0}, wantErr: true},
		{name: "latitude too low", coord: domain.Coordinate{Latitude: -91, Longitude: 0}, wantErr: true},
		{name: "longitude too high", coord: domain.Coordinate{Latitude: 0, Longitude: 180.5}, wantErr: true},
		{name: "longitude too low", coord: domain.Coordinate{Latitude: 0, Longitude: -200}, wantErr: true},
		{name: "NaN latitude", coord: domain.Coordinate{Latitude: math.NaN(), Longitude: 0}, wantErr: true},
		{name: "infinite longitude", coord: domain.Coordinate{Latitude: 0, Longitude: math.Inf(1)}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.coord)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidCoordinate)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
