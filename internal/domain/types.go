package domain

import "time"

// Coordinate is a WGS-84 point in decimal degrees.
type Coordinate struct {
	Latitude  float64
	Longitude float64
}

type Shop struct {
	ID           int64
	Name         string
	Description  string
	Address      string
	Location     Coordinate
	PosterURL    string
	PosterKey    string
	Owner        string
	Phone        string
	Email        string
	OpeningHours string
	Category     string
	IsOpen       bool
	CreatedBy    *int64
	Items        []*Item
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// OwnedBy reports whether userID created the shop. Ownerless shops are owned
// by nobody.
func (s *Shop) OwnedBy(userID int64) bool {
	return s.CreatedBy != nil && *s.CreatedBy == userID
}

type Item struct {
	ID       int64
	ShopID   int64
	Name     string
	Quantity int
}

type StockLevel string

const (
	InStock    StockLevel = "in_stock"
	Limited    StockLevel = "limited"
	OutOfStock StockLevel = "out_of_stock"
)

func (i *Item) Stock() StockLevel {
	switch {
	case i.Quantity > 10:
		return InStock
	case i.Quantity > 0:
		return Limited
	default:
		return OutOfStock
	}
}

type User struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash string
	CreatedAt    time.Time
}
