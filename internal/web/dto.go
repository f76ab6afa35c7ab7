package web

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/vbonduro/shopexplore/internal/domain"
	"github.com/vbonduro/shopexplore/internal/geo"
	"github.com/vbonduro/shopexplore/internal/service"
)

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Name     string `json:"name" validate:"required"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type itemRequest struct {
	Name     string `json:"name" validate:"required"`
	Quantity int    `json:"quantity" validate:"gte=0"`
}

// shopRequest is the body of POST and PUT /api/shops. Unknown fields such as
// createdBy are ignored; ownership comes from the session.
type shopRequest struct {
	Name         string        `json:"name" validate:"required,max=200"`
	Description  string        `json:"description"`
	Address      string        `json:"address"`
	Location     *geo.Point    `json:"location" validate:"required"`
	PosterURL    string        `json:"posterUrl" validate:"omitempty,url"`
	Items        []itemRequest `json:"items" validate:"dive"`
	Owner        string        `json:"owner"`
	Phone        string        `json:"phone"`
	Email        string        `json:"email" validate:"omitempty,email"`
	OpeningHours string        `json:"openingHours"`
	Category     string        `json:"category"`
	IsOpen       *bool         `json:"isOpen"`
}

// toInput converts the request, reporting location problems as field errors.
func (req *shopRequest) toInput() (service.ShopInput, map[string][]string) {
	var fields map[string][]string
	if req.Location == nil {
		addErr(&fields, "location", "is required")
		return service.ShopInput{}, fields
	}
	loc, err := req.Location.Coordinate()
	if err != nil {
		addErr(&fields, "location", err.Error())
		return service.ShopInput{}, fields
	}

	items := make([]service.ItemInput, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, service.ItemInput{Name: item.Name, Quantity: item.Quantity})
	}
	isOpen := true
	if req.IsOpen != nil {
		isOpen = *req.IsOpen
	}
	return service.ShopInput{
		Name:         req.Name,
		Description:  req.Description,
		Address:      req.Address,
		Location:     loc,
		PosterURL:    req.PosterURL,
		Owner:        req.Owner,
		Phone:        req.Phone,
		Email:        req.Email,
		OpeningHours: req.OpeningHours,
		Category:     req.Category,
		IsOpen:       isOpen,
		Items:        items,
	}, nil
}

type itemResponse struct {
	ID       int64             `json:"id"`
	Name     string            `json:"name"`
	Quantity int               `json:"quantity"`
	Stock    domain.StockLevel `json:"stock"`
}

type shopResponse struct {
	ID           int64          `json:"id"`
	Name         string         `json:"name"`
	Description  string         `json:"description"`
	Address      string         `json:"address"`
	Location     geo.Point      `json:"location"`
	PosterURL    string         `json:"posterUrl"`
	Items        []itemResponse `json:"items"`
	Owner        string         `json:"owner"`
	Phone        string         `json:"phone"`
	Email        string         `json:"email"`
	OpeningHours string         `json:"openingHours"`
	Category     string         `json:"category"`
	IsOpen       bool           `json:"isOpen"`
	CreatedBy    *int64         `json:"createdBy"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
	DistanceKm   *float64       `json:"distanceKm,omitempty"`
}

// newShopResponse renders shop. An uploaded poster takes precedence over an
// external posterUrl.
func newShopResponse(shop *domain.Shop) shopResponse {
	items := make([]itemResponse, 0, len(shop.Items))
	for _, item := range shop.Items {
		items = append(items, itemResponse{
			ID:       item.ID,
			Name:     item.Name,
			Quantity: item.Quantity,
			Stock:    item.Stock(),
		})
	}
	posterURL := shop.PosterURL
	if shop.PosterKey != "" {
		posterURL = fmt.Sprintf("/api/shops/%d/poster", shop.ID)
	}
	return shopResponse{
		ID:           shop.ID,
		Name:         shop.Name,
		Description:  shop.Description,
		Address:      shop.Address,
		Location:     geo.PointFrom(shop.Location),
		PosterURL:    posterURL,
		Items:        items,
		Owner:        shop.Owner,
		Phone:        shop.Phone,
		Email:        shop.Email,
		OpeningHours: shop.OpeningHours,
		Category:     shop.Category,
		IsOpen:       shop.IsOpen,
		CreatedBy:    shop.CreatedBy,
		CreatedAt:    shop.CreatedAt,
		UpdatedAt:    shop.UpdatedAt,
	}
}

func newShopList(shops []*domain.Shop) []shopResponse {
	out := make([]shopResponse, 0, len(shops))
	for _, shop := range shops {
		out = append(out, newShopResponse(shop))
	}
	return out
}

func newNearbyList(results []geo.Nearby) []shopResponse {
	out := make([]shopResponse, 0, len(results))
	for _, res := range results {
		resp := newShopResponse(res.Shop)
		d := res.DistanceKm
		resp.DistanceKm = &d
		out = append(out, resp)
	}
	return out
}

type discoverResponse struct {
	Mode     service.Mode   `json:"mode"`
	Center   geo.Point      `json:"center"`
	RadiusKm float64        `json:"radiusKm,omitempty"`
	Shops    []shopResponse `json:"shops"`
}

func newDiscoverResponse(d *service.Discovery) discoverResponse {
	resp := discoverResponse{Mode: d.Mode, Center: geo.PointFrom(d.Center), RadiusKm: d.RadiusKm}
	if d.Mode == service.ModeNearby {
		resp.Shops = newNearbyList(d.Results)
		return resp
	}
	resp.Shops = make([]shopResponse, 0, len(d.Results))
	for _, res := range d.Results {
		resp.Shops = append(resp.Shops, newShopResponse(res.Shop))
	}
	return resp
}

type userResponse struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

func newUserResponse(u *domain.User) userResponse {
	return userResponse{ID: u.ID, Email: u.Email, Name: u.Name, CreatedAt: u.CreatedAt}
}

func parseID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

// parseLocation reads the lat and lng query parameters. Both absent means no
// location; one without the other is an error.
func parseLocation(r *http.Request) (*domain.Coordinate, error) {
	q := r.URL.Query()
	latStr, lngStr := q.Get("lat"), q.Get("lng")
	if latStr == "" && lngStr == "" {
		return nil, nil
	}
	if latStr == "" || lngStr == "" {
		return nil, fmt.Errorf("lat and lng must be given together")
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return nil, fmt.Errorf("lat must be a number")
	}
	lng, err := strconv.ParseFloat(lngStr, 64)
	if err != nil {
		return nil, fmt.Errorf("lng must be a number")
	}
	return &domain.Coordinate{Latitude: lat, Longitude: lng}, nil
}

// parseRadius returns 0 when the radius parameter is absent, which the
// service treats as the default radius.
func parseRadius(r *http.Request) (float64, error) {
	raw := r.URL.Query().Get("radius")
	if raw == "" {
		return 0, nil
	}
	radius, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("radius must be a number")
	}
	if radius == 0 {
		return 0, service.ErrInvalidRadius
	}
	return radius, nil
}
