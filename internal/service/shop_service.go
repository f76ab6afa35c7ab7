package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/vbonduro/shopexplore/internal/domain"
	"github.com/vbonduro/shopexplore/internal/events"
	"github.com/vbonduro/shopexplore/internal/geo"
	"github.com/vbonduro/shopexplore/internal/posterstore"
	"github.com/vbonduro/shopexplore/internal/store"
)

// shopRepository is the subset of store.ShopStore that ShopService requires.
type shopRepository interface {
	Create(ctx context.Context, shop *domain.Shop) (*domain.Shop, error)
	GetByID(ctx context.Context, id int64) (*domain.Shop, error)
	List(ctx context.Context) ([]*domain.Shop, error)
	ListInBox(ctx context.Context, box geo.Box) ([]*domain.Shop, error)
	Search(ctx context.Context, query string) ([]*domain.Shop, error)
	Update(ctx context.Context, shop *domain.Shop) (*domain.Shop, error)
	SetPosterKey(ctx context.Context, id int64, key string) error
	Delete(ctx context.Context, id int64) error
}

// ItemInput is one inventory line of a ShopInput.
type ItemInput struct {
	Name     string
	Quantity int
}

// ShopInput carries the caller-editable fields of a shop. Create and update
// both take the full record.
type ShopInput struct {
	Name         string
	Description  string
	Address      string
	Location     domain.Coordinate
	PosterURL    string
	Owner        string
	Phone        string
	Email        string
	OpeningHours string
	Category     string
	IsOpen       bool
	Items        []ItemInput
}

type Mode string

const (
	ModeNearby Mode = "nearby"
	ModeAll    Mode = "all"
)

// Discovery is the outcome of Discover. In ModeAll the results carry no
// distances and Center is only a display hint.
type Discovery struct {
	Mode     Mode
	Center   domain.Coordinate
	RadiusKm float64
	Results  []geo.Nearby
}

type ShopService struct {
	shops         shopRepository
	posters       posterstore.PosterStore
	publisher     events.Publisher
	defaultRadius float64
	logger        *slog.Logger
	now           func() time.Time
}

func NewShopService(
	shops shopRepository,
	posters posterstore.PosterStore,
	publisher events.Publisher,
	defaultRadiusKm float64,
	logger *slog.Logger,
) *ShopService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	if defaultRadiusKm <= 0 {
		defaultRadiusKm = geo.DefaultRadiusKm
	}
	return &ShopService{
		shops:         shops,
		posters:       posters,
		publisher:     publisher,
		defaultRadius: defaultRadiusKm,
		logger:        logger,
		now:           time.Now,
	}
}

func (s *ShopService) ListShops(ctx context.Context) ([]*domain.Shop, error) {
	return s.shops.List(ctx)
}

// GetShop returns nil when the shop does not exist.
func (s *ShopService) GetShop(ctx context.Context, id int64) (*domain.Shop, error) {
	return s.shops.GetByID(ctx, id)
}

// NearbyShops returns the shops within radiusKm of user in creation order,
// each with its distance. A zero radius means the configured default.
func (s *ShopService) NearbyShops(ctx context.Context, user domain.Coordinate, radiusKm float64) ([]geo.Nearby, error) {
	if err := geo.Validate(user); err != nil {
		return nil, err
	}
	radiusKm, err := s.radius(radiusKm)
	if err != nil {
		return nil, err
	}

	var candidates []*domain.Shop
	if box, ok := geo.BoundingBox(user, radiusKm); ok {
		candidates, err = s.shops.ListInBox(ctx, box)
	} else {
		candidates, err = s.shops.List(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load shops: %w", err)
	}

	return geo.Annotate(user, geo.FilterNearby(user, candidates, radiusKm)), nil
}

// Discover applies the location policy: with a fix the nearby shops are
// returned, without one every shop is returned unfiltered.
func (s *ShopService) Discover(ctx context.Context, fix geo.Fix, radiusKm float64) (*Discovery, error) {
	radiusKm, err := s.radius(radiusKm)
	if err != nil {
		return nil, err
	}

	if fix.Denied() {
		shops, err := s.shops.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load shops: %w", err)
		}
		results := make([]geo.Nearby, 0, len(shops))
		for _, shop := range shops {
			results = append(results, geo.Nearby{Shop: shop})
		}
		s.logger.Debug("location unavailable, listing all shops", "shops", len(results))
		return &Discovery{Mode: ModeAll, Center: geo.FallbackCenter, Results: results}, nil
	}

	results, err := s.NearbyShops(ctx, *fix.Coordinate, radiusKm)
	if err != nil {
		return nil, err
	}
	return &Discovery{Mode: ModeNearby, Center: *fix.Coordinate, RadiusKm: radiusKm, Results: results}, nil
}

// SearchShops matches query against shop and item names. A blank query
// matches nothing.
func (s *ShopService) SearchShops(ctx context.Context, query string) ([]*domain.Shop, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []*domain.Shop{}, nil
	}
	return s.shops.Search(ctx, query)
}

// CreateShop stores a new shop created by actor. A nil actor creates an
// ownerless shop, which is how seed data is loaded.
func (s *ShopService) CreateShop(ctx context.Context, actor *int64, input ShopInput) (*domain.Shop, error) {
	if err := checkInput(input); err != nil {
		return nil, err
	}

	shop := input.toShop()
	shop.CreatedBy = actor
	created, err := s.shops.Create(ctx, shop)
	if err != nil {
		return nil, fmt.Errorf("failed to create shop: %w", err)
	}

	s.logger.Info("shop created", "shop_id", created.ID, "items", len(created.Items))
	s.publish(ctx, events.ShopCreated, created)
	return created, nil
}

// UpdateShop replaces the shop and its items. Only the creator may update.
func (s *ShopService) UpdateShop(ctx context.Context, actor int64, id int64, input ShopInput) (*domain.Shop, error) {
	if err := checkInput(input); err != nil {
		return nil, err
	}
	existing, err := s.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	shop := input.toShop()
	shop.ID = existing.ID
	updated, err := s.shops.Update(ctx, shop)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update shop: %w", err)
	}

	s.logger.Info("shop updated", "shop_id", id)
	s.publish(ctx, events.ShopUpdated, updated)
	return updated, nil
}

// DeleteShop removes the shop, its items and its poster. Only the creator may
// delete.
func (s *ShopService) DeleteShop(ctx context.Context, actor int64, id int64) error {
	existing, err := s.owned(ctx, actor, id)
	if err != nil {
		return err
	}

	if err := s.shops.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete shop: %w", err)
	}
	s.removePoster(ctx, existing.PosterKey)

	s.logger.Info("shop deleted", "shop_id", id)
	s.publish(ctx, events.ShopDeleted, existing)
	return nil
}

// SetPoster stores a new poster image for the shop and discards the previous
// one.
func (s *ShopService) SetPoster(ctx context.Context, actor int64, id int64, data []byte, mimeType string) (*domain.Shop, error) {
	existing, err := s.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	key, err := s.posters.Save(ctx, fmt.Sprintf("shop_%d", id), mimeType, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to save poster: %w", err)
	}
	s.logger.Debug("poster saved", "shop_id", id, "storage_key", key, "bytes", len(data))

	if err := s.shops.SetPosterKey(ctx, id, key); err != nil {
		s.removePoster(ctx, key)
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to record poster: %w", err)
	}
	s.removePoster(ctx, existing.PosterKey)

	updated, err := s.shops.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to reload shop: %w", err)
	}
	if updated == nil {
		return nil, ErrNotFound
	}
	s.publish(ctx, events.ShopUpdated, updated)
	return updated, nil
}

// Poster opens the shop's uploaded poster. The caller closes the reader.
func (s *ShopService) Poster(ctx context.Context, id int64) (io.ReadCloser, string, error) {
	shop, err := s.shops.GetByID(ctx, id)
	if err != nil {
		return nil, "", fmt.Errorf("failed to get shop: %w", err)
	}
	if shop == nil || shop.PosterKey == "" {
		return nil, "", ErrNotFound
	}

	r, mimeType, err := s.posters.Get(ctx, shop.PosterKey)
	if errors.Is(err, posterstore.ErrNotFound) {
		return nil, "", ErrNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to open poster: %w", err)
	}
	return r, mimeType, nil
}

func (s *ShopService) owned(ctx context.Context, actor int64, id int64) (*domain.Shop, error) {
	shop, err := s.shops.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get shop: %w", err)
	}
	if shop == nil {
		return nil, ErrNotFound
	}
	if !shop.OwnedBy(actor) {
		return nil, ErrForbidden
	}
	return shop, nil
}

func (s *ShopService) radius(radiusKm float64) (float64, error) {
	if radiusKm == 0 {
		return s.defaultRadius, nil
	}
	if math.IsNaN(radiusKm) || math.IsInf(radiusKm, 0) || radiusKm < 0 {
		return 0, ErrInvalidRadius
	}
	return radiusKm, nil
}

func (s *ShopService) removePoster(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.posters.Delete(ctx, key); err != nil && !errors.Is(err, posterstore.ErrNotFound) {
		s.logger.Error("failed to delete poster", "storage_key", key, "error", err)
	}
}

// publish never fails the caller; a broker outage only costs the event.
func (s *ShopService) publish(ctx context.Context, t events.Type, shop *domain.Shop) {
	if err := s.publisher.Publish(ctx, events.NewShopEvent(t, shop, s.now())); err != nil {
		s.logger.Error("failed to publish shop event", "type", t, "shop_id", shop.ID, "error", err)
	}
}

func checkInput(input ShopInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	for _, item := range input.Items {
		if strings.TrimSpace(item.Name) == "" {
			return fmt.Errorf("%w: item name is required", ErrInvalidInput)
		}
		if item.Quantity < 0 {
			return fmt.Errorf("%w: item %q has a negative quantity", ErrInvalidInput, item.Name)
		}
	}
	return geo.Validate(input.Location)
}

func (in ShopInput) toShop() *domain.Shop {
	items := make([]*domain.Item, 0, len(in.Items))
	for _, item := range in.Items {
		items = append(items, &domain.Item{Name: strings.TrimSpace(item.Name), Quantity: item.Quantity})
	}
	return &domain.Shop{
		Name:         strings.TrimSpace(in.Name),
		Description:  in.Description,
		Address:      in.Address,
		Location:     in.Location,
		PosterURL:    in.PosterURL,
		Owner:        in.Owner,
		Phone:        in.Phone,
		Email:        in.Email,
		OpeningHours: in.OpeningHours,
		Category:     in.Category,
		IsOpen:       in.IsOpen,
		Items:        items,
	}
}
