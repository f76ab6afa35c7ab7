// Package events publishes shop lifecycle notifications.
package events

import (
	"context"
	"time"

	"github.com/vbonduro/shopexplore/internal/domain"
)

type Type string

const (
	ShopCreated Type = "shop.created"
	ShopUpdated Type = "shop.updated"
	ShopDeleted Type = "shop.deleted"
)

type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type ShopEvent struct {
	Type     Type      `json:"type"`
	ShopID   int64     `json:"shopId"`
	At       time.Time `json:"at"`
	Location *Location `json:"location,omitempty"`
}

// NewShopEvent builds an event for shop. Deleted shops carry no location.
func NewShopEvent(t Type, shop *domain.Shop, at time.Time) ShopEvent {
	ev := ShopEvent{Type: t, ShopID: shop.ID, At: at.UTC()}
	if t != ShopDeleted {
		ev.Location = &Location{Latitude: shop.Location.Latitude, Longitude: shop.Location.Longitude}
	}
	return ev
}

type Publisher interface {
	Publish(ctx context.Context, ev ShopEvent) error
	Close() error
}

// Nop discards every event. It is used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, ShopEvent) error { return nil }
func (Nop) Close() error                             { return nil }
