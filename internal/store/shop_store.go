package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/vbonduro/shopexplore/internal/domain"
	"github.com/vbonduro/shopexplore/internal/geo"
)

const shopColumns = `id, name, description, address, latitude, longitude, poster_url, poster_key,
	owner, phone, email, opening_hours, category, is_open, created_by, created_at, updated_at`

type ShopStore struct {
	db *sql.DB
}

func NewShopStore(db *sql.DB) *ShopStore {
	return &ShopStore{db: db}
}

// Create inserts shop and its items in one transaction and returns the stored
// record. ID and timestamps on the argument are ignored.
func (s *ShopStore) Create(ctx context.Context, shop *domain.Shop) (*domain.Shop, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(tx)

	result, err := tx.ExecContext(ctx, `
		INSERT INTO shops (name, description, address, latitude, longitude, poster_url,
			owner, phone, email, opening_hours, category, is_open, created_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, shop.Name, shop.Description, shop.Address, shop.Location.Latitude, shop.Location.Longitude,
		shop.PosterURL, shop.Owner, shop.Phone, shop.Email, shop.OpeningHours, shop.Category,
		shop.IsOpen, shop.CreatedBy)
	if err != nil {
		return nil, fmt.Errorf("failed to create shop: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	if err := insertItems(ctx, tx, id, shop.Items); err != nil {
		return nil, err
	}

	created, err := getShop(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit shop: %w", err)
	}
	return created, nil
}

// GetByID returns the shop with its items, or nil when it does not exist.
func (s *ShopStore) GetByID(ctx context.Context, id int64) (*domain.Shop, error) {
	return getShop(ctx, s.db, id)
}

// List returns every shop in creation order.
func (s *ShopStore) List(ctx context.Context) ([]*domain.Shop, error) {
	return listShops(ctx, s.db, `SELECT `+shopColumns+` FROM shops ORDER BY id ASC`)
}

// ListInBox returns the shops whose coordinate lies inside box, in creation
// order. It is a coarse prefilter; callers still apply the exact radius.
func (s *ShopStore) ListInBox(ctx context.Context, box geo.Box) ([]*domain.Shop, error) {
	return listShops(ctx, s.db, `
		SELECT `+shopColumns+` FROM shops
		WHERE latitude BETWEEN ? AND ? AND longitude BETWEEN ? AND ?
		ORDER BY id ASC
	`, box.MinLat, box.MaxLat, box.MinLon, box.MaxLon)
}

// Search matches query case-insensitively against shop name, description,
// category and item names.
func (s *ShopStore) Search(ctx context.Context, query string) ([]*domain.Shop, error) {
	pattern := likePattern(query)
	return listShops(ctx, s.db, `
		SELECT `+shopColumns+` FROM shops s
		WHERE LOWER(s.name) LIKE ? ESCAPE '\'
			OR LOWER(s.description) LIKE ? ESCAPE '\'
			OR LOWER(s.category) LIKE ? ESCAPE '\'
			OR EXISTS (
				SELECT 1 FROM items i
				WHERE i.shop_id = s.id AND LOWER(i.name) LIKE ? ESCAPE '\'
			)
		ORDER BY s.id ASC
	`, pattern, pattern, pattern, pattern)
}

// Update replaces every mutable field of the shop and its full item list.
// CreatedBy and PosterKey are left untouched.
func (s *ShopStore) Update(ctx context.Context, shop *domain.Shop) (*domain.Shop, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(tx)

	result, err := tx.ExecContext(ctx, `
		UPDATE shops SET name = ?, description = ?, address = ?, latitude = ?, longitude = ?,
			poster_url = ?, owner = ?, phone = ?, email = ?, opening_hours = ?, category = ?,
			is_open = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, shop.Name, shop.Description, shop.Address, shop.Location.Latitude, shop.Location.Longitude,
		shop.PosterURL, shop.Owner, shop.Phone, shop.Email, shop.OpeningHours, shop.Category,
		shop.IsOpen, shop.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to update shop: %w", err)
	}
	if err := expectRow(result, "shop"); err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM items WHERE shop_id = ?`, shop.ID); err != nil {
		return nil, fmt.Errorf("failed to delete items: %w", err)
	}
	if err := insertItems(ctx, tx, shop.ID, shop.Items); err != nil {
		return nil, err
	}

	updated, err := getShop(ctx, tx, shop.ID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit shop: %w", err)
	}
	return updated, nil
}

func (s *ShopStore) SetPosterKey(ctx context.Context, id int64, key string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE shops SET poster_key = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, key, id)
	if err != nil {
		return fmt.Errorf("failed to set poster: %w", err)
	}
	return expectRow(result, "shop")
}

// Delete removes the shop; its items cascade.
func (s *ShopStore) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM shops WHERE id = ?
	`, id)
	if err != nil {
		return fmt.Errorf("failed to delete shop: %w", err)
	}
	return expectRow(result, "shop")
}

func getShop(ctx context.Context, q querier, id int64) (*domain.Shop, error) {
	shops, err := listShops(ctx, q, `SELECT `+shopColumns+` FROM shops WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(shops) == 0 {
		return nil, nil
	}
	return shops[0], nil
}

// listShops runs a shop query and then loads the items of every returned shop.
// The shop rows are fully drained before the item query so a single
// connection is enough.
func listShops(ctx context.Context, q querier, query string, args ...any) ([]*domain.Shop, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list shops: %w", err)
	}

	shops := make([]*domain.Shop, 0)
	for rows.Next() {
		shop := &domain.Shop{}
		if err := rows.Scan(&shop.ID, &shop.Name, &shop.Description, &shop.Address,
			&shop.Location.Latitude, &shop.Location.Longitude, &shop.PosterURL, &shop.PosterKey,
			&shop.Owner, &shop.Phone, &shop.Email, &shop.OpeningHours, &shop.Category,
			&shop.IsOpen, &shop.CreatedBy, &shop.CreatedAt, &shop.UpdatedAt); err != nil {
			closeRows(rows)
			return nil, fmt.Errorf("failed to scan shop: %w", err)
		}
		shop.Items = make([]*domain.Item, 0)
		shops = append(shops, shop)
	}
	if err := rows.Err(); err != nil {
		closeRows(rows)
		return nil, fmt.Errorf("error iterating shops: %w", err)
	}
	closeRows(rows)

	if err := attachItems(ctx, q, shops); err != nil {
		return nil, err
	}
	return shops, nil
}

func attachItems(ctx context.Context, q querier, shops []*domain.Shop) error {
	if len(shops) == 0 {
		return nil
	}

	byID := make(map[int64]*domain.Shop, len(shops))
	args := make([]any, 0, len(shops))
	for _, shop := range shops {
		byID[shop.ID] = shop
		args = append(args, shop.ID)
	}

	rows, err := q.QueryContext(ctx, `
		SELECT id, shop_id, name, quantity FROM items
		WHERE shop_id IN (`+placeholders(len(args))+`)
		ORDER BY shop_id ASC, position ASC, id ASC
	`, args...)
	if err != nil {
		return fmt.Errorf("failed to list items: %w", err)
	}
	defer closeRows(rows)

	for rows.Next() {
		item := &domain.Item{}
		if err := rows.Scan(&item.ID, &item.ShopID, &item.Name, &item.Quantity); err != nil {
			return fmt.Errorf("failed to scan item: %w", err)
		}
		if shop, ok := byID[item.ShopID]; ok {
			shop.Items = append(shop.Items, item)
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating items: %w", err)
	}
	return nil
}

func insertItems(ctx context.Context, tx *sql.Tx, shopID int64, items []*domain.Item) error {
	for i, item := range items {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO items (shop_id, position, name, quantity) VALUES (?, ?, ?, ?)
		`, shopID, i, item.Name, item.Quantity); err != nil {
			return fmt.Errorf("failed to create item %q: %w", item.Name, err)
		}
	}
	return nil
}

func expectRow(result sql.Result, what string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}

func rollback(tx *sql.Tx) {
	if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
		slog.Error("failed to roll back transaction", "error", err)
	}
}

func closeRows(rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		slog.Error("failed to close rows", "error", err)
	}
}
