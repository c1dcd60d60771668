// Package services – CatalogService
//
// This file implements CatalogService, the local read-model of the backend
// product and shop registries. While online the cache is refreshed through
// the RPC boundary; offline reads are served from SQLite so the POS flow can
// still price a cart and pick a shop. The backend stays authoritative; the
// cache is display data, never a ledger.
package services

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/gorm"

	"github.com/neyyar-dairy/fieldsync/internal/domain"
	"github.com/neyyar-dairy/fieldsync/internal/repo"
	"github.com/neyyar-dairy/fieldsync/internal/rpc"
)

// CatalogService refreshes and serves the cached catalog.
type CatalogService struct {
	DB     *gorm.DB
	Caller rpc.Caller
}

// productRow is the wire shape of list_products rows.
type productRow struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Unit   string `json:"unit"`
	Price  int64  `json:"price"`
	Active bool   `json:"active"`
}

// shopRow is the wire shape of list_shops rows.
type shopRow struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	RouteID int64  `json:"route_id"`
	Phone   string `json:"phone"`
	Balance int64  `json:"balance"`
}

// Refresh pulls the current product and shop lists from the backend and
// replaces the local cache. A transient failure leaves the existing cache in
// place and maps to ErrBackendUnreachable.
func (s *CatalogService) Refresh(ctx context.Context) error {
	if err := s.refreshProducts(ctx); err != nil {
		return err
	}
	return s.refreshShops(ctx)
}

func (s *CatalogService) refreshProducts(ctx context.Context) error {
	res, err := s.Caller.Call(ctx, "list_products", map[string]any{})
	if rpc.IsTransient(err) {
		return ErrBackendUnreachable
	}
	if err != nil {
		return err
	}
	var rows []productRow
	if err := json.Unmarshal(res.Data, &rows); err != nil {
		return fmt.Errorf("decode product list: %w", err)
	}
	products := make([]domain.Product, 0, len(rows))
	for _, r := range rows {
		products = append(products, domain.Product{
			ID:         r.ID,
			Name:       r.Name,
			Unit:       r.Unit,
			PricePaise: r.Price,
			Active:     r.Active,
		})
	}
	return repo.ReplaceProducts(ctx, s.DB, products)
}

func (s *CatalogService) refreshShops(ctx context.Context) error {
	res, err := s.Caller.Call(ctx, "list_shops", map[string]any{})
	if rpc.IsTransient(err) {
		return ErrBackendUnreachable
	}
	if err != nil {
		return err
	}
	var rows []shopRow
	if err := json.Unmarshal(res.Data, &rows); err != nil {
		return fmt.Errorf("decode shop list: %w", err)
	}
	shops := make([]domain.Shop, 0, len(rows))
	for _, r := range rows {
		shops = append(shops, domain.Shop{
			ID:           r.ID,
			Name:         r.Name,
			RouteID:      r.RouteID,
			Phone:        r.Phone,
			BalancePaise: r.Balance,
		})
	}
	return repo.ReplaceShops(ctx, s.DB, shops)
}

// ListProducts returns a page of cached active products plus the total count.
// A never-populated cache triggers one refresh attempt; if that fails too the
// read reports ErrCatalogEmpty.
func (s *CatalogService) ListProducts(ctx context.Context, page, pageSize int) ([]domain.Product, int64, error) {
	page, pageSize = clampPage(page, pageSize)
	total, err := repo.CountProducts(ctx, s.DB)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		if err := s.refreshProducts(ctx); err != nil {
			return nil, 0, fmt.Errorf("%w: %v", ErrCatalogEmpty, err)
		}
		if total, err = repo.CountProducts(ctx, s.DB); err != nil {
			return nil, 0, err
		}
	}
	items, err := repo.ListProductsPage(ctx, s.DB, (page-1)*pageSize, pageSize)
	return items, total, err
}

// ListShops returns a page of cached shops, optionally filtered by route. A
// zero total with no shops cached at all triggers one refresh attempt, like
// ListProducts; a route that is simply empty does not.
func (s *CatalogService) ListShops(ctx context.Context, routeID int64, page, pageSize int) ([]domain.Shop, int64, error) {
	page, pageSize = clampPage(page, pageSize)
	total, err := repo.CountShops(ctx, s.DB, routeID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		all, err := repo.CountShops(ctx, s.DB, 0)
		if err != nil {
			return nil, 0, err
		}
		if all == 0 {
			if err := s.refreshShops(ctx); err != nil {
				return nil, 0, fmt.Errorf("%w: %v", ErrCatalogEmpty, err)
			}
			if total, err = repo.CountShops(ctx, s.DB, routeID); err != nil {
				return nil, 0, err
			}
		}
	}
	items, err := repo.ListShopsPage(ctx, s.DB, routeID, (page-1)*pageSize, pageSize)
	return items, total, err
}

func clampPage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 50
	}
	if pageSize > 200 {
		pageSize = 200
	}
	return page, pageSize
}
