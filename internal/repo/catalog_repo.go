// Package repo implements the local persistence layer, backed by GORM. This
// file provides repository functions for the catalog cache: products and
// shops mirrored from the backend so the POS flow keeps working offline.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/neyyar-dairy/fieldsync/internal/domain"
)

// ReplaceProducts upserts a refreshed product list in one transaction and
// stamps every row with the refresh time. Rows absent from the new list are
// kept; a product withdrawn from sale arrives as Active=false rather than
// disappearing.
func ReplaceProducts(ctx context.Context, db *gorm.DB, products []domain.Product) error {
	if len(products) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for i := range products {
		products[i].UpdatedAt = now
	}
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&products).Error
}

// ReplaceShops upserts a refreshed shop list.
func ReplaceShops(ctx context.Context, db *gorm.DB, shops []domain.Shop) error {
	if len(shops) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for i := range shops {
		shops[i].UpdatedAt = now
	}
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&shops).Error
}

// ListProductsPage returns active products ordered by name.
func ListProductsPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.Product, error) {
	var out []domain.Product
	err := db.WithContext(ctx).
		Where("active = ?", true).
		Order("name ASC, id ASC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// CountProducts counts active products.
func CountProducts(ctx context.Context, db *gorm.DB) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.Product{}).
		Where("active = ?", true).
		Count(&n).Error
	return n, err
}

// ListShopsPage returns shops ordered by name, optionally filtered by route.
func ListShopsPage(ctx context.Context, db *gorm.DB, routeID int64, offset, limit int) ([]domain.Shop, error) {
	var out []domain.Shop
	q := db.WithContext(ctx).Order("name ASC, id ASC")
	if routeID > 0 {
		q = q.Where("route_id = ?", routeID)
	}
	err := q.Offset(offset).Limit(limit).Find(&out).Error
	return out, err
}

// CountShops counts shops, optionally filtered by route.
func CountShops(ctx context.Context, db *gorm.DB, routeID int64) (int64, error) {
	var n int64
	q := db.WithContext(ctx).Model(&domain.Shop{})
	if routeID > 0 {
		q = q.Where("route_id = ?", routeID)
	}
	err := q.Count(&n).Error
	return n, err
}
