// Catalog HTTP handlers: cached product and shop listings. These serve from
// the local SQLite cache so the POS flow works with no backend connectivity;
// staleness is acceptable, losing the screen is not.
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/neyyar-dairy/fieldsync/internal/domain"
	"github.com/neyyar-dairy/fieldsync/internal/services"
	"github.com/neyyar-dairy/fieldsync/internal/utils"
)

// ProductView decorates a cached product with a display price.
type ProductView struct {
	domain.Product
	PriceDisplay string `json:"price_display"`
}

// ListProductsResponse is a page of products plus pagination metadata.
type ListProductsResponse struct {
	Products   []ProductView `json:"products"`
	Pagination Pagination    `json:"pagination"`
}

// ListShopsResponse is a page of shops plus pagination metadata.
type ListShopsResponse struct {
	Shops      []domain.Shop `json:"shops"`
	Pagination Pagination    `json:"pagination"`
}

// clampPagination parses page/page_size query parameters with defaults.
func clampPagination(c *gin.Context) (page, pageSize int) {
	page = utils.AtoiDefault(c.Query("page"), 1)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), 50)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > 200 {
		pageSize = 200
	}
	return
}

// GetProducts handles GET /catalog/products.
func (h *Handler) GetProducts(c *gin.Context) {
	page, pageSize := clampPagination(c)
	items, total, err := h.Catalog.ListProducts(c.Request.Context(), page, pageSize)
	if errors.Is(err, services.ErrCatalogEmpty) {
		Fail(c, http.StatusServiceUnavailable, ErrCodeCatalogEmpty, "catalog not yet downloaded; connect once to populate it")
		return
	}
	if err != nil {
		Fail(c, http.StatusInternalServerError, ErrCodeListFailed, "could not list products")
		return
	}
	views := make([]ProductView, 0, len(items))
	for _, p := range items {
		views = append(views, ProductView{
			Product:      p,
			PriceDisplay: utils.FormatINR(p.PricePaise),
		})
	}
	c.JSON(http.StatusOK, ListProductsResponse{
		Products:   views,
		Pagination: Pagination{Page: page, PageSize: pageSize, Total: total},
	})
}

// GetShops handles GET /catalog/shops. An optional route_id query filters to
// one route's shops.
func (h *Handler) GetShops(c *gin.Context) {
	page, pageSize := clampPagination(c)
	routeID, _ := strconv.ParseInt(c.Query("route_id"), 10, 64)
	items, total, err := h.Catalog.ListShops(c.Request.Context(), routeID, page, pageSize)
	if errors.Is(err, services.ErrCatalogEmpty) {
		Fail(c, http.StatusServiceUnavailable, ErrCodeCatalogEmpty, "catalog not yet downloaded; connect once to populate it")
		return
	}
	if err != nil {
		Fail(c, http.StatusInternalServerError, ErrCodeListFailed, "could not list shops")
		return
	}
	c.JSON(http.StatusOK, ListShopsResponse{
		Shops:      items,
		Pagination: Pagination{Page: page, PageSize: pageSize, Total: total},
	})
}
