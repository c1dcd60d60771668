// Handler construction and the service interfaces the HTTP layer depends on.
// Handlers are transport-thin: bind and validate input, delegate to a
// service, map the outcome onto the response envelope. Interfaces are defined
// here (consumer side) so tests can substitute fakes without touching the
// services package.
package handlers

import (
	"context"

	"github.com/neyyar-dairy/fieldsync/internal/dispatch"
	"github.com/neyyar-dairy/fieldsync/internal/domain"
	"github.com/neyyar-dairy/fieldsync/internal/rpc"
	"github.com/neyyar-dairy/fieldsync/internal/services"
)

// FieldService is the offline-capable transaction surface.
type FieldService interface {
	MakeSale(ctx context.Context, p domain.SalePayload) (dispatch.Outcome, error)
	CollectPayment(ctx context.Context, p domain.PaymentPayload) (dispatch.Outcome, error)
	ReportDamage(ctx context.Context, p domain.DamagePayload) (dispatch.Outcome, error)
	RecordExpense(ctx context.Context, p domain.ExpensePayload) (dispatch.Outcome, error)
	ProcessReturn(ctx context.Context, p domain.ReturnPayload) (dispatch.Outcome, error)
}

// AdminService is the online-only inventory surface.
type AdminService interface {
	ProcessArrival(ctx context.Context, p domain.ArrivalPayload) (rpc.Result, error)
	ReconcileStock(ctx context.Context, p domain.ReconcilePayload) (rpc.Result, error)
}

// SyncService exposes queue status and the manual flush.
type SyncService interface {
	Status(ctx context.Context) (services.SyncStatus, error)
	SyncNow(ctx context.Context) (domain.FlushReport, error)
	DeadLetters(ctx context.Context, limit int) ([]domain.DeadLetter, error)
}

// CatalogService serves the cached product and shop registries.
type CatalogService interface {
	ListProducts(ctx context.Context, page, pageSize int) ([]domain.Product, int64, error)
	ListShops(ctx context.Context, routeID int64, page, pageSize int) ([]domain.Shop, int64, error)
}

// Handler bundles the API endpoints over their service dependencies.
type Handler struct {
	Field   FieldService
	Admin   AdminService
	Sync    SyncService
	Catalog CatalogService
}

// New builds a Handler.
func New(field FieldService, admin AdminService, sync SyncService, catalog CatalogService) *Handler {
	return &Handler{Field: field, Admin: admin, Sync: sync, Catalog: catalog}
}

// Pagination is the standard pagination metadata block.
type Pagination struct {
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Total    int64 `json:"total"`
}
