package services

import (
	"context"
	"errors"
	"testing"

	"github.com/neyyar-dairy/fieldsync/internal/rpc"
)

// catalogCaller serves canned list_products / list_shops responses.
type catalogCaller struct {
	products string
	shops    string
	err      error
}

func (c *catalogCaller) Call(_ context.Context, procedure string, _ map[string]any) (rpc.Result, error) {
	if c.err != nil {
		return rpc.Result{}, c.err
	}
	switch procedure {
	case "list_products":
		return rpc.Result{Data: []byte(c.products)}, nil
	case "list_shops":
		return rpc.Result{Data: []byte(c.shops)}, nil
	}
	return rpc.Result{}, &rpc.BusinessError{Code: "42883", Message: "unknown procedure " + procedure}
}

func TestCatalogService_Refresh_PopulatesCache(t *testing.T) {
	db := newServiceDB(t)
	svc := &CatalogService{DB: db, Caller: &catalogCaller{
		products: `[{"id":1,"name":"Milk 500ml","unit":"packet","price":2600,"active":true},
		            {"id":2,"name":"Curd 1kg","unit":"tub","price":7500,"active":true}]`,
		shops: `[{"id":10,"name":"Anand Stores","route_id":1,"phone":"9400000001","balance":125000}]`,
	}}
	ctx := context.Background()

	if err := svc.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	products, total, err := svc.ListProducts(ctx, 1, 50)
	if err != nil {
		t.Fatalf("list products: %v", err)
	}
	if total != 2 || len(products) != 2 {
		t.Fatalf("expected 2 products, got total=%d len=%d", total, len(products))
	}
	if products[0].Name != "Curd 1kg" { // name ASC
		t.Fatalf("expected name-ordered listing, got %q first", products[0].Name)
	}

	shops, total, err := svc.ListShops(ctx, 0, 1, 50)
	if err != nil {
		t.Fatalf("list shops: %v", err)
	}
	if total != 1 || shops[0].BalancePaise != 125000 {
		t.Fatalf("unexpected shops: total=%d %+v", total, shops)
	}
}

func TestCatalogService_Refresh_UpsertsOnSecondRun(t *testing.T) {
	db := newServiceDB(t)
	caller := &catalogCaller{
		products: `[{"id":1,"name":"Milk 500ml","unit":"packet","price":2600,"active":true}]`,
		shops:    `[]`,
	}
	svc := &CatalogService{DB: db, Caller: caller}
	ctx := context.Background()

	if err := svc.Refresh(ctx); err != nil {
		t.Fatalf("first refresh: %v", err)
	}
	caller.products = `[{"id":1,"name":"Milk 500ml","unit":"packet","price":2800,"active":true}]`
	if err := svc.Refresh(ctx); err != nil {
		t.Fatalf("second refresh: %v", err)
	}

	products, total, err := svc.ListProducts(ctx, 1, 50)
	if err != nil || total != 1 {
		t.Fatalf("list: %v total=%d", err, total)
	}
	if products[0].PricePaise != 2800 {
		t.Fatalf("price revision not applied, got %d", products[0].PricePaise)
	}
}

func TestCatalogService_Refresh_TransientFailure_KeepsCache(t *testing.T) {
	db := newServiceDB(t)
	caller := &catalogCaller{
		products: `[{"id":1,"name":"Milk 500ml","unit":"packet","price":2600,"active":true}]`,
		shops:    `[]`,
	}
	svc := &CatalogService{DB: db, Caller: caller}
	ctx := context.Background()

	if err := svc.Refresh(ctx); err != nil {
		t.Fatalf("seed refresh: %v", err)
	}

	caller.err = &rpc.NetworkError{Procedure: "list_products", Err: errors.New("down")}
	if err := svc.Refresh(ctx); !errors.Is(err, ErrBackendUnreachable) {
		t.Fatalf("expected ErrBackendUnreachable, got %v", err)
	}

	// The stale cache still serves the POS flow.
	products, total, err := svc.ListProducts(ctx, 1, 50)
	if err != nil || total != 1 || len(products) != 1 {
		t.Fatalf("cache lost after failed refresh: %v total=%d", err, total)
	}
}

func TestCatalogService_ListProducts_EmptyCache_LazyPopulates(t *testing.T) {
	db := newServiceDB(t)
	svc := &CatalogService{DB: db, Caller: &catalogCaller{
		products: `[{"id":1,"name":"Milk 500ml","unit":"packet","price":2600,"active":true}]`,
		shops:    `[]`,
	}}

	// No Refresh has run; the first read fills the cache itself.
	products, total, err := svc.ListProducts(context.Background(), 1, 50)
	if err != nil {
		t.Fatalf("list products: %v", err)
	}
	if total != 1 || len(products) != 1 {
		t.Fatalf("lazy populate missed: total=%d len=%d", total, len(products))
	}
}

func TestCatalogService_ListProducts_EmptyCacheOffline_CatalogEmpty(t *testing.T) {
	db := newServiceDB(t)
	svc := &CatalogService{DB: db, Caller: &catalogCaller{
		err: &rpc.NetworkError{Procedure: "list_products", Err: errors.New("down")},
	}}

	_, _, err := svc.ListProducts(context.Background(), 1, 50)
	if !errors.Is(err, ErrCatalogEmpty) {
		t.Fatalf("expected ErrCatalogEmpty, got %v", err)
	}
}

func TestCatalogService_ListShops_EmptyRoute_NoRefresh(t *testing.T) {
	db := newServiceDB(t)
	caller := &catalogCaller{
		products: `[]`,
		shops:    `[{"id":10,"name":"Anand Stores","route_id":1,"phone":"","balance":0}]`,
	}
	svc := &CatalogService{DB: db, Caller: caller}
	ctx := context.Background()

	if err := svc.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	// Route 9 has no shops but the cache is populated, so an empty page is
	// the answer; a backend failure here would mean a refresh was attempted.
	caller.err = &rpc.NetworkError{Procedure: "list_shops", Err: errors.New("down")}
	shops, total, err := svc.ListShops(ctx, 9, 1, 50)
	if err != nil {
		t.Fatalf("list shops on empty route: %v", err)
	}
	if total != 0 || len(shops) != 0 {
		t.Fatalf("expected empty page, got total=%d len=%d", total, len(shops))
	}
}

func TestCatalogService_ListShops_FiltersByRoute(t *testing.T) {
	db := newServiceDB(t)
	svc := &CatalogService{DB: db, Caller: &catalogCaller{
		products: `[]`,
		shops: `[{"id":10,"name":"Anand Stores","route_id":1,"phone":"","balance":0},
		         {"id":11,"name":"Lakshmi Traders","route_id":2,"phone":"","balance":0},
		         {"id":12,"name":"City Mart","route_id":1,"phone":"","balance":0}]`,
	}}
	ctx := context.Background()

	if err := svc.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	shops, total, err := svc.ListShops(ctx, 1, 1, 50)
	if err != nil {
		t.Fatalf("list shops: %v", err)
	}
	if total != 2 || len(shops) != 2 {
		t.Fatalf("expected 2 shops on route 1, got total=%d len=%d", total, len(shops))
	}
	for _, s := range shops {
		if s.RouteID != 1 {
			t.Fatalf("route filter leaked shop %+v", s)
		}
	}
}

func TestClampPage(t *testing.T) {
	cases := []struct {
		page, size         int
		wantPage, wantSize int
	}{
		{0, 0, 1, 50},
		{-3, -1, 1, 50},
		{2, 500, 2, 200},
		{3, 25, 3, 25},
	}
	for _, tc := range cases {
		p, s := clampPage(tc.page, tc.size)
		if p != tc.wantPage || s != tc.wantSize {
			t.Fatalf("clampPage(%d,%d) = (%d,%d), want (%d,%d)", tc.page, tc.size, p, s, tc.wantPage, tc.wantSize)
		}
	}
}
