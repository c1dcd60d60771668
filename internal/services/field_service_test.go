package services

import (
	"context"
	"errors"
	"testing"

	"github.com/neyyar-dairy/fieldsync/internal/dispatch"
	"github.com/neyyar-dairy/fieldsync/internal/domain"
)

// captureSubmitter records the last payload and returns a scripted outcome.
type captureSubmitter struct {
	last domain.Payload
	out  dispatch.Outcome
	err  error
}

func (c *captureSubmitter) Submit(_ context.Context, p domain.Payload) (dispatch.Outcome, error) {
	c.last = p
	return c.out, c.err
}

func TestFieldService_StampsMissingTxnID(t *testing.T) {
	sub := &captureSubmitter{out: dispatch.Outcome{Status: dispatch.StatusQueued, QueueID: 1}}
	svc := &FieldService{Dispatcher: sub}

	p := domain.PaymentPayload{ShopID: 2, AmountPaise: 5000}
	out, err := svc.CollectPayment(context.Background(), p)
	if err != nil {
		t.Fatalf("collect payment: %v", err)
	}
	if out.Status != dispatch.StatusQueued {
		t.Fatalf("outcome not propagated: %+v", out)
	}
	if sub.last.TxnID() == "" {
		t.Fatalf("service must stamp a client transaction id before dispatch")
	}
}

func TestFieldService_PreservesCallerTxnID(t *testing.T) {
	sub := &captureSubmitter{out: dispatch.Outcome{Status: dispatch.StatusDelivered}}
	svc := &FieldService{Dispatcher: sub}

	p := domain.SalePayload{
		ShopID:      4,
		Items:       []domain.SaleItem{{ProductID: 1, Qty: 2}},
		ClientTxnID: "client-chosen",
	}
	if _, err := svc.MakeSale(context.Background(), p); err != nil {
		t.Fatalf("make sale: %v", err)
	}
	if sub.last.TxnID() != "client-chosen" {
		t.Fatalf("caller-supplied txn id must survive, got %q", sub.last.TxnID())
	}
}

func TestFieldService_AllOperations_RouteTheRightKind(t *testing.T) {
	sub := &captureSubmitter{out: dispatch.Outcome{Status: dispatch.StatusDelivered}}
	svc := &FieldService{Dispatcher: sub}
	ctx := context.Background()

	cases := []struct {
		kind domain.TxnKind
		call func() error
	}{
		{domain.KindSale, func() error {
			_, err := svc.MakeSale(ctx, domain.SalePayload{ShopID: 1, Items: []domain.SaleItem{{ProductID: 1, Qty: 1}}})
			return err
		}},
		{domain.KindPayment, func() error {
			_, err := svc.CollectPayment(ctx, domain.PaymentPayload{ShopID: 1, AmountPaise: 100})
			return err
		}},
		{domain.KindDamage, func() error {
			_, err := svc.ReportDamage(ctx, domain.DamagePayload{ProductID: 1, Qty: 1, Type: "transit"})
			return err
		}},
		{domain.KindExpense, func() error {
			_, err := svc.RecordExpense(ctx, domain.ExpensePayload{Category: "fuel", AmountPaise: 100})
			return err
		}},
		{domain.KindReturn, func() error {
			_, err := svc.ProcessReturn(ctx, domain.ReturnPayload{ShopID: 1, ProductID: 1, Qty: 1, Condition: "sellable"})
			return err
		}},
	}
	for _, tc := range cases {
		if err := tc.call(); err != nil {
			t.Fatalf("%s: %v", tc.kind, err)
		}
		if sub.last.Kind() != tc.kind {
			t.Fatalf("expected kind %s, dispatched %s", tc.kind, sub.last.Kind())
		}
	}
}

func TestFieldService_PropagatesDispatchError(t *testing.T) {
	boom := errors.New("boom")
	svc := &FieldService{Dispatcher: &captureSubmitter{err: boom}}

	_, err := svc.CollectPayment(context.Background(), domain.PaymentPayload{ShopID: 1, AmountPaise: 100})
	if !errors.Is(err, boom) {
		t.Fatalf("expected dispatch error, got %v", err)
	}
}
