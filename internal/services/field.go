// Package services – FieldService
//
// This file implements FieldService, the application-level component behind
// the traveling-salesman operations: point-of-sale transactions, credit
// collection, damage reports, trip expenses, and sales returns. Each method
// stamps a client transaction id if the caller did not supply one, validates
// the payload, and hands it to the submission dispatcher, which either
// delivers it to the backend immediately or queues it durably for later
// replay.
package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/neyyar-dairy/fieldsync/internal/dispatch"
	"github.com/neyyar-dairy/fieldsync/internal/domain"
)

// Submitter is the dispatch surface FieldService needs; *dispatch.Dispatcher
// satisfies it, tests supply fakes.
type Submitter interface {
	Submit(ctx context.Context, p domain.Payload) (dispatch.Outcome, error)
}

// FieldService coordinates the offline-capable salesman transactions.
type FieldService struct {
	Dispatcher Submitter
}

// MakeSale submits a point-of-sale transaction for a shop visit.
func (s *FieldService) MakeSale(ctx context.Context, p domain.SalePayload) (dispatch.Outcome, error) {
	if p.ClientTxnID == "" {
		p.ClientTxnID = uuid.NewString()
	}
	return s.Dispatcher.Submit(ctx, p)
}

// CollectPayment submits a credit settlement collected at a shop.
func (s *FieldService) CollectPayment(ctx context.Context, p domain.PaymentPayload) (dispatch.Outcome, error) {
	if p.ClientTxnID == "" {
		p.ClientTxnID = uuid.NewString()
	}
	return s.Dispatcher.Submit(ctx, p)
}

// ReportDamage submits a damage report against a storehouse.
func (s *FieldService) ReportDamage(ctx context.Context, p domain.DamagePayload) (dispatch.Outcome, error) {
	if p.ClientTxnID == "" {
		p.ClientTxnID = uuid.NewString()
	}
	return s.Dispatcher.Submit(ctx, p)
}

// RecordExpense submits a trip expense (fuel, meals, ...).
func (s *FieldService) RecordExpense(ctx context.Context, p domain.ExpensePayload) (dispatch.Outcome, error) {
	if p.ClientTxnID == "" {
		p.ClientTxnID = uuid.NewString()
	}
	return s.Dispatcher.Submit(ctx, p)
}

// ProcessReturn submits a sales return with its refund amount.
func (s *FieldService) ProcessReturn(ctx context.Context, p domain.ReturnPayload) (dispatch.Outcome, error) {
	if p.ClientTxnID == "" {
		p.ClientTxnID = uuid.NewString()
	}
	return s.Dispatcher.Submit(ctx, p)
}
