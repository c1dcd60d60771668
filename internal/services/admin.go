// Package services – AdminService
//
// This file implements AdminService, which owns the depot-side inventory
// operations: the morning arrival split and stock reconciliation. Unlike the
// field transactions these are online-only: a queued arrival replayed hours
// later would corrupt the storehouse splits the clerk has since corrected by
// hand, so a transient failure is surfaced for an interactive retry instead
// of being queued.
package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/neyyar-dairy/fieldsync/internal/domain"
	"github.com/neyyar-dairy/fieldsync/internal/rpc"
)

// OnlineSubmitter is the direct-delivery surface AdminService needs;
// *dispatch.Dispatcher satisfies it.
type OnlineSubmitter interface {
	SubmitOnline(ctx context.Context, p domain.Payload) (rpc.Result, error)
}

// AdminService coordinates online-only inventory administration.
type AdminService struct {
	Dispatcher OnlineSubmitter
}

// ProcessArrival records the daily incoming stock and its split across the
// GVM and Vengannor storehouses. Transient failures map to
// ErrBackendUnreachable; business rejections pass through untouched.
func (s *AdminService) ProcessArrival(ctx context.Context, p domain.ArrivalPayload) (rpc.Result, error) {
	if p.ClientTxnID == "" {
		p.ClientTxnID = uuid.NewString()
	}
	res, err := s.Dispatcher.SubmitOnline(ctx, p)
	if rpc.IsTransient(err) {
		return rpc.Result{}, ErrBackendUnreachable
	}
	return res, err
}

// ReconcileStock applies an adjustment closing the gap between the system
// quantity and a physical count.
func (s *AdminService) ReconcileStock(ctx context.Context, p domain.ReconcilePayload) (rpc.Result, error) {
	if p.ClientTxnID == "" {
		p.ClientTxnID = uuid.NewString()
	}
	res, err := s.Dispatcher.SubmitOnline(ctx, p)
	if rpc.IsTransient(err) {
		return rpc.Result{}, ErrBackendUnreachable
	}
	return res, err
}
