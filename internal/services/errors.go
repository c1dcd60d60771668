// Package services defines the business logic for field transactions, admin
// inventory operations, catalog reads, and queue synchronization. This file
// centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// Translation into user-facing messages or HTTP status codes is performed at
// the handler layer.
package services

import "errors"

var (
	// ErrBackendUnreachable is returned by online-only operations when
	// delivery failed transiently. The caller should retry interactively;
	// nothing was queued.
	ErrBackendUnreachable = errors.New("backend unreachable")

	// ErrCatalogEmpty is returned when a catalog read finds no cached rows
	// and the backend cannot be reached to populate them.
	ErrCatalogEmpty = errors.New("catalog cache is empty")
)
