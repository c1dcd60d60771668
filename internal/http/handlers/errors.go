// Package handlers defines HTTP-layer error codes used across all API
// endpoints. Codes are lowercase snake_case and stable: clients branch on
// them programmatically, messages are for humans.
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"

	// Domain-specific:

	// ErrCodeBackendRejected: the backend refused the transaction
	// deterministically (insufficient stock, unknown shop). Not retried.
	ErrCodeBackendRejected = "backend_rejected"
	// ErrCodeBackendUnreachable: an online-only operation could not reach
	// the backend; nothing was queued, retry interactively.
	ErrCodeBackendUnreachable = "backend_unreachable"
	// ErrCodeStorageUnavailable: the local offline store failed; the
	// transaction was neither sent nor saved.
	ErrCodeStorageUnavailable = "storage_unavailable"
	ErrCodeSyncFailed         = "sync_failed"
	ErrCodeListFailed         = "list_failed"
	// ErrCodeCatalogEmpty: the catalog cache has never been populated and
	// the backend could not be reached to fill it.
	ErrCodeCatalogEmpty = "catalog_empty"
)
