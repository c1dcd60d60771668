// Package handlers provides HTTP handler implementations for the public API.
//
// This file defines the standard response utilities used across all
// endpoints. Every error response is an ErrorResponse with a stable code;
// Fail centralizes formatting and logs 5xx responses with request context.
//
// Example error response:
//
//	HTTP/1.1 503 Service Unavailable
//	{
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "code": "storage_unavailable",
//	  "message": "offline store unavailable"
//	}
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/neyyar-dairy/fieldsync/internal/http/middleware"
	"github.com/neyyar-dairy/fieldsync/internal/queue"
	"github.com/neyyar-dairy/fieldsync/internal/rpc"
	"github.com/neyyar-dairy/fieldsync/internal/services"
)

// ErrorResponse is the standard error envelope returned by all endpoints.
type ErrorResponse struct {
	// RequestID correlates server logs and client errors.
	RequestID string `json:"request_id,omitempty"`
	// Code is stable and machine-readable (see errors.go constants).
	Code string `json:"code"`
	// Message is human-readable and safe to show to users.
	Message string `json:"message"`
}

// Fail aborts the request with a structured error. Server errors (>= 500)
// are logged with the request-scoped logger.
func Fail(c *gin.Context, status int, code, msg string) {
	resp := ErrorResponse{
		RequestID: middleware.RequestIDFrom(c),
		Code:      code,
		Message:   msg,
	}
	if status >= http.StatusInternalServerError {
		lg := middleware.LoggerFrom(c)
		lg.Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}
	c.AbortWithStatusJSON(status, resp)
}

// failFromErr maps service-layer errors onto the HTTP taxonomy. The order
// matters: typed RPC errors first, then storage, then the generic fallback.
func failFromErr(c *gin.Context, err error) {
	var be *rpc.BusinessError
	switch {
	case errors.As(err, &be):
		// Deterministic rejection: the user must see the backend's message.
		Fail(c, http.StatusUnprocessableEntity, ErrCodeBackendRejected, be.Message)
	case errors.Is(err, services.ErrBackendUnreachable):
		Fail(c, http.StatusBadGateway, ErrCodeBackendUnreachable,
			"backend unreachable, please retry")
	case errors.Is(err, queue.ErrStorageUnavailable):
		Fail(c, http.StatusServiceUnavailable, ErrCodeStorageUnavailable,
			"offline store unavailable, transaction NOT saved")
	default:
		Fail(c, http.StatusInternalServerError, ErrCodeInternal, "internal server error")
	}
}
