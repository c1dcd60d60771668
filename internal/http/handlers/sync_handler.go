// Sync HTTP handlers: the "sync now" trigger, the pending badge, and the
// dead-letter listing.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/neyyar-dairy/fieldsync/internal/http/middleware"
	"github.com/neyyar-dairy/fieldsync/internal/utils"
)

// PostSync handles POST /sync, a user-initiated flush of the offline queue.
// Reporting failures in the body (rather than a non-2xx status) keeps a
// partially failed drain distinguishable from a broken endpoint.
func (h *Handler) PostSync(c *gin.Context) {
	report, err := h.Sync.SyncNow(c.Request.Context())
	if err != nil {
		lg := middleware.LoggerFrom(c)
		lg.Error().Err(err).Msg("manual sync failed")
		Fail(c, http.StatusServiceUnavailable, ErrCodeSyncFailed, "sync failed, queue untouched")
		return
	}
	c.JSON(http.StatusOK, report)
}

// GetSyncStatus handles GET /sync/status.
func (h *Handler) GetSyncStatus(c *gin.Context) {
	st, err := h.Sync.Status(c.Request.Context())
	if err != nil {
		failFromErr(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// GetDeadLetters handles GET /sync/dead-letters.
func (h *Handler) GetDeadLetters(c *gin.Context) {
	limit := utils.AtoiDefault(c.Query("limit"), 50)
	if limit < 1 || limit > 500 {
		limit = 50
	}
	items, err := h.Sync.DeadLetters(c.Request.Context(), limit)
	if err != nil {
		Fail(c, http.StatusInternalServerError, ErrCodeListFailed, "could not list dead letters")
		return
	}
	c.JSON(http.StatusOK, gin.H{"dead_letters": items})
}
