// Admin inventory HTTP handlers.
//
// Arrivals and reconciliations are online-only: the clerk is at the depot in
// front of the screen, and a transient failure is reported for an immediate
// interactive retry instead of being queued for blind replay.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/neyyar-dairy/fieldsync/internal/domain"
)

// AdminResultResponse wraps the backend result of an online-only operation.
type AdminResultResponse struct {
	Data any `json:"data,omitempty"`
}

// PostArrival handles POST /arrivals.
func (h *Handler) PostArrival(c *gin.Context) {
	var p domain.ArrivalPayload
	if !bindPayload(c, &p, func() error { return c.ShouldBindJSON(&p) }) {
		return
	}
	res, err := h.Admin.ProcessArrival(c.Request.Context(), p)
	if err != nil {
		failFromErr(c, err)
		return
	}
	resp := AdminResultResponse{}
	if len(res.Data) > 0 {
		resp.Data = res.Data
	}
	c.JSON(http.StatusCreated, resp)
}

// PostReconciliation handles POST /reconciliations.
func (h *Handler) PostReconciliation(c *gin.Context) {
	var p domain.ReconcilePayload
	if !bindPayload(c, &p, func() error { return c.ShouldBindJSON(&p) }) {
		return
	}
	res, err := h.Admin.ReconcileStock(c.Request.Context(), p)
	if err != nil {
		failFromErr(c, err)
		return
	}
	resp := AdminResultResponse{}
	if len(res.Data) > 0 {
		resp.Data = res.Data
	}
	c.JSON(http.StatusCreated, resp)
}
