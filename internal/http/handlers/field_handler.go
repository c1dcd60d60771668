// Field transaction HTTP handlers.
//
// These endpoints accept the traveling-salesman transactions. Each returns
// 201 when the backend accepted the transaction synchronously, or 202 when
// it was saved to the offline queue for later replay. A queued submission
// is a success from the salesman's point of view, not an error.
//
// Clients may supply their own client_txn_id (required to survive app-side
// retries across restarts); otherwise the gateway generates one.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/neyyar-dairy/fieldsync/internal/dispatch"
	"github.com/neyyar-dairy/fieldsync/internal/domain"
	"github.com/neyyar-dairy/fieldsync/internal/utils"
)

// SubmitResponse is the envelope for offline-capable submissions.
type SubmitResponse struct {
	Status string `json:"status"` // "delivered" | "queued"
	// QueueID is set when Status is "queued".
	QueueID uint `json:"queue_id,omitempty"`
	// Data carries the backend result when Status is "delivered".
	Data any `json:"data,omitempty"`
	// AmountDisplay is a formatted rupee amount for receipts, when the
	// transaction carries a single amount.
	AmountDisplay string `json:"amount_display,omitempty"`
	Message       string `json:"message,omitempty"`
}

// bindPayload binds the JSON body into p and runs payload validation.
// Validation failures are client errors; the txn id check is skipped here
// because the service stamps a fresh id when the client sent none.
func bindPayload(c *gin.Context, p domain.Payload, bind func() error) bool {
	if err := bind(); err != nil {
		Fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid payload: "+err.Error())
		return false
	}
	if err := p.Validate(); err != nil && !errors.Is(err, domain.ErrMissingTxnID) {
		Fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return false
	}
	return true
}

// respondOutcome writes the uniform submit envelope.
func respondOutcome(c *gin.Context, out dispatch.Outcome, amountPaise int64) {
	resp := SubmitResponse{Status: string(out.Status)}
	if amountPaise > 0 {
		resp.AmountDisplay = utils.FormatINR(amountPaise)
	}
	switch out.Status {
	case dispatch.StatusDelivered:
		if len(out.Result.Data) > 0 {
			resp.Data = out.Result.Data
		}
		c.JSON(http.StatusCreated, resp)
	default:
		resp.QueueID = out.QueueID
		resp.Message = "saved offline, will sync when connected"
		c.JSON(http.StatusAccepted, resp)
	}
}

// PostSale handles POST /sales.
func (h *Handler) PostSale(c *gin.Context) {
	var p domain.SalePayload
	if !bindPayload(c, &p, func() error { return c.ShouldBindJSON(&p) }) {
		return
	}
	out, err := h.Field.MakeSale(c.Request.Context(), p)
	if err != nil {
		failFromErr(c, err)
		return
	}
	respondOutcome(c, out, p.CashCollected)
}

// PostPayment handles POST /payments.
func (h *Handler) PostPayment(c *gin.Context) {
	var p domain.PaymentPayload
	if !bindPayload(c, &p, func() error { return c.ShouldBindJSON(&p) }) {
		return
	}
	out, err := h.Field.CollectPayment(c.Request.Context(), p)
	if err != nil {
		failFromErr(c, err)
		return
	}
	respondOutcome(c, out, p.AmountPaise)
}

// PostDamage handles POST /damages.
func (h *Handler) PostDamage(c *gin.Context) {
	var p domain.DamagePayload
	if !bindPayload(c, &p, func() error { return c.ShouldBindJSON(&p) }) {
		return
	}
	out, err := h.Field.ReportDamage(c.Request.Context(), p)
	if err != nil {
		failFromErr(c, err)
		return
	}
	respondOutcome(c, out, 0)
}

// PostExpense handles POST /expenses.
func (h *Handler) PostExpense(c *gin.Context) {
	var p domain.ExpensePayload
	if !bindPayload(c, &p, func() error { return c.ShouldBindJSON(&p) }) {
		return
	}
	out, err := h.Field.RecordExpense(c.Request.Context(), p)
	if err != nil {
		failFromErr(c, err)
		return
	}
	respondOutcome(c, out, p.AmountPaise)
}

// PostReturn handles POST /returns.
func (h *Handler) PostReturn(c *gin.Context) {
	var p domain.ReturnPayload
	if !bindPayload(c, &p, func() error { return c.ShouldBindJSON(&p) }) {
		return
	}
	out, err := h.Field.ProcessReturn(c.Request.Context(), p)
	if err != nil {
		failFromErr(c, err)
		return
	}
	respondOutcome(c, out, p.RefundPaise)
}
