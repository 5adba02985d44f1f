package handlers

import (
	"io"
	"log"
	"net/http"

	"miam_back_end/internal/apperr"

	"github.com/gin-gonic/gin"
)

const maxWebhookBytes = int64(65536)

// POST /payments/create-payment-intent/:orderId
func (h *Handler) CreatePaymentIntent(c *gin.Context) {
	id, ok := uuidParam(c, "orderId")
	if !ok {
		return
	}
	ctx, cancel := h.serviceCtx(c)
	defer cancel()

	res, err := h.Payments.CreatePaymentIntent(ctx, id, c.GetString("user_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// POST /payments/webhook, le body brut est nécessaire à la vérification de signature
func (h *Handler) StripeWebhook(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBytes)
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		respondError(c, apperr.Validation("Échec lecture body"))
		return
	}
	ctx, cancel := h.serviceCtx(c)
	defer cancel()

	if err := h.Payments.HandleWebhook(ctx, payload, c.GetHeader("Stripe-Signature")); err != nil {
		log.Printf("⚠️ Webhook Stripe non traité: %v", err)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}

// POST /payments/refund/:orderId (admin ou restaurant propriétaire)
func (h *Handler) RefundOrder(c *gin.Context) {
	id, ok := uuidParam(c, "orderId")
	if !ok {
		return
	}
	var req struct {
		Amount float64 `json:"amount" binding:"gt=0"`
		Reason string  `json:"reason" binding:"max=500"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	ctx, cancel := h.serviceCtx(c)
	defer cancel()

	order, err := h.Payments.RequestRefund(ctx, actor(c), id, req.Amount, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"orderId":        order.ID,
		"refundId":       order.RefundID,
		"refundStatus":   order.RefundStatus,
		"refundedAmount": order.RefundedAmount,
	})
}
