package handlers

import (
	"net/http"

	"miam_back_end/internal/apperr"
	"miam_back_end/internal/models"
	"miam_back_end/internal/services"

	"github.com/gin-gonic/gin"
)

type createOrderRequest struct {
	VendorID      string               `json:"vendorId"`
	Items         []models.CartLine    `json:"items" binding:"required,min=1,max=50,dive"`
	PaymentMethod models.PaymentMethod `json:"paymentMethod" binding:"required,oneof=card cash"`
	PromoCode     string               `json:"promoCode" binding:"max=32"`
}

// POST /orders
func (h *Handler) CreateOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	ctx, cancel := h.serviceCtx(c)
	defer cancel()

	order, err := h.Orders.CreateOrder(ctx, services.CreateOrderInput{
		BuyerID:       c.GetString("user_id"),
		VendorID:      req.VendorID,
		Items:         req.Items,
		PaymentMethod: req.PaymentMethod,
		PromoCode:     req.PromoCode,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

// GET /orders/my-orders
func (h *Handler) ListMyOrders(c *gin.Context) {
	ctx, cancel := h.serviceCtx(c)
	defer cancel()

	orders, err := h.Orders.ListMyOrders(ctx, c.GetString("user_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders, "count": len(orders)})
}

// GET /orders/:id
func (h *Handler) GetOrder(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	ctx, cancel := h.serviceCtx(c)
	defer cancel()

	order, err := h.Orders.GetOrder(ctx, id, actor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// PATCH /orders/:id/cancel
func (h *Handler) CancelOrder(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	ctx, cancel := h.serviceCtx(c)
	defer cancel()

	order, err := h.Orders.CancelOrder(ctx, id, c.GetString("user_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// POST /orders/:id/rate
func (h *Handler) RateOrder(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req struct {
		Rating int `json:"rating" binding:"required,min=1,max=5"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	ctx, cancel := h.serviceCtx(c)
	defer cancel()

	order, err := h.Orders.RateOrder(ctx, id, c.GetString("user_id"), req.Rating)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// GET /vendor/orders?status=
func (h *Handler) ListVendorOrders(c *gin.Context) {
	var status models.OrderStatus
	if raw := c.Query("status"); raw != "" {
		status = models.ParseOrderStatus(raw)
		if !status.Valid() {
			respondError(c, apperr.Validation("Statut %q inconnu", raw))
			return
		}
	}
	ctx, cancel := h.serviceCtx(c)
	defer cancel()

	orders, err := h.Orders.ListVendorOrders(ctx, c.GetString("user_id"), status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders, "count": len(orders)})
}

type statusUpdateRequest struct {
	Status          string   `json:"status" binding:"required"`
	RejectionReason string   `json:"rejectionReason" binding:"max=500"`
	RejectedItems   []string `json:"rejectedItems" binding:"omitempty,max=50,dive,required"`
}

// PATCH /vendor/orders/:id/status
func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req statusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	status := models.ParseOrderStatus(req.Status)
	if !status.Valid() {
		respondError(c, apperr.Validation("Statut %q inconnu", req.Status))
		return
	}
	ctx, cancel := h.serviceCtx(c)
	defer cancel()

	order, err := h.Orders.UpdateOrderStatus(ctx, services.StatusUpdateInput{
		OrderID:         id,
		VendorID:        c.GetString("user_id"),
		Status:          status,
		RejectionReason: req.RejectionReason,
		RejectedItems:   req.RejectedItems,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}
