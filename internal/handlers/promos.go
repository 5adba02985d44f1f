package handlers

import (
	"net/http"

	"miam_back_end/internal/models"
	"miam_back_end/internal/services"

	"github.com/gin-gonic/gin"
)

// POST /promos/validate
func (h *Handler) ValidatePromo(c *gin.Context) {
	var req struct {
		Code        string             `json:"code" binding:"required,max=32"`
		OrderAmount float64            `json:"orderAmount" binding:"gte=0"`
		Items       []models.PromoItem `json:"items" binding:"max=50"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	ctx, cancel := h.serviceCtx(c)
	defer cancel()

	res, err := h.Promos.Check(ctx, req.Code, req.OrderAmount, req.Items)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// GET /admin/promos
func (h *Handler) ListPromos(c *gin.Context) {
	ctx, cancel := h.serviceCtx(c)
	defer cancel()

	promos, err := h.Promos.List(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"promos": promos, "count": len(promos)})
}

// POST /admin/promos
func (h *Handler) CreatePromo(c *gin.Context) {
	var in services.PromoInput
	if err := c.ShouldBindJSON(&in); err != nil {
		bindError(c, err)
		return
	}
	ctx, cancel := h.serviceCtx(c)
	defer cancel()

	promo, err := h.Promos.Create(ctx, in, c.GetString("user_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Set("audit_resource_id", promo.Code)
	c.JSON(http.StatusCreated, promo)
}

// PATCH /admin/promos/:code
func (h *Handler) UpdatePromo(c *gin.Context) {
	var in services.PromoUpdate
	if err := c.ShouldBindJSON(&in); err != nil {
		bindError(c, err)
		return
	}
	ctx, cancel := h.serviceCtx(c)
	defer cancel()

	promo, err := h.Promos.Update(ctx, c.Param("code"), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, promo)
}

// DELETE /admin/promos/:code
func (h *Handler) DeletePromo(c *gin.Context) {
	ctx, cancel := h.serviceCtx(c)
	defer cancel()

	if err := h.Promos.Delete(ctx, c.Param("code")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
