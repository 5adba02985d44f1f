package handlers

import (
	"net/http"

	"miam_back_end/internal/apperr"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"
)

// GET /favorites
func (h *Handler) ListFavorites(c *gin.Context) {
	ctx, cancel := h.serviceCtx(c)
	defer cancel()

	list, err := h.Favorites.List(ctx, c.GetString("user_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// POST /favorites
func (h *Handler) AddFavorite(c *gin.Context) {
	var req struct {
		MenuItemID string `json:"menuItemId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	id, err := gocql.ParseUUID(req.MenuItemID)
	if err != nil {
		respondError(c, apperr.Validation("menuItemId invalide"))
		return
	}
	ctx, cancel := h.serviceCtx(c)
	defer cancel()

	if err := h.Favorites.Add(ctx, c.GetString("user_id"), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"menuItemId": id})
}

// DELETE /favorites/:menuItemId
func (h *Handler) RemoveFavorite(c *gin.Context) {
	id, ok := uuidParam(c, "menuItemId")
	if !ok {
		return
	}
	ctx, cancel := h.serviceCtx(c)
	defer cancel()

	if err := h.Favorites.Remove(ctx, c.GetString("user_id"), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
