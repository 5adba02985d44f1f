package handlers

import (
	"net/http"

	"miam_back_end/internal/apperr"
	"miam_back_end/internal/services"

	"github.com/gin-gonic/gin"
)

const maxImageBytes = 5 << 20

// GET /menu?category=
func (h *Handler) ListMenu(c *gin.Context) {
	ctx, cancel := h.serviceCtx(c)
	defer cancel()

	items, err := h.Menu.List(ctx, c.Query("category"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "count": len(items)})
}

// GET /menu/search?q=
func (h *Handler) SearchMenu(c *gin.Context) {
	ctx, cancel := h.serviceCtx(c)
	defer cancel()

	items, err := h.Menu.Search(ctx, c.Query("q"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "count": len(items)})
}

// GET /menu/:id
func (h *Handler) GetMenuItem(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	ctx, cancel := h.serviceCtx(c)
	defer cancel()

	item, err := h.Menu.Get(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// GET /vendor/menu
func (h *Handler) ListVendorMenu(c *gin.Context) {
	ctx, cancel := h.serviceCtx(c)
	defer cancel()

	items, err := h.Menu.ListByVendor(ctx, c.GetString("user_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "count": len(items)})
}

// POST /vendor/menu
func (h *Handler) CreateMenuItem(c *gin.Context) {
	var in services.MenuItemInput
	if err := c.ShouldBindJSON(&in); err != nil {
		bindError(c, err)
		return
	}
	ctx, cancel := h.serviceCtx(c)
	defer cancel()

	item, err := h.Menu.Create(ctx, c.GetString("user_id"), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

// PUT /vendor/menu/:id
func (h *Handler) UpdateMenuItem(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var in services.MenuItemInput
	if err := c.ShouldBindJSON(&in); err != nil {
		bindError(c, err)
		return
	}
	ctx, cancel := h.serviceCtx(c)
	defer cancel()

	item, err := h.Menu.Update(ctx, c.GetString("user_id"), id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// PATCH /vendor/menu/:id/availability
func (h *Handler) SetMenuAvailability(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req struct {
		Available *bool `json:"available" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	ctx, cancel := h.serviceCtx(c)
	defer cancel()

	item, err := h.Menu.SetAvailability(ctx, c.GetString("user_id"), id, *req.Available)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// POST /vendor/menu/:id/image (multipart, champ "image")
func (h *Handler) UploadMenuImage(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxImageBytes+1<<20)
	fileHeader, err := c.FormFile("image")
	if err != nil {
		respondError(c, apperr.Validation("Champ 'image' manquant"))
		return
	}
	if fileHeader.Size > maxImageBytes {
		respondError(c, apperr.Validation("Image trop volumineuse (5 Mo max)"))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		respondError(c, apperr.Validation("Fichier illisible"))
		return
	}
	defer file.Close()

	ctx, cancel := h.serviceCtx(c)
	defer cancel()

	item, err := h.Menu.UploadImage(ctx, c.GetString("user_id"), id, fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"), fileHeader.Size, file)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}
