package handlers

import (
	"net/http"

	"miam_back_end/internal/apperr"
	"miam_back_end/internal/services"

	"github.com/gin-gonic/gin"
)

// POST /auth/register
func (h *Handler) Register(c *gin.Context) {
	var in services.RegisterInput
	if err := c.ShouldBindJSON(&in); err != nil {
		bindError(c, err)
		return
	}
	ctx, cancel := h.serviceCtx(c)
	defer cancel()

	if err := h.Auth.Register(ctx, in); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "Code de vérification envoyé par email"})
}

// POST /auth/verify
func (h *Handler) Verify(c *gin.Context) {
	var in struct {
		Email string `json:"email" binding:"required,email"`
		Code  string `json:"code" binding:"required,len=6,numeric"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		bindError(c, err)
		return
	}
	ctx, cancel := h.serviceCtx(c)
	defer cancel()

	res, err := h.Auth.Verify(ctx, in.Email, in.Code)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// POST /auth/login
func (h *Handler) Login(c *gin.Context) {
	var in struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		bindError(c, err)
		return
	}
	ctx, cancel := h.serviceCtx(c)
	defer cancel()

	res, err := h.Auth.Login(ctx, in.Email, in.Password)
	if apperr.KindOf(err) == apperr.KindUnauthorized {
		// 401 pour que le rate limiter compte l'échec
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Identifiants invalides", "code": "invalid_credentials"})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// GET /auth/me
func (h *Handler) Me(c *gin.Context) {
	ctx, cancel := h.serviceCtx(c)
	defer cancel()

	user, err := h.Auth.Me(ctx, c.GetString("user_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
