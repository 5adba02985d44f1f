package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GET /vendor/analytics?from=AAAA-MM-JJ&to=AAAA-MM-JJ (par défaut: les 7 derniers jours)
func (h *Handler) VendorAnalytics(c *gin.Context) {
	to := h.Analytics.Today()
	from := to.AddDate(0, 0, -6)

	if raw := c.Query("from"); raw != "" {
		day, err := h.Analytics.ParseDay(raw)
		if err != nil {
			respondError(c, err)
			return
		}
		from = day
	}
	if raw := c.Query("to"); raw != "" {
		day, err := h.Analytics.ParseDay(raw)
		if err != nil {
			respondError(c, err)
			return
		}
		to = day
	}

	ctx, cancel := h.serviceCtx(c)
	defer cancel()

	records, err := h.Analytics.GetRange(ctx, c.GetString("user_id"), from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"from": from.Format("2006-01-02"),
		"to":   to.Format("2006-01-02"),
		"days": records,
	})
}
