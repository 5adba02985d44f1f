package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"miam_back_end/internal/apperr"
	"miam_back_end/internal/models"
	"miam_back_end/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"
	"github.com/redis/go-redis/v9"
)

// Subscriber ouvre un abonnement pub/sub (le Hub Redis en production)
type Subscriber interface {
	Subscribe(ctx context.Context, channel string) *redis.PubSub
}

// Handler regroupe les services exposés par l'API HTTP
type Handler struct {
	Auth          *services.AuthService
	Orders        *services.OrderService
	Payments      *services.PaymentService
	Promos        *services.PromoService
	Notifications *services.NotificationService
	Menu          *services.MenuService
	Favorites     *services.FavoriteService
	Analytics     *services.AnalyticsService
	Hub           Subscriber
	// HealthChecks est appelé par GET /health, une entrée par dépendance
	HealthChecks map[string]func(ctx context.Context) error
	// RequestTimeout borne chaque appel de service, même si le client se déconnecte
	RequestTimeout time.Duration
}

// serviceCtx détache le contexte de l'annulation de la requête tout en le bornant
func (h *Handler) serviceCtx(c *gin.Context) (context.Context, context.CancelFunc) {
	timeout := h.RequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return context.WithTimeout(context.WithoutCancel(c.Request.Context()), timeout)
}

// respondError traduit une erreur métier en réponse JSON {"error", "code"}
func respondError(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	code := string(apperr.KindOf(err))
	if status == http.StatusInternalServerError {
		log.Printf("❌ %s %s: %v", c.Request.Method, c.FullPath(), err)
		code = "internal_error"
	}
	c.AbortWithStatusJSON(status, gin.H{"error": apperr.PublicMessage(err), "code": code})
}

// bindError répond 400 pour un body ou une query invalide
func bindError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"error": "Données invalides: " + err.Error(),
		"code":  string(apperr.KindValidation),
	})
}

func actor(c *gin.Context) services.Actor {
	return services.Actor{UserID: c.GetString("user_id"), Role: models.Role(c.GetString("role"))}
}

func uuidParam(c *gin.Context, name string) (gocql.UUID, bool) {
	id, err := gocql.ParseUUID(c.Param(name))
	if err != nil {
		respondError(c, apperr.Validation("Identifiant %s invalide", name))
		return gocql.UUID{}, false
	}
	return id, true
}
