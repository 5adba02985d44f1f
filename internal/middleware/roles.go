package middleware

import (
	"net/http"

	"miam_back_end/internal/models"

	"github.com/gin-gonic/gin"
)

// RequireRole refuse l'accès si le rôle du token n'est pas dans la liste
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := models.Role(c.GetString("role"))
		for _, r := range roles {
			if role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Accès refusé pour ce rôle", "code": "forbidden"})
	}
}
