package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"time"

	"miam_back_end/internal/models"
	"miam_back_end/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"
)

type AuditStore interface {
	Record(ctx context.Context, l models.AuditLog) error
}

// Auditor enregistre les actions sensibles en arrière-plan via la file de tâches
type Auditor struct {
	store AuditStore
	tasks services.Enqueuer
	now   func() time.Time
}

func NewAuditor(store AuditStore, tasks services.Enqueuer) *Auditor {
	return &Auditor{store: store, tasks: tasks, now: time.Now}
}

// resourceID prend le premier paramètre de route présent
func resourceID(c *gin.Context) string {
	for _, name := range []string{"id", "code", "orderId"} {
		if v := c.Param(name); v != "" {
			return v
		}
	}
	return ""
}

// Critical audite la requête après traitement, réussie ou non
func (a *Auditor) Critical(action, resource string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body []byte
		if c.Request.Body != nil {
			body, _ = io.ReadAll(io.LimitReader(c.Request.Body, 64<<10))
			c.Request.Body = io.NopCloser(bytes.NewBuffer(body))
		}

		c.Next()

		now := a.now()
		status := c.Writer.Status()
		entry := models.AuditLog{
			ID:         gocql.UUIDFromTime(now),
			Day:        now.UTC().Format("2006-01-02"),
			UserID:     c.GetString("user_id"),
			UserEmail:  c.GetString("email"),
			Action:     action,
			Resource:   resource,
			ResourceID: resourceID(c),
			IPAddress:  c.ClientIP(),
			UserAgent:  c.GetHeader("User-Agent"),
			Success:    status >= 200 && status < 300,
			Status:     status,
			Timestamp:  now,
		}
		if entry.ResourceID == "" {
			if code, ok := c.Get("audit_resource_id"); ok {
				entry.ResourceID, _ = code.(string)
			}
		}
		if json.Valid(body) {
			entry.NewValue = string(body)
		}

		a.record(entry)
	}
}

// PriceChanges n'audite une mise à jour d'article que si le prix figure dans le body
func (a *Auditor) PriceChanges() gin.HandlerFunc {
	critical := a.Critical(models.ActionMenuPriceChange, models.ResourceMenu)
	return func(c *gin.Context) {
		bodyBytes, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.Next()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))

		var requestData map[string]any
		if json.Unmarshal(bodyBytes, &requestData) != nil {
			c.Next()
			return
		}
		if _, exists := requestData["price"]; !exists {
			c.Next()
			return
		}
		critical(c)
	}
}

func (a *Auditor) record(entry models.AuditLog) {
	ok := a.tasks.Enqueue("audit:"+entry.Action, func(ctx context.Context) error {
		return a.store.Record(ctx, entry)
	})
	if !ok {
		log.Printf("⚠️ Audit %s non enregistré (file pleine)", entry.Action)
		return
	}
	if entry.Success {
		log.Printf("📝 Audit %s sur %s %s par %s", entry.Action, entry.Resource, entry.ResourceID, entry.UserID)
	}
}
