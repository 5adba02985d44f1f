package models

import (
	"time"

	"github.com/gocql/gocql"
)

// Actions auditées
const (
	ActionPromoCreate     = "promo.create"
	ActionPromoUpdate     = "promo.update"
	ActionPromoDelete     = "promo.delete"
	ActionOrderRefund     = "order.refund"
	ActionMenuPriceChange = "menu.price_change"
)

const (
	ResourcePromo = "promo"
	ResourceOrder = "order"
	ResourceMenu  = "menu_item"
)

// AuditLog trace une action sensible (admin ou restaurant)
type AuditLog struct {
	ID         gocql.UUID `json:"id"`
	Day        string     `json:"day"` // YYYY-MM-DD, clé de partition
	UserID     string     `json:"userId"`
	UserEmail  string     `json:"userEmail"`
	Action     string     `json:"action"`
	Resource   string     `json:"resource"`
	ResourceID string     `json:"resourceId,omitempty"`
	NewValue   string     `json:"newValue,omitempty"`
	IPAddress  string     `json:"ipAddress"`
	UserAgent  string     `json:"userAgent"`
	Success    bool       `json:"success"`
	Status     int        `json:"status"`
	Timestamp  time.Time  `json:"timestamp"`
}
