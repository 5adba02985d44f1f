package models

import (
	"time"

	"github.com/gocql/gocql"
)

type NotificationType string

const (
	NotifOrderPlaced            NotificationType = "order_placed"
	NotifOrderAccepted          NotificationType = "order_accepted"
	NotifOrderPreparing         NotificationType = "order_preparing"
	NotifOrderOutForDelivery    NotificationType = "order_out_for_delivery"
	NotifOrderDelivered         NotificationType = "order_delivered"
	NotifOrderCancelled         NotificationType = "order_cancelled"
	NotifOrderRejected          NotificationType = "order_rejected"
	NotifOrderPartiallyRejected NotificationType = "order_partially_rejected"
	NotifPaymentSucceeded       NotificationType = "payment_succeeded"
	NotifPaymentFailed          NotificationType = "payment_failed"
	NotifRefundInitiated        NotificationType = "refund_initiated"
	NotifRefundCompleted        NotificationType = "refund_completed"
	NotifPromotion              NotificationType = "promotion"
	NotifSystem                 NotificationType = "system"
)

type NotificationPriority string

const (
	PriorityLow    NotificationPriority = "low"
	PriorityNormal NotificationPriority = "normal"
	PriorityHigh   NotificationPriority = "high"
)

// NotificationTTL est la durée de vie par défaut d'une notification
const NotificationTTL = 30 * 24 * time.Hour

type NotificationData struct {
	OrderID     string  `json:"orderId,omitempty"`
	OrderNumber string  `json:"orderNumber,omitempty"`
	Amount      float64 `json:"amount,omitempty"`
	Status      string  `json:"status,omitempty"`
}

type Notification struct {
	ID        gocql.UUID           `json:"id"`
	UserID    string               `json:"userId"`
	Type      NotificationType     `json:"type"`
	Title     string               `json:"title"`
	Message   string               `json:"message"`
	Data      NotificationData     `json:"data"`
	Read      bool                 `json:"read"`
	ReadAt    *time.Time           `json:"readAt,omitempty"`
	Priority  NotificationPriority `json:"priority"`
	CreatedAt time.Time            `json:"createdAt"`
	ExpiresAt time.Time            `json:"expiresAt"`
}

// PushPayload est le contenu de l'événement "new-notification"
type PushPayload struct {
	ID        string               `json:"id"`
	Type      NotificationType     `json:"type"`
	Title     string               `json:"title"`
	Message   string               `json:"message"`
	Priority  NotificationPriority `json:"priority"`
	CreatedAt time.Time            `json:"createdAt"`
}

type PushEvent struct {
	Event string      `json:"event"`
	Data  PushPayload `json:"data"`
}
