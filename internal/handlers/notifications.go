package handlers

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"miam_back_end/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	wsPingInterval = 30 * time.Second
	wsWriteTimeout = 10 * time.Second
)

// GET /notifications?unread=true&limit=50
func (h *Handler) ListNotifications(c *gin.Context) {
	unreadOnly := c.Query("unread") == "true"
	limit, _ := strconv.Atoi(c.Query("limit"))

	ctx, cancel := h.serviceCtx(c)
	defer cancel()

	list, err := h.Notifications.List(ctx, c.GetString("user_id"), unreadOnly, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": list, "count": len(list)})
}

// GET /notifications/unread-count
func (h *Handler) UnreadCount(c *gin.Context) {
	ctx, cancel := h.serviceCtx(c)
	defer cancel()

	n, err := h.Notifications.UnreadCount(ctx, c.GetString("user_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": n})
}

// PATCH /notifications/:id/read
func (h *Handler) MarkNotificationRead(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	ctx, cancel := h.serviceCtx(c)
	defer cancel()

	n, err := h.Notifications.MarkRead(ctx, c.GetString("user_id"), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, n)
}

// PATCH /notifications/read-all
func (h *Handler) MarkAllNotificationsRead(c *gin.Context) {
	ctx, cancel := h.serviceCtx(c)
	defer cancel()

	n, err := h.Notifications.MarkAllRead(ctx, c.GetString("user_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": n})
}

// DELETE /notifications/:id
func (h *Handler) DeleteNotification(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	ctx, cancel := h.serviceCtx(c)
	defer cancel()

	if err := h.Notifications.Delete(ctx, c.GetString("user_id"), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// NotificationUpgrader est remplacé au démarrage pour restreindre les origines
var NotificationUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// GET /notifications/ws relaie le canal Redis de l'utilisateur sur le WebSocket
func (h *Handler) NotificationsWebSocket(c *gin.Context) {
	userID := c.GetString("user_id")

	conn, err := NotificationUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("❌ Erreur upgrade WebSocket: %v", err)
		return
	}
	defer conn.Close()

	ctx := c.Request.Context()
	pubsub := h.Hub.Subscribe(ctx, services.NotificationChannel(userID))
	defer pubsub.Close()
	ch := pubsub.Channel()

	// Lecture en fond pour détecter la fermeture côté client
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := conn.WriteJSON(gin.H{"event": "connected", "data": gin.H{"channel": services.NotificationChannel(userID)}}); err != nil {
		return
	}

	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			// Le payload est déjà l'événement JSON {"event":"new-notification",...}
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload)); err != nil {
				log.Printf("❌ Erreur envoi WebSocket: %v", err)
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
				return
			}
		case <-closed:
			return
		case <-ctx.Done():
			return
		}
	}
}
