package services

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"miam_back_end/internal/apperr"
	"miam_back_end/internal/models"

	"github.com/gocql/gocql"
)

const (
	EventNewNotification = "new-notification"
	defaultInboxLimit    = 50
	maxInboxLimit        = 200
)

// NotificationChannel est le canal pub/sub d'un utilisateur
func NotificationChannel(userID string) string {
	return "notifications:" + userID
}

type NotificationRequest struct {
	UserID   string
	Type     models.NotificationType
	Title    string
	Message  string
	Data     models.NotificationData
	Priority models.NotificationPriority
}

// NotificationService persiste les notifications puis les pousse en temps réel
type NotificationService struct {
	repo NotificationRepository
	pub  Publisher
	now  func() time.Time
}

func NewNotificationService(repo NotificationRepository, pub Publisher) *NotificationService {
	return &NotificationService{repo: repo, pub: pub, now: time.Now}
}

func (s *NotificationService) Dispatch(ctx context.Context, req NotificationRequest) (*models.Notification, error) {
	if req.UserID == "" {
		return nil, apperr.Validation("Destinataire manquant")
	}
	if req.Priority == "" {
		req.Priority = models.PriorityNormal
	}

	now := s.now()
	n := &models.Notification{
		ID:        gocql.UUIDFromTime(now),
		UserID:    req.UserID,
		Type:      req.Type,
		Title:     req.Title,
		Message:   req.Message,
		Data:      req.Data,
		Priority:  req.Priority,
		CreatedAt: now,
		ExpiresAt: now.Add(models.NotificationTTL),
	}
	if err := s.repo.Insert(ctx, n); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(models.PushEvent{
		Event: EventNewNotification,
		Data: models.PushPayload{
			ID:        n.ID.String(),
			Type:      n.Type,
			Title:     n.Title,
			Message:   n.Message,
			Priority:  n.Priority,
			CreatedAt: n.CreatedAt,
		},
	})
	if err == nil && s.pub != nil {
		err = s.pub.Publish(ctx, NotificationChannel(n.UserID), payload)
	}
	if err != nil {
		log.Printf("⚠️ Push notification %s vers %s échoué: %v", n.ID, n.UserID, err)
	}
	return n, nil
}

func (s *NotificationService) List(ctx context.Context, userID string, unreadOnly bool, limit int) ([]models.Notification, error) {
	if limit <= 0 {
		limit = defaultInboxLimit
	}
	if limit > maxInboxLimit {
		limit = maxInboxLimit
	}
	return s.repo.List(ctx, userID, unreadOnly, limit)
}

func (s *NotificationService) MarkRead(ctx context.Context, userID string, id gocql.UUID) (*models.Notification, error) {
	n, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if n.Read {
		return n, nil
	}
	now := s.now()
	if err := s.repo.MarkRead(ctx, n, now); err != nil {
		return nil, err
	}
	n.Read = true
	n.ReadAt = &now
	return n, nil
}

// MarkAllRead retourne le nombre de notifications marquées comme lues
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int, error) {
	unread, err := s.repo.List(ctx, userID, true, maxInboxLimit)
	if err != nil {
		return 0, err
	}
	now := s.now()
	for i := range unread {
		if err := s.repo.MarkRead(ctx, &unread[i], now); err != nil {
			return i, err
		}
	}
	return len(unread), nil
}

func (s *NotificationService) Delete(ctx context.Context, userID string, id gocql.UUID) error {
	if _, err := s.repo.Get(ctx, userID, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, userID, id)
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	unread, err := s.repo.List(ctx, userID, true, maxInboxLimit)
	if err != nil {
		return 0, err
	}
	return len(unread), nil
}
