package repository

import (
	"context"
	"time"

	"miam_back_end/internal/apperr"
	"miam_back_end/internal/models"

	"github.com/gocql/gocql"
)

const notificationColumns = `user_id, notification_id, type, title, message, data, read, read_at,
	priority, created_at, expires_at`

// NotificationRepository laisse ScyllaDB supprimer les notifications expirées (USING TTL)
type NotificationRepository struct {
	session *gocql.Session
	now     func() time.Time
}

func NewNotificationRepository(session *gocql.Session) *NotificationRepository {
	return &NotificationRepository{session: session, now: time.Now}
}

// ttlSeconds retourne la durée de vie restante, au minimum une seconde
func ttlSeconds(expiresAt, now time.Time) int {
	ttl := int(expiresAt.Sub(now).Seconds())
	if ttl < 1 {
		return 1
	}
	return ttl
}

func (r *NotificationRepository) Insert(ctx context.Context, n *models.Notification) error {
	data, err := toJSON(n.Data)
	if err != nil {
		return err
	}
	return r.session.Query(`INSERT INTO notifications (`+notificationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) USING TTL ?`,
		n.UserID, n.ID, string(n.Type), n.Title, n.Message, data, n.Read, n.ReadAt,
		string(n.Priority), n.CreatedAt, n.ExpiresAt, ttlSeconds(n.ExpiresAt, r.now()),
	).WithContext(ctx).Exec()
}

func scanNotification(scan func(dest ...any) bool) (*models.Notification, bool) {
	var (
		n                    models.Notification
		kind, data, priority string
	)
	if !scan(&n.UserID, &n.ID, &kind, &n.Title, &n.Message, &data, &n.Read, &n.ReadAt,
		&priority, &n.CreatedAt, &n.ExpiresAt) {
		return nil, false
	}
	n.Type = models.NotificationType(kind)
	n.Priority = models.NotificationPriority(priority)
	// Un payload illisible ne doit pas masquer la notification
	_ = fromJSON(data, &n.Data)
	return &n, true
}

// List parcourt la partition de l'utilisateur, plus récentes d'abord
func (r *NotificationRepository) List(ctx context.Context, userID string, unreadOnly bool, limit int) ([]models.Notification, error) {
	q := r.session.Query(`SELECT `+notificationColumns+` FROM notifications WHERE user_id = ?`, userID).
		WithContext(ctx).PageSize(limit)
	iter := q.Iter()

	out := make([]models.Notification, 0, limit)
	for len(out) < limit {
		n, ok := scanNotification(iter.Scan)
		if !ok {
			break
		}
		if unreadOnly && n.Read {
			continue
		}
		out = append(out, *n)
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *NotificationRepository) Get(ctx context.Context, userID string, id gocql.UUID) (*models.Notification, error) {
	iter := r.session.Query(`SELECT `+notificationColumns+` FROM notifications WHERE user_id = ? AND notification_id = ?`,
		userID, id).WithContext(ctx).Iter()
	n, ok := scanNotification(iter.Scan)
	if err := iter.Close(); err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.NotFound("Notification")
	}
	return n, nil
}

// MarkRead conserve l'expiration d'origine en réappliquant le TTL restant
func (r *NotificationRepository) MarkRead(ctx context.Context, n *models.Notification, at time.Time) error {
	return r.session.Query(`UPDATE notifications USING TTL ? SET read = ?, read_at = ?
		WHERE user_id = ? AND notification_id = ?`,
		ttlSeconds(n.ExpiresAt, r.now()), true, at, n.UserID, n.ID,
	).WithContext(ctx).Exec()
}

func (r *NotificationRepository) Delete(ctx context.Context, userID string, id gocql.UUID) error {
	return r.session.Query(`DELETE FROM notifications WHERE user_id = ? AND notification_id = ?`, userID, id).
		WithContext(ctx).Exec()
}
