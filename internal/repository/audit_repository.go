package repository

import (
	"context"

	"miam_back_end/internal/models"

	"github.com/gocql/gocql"
)

type AuditRepository struct {
	session *gocql.Session
}

func NewAuditRepository(session *gocql.Session) *AuditRepository {
	return &AuditRepository{session: session}
}

func (r *AuditRepository) Record(ctx context.Context, l models.AuditLog) error {
	return r.session.Query(`INSERT INTO audit_logs (day, id, user_id, user_email, action, resource, resource_id,
		new_value, ip_address, user_agent, success, status, timestamp) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.Day, l.ID, l.UserID, l.UserEmail, l.Action, l.Resource, l.ResourceID,
		l.NewValue, l.IPAddress, l.UserAgent, l.Success, l.Status, l.Timestamp,
	).WithContext(ctx).Exec()
}

// ListDay retourne les actions d'une journée, plus récentes d'abord
func (r *AuditRepository) ListDay(ctx context.Context, day string, limit int) ([]models.AuditLog, error) {
	iter := r.session.Query(`SELECT day, id, user_id, user_email, action, resource, resource_id, new_value,
		ip_address, user_agent, success, status, timestamp FROM audit_logs WHERE day = ? LIMIT ?`, day, limit).
		WithContext(ctx).Iter()
	var (
		logs []models.AuditLog
		l    models.AuditLog
	)
	for iter.Scan(&l.Day, &l.ID, &l.UserID, &l.UserEmail, &l.Action, &l.Resource, &l.ResourceID, &l.NewValue,
		&l.IPAddress, &l.UserAgent, &l.Success, &l.Status, &l.Timestamp) {
		logs = append(logs, l)
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}
	return logs, nil
}
