package repository

import (
	"context"

	"miam_back_end/internal/apperr"
	"miam_back_end/internal/models"

	"github.com/gocql/gocql"
)

type UserRepository struct {
	session *gocql.Session
}

func NewUserRepository(session *gocql.Session) *UserRepository {
	return &UserRepository{session: session}
}

// Create réserve l'email via users_by_email avant d'écrire le profil
func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	applied, err := r.session.Query(`INSERT INTO users_by_email (email, user_id) VALUES (?, ?) IF NOT EXISTS`,
		u.Email, u.ID).WithContext(ctx).MapScanCAS(map[string]any{})
	if err != nil {
		return err
	}
	if !applied {
		return apperr.ErrConflict
	}
	return r.session.Query(`INSERT INTO users (user_id, email, password, name, role, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.Password, u.Name, string(u.Role), u.CreatedAt).WithContext(ctx).Exec()
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	u := models.User{ID: id}
	var role string
	err := r.session.Query(`SELECT email, password, name, role, created_at FROM users WHERE user_id = ?`, id).
		WithContext(ctx).Scan(&u.Email, &u.Password, &u.Name, &role, &u.CreatedAt)
	if err != nil {
		return nil, notFound(err, apperr.ErrNotFound)
	}
	u.Role = models.Role(role)
	return &u, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var id string
	err := r.session.Query(`SELECT user_id FROM users_by_email WHERE email = ?`, email).WithContext(ctx).Scan(&id)
	if err != nil {
		return nil, notFound(err, apperr.ErrNotFound)
	}
	return r.GetByID(ctx, id)
}
