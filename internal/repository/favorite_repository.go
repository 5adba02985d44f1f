package repository

import (
	"context"

	"miam_back_end/internal/models"

	"github.com/gocql/gocql"
)

type FavoriteRepository struct {
	session *gocql.Session
}

func NewFavoriteRepository(session *gocql.Session) *FavoriteRepository {
	return &FavoriteRepository{session: session}
}

func (r *FavoriteRepository) Add(ctx context.Context, fav models.Favorite) error {
	return r.session.Query(`INSERT INTO favorites (user_id, menu_item_id, added_at) VALUES (?, ?, ?)`,
		fav.UserID, fav.MenuItemID, fav.AddedAt).WithContext(ctx).Exec()
}

func (r *FavoriteRepository) Remove(ctx context.Context, userID string, menuItemID gocql.UUID) error {
	return r.session.Query(`DELETE FROM favorites WHERE user_id = ? AND menu_item_id = ?`, userID, menuItemID).
		WithContext(ctx).Exec()
}

func (r *FavoriteRepository) List(ctx context.Context, userID string) ([]models.Favorite, error) {
	iter := r.session.Query(`SELECT menu_item_id, added_at FROM favorites WHERE user_id = ?`, userID).
		WithContext(ctx).Iter()
	var (
		favs []models.Favorite
		fav  = models.Favorite{UserID: userID}
	)
	for iter.Scan(&fav.MenuItemID, &fav.AddedAt) {
		favs = append(favs, fav)
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}
	return favs, nil
}
