package services

import (
	"context"
	"errors"
	"log"
	"time"

	"miam_back_end/internal/apperr"
	"miam_back_end/internal/models"

	"github.com/gocql/gocql"
)

type FavoriteService struct {
	repo FavoriteRepository
	menu MenuReader
}

func NewFavoriteService(repo FavoriteRepository, menu MenuReader) *FavoriteService {
	return &FavoriteService{repo: repo, menu: menu}
}

func (s *FavoriteService) Add(ctx context.Context, userID string, menuItemID gocql.UUID) error {
	if _, err := s.menu.Get(ctx, menuItemID); err != nil {
		return err
	}
	return s.repo.Add(ctx, models.Favorite{UserID: userID, MenuItemID: menuItemID, AddedAt: time.Now()})
}

func (s *FavoriteService) Remove(ctx context.Context, userID string, menuItemID gocql.UUID) error {
	return s.repo.Remove(ctx, userID, menuItemID)
}

// List retourne les articles favoris; ceux supprimés du menu sont ignorés
func (s *FavoriteService) List(ctx context.Context, userID string) (*models.FavoriteList, error) {
	favs, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	list := &models.FavoriteList{UserID: userID, Items: []models.MenuItem{}}
	for _, f := range favs {
		item, err := s.menu.Get(ctx, f.MenuItemID)
		if errors.Is(err, apperr.ErrNotFound) {
			continue
		}
		if err != nil {
			log.Printf("⚠️ Favori %s illisible: %v", f.MenuItemID, err)
			continue
		}
		list.Items = append(list.Items, *item)
	}
	return list, nil
}
