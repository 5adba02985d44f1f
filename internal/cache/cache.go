package cache

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"miam_back_end/internal/models"
	"miam_back_end/internal/services"

	"github.com/gocql/gocql"
	"github.com/redis/go-redis/v9"
)

const (
	UserCacheTTL = 5 * time.Minute
	MenuCacheTTL = 10 * time.Minute
)

func getJSON[T any](ctx context.Context, rdb *redis.Client, key string) (*T, bool) {
	data, err := rdb.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var v T
	if json.Unmarshal(data, &v) != nil {
		return nil, false
	}
	return &v, true
}

func setJSON(ctx context.Context, rdb *redis.Client, key string, v any, ttl time.Duration) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := rdb.Set(ctx, key, data, ttl).Err(); err != nil {
		log.Printf("⚠️ Mise en cache de %s impossible: %v", key, err)
	}
}

// MenuCache met en cache les lectures d'articles utilisées à chaque commande
type MenuCache struct {
	services.MenuRepository
	rdb *redis.Client
}

func NewMenuCache(repo services.MenuRepository, rdb *redis.Client) *MenuCache {
	return &MenuCache{MenuRepository: repo, rdb: rdb}
}

func menuKey(id gocql.UUID) string {
	return "menu_item:" + id.String()
}

func (c *MenuCache) Get(ctx context.Context, id gocql.UUID) (*models.MenuItem, error) {
	if item, ok := getJSON[models.MenuItem](ctx, c.rdb, menuKey(id)); ok {
		return item, nil
	}
	item, err := c.MenuRepository.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	setJSON(ctx, c.rdb, menuKey(id), item, MenuCacheTTL)
	return item, nil
}

func (c *MenuCache) Save(ctx context.Context, item *models.MenuItem) error {
	if err := c.MenuRepository.Save(ctx, item); err != nil {
		return err
	}
	c.rdb.Del(ctx, menuKey(item.ID))
	return nil
}

// UserCache met en cache les utilisateurs lus par identifiant
type UserCache struct {
	services.UserRepository
	rdb *redis.Client
}

func NewUserCache(repo services.UserRepository, rdb *redis.Client) *UserCache {
	return &UserCache{UserRepository: repo, rdb: rdb}
}

// GetByID ne met jamais en cache le hash du mot de passe (champ non sérialisé)
func (c *UserCache) GetByID(ctx context.Context, id string) (*models.User, error) {
	key := "user:" + id
	if u, ok := getJSON[models.User](ctx, c.rdb, key); ok {
		return u, nil
	}
	u, err := c.UserRepository.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	setJSON(ctx, c.rdb, key, u, UserCacheTTL)
	return u, nil
}
