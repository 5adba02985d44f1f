package cache

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Connect ouvre la connexion Redis et vérifie qu'elle répond
func Connect(ctx context.Context, addr, password string) (*redis.Client, error) {
	if addr == "" {
		return nil, fmt.Errorf("REDIS_HOST non configuré")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           0,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("impossible de se connecter à Redis: %w", err)
	}

	log.Println("✅ Redis connecté avec succès")
	return rdb, nil
}

// Hub relaie les notifications temps réel via le pub/sub Redis
type Hub struct {
	rdb *redis.Client
}

func NewHub(rdb *redis.Client) *Hub {
	return &Hub{rdb: rdb}
}

func (h *Hub) Publish(ctx context.Context, channel string, payload []byte) error {
	return h.rdb.Publish(ctx, channel, payload).Err()
}

// Subscribe ouvre un abonnement; l'appelant doit le fermer
func (h *Hub) Subscribe(ctx context.Context, channel string) *redis.PubSub {
	return h.rdb.Subscribe(ctx, channel)
}
