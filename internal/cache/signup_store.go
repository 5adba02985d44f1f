package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"miam_back_end/internal/apperr"
	"miam_back_end/internal/models"

	"github.com/redis/go-redis/v9"
)

// SignupStore garde les inscriptions non vérifiées dans Redis, avec expiration
type SignupStore struct {
	rdb *redis.Client
}

func NewSignupStore(rdb *redis.Client) *SignupStore {
	return &SignupStore{rdb: rdb}
}

func signupKey(email string) string {
	return "signup:" + email
}

func (s *SignupStore) Save(ctx context.Context, p *models.PendingSignup, ttl time.Duration) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, signupKey(p.Email), data, ttl).Err()
}

func (s *SignupStore) Get(ctx context.Context, email string) (*models.PendingSignup, error) {
	data, err := s.rdb.Get(ctx, signupKey(email)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var p models.PendingSignup
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *SignupStore) Delete(ctx context.Context, email string) error {
	return s.rdb.Del(ctx, signupKey(email)).Err()
}
