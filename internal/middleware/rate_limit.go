package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const (
	LoginMaxAttempts    = 5
	RegisterMaxAttempts = 3
	APIMaxRequests      = 100 // par minute

	LoginCooldown    = 15 * time.Minute
	RegisterCooldown = 30 * time.Minute
	APIWindow        = 1 * time.Minute
)

// RateLimiter compte les requêtes dans Redis; si Redis est indisponible on laisse passer
type RateLimiter struct {
	rdb *redis.Client
}

func NewRateLimiter(rdb *redis.Client) *RateLimiter {
	return &RateLimiter{rdb: rdb}
}

func tooMany(c *gin.Context, message string, retryAfter time.Duration) {
	c.Header("Retry-After", fmt.Sprintf("%d", int(retryAfter.Seconds())))
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
		"error":       message,
		"code":        "rate_limited",
		"retry_after": int(retryAfter.Seconds()),
	})
}

// peekEmail lit l'email du body JSON sans le consommer
func peekEmail(c *gin.Context) string {
	bodyBytes, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return ""
	}
	c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))

	var input struct {
		Email string `json:"email"`
	}
	if json.Unmarshal(bodyBytes, &input) != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(input.Email))
}

// Login bloque un email après LoginMaxAttempts échecs (401) consécutifs
func (rl *RateLimiter) Login() gin.HandlerFunc {
	return func(c *gin.Context) {
		email := peekEmail(c)
		if email == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		key := "login_attempts:" + email
		cooldownKey := "login_cooldown:" + email

		if ttl, err := rl.rdb.TTL(ctx, cooldownKey).Result(); err == nil && ttl > 0 {
			tooMany(c, fmt.Sprintf("Trop de tentatives échouées. Réessayez dans %d minutes", int(ttl.Minutes())+1), ttl)
			return
		}

		attempts, err := rl.rdb.Get(ctx, key).Int()
		if err != nil && !errors.Is(err, redis.Nil) {
			log.Printf("⚠️ Rate limit login indisponible: %v", err)
		}
		if attempts >= LoginMaxAttempts {
			rl.rdb.Set(ctx, cooldownKey, "1", LoginCooldown)
			rl.rdb.Del(ctx, key)
			tooMany(c, fmt.Sprintf("Trop de tentatives échouées. Compte bloqué pendant %d minutes", int(LoginCooldown.Minutes())), LoginCooldown)
			return
		}

		c.Next()

		switch c.Writer.Status() {
		case http.StatusUnauthorized:
			pipe := rl.rdb.Pipeline()
			pipe.Incr(ctx, key)
			pipe.Expire(ctx, key, LoginCooldown)
			if _, err := pipe.Exec(ctx); err != nil {
				log.Printf("⚠️ Compteur login non mis à jour: %v", err)
			}
		case http.StatusOK:
			rl.rdb.Del(ctx, key, cooldownKey)
		}
	}
}

// Register limite les inscriptions réussies par IP
func (rl *RateLimiter) Register() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		key := "register_attempts:" + c.ClientIP()

		attempts, _ := rl.rdb.Get(ctx, key).Int()
		if attempts >= RegisterMaxAttempts {
			ttl, _ := rl.rdb.TTL(ctx, key).Result()
			if ttl <= 0 {
				ttl = RegisterCooldown
			}
			tooMany(c, fmt.Sprintf("Trop d'inscriptions. Réessayez dans %d minutes", int(ttl.Minutes())+1), ttl)
			return
		}

		c.Next()

		if status := c.Writer.Status(); status >= 200 && status < 300 {
			pipe := rl.rdb.Pipeline()
			pipe.Incr(ctx, key)
			pipe.Expire(ctx, key, RegisterCooldown)
			pipe.Exec(ctx)
		}
	}
}

// Limit applique une fenêtre fixe de max requêtes, par utilisateur si connecté, sinon par IP
func (rl *RateLimiter) Limit(prefix string, max int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		subject := c.GetString("user_id")
		if subject == "" {
			subject = c.ClientIP()
		}
		ctx := c.Request.Context()
		key := prefix + ":" + subject

		n, err := rl.rdb.Incr(ctx, key).Result()
		if err != nil {
			log.Printf("⚠️ Rate limit %s indisponible: %v", prefix, err)
			c.Next()
			return
		}
		if n == 1 {
			rl.rdb.Expire(ctx, key, window)
		}

		count := int(n)
		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", max))
		if count > max {
			c.Header("X-RateLimit-Remaining", "0")
			tooMany(c, "Trop de requêtes. Réessayez plus tard", window)
			return
		}
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", max-count))
		c.Next()
	}
}

// API est la limite générale appliquée à toutes les routes
func (rl *RateLimiter) API() gin.HandlerFunc {
	return rl.Limit("api_requests", APIMaxRequests, APIWindow)
}
