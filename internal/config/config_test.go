package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("STRIPE_TIMEOUT", "")
	t.Setenv("ORDER_NUMBER_PREFIX", "")
	t.Setenv("ANALYTICS_TIMEZONE", "")

	cfg := FromEnv()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 10*time.Second, cfg.StripeTimeout)
	assert.Equal(t, "ORD", cfg.OrderNumberPrefix)
	assert.Equal(t, time.UTC, cfg.AnalyticsLocation)
	assert.Equal(t, "miam_orders", cfg.Scylla.OrdersKS)
	assert.Equal(t, 20, cfg.Scylla.NumConns)
	assert.Equal(t, "menu-images", cfg.MinIO.Bucket)
	assert.Equal(t, Argon2Config{Time: 1, MemoryKB: 32 * 1024, Threads: 4}, cfg.Argon2)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("STRIPE_TIMEOUT", "3s")
	t.Setenv("TASK_WORKERS", "abc")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test,")
	t.Setenv("CURRENCY", "EUR")
	t.Setenv("SCYLLA_HOSTS", "10.0.0.1,10.0.0.2")
	t.Setenv("SCYLLA_SSL_ENABLED", "TRUE")

	cfg := FromEnv()
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 3*time.Second, cfg.StripeTimeout)
	assert.Equal(t, 4, cfg.TaskWorkers)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)
	assert.Equal(t, "eur", cfg.Currency)
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, cfg.Scylla.Hosts)
	assert.True(t, cfg.Scylla.SSLEnabled)
}

func TestArgon2CostIsBounded(t *testing.T) {
	t.Setenv("ARGON2_TIME", "3")
	t.Setenv("ARGON2_MEMORY_KB", "1024")
	t.Setenv("ARGON2_THREADS", "300")

	cfg := FromEnv()
	assert.Equal(t, uint32(3), cfg.Argon2.Time)
	assert.Equal(t, uint32(32*1024), cfg.Argon2.MemoryKB)
	assert.Equal(t, uint8(4), cfg.Argon2.Threads)
}
