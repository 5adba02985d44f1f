package database

import (
	"testing"
	"time"

	"miam_back_end/internal/config"

	"github.com/gocql/gocql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCluster(t *testing.T) {
	cfg := config.ScyllaConfig{
		Hosts:    []string{"10.0.0.1", "10.0.0.2"},
		Username: "miam",
		Password: "secret",
		Timeout:  3 * time.Second,
		NumConns: 8,
	}

	cluster := NewCluster(cfg, "miam_orders")
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, cluster.Hosts)
	assert.Equal(t, "miam_orders", cluster.Keyspace)
	assert.Equal(t, gocql.Quorum, cluster.Consistency)
	assert.Equal(t, 3*time.Second, cluster.Timeout)
	assert.Equal(t, 8, cluster.NumConns)
	assert.Nil(t, cluster.SslOpts)

	auth, ok := cluster.Authenticator.(gocql.PasswordAuthenticator)
	require.True(t, ok)
	assert.Equal(t, "miam", auth.Username)
}

func TestNewClusterSSLWithoutAuth(t *testing.T) {
	cluster := NewCluster(config.ScyllaConfig{
		Hosts:      []string{"db"},
		SSLEnabled: true,
		CACertPath: "/etc/scylla/ca.pem",
	}, "miam_users")

	assert.Nil(t, cluster.Authenticator)
	require.NotNil(t, cluster.SslOpts)
	assert.Equal(t, "/etc/scylla/ca.pem", cluster.SslOpts.CaPath)
	assert.True(t, cluster.SslOpts.EnableHostVerification)
}

func TestConnectElasticDisabled(t *testing.T) {
	client, err := ConnectElastic(&config.Config{})
	require.NoError(t, err)
	assert.Nil(t, client)
}
