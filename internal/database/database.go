package database

import (
	"fmt"
	"log"
	"sync"
	"time"

	"miam_back_end/internal/config"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/gocql/gocql"
)

// ScyllaManager garde une session par keyspace
type ScyllaManager struct {
	cfg      config.ScyllaConfig
	sessions map[string]*gocql.Session
	mu       sync.Mutex
}

func NewScyllaManager(cfg config.ScyllaConfig) *ScyllaManager {
	return &ScyllaManager{cfg: cfg, sessions: make(map[string]*gocql.Session)}
}

// Connect ouvre les sessions des trois keyspaces de l'application
func (sm *ScyllaManager) Connect() error {
	for _, ks := range []string{sm.cfg.UsersKS, sm.cfg.CatalogKS, sm.cfg.OrdersKS} {
		if _, err := sm.Session(ks); err != nil {
			return fmt.Errorf("échec initialisation keyspace %s: %w", ks, err)
		}
	}
	// Les tables sont créées via scripts/scylladb_init.cql
	return nil
}

// NewCluster prépare la configuration gocql d'un keyspace
func NewCluster(cfg config.ScyllaConfig, keyspace string) *gocql.ClusterConfig {
	cluster := gocql.NewCluster(cfg.Hosts...)
	cluster.Keyspace = keyspace
	cluster.Consistency = gocql.Quorum
	cluster.SerialConsistency = gocql.LocalSerial
	cluster.Timeout = cfg.Timeout
	cluster.NumConns = cfg.NumConns
	cluster.ReconnectInterval = time.Second
	cluster.PoolConfig.HostSelectionPolicy = gocql.TokenAwareHostPolicy(gocql.RoundRobinHostPolicy())

	if cfg.Username != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: cfg.Username,
			Password: cfg.Password,
		}
	}
	if cfg.SSLEnabled {
		cluster.SslOpts = &gocql.SslOptions{
			CaPath:                 cfg.CACertPath,
			EnableHostVerification: cfg.CACertPath != "",
		}
	}
	return cluster
}

func (sm *ScyllaManager) Session(keyspace string) (*gocql.Session, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if session, ok := sm.sessions[keyspace]; ok && !session.Closed() {
		return session, nil
	}

	session, err := NewCluster(sm.cfg, keyspace).CreateSession()
	if err != nil {
		return nil, fmt.Errorf("erreur création session pour %s: %w", keyspace, err)
	}
	sm.sessions[keyspace] = session
	log.Printf("✅ Nouvelle session ScyllaDB pour keyspace '%s'", keyspace)
	return session, nil
}

func (sm *ScyllaManager) Users() (*gocql.Session, error)   { return sm.Session(sm.cfg.UsersKS) }
func (sm *ScyllaManager) Catalog() (*gocql.Session, error) { return sm.Session(sm.cfg.CatalogKS) }
func (sm *ScyllaManager) Orders() (*gocql.Session, error)  { return sm.Session(sm.cfg.OrdersKS) }

func (sm *ScyllaManager) Close() {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	for keyspace, session := range sm.sessions {
		session.Close()
		log.Printf("🔌 Session ScyllaDB fermée pour keyspace '%s'", keyspace)
	}
	sm.sessions = make(map[string]*gocql.Session)
}

// ConnectElastic retourne nil sans erreur si ELASTIC_URL n'est pas défini
func ConnectElastic(cfg *config.Config) (*elasticsearch.Client, error) {
	if cfg.ElasticURL == "" {
		log.Println("⚠️ ELASTIC_URL non défini, recherche en mode dégradé")
		return nil, nil
	}

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.ElasticURL},
		Username:  cfg.ElasticUser,
		Password:  cfg.ElasticPassword,
	})
	if err != nil {
		return nil, fmt.Errorf("création client Elasticsearch: %w", err)
	}

	res, err := client.Info()
	if err != nil {
		return nil, fmt.Errorf("connexion Elasticsearch: %w", err)
	}
	defer res.Body.Close()

	log.Println("✅ Connecté à Elasticsearch")
	return client, nil
}
