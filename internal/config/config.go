package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config regroupe les paramètres de l'application lus depuis l'environnement
type Config struct {
	Port              string
	JWTSecret         string
	StripeSecretKey   string
	StripeWebhookKey  string
	StripeTimeout     time.Duration
	Currency          string
	OrderNumberPrefix string
	Scylla            ScyllaConfig
	ElasticURL        string
	ElasticUser       string
	ElasticPassword   string
	MinIO             MinIOConfig
	RedisHost         string
	RedisPassword     string
	RabbitMQURL       string
	MailFrom          string
	SMTPHost          string
	SMTPPort          int
	SMTPUsername      string
	SMTPPassword      string
	MailTimeout       time.Duration
	AnalyticsLocation *time.Location
	CORSOrigins       []string
	TaskWorkers       int
	RequestTimeout    time.Duration
	Argon2            Argon2Config
}

// Argon2Config fixe le coût du hash des mots de passe (MemoryKB en Kio)
type Argon2Config struct {
	Time     uint32
	MemoryKB uint32
	Threads  uint8
}

// ScyllaConfig décrit le cluster et les trois keyspaces de l'application
type ScyllaConfig struct {
	Hosts      []string
	Username   string
	Password   string
	SSLEnabled bool
	CACertPath string
	Timeout    time.Duration
	NumConns   int
	UsersKS    string
	CatalogKS  string
	OrdersKS   string
}

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
	PublicURL string
}

func Load() *Config {
	err := godotenv.Load(".env")
	if err != nil {
		log.Println("⚠️  Aucun fichier .env trouvé, on continue avec les variables d'environnement du système")
	} else {
		log.Println("✅ Fichier .env chargé avec succès")
	}
	return FromEnv()
}

// FromEnv construit la configuration sans toucher au fichier .env
func FromEnv() *Config {
	loc, err := time.LoadLocation(getEnv("ANALYTICS_TIMEZONE", "UTC"))
	if err != nil {
		log.Printf("⚠️ ANALYTICS_TIMEZONE invalide (%v), utilisation de UTC", err)
		loc = time.UTC
	}

	return &Config{
		Port:              getEnv("PORT", "8080"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		StripeSecretKey:   os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookKey:  os.Getenv("STRIPE_WEBHOOK_SECRET"),
		StripeTimeout:     getDuration("STRIPE_TIMEOUT", 10*time.Second),
		Currency:          strings.ToLower(getEnv("CURRENCY", "eur")),
		OrderNumberPrefix: getEnv("ORDER_NUMBER_PREFIX", "ORD"),
		Scylla: ScyllaConfig{
			Hosts:      splitList(getEnv("SCYLLA_HOSTS", "127.0.0.1")),
			Username:   os.Getenv("SCYLLA_USERNAME"),
			Password:   os.Getenv("SCYLLA_PASSWORD"),
			SSLEnabled: strings.ToLower(os.Getenv("SCYLLA_SSL_ENABLED")) == "true",
			CACertPath: os.Getenv("SCYLLA_SSL_CA_PATH"),
			Timeout:    getDuration("SCYLLA_TIMEOUT", 5*time.Second),
			NumConns:   getInt("SCYLLA_NUM_CONNS", 20),
			UsersKS:    getEnv("SCYLLA_KS_USERS", "miam_users"),
			CatalogKS:  getEnv("SCYLLA_KS_CATALOG", "miam_catalog"),
			OrdersKS:   getEnv("SCYLLA_KS_ORDERS", "miam_orders"),
		},
		ElasticURL:      os.Getenv("ELASTIC_URL"),
		ElasticUser:     os.Getenv("ELASTIC_USER"),
		ElasticPassword: os.Getenv("ELASTIC_PASSWORD"),
		MinIO: MinIOConfig{
			Endpoint:  os.Getenv("MINIO_ENDPOINT"),
			AccessKey: os.Getenv("MINIO_ACCESS_KEY"),
			SecretKey: os.Getenv("MINIO_SECRET_KEY"),
			Bucket:    getEnv("MINIO_BUCKET", "menu-images"),
			Region:    getEnv("MINIO_REGION", "us-east-1"),
			UseSSL:    os.Getenv("MINIO_USE_SSL") == "true",
			PublicURL: os.Getenv("MINIO_PUBLIC_URL"),
		},
		RedisHost:         getEnv("REDIS_HOST", "localhost:6379"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		RabbitMQURL:       os.Getenv("RABBITMQ_URL"),
		MailFrom:          getEnv("MAIL_FROM", "noreply@miam.app"),
		SMTPHost:          os.Getenv("SMTP_HOST"),
		SMTPPort:          getInt("SMTP_PORT", 587),
		SMTPUsername:      os.Getenv("SMTP_USERNAME"),
		SMTPPassword:      os.Getenv("SMTP_PASSWORD"),
		MailTimeout:       getDuration("MAIL_TIMEOUT", 15*time.Second),
		AnalyticsLocation: loc,
		CORSOrigins:       splitList(getEnv("CORS_ORIGINS", "http://localhost:5173")),
		TaskWorkers:       getInt("TASK_WORKERS", 4),
		RequestTimeout:    getDuration("REQUEST_TIMEOUT", 15*time.Second),
		Argon2: Argon2Config{
			Time:     uint32(getBounded("ARGON2_TIME", 1, 1, 10)),
			MemoryKB: uint32(getBounded("ARGON2_MEMORY_KB", 32*1024, 8*1024, 1024*1024)),
			Threads:  uint8(getBounded("ARGON2_THREADS", 4, 1, 64)),
		},
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("⚠️ %s invalide (%q), valeur par défaut %d", key, v, fallback)
		return fallback
	}
	return n
}

// getBounded rejette les valeurs hors [lo, hi] au profit de la valeur par défaut
func getBounded(key string, fallback, lo, hi int) int {
	n := getInt(key, fallback)
	if n < lo || n > hi {
		log.Printf("⚠️ %s hors limites (%d), valeur par défaut %d", key, n, fallback)
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("⚠️ %s invalide (%q), valeur par défaut %s", key, v, fallback)
		return fallback
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
