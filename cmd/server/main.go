package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"miam_back_end/internal/broker"
	"miam_back_end/internal/cache"
	"miam_back_end/internal/config"
	"miam_back_end/internal/database"
	"miam_back_end/internal/handlers"
	"miam_back_end/internal/middleware"
	"miam_back_end/internal/payment"
	"miam_back_end/internal/repository"
	"miam_back_end/internal/routes"
	"miam_back_end/internal/search"
	"miam_back_end/internal/services"
	"miam_back_end/internal/storage"
	"miam_back_end/internal/tasks"
	"miam_back_end/internal/utils"

	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 20 * time.Second

func main() {
	cfg := config.Load()
	if cfg.JWTSecret == "" {
		log.Fatal("❌ JWT_SECRET manquant")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ScyllaDB
	scylla := database.NewScyllaManager(cfg.Scylla)
	if err := scylla.Connect(); err != nil {
		log.Fatalf("❌ ScyllaDB: %v", err)
	}
	defer scylla.Close()
	usersKS := mustSession(scylla.Users())
	catalogKS := mustSession(scylla.Catalog())
	ordersKS := mustSession(scylla.Orders())

	// Redis
	rdb, err := cache.Connect(ctx, cfg.RedisHost, cfg.RedisPassword)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	defer rdb.Close()
	hub := cache.NewHub(rdb)

	// RabbitMQ est optionnel : sans URL les événements sont ignorés
	var events services.EventPublisher = broker.Noop{}
	if cfg.RabbitMQURL != "" {
		mq, err := broker.Connect(cfg.RabbitMQURL)
		if err != nil {
			log.Printf("⚠️ RabbitMQ indisponible, événements désactivés: %v", err)
		} else {
			defer mq.Close()
			events = mq
		}
	} else {
		log.Println("⚠️ RABBITMQ_URL non défini, événements désactivés")
	}

	queue := tasks.NewQueue(tasks.Options{Workers: cfg.TaskWorkers})
	queue.Start()

	hasher := utils.NewPasswordHasher(utils.Argon2Params{
		Time:     cfg.Argon2.Time,
		MemoryKB: cfg.Argon2.MemoryKB,
		Threads:  cfg.Argon2.Threads,
	})

	mailer := utils.NewSMTPMailer(utils.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.MailFrom,
		Timeout:  cfg.MailTimeout,
	})

	// Repositories
	orders := repository.NewOrderRepository(ordersKS)
	menuRepo := cache.NewMenuCache(repository.NewMenuRepository(catalogKS), rdb)
	users := cache.NewUserCache(repository.NewUserRepository(usersKS), rdb)

	menu := services.NewMenuService(menuRepo, menuIndexer(cfg), imageStore(ctx, cfg))
	notifier := services.NewNotificationService(repository.NewNotificationRepository(ordersKS), hub)
	promos := services.NewPromoService(repository.NewPromoRepository(catalogKS))
	analytics := services.NewAnalyticsService(repository.NewAnalyticsStore(ordersKS), menuRepo, cfg.AnalyticsLocation)

	gateway := payment.NewStripeGateway(payment.Config{
		SecretKey:     cfg.StripeSecretKey,
		WebhookSecret: cfg.StripeWebhookKey,
		Timeout:       cfg.StripeTimeout,
	})
	payments := services.NewPaymentService(orders, gateway, notifier, queue, cfg.Currency)

	orderService := services.NewOrderService(services.OrderDeps{
		Orders:    orders,
		Menu:      menuRepo,
		Promos:    promos,
		Analytics: analytics,
		Notifier:  notifier,
		Refunds:   payments,
		Users:     users,
		Mailer:    mailer,
		Events:    events,
		Tasks:     queue,
		Numbers:   services.NewOrderNumberGenerator(cfg.OrderNumberPrefix),
	})

	h := &handlers.Handler{
		Auth:          services.NewAuthService(users, cache.NewSignupStore(rdb), mailer, queue, hasher, cfg.JWTSecret),
		Orders:        orderService,
		Payments:      payments,
		Promos:        promos,
		Notifications: notifier,
		Menu:          menu,
		Favorites:     services.NewFavoriteService(repository.NewFavoriteRepository(usersKS), menuRepo),
		Analytics:     analytics,
		Hub:           hub,
		HealthChecks: map[string]func(context.Context) error{
			"scylla": func(ctx context.Context) error {
				return ordersKS.Query("SELECT now() FROM system.local").WithContext(ctx).Exec()
			},
			"redis": func(ctx context.Context) error {
				return rdb.Ping(ctx).Err()
			},
		},
		RequestTimeout: cfg.RequestTimeout,
	}

	router := routes.NewRouter(h, routes.Options{
		JWTSecret:   cfg.JWTSecret,
		CORSOrigins: cfg.CORSOrigins,
		Limiter:     middleware.NewRateLimiter(rdb),
		Auditor:     middleware.NewAuditor(repository.NewAuditRepository(usersKS), queue),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Println("🚀 Serveur Miam lancé sur le port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Println("🛑 Arrêt du serveur...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("⚠️ Arrêt HTTP: %v", err)
		}
		// Les tâches en cours (emails, notifications) sont terminées avant de fermer les connexions
		return queue.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Printf("❌ %v", err)
	}
	log.Println("👋 Serveur arrêté")
}

func mustSession[T any](s T, err error) T {
	if err != nil {
		log.Fatalf("❌ ScyllaDB: %v", err)
	}
	return s
}

// menuIndexer retourne nil si Elasticsearch n'est pas configuré : la recherche se fait alors en base
func menuIndexer(cfg *config.Config) services.MenuIndexer {
	es, err := database.ConnectElastic(cfg)
	if err != nil {
		log.Printf("⚠️ Elasticsearch indisponible: %v", err)
		return nil
	}
	if es == nil {
		return nil
	}
	return search.NewMenuIndex(es)
}

func imageStore(ctx context.Context, cfg *config.Config) services.ImageStore {
	if cfg.MinIO.Endpoint == "" {
		log.Println("⚠️ MINIO_ENDPOINT non défini, upload d'images désactivé")
		return nil
	}
	store, err := storage.Connect(storage.Config(cfg.MinIO))
	if err != nil {
		log.Printf("⚠️ %v", err)
		return nil
	}
	if err := store.EnsureBucket(ctx); err != nil {
		log.Printf("⚠️ Bucket MinIO: %v", err)
	}
	return store
}
