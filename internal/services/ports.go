package services

import (
	"context"
	"io"
	"time"

	"miam_back_end/internal/models"
	"miam_back_end/internal/utils"

	"github.com/gocql/gocql"
)

// Les interfaces ci-dessous sont implémentées par internal/repository (ScyllaDB),
// internal/cache (Redis), internal/payment (Stripe) et internal/broker (RabbitMQ).

type OrderRepository interface {
	// Insert retourne apperr.ErrConflict si le numéro de commande est déjà pris
	Insert(ctx context.Context, order *models.Order) error
	// Update n'écrit que les champs indiqués (et updatedAt); sans champ, toute la commande
	Update(ctx context.Context, order *models.Order, fields ...models.OrderField) error
	Get(ctx context.Context, id gocql.UUID) (*models.Order, error)
	GetByPaymentIntent(ctx context.Context, intentID string) (*models.Order, error)
	ListByBuyer(ctx context.Context, buyerID string) ([]models.Order, error)
	ListByVendor(ctx context.Context, vendorID string) ([]models.Order, error)
}

type MenuReader interface {
	Get(ctx context.Context, id gocql.UUID) (*models.MenuItem, error)
}

type MenuRepository interface {
	MenuReader
	Save(ctx context.Context, item *models.MenuItem) error
	ListByVendor(ctx context.Context, vendorID string) ([]models.MenuItem, error)
	ListAll(ctx context.Context, limit int) ([]models.MenuItem, error)
}

type PromoRepository interface {
	Get(ctx context.Context, code string) (*models.PromoCode, error)
	// Insert retourne apperr.ErrConflict si le code existe déjà
	Insert(ctx context.Context, promo *models.PromoCode) error
	Update(ctx context.Context, promo *models.PromoCode) error
	Delete(ctx context.Context, code string) error
	List(ctx context.Context) ([]models.PromoCode, error)
	// SwapUsedCount passe usedCount de expected à next si personne ne l'a modifié entre-temps
	SwapUsedCount(ctx context.Context, code string, expected, next int) (bool, error)
}

type NotificationRepository interface {
	Insert(ctx context.Context, n *models.Notification) error
	List(ctx context.Context, userID string, unreadOnly bool, limit int) ([]models.Notification, error)
	Get(ctx context.Context, userID string, id gocql.UUID) (*models.Notification, error)
	MarkRead(ctx context.Context, n *models.Notification, at time.Time) error
	Delete(ctx context.Context, userID string, id gocql.UUID) error
}

// DeliveryCounters sont les incréments appliqués à l'agrégat journalier d'un restaurant
type DeliveryCounters struct {
	VendorID     string
	Day          time.Time
	Hour         int
	RevenueCents int64
	ItemIDs      []string
}

type AnalyticsStore interface {
	IncrementDelivery(ctx context.Context, c DeliveryCounters) error
	IncrementRating(ctx context.Context, vendorID string, day time.Time, rating int) error
	// Get retourne nil, nil si aucune commande n'a été livrée ce jour-là
	Get(ctx context.Context, vendorID string, day time.Time) (*models.VendorAnalyticsRecord, error)
}

type UserRepository interface {
	// Create retourne apperr.ErrConflict si l'email est déjà utilisé
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

type UserLookup interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

type FavoriteRepository interface {
	Add(ctx context.Context, fav models.Favorite) error
	Remove(ctx context.Context, userID string, menuItemID gocql.UUID) error
	List(ctx context.Context, userID string) ([]models.Favorite, error)
}

// SignupStore conserve les inscriptions en attente de vérification, avec expiration
type SignupStore interface {
	Save(ctx context.Context, s *models.PendingSignup, ttl time.Duration) error
	Get(ctx context.Context, email string) (*models.PendingSignup, error)
	Delete(ctx context.Context, email string) error
}

// Publisher pousse un message sur un canal pub/sub
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// EventPublisher émet les événements métier vers le broker
type EventPublisher interface {
	PublishEvent(ctx context.Context, routingKey string, payload any) error
}

// Enqueuer exécute une tâche en arrière-plan; false si la file est pleine
type Enqueuer interface {
	Enqueue(name string, fn func(ctx context.Context) error) bool
}

type Mailer = utils.Mailer

type MenuIndexer interface {
	Index(ctx context.Context, item *models.MenuItem) error
	Search(ctx context.Context, query string, limit int) ([]string, error)
}

type ImageStore interface {
	Upload(ctx context.Context, name, contentType string, size int64, r io.Reader) (string, error)
}
