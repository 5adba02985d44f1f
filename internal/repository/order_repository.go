package repository

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"strings"

	"miam_back_end/internal/apperr"
	"miam_back_end/internal/models"

	"github.com/gocql/gocql"
)

const orderColumns = `order_id, order_number, buyer_id, vendor_id, items, total_amount, status,
	payment_status, payment_method, payment_intent_id, payment_error, amount_charged, refunded_amount,
	promo_code, discount_amount, refund_status, refund_id, refund_amount, refund_reason,
	rejection_reason, rating, paid_at, cancelled_at, delivered_at, refunded_at, created_at, updated_at`

// OrderRepository stocke les commandes dans le keyspace orders
type OrderRepository struct {
	session *gocql.Session
}

func NewOrderRepository(session *gocql.Session) *OrderRepository {
	return &OrderRepository{session: session}
}

// orderValues retourne les valeurs dans l'ordre de orderColumns
func orderValues(o *models.Order) ([]any, error) {
	items, err := toJSON(o.Items)
	if err != nil {
		return nil, fmt.Errorf("sérialisation des lignes: %w", err)
	}
	return []any{
		o.ID, o.OrderNumber, o.BuyerID, o.VendorID, items, o.TotalAmount, string(o.Status),
		string(o.PaymentStatus), string(o.PaymentMethod), o.PaymentIntentID, o.PaymentError, o.AmountCharged, o.RefundedAmount,
		o.PromoCode, o.DiscountAmount, string(o.RefundStatus), o.RefundID, o.RefundAmount, o.RefundReason,
		o.RejectionReason, o.Rating, o.PaidAt, o.CancelledAt, o.DeliveredAt, o.RefundedAt, o.CreatedAt, o.UpdatedAt,
	}, nil
}

type orderRow struct {
	items                                              string
	status, paymentStatus, paymentMethod, refundStatus string
}

func (r *orderRow) dest(o *models.Order) []any {
	return []any{
		&o.ID, &o.OrderNumber, &o.BuyerID, &o.VendorID, &r.items, &o.TotalAmount, &r.status,
		&r.paymentStatus, &r.paymentMethod, &o.PaymentIntentID, &o.PaymentError, &o.AmountCharged, &o.RefundedAmount,
		&o.PromoCode, &o.DiscountAmount, &r.refundStatus, &o.RefundID, &o.RefundAmount, &o.RefundReason,
		&o.RejectionReason, &o.Rating, &o.PaidAt, &o.CancelledAt, &o.DeliveredAt, &o.RefundedAt, &o.CreatedAt, &o.UpdatedAt,
	}
}

func (r *orderRow) finish(o *models.Order) error {
	o.Status = models.OrderStatus(r.status)
	o.PaymentStatus = models.PaymentStatus(r.paymentStatus)
	o.PaymentMethod = models.PaymentMethod(r.paymentMethod)
	o.RefundStatus = models.RefundStatus(r.refundStatus)
	if o.RefundStatus == "" {
		o.RefundStatus = models.RefundNone
	}
	if err := fromJSON(r.items, &o.Items); err != nil {
		return fmt.Errorf("lignes de la commande %s illisibles: %w", o.ID, err)
	}
	return nil
}

func (r *OrderRepository) Insert(ctx context.Context, o *models.Order) error {
	// Réserve d'abord le numéro de commande
	existing := map[string]any{}
	applied, err := r.session.Query(
		`INSERT INTO orders_by_number (order_number, order_id) VALUES (?, ?) IF NOT EXISTS`,
		o.OrderNumber, o.ID,
	).WithContext(ctx).MapScanCAS(existing)
	if err != nil {
		return err
	}
	if !applied {
		return apperr.ErrConflict
	}

	values, err := orderValues(o)
	if err != nil {
		return err
	}

	batch := r.session.NewBatch(gocql.LoggedBatch).WithContext(ctx)
	batch.Query(`INSERT INTO orders (`+orderColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, values...)
	batch.Query(`INSERT INTO orders_by_buyer (buyer_id, created_at, order_id) VALUES (?, ?, ?)`, o.BuyerID, o.CreatedAt, o.ID)
	batch.Query(`INSERT INTO orders_by_vendor (vendor_id, created_at, order_id) VALUES (?, ?, ?)`, o.VendorID, o.CreatedAt, o.ID)
	if o.PaymentIntentID != "" {
		batch.Query(`INSERT INTO orders_by_intent (payment_intent_id, order_id) VALUES (?, ?)`, o.PaymentIntentID, o.ID)
	}
	if err := r.session.ExecuteBatch(batch); err != nil {
		// Libère le numéro pour ne pas le laisser orphelin
		if delErr := r.session.Query(`DELETE FROM orders_by_number WHERE order_number = ? IF EXISTS`, o.OrderNumber).
			WithContext(ctx).Exec(); delErr != nil {
			log.Printf("⚠️ Numéro %s non libéré: %v", o.OrderNumber, delErr)
		}
		return err
	}
	return nil
}

// Update écrit uniquement les champs indiqués (plus updated_at). Sans champ, la ligne
// entière est réécrite.
func (r *OrderRepository) Update(ctx context.Context, o *models.Order, fields ...models.OrderField) error {
	values, err := orderValues(o)
	if err != nil {
		return err
	}
	batch := r.session.NewBatch(gocql.LoggedBatch).WithContext(ctx)
	if len(fields) == 0 {
		batch.Query(`INSERT INTO orders (`+orderColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, values...)
	} else {
		stmt, args, err := updateStatement(values, fields)
		if err != nil {
			return err
		}
		batch.Query(stmt, append(args, o.ID)...)
	}
	if o.PaymentIntentID != "" && (len(fields) == 0 || slices.Contains(fields, models.FieldPaymentIntentID)) {
		batch.Query(`INSERT INTO orders_by_intent (payment_intent_id, order_id) VALUES (?, ?)`, o.PaymentIntentID, o.ID)
	}
	return r.session.ExecuteBatch(batch)
}

// updateStatement construit "UPDATE orders SET ..." pour les champs demandés
func updateStatement(values []any, fields []models.OrderField) (string, []any, error) {
	byColumn := make(map[string]any, len(values))
	for i, col := range strings.Split(orderColumns, ",") {
		byColumn[strings.TrimSpace(col)] = values[i]
	}

	sets := make([]string, 0, len(fields)+1)
	args := make([]any, 0, len(fields)+1)
	for _, f := range fields {
		v, ok := byColumn[string(f)]
		if !ok {
			return "", nil, fmt.Errorf("champ de commande inconnu: %s", f)
		}
		sets = append(sets, string(f)+" = ?")
		args = append(args, v)
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, byColumn["updated_at"])
	return "UPDATE orders SET " + strings.Join(sets, ", ") + " WHERE order_id = ?", args, nil
}

func (r *OrderRepository) Get(ctx context.Context, id gocql.UUID) (*models.Order, error) {
	var (
		o   models.Order
		row orderRow
	)
	err := r.session.Query(`SELECT `+orderColumns+` FROM orders WHERE order_id = ?`, id).
		WithContext(ctx).Scan(row.dest(&o)...)
	if err != nil {
		return nil, notFound(err, apperr.ErrOrderNotFound)
	}
	if err := row.finish(&o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *OrderRepository) GetByPaymentIntent(ctx context.Context, intentID string) (*models.Order, error) {
	var id gocql.UUID
	err := r.session.Query(`SELECT order_id FROM orders_by_intent WHERE payment_intent_id = ?`, intentID).
		WithContext(ctx).Scan(&id)
	if err != nil {
		return nil, notFound(err, apperr.ErrOrderNotFound)
	}
	return r.Get(ctx, id)
}

func (r *OrderRepository) ListByBuyer(ctx context.Context, buyerID string) ([]models.Order, error) {
	return r.listByIndex(ctx, `SELECT order_id FROM orders_by_buyer WHERE buyer_id = ?`, buyerID)
}

func (r *OrderRepository) ListByVendor(ctx context.Context, vendorID string) ([]models.Order, error) {
	return r.listByIndex(ctx, `SELECT order_id FROM orders_by_vendor WHERE vendor_id = ?`, vendorID)
}

// listByIndex lit les identifiants dans une table d'index (plus récentes d'abord) puis charge chaque commande
func (r *OrderRepository) listByIndex(ctx context.Context, stmt string, key string) ([]models.Order, error) {
	iter := r.session.Query(stmt, key).WithContext(ctx).Iter()
	var (
		id  gocql.UUID
		ids []gocql.UUID
	)
	for iter.Scan(&id) {
		ids = append(ids, id)
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}

	orders := make([]models.Order, 0, len(ids))
	for _, id := range ids {
		o, err := r.Get(ctx, id)
		if err != nil {
			if errors.Is(err, apperr.ErrOrderNotFound) {
				log.Printf("⚠️ Index orphelin pour la commande %s", id)
				continue
			}
			return nil, err
		}
		orders = append(orders, *o)
	}
	return orders, nil
}
