package repository

import (
	"context"

	"miam_back_end/internal/apperr"
	"miam_back_end/internal/models"

	"github.com/gocql/gocql"
)

const promoColumns = `code, discount_type, value, min_order_amount, max_discount, start_date, end_date,
	usage_limit, used_count, active, eligible_item_ids, eligible_categories, created_by, created_at, updated_at`

// PromoRepository s'appuie sur les transactions légères (LWT) pour used_count
type PromoRepository struct {
	session *gocql.Session
}

func NewPromoRepository(session *gocql.Session) *PromoRepository {
	return &PromoRepository{session: session}
}

func scanPromo(scan func(dest ...any) bool) (*models.PromoCode, bool) {
	var (
		p            models.PromoCode
		discountType string
	)
	if !scan(&p.Code, &discountType, &p.Value, &p.MinOrderAmount, &p.MaxDiscount, &p.StartDate, &p.EndDate,
		&p.UsageLimit, &p.UsedCount, &p.Active, &p.EligibleItemIDs, &p.EligibleCategories,
		&p.CreatedBy, &p.CreatedAt, &p.UpdatedAt) {
		return nil, false
	}
	p.DiscountType = models.DiscountType(discountType)
	return &p, true
}

func (r *PromoRepository) Get(ctx context.Context, code string) (*models.PromoCode, error) {
	iter := r.session.Query(`SELECT `+promoColumns+` FROM promo_codes WHERE code = ?`, code).WithContext(ctx).Iter()
	p, ok := scanPromo(iter.Scan)
	if err := iter.Close(); err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return p, nil
}

func (r *PromoRepository) Insert(ctx context.Context, p *models.PromoCode) error {
	applied, err := r.session.Query(`INSERT INTO promo_codes (`+promoColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) IF NOT EXISTS`,
		p.Code, string(p.DiscountType), p.Value, p.MinOrderAmount, p.MaxDiscount, p.StartDate, p.EndDate,
		p.UsageLimit, p.UsedCount, p.Active, p.EligibleItemIDs, p.EligibleCategories,
		p.CreatedBy, p.CreatedAt, p.UpdatedAt,
	).WithContext(ctx).MapScanCAS(map[string]any{})
	if err != nil {
		return err
	}
	if !applied {
		return apperr.ErrConflict
	}
	return nil
}

// Update réécrit tout sauf used_count, qui n'évolue que via SwapUsedCount
func (r *PromoRepository) Update(ctx context.Context, p *models.PromoCode) error {
	applied, err := r.session.Query(`UPDATE promo_codes SET discount_type = ?, value = ?, min_order_amount = ?,
		max_discount = ?, start_date = ?, end_date = ?, usage_limit = ?, active = ?, eligible_item_ids = ?,
		eligible_categories = ?, updated_at = ? WHERE code = ? IF EXISTS`,
		string(p.DiscountType), p.Value, p.MinOrderAmount, p.MaxDiscount, p.StartDate, p.EndDate,
		p.UsageLimit, p.Active, p.EligibleItemIDs, p.EligibleCategories, p.UpdatedAt, p.Code,
	).WithContext(ctx).MapScanCAS(map[string]any{})
	if err != nil {
		return err
	}
	if !applied {
		return apperr.ErrNotFound
	}
	return nil
}

func (r *PromoRepository) Delete(ctx context.Context, code string) error {
	return r.session.Query(`DELETE FROM promo_codes WHERE code = ? IF EXISTS`, code).WithContext(ctx).Exec()
}

func (r *PromoRepository) List(ctx context.Context) ([]models.PromoCode, error) {
	iter := r.session.Query(`SELECT ` + promoColumns + ` FROM promo_codes`).WithContext(ctx).Iter()
	var promos []models.PromoCode
	for {
		p, ok := scanPromo(iter.Scan)
		if !ok {
			break
		}
		promos = append(promos, *p)
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}
	return promos, nil
}

func (r *PromoRepository) SwapUsedCount(ctx context.Context, code string, expected, next int) (bool, error) {
	return r.session.Query(`UPDATE promo_codes SET used_count = ? WHERE code = ? IF used_count = ?`,
		next, code, expected,
	).WithContext(ctx).MapScanCAS(map[string]any{})
}
