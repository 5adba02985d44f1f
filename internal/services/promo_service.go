package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"miam_back_end/internal/apperr"
	"miam_back_end/internal/models"
	"miam_back_end/internal/utils"

	"github.com/shopspring/decimal"
)

const maxRedeemAttempts = 5

type PromoService struct {
	repo PromoRepository
	now  func() time.Time
}

func NewPromoService(repo PromoRepository) *PromoService {
	return &PromoService{repo: repo, now: time.Now}
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Validate vérifie qu'un code est utilisable pour ce montant et ces articles
func (s *PromoService) Validate(ctx context.Context, code string, orderAmount float64, items []models.PromoItem) (*models.PromoCode, error) {
	promo, err := s.repo.Get(ctx, normalizeCode(code))
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.ErrInvalidOrExpired
	}
	if err != nil {
		return nil, err
	}

	now := s.now()
	if !promo.Active || now.Before(promo.StartDate) || now.After(promo.EndDate) {
		return nil, apperr.ErrInvalidOrExpired
	}
	if promo.UsageLimit > 0 && promo.UsedCount >= promo.UsageLimit {
		return nil, apperr.ErrLimitReached
	}
	if orderAmount < promo.MinOrderAmount {
		return nil, apperr.ErrBelowMinimum
	}
	if !eligible(promo, items) {
		return nil, apperr.ErrNoEligibleItems
	}
	return promo, nil
}

func eligible(promo *models.PromoCode, items []models.PromoItem) bool {
	if len(promo.EligibleItemIDs) == 0 && len(promo.EligibleCategories) == 0 {
		return true
	}
	for _, it := range items {
		if slices.Contains(promo.EligibleItemIDs, it.MenuItemID) || slices.Contains(promo.EligibleCategories, it.Category) {
			return true
		}
	}
	return false
}

// CalculateDiscount applique le code au montant: plafonné par maxDiscount puis par le montant, arrondi à 2 décimales
func CalculateDiscount(promo *models.PromoCode, orderAmount float64) float64 {
	if promo == nil || orderAmount <= 0 {
		return 0
	}
	amount := decimal.NewFromFloat(orderAmount)

	var discount decimal.Decimal
	switch promo.DiscountType {
	case models.DiscountPercentage:
		discount = amount.Mul(decimal.NewFromFloat(promo.Value)).Div(decimal.NewFromInt(100))
	case models.DiscountFixed:
		discount = decimal.NewFromFloat(promo.Value)
	default:
		return 0
	}

	if promo.MaxDiscount != nil {
		discount = decimal.Min(discount, decimal.NewFromFloat(*promo.MaxDiscount))
	}
	discount = decimal.Min(discount, amount)
	if discount.IsNegative() {
		return 0
	}
	return discount.Round(2).InexactFloat64()
}

// Check valide un code et retourne la remise, pour l'aperçu côté panier
func (s *PromoService) Check(ctx context.Context, code string, orderAmount float64, items []models.PromoItem) (*models.PromoValidation, error) {
	promo, err := s.Validate(ctx, code, orderAmount, items)
	if err != nil {
		return nil, err
	}
	return &models.PromoValidation{
		Valid:    true,
		Code:     promo.Code,
		Discount: CalculateDiscount(promo, orderAmount),
		Type:     string(promo.DiscountType),
	}, nil
}

// Redeem incrémente usedCount par compare-and-set sans jamais dépasser usageLimit
func (s *PromoService) Redeem(ctx context.Context, code string) error {
	code = normalizeCode(code)
	for attempt := 0; attempt < maxRedeemAttempts; attempt++ {
		promo, err := s.repo.Get(ctx, code)
		if errors.Is(err, apperr.ErrNotFound) {
			return apperr.ErrInvalidOrExpired
		}
		if err != nil {
			return err
		}
		if promo.UsageLimit > 0 && promo.UsedCount >= promo.UsageLimit {
			return apperr.ErrLimitReached
		}

		ok, err := s.repo.SwapUsedCount(ctx, code, promo.UsedCount, promo.UsedCount+1)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}
	return apperr.Wrap(apperr.KindConflict, "Code promo très sollicité, réessayez", fmt.Errorf("redeem %s: trop de conflits", code))
}

type PromoInput struct {
	Code               string              `json:"code" binding:"required,min=3,max=32,alphanum"`
	DiscountType       models.DiscountType `json:"discountType" binding:"required,oneof=percentage fixed"`
	Value              float64             `json:"value" binding:"gt=0"`
	MinOrderAmount     float64             `json:"minOrderAmount" binding:"gte=0"`
	MaxDiscount        *float64            `json:"maxDiscount" binding:"omitempty,gt=0"`
	StartDate          time.Time           `json:"startDate" binding:"required"`
	EndDate            time.Time           `json:"endDate" binding:"required"`
	UsageLimit         int                 `json:"usageLimit" binding:"gte=0"`
	Active             *bool               `json:"active"`
	EligibleItemIDs    []string            `json:"eligibleItemIds"`
	EligibleCategories []string            `json:"eligibleCategories"`
}

func validatePromoFields(t models.DiscountType, value float64, start, end time.Time) error {
	if t == models.DiscountPercentage && (value < 0 || value > 100) {
		return apperr.Validation("Le pourcentage doit être compris entre 0 et 100")
	}
	if !end.After(start) {
		return apperr.Validation("La date de fin doit être postérieure à la date de début")
	}
	return nil
}

func (s *PromoService) Create(ctx context.Context, in PromoInput, createdBy string) (*models.PromoCode, error) {
	if err := validatePromoFields(in.DiscountType, in.Value, in.StartDate, in.EndDate); err != nil {
		return nil, err
	}

	now := s.now()
	promo := &models.PromoCode{
		Code:               normalizeCode(in.Code),
		DiscountType:       in.DiscountType,
		Value:              utils.Round2(in.Value),
		MinOrderAmount:     in.MinOrderAmount,
		MaxDiscount:        in.MaxDiscount,
		StartDate:          in.StartDate,
		EndDate:            in.EndDate,
		UsageLimit:         in.UsageLimit,
		Active:             in.Active == nil || *in.Active,
		EligibleItemIDs:    in.EligibleItemIDs,
		EligibleCategories: in.EligibleCategories,
		CreatedBy:          createdBy,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := s.repo.Insert(ctx, promo); err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			return nil, apperr.New(apperr.KindConflict, "Ce code promo existe déjà")
		}
		return nil, err
	}
	return promo, nil
}

type PromoUpdate struct {
	Value              *float64   `json:"value" binding:"omitempty,gt=0"`
	MinOrderAmount     *float64   `json:"minOrderAmount" binding:"omitempty,gte=0"`
	MaxDiscount        *float64   `json:"maxDiscount" binding:"omitempty,gt=0"`
	StartDate          *time.Time `json:"startDate"`
	EndDate            *time.Time `json:"endDate"`
	UsageLimit         *int       `json:"usageLimit" binding:"omitempty,gte=0"`
	Active             *bool      `json:"active"`
	EligibleItemIDs    []string   `json:"eligibleItemIds"`
	EligibleCategories []string   `json:"eligibleCategories"`
}

func (s *PromoService) Update(ctx context.Context, code string, in PromoUpdate) (*models.PromoCode, error) {
	promo, err := s.repo.Get(ctx, normalizeCode(code))
	if err != nil {
		return nil, err
	}

	if in.Value != nil {
		promo.Value = utils.Round2(*in.Value)
	}
	if in.MinOrderAmount != nil {
		promo.MinOrderAmount = *in.MinOrderAmount
	}
	if in.MaxDiscount != nil {
		promo.MaxDiscount = in.MaxDiscount
	}
	if in.StartDate != nil {
		promo.StartDate = *in.StartDate
	}
	if in.EndDate != nil {
		promo.EndDate = *in.EndDate
	}
	if in.UsageLimit != nil {
		promo.UsageLimit = *in.UsageLimit
	}
	if in.Active != nil {
		promo.Active = *in.Active
	}
	if in.EligibleItemIDs != nil {
		promo.EligibleItemIDs = in.EligibleItemIDs
	}
	if in.EligibleCategories != nil {
		promo.EligibleCategories = in.EligibleCategories
	}
	if err := validatePromoFields(promo.DiscountType, promo.Value, promo.StartDate, promo.EndDate); err != nil {
		return nil, err
	}

	promo.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, promo); err != nil {
		return nil, err
	}
	return promo, nil
}

func (s *PromoService) Delete(ctx context.Context, code string) error {
	code = normalizeCode(code)
	if _, err := s.repo.Get(ctx, code); err != nil {
		return err
	}
	return s.repo.Delete(ctx, code)
}

func (s *PromoService) List(ctx context.Context) ([]models.PromoCode, error) {
	return s.repo.List(ctx)
}
