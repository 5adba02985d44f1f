package models

import "time"

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

type PromoCode struct {
	Code               string       `json:"code"`
	DiscountType       DiscountType `json:"discountType"`
	Value              float64      `json:"value"`
	MinOrderAmount     float64      `json:"minOrderAmount"`
	MaxDiscount        *float64     `json:"maxDiscount,omitempty"`
	StartDate          time.Time    `json:"startDate"`
	EndDate            time.Time    `json:"endDate"`
	UsageLimit         int          `json:"usageLimit"` // 0 = illimité
	UsedCount          int          `json:"usedCount"`
	Active             bool         `json:"active"`
	EligibleItemIDs    []string     `json:"eligibleItemIds,omitempty"`
	EligibleCategories []string     `json:"eligibleCategories,omitempty"`
	CreatedBy          string       `json:"createdBy,omitempty"`
	CreatedAt          time.Time    `json:"createdAt"`
	UpdatedAt          time.Time    `json:"updatedAt"`
}

// PromoItem est la vue d'un article du panier utilisée pour l'éligibilité
type PromoItem struct {
	MenuItemID string `json:"menuItemId"`
	Category   string `json:"category"`
}

type PromoValidation struct {
	Valid    bool    `json:"valid"`
	Code     string  `json:"code"`
	Discount float64 `json:"discount"`
	Type     string  `json:"type"`
}
