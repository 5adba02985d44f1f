package models

import "time"

type ItemPopularity struct {
	MenuItemID string `json:"menuItemId"`
	Name       string `json:"name,omitempty"`
	OrderCount int64  `json:"orderCount"`
}

// VendorAnalyticsRecord est l'agrégat journalier d'un restaurant
type VendorAnalyticsRecord struct {
	VendorID      string           `json:"vendorId"`
	Day           time.Time        `json:"day"`
	TotalOrders   int64            `json:"totalOrders"`
	TotalRevenue  float64          `json:"totalRevenue"`
	PopularItems  []ItemPopularity `json:"popularItems"`
	PeakHours     map[int]int64    `json:"peakHours"`
	AverageRating float64          `json:"averageRating"`
	RatingCount   int64            `json:"ratingCount"`
}
