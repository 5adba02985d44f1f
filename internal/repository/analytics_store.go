package repository

import (
	"context"
	"errors"
	"time"

	"miam_back_end/internal/models"
	"miam_back_end/internal/services"
	"miam_back_end/internal/utils"

	"github.com/gocql/gocql"
	"github.com/shopspring/decimal"
)

// AnalyticsStore agrège les statistiques journalières dans des tables de compteurs
type AnalyticsStore struct {
	session *gocql.Session
}

func NewAnalyticsStore(session *gocql.Session) *AnalyticsStore {
	return &AnalyticsStore{session: session}
}

// dateKey garde le jour calendaire tel quel: gocql convertit les dates en UTC
func dateKey(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
}

// IncrementDelivery applique tous les incréments d'une livraison dans un seul batch de compteurs
func (s *AnalyticsStore) IncrementDelivery(ctx context.Context, c services.DeliveryCounters) error {
	day := dateKey(c.Day)
	batch := s.session.NewBatch(gocql.CounterBatch).WithContext(ctx)
	batch.Query(`UPDATE vendor_daily_stats SET total_orders = total_orders + 1, revenue_cents = revenue_cents + ?
		WHERE vendor_id = ? AND day = ?`, c.RevenueCents, c.VendorID, day)
	batch.Query(`UPDATE vendor_daily_hours SET order_count = order_count + 1
		WHERE vendor_id = ? AND day = ? AND hour = ?`, c.VendorID, day, c.Hour)
	for _, itemID := range c.ItemIDs {
		batch.Query(`UPDATE vendor_daily_items SET order_count = order_count + 1
			WHERE vendor_id = ? AND day = ? AND menu_item_id = ?`, c.VendorID, day, itemID)
	}
	return s.session.ExecuteBatch(batch)
}

func (s *AnalyticsStore) IncrementRating(ctx context.Context, vendorID string, day time.Time, rating int) error {
	return s.session.Query(`UPDATE vendor_daily_stats SET rating_sum = rating_sum + ?, rating_count = rating_count + 1
		WHERE vendor_id = ? AND day = ?`, int64(rating), vendorID, dateKey(day)).WithContext(ctx).Exec()
}

type dailyStats struct {
	totalOrders, revenueCents, ratingSum, ratingCount int64
}

// buildRecord assemble l'agrégat à partir des compteurs lus
func buildRecord(vendorID string, day time.Time, st dailyStats, items map[string]int64, hours map[int]int64) *models.VendorAnalyticsRecord {
	rec := &models.VendorAnalyticsRecord{
		VendorID:     vendorID,
		Day:          day,
		TotalOrders:  st.totalOrders,
		TotalRevenue: utils.FromMinorUnits(st.revenueCents),
		PeakHours:    hours,
		RatingCount:  st.ratingCount,
		PopularItems: make([]models.ItemPopularity, 0, len(items)),
	}
	if rec.PeakHours == nil {
		rec.PeakHours = map[int]int64{}
	}
	if st.ratingCount > 0 {
		rec.AverageRating = decimal.NewFromInt(st.ratingSum).
			Div(decimal.NewFromInt(st.ratingCount)).Round(2).InexactFloat64()
	}
	for id, count := range items {
		rec.PopularItems = append(rec.PopularItems, models.ItemPopularity{MenuItemID: id, OrderCount: count})
	}
	return rec
}

func (s *AnalyticsStore) Get(ctx context.Context, vendorID string, day time.Time) (*models.VendorAnalyticsRecord, error) {
	key := dateKey(day)
	var st dailyStats
	err := s.session.Query(`SELECT total_orders, revenue_cents, rating_sum, rating_count
		FROM vendor_daily_stats WHERE vendor_id = ? AND day = ?`, vendorID, key).
		WithContext(ctx).Scan(&st.totalOrders, &st.revenueCents, &st.ratingSum, &st.ratingCount)
	if errors.Is(err, gocql.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	items := map[string]int64{}
	iter := s.session.Query(`SELECT menu_item_id, order_count FROM vendor_daily_items WHERE vendor_id = ? AND day = ?`,
		vendorID, key).WithContext(ctx).Iter()
	var (
		itemID string
		count  int64
	)
	for iter.Scan(&itemID, &count) {
		items[itemID] = count
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}

	hours := map[int]int64{}
	iter = s.session.Query(`SELECT hour, order_count FROM vendor_daily_hours WHERE vendor_id = ? AND day = ?`,
		vendorID, key).WithContext(ctx).Iter()
	var hour int
	for iter.Scan(&hour, &count) {
		hours[hour] = count
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}

	return buildRecord(vendorID, day, st, items, hours), nil
}
