package services

import (
	"context"
	"testing"
	"time"

	"miam_back_end/internal/apperr"
	"miam_back_end/internal/models"

	"github.com/gocql/gocql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDayKeyUsesConfiguredLocation(t *testing.T) {
	paris, err := time.LoadLocation("Europe/Paris")
	require.NoError(t, err)
	svc := NewAnalyticsService(newMemCounters(), nil, paris)

	// 23h30 UTC le 14 mars = 00h30 le 15 mars à Paris
	at := time.Date(2026, 3, 14, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, paris), svc.DayKey(at))

	utc := NewAnalyticsService(newMemCounters(), nil, nil)
	assert.Equal(t, time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC), utc.DayKey(at))
}

func TestRecordDeliveryAndRange(t *testing.T) {
	pizza := &models.MenuItem{ID: gocql.TimeUUID(), Name: "Pizza"}
	tiramisu := &models.MenuItem{ID: gocql.TimeUUID(), Name: "Tiramisu"}
	counters := newMemCounters()
	svc := NewAnalyticsService(counters, newMemMenu(pizza, tiramisu), time.UTC)
	ctx := context.Background()

	day1 := time.Date(2026, 5, 1, 20, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 2)
	deliver := func(at time.Time, total float64, items ...*models.MenuItem) {
		o := &models.Order{VendorID: "vendor-1", TotalAmount: total, CreatedAt: at.Add(-30 * time.Minute), DeliveredAt: &at}
		for _, it := range items {
			o.Items = append(o.Items, models.OrderLineItem{MenuItemID: it.ID.String(), Quantity: 1})
		}
		require.NoError(t, svc.RecordDelivery(ctx, o))
	}

	deliver(day1, 25.5, pizza, pizza, tiramisu)
	deliver(day1, 12, pizza)
	deliver(day2, 8, tiramisu)

	records, err := svc.GetRange(ctx, "vendor-1", day1, day2)
	require.NoError(t, err)
	require.Len(t, records, 2)

	first := records[0]
	assert.Equal(t, int64(2), first.TotalOrders)
	assert.Equal(t, 37.5, first.TotalRevenue)
	assert.Equal(t, map[int]int64{19: 2}, first.PeakHours)
	require.Len(t, first.PopularItems, 2)
	assert.Equal(t, models.ItemPopularity{MenuItemID: pizza.ID.String(), Name: "Pizza", OrderCount: 2}, first.PopularItems[0])
	assert.Equal(t, "Tiramisu", first.PopularItems[1].Name)

	assert.Equal(t, int64(1), records[1].TotalOrders)

	require.NoError(t, svc.RecordRating(ctx, &models.Order{VendorID: "vendor-1", DeliveredAt: &day2}, 5))
	require.NoError(t, svc.RecordRating(ctx, &models.Order{VendorID: "vendor-1", DeliveredAt: &day2}, 2))
	records, err = svc.GetRange(ctx, "vendor-1", day2, day2)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 3.5, records[0].AverageRating)
}

func TestGetRangeValidation(t *testing.T) {
	svc := NewAnalyticsService(newMemCounters(), nil, time.UTC)
	now := time.Now()

	_, err := svc.GetRange(context.Background(), "v", now, now.AddDate(0, 0, -1))
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = svc.GetRange(context.Background(), "v", now, now.AddDate(0, 0, 120))
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	records, err := svc.GetRange(context.Background(), "v", now, now)
	require.NoError(t, err)
	assert.Empty(t, records)
}
