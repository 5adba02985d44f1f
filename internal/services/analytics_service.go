package services

import (
	"context"
	"errors"
	"log"
	"sort"
	"time"

	"miam_back_end/internal/apperr"
	"miam_back_end/internal/models"
	"miam_back_end/internal/utils"

	"github.com/gocql/gocql"
)

const maxAnalyticsRange = 92

// AnalyticsService agrège les commandes livrées par restaurant et par jour.
// Les écritures sont de purs incréments de compteurs: deux livraisons simultanées
// pour le même restaurant et le même jour s'additionnent sans lecture préalable.
type AnalyticsService struct {
	store AnalyticsStore
	menu  MenuReader
	loc   *time.Location
	now   func() time.Time
}

func NewAnalyticsService(store AnalyticsStore, menu MenuReader, loc *time.Location) *AnalyticsService {
	if loc == nil {
		loc = time.UTC
	}
	return &AnalyticsService{store: store, menu: menu, loc: loc, now: time.Now}
}

// DayKey tronque un instant à minuit dans le fuseau des statistiques
func (s *AnalyticsService) DayKey(t time.Time) time.Time {
	t = t.In(s.loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, s.loc)
}

// ParseDay lit une date YYYY-MM-DD dans le fuseau des statistiques
func (s *AnalyticsService) ParseDay(raw string) (time.Time, error) {
	day, err := time.ParseInLocation("2006-01-02", raw, s.loc)
	if err != nil {
		return time.Time{}, apperr.Validation("Date %q invalide, format attendu AAAA-MM-JJ", raw)
	}
	return day, nil
}

// Today retourne le jour courant dans le fuseau des statistiques
func (s *AnalyticsService) Today() time.Time {
	return s.DayKey(s.now())
}

func (s *AnalyticsService) RecordDelivery(ctx context.Context, order *models.Order) error {
	deliveredAt := s.now()
	if order.DeliveredAt != nil {
		deliveredAt = *order.DeliveredAt
	}

	seen := make(map[string]struct{})
	var itemIDs []string
	for _, it := range order.ActiveItems() {
		if _, ok := seen[it.MenuItemID]; ok {
			continue
		}
		seen[it.MenuItemID] = struct{}{}
		itemIDs = append(itemIDs, it.MenuItemID)
	}

	placedAt := order.CreatedAt
	if placedAt.IsZero() {
		placedAt = deliveredAt
	}

	return s.store.IncrementDelivery(ctx, DeliveryCounters{
		VendorID:     order.VendorID,
		Day:          s.DayKey(deliveredAt),
		Hour:         placedAt.In(s.loc).Hour(),
		RevenueCents: utils.ToMinorUnits(order.TotalAmount),
		ItemIDs:      itemIDs,
	})
}

func (s *AnalyticsService) RecordRating(ctx context.Context, order *models.Order, rating int) error {
	at := s.now()
	if order.DeliveredAt != nil {
		at = *order.DeliveredAt
	}
	return s.store.IncrementRating(ctx, order.VendorID, s.DayKey(at), rating)
}

// GetRange retourne les agrégats de chaque jour entre from et to inclus
func (s *AnalyticsService) GetRange(ctx context.Context, vendorID string, from, to time.Time) ([]models.VendorAnalyticsRecord, error) {
	from, to = s.DayKey(from), s.DayKey(to)
	if to.Before(from) {
		return nil, apperr.Validation("La date de fin précède la date de début")
	}
	if to.Sub(from) > maxAnalyticsRange*24*time.Hour {
		return nil, apperr.Validation("Période limitée à %d jours", maxAnalyticsRange)
	}

	names := make(map[string]string)
	records := []models.VendorAnalyticsRecord{}
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		rec, err := s.store.Get(ctx, vendorID, day)
		if err != nil {
			return nil, err
		}
		if rec == nil {
			continue
		}
		sort.Slice(rec.PopularItems, func(i, j int) bool {
			return rec.PopularItems[i].OrderCount > rec.PopularItems[j].OrderCount
		})
		for i := range rec.PopularItems {
			rec.PopularItems[i].Name = s.itemName(ctx, names, rec.PopularItems[i].MenuItemID)
		}
		records = append(records, *rec)
	}
	return records, nil
}

func (s *AnalyticsService) itemName(ctx context.Context, cache map[string]string, id string) string {
	if name, ok := cache[id]; ok {
		return name
	}
	name := ""
	if uid, err := gocql.ParseUUID(id); err == nil && s.menu != nil {
		item, err := s.menu.Get(ctx, uid)
		switch {
		case err == nil:
			name = item.Name
		case !errors.Is(err, apperr.ErrNotFound):
			log.Printf("⚠️ Nom de l'article %s indisponible: %v", id, err)
		}
	}
	cache[id] = name
	return name
}
