package repository

import (
	"context"
	"fmt"

	"miam_back_end/internal/apperr"
	"miam_back_end/internal/models"

	"github.com/gocql/gocql"
)

const menuColumns = `item_id, vendor_id, name, description, category, price, available,
	instruction_options, image_url, created_at, updated_at`

type MenuRepository struct {
	session *gocql.Session
}

func NewMenuRepository(session *gocql.Session) *MenuRepository {
	return &MenuRepository{session: session}
}

func (r *MenuRepository) Save(ctx context.Context, item *models.MenuItem) error {
	options, err := toJSON(item.InstructionOptions)
	if err != nil {
		return err
	}
	batch := r.session.NewBatch(gocql.LoggedBatch).WithContext(ctx)
	batch.Query(`INSERT INTO menu_items (`+menuColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.VendorID, item.Name, item.Description, item.Category, item.Price, item.Available,
		options, item.ImageURL, item.CreatedAt, item.UpdatedAt)
	batch.Query(`INSERT INTO menu_items_by_vendor (vendor_id, item_id) VALUES (?, ?)`, item.VendorID, item.ID)
	return r.session.ExecuteBatch(batch)
}

func scanMenuItem(scan func(dest ...any) bool) (*models.MenuItem, bool, error) {
	var (
		item    models.MenuItem
		options string
	)
	if !scan(&item.ID, &item.VendorID, &item.Name, &item.Description, &item.Category, &item.Price,
		&item.Available, &options, &item.ImageURL, &item.CreatedAt, &item.UpdatedAt) {
		return nil, false, nil
	}
	if err := fromJSON(options, &item.InstructionOptions); err != nil {
		return nil, true, fmt.Errorf("options de l'article %s illisibles: %w", item.ID, err)
	}
	return &item, true, nil
}

func (r *MenuRepository) Get(ctx context.Context, id gocql.UUID) (*models.MenuItem, error) {
	iter := r.session.Query(`SELECT `+menuColumns+` FROM menu_items WHERE item_id = ?`, id).WithContext(ctx).Iter()
	item, ok, err := scanMenuItem(iter.Scan)
	if closeErr := iter.Close(); closeErr != nil {
		return nil, closeErr
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.NotFound("Article")
	}
	return item, nil
}

func (r *MenuRepository) ListByVendor(ctx context.Context, vendorID string) ([]models.MenuItem, error) {
	iter := r.session.Query(`SELECT item_id FROM menu_items_by_vendor WHERE vendor_id = ?`, vendorID).
		WithContext(ctx).Iter()
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

	items := make([]models.MenuItem, 0, len(ids))
	for _, id := range ids {
		item, err := r.Get(ctx, id)
		if err != nil {
			if apperr.KindOf(err) == apperr.KindNotFound {
				continue
			}
			return nil, err
		}
		items = append(items, *item)
	}
	return items, nil
}

func (r *MenuRepository) ListAll(ctx context.Context, limit int) ([]models.MenuItem, error) {
	iter := r.session.Query(`SELECT `+menuColumns+` FROM menu_items LIMIT ?`, limit).WithContext(ctx).Iter()
	var items []models.MenuItem
	for {
		item, ok, err := scanMenuItem(iter.Scan)
		if err != nil {
			iter.Close()
			return nil, err
		}
		if !ok {
			break
		}
		items = append(items, *item)
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}
	return items, nil
}
