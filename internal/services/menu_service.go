package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"path"
	"strings"
	"time"

	"miam_back_end/internal/apperr"
	"miam_back_end/internal/models"
	"miam_back_end/internal/utils"

	"github.com/gocql/gocql"
)

const defaultMenuLimit = 100

type MenuService struct {
	repo   MenuRepository
	index  MenuIndexer
	images ImageStore
	now    func() time.Time
}

func NewMenuService(repo MenuRepository, index MenuIndexer, images ImageStore) *MenuService {
	return &MenuService{repo: repo, index: index, images: images, now: time.Now}
}

type MenuItemInput struct {
	Name               string               `json:"name" binding:"required,max=120"`
	Description        string               `json:"description" binding:"max=1000"`
	Category           string               `json:"category" binding:"max=60"`
	Price              float64              `json:"price" binding:"gt=0"`
	Available          *bool                `json:"available"`
	InstructionOptions []models.Instruction `json:"instructionOptions" binding:"max=30"`
}

func (s *MenuService) Create(ctx context.Context, vendorID string, in MenuItemInput) (*models.MenuItem, error) {
	now := s.now()
	item := &models.MenuItem{
		ID:        gocql.TimeUUID(),
		VendorID:  vendorID,
		CreatedAt: now,
	}
	if err := applyMenuInput(item, in); err != nil {
		return nil, err
	}
	item.UpdatedAt = now
	return item, s.save(ctx, item)
}

func (s *MenuService) Update(ctx context.Context, vendorID string, id gocql.UUID, in MenuItemInput) (*models.MenuItem, error) {
	item, err := s.owned(ctx, vendorID, id)
	if err != nil {
		return nil, err
	}
	if err := applyMenuInput(item, in); err != nil {
		return nil, err
	}
	item.UpdatedAt = s.now()
	return item, s.save(ctx, item)
}

func applyMenuInput(item *models.MenuItem, in MenuItemInput) error {
	names := make(map[string]bool, len(in.InstructionOptions))
	for _, opt := range in.InstructionOptions {
		if strings.TrimSpace(opt.Name) == "" || names[opt.Name] {
			return apperr.Validation("Options invalides: noms vides ou en double")
		}
		names[opt.Name] = true
	}

	item.Name = strings.TrimSpace(in.Name)
	item.Description = in.Description
	item.Category = strings.ToLower(strings.TrimSpace(in.Category))
	item.Price = utils.Round2(in.Price)
	item.InstructionOptions = in.InstructionOptions
	item.Available = in.Available == nil || *in.Available
	return nil
}

func (s *MenuService) SetAvailability(ctx context.Context, vendorID string, id gocql.UUID, available bool) (*models.MenuItem, error) {
	item, err := s.owned(ctx, vendorID, id)
	if err != nil {
		return nil, err
	}
	item.Available = available
	item.UpdatedAt = s.now()
	return item, s.save(ctx, item)
}

func (s *MenuService) UploadImage(ctx context.Context, vendorID string, id gocql.UUID, filename, contentType string, size int64, r io.Reader) (*models.MenuItem, error) {
	if s.images == nil {
		return nil, errors.New("stockage d'images non configuré")
	}
	if !strings.HasPrefix(contentType, "image/") {
		return nil, apperr.Validation("Le fichier doit être une image")
	}
	item, err := s.owned(ctx, vendorID, id)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("menu/%s/%s%s", vendorID, item.ID, strings.ToLower(path.Ext(filename)))
	url, err := s.images.Upload(ctx, key, contentType, size, r)
	if err != nil {
		return nil, fmt.Errorf("upload image: %w", err)
	}

	item.ImageURL = url
	item.UpdatedAt = s.now()
	return item, s.save(ctx, item)
}

func (s *MenuService) Get(ctx context.Context, id gocql.UUID) (*models.MenuItem, error) {
	return s.repo.Get(ctx, id)
}

func (s *MenuService) ListByVendor(ctx context.Context, vendorID string) ([]models.MenuItem, error) {
	return s.repo.ListByVendor(ctx, vendorID)
}

// List retourne les articles disponibles, éventuellement filtrés par catégorie
func (s *MenuService) List(ctx context.Context, category string) ([]models.MenuItem, error) {
	items, err := s.repo.ListAll(ctx, defaultMenuLimit)
	if err != nil {
		return nil, err
	}
	category = strings.ToLower(strings.TrimSpace(category))
	out := make([]models.MenuItem, 0, len(items))
	for _, it := range items {
		if it.Available && (category == "" || it.Category == category) {
			out = append(out, it)
		}
	}
	return out, nil
}

// Search interroge Elasticsearch puis recharge les articles depuis la base.
// Sans index, on filtre la liste par nom.
func (s *MenuService) Search(ctx context.Context, query string) ([]models.MenuItem, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.List(ctx, "")
	}

	if s.index != nil {
		ids, err := s.index.Search(ctx, query, 20)
		if err == nil {
			out := make([]models.MenuItem, 0, len(ids))
			for _, raw := range ids {
				id, err := gocql.ParseUUID(raw)
				if err != nil {
					continue
				}
				item, err := s.repo.Get(ctx, id)
				if err != nil {
					continue
				}
				if item.Available {
					out = append(out, *item)
				}
			}
			return out, nil
		}
		log.Printf("⚠️ Recherche Elasticsearch indisponible, repli sur la base: %v", err)
	}

	items, err := s.List(ctx, "")
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(query)
	out := items[:0]
	for _, it := range items {
		if strings.Contains(strings.ToLower(it.Name), q) || strings.Contains(strings.ToLower(it.Description), q) {
			out = append(out, it)
		}
	}
	return out, nil
}

func (s *MenuService) owned(ctx context.Context, vendorID string, id gocql.UUID) (*models.MenuItem, error) {
	item, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.VendorID != vendorID {
		return nil, apperr.ErrUnauthorized
	}
	return item, nil
}

func (s *MenuService) save(ctx context.Context, item *models.MenuItem) error {
	if err := s.repo.Save(ctx, item); err != nil {
		return err
	}
	if s.index != nil {
		if err := s.index.Index(ctx, item); err != nil {
			log.Printf("⚠️ Indexation de %s échouée: %v", item.ID, err)
		}
	}
	return nil
}
