package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"miam_back_end/internal/apperr"
	"miam_back_end/internal/models"

	"github.com/gocql/gocql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memIndex struct {
	indexed map[string]*models.MenuItem
	err     error
}

func (m *memIndex) Index(_ context.Context, item *models.MenuItem) error {
	if m.indexed == nil {
		m.indexed = map[string]*models.MenuItem{}
	}
	m.indexed[item.ID.String()] = item
	return nil
}

func (m *memIndex) Search(_ context.Context, query string, _ int) ([]string, error) {
	if m.err != nil {
		return nil, m.err
	}
	var ids []string
	for id, it := range m.indexed {
		if strings.Contains(strings.ToLower(it.Name), strings.ToLower(query)) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

type memImages struct {
	keys []string
}

func (m *memImages) Upload(_ context.Context, name, _ string, _ int64, r io.Reader) (string, error) {
	if _, err := io.ReadAll(r); err != nil {
		return "", err
	}
	m.keys = append(m.keys, name)
	return "http://minio.test/menu-images/" + name, nil
}

func TestMenuLifecycle(t *testing.T) {
	repo := newMemMenu()
	index := &memIndex{}
	images := &memImages{}
	svc := NewMenuService(repo, index, images)
	ctx := context.Background()

	item, err := svc.Create(ctx, "vendor-1", MenuItemInput{
		Name:               " Pad thaï ",
		Category:           "Thai",
		Price:              12.499,
		InstructionOptions: []models.Instruction{{Name: "Épicé", PriceModifier: 0.5}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Pad thaï", item.Name)
	assert.Equal(t, "thai", item.Category)
	assert.Equal(t, 12.5, item.Price)
	assert.True(t, item.Available)
	assert.Contains(t, index.indexed, item.ID.String())

	_, err = svc.Create(ctx, "vendor-1", MenuItemInput{Name: "x", Price: 1, InstructionOptions: []models.Instruction{{Name: "a"}, {Name: "a"}}})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = svc.SetAvailability(ctx, "vendor-2", item.ID, false)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	off, err := svc.SetAvailability(ctx, "vendor-1", item.ID, false)
	require.NoError(t, err)
	assert.False(t, off.Available)

	visible, err := svc.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, visible)

	_, err = svc.SetAvailability(ctx, "vendor-1", item.ID, true)
	require.NoError(t, err)

	found, err := svc.Search(ctx, "pad")
	require.NoError(t, err)
	require.Len(t, found, 1)

	index.err = errors.New("elastic down")
	found, err = svc.Search(ctx, "THAÏ")
	require.NoError(t, err)
	assert.Len(t, found, 1)

	withImage, err := svc.UploadImage(ctx, "vendor-1", item.ID, "photo.JPG", "image/jpeg", 3, strings.NewReader("img"))
	require.NoError(t, err)
	assert.Equal(t, "http://minio.test/menu-images/menu/vendor-1/"+item.ID.String()+".jpg", withImage.ImageURL)

	_, err = svc.UploadImage(ctx, "vendor-1", item.ID, "notes.txt", "text/plain", 3, strings.NewReader("txt"))
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = svc.Get(ctx, gocql.TimeUUID())
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestFavorites(t *testing.T) {
	kept := &models.MenuItem{ID: gocql.TimeUUID(), Name: "Ramen"}
	menu := newMemMenu(kept)
	svc := NewFavoriteService(&memFavorites{}, menu)
	ctx := context.Background()

	require.NoError(t, svc.Add(ctx, "user-1", kept.ID))
	require.NoError(t, svc.Add(ctx, "user-1", kept.ID))
	assert.ErrorIs(t, svc.Add(ctx, "user-1", gocql.TimeUUID()), apperr.ErrNotFound)

	list, err := svc.List(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "Ramen", list.Items[0].Name)

	require.NoError(t, svc.Remove(ctx, "user-1", kept.ID))
	list, err = svc.List(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, list.Items)
}
