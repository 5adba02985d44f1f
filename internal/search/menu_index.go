// Package search indexe les articles du menu dans Elasticsearch.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"miam_back_end/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

const MenuIndexName = "menu_items"

type menuDocument struct {
	ID          string  `json:"id"`
	VendorID    string  `json:"vendorId"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Price       float64 `json:"price"`
	Available   bool    `json:"available"`
}

type MenuIndex struct {
	es *elasticsearch.Client
}

func NewMenuIndex(es *elasticsearch.Client) *MenuIndex {
	return &MenuIndex{es: es}
}

func (m *MenuIndex) Index(ctx context.Context, item *models.MenuItem) error {
	if m.es == nil {
		return errors.New("client Elasticsearch non initialisé")
	}

	data, err := json.Marshal(menuDocument{
		ID:          item.ID.String(),
		VendorID:    item.VendorID,
		Name:        item.Name,
		Description: item.Description,
		Category:    item.Category,
		Price:       item.Price,
		Available:   item.Available,
	})
	if err != nil {
		return err
	}

	req := esapi.IndexRequest{
		Index:      MenuIndexName,
		DocumentID: item.ID.String(),
		Body:       bytes.NewReader(data),
		Refresh:    "true",
	}
	res, err := req.Do(ctx, m.es)
	if err != nil {
		return fmt.Errorf("erreur envoi Elastic: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elastic a renvoyé une erreur pour %s: %s", item.Name, res.String())
	}
	log.Printf("✅ Article indexé dans Elasticsearch: %s", item.Name)
	return nil
}

// Search retourne les identifiants des articles disponibles correspondant à query
func (m *MenuIndex) Search(ctx context.Context, query string, limit int) ([]string, error) {
	if m.es == nil {
		return nil, errors.New("client Elasticsearch non initialisé")
	}

	var buf bytes.Buffer
	q := map[string]any{
		"size": limit,
		"query": map[string]any{
			"bool": map[string]any{
				"must": map[string]any{
					"multi_match": map[string]any{
						"query":     query,
						"fields":    []string{"name^3", "description", "category"},
						"fuzziness": "AUTO",
					},
				},
				"filter": map[string]any{
					"term": map[string]any{"available": true},
				},
			},
		},
	}
	if err := json.NewEncoder(&buf).Encode(q); err != nil {
		return nil, fmt.Errorf("erreur encodage requête: %w", err)
	}

	req := esapi.SearchRequest{
		Index: []string{MenuIndexName},
		Body:  &buf,
	}
	res, err := req.Do(ctx, m.es)
	if err != nil {
		return nil, fmt.Errorf("erreur requête Elastic: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("recherche Elastic: %s", res.Status())
	}

	var r struct {
		Hits struct {
			Hits []struct {
				ID     string       `json:"_id"`
				Source menuDocument `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("erreur décodage JSON: %w", err)
	}

	ids := make([]string, 0, len(r.Hits.Hits))
	for _, hit := range r.Hits.Hits {
		ids = append(ids, hit.ID)
	}
	return ids, nil
}
