package services

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"time"
)

// OrderNumberGenerator produit des numéros PREFIX + horodatage ms + suffixe 000-999.
// Les numéros sont strictement croissants dans un même processus; l'unicité entre
// instances est garantie par l'insertion conditionnelle côté ScyllaDB.
type OrderNumberGenerator struct {
	prefix string
	now    func() time.Time

	mu   sync.Mutex
	last int64
}

func NewOrderNumberGenerator(prefix string) *OrderNumberGenerator {
	if prefix == "" {
		prefix = "ORD"
	}
	return &OrderNumberGenerator{prefix: prefix, now: time.Now}
}

func (g *OrderNumberGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	candidate := g.now().UnixMilli()*1000 + int64(rand.IntN(1000))
	if candidate <= g.last {
		candidate = g.last + 1
	}
	g.last = candidate

	return fmt.Sprintf("%s%d%03d", g.prefix, candidate/1000, candidate%1000)
}
