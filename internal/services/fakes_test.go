package services

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"miam_back_end/internal/apperr"
	"miam_back_end/internal/models"
	"miam_back_end/internal/utils"

	"github.com/gocql/gocql"
)

func clone[T any](v *T) *T {
	b, _ := json.Marshal(v)
	out := new(T)
	_ = json.Unmarshal(b, out)
	return out
}

func newMemOrders() *memOrders {
	return &memOrders{byID: map[gocql.UUID]*models.Order{}, numbers: map[string]bool{}}
}

func (r *memOrders) Insert(_ context.Context, o *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.numbers[o.OrderNumber] {
		return apperr.ErrConflict
	}
	r.numbers[o.OrderNumber] = true
	r.byID[o.ID] = clone(o)
	r.writes++
	return nil
}

type memOrders struct {
	mu      sync.Mutex
	byID    map[gocql.UUID]*models.Order
	numbers map[string]bool
	writes  int
	// beforeUpdate s'exécute avant chaque écriture, hors verrou
	beforeUpdate func(o *models.Order) error
}

func (r *memOrders) Update(_ context.Context, o *models.Order, fields ...models.OrderField) error {
	if hook := r.beforeUpdate; hook != nil {
		if err := hook(o); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.byID[o.ID]
	if !ok || len(fields) == 0 {
		r.byID[o.ID] = clone(o)
	} else {
		src := clone(o)
		for _, f := range fields {
			copyOrderField(stored, src, f)
		}
		stored.UpdatedAt = src.UpdatedAt
	}
	r.writes++
	return nil
}

// copyOrderField reproduit une écriture colonne par colonne
func copyOrderField(dst, src *models.Order, f models.OrderField) {
	switch f {
	case models.FieldStatus:
		dst.Status = src.Status
	case models.FieldItems:
		dst.Items = src.Items
	case models.FieldTotalAmount:
		dst.TotalAmount = src.TotalAmount
	case models.FieldRefundAmount:
		dst.RefundAmount = src.RefundAmount
	case models.FieldRejectionReason:
		dst.RejectionReason = src.RejectionReason
	case models.FieldRating:
		dst.Rating = src.Rating
	case models.FieldCancelledAt:
		dst.CancelledAt = src.CancelledAt
	case models.FieldDeliveredAt:
		dst.DeliveredAt = src.DeliveredAt
	case models.FieldPaymentStatus:
		dst.PaymentStatus = src.PaymentStatus
	case models.FieldPaymentIntentID:
		dst.PaymentIntentID = src.PaymentIntentID
	case models.FieldPaymentError:
		dst.PaymentError = src.PaymentError
	case models.FieldAmountCharged:
		dst.AmountCharged = src.AmountCharged
	case models.FieldPaidAt:
		dst.PaidAt = src.PaidAt
	case models.FieldRefundStatus:
		dst.RefundStatus = src.RefundStatus
	case models.FieldRefundID:
		dst.RefundID = src.RefundID
	case models.FieldRefundedAmount:
		dst.RefundedAmount = src.RefundedAmount
	case models.FieldRefundReason:
		dst.RefundReason = src.RefundReason
	case models.FieldRefundedAt:
		dst.RefundedAt = src.RefundedAt
	default:
		panic("champ inconnu: " + string(f))
	}
}

func (r *memOrders) Get(_ context.Context, id gocql.UUID) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.byID[id]
	if !ok {
		return nil, apperr.ErrOrderNotFound
	}
	return clone(o), nil
}

func (r *memOrders) GetByPaymentIntent(_ context.Context, intentID string) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.byID {
		if o.PaymentIntentID == intentID {
			return clone(o), nil
		}
	}
	return nil, apperr.ErrOrderNotFound
}

func (r *memOrders) list(match func(*models.Order) bool) []models.Order {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Order
	for _, o := range r.byID {
		if match(o) {
			out = append(out, *clone(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *memOrders) ListByBuyer(_ context.Context, buyerID string) ([]models.Order, error) {
	return r.list(func(o *models.Order) bool { return o.BuyerID == buyerID }), nil
}

func (r *memOrders) ListByVendor(_ context.Context, vendorID string) ([]models.Order, error) {
	return r.list(func(o *models.Order) bool { return o.VendorID == vendorID }), nil
}

func (r *memOrders) writeCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writes
}

type memMenu struct {
	mu    sync.Mutex
	items map[gocql.UUID]*models.MenuItem
}

func newMemMenu(items ...*models.MenuItem) *memMenu {
	m := &memMenu{items: map[gocql.UUID]*models.MenuItem{}}
	for _, it := range items {
		m.items[it.ID] = it
	}
	return m
}

func (m *memMenu) Get(_ context.Context, id gocql.UUID) (*models.MenuItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	if !ok {
		return nil, apperr.NotFound("Article")
	}
	return clone(it), nil
}

func (m *memMenu) Save(_ context.Context, item *models.MenuItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[item.ID] = clone(item)
	return nil
}

func (m *memMenu) ListByVendor(_ context.Context, vendorID string) ([]models.MenuItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.MenuItem
	for _, it := range m.items {
		if it.VendorID == vendorID {
			out = append(out, *it)
		}
	}
	return out, nil
}

func (m *memMenu) ListAll(_ context.Context, limit int) ([]models.MenuItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.MenuItem
	for _, it := range m.items {
		if len(out) == limit {
			break
		}
		out = append(out, *it)
	}
	return out, nil
}

type memPromos struct {
	mu     sync.Mutex
	codes  map[string]*models.PromoCode
	misses int // nombre de compare-and-set à faire échouer
}

func newMemPromos(promos ...*models.PromoCode) *memPromos {
	r := &memPromos{codes: map[string]*models.PromoCode{}}
	for _, p := range promos {
		r.codes[p.Code] = p
	}
	return r
}

func (r *memPromos) Get(_ context.Context, code string) (*models.PromoCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.codes[code]
	if !ok {
		return nil, apperr.NotFound("Code promo")
	}
	return clone(p), nil
}

func (r *memPromos) Insert(_ context.Context, p *models.PromoCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.codes[p.Code]; ok {
		return apperr.ErrConflict
	}
	r.codes[p.Code] = clone(p)
	return nil
}

func (r *memPromos) Update(_ context.Context, p *models.PromoCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	used := r.codes[p.Code].UsedCount
	r.codes[p.Code] = clone(p)
	r.codes[p.Code].UsedCount = used
	return nil
}

func (r *memPromos) Delete(_ context.Context, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.codes, code)
	return nil
}

func (r *memPromos) List(_ context.Context) ([]models.PromoCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.PromoCode
	for _, p := range r.codes {
		out = append(out, *p)
	}
	return out, nil
}

func (r *memPromos) SwapUsedCount(_ context.Context, code string, expected, next int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.misses > 0 {
		r.misses--
		return false, nil
	}
	p := r.codes[code]
	if p.UsedCount != expected {
		return false, nil
	}
	p.UsedCount = next
	return true, nil
}

type memNotifications struct {
	mu    sync.Mutex
	items []*models.Notification
}

func (r *memNotifications) Insert(_ context.Context, n *models.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, clone(n))
	return nil
}

func (r *memNotifications) List(_ context.Context, userID string, unreadOnly bool, limit int) ([]models.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Notification
	for i := len(r.items) - 1; i >= 0 && len(out) < limit; i-- {
		n := r.items[i]
		if n.UserID == userID && (!unreadOnly || !n.Read) {
			out = append(out, *n)
		}
	}
	return out, nil
}

func (r *memNotifications) Get(_ context.Context, userID string, id gocql.UUID) (*models.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.items {
		if n.UserID == userID && n.ID == id {
			return clone(n), nil
		}
	}
	return nil, apperr.NotFound("Notification")
}

func (r *memNotifications) MarkRead(_ context.Context, n *models.Notification, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, stored := range r.items {
		if stored.ID == n.ID {
			stored.Read = true
			stored.ReadAt = &at
		}
	}
	return nil
}

func (r *memNotifications) Delete(_ context.Context, userID string, id gocql.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, n := range r.items {
		if n.UserID == userID && n.ID == id {
			r.items = append(r.items[:i], r.items[i+1:]...)
			return nil
		}
	}
	return nil
}

func (r *memNotifications) forUser(userID string) []models.Notification {
	out, _ := r.List(context.Background(), userID, false, 1000)
	return out
}

type dayKey struct {
	vendor string
	day    time.Time
}

// memCounters reproduit les compteurs ScyllaDB: uniquement des incréments
type memCounters struct {
	mu      sync.Mutex
	orders  map[dayKey]int64
	revenue map[dayKey]int64
	items   map[dayKey]map[string]int64
	hours   map[dayKey]map[int]int64
	ratings map[dayKey][2]int64
}

func newMemCounters() *memCounters {
	return &memCounters{
		orders:  map[dayKey]int64{},
		revenue: map[dayKey]int64{},
		items:   map[dayKey]map[string]int64{},
		hours:   map[dayKey]map[int]int64{},
		ratings: map[dayKey][2]int64{},
	}
}

func (c *memCounters) IncrementDelivery(_ context.Context, d DeliveryCounters) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := dayKey{d.VendorID, d.Day}
	c.orders[k]++
	c.revenue[k] += d.RevenueCents
	if c.items[k] == nil {
		c.items[k] = map[string]int64{}
		c.hours[k] = map[int]int64{}
	}
	for _, id := range d.ItemIDs {
		c.items[k][id]++
	}
	c.hours[k][d.Hour]++
	return nil
}

func (c *memCounters) IncrementRating(_ context.Context, vendorID string, day time.Time, rating int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := dayKey{vendorID, day}
	r := c.ratings[k]
	c.ratings[k] = [2]int64{r[0] + int64(rating), r[1] + 1}
	return nil
}

func (c *memCounters) Get(_ context.Context, vendorID string, day time.Time) (*models.VendorAnalyticsRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := dayKey{vendorID, day}
	total, ok := c.orders[k]
	if !ok {
		return nil, nil
	}
	rec := &models.VendorAnalyticsRecord{
		VendorID:     vendorID,
		Day:          day,
		TotalOrders:  total,
		TotalRevenue: utils.FromMinorUnits(c.revenue[k]),
		PeakHours:    map[int]int64{},
	}
	for id, n := range c.items[k] {
		rec.PopularItems = append(rec.PopularItems, models.ItemPopularity{MenuItemID: id, OrderCount: n})
	}
	for h, n := range c.hours[k] {
		rec.PeakHours[h] = n
	}
	if r := c.ratings[k]; r[1] > 0 {
		rec.RatingCount = r[1]
		rec.AverageRating = float64(r[0]) / float64(r[1])
	}
	return rec, nil
}

type memUsers struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func newMemUsers(users ...*models.User) *memUsers {
	r := &memUsers{users: map[string]*models.User{}}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *memUsers) Create(_ context.Context, u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return apperr.ErrConflict
		}
	}
	r.users[u.ID] = clone(u)
	r.users[u.ID].Password = u.Password
	return nil
}

func (r *memUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, apperr.NotFound("Utilisateur")
	}
	cp := *u
	return &cp, nil
}

func (r *memUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("Utilisateur")
}

type memSignups struct {
	mu      sync.Mutex
	pending map[string]*models.PendingSignup
}

func (s *memSignups) Save(_ context.Context, p *models.PendingSignup, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		s.pending = map[string]*models.PendingSignup{}
	}
	s.pending[p.Email] = clone(p)
	return nil
}

func (s *memSignups) Get(_ context.Context, email string) (*models.PendingSignup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pending[email]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return clone(p), nil
}

func (s *memSignups) Delete(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, email)
	return nil
}

type memFavorites struct {
	mu   sync.Mutex
	favs []models.Favorite
}

func (r *memFavorites) Add(_ context.Context, f models.Favorite) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.favs {
		if existing.UserID == f.UserID && existing.MenuItemID == f.MenuItemID {
			return nil
		}
	}
	r.favs = append(r.favs, f)
	return nil
}

func (r *memFavorites) Remove(_ context.Context, userID string, id gocql.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, f := range r.favs {
		if f.UserID == userID && f.MenuItemID == id {
			r.favs = append(r.favs[:i], r.favs[i+1:]...)
			break
		}
	}
	return nil
}

func (r *memFavorites) List(_ context.Context, userID string) ([]models.Favorite, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Favorite
	for _, f := range r.favs {
		if f.UserID == userID {
			out = append(out, f)
		}
	}
	return out, nil
}

// inlineTasks exécute les tâches immédiatement et garde leurs noms
type inlineTasks struct {
	mu    sync.Mutex
	names []string
	errs  []error
}

func (q *inlineTasks) Enqueue(name string, fn func(ctx context.Context) error) bool {
	err := fn(context.Background())
	q.mu.Lock()
	defer q.mu.Unlock()
	q.names = append(q.names, name)
	if err != nil {
		q.errs = append(q.errs, err)
	}
	return true
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []utils.Email
}

func (m *recordingMailer) Send(_ context.Context, e utils.Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, e)
	return nil
}

type recordingPublisher struct {
	mu       sync.Mutex
	channels []string
	payloads [][]byte
	err      error
}

func (p *recordingPublisher) Publish(_ context.Context, channel string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.channels = append(p.channels, channel)
	p.payloads = append(p.payloads, payload)
	return p.err
}

type recordingEvents struct {
	mu   sync.Mutex
	keys []string
}

func (e *recordingEvents) PublishEvent(_ context.Context, key string, _ any) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.keys = append(e.keys, key)
	return nil
}

type fakeGateway struct {
	mu         sync.Mutex
	intents    []IntentRequest
	refunds    []int64
	refundKeys []string
	createErr error
	refundErr error
	event     *WebhookEvent
}

func (g *fakeGateway) CreateIntent(_ context.Context, req IntentRequest) (*Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.intents = append(g.intents, req)
	return &Intent{ID: "pi_test_1", ClientSecret: "pi_test_1_secret"}, nil
}

func (g *fakeGateway) Refund(_ context.Context, req RefundRequest) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.refundErr != nil {
		return "", g.refundErr
	}
	g.refunds = append(g.refunds, req.AmountCents)
	g.refundKeys = append(g.refundKeys, req.IdempotencyKey)
	return "re_test_1", nil
}

func (g *fakeGateway) ParseWebhook(payload []byte, signature string) (*WebhookEvent, error) {
	if signature != "valid" {
		return nil, apperr.Validation("bad signature")
	}
	return g.event, nil
}
