package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"miam_back_end/internal/apperr"
	"miam_back_end/internal/models"
	"miam_back_end/internal/tasks"
	"miam_back_end/internal/utils"

	"github.com/gocql/gocql"
)

const maxOrderNumberAttempts = 5

// Clés de routage publiées sur l'exchange des commandes
const (
	RoutingOrderPlaced       = "order.placed"
	RoutingOrderStatusPrefix = "order.status."
)

// RefundInitiator déclenche un remboursement auprès de la passerelle
type RefundInitiator interface {
	InitiateRefund(ctx context.Context, orderID gocql.UUID, amount float64, reason string) (*models.Order, error)
}

type OrderDeps struct {
	Orders    OrderRepository
	Menu      MenuReader
	Promos    *PromoService
	Analytics *AnalyticsService
	Notifier  *NotificationService
	Refunds   RefundInitiator
	Users     UserLookup
	Mailer    Mailer
	Events    EventPublisher
	Tasks     Enqueuer
	Numbers   *OrderNumberGenerator
}

// OrderService porte le cycle de vie des commandes
type OrderService struct {
	OrderDeps
	now func() time.Time
}

func NewOrderService(deps OrderDeps) *OrderService {
	if deps.Numbers == nil {
		deps.Numbers = NewOrderNumberGenerator("ORD")
	}
	return &OrderService{OrderDeps: deps, now: time.Now}
}

type CreateOrderInput struct {
	BuyerID       string
	VendorID      string
	Items         []models.CartLine
	PaymentMethod models.PaymentMethod
	PromoCode     string
}

// OrderEvent est le message publié sur le broker
type OrderEvent struct {
	OrderID     string             `json:"orderId"`
	OrderNumber string             `json:"orderNumber"`
	BuyerID     string             `json:"buyerId"`
	VendorID    string             `json:"vendorId"`
	Status      models.OrderStatus `json:"status"`
	TotalAmount float64            `json:"totalAmount"`
	At          time.Time          `json:"at"`
}

func (s *OrderService) CreateOrder(ctx context.Context, in CreateOrderInput) (*models.Order, error) {
	if len(in.Items) == 0 {
		return nil, apperr.Validation("Le panier est vide")
	}
	if in.PaymentMethod == "" {
		in.PaymentMethod = models.PaymentCard
	}
	if in.PaymentMethod != models.PaymentCard && in.PaymentMethod != models.PaymentCash {
		return nil, apperr.Validation("Moyen de paiement inconnu: %s", in.PaymentMethod)
	}

	vendorID := in.VendorID
	lines := make([]models.OrderLineItem, 0, len(in.Items))
	promoItems := make([]models.PromoItem, 0, len(in.Items))
	totals := make([]float64, 0, len(in.Items))

	for _, cl := range in.Items {
		line, item, err := s.priceLine(ctx, cl)
		if err != nil {
			return nil, err
		}
		switch {
		case vendorID == "":
			vendorID = item.VendorID
		case item.VendorID != vendorID:
			return nil, apperr.ErrMixedVendors
		}
		lines = append(lines, line)
		totals = append(totals, line.LineTotal)
		promoItems = append(promoItems, models.PromoItem{MenuItemID: line.MenuItemID, Category: item.Category})
	}
	if vendorID == "" {
		return nil, apperr.ErrVendorUndetermined
	}

	now := s.now()
	order := &models.Order{
		ID:            gocql.TimeUUID(),
		BuyerID:       in.BuyerID,
		VendorID:      vendorID,
		Items:         lines,
		TotalAmount:   utils.SumAmounts(totals...),
		Status:        models.StatusPending,
		PaymentStatus: models.PaymentPending,
		PaymentMethod: in.PaymentMethod,
		RefundStatus:  models.RefundNone,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if code := strings.TrimSpace(in.PromoCode); code != "" {
		promo, err := s.Promos.Validate(ctx, code, order.TotalAmount, promoItems)
		if err != nil {
			return nil, err
		}
		order.PromoCode = promo.Code
		order.DiscountAmount = CalculateDiscount(promo, order.TotalAmount)
	}

	if err := s.insertWithNumber(ctx, order); err != nil {
		return nil, err
	}
	log.Printf("📦 Commande %s créée (%d articles, %.2f€)", order.OrderNumber, len(order.Items), order.TotalAmount)

	if order.PromoCode != "" {
		if err := s.Promos.Redeem(ctx, order.PromoCode); err != nil {
			// la commande existe déjà; on garde la remise validée plus haut
			log.Printf("⚠️ Utilisation du code %s non comptabilisée pour %s: %v", order.PromoCode, order.OrderNumber, err)
		}
	}

	s.afterCreate(order)
	return order, nil
}

func (s *OrderService) priceLine(ctx context.Context, cl models.CartLine) (models.OrderLineItem, *models.MenuItem, error) {
	if cl.Quantity < 1 {
		return models.OrderLineItem{}, nil, apperr.Validation("Quantité invalide pour %s", cl.MenuItemID)
	}
	id, err := gocql.ParseUUID(cl.MenuItemID)
	if err != nil {
		return models.OrderLineItem{}, nil, apperr.Validation("Identifiant d'article invalide: %s", cl.MenuItemID)
	}
	item, err := s.Menu.Get(ctx, id)
	if err != nil {
		return models.OrderLineItem{}, nil, err
	}
	if !item.Available {
		return models.OrderLineItem{}, nil, apperr.New(apperr.KindNotAvailable, "Article indisponible: "+item.Name)
	}

	instructions := make([]models.Instruction, 0, len(cl.Instructions))
	modifiers := make([]float64, 0, len(cl.Instructions))
	for _, name := range cl.Instructions {
		opt, ok := item.FindInstruction(name)
		if !ok {
			return models.OrderLineItem{}, nil, apperr.Validation("Option %q inconnue pour %s", name, item.Name)
		}
		instructions = append(instructions, opt)
		modifiers = append(modifiers, opt.PriceModifier)
	}

	return models.OrderLineItem{
		MenuItemID:   item.ID.String(),
		Name:         item.Name,
		Category:     item.Category,
		Quantity:     cl.Quantity,
		UnitPrice:    item.Price,
		Instructions: instructions,
		Note:         cl.Note,
		LineTotal:    utils.LineTotal(item.Price, modifiers, cl.Quantity),
	}, item, nil
}

func (s *OrderService) insertWithNumber(ctx context.Context, order *models.Order) error {
	var err error
	for attempt := 0; attempt < maxOrderNumberAttempts; attempt++ {
		order.OrderNumber = s.Numbers.Next()
		err = s.Orders.Insert(ctx, order)
		if !errors.Is(err, apperr.ErrConflict) {
			return err
		}
		log.Printf("⚠️ Numéro %s déjà pris, nouvel essai", order.OrderNumber)
	}
	return fmt.Errorf("numéro de commande unique introuvable après %d essais: %w", maxOrderNumberAttempts, err)
}

type StatusUpdateInput struct {
	OrderID         gocql.UUID
	VendorID        string
	Status          models.OrderStatus
	RejectionReason string
	RejectedItems   []string
}

func (s *OrderService) UpdateOrderStatus(ctx context.Context, in StatusUpdateInput) (*models.Order, error) {
	order, err := s.Orders.Get(ctx, in.OrderID)
	if err != nil {
		return nil, err
	}
	if order.VendorID != in.VendorID {
		return nil, apperr.ErrUnauthorized
	}
	if !in.Status.Valid() {
		return nil, apperr.Validation("Statut inconnu: %s", in.Status)
	}
	if !order.Status.CanTransitionTo(in.Status) {
		return nil, apperr.ErrInvalidTransition
	}

	now := s.now()
	before := order.RefundAmount
	next := in.Status
	cashSettled := false

	if next == models.StatusPartiallyRejected {
		allRejected, err := rejectItems(order, in.RejectedItems)
		if err != nil {
			return nil, err
		}
		if allRejected {
			next = models.StatusRejected
		}
	}

	switch next {
	case models.StatusPartiallyRejected:
		original := order.TotalAmount
		active := order.ActiveItems()
		totals := make([]float64, 0, len(active))
		for _, it := range active {
			totals = append(totals, it.LineTotal)
		}
		order.TotalAmount = utils.SumAmounts(totals...)
		order.RefundAmount = utils.SumAmounts(order.RefundAmount, utils.SubAmounts(original, order.TotalAmount))
	case models.StatusRejected, models.StatusCancelled:
		order.RefundAmount = utils.SumAmounts(order.RefundAmount, order.TotalAmount)
		order.TotalAmount = 0
		if next == models.StatusCancelled {
			order.CancelledAt = &now
		}
	case models.StatusDelivered:
		order.DeliveredAt = &now
		if order.PaymentMethod == models.PaymentCash && order.PaymentStatus != models.PaymentCompleted {
			order.PaymentStatus = models.PaymentCompleted
			order.PaidAt = &now
			cashSettled = true
		}
	}
	if in.RejectionReason != "" {
		order.RejectionReason = in.RejectionReason
	}
	order.Status = next
	order.UpdatedAt = now

	fields := []models.OrderField{
		models.FieldStatus, models.FieldItems, models.FieldTotalAmount, models.FieldRefundAmount,
		models.FieldRejectionReason, models.FieldCancelledAt, models.FieldDeliveredAt,
	}
	if cashSettled {
		fields = append(fields, models.FieldPaymentStatus, models.FieldPaidAt)
	}
	refundDelta := s.markRefundRequested(order, before)
	if refundDelta > 0 {
		fields = append(fields, models.FieldRefundStatus)
	}

	if err := s.Orders.Update(ctx, order, fields...); err != nil {
		return nil, err
	}
	log.Printf("📦 Commande %s → %s", order.OrderNumber, order.Status)

	if order.Status == models.StatusDelivered && s.Analytics != nil {
		if err := s.Analytics.RecordDelivery(ctx, order); err != nil {
			log.Printf("❌ Statistiques non mises à jour pour %s: %v", order.OrderNumber, err)
		}
	}

	s.requestRefund(order, refundDelta, in.RejectionReason)
	s.afterStatusChange(order)
	return order, nil
}

// rejectItems marque les lignes refusées; true si plus aucune ligne n'est active
func rejectItems(order *models.Order, ids []string) (bool, error) {
	if len(ids) == 0 {
		return false, apperr.Validation("Aucun article refusé indiqué")
	}
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = false
	}
	for i := range order.Items {
		it := &order.Items[i]
		if _, ok := wanted[it.MenuItemID]; ok && !it.Rejected {
			it.Rejected = true
			wanted[it.MenuItemID] = true
		}
	}
	for id, found := range wanted {
		if !found {
			return false, apperr.Validation("Article %s absent de la commande", id)
		}
	}
	return len(order.ActiveItems()) == 0, nil
}

// markRefundRequested passe le remboursement à "requested" si la commande a été payée
// par carte et qu'un nouveau montant est dû; retourne ce montant.
func (s *OrderService) markRefundRequested(order *models.Order, before float64) float64 {
	delta := utils.SubAmounts(order.RefundAmount, before)
	if delta <= 0 || order.PaymentStatus != models.PaymentCompleted || order.PaymentMethod != models.PaymentCard {
		return 0
	}
	order.RefundStatus = models.RefundRequested
	remaining := utils.SubAmounts(order.AmountCharged, order.RefundedAmount)
	if delta > remaining {
		delta = remaining
	}
	return delta
}

func (s *OrderService) requestRefund(order *models.Order, amount float64, reason string) {
	if amount <= 0 || s.Refunds == nil {
		return
	}
	if reason == "" {
		reason = "Commande " + utils.StatusLabel(order.Status)
	}
	id, number := order.ID, order.OrderNumber
	// Une seule tentative: un remboursement accepté par Stripe ne doit jamais être renvoyé
	s.enqueue("refund:"+number, func(ctx context.Context) error {
		_, err := s.Refunds.InitiateRefund(ctx, id, amount, reason)
		if apperr.KindOf(err) == apperr.KindValidation || errors.Is(err, apperr.ErrNotPaid) {
			log.Printf("⚠️ Remboursement automatique abandonné pour %s: %v", number, err)
			return nil
		}
		if err != nil {
			return tasks.Permanent(err)
		}
		return nil
	})
}

// CancelOrder est l'annulation à l'initiative du client
func (s *OrderService) CancelOrder(ctx context.Context, orderID gocql.UUID, buyerID string) (*models.Order, error) {
	order, err := s.Orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.BuyerID != buyerID {
		return nil, apperr.ErrUnauthorized
	}
	if order.Status != models.StatusPending && order.Status != models.StatusAccepted {
		return nil, apperr.ErrInvalidTransition
	}

	now := s.now()
	before := order.RefundAmount
	order.Status = models.StatusCancelled
	order.CancelledAt = &now
	order.UpdatedAt = now
	order.RefundAmount = utils.SumAmounts(order.RefundAmount, order.TotalAmount)
	order.TotalAmount = 0
	fields := []models.OrderField{models.FieldStatus, models.FieldTotalAmount, models.FieldRefundAmount, models.FieldCancelledAt}
	refundDelta := s.markRefundRequested(order, before)
	if refundDelta > 0 {
		fields = append(fields, models.FieldRefundStatus)
	}

	if err := s.Orders.Update(ctx, order, fields...); err != nil {
		return nil, err
	}
	log.Printf("📦 Commande %s annulée par le client", order.OrderNumber)

	s.requestRefund(order, refundDelta, "Annulée par le client")
	s.afterStatusChange(order)
	return order, nil
}

func (s *OrderService) RateOrder(ctx context.Context, orderID gocql.UUID, buyerID string, rating int) (*models.Order, error) {
	if rating < 1 || rating > 5 {
		return nil, apperr.Validation("La note doit être comprise entre 1 et 5")
	}
	order, err := s.Orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.BuyerID != buyerID {
		return nil, apperr.ErrUnauthorized
	}
	if order.Status != models.StatusDelivered {
		return nil, apperr.ErrInvalidTransition
	}
	if order.Rating != 0 {
		return nil, apperr.New(apperr.KindConflict, "Commande déjà notée")
	}

	order.Rating = rating
	order.UpdatedAt = s.now()
	if err := s.Orders.Update(ctx, order, models.FieldRating); err != nil {
		return nil, err
	}
	if s.Analytics != nil {
		if err := s.Analytics.RecordRating(ctx, order, rating); err != nil {
			log.Printf("❌ Note non comptabilisée pour %s: %v", order.OrderNumber, err)
		}
	}
	return order, nil
}

// GetOrder est accessible au client, au restaurant concerné et aux admins
func (s *OrderService) GetOrder(ctx context.Context, orderID gocql.UUID, actor Actor) (*models.Order, error) {
	order, err := s.Orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if actor.Role != models.RoleAdmin && order.BuyerID != actor.UserID && order.VendorID != actor.UserID {
		return nil, apperr.ErrUnauthorized
	}
	return order, nil
}

func (s *OrderService) ListMyOrders(ctx context.Context, buyerID string) ([]models.Order, error) {
	return s.Orders.ListByBuyer(ctx, buyerID)
}

func (s *OrderService) ListVendorOrders(ctx context.Context, vendorID string, status models.OrderStatus) ([]models.Order, error) {
	orders, err := s.Orders.ListByVendor(ctx, vendorID)
	if err != nil || status == "" {
		return orders, err
	}
	filtered := orders[:0]
	for _, o := range orders {
		if o.Status == status {
			filtered = append(filtered, o)
		}
	}
	return filtered, nil
}

func (s *OrderService) afterCreate(order *models.Order) {
	snapshot := *order
	data := models.NotificationData{
		OrderID:     snapshot.ID.String(),
		OrderNumber: snapshot.OrderNumber,
		Amount:      snapshot.TotalAmount,
		Status:      string(snapshot.Status),
	}

	s.notify(NotificationRequest{
		UserID:   snapshot.BuyerID,
		Type:     models.NotifOrderPlaced,
		Title:    "Commande enregistrée",
		Message:  fmt.Sprintf("Votre commande %s a bien été transmise au restaurant.", snapshot.OrderNumber),
		Data:     data,
		Priority: models.PriorityNormal,
	})
	s.notify(NotificationRequest{
		UserID:   snapshot.VendorID,
		Type:     models.NotifOrderPlaced,
		Title:    "Nouvelle commande",
		Message:  fmt.Sprintf("Nouvelle commande %s (%.2f€).", snapshot.OrderNumber, snapshot.TotalAmount),
		Data:     data,
		Priority: models.PriorityHigh,
	})

	s.enqueue("email:confirmation:"+snapshot.OrderNumber, func(ctx context.Context) error {
		buyer, err := s.buyer(ctx, snapshot.BuyerID)
		if err != nil || buyer == nil {
			return err
		}
		png, err := utils.PickupQRCode(snapshot.OrderNumber)
		if err != nil {
			log.Printf("⚠️ QR code non généré pour %s: %v", snapshot.OrderNumber, err)
		}
		if err := s.Mailer.Send(ctx, utils.OrderConfirmationEmail(buyer.Email, &snapshot, png)); err != nil {
			return err
		}
		log.Printf("📧 Confirmation %s envoyée à %s", snapshot.OrderNumber, buyer.Email)
		return nil
	})

	s.publish(RoutingOrderPlaced, &snapshot)
}

var statusNotifications = map[models.OrderStatus]struct {
	kind     models.NotificationType
	title    string
	priority models.NotificationPriority
}{
	models.StatusAccepted:          {models.NotifOrderAccepted, "Commande acceptée", models.PriorityNormal},
	models.StatusPreparing:         {models.NotifOrderPreparing, "Commande en préparation", models.PriorityLow},
	models.StatusOutForDelivery:    {models.NotifOrderOutForDelivery, "Commande en route", models.PriorityNormal},
	models.StatusDelivered:         {models.NotifOrderDelivered, "Commande livrée", models.PriorityNormal},
	models.StatusCancelled:         {models.NotifOrderCancelled, "Commande annulée", models.PriorityHigh},
	models.StatusRejected:          {models.NotifOrderRejected, "Commande refusée", models.PriorityHigh},
	models.StatusPartiallyRejected: {models.NotifOrderPartiallyRejected, "Commande partiellement refusée", models.PriorityHigh},
}

func (s *OrderService) afterStatusChange(order *models.Order) {
	snapshot := *order
	meta, ok := statusNotifications[snapshot.Status]
	if !ok {
		return
	}

	msg := fmt.Sprintf("Votre commande %s est %s.", snapshot.OrderNumber, utils.StatusLabel(snapshot.Status))
	if snapshot.RejectionReason != "" {
		msg += " Motif : " + snapshot.RejectionReason
	}
	s.notify(NotificationRequest{
		UserID:  snapshot.BuyerID,
		Type:    meta.kind,
		Title:   meta.title,
		Message: msg,
		Data: models.NotificationData{
			OrderID:     snapshot.ID.String(),
			OrderNumber: snapshot.OrderNumber,
			Amount:      snapshot.TotalAmount,
			Status:      string(snapshot.Status),
		},
		Priority: meta.priority,
	})
	if snapshot.Status == models.StatusCancelled {
		s.notify(NotificationRequest{
			UserID:   snapshot.VendorID,
			Type:     meta.kind,
			Title:    meta.title,
			Message:  fmt.Sprintf("La commande %s a été annulée.", snapshot.OrderNumber),
			Data:     models.NotificationData{OrderID: snapshot.ID.String(), OrderNumber: snapshot.OrderNumber, Status: string(snapshot.Status)},
			Priority: meta.priority,
		})
	}

	s.enqueue("email:status:"+snapshot.OrderNumber, func(ctx context.Context) error {
		buyer, err := s.buyer(ctx, snapshot.BuyerID)
		if err != nil || buyer == nil {
			return err
		}
		return s.Mailer.Send(ctx, utils.OrderStatusEmail(buyer.Email, &snapshot))
	})

	s.publish(RoutingOrderStatusPrefix+string(snapshot.Status), &snapshot)
}

func (s *OrderService) buyer(ctx context.Context, id string) (*models.User, error) {
	if s.Users == nil || s.Mailer == nil {
		return nil, nil
	}
	u, err := s.Users.GetByID(ctx, id)
	if errors.Is(err, apperr.ErrNotFound) {
		log.Printf("⚠️ Client %s introuvable, email ignoré", id)
		return nil, nil
	}
	return u, err
}

func (s *OrderService) notify(req NotificationRequest) {
	if s.Notifier == nil {
		return
	}
	s.enqueue("notification:"+string(req.Type), func(ctx context.Context) error {
		_, err := s.Notifier.Dispatch(ctx, req)
		return err
	})
}

func (s *OrderService) publish(key string, order *models.Order) {
	if s.Events == nil {
		return
	}
	ev := OrderEvent{
		OrderID:     order.ID.String(),
		OrderNumber: order.OrderNumber,
		BuyerID:     order.BuyerID,
		VendorID:    order.VendorID,
		Status:      order.Status,
		TotalAmount: order.TotalAmount,
		At:          order.UpdatedAt,
	}
	s.enqueue("event:"+key, func(ctx context.Context) error {
		return s.Events.PublishEvent(ctx, key, ev)
	})
}

func (s *OrderService) enqueue(name string, fn func(ctx context.Context) error) {
	if s.Tasks == nil {
		return
	}
	if !s.Tasks.Enqueue(name, fn) {
		log.Printf("⚠️ File pleine, tâche %s abandonnée", name)
	}
}
