package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"miam_back_end/internal/apperr"
	"miam_back_end/internal/models"

	"github.com/gocql/gocql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePaymentIntentChargesPayableAmount(t *testing.T) {
	f := newOrderFixture(t)
	order := f.placeOrder(t, models.PaymentCard, line(f.burger, 1))
	order.DiscountAmount = 10.01
	require.NoError(t, f.orders.Update(context.Background(), order))

	res, err := f.payments.CreatePaymentIntent(context.Background(), order.ID, "buyer-1")
	require.NoError(t, err)
	assert.Equal(t, "pi_test_1_secret", res.ClientSecret)

	require.Len(t, f.gateway.intents, 1)
	req := f.gateway.intents[0]
	assert.Equal(t, int64(13999), req.AmountCents)
	assert.Equal(t, "eur", req.Currency)
	assert.Equal(t, order.ID.String(), req.Metadata["order_id"])
	assert.Equal(t, order.OrderNumber, req.Metadata["order_number"])

	stored, err := f.orders.Get(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, "pi_test_1", stored.PaymentIntentID)
	assert.Equal(t, 139.99, stored.AmountCharged)
	assert.Equal(t, models.PaymentPending, stored.PaymentStatus)
}

func TestCreatePaymentIntentRejections(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	card := f.placeOrder(t, models.PaymentCard, line(f.fries, 1))
	cash := f.placeOrder(t, models.PaymentCash, line(f.fries, 1))

	_, err := f.payments.CreatePaymentIntent(ctx, card.ID, "intrus")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	_, err = f.payments.CreatePaymentIntent(ctx, cash.ID, "buyer-1")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = f.payments.CreatePaymentIntent(ctx, gocql.TimeUUID(), "buyer-1")
	assert.ErrorIs(t, err, apperr.ErrOrderNotFound)
}

func TestCreatePaymentIntentGatewayFailureLeavesOrderUntouched(t *testing.T) {
	f := newOrderFixture(t)
	order := f.placeOrder(t, models.PaymentCard, line(f.fries, 1))
	f.gateway.createErr = errors.New("Your card was declined.")
	writes := f.orders.writeCount()

	_, err := f.payments.CreatePaymentIntent(context.Background(), order.ID, "buyer-1")
	require.Error(t, err)
	assert.Equal(t, apperr.KindPaymentGateway, apperr.KindOf(err))
	assert.Equal(t, "Your card was declined.", apperr.PublicMessage(err))
	assert.Equal(t, writes, f.orders.writeCount())
}

func TestWebhookSignatureIsVerified(t *testing.T) {
	f := newOrderFixture(t)
	f.gateway.event = &WebhookEvent{Type: EventPaymentSucceeded, IntentID: "pi_test_1"}

	err := f.payments.HandleWebhook(context.Background(), []byte(`{}`), "forged")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestWebhookForUnknownIntentWritesNothing(t *testing.T) {
	f := newOrderFixture(t)
	f.placeOrder(t, models.PaymentCard, line(f.fries, 1))
	f.gateway.event = &WebhookEvent{Type: EventPaymentSucceeded, IntentID: "pi_inconnu"}
	writes := f.orders.writeCount()

	err := f.payments.HandleWebhook(context.Background(), []byte(`{}`), "valid")
	assert.ErrorIs(t, err, apperr.ErrOrderNotFound)
	assert.Equal(t, writes, f.orders.writeCount())
}

func TestWebhookEvents(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	order := f.placeOrder(t, models.PaymentCard, line(f.fries, 1))
	_, err := f.payments.CreatePaymentIntent(ctx, order.ID, "buyer-1")
	require.NoError(t, err)

	require.NoError(t, f.payments.HandleEvent(ctx, &WebhookEvent{Type: EventPaymentFailed, IntentID: "pi_test_1", ErrorMessage: "insufficient_funds"}))
	stored, _ := f.orders.Get(ctx, order.ID)
	assert.Equal(t, models.PaymentFailed, stored.PaymentStatus)
	assert.Equal(t, "insufficient_funds", stored.PaymentError)

	require.NoError(t, f.payments.HandleEvent(ctx, &WebhookEvent{Type: EventPaymentSucceeded, IntentID: "pi_test_1"}))
	stored, _ = f.orders.Get(ctx, order.ID)
	assert.Equal(t, models.PaymentCompleted, stored.PaymentStatus)
	assert.Empty(t, stored.PaymentError)
	assert.NotNil(t, stored.PaidAt)

	require.NoError(t, f.payments.HandleEvent(ctx, &WebhookEvent{Type: EventChargeRefunded, IntentID: "pi_test_1"}))
	stored, _ = f.orders.Get(ctx, order.ID)
	assert.Equal(t, models.RefundCompleted, stored.RefundStatus)
	assert.NotNil(t, stored.RefundedAt)

	writes := f.orders.writeCount()
	require.NoError(t, f.payments.HandleEvent(ctx, &WebhookEvent{Type: "customer.created"}))
	assert.Equal(t, writes, f.orders.writeCount())

	var kinds []models.NotificationType
	for _, n := range f.inbox.forUser("buyer-1") {
		kinds = append(kinds, n.Type)
	}
	assert.Contains(t, kinds, models.NotifPaymentFailed)
	assert.Contains(t, kinds, models.NotifPaymentSucceeded)
	assert.Contains(t, kinds, models.NotifRefundCompleted)
}

func TestInitiateRefund(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	unpaid := f.placeOrder(t, models.PaymentCard, line(f.fries, 1))

	_, err := f.payments.InitiateRefund(ctx, unpaid.ID, 10, "geste commercial")
	assert.ErrorIs(t, err, apperr.ErrNotPaid)

	paid := f.markPaid(t, unpaid)

	for _, amount := range []float64{0, -5, 40.01} {
		_, err = f.payments.InitiateRefund(ctx, paid.ID, amount, "x")
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err), "montant %v", amount)
	}

	refunded, err := f.payments.InitiateRefund(ctx, paid.ID, 15, "geste commercial")
	require.NoError(t, err)
	assert.Equal(t, models.RefundPending, refunded.RefundStatus)
	assert.Equal(t, "re_test_1", refunded.RefundID)
	assert.Equal(t, 15.0, refunded.RefundAmount)
	assert.Equal(t, "geste commercial", refunded.RefundReason)
	assert.Equal(t, []int64{1500}, f.gateway.refunds)
	assert.Equal(t, []string{fmt.Sprintf("refund:%s:0:1500", paid.ID)}, f.gateway.refundKeys)

	_, err = f.payments.InitiateRefund(ctx, paid.ID, 25.01, "x")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestLatePaymentFailureDoesNotDowngradePaidOrder(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	paid := f.markPaid(t, f.placeOrder(t, models.PaymentCard, line(f.fries, 1)))
	writes := f.orders.writeCount()

	require.NoError(t, f.payments.HandleEvent(ctx, &WebhookEvent{Type: EventPaymentFailed, IntentID: "pi_test_1", ErrorMessage: "card_declined"}))

	stored, err := f.orders.Get(ctx, paid.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentCompleted, stored.PaymentStatus)
	assert.Empty(t, stored.PaymentError)
	assert.Equal(t, writes, f.orders.writeCount())
}

func TestRequestRefundAuthorization(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	paid := f.markPaid(t, f.placeOrder(t, models.PaymentCard, line(f.fries, 1)))

	_, err := f.payments.RequestRefund(ctx, Actor{UserID: "vendor-2", Role: models.RoleVendor}, paid.ID, 5, "x")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	_, err = f.payments.RequestRefund(ctx, Actor{UserID: "buyer-1", Role: models.RoleCustomer}, paid.ID, 5, "x")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	_, err = f.payments.RequestRefund(ctx, Actor{UserID: "vendor-1", Role: models.RoleVendor}, paid.ID, 5, "x")
	assert.NoError(t, err)
	_, err = f.payments.RequestRefund(ctx, Actor{UserID: "root", Role: models.RoleAdmin}, paid.ID, 5, "x")
	assert.NoError(t, err)
}
