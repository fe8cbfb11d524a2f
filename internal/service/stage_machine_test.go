package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"order-fulfillment-service/internal/model"
	"order-fulfillment-service/internal/repository"
	"order-fulfillment-service/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHappyPath(t *testing.T) {
	svc, orders, employees, pub := newTestService()
	ctx := context.Background()
	orders.seed(pendingOrder("O1", 50))

	cc := employees.get("cc-1")
	packer := employees.get("pack-1")
	wh := employees.get("wh-1")
	del := employees.get("del-1")
	acc := employees.get("acc-1")

	require.NoError(t, svc.ConfirmAddress(ctx, "O1", cc))
	assert.Equal(t, model.StatusAddressConfirmed, orders.get("O1").Status)

	require.NoError(t, svc.ConfirmOrder(ctx, "O1", cc))
	assert.Equal(t, model.StatusOrderConfirmed, orders.get("O1").Status)

	require.NoError(t, svc.MarkPacked(ctx, "O1", "frágil", packer))
	assert.Equal(t, model.StatusPacked, orders.get("O1").Status)
	assert.Equal(t, 1, employees.get("pack-1").Performance.OrdersPacked)

	require.NoError(t, svc.AssignDeliveryman(ctx, "O1", "del-1", wh))
	assert.Equal(t, model.StatusReadyForDelivery, orders.get("O1").Status)
	assert.Equal(t, "del-1", orders.get("O1").AssignedDeliverymanID)
	assert.Equal(t, 1, employees.get("wh-1").Performance.OrdersAssignedForDelivery)

	require.NoError(t, svc.StartDelivery(ctx, "O1", del))
	assert.Equal(t, model.StatusOutForDelivery, orders.get("O1").Status)
	assert.Equal(t, 1, orders.get("O1").DeliveryAttempts)

	require.NoError(t, svc.CollectCash(ctx, "O1", 50, del))
	ord := orders.get("O1")
	assert.True(t, ord.CashCollected)
	assert.Equal(t, 50.0, ord.CashCollectedAmount)
	assert.Equal(t, model.PaymentPaid, ord.PaymentStatus)
	assert.Equal(t, 50.0, employees.get("del-1").Performance.TotalCashCollected)

	require.NoError(t, svc.MarkDelivered(ctx, "O1", del))
	assert.Equal(t, model.StatusDelivered, orders.get("O1").Status)
	assert.Equal(t, 1, employees.get("del-1").Performance.OrdersDelivered)

	require.NoError(t, svc.SubmitCashToAccounts(ctx, "O1", "acc-1", del))
	ord = orders.get("O1")
	assert.Equal(t, model.SubmissionPending, ord.CashSubmissionStatus)
	assert.Equal(t, "acc-1", ord.AssignedAccountsID)

	require.NoError(t, svc.ReceivePayment(ctx, "O1", acc))
	ord = orders.get("O1")
	assert.Equal(t, model.StatusCompleted, ord.Status)
	assert.Equal(t, model.SubmissionConfirmed, ord.CashSubmissionStatus)
	assert.Equal(t, 50.0, ord.PaymentReceivedAmount)
	assert.Equal(t, 50.0, employees.get("acc-1").Performance.TotalPaymentsReceived)

	// Una entrada de historial por operación, más la inicial del checkout
	assert.Len(t, ord.StatusHistory, 10)

	// Eventos para el cliente: confirmada, empaquetada, en reparto, entregada
	events := pub.published()
	require.Len(t, events, 4)
	assert.Equal(t, model.StatusOrderConfirmed, events[0].Status)
	assert.False(t, events[0].InvalidateCache)
	assert.Equal(t, model.StatusPacked, events[1].Status)
	assert.True(t, events[1].InvalidateCache)
	assert.Equal(t, model.StatusOutForDelivery, events[2].Status)
	assert.Equal(t, model.StatusDelivered, events[3].Status)
	assert.True(t, events[3].InvalidateCache)
}

func TestAddressImmutableOnceConfirmed(t *testing.T) {
	svc, orders, employees, _ := newTestService()
	ctx := context.Background()
	orders.seed(pendingOrder("O1", 100))
	cc := employees.get("cc-1")

	nueva := model.Shipping{AddressLine1: "Belgrano 99", City: "Godoy Cruz"}
	require.NoError(t, svc.UpdateShippingAddress(ctx, "O1", nueva, cc))
	assert.Equal(t, "Belgrano 99", orders.get("O1").Shipping.AddressLine1)

	require.NoError(t, svc.ConfirmAddress(ctx, "O1", cc))

	err := svc.UpdateShippingAddress(ctx, "O1", model.Shipping{AddressLine1: "Otra 1", City: "Maipú"}, cc)
	require.ErrorIs(t, err, repository.ErrNotEligible)
	assert.Equal(t, "Belgrano 99", orders.get("O1").Shipping.AddressLine1)
}

func TestConfirmOrderRequiresConfirmedAddress(t *testing.T) {
	svc, orders, employees, _ := newTestService()
	ctx := context.Background()
	orders.seed(pendingOrder("O1", 100))

	err := svc.ConfirmOrder(ctx, "O1", employees.get("cc-1"))
	require.ErrorIs(t, err, repository.ErrNotEligible)
	assert.Contains(t, err.Error(), "dirección")
}

func TestIdempotentReplayFailsClean(t *testing.T) {
	svc, orders, employees, _ := newTestService()
	ctx := context.Background()
	orders.seed(pendingOrder("O1", 100))
	cc := employees.get("cc-1")
	packer := employees.get("pack-1")

	require.NoError(t, svc.ConfirmAddress(ctx, "O1", cc))
	require.NoError(t, svc.ConfirmOrder(ctx, "O1", cc))
	require.NoError(t, svc.MarkPacked(ctx, "O1", "", packer))

	before := orders.get("O1")

	err := svc.MarkPacked(ctx, "O1", "", packer)
	require.ErrorIs(t, err, repository.ErrNotEligible)

	after := orders.get("O1")
	assert.Len(t, after.StatusHistory, len(before.StatusHistory), "el replay no debe duplicar historial")
	assert.Equal(t, 1, employees.get("pack-1").Performance.OrdersPacked, "el replay no debe duplicar contadores")
}

func TestRoleGates(t *testing.T) {
	svc, orders, employees, _ := newTestService()
	ctx := context.Background()
	orders.seed(pendingOrder("O1", 100))

	t.Run("packer no puede confirmar la orden", func(t *testing.T) {
		err := svc.ConfirmOrder(ctx, "O1", employees.get("pack-1"))
		require.ErrorIs(t, err, service.ErrForbidden)
	})

	t.Run("deliveryman no puede rechazar efectivo", func(t *testing.T) {
		err := svc.RejectCashSubmission(ctx, "O1", "motivo", employees.get("del-1"))
		require.ErrorIs(t, err, service.ErrForbidden)
	})

	t.Run("incharge puede operar cualquier etapa", func(t *testing.T) {
		boss := employees.get("boss-1")
		require.NoError(t, svc.ConfirmAddress(ctx, "O1", boss))
		require.NoError(t, svc.ConfirmOrder(ctx, "O1", boss))
		require.NoError(t, svc.MarkPacked(ctx, "O1", "", boss))
	})
}

func TestStartDeliveryOnlyAssignee(t *testing.T) {
	svc, orders, employees, _ := newTestService()
	ctx := context.Background()
	orders.seed(pendingOrder("O1", 100))
	boss := employees.get("boss-1")

	require.NoError(t, svc.ConfirmAddress(ctx, "O1", boss))
	require.NoError(t, svc.ConfirmOrder(ctx, "O1", boss))
	require.NoError(t, svc.MarkPacked(ctx, "O1", "", boss))
	require.NoError(t, svc.AssignDeliveryman(ctx, "O1", "del-1", employees.get("wh-1")))

	err := svc.StartDelivery(ctx, "O1", employees.get("del-2"))
	require.ErrorIs(t, err, service.ErrForbidden)

	require.NoError(t, svc.StartDelivery(ctx, "O1", employees.get("del-1")))
	assert.Equal(t, model.StatusOutForDelivery, orders.get("O1").Status)
}

func TestDeliveredRequiresCashForCOD(t *testing.T) {
	svc, orders, employees, _ := newTestService()
	ctx := context.Background()
	orders.seed(pendingOrder("O1", 75))
	boss := employees.get("boss-1")
	del := employees.get("del-1")

	require.NoError(t, svc.ConfirmAddress(ctx, "O1", boss))
	require.NoError(t, svc.ConfirmOrder(ctx, "O1", boss))
	require.NoError(t, svc.MarkPacked(ctx, "O1", "", boss))
	require.NoError(t, svc.AssignDeliveryman(ctx, "O1", "del-1", employees.get("wh-1")))
	require.NoError(t, svc.StartDelivery(ctx, "O1", del))

	err := svc.MarkDelivered(ctx, "O1", del)
	require.ErrorIs(t, err, repository.ErrNotEligible)
	assert.Contains(t, err.Error(), "efectivo")

	require.NoError(t, svc.CollectCash(ctx, "O1", 0, del))
	assert.Equal(t, 75.0, orders.get("O1").CashCollectedAmount, "sin monto explícito se cobra el total")

	require.NoError(t, svc.MarkDelivered(ctx, "O1", del))
	assert.Equal(t, model.StatusDelivered, orders.get("O1").Status)
}

func TestRetryAfterFailedDelivery(t *testing.T) {
	svc, orders, employees, _ := newTestService()
	ctx := context.Background()
	orders.seed(pendingOrder("O1", 100))
	boss := employees.get("boss-1")
	del := employees.get("del-1")

	require.NoError(t, svc.ConfirmAddress(ctx, "O1", boss))
	require.NoError(t, svc.ConfirmOrder(ctx, "O1", boss))
	require.NoError(t, svc.MarkPacked(ctx, "O1", "", boss))
	require.NoError(t, svc.AssignDeliveryman(ctx, "O1", "del-1", employees.get("wh-1")))
	require.NoError(t, svc.StartDelivery(ctx, "O1", del))

	require.NoError(t, svc.MarkDeliveryFailed(ctx, "O1", "cliente ausente", del))
	assert.Equal(t, model.StatusFailedDelivery, orders.get("O1").Status)

	// El repartidor puede reintentar desde failed_delivery
	require.NoError(t, svc.StartDelivery(ctx, "O1", del))
	assert.Equal(t, model.StatusOutForDelivery, orders.get("O1").Status)

	require.NoError(t, svc.RescheduleDelivery(ctx, "O1", time.Now().Add(48*time.Hour), "pidió otro día", del))
	assert.Equal(t, model.StatusRescheduled, orders.get("O1").Status)

	require.NoError(t, svc.StartDelivery(ctx, "O1", del))
	assert.Equal(t, 3, orders.get("O1").DeliveryAttempts)
}

func TestCancelledBlocksEverything(t *testing.T) {
	svc, orders, employees, _ := newTestService()
	ctx := context.Background()
	ord := pendingOrder("O1", 100)
	ord.Status = model.StatusCancelled
	orders.seed(ord)

	err := svc.ConfirmAddress(ctx, "O1", employees.get("cc-1"))
	require.ErrorIs(t, err, repository.ErrNotEligible)
	assert.Contains(t, err.Error(), "cancelada")

	err = svc.CollectCash(ctx, "O1", 100, employees.get("del-1"))
	require.ErrorIs(t, err, repository.ErrNotEligible)
}

func TestConcurrentConfirmExactlyOneWins(t *testing.T) {
	svc, orders, employees, _ := newTestService()
	ctx := context.Background()
	orders.seed(pendingOrder("O1", 100))
	cc := employees.get("cc-1")
	boss := employees.get("boss-1")

	require.NoError(t, svc.ConfirmAddress(ctx, "O1", cc))
	before := len(orders.get("O1").StatusHistory)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	actors := []*model.Employee{cc, boss}
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = svc.ConfirmOrder(ctx, "O1", actors[i])
		}(i)
	}
	wg.Wait()

	var oks, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			oks++
		default:
			require.ErrorIs(t, err, repository.ErrNotEligible)
			conflicts++
		}
	}
	assert.Equal(t, 1, oks, "exactamente un ganador")
	assert.Equal(t, 1, conflicts, "el perdedor recibe precondición fallida")

	ord := orders.get("O1")
	assert.Equal(t, model.StatusOrderConfirmed, ord.Status)
	assert.Len(t, ord.StatusHistory, before+1, "una sola entrada de historial")
}

func TestUnknownOrder(t *testing.T) {
	svc, _, employees, _ := newTestService()
	err := svc.ConfirmAddress(context.Background(), "nope", employees.get("cc-1"))
	require.ErrorIs(t, err, repository.ErrNotFound)
}
