package service

import (
	"context"

	"order-fulfillment-service/internal/model"
)

// OrderView agrega el progreso calculado al documento de la orden.
type OrderView struct {
	*model.Order
	Progress float64 `json:"progress"`
}

// PaymentStats es la vista agregada de contabilidad sobre el efectivo cobrado.
type PaymentStats struct {
	CashOrders          int     `json:"cashOrders"`
	TotalCashCollected  float64 `json:"totalCashCollected"`
	PendingSubmissions  int     `json:"pendingSubmissions"`
	PendingAmount       float64 `json:"pendingAmount"`
	ConfirmedPayments   int     `json:"confirmedPayments"`
	TotalReceived       float64 `json:"totalReceived"`
	RejectedSubmissions int     `json:"rejectedSubmissions"`
}

// GetOrder devuelve una orden respetando la visibilidad del rol:
// el repartidor solo ve sus propias asignaciones.
func (s *FulfillmentService) GetOrder(ctx context.Context, orderID string, actor *model.Employee) (*OrderView, error) {
	ord, err := s.orders.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if actor.Role == model.RoleDeliveryman && ord.AssignedDeliverymanID != actor.UserID {
		return nil, forbidden("la orden no está asignada a este repartidor")
	}
	return &OrderView{Order: ord, Progress: ord.Status.Progress()}, nil
}

// GetOrdersForEmployee devuelve la cola de trabajo visible según el rol.
func (s *FulfillmentService) GetOrdersForEmployee(ctx context.Context, actor *model.Employee) ([]*model.Order, error) {
	switch actor.Role {
	case model.RoleCallcenter:
		return s.orders.FindByStatuses(ctx, model.StatusPending, model.StatusAddressConfirmed, model.StatusOrderConfirmed)
	case model.RolePacker:
		return s.orders.FindByStatuses(ctx, model.StatusOrderConfirmed, model.StatusPacked)
	case model.RoleWarehouse:
		return s.orders.FindByStatuses(ctx, model.StatusPacked, model.StatusReadyForDelivery)
	case model.RoleDeliveryman:
		return s.orders.FindByDeliveryman(ctx, actor.UserID)
	default:
		// incharge y accounts ven todo
		return s.orders.FindAll(ctx)
	}
}

// GetOrdersForAccounts: órdenes con efectivo cobrado, para la conciliación.
func (s *FulfillmentService) GetOrdersForAccounts(ctx context.Context) ([]*model.Order, error) {
	return s.orders.FindCashOrders(ctx)
}

func (s *FulfillmentService) GetAccountsPaymentStats(ctx context.Context) (*PaymentStats, error) {
	orders, err := s.orders.FindCashOrders(ctx)
	if err != nil {
		return nil, err
	}

	stats := &PaymentStats{}
	for _, o := range orders {
		stats.CashOrders++
		stats.TotalCashCollected += o.CashCollectedAmount
		switch o.CashSubmissionStatus {
		case model.SubmissionPending:
			stats.PendingSubmissions++
			stats.PendingAmount += o.CashCollectedAmount
		case model.SubmissionConfirmed:
			stats.ConfirmedPayments++
			stats.TotalReceived += o.PaymentReceivedAmount
		case model.SubmissionRejected:
			stats.RejectedSubmissions++
		}
	}
	return stats, nil
}

// GetActiveAccountsEmployees: destinos válidos para entregar el efectivo.
func (s *FulfillmentService) GetActiveAccountsEmployees(ctx context.Context) ([]*model.Employee, error) {
	return s.employees.FindActiveByRole(ctx, model.RoleAccounts)
}
