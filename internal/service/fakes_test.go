package service_test

import (
	"context"
	"sync"
	"time"

	"order-fulfillment-service/internal/model"
	"order-fulfillment-service/internal/repository"
	"order-fulfillment-service/internal/service"
)

// Fakes en memoria con la misma semántica condicional que los repositorios
// Mongo: cada transición re-verifica la precondición bajo lock, así las
// carreras terminan en exactamente un éxito, igual que con UpdateOne.

type fakeOrderRepo struct {
	mu     sync.Mutex
	orders map[string]*model.Order
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: make(map[string]*model.Order)}
}

func cloneOrder(o *model.Order) *model.Order {
	cp := *o
	cp.Items = append([]model.LineItem(nil), o.Items...)
	cp.StatusHistory = append([]model.StatusHistoryEntry(nil), o.StatusHistory...)
	return &cp
}

func (f *fakeOrderRepo) seed(o *model.Order) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders[o.OrderID] = cloneOrder(o)
}

func (f *fakeOrderRepo) get(orderID string) *model.Order {
	f.mu.Lock()
	defer f.mu.Unlock()
	return cloneOrder(f.orders[orderID])
}

func (f *fakeOrderRepo) Save(ctx context.Context, o *model.Order) error {
	f.seed(o)
	return nil
}

func (f *fakeOrderRepo) FindByOrderID(ctx context.Context, orderID string) (*model.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[orderID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneOrder(o), nil
}

// transition aplica check+mutación de forma atómica, como el filtro del UpdateOne.
func (f *fakeOrderRepo) transition(orderID string, check func(*model.Order) bool, mutate func(*model.Order), entry model.StatusHistoryEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[orderID]
	if !ok {
		return repository.ErrNotFound
	}
	if !check(o) {
		return repository.ErrNotEligible
	}
	mutate(o)
	o.StatusHistory = append(o.StatusHistory, entry)
	o.UpdatedAt = time.Now().UTC()
	return nil
}

func (f *fakeOrderRepo) ConfirmAddress(ctx context.Context, orderID string, entry model.StatusHistoryEntry) error {
	return f.transition(orderID,
		func(o *model.Order) bool { return o.Status == model.StatusPending && o.AddressConfirmedBy == "" },
		func(o *model.Order) {
			o.Status = model.StatusAddressConfirmed
			o.AddressConfirmedBy = entry.Actor
			o.AddressConfirmedAt = entry.Timestamp
		}, entry)
}

func (f *fakeOrderRepo) UpdateShipping(ctx context.Context, orderID string, shipping model.Shipping, entry model.StatusHistoryEntry) error {
	return f.transition(orderID,
		func(o *model.Order) bool { return o.AddressConfirmedBy == "" },
		func(o *model.Order) { o.Shipping = shipping }, entry)
}

func (f *fakeOrderRepo) ConfirmOrder(ctx context.Context, orderID string, entry model.StatusHistoryEntry) error {
	return f.transition(orderID,
		func(o *model.Order) bool {
			return o.Status == model.StatusAddressConfirmed && o.OrderConfirmedBy == ""
		},
		func(o *model.Order) {
			o.Status = model.StatusOrderConfirmed
			o.OrderConfirmedBy = entry.Actor
			o.OrderConfirmedAt = entry.Timestamp
		}, entry)
}

func (f *fakeOrderRepo) MarkPacked(ctx context.Context, orderID string, notes string, entry model.StatusHistoryEntry) error {
	return f.transition(orderID,
		func(o *model.Order) bool { return o.Status == model.StatusOrderConfirmed && o.PackedBy == "" },
		func(o *model.Order) {
			o.Status = model.StatusPacked
			o.PackedBy = entry.Actor
			o.PackedAt = entry.Timestamp
			o.PackingNotes = notes
		}, entry)
}

func (f *fakeOrderRepo) AssignDeliveryman(ctx context.Context, orderID string, deliverymanID string, entry model.StatusHistoryEntry) error {
	return f.transition(orderID,
		func(o *model.Order) bool { return o.Status == model.StatusPacked },
		func(o *model.Order) {
			o.Status = model.StatusReadyForDelivery
			o.AssignedDeliverymanID = deliverymanID
			o.DispatchedBy = entry.Actor
			o.DispatchedAt = entry.Timestamp
		}, entry)
}

func (f *fakeOrderRepo) StartDelivery(ctx context.Context, orderID string, entry model.StatusHistoryEntry) error {
	return f.transition(orderID,
		func(o *model.Order) bool {
			return o.Status == model.StatusReadyForDelivery ||
				o.Status == model.StatusRescheduled ||
				o.Status == model.StatusFailedDelivery
		},
		func(o *model.Order) {
			o.Status = model.StatusOutForDelivery
			o.DeliveryAttempts++
		}, entry)
}

func (f *fakeOrderRepo) MarkDelivered(ctx context.Context, orderID string, requireCash bool, entry model.StatusHistoryEntry) error {
	return f.transition(orderID,
		func(o *model.Order) bool {
			if o.Status != model.StatusOutForDelivery {
				return false
			}
			return !requireCash || o.CashCollected
		},
		func(o *model.Order) {
			o.Status = model.StatusDelivered
			o.DeliveredBy = entry.Actor
			o.DeliveredAt = entry.Timestamp
		}, entry)
}

func (f *fakeOrderRepo) Reschedule(ctx context.Context, orderID string, date time.Time, reason string, entry model.StatusHistoryEntry) error {
	return f.transition(orderID,
		func(o *model.Order) bool { return o.Status == model.StatusOutForDelivery },
		func(o *model.Order) {
			o.Status = model.StatusRescheduled
			o.RescheduledDate = date
			o.RescheduleReason = reason
		}, entry)
}

func (f *fakeOrderRepo) MarkDeliveryFailed(ctx context.Context, orderID string, reason string, entry model.StatusHistoryEntry) error {
	return f.transition(orderID,
		func(o *model.Order) bool { return o.Status == model.StatusOutForDelivery },
		func(o *model.Order) {
			o.Status = model.StatusFailedDelivery
			o.DeliveryFailureReason = reason
			o.DeliveryAttempts++
		}, entry)
}

func (f *fakeOrderRepo) CollectCash(ctx context.Context, orderID string, amount float64, entry model.StatusHistoryEntry) error {
	return f.transition(orderID,
		func(o *model.Order) bool { return !o.CashCollected && o.Status != model.StatusCancelled },
		func(o *model.Order) {
			o.CashCollected = true
			o.CashCollectedBy = entry.Actor
			o.CashCollectedAmount = amount
			o.CashCollectedAt = entry.Timestamp
			o.PaymentStatus = model.PaymentPaid
		}, entry)
}

func (f *fakeOrderRepo) SubmitCash(ctx context.Context, orderID string, accountsID string, entry model.StatusHistoryEntry) error {
	return f.transition(orderID,
		func(o *model.Order) bool {
			return o.CashCollected &&
				(o.CashSubmissionStatus == model.SubmissionNone || o.CashSubmissionStatus == model.SubmissionRejected)
		},
		func(o *model.Order) {
			o.CashSubmittedToAccounts = true
			o.CashSubmittedBy = entry.Actor
			o.CashSubmittedAt = entry.Timestamp
			o.CashSubmissionStatus = model.SubmissionPending
			o.AssignedAccountsID = accountsID
		}, entry)
}

func (f *fakeOrderRepo) RejectSubmission(ctx context.Context, orderID string, reason string, entry model.StatusHistoryEntry) error {
	return f.transition(orderID,
		func(o *model.Order) bool { return o.CashSubmissionStatus == model.SubmissionPending },
		func(o *model.Order) {
			o.CashSubmissionStatus = model.SubmissionRejected
			o.CashRejectionReason = reason
			o.AssignedAccountsID = ""
			o.CashSubmittedToAccounts = false
		}, entry)
}

func (f *fakeOrderRepo) ReceivePayment(ctx context.Context, orderID string, amount float64, entry model.StatusHistoryEntry) error {
	return f.transition(orderID,
		func(o *model.Order) bool {
			return o.Status == model.StatusDelivered &&
				o.CashCollected && o.CashSubmittedToAccounts &&
				o.CashSubmissionStatus == model.SubmissionPending
		},
		func(o *model.Order) {
			o.CashSubmissionStatus = model.SubmissionConfirmed
			o.PaymentReceivedBy = entry.Actor
			o.PaymentReceivedAt = entry.Timestamp
			o.PaymentReceivedAmount = amount
			o.PaymentStatus = model.PaymentPaid
			o.Status = model.StatusCompleted
		}, entry)
}

func (f *fakeOrderRepo) FindAll(ctx context.Context) ([]*model.Order, error) {
	return f.filter(func(*model.Order) bool { return true }), nil
}

func (f *fakeOrderRepo) FindByStatuses(ctx context.Context, statuses ...model.OrderStatus) ([]*model.Order, error) {
	return f.filter(func(o *model.Order) bool {
		for _, s := range statuses {
			if o.Status == s {
				return true
			}
		}
		return false
	}), nil
}

func (f *fakeOrderRepo) FindByDeliveryman(ctx context.Context, deliverymanID string) ([]*model.Order, error) {
	return f.filter(func(o *model.Order) bool { return o.AssignedDeliverymanID == deliverymanID }), nil
}

func (f *fakeOrderRepo) FindCashOrders(ctx context.Context) ([]*model.Order, error) {
	return f.filter(func(o *model.Order) bool { return o.CashCollected }), nil
}

func (f *fakeOrderRepo) filter(keep func(*model.Order) bool) []*model.Order {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Order
	for _, o := range f.orders {
		if keep(o) {
			out = append(out, cloneOrder(o))
		}
	}
	return out
}

type fakeEmployeeRepo struct {
	mu        sync.Mutex
	employees map[string]*model.Employee
}

func newFakeEmployeeRepo() *fakeEmployeeRepo {
	return &fakeEmployeeRepo{employees: make(map[string]*model.Employee)}
}

func (f *fakeEmployeeRepo) seed(e *model.Employee) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *e
	f.employees[e.UserID] = &cp
}

func (f *fakeEmployeeRepo) get(userID string) *model.Employee {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *f.employees[userID]
	return &cp
}

func (f *fakeEmployeeRepo) FindByUserID(ctx context.Context, userID string) (*model.Employee, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.employees[userID]
	if !ok {
		return nil, repository.ErrEmployeeNotFound
	}
	cp := *e
	return &cp, nil
}

func (f *fakeEmployeeRepo) FindActiveByRole(ctx context.Context, role model.Role) ([]*model.Employee, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Employee
	for _, e := range f.employees {
		if e.Role == role && e.Status == model.EmployeeActive && e.IsEmployee {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeEmployeeRepo) IncrementPerformance(ctx context.Context, userID string, delta model.PerformanceDelta) error {
	// como el driver real, corta si el contexto ya fue cancelado
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.employees[userID]
	if !ok {
		return repository.ErrEmployeeNotFound
	}
	e.Performance.OrdersProcessed += delta.OrdersProcessed
	e.Performance.OrdersConfirmed += delta.OrdersConfirmed
	e.Performance.OrdersPacked += delta.OrdersPacked
	e.Performance.OrdersAssignedForDelivery += delta.OrdersAssignedForDelivery
	e.Performance.OrdersDelivered += delta.OrdersDelivered
	e.Performance.TotalCashCollected += delta.CashCollected
	e.Performance.TotalPaymentsReceived += delta.PaymentsReceived
	e.Performance.LastActiveAt = time.Now().UTC()
	return nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []service.OrderEvent
}

func (f *fakePublisher) OrderStatusChanged(ev service.OrderEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return nil
}

func (f *fakePublisher) published() []service.OrderEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]service.OrderEvent(nil), f.events...)
}

// newTestService arma el servicio con fakes y un plantel típico de empleados.
func newTestService() (*service.FulfillmentService, *fakeOrderRepo, *fakeEmployeeRepo, *fakePublisher) {
	orders := newFakeOrderRepo()
	employees := newFakeEmployeeRepo()
	pub := &fakePublisher{}
	svc := service.NewFulfillmentService(orders, employees, pub)

	for id, role := range map[string]model.Role{
		"cc-1":   model.RoleCallcenter,
		"pack-1": model.RolePacker,
		"wh-1":   model.RoleWarehouse,
		"del-1":  model.RoleDeliveryman,
		"del-2":  model.RoleDeliveryman,
		"acc-1":  model.RoleAccounts,
		"acc-2":  model.RoleAccounts,
		"boss-1": model.RoleIncharge,
	} {
		employees.seed(&model.Employee{
			UserID:     id,
			Email:      id + "@tienda.com",
			Name:       id,
			IsEmployee: true,
			Role:       role,
			Status:     model.EmployeeActive,
		})
	}

	return svc, orders, employees, pub
}

// pendingOrder arma una orden contrarreembolso recién creada por checkout.
func pendingOrder(orderID string, total float64) *model.Order {
	now := time.Now().UTC()
	return &model.Order{
		OrderID:       orderID,
		OrderNumber:   "ORD-" + orderID,
		CustomerID:    "cust-1",
		Items:         []model.LineItem{{ProductID: "prod-1", Quantity: 2}},
		TotalPrice:    total,
		Currency:      "ARS",
		PaymentMethod: model.PaymentCashOnDelivery,
		PaymentStatus: model.PaymentPending,
		Status:        model.StatusPending,
		StatusHistory: []model.StatusHistoryEntry{
			{Status: model.StatusPending, Actor: "checkout", Timestamp: now, Notes: "Orden creada"},
		},
		CreatedAt: now,
	}
}
