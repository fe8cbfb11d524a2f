package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"order-fulfillment-service/internal/dto"
	"order-fulfillment-service/internal/model"
	"order-fulfillment-service/internal/repository"

	"github.com/google/uuid"
)

// Interfaces que debe implementar repository
type OrderRepository interface {
	Save(ctx context.Context, o *model.Order) error
	FindByOrderID(ctx context.Context, orderID string) (*model.Order, error)
	FindAll(ctx context.Context) ([]*model.Order, error)
	FindByStatuses(ctx context.Context, statuses ...model.OrderStatus) ([]*model.Order, error)
	FindByDeliveryman(ctx context.Context, deliverymanID string) ([]*model.Order, error)
	FindCashOrders(ctx context.Context) ([]*model.Order, error)

	ConfirmAddress(ctx context.Context, orderID string, entry model.StatusHistoryEntry) error
	UpdateShipping(ctx context.Context, orderID string, shipping model.Shipping, entry model.StatusHistoryEntry) error
	ConfirmOrder(ctx context.Context, orderID string, entry model.StatusHistoryEntry) error
	MarkPacked(ctx context.Context, orderID string, notes string, entry model.StatusHistoryEntry) error
	AssignDeliveryman(ctx context.Context, orderID string, deliverymanID string, entry model.StatusHistoryEntry) error
	StartDelivery(ctx context.Context, orderID string, entry model.StatusHistoryEntry) error
	MarkDelivered(ctx context.Context, orderID string, requireCash bool, entry model.StatusHistoryEntry) error
	Reschedule(ctx context.Context, orderID string, date time.Time, reason string, entry model.StatusHistoryEntry) error
	MarkDeliveryFailed(ctx context.Context, orderID string, reason string, entry model.StatusHistoryEntry) error
	CollectCash(ctx context.Context, orderID string, amount float64, entry model.StatusHistoryEntry) error
	SubmitCash(ctx context.Context, orderID string, accountsID string, entry model.StatusHistoryEntry) error
	RejectSubmission(ctx context.Context, orderID string, reason string, entry model.StatusHistoryEntry) error
	ReceivePayment(ctx context.Context, orderID string, amount float64, entry model.StatusHistoryEntry) error
}

type EmployeeRepository interface {
	FindByUserID(ctx context.Context, userID string) (*model.Employee, error)
	FindActiveByRole(ctx context.Context, role model.Role) ([]*model.Employee, error)
	IncrementPerformance(ctx context.Context, userID string, delta model.PerformanceDelta) error
}

// EventPublisher emite el evento de dominio tras el commit de una transición.
// Un consumer aparte se encarga de notificar al cliente e invalidar cache.
type EventPublisher interface {
	OrderStatusChanged(ev OrderEvent) error
}

// OrderEvent es el mensaje publicado en el exchange order_events.
type OrderEvent struct {
	OrderID         string            `json:"orderId"`
	OrderNumber     string            `json:"orderNumber"`
	CustomerID      string            `json:"customerId"`
	Status          model.OrderStatus `json:"status"`
	InvalidateCache bool              `json:"invalidateCache"`
}

// Errores de negocio exportados (los usa el controller)
var (
	ErrForbidden          = errors.New("no tiene permisos para esta operación")
	ErrValidation         = errors.New("datos inválidos")
	ErrOrderAlreadyExists = errors.New("la orden ya fue inicializada previamente")
)

// notEligible arma un error de precondición con el detalle para el usuario.
func notEligible(msg string) error {
	return fmt.Errorf("%w: %s", repository.ErrNotEligible, msg)
}

func forbidden(msg string) error {
	return fmt.Errorf("%w: %s", ErrForbidden, msg)
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}

type FulfillmentService struct {
	orders    OrderRepository
	employees EmployeeRepository
	events    EventPublisher
}

func NewFulfillmentService(orders OrderRepository, employees EmployeeRepository, events EventPublisher) *FulfillmentService {
	return &FulfillmentService{orders: orders, employees: employees, events: events}
}

// ResolveEmployee resuelve el actor de la petición: una sola lectura por
// request, sin cache (rol y estado pueden cambiar entre llamadas).
func (s *FulfillmentService) ResolveEmployee(ctx context.Context, userID string) (*model.Employee, error) {
	emp, err := s.employees.FindByUserID(ctx, userID)
	if errors.Is(err, repository.ErrEmployeeNotFound) {
		return nil, forbidden("la cuenta no pertenece a un empleado")
	}
	if err != nil {
		return nil, err
	}
	if !emp.IsEmployee {
		return nil, forbidden("la cuenta no pertenece a un empleado")
	}
	if emp.Status != model.EmployeeActive {
		return nil, forbidden("el empleado no está activo")
	}
	if !emp.Role.IsValid() {
		return nil, forbidden("el empleado tiene un rol desconocido")
	}
	return emp, nil
}

// InitOrder crea el documento de fulfillment con estado pending.
// Lo invoca el consumer de order_placed (flujo real) o la API (pruebas).
func (s *FulfillmentService) InitOrder(ctx context.Context, req dto.InitOrderRequest) (*model.Order, error) {
	existing, err := s.orders.FindByOrderID(ctx, req.OrderID)
	if err == nil && existing != nil {
		return nil, ErrOrderAlreadyExists
	}
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	// Dirección por defecto si el checkout no mandó ninguna
	shipping := req.Shipping
	if shipping.AddressLine1 == "" {
		shipping = dto.ShippingDTO{
			AddressLine1: "Av San Martín 1234",
			City:         "Mendoza",
			PostalCode:   "5500",
			Province:     "Mendoza",
			Country:      "Argentina",
			Comments:     "Orden inicializada automáticamente",
		}
	}

	method := model.PaymentMethod(req.PaymentMethod)
	if method == "" {
		method = model.PaymentCashOnDelivery
	}
	if method != model.PaymentCashOnDelivery && method != model.PaymentCard {
		return nil, invalid("método de pago desconocido")
	}

	number := req.OrderNumber
	if number == "" {
		number = "ORD-" + uuid.NewString()[:8]
	}

	currency := req.Currency
	if currency == "" {
		currency = "ARS"
	}

	items := make([]model.LineItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, model.LineItem{ProductID: it.ProductID, Quantity: it.Quantity})
	}

	now := time.Now().UTC()
	ord := &model.Order{
		OrderID:       req.OrderID,
		OrderNumber:   number,
		CustomerID:    req.CustomerID,
		Items:         items,
		TotalPrice:    req.TotalPrice,
		Currency:      currency,
		PaymentMethod: method,
		PaymentStatus: model.PaymentPending,
		Status:        model.StatusPending,
		Shipping: model.Shipping{
			AddressLine1: shipping.AddressLine1,
			City:         shipping.City,
			PostalCode:   shipping.PostalCode,
			Province:     shipping.Province,
			Country:      shipping.Country,
			Comments:     shipping.Comments,
		},
		StatusHistory: []model.StatusHistoryEntry{
			{
				Status:    model.StatusPending,
				ActorID:   req.CustomerID,
				Actor:     "checkout",
				Timestamp: now,
				Notes:     "Orden creada",
			},
		},
		CreatedAt: now,
	}

	return ord, s.orders.Save(ctx, ord)
}

// newEntry arma el registro de auditoría de una transición.
func newEntry(status model.OrderStatus, actor *model.Employee, notes string) model.StatusHistoryEntry {
	return model.StatusHistoryEntry{
		Status:    status,
		ActorID:   actor.UserID,
		Actor:     actor.Email,
		ActorRole: actor.Role,
		Timestamp: time.Now().UTC(),
		Notes:     notes,
	}
}

// checkOpen: cancelled bloquea toda transición; completed es final.
func checkOpen(ord *model.Order) error {
	if ord.Status == model.StatusCancelled {
		return notEligible("la orden fue cancelada")
	}
	if ord.Status.IsFinal() {
		return notEligible("la orden ya fue completada")
	}
	return nil
}

// bumpPerformance corre después del commit de la transición: si falla no hay
// rollback posible, se loguea y se sigue. Siempre estampa last_active_at.
// Usa su propio contexto: el del request puede estar ya cancelado.
func (s *FulfillmentService) bumpPerformance(userID string, delta model.PerformanceDelta) {
	if err := s.employees.IncrementPerformance(context.Background(), userID, delta); err != nil {
		log.Println("❌ Error actualizando performance del empleado:", userID, err)
	}
}

// publishEvent es fire-and-forget: el fallo se loguea, nunca llega al caller.
func (s *FulfillmentService) publishEvent(ord *model.Order, status model.OrderStatus, invalidateCache bool) {
	if s.events == nil {
		return
	}
	ev := OrderEvent{
		OrderID:         ord.OrderID,
		OrderNumber:     ord.OrderNumber,
		CustomerID:      ord.CustomerID,
		Status:          status,
		InvalidateCache: invalidateCache,
	}
	if err := s.events.OrderStatusChanged(ev); err != nil {
		log.Println("❌ Error publicando evento de orden:", ord.OrderID, err)
	}
}
