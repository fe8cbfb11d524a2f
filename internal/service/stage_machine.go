package service

import (
	"context"
	"fmt"
	"time"

	"order-fulfillment-service/internal/model"
)

// Máquina de etapas. Cada operación valida el rol, lee el snapshot actual,
// valida precondiciones para dar un mensaje específico, y delega la escritura
// condicional al repositorio: el filtro del UpdateOne re-verifica las mismas
// precondiciones, así dos actores en carrera terminan en exactamente un éxito.

func (s *FulfillmentService) ConfirmAddress(ctx context.Context, orderID string, actor *model.Employee) error {
	if !model.RoleAllowed(actor.Role, model.RoleCallcenter) {
		return forbidden("solo callcenter puede confirmar la dirección")
	}
	ord, err := s.orders.FindByOrderID(ctx, orderID)
	if err != nil {
		return err
	}
	if err := checkOpen(ord); err != nil {
		return err
	}
	if ord.AddressConfirmedBy != "" {
		return notEligible("la dirección ya fue confirmada")
	}
	if ord.Status != model.StatusPending {
		return notEligible("la orden ya pasó la etapa de confirmación de dirección")
	}

	entry := newEntry(model.StatusAddressConfirmed, actor, "Dirección de envío confirmada")
	if err := s.orders.ConfirmAddress(ctx, orderID, entry); err != nil {
		return err
	}

	s.bumpPerformance(actor.UserID, model.PerformanceDelta{})
	return nil
}

func (s *FulfillmentService) UpdateShippingAddress(ctx context.Context, orderID string, shipping model.Shipping, actor *model.Employee) error {
	if !model.RoleAllowed(actor.Role, model.RoleCallcenter) {
		return forbidden("solo callcenter puede modificar la dirección")
	}
	if shipping.AddressLine1 == "" || shipping.City == "" {
		return invalid("la dirección debe incluir calle y ciudad")
	}
	ord, err := s.orders.FindByOrderID(ctx, orderID)
	if err != nil {
		return err
	}
	if err := checkOpen(ord); err != nil {
		return err
	}
	// Invariante: dirección inmutable una vez confirmada.
	if ord.AddressConfirmedBy != "" {
		return notEligible("la dirección ya fue confirmada y no puede modificarse")
	}

	entry := newEntry(ord.Status, actor, "Dirección de envío actualizada")
	if err := s.orders.UpdateShipping(ctx, orderID, shipping, entry); err != nil {
		return err
	}

	s.bumpPerformance(actor.UserID, model.PerformanceDelta{})
	return nil
}

func (s *FulfillmentService) ConfirmOrder(ctx context.Context, orderID string, actor *model.Employee) error {
	if !model.RoleAllowed(actor.Role, model.RoleCallcenter) {
		return forbidden("solo callcenter puede confirmar la orden")
	}
	ord, err := s.orders.FindByOrderID(ctx, orderID)
	if err != nil {
		return err
	}
	if err := checkOpen(ord); err != nil {
		return err
	}
	if ord.AddressConfirmedBy == "" {
		return notEligible("primero debe confirmarse la dirección")
	}
	if ord.OrderConfirmedBy != "" {
		return notEligible("la orden ya fue confirmada")
	}

	entry := newEntry(model.StatusOrderConfirmed, actor, "Orden confirmada con el cliente")
	if err := s.orders.ConfirmOrder(ctx, orderID, entry); err != nil {
		return err
	}

	s.bumpPerformance(actor.UserID, model.PerformanceDelta{OrdersProcessed: 1, OrdersConfirmed: 1})
	s.publishEvent(ord, model.StatusOrderConfirmed, false)
	return nil
}

func (s *FulfillmentService) MarkPacked(ctx context.Context, orderID string, notes string, actor *model.Employee) error {
	if !model.RoleAllowed(actor.Role, model.RolePacker) {
		return forbidden("solo el empaquetador puede marcar la orden como empaquetada")
	}
	ord, err := s.orders.FindByOrderID(ctx, orderID)
	if err != nil {
		return err
	}
	if err := checkOpen(ord); err != nil {
		return err
	}
	if ord.OrderConfirmedBy == "" {
		return notEligible("la orden todavía no fue confirmada")
	}
	if ord.PackedBy != "" {
		return notEligible("la orden ya fue empaquetada")
	}

	if notes == "" {
		notes = "Orden empaquetada"
	}
	entry := newEntry(model.StatusPacked, actor, notes)
	if err := s.orders.MarkPacked(ctx, orderID, notes, entry); err != nil {
		return err
	}

	s.bumpPerformance(actor.UserID, model.PerformanceDelta{OrdersProcessed: 1, OrdersPacked: 1})
	s.publishEvent(ord, model.StatusPacked, true)
	return nil
}

func (s *FulfillmentService) AssignDeliveryman(ctx context.Context, orderID string, deliverymanID string, actor *model.Employee) error {
	if !model.RoleAllowed(actor.Role, model.RoleWarehouse) {
		return forbidden("solo depósito puede asignar repartidor")
	}
	ord, err := s.orders.FindByOrderID(ctx, orderID)
	if err != nil {
		return err
	}
	if err := checkOpen(ord); err != nil {
		return err
	}
	if ord.Status != model.StatusPacked {
		return notEligible("la orden todavía no fue empaquetada")
	}

	// El destinatario tiene que ser un repartidor activo.
	target, err := s.employees.FindByUserID(ctx, deliverymanID)
	if err != nil {
		return invalid("el repartidor indicado no existe")
	}
	if target.Role != model.RoleDeliveryman || target.Status != model.EmployeeActive || !target.IsEmployee {
		return invalid("el destinatario no es un repartidor activo")
	}

	entry := newEntry(model.StatusReadyForDelivery, actor, fmt.Sprintf("Asignada a repartidor %s", target.Email))
	if err := s.orders.AssignDeliveryman(ctx, orderID, deliverymanID, entry); err != nil {
		return err
	}

	s.bumpPerformance(actor.UserID, model.PerformanceDelta{OrdersProcessed: 1, OrdersAssignedForDelivery: 1})
	return nil
}

func (s *FulfillmentService) StartDelivery(ctx context.Context, orderID string, actor *model.Employee) error {
	if !model.RoleAllowed(actor.Role, model.RoleDeliveryman) {
		return forbidden("solo el repartidor puede iniciar la entrega")
	}
	ord, err := s.orders.FindByOrderID(ctx, orderID)
	if err != nil {
		return err
	}
	if err := checkOpen(ord); err != nil {
		return err
	}
	// Solo el asignado (incharge puede siempre).
	if actor.Role != model.RoleIncharge && ord.AssignedDeliverymanID != actor.UserID {
		return forbidden("la entrega está asignada a otro repartidor")
	}
	if !model.CanTransition(ord.Status, model.StatusOutForDelivery) {
		return notEligible("la orden no está lista para salir a reparto")
	}

	entry := newEntry(model.StatusOutForDelivery, actor, "Salió a reparto")
	if err := s.orders.StartDelivery(ctx, orderID, entry); err != nil {
		return err
	}

	s.bumpPerformance(actor.UserID, model.PerformanceDelta{})
	s.publishEvent(ord, model.StatusOutForDelivery, false)
	return nil
}

func (s *FulfillmentService) MarkDelivered(ctx context.Context, orderID string, actor *model.Employee) error {
	if !model.RoleAllowed(actor.Role, model.RoleDeliveryman) {
		return forbidden("solo el repartidor puede marcar la entrega")
	}
	ord, err := s.orders.FindByOrderID(ctx, orderID)
	if err != nil {
		return err
	}
	if err := checkOpen(ord); err != nil {
		return err
	}
	if ord.Status != model.StatusOutForDelivery {
		return notEligible("la orden no está en reparto")
	}

	// Contrarreembolso (o pago aún pendiente): el efectivo va primero.
	requireCash := ord.PaymentMethod == model.PaymentCashOnDelivery || ord.PaymentStatus != model.PaymentPaid
	if requireCash && !ord.CashCollected {
		return notEligible("debe cobrarse el efectivo antes de marcar la entrega")
	}

	entry := newEntry(model.StatusDelivered, actor, "Orden entregada al cliente")
	if err := s.orders.MarkDelivered(ctx, orderID, requireCash, entry); err != nil {
		return err
	}

	s.bumpPerformance(actor.UserID, model.PerformanceDelta{OrdersProcessed: 1, OrdersDelivered: 1})
	s.publishEvent(ord, model.StatusDelivered, true)
	return nil
}

func (s *FulfillmentService) RescheduleDelivery(ctx context.Context, orderID string, date time.Time, reason string, actor *model.Employee) error {
	if !model.RoleAllowed(actor.Role, model.RoleDeliveryman) {
		return forbidden("solo el repartidor puede reagendar la entrega")
	}
	if reason == "" {
		return invalid("el motivo del reagendado es obligatorio")
	}
	ord, err := s.orders.FindByOrderID(ctx, orderID)
	if err != nil {
		return err
	}
	if err := checkOpen(ord); err != nil {
		return err
	}
	if ord.Status != model.StatusOutForDelivery {
		return notEligible("la orden no está en reparto")
	}

	entry := newEntry(model.StatusRescheduled, actor, fmt.Sprintf("Entrega reagendada: %s", reason))
	if err := s.orders.Reschedule(ctx, orderID, date, reason, entry); err != nil {
		return err
	}

	s.bumpPerformance(actor.UserID, model.PerformanceDelta{})
	return nil
}

func (s *FulfillmentService) MarkDeliveryFailed(ctx context.Context, orderID string, reason string, actor *model.Employee) error {
	if !model.RoleAllowed(actor.Role, model.RoleDeliveryman) {
		return forbidden("solo el repartidor puede marcar la entrega fallida")
	}
	if reason == "" {
		return invalid("el motivo del fallo es obligatorio")
	}
	ord, err := s.orders.FindByOrderID(ctx, orderID)
	if err != nil {
		return err
	}
	if err := checkOpen(ord); err != nil {
		return err
	}
	if ord.Status != model.StatusOutForDelivery {
		return notEligible("la orden no está en reparto")
	}

	entry := newEntry(model.StatusFailedDelivery, actor, fmt.Sprintf("Entrega fallida: %s", reason))
	if err := s.orders.MarkDeliveryFailed(ctx, orderID, reason, entry); err != nil {
		return err
	}

	s.bumpPerformance(actor.UserID, model.PerformanceDelta{})
	return nil
}
