package service

import (
	"context"
	"fmt"

	"order-fulfillment-service/internal/model"
)

// Cadena de custodia del efectivo: el repartidor cobra, entrega a un empleado
// de contabilidad, y contabilidad confirma o rechaza. El documento de la orden
// es el único registro; no hay filas intermedias de ledger.

func (s *FulfillmentService) CollectCash(ctx context.Context, orderID string, amount float64, actor *model.Employee) error {
	if !model.RoleAllowed(actor.Role, model.RoleDeliveryman) {
		return forbidden("solo el repartidor puede cobrar el efectivo")
	}
	if amount < 0 {
		return invalid("el monto no puede ser negativo")
	}
	ord, err := s.orders.FindByOrderID(ctx, orderID)
	if err != nil {
		return err
	}
	if ord.Status == model.StatusCancelled {
		return notEligible("la orden fue cancelada")
	}
	if ord.CashCollected {
		return notEligible("el efectivo ya fue cobrado")
	}

	// Sin monto explícito se cobra el total de la orden.
	if amount == 0 {
		amount = ord.TotalPrice
	}

	entry := newEntry(ord.Status, actor, fmt.Sprintf("Efectivo cobrado: $%.2f", amount))
	if err := s.orders.CollectCash(ctx, orderID, amount, entry); err != nil {
		return err
	}

	s.bumpPerformance(actor.UserID, model.PerformanceDelta{CashCollected: amount})
	return nil
}

func (s *FulfillmentService) SubmitCashToAccounts(ctx context.Context, orderID string, accountsID string, actor *model.Employee) error {
	if !model.RoleAllowed(actor.Role, model.RoleDeliveryman) {
		return forbidden("solo el repartidor puede entregar el efectivo")
	}
	ord, err := s.orders.FindByOrderID(ctx, orderID)
	if err != nil {
		return err
	}
	if !ord.CashCollected {
		return notEligible("todavía no se cobró el efectivo de esta orden")
	}
	switch ord.CashSubmissionStatus {
	case model.SubmissionPending:
		return notEligible("ya hay una entrega de efectivo pendiente de confirmación")
	case model.SubmissionConfirmed:
		return notEligible("el efectivo de esta orden ya fue confirmado por contabilidad")
	}

	// El destinatario tiene que ser un empleado de contabilidad activo.
	target, err := s.employees.FindByUserID(ctx, accountsID)
	if err != nil {
		return invalid("el empleado de contabilidad indicado no existe")
	}
	if target.Role != model.RoleAccounts || target.Status != model.EmployeeActive || !target.IsEmployee {
		return invalid("el destinatario no es un empleado de contabilidad activo")
	}

	notes := fmt.Sprintf("Efectivo entregado a %s: $%.2f", target.Email, ord.CashCollectedAmount)
	entry := newEntry(ord.Status, actor, notes)
	if err := s.orders.SubmitCash(ctx, orderID, accountsID, entry); err != nil {
		return err
	}

	s.bumpPerformance(actor.UserID, model.PerformanceDelta{})
	return nil
}

func (s *FulfillmentService) RejectCashSubmission(ctx context.Context, orderID string, reason string, actor *model.Employee) error {
	if !model.RoleAllowed(actor.Role, model.RoleAccounts) {
		return forbidden("solo contabilidad puede rechazar una entrega de efectivo")
	}
	if reason == "" {
		return invalid("el motivo del rechazo es obligatorio")
	}
	ord, err := s.orders.FindByOrderID(ctx, orderID)
	if err != nil {
		return err
	}
	switch ord.CashSubmissionStatus {
	case model.SubmissionNone:
		return notEligible("no hay ninguna entrega de efectivo para rechazar")
	case model.SubmissionConfirmed:
		return notEligible("la entrega ya fue confirmada, no puede rechazarse")
	case model.SubmissionRejected:
		return notEligible("la entrega ya fue rechazada")
	}

	entry := newEntry(ord.Status, actor, fmt.Sprintf("Entrega de efectivo rechazada: %s", reason))
	if err := s.orders.RejectSubmission(ctx, orderID, reason, entry); err != nil {
		return err
	}

	s.bumpPerformance(actor.UserID, model.PerformanceDelta{})
	return nil
}

func (s *FulfillmentService) ReceivePayment(ctx context.Context, orderID string, actor *model.Employee) error {
	if !model.RoleAllowed(actor.Role, model.RoleAccounts) {
		return forbidden("solo contabilidad puede confirmar el pago")
	}
	ord, err := s.orders.FindByOrderID(ctx, orderID)
	if err != nil {
		return err
	}
	if err := checkOpen(ord); err != nil {
		return err
	}
	if ord.Status != model.StatusDelivered {
		return notEligible("la orden todavía no fue entregada")
	}
	if !ord.CashCollected {
		return notEligible("todavía no se cobró el efectivo de esta orden")
	}
	switch ord.CashSubmissionStatus {
	case model.SubmissionNone:
		return notEligible("no hay ninguna entrega de efectivo para confirmar")
	case model.SubmissionConfirmed:
		return notEligible("el pago ya fue confirmado")
	case model.SubmissionRejected:
		return notEligible("la entrega fue rechazada, el repartidor debe volver a entregarla")
	}

	// El monto confirmado es el cobrado; si no quedó registrado, el total.
	amount := ord.CashCollectedAmount
	if amount == 0 {
		amount = ord.TotalPrice
	}

	entry := newEntry(model.StatusCompleted, actor, fmt.Sprintf("Pago recibido: $%.2f", amount))
	if err := s.orders.ReceivePayment(ctx, orderID, amount, entry); err != nil {
		return err
	}

	s.bumpPerformance(actor.UserID, model.PerformanceDelta{PaymentsReceived: amount})
	return nil
}
