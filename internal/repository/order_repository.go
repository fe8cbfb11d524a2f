package repository

import (
	"context"
	"errors"
	"time"

	"order-fulfillment-service/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNotFound = errors.New("orden no encontrada")

	// ErrNotEligible: el filtro condicional no matcheó ningún documento.
	// Otro actor ganó la carrera o la orden no está en la etapa requerida.
	ErrNotEligible = errors.New("la orden no está en condiciones para esta operación")
)

// Mongo implementation
type MongoOrderRepository struct {
	col *mongo.Collection
}

func NewMongoOrderRepository(db *mongo.Database) *MongoOrderRepository {
	return &MongoOrderRepository{col: db.Collection("orders")}
}

// Save hace upsert del documento inicial de la orden.
func (m *MongoOrderRepository) Save(ctx context.Context, o *model.Order) error {
	now := time.Now().UTC()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	o.UpdatedAt = now

	filter := bson.M{"order_id": o.OrderID}
	update := bson.M{"$set": o}
	opts := options.Update().SetUpsert(true)
	_, err := m.col.UpdateOne(ctx, filter, update, opts)
	return err
}

func (m *MongoOrderRepository) FindByOrderID(ctx context.Context, orderID string) (*model.Order, error) {
	var res model.Order
	err := m.col.FindOne(ctx, bson.M{"order_id": orderID}).Decode(&res)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// transition ejecuta la escritura condicional de una etapa: un único UpdateOne
// cuyo filtro re-verifica las precondiciones. Si no matchea, el que llegó
// segundo recibe ErrNotEligible (o ErrNotFound si la orden no existe).
func (m *MongoOrderRepository) transition(ctx context.Context, orderID string, pre bson.M, set bson.M, inc bson.M, entry model.StatusHistoryEntry) error {
	filter := bson.M{"order_id": orderID}
	for k, v := range pre {
		filter[k] = v
	}

	set["updated_at"] = time.Now().UTC()
	update := bson.M{
		"$set":  set,
		"$push": bson.M{"status_history": entry},
	}
	if len(inc) > 0 {
		update["$inc"] = inc
	}

	res, err := m.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		n, err := m.col.CountDocuments(ctx, bson.M{"order_id": orderID})
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return ErrNotEligible
	}
	return nil
}

func (m *MongoOrderRepository) ConfirmAddress(ctx context.Context, orderID string, entry model.StatusHistoryEntry) error {
	pre := bson.M{
		"status":               model.StatusPending,
		"address_confirmed_by": "",
	}
	set := bson.M{
		"status":               model.StatusAddressConfirmed,
		"address_confirmed_by": entry.Actor,
		"address_confirmed_at": entry.Timestamp,
	}
	return m.transition(ctx, orderID, pre, set, nil, entry)
}

func (m *MongoOrderRepository) UpdateShipping(ctx context.Context, orderID string, shipping model.Shipping, entry model.StatusHistoryEntry) error {
	// Solo mientras la dirección no esté confirmada.
	pre := bson.M{"address_confirmed_by": ""}
	set := bson.M{"shipping": shipping}
	return m.transition(ctx, orderID, pre, set, nil, entry)
}

func (m *MongoOrderRepository) ConfirmOrder(ctx context.Context, orderID string, entry model.StatusHistoryEntry) error {
	pre := bson.M{
		"status":             model.StatusAddressConfirmed,
		"order_confirmed_by": "",
	}
	set := bson.M{
		"status":             model.StatusOrderConfirmed,
		"order_confirmed_by": entry.Actor,
		"order_confirmed_at": entry.Timestamp,
	}
	return m.transition(ctx, orderID, pre, set, nil, entry)
}

func (m *MongoOrderRepository) MarkPacked(ctx context.Context, orderID string, notes string, entry model.StatusHistoryEntry) error {
	pre := bson.M{
		"status":    model.StatusOrderConfirmed,
		"packed_by": "",
	}
	set := bson.M{
		"status":        model.StatusPacked,
		"packed_by":     entry.Actor,
		"packed_at":     entry.Timestamp,
		"packing_notes": notes,
	}
	return m.transition(ctx, orderID, pre, set, nil, entry)
}

func (m *MongoOrderRepository) AssignDeliveryman(ctx context.Context, orderID string, deliverymanID string, entry model.StatusHistoryEntry) error {
	pre := bson.M{"status": model.StatusPacked}
	set := bson.M{
		"status":                  model.StatusReadyForDelivery,
		"assigned_deliveryman_id": deliverymanID,
		"dispatched_by":           entry.Actor,
		"dispatched_at":           entry.Timestamp,
	}
	return m.transition(ctx, orderID, pre, set, nil, entry)
}

func (m *MongoOrderRepository) StartDelivery(ctx context.Context, orderID string, entry model.StatusHistoryEntry) error {
	pre := bson.M{"status": bson.M{"$in": bson.A{
		model.StatusReadyForDelivery,
		model.StatusRescheduled,
		model.StatusFailedDelivery,
	}}}
	set := bson.M{"status": model.StatusOutForDelivery}
	inc := bson.M{"delivery_attempts": 1}
	return m.transition(ctx, orderID, pre, set, inc, entry)
}

// MarkDelivered: si requireCash es true (contrarreembolso o pago pendiente),
// el cobro del efectivo también forma parte del filtro condicional.
func (m *MongoOrderRepository) MarkDelivered(ctx context.Context, orderID string, requireCash bool, entry model.StatusHistoryEntry) error {
	pre := bson.M{"status": model.StatusOutForDelivery}
	if requireCash {
		pre["cash_collected"] = true
	}
	set := bson.M{
		"status":       model.StatusDelivered,
		"delivered_by": entry.Actor,
		"delivered_at": entry.Timestamp,
	}
	return m.transition(ctx, orderID, pre, set, nil, entry)
}

func (m *MongoOrderRepository) Reschedule(ctx context.Context, orderID string, date time.Time, reason string, entry model.StatusHistoryEntry) error {
	pre := bson.M{"status": model.StatusOutForDelivery}
	set := bson.M{
		"status":            model.StatusRescheduled,
		"rescheduled_date":  date,
		"reschedule_reason": reason,
	}
	return m.transition(ctx, orderID, pre, set, nil, entry)
}

func (m *MongoOrderRepository) MarkDeliveryFailed(ctx context.Context, orderID string, reason string, entry model.StatusHistoryEntry) error {
	pre := bson.M{"status": model.StatusOutForDelivery}
	set := bson.M{
		"status":                  model.StatusFailedDelivery,
		"delivery_failure_reason": reason,
	}
	inc := bson.M{"delivery_attempts": 1}
	return m.transition(ctx, orderID, pre, set, inc, entry)
}

func (m *MongoOrderRepository) CollectCash(ctx context.Context, orderID string, amount float64, entry model.StatusHistoryEntry) error {
	pre := bson.M{
		"cash_collected": false,
		"status":         bson.M{"$ne": model.StatusCancelled},
	}
	set := bson.M{
		"cash_collected":        true,
		"cash_collected_by":     entry.Actor,
		"cash_collected_amount": amount,
		"cash_collected_at":     entry.Timestamp,
		"payment_status":        model.PaymentPaid,
	}
	return m.transition(ctx, orderID, pre, set, nil, entry)
}

func (m *MongoOrderRepository) SubmitCash(ctx context.Context, orderID string, accountsID string, entry model.StatusHistoryEntry) error {
	pre := bson.M{
		"cash_collected": true,
		"cash_submission_status": bson.M{"$in": bson.A{
			model.SubmissionNone,
			model.SubmissionRejected,
		}},
	}
	set := bson.M{
		"cash_submitted_to_accounts": true,
		"cash_submitted_by":          entry.Actor,
		"cash_submitted_at":          entry.Timestamp,
		"cash_submission_status":     model.SubmissionPending,
		"assigned_accounts_id":       accountsID,
	}
	return m.transition(ctx, orderID, pre, set, nil, entry)
}

// RejectSubmission limpia la asignación para que el repartidor pueda volver
// a entregar el efectivo; el monto cobrado original no se toca.
func (m *MongoOrderRepository) RejectSubmission(ctx context.Context, orderID string, reason string, entry model.StatusHistoryEntry) error {
	pre := bson.M{"cash_submission_status": model.SubmissionPending}
	set := bson.M{
		"cash_submission_status":     model.SubmissionRejected,
		"cash_rejection_reason":      reason,
		"assigned_accounts_id":       "",
		"cash_submitted_to_accounts": false,
	}
	return m.transition(ctx, orderID, pre, set, nil, entry)
}

func (m *MongoOrderRepository) ReceivePayment(ctx context.Context, orderID string, amount float64, entry model.StatusHistoryEntry) error {
	// completed solo existe como arista desde delivered; el filtro lo exige.
	pre := bson.M{
		"status":                     model.StatusDelivered,
		"cash_collected":             true,
		"cash_submitted_to_accounts": true,
		"cash_submission_status":     model.SubmissionPending,
	}
	set := bson.M{
		"cash_submission_status":  model.SubmissionConfirmed,
		"payment_received_by":     entry.Actor,
		"payment_received_at":     entry.Timestamp,
		"payment_received_amount": amount,
		"payment_status":          model.PaymentPaid,
		"status":                  model.StatusCompleted,
	}
	return m.transition(ctx, orderID, pre, set, nil, entry)
}

func (m *MongoOrderRepository) FindAll(ctx context.Context) ([]*model.Order, error) {
	return m.find(ctx, bson.M{})
}

func (m *MongoOrderRepository) FindByStatuses(ctx context.Context, statuses ...model.OrderStatus) ([]*model.Order, error) {
	in := bson.A{}
	for _, s := range statuses {
		in = append(in, s)
	}
	return m.find(ctx, bson.M{"status": bson.M{"$in": in}})
}

func (m *MongoOrderRepository) FindByDeliveryman(ctx context.Context, deliverymanID string) ([]*model.Order, error) {
	return m.find(ctx, bson.M{"assigned_deliveryman_id": deliverymanID})
}

// FindCashOrders devuelve las órdenes con efectivo cobrado (vista de contabilidad).
func (m *MongoOrderRepository) FindCashOrders(ctx context.Context) ([]*model.Order, error) {
	return m.find(ctx, bson.M{"cash_collected": true})
}

func (m *MongoOrderRepository) find(ctx context.Context, filter bson.M) ([]*model.Order, error) {
	cur, err := m.col.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []*model.Order
	for cur.Next(ctx) {
		var v model.Order
		if err := cur.Decode(&v); err != nil {
			return nil, err
		}
		out = append(out, &v)
	}
	return out, cur.Err()
}
