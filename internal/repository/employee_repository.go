package repository

import (
	"context"
	"errors"
	"time"

	"order-fulfillment-service/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

var ErrEmployeeNotFound = errors.New("empleado no encontrado")

type MongoEmployeeRepository struct {
	col *mongo.Collection
}

func NewMongoEmployeeRepository(db *mongo.Database) *MongoEmployeeRepository {
	return &MongoEmployeeRepository{col: db.Collection("employees")}
}

func (m *MongoEmployeeRepository) FindByUserID(ctx context.Context, userID string) (*model.Employee, error) {
	var res model.Employee
	err := m.col.FindOne(ctx, bson.M{"user_id": userID}).Decode(&res)
	if err == mongo.ErrNoDocuments {
		return nil, ErrEmployeeNotFound
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (m *MongoEmployeeRepository) FindActiveByRole(ctx context.Context, role model.Role) ([]*model.Employee, error) {
	filter := bson.M{
		"role":        role,
		"status":      model.EmployeeActive,
		"is_employee": true,
	}
	cur, err := m.col.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []*model.Employee
	for cur.Next(ctx) {
		var v model.Employee
		if err := cur.Decode(&v); err != nil {
			return nil, err
		}
		out = append(out, &v)
	}
	return out, cur.Err()
}

// IncrementPerformance aplica el delta con un único $inc atómico.
// Nada de leer-sumar-escribir: dos despachos concurrentes del mismo
// empleado no pueden pisarse incrementos.
func (m *MongoEmployeeRepository) IncrementPerformance(ctx context.Context, userID string, delta model.PerformanceDelta) error {
	inc := bson.M{}
	if delta.OrdersProcessed != 0 {
		inc["performance.orders_processed"] = delta.OrdersProcessed
	}
	if delta.OrdersConfirmed != 0 {
		inc["performance.orders_confirmed"] = delta.OrdersConfirmed
	}
	if delta.OrdersPacked != 0 {
		inc["performance.orders_packed"] = delta.OrdersPacked
	}
	if delta.OrdersAssignedForDelivery != 0 {
		inc["performance.orders_assigned_for_delivery"] = delta.OrdersAssignedForDelivery
	}
	if delta.OrdersDelivered != 0 {
		inc["performance.orders_delivered"] = delta.OrdersDelivered
	}
	if delta.CashCollected != 0 {
		inc["performance.total_cash_collected"] = delta.CashCollected
	}
	if delta.PaymentsReceived != 0 {
		inc["performance.total_payments_received"] = delta.PaymentsReceived
	}

	update := bson.M{
		"$set": bson.M{"performance.last_active_at": time.Now().UTC()},
	}
	if len(inc) > 0 {
		update["$inc"] = inc
	}

	res, err := m.col.UpdateOne(ctx, bson.M{"user_id": userID}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrEmployeeNotFound
	}
	return nil
}
