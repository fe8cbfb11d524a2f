// models.go
package model

import "time"

// Order es el documento de fulfillment de una orden ya comprada.
// El checkout (externo) la crea; este servicio la muta únicamente a través
// de las operaciones de la máquina de etapas.
type Order struct {
	OrderID     string `bson:"order_id" json:"orderId"`
	OrderNumber string `bson:"order_number" json:"orderNumber"`
	CustomerID  string `bson:"customer_id" json:"customerId"`

	Items      []LineItem `bson:"items" json:"items"`
	TotalPrice float64    `bson:"total_price" json:"totalPrice"`
	Currency   string     `bson:"currency" json:"currency"`

	PaymentMethod PaymentMethod `bson:"payment_method" json:"paymentMethod"`
	PaymentStatus PaymentStatus `bson:"payment_status" json:"paymentStatus"`

	Status   OrderStatus `bson:"status" json:"status"`
	Shipping Shipping    `bson:"shipping" json:"shipping"`

	// Atribución por etapa: quién hizo qué y cuándo.
	AddressConfirmedBy string    `bson:"address_confirmed_by" json:"addressConfirmedBy"`
	AddressConfirmedAt time.Time `bson:"address_confirmed_at" json:"addressConfirmedAt"`
	OrderConfirmedBy   string    `bson:"order_confirmed_by" json:"orderConfirmedBy"`
	OrderConfirmedAt   time.Time `bson:"order_confirmed_at" json:"orderConfirmedAt"`
	PackedBy           string    `bson:"packed_by" json:"packedBy"`
	PackedAt           time.Time `bson:"packed_at" json:"packedAt"`
	PackingNotes       string    `bson:"packing_notes" json:"packingNotes"`
	DispatchedBy       string    `bson:"dispatched_by" json:"dispatchedBy"`
	DispatchedAt       time.Time `bson:"dispatched_at" json:"dispatchedAt"`
	DeliveredBy        string    `bson:"delivered_by" json:"deliveredBy"`
	DeliveredAt        time.Time `bson:"delivered_at" json:"deliveredAt"`

	// Asignación de repartidor (user_id del empleado deliveryman).
	AssignedDeliverymanID string `bson:"assigned_deliveryman_id" json:"assignedDeliverymanId"`

	// Reintentos de entrega.
	DeliveryAttempts      int       `bson:"delivery_attempts" json:"deliveryAttempts"`
	RescheduledDate       time.Time `bson:"rescheduled_date" json:"rescheduledDate"`
	RescheduleReason      string    `bson:"reschedule_reason" json:"rescheduleReason"`
	DeliveryFailureReason string    `bson:"delivery_failure_reason" json:"deliveryFailureReason"`

	// Cadena de custodia del efectivo: cobro → entrega → confirmación/rechazo.
	CashCollected           bool             `bson:"cash_collected" json:"cashCollected"`
	CashCollectedBy         string           `bson:"cash_collected_by" json:"cashCollectedBy"`
	CashCollectedAmount     float64          `bson:"cash_collected_amount" json:"cashCollectedAmount"`
	CashCollectedAt         time.Time        `bson:"cash_collected_at" json:"cashCollectedAt"`
	CashSubmittedToAccounts bool             `bson:"cash_submitted_to_accounts" json:"cashSubmittedToAccounts"`
	CashSubmittedBy         string           `bson:"cash_submitted_by" json:"cashSubmittedBy"`
	CashSubmittedAt         time.Time        `bson:"cash_submitted_at" json:"cashSubmittedAt"`
	CashSubmissionStatus    SubmissionStatus `bson:"cash_submission_status" json:"cashSubmissionStatus"`
	AssignedAccountsID      string           `bson:"assigned_accounts_id" json:"assignedAccountsId"`
	CashRejectionReason     string           `bson:"cash_rejection_reason" json:"cashRejectionReason"`
	PaymentReceivedBy       string           `bson:"payment_received_by" json:"paymentReceivedBy"`
	PaymentReceivedAt       time.Time        `bson:"payment_received_at" json:"paymentReceivedAt"`
	PaymentReceivedAmount   float64          `bson:"payment_received_amount" json:"paymentReceivedAmount"`

	// Log de auditoría canónico, append-only.
	StatusHistory []StatusHistoryEntry `bson:"status_history" json:"statusHistory"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

type LineItem struct {
	ProductID string `bson:"product_id" json:"productId"`
	Quantity  int    `bson:"quantity" json:"quantity"`
}

type Shipping struct {
	AddressLine1 string `bson:"address_line1" json:"addressLine1"`
	City         string `bson:"city" json:"city"`
	PostalCode   string `bson:"postal_code" json:"postalCode"`
	Province     string `bson:"province" json:"province"`
	Country      string `bson:"country" json:"country"`
	Comments     string `bson:"comments" json:"comments"`
}

// StatusHistoryEntry es inmutable una vez agregada. El orden de inserción
// es la única garantía de orden.
type StatusHistoryEntry struct {
	Status    OrderStatus `bson:"status" json:"status"`
	ActorID   string      `bson:"actor_id" json:"actorId"`
	Actor     string      `bson:"actor" json:"actor"` // email del empleado
	ActorRole Role        `bson:"actor_role" json:"actorRole"`
	Timestamp time.Time   `bson:"timestamp" json:"timestamp"`
	Notes     string      `bson:"notes" json:"notes"`
}

// Employee es la identidad operativa. Este servicio solo lee rol/estado
// y escribe los contadores de performance.
type Employee struct {
	UserID      string         `bson:"user_id" json:"userId"`
	Email       string         `bson:"email" json:"email"`
	Name        string         `bson:"name" json:"name"`
	IsEmployee  bool           `bson:"is_employee" json:"isEmployee"`
	Role        Role           `bson:"role" json:"role"`
	Status      EmployeeStatus `bson:"status" json:"status"`
	Performance Performance    `bson:"performance" json:"performance"`
}

// Performance: contadores monotónicos, no existe decremento.
type Performance struct {
	OrdersProcessed           int       `bson:"orders_processed" json:"ordersProcessed"`
	OrdersConfirmed           int       `bson:"orders_confirmed" json:"ordersConfirmed"`
	OrdersPacked              int       `bson:"orders_packed" json:"ordersPacked"`
	OrdersAssignedForDelivery int       `bson:"orders_assigned_for_delivery" json:"ordersAssignedForDelivery"`
	OrdersDelivered           int       `bson:"orders_delivered" json:"ordersDelivered"`
	TotalCashCollected        float64   `bson:"total_cash_collected" json:"totalCashCollected"`
	TotalPaymentsReceived     float64   `bson:"total_payments_received" json:"totalPaymentsReceived"`
	LastActiveAt              time.Time `bson:"last_active_at" json:"lastActiveAt"`
}

// PerformanceDelta es el incremento atómico que se aplica al empleado
// tras una transición exitosa (un único $inc, nunca read-modify-write).
type PerformanceDelta struct {
	OrdersProcessed           int
	OrdersConfirmed           int
	OrdersPacked              int
	OrdersAssignedForDelivery int
	OrdersDelivered           int
	CashCollected             float64
	PaymentsReceived          float64
}

// IsZero indica si el delta no incrementa nada (no se escribe a BD).
func (d PerformanceDelta) IsZero() bool {
	return d == PerformanceDelta{}
}
