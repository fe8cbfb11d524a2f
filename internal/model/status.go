// status.go
package model

// Estados del workflow de la orden. Son conjuntos cerrados: cualquier
// valor fuera de estas constantes es inválido.
type OrderStatus string

const (
	StatusPending          OrderStatus = "pending"
	StatusAddressConfirmed OrderStatus = "address_confirmed"
	StatusOrderConfirmed   OrderStatus = "order_confirmed"
	StatusPacked           OrderStatus = "packed"
	StatusReadyForDelivery OrderStatus = "ready_for_delivery"
	StatusOutForDelivery   OrderStatus = "out_for_delivery"
	StatusDelivered        OrderStatus = "delivered"
	StatusRescheduled      OrderStatus = "rescheduled"
	StatusFailedDelivery   OrderStatus = "failed_delivery"
	StatusCompleted        OrderStatus = "completed"
	StatusCancelled        OrderStatus = "cancelled"
)

type PaymentMethod string

const (
	PaymentCashOnDelivery PaymentMethod = "cash_on_delivery"
	PaymentCard           PaymentMethod = "card"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

// Estado de la entrega de efectivo a contabilidad. El string vacío
// significa que todavía no hubo ninguna entrega.
type SubmissionStatus string

const (
	SubmissionNone      SubmissionStatus = ""
	SubmissionPending   SubmissionStatus = "pending"
	SubmissionConfirmed SubmissionStatus = "confirmed"
	SubmissionRejected  SubmissionStatus = "rejected"
)

type Role string

const (
	RoleCallcenter  Role = "callcenter"
	RolePacker      Role = "packer"
	RoleWarehouse   Role = "warehouse"
	RoleDeliveryman Role = "deliveryman"
	RoleIncharge    Role = "incharge"
	RoleAccounts    Role = "accounts"
)

type EmployeeStatus string

const (
	EmployeeActive    EmployeeStatus = "active"
	EmployeeInactive  EmployeeStatus = "inactive"
	EmployeeSuspended EmployeeStatus = "suspended"
)

// Transiciones hacia adelante permitidas (hardcodeadas, no hay catálogo en BD).
// rescheduled y failed_delivery pueden reintentar la entrega.
var forwardTransitions = map[OrderStatus][]OrderStatus{
	StatusPending:          {StatusAddressConfirmed},
	StatusAddressConfirmed: {StatusOrderConfirmed},
	StatusOrderConfirmed:   {StatusPacked},
	StatusPacked:           {StatusReadyForDelivery},
	StatusReadyForDelivery: {StatusOutForDelivery},
	StatusOutForDelivery:   {StatusDelivered, StatusRescheduled, StatusFailedDelivery},
	StatusRescheduled:      {StatusOutForDelivery},
	StatusFailedDelivery:   {StatusOutForDelivery},
	StatusDelivered:        {StatusCompleted},
}

// CanTransition indica si existe la arista from → to en el grafo fijo.
func CanTransition(from, to OrderStatus) bool {
	for _, next := range forwardTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsFinal: desde estos estados no hay ninguna transición posible.
func (s OrderStatus) IsFinal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

var validRoles = map[Role]bool{
	RoleCallcenter:  true,
	RolePacker:      true,
	RoleWarehouse:   true,
	RoleDeliveryman: true,
	RoleIncharge:    true,
	RoleAccounts:    true,
}

func (r Role) IsValid() bool {
	return validRoles[r]
}

// RoleAllowed verifica el allow-list de una operación.
// incharge está permitido siempre (rol supervisor).
func RoleAllowed(r Role, allowed ...Role) bool {
	if r == RoleIncharge {
		return true
	}
	for _, a := range allowed {
		if r == a {
			return true
		}
	}
	return false
}

// Hitos completados por estado, para calcular el progreso de la orden.
// Un intento fallido o reagendado congela el progreso en 5/6, no lo reduce.
var milestonesReached = map[OrderStatus]int{
	StatusPending:          0,
	StatusAddressConfirmed: 1,
	StatusOrderConfirmed:   2,
	StatusPacked:           3,
	StatusReadyForDelivery: 4,
	StatusOutForDelivery:   5,
	StatusRescheduled:      5,
	StatusFailedDelivery:   5,
	StatusDelivered:        6,
	StatusCompleted:        6,
	StatusCancelled:        0,
}

const totalMilestones = 6

// Progress devuelve la fracción de hitos completados (0.0 a 1.0).
func (s OrderStatus) Progress() float64 {
	return float64(milestonesReached[s]) / totalMilestones
}
