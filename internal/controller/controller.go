package controller

import (
	"errors"
	"log"
	"net/http"

	"order-fulfillment-service/internal/dto"
	"order-fulfillment-service/internal/middleware"
	"order-fulfillment-service/internal/model"
	"order-fulfillment-service/internal/repository"
	"order-fulfillment-service/internal/service"

	"github.com/gin-gonic/gin"
)

type OrderController struct {
	Service *service.FulfillmentService
}

func NewOrderController(s *service.FulfillmentService) *OrderController {
	return &OrderController{Service: s}
}

// respondError traduce la taxonomía de errores a la respuesta uniforme
// {success, message}. Los fallos de storage no filtran detalle al caller.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, repository.ErrEmployeeNotFound):
		c.JSON(http.StatusNotFound, dto.ActionResponse{Success: false, Message: err.Error()})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, dto.ActionResponse{Success: false, Message: err.Error()})
	case errors.Is(err, repository.ErrNotEligible), errors.Is(err, service.ErrOrderAlreadyExists):
		c.JSON(http.StatusConflict, dto.ActionResponse{Success: false, Message: err.Error()})
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, dto.ActionResponse{Success: false, Message: err.Error()})
	default:
		log.Println("❌ Error interno:", err)
		c.JSON(http.StatusInternalServerError, dto.ActionResponse{Success: false, Message: "error interno, intente nuevamente"})
	}
}

func respondOK(c *gin.Context, msg string) {
	c.JSON(http.StatusOK, dto.ActionResponse{Success: true, Message: msg})
}

func actor(c *gin.Context) *model.Employee {
	emp, _ := middleware.EmployeeFromContext(c)
	return emp
}

// POST /orders/init — No requiere token (lo usa el entorno de pruebas;
// el flujo real entra por el consumer de order_placed)
func (ctl *OrderController) InitOrder(c *gin.Context) {
	var req dto.InitOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ActionResponse{Success: false, Message: err.Error()})
		return
	}

	ord, err := ctl.Service.InitOrder(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ord)
}

// POST /orders/:orderId/confirm-address — callcenter
func (ctl *OrderController) ConfirmAddress(c *gin.Context) {
	if err := ctl.Service.ConfirmAddress(c.Request.Context(), c.Param("orderId"), actor(c)); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "dirección confirmada")
}

// PATCH /orders/:orderId/shipping-address — callcenter
func (ctl *OrderController) UpdateShippingAddress(c *gin.Context) {
	var req dto.UpdateAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ActionResponse{Success: false, Message: err.Error()})
		return
	}

	shipping := model.Shipping{
		AddressLine1: req.Shipping.AddressLine1,
		City:         req.Shipping.City,
		PostalCode:   req.Shipping.PostalCode,
		Province:     req.Shipping.Province,
		Country:      req.Shipping.Country,
		Comments:     req.Shipping.Comments,
	}
	if err := ctl.Service.UpdateShippingAddress(c.Request.Context(), c.Param("orderId"), shipping, actor(c)); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "dirección actualizada")
}

// POST /orders/:orderId/confirm — callcenter
func (ctl *OrderController) ConfirmOrder(c *gin.Context) {
	if err := ctl.Service.ConfirmOrder(c.Request.Context(), c.Param("orderId"), actor(c)); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "orden confirmada")
}

// POST /orders/:orderId/pack — packer
func (ctl *OrderController) MarkPacked(c *gin.Context) {
	var req dto.PackRequest
	// El body es opcional: sin notas también vale
	_ = c.ShouldBindJSON(&req)

	if err := ctl.Service.MarkPacked(c.Request.Context(), c.Param("orderId"), req.Notes, actor(c)); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "orden empaquetada")
}

// POST /orders/:orderId/assign-deliveryman — warehouse
func (ctl *OrderController) AssignDeliveryman(c *gin.Context) {
	var req dto.AssignDeliverymanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ActionResponse{Success: false, Message: err.Error()})
		return
	}

	if err := ctl.Service.AssignDeliveryman(c.Request.Context(), c.Param("orderId"), req.DeliverymanID, actor(c)); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "repartidor asignado")
}

// POST /orders/:orderId/start-delivery — deliveryman asignado
func (ctl *OrderController) StartDelivery(c *gin.Context) {
	if err := ctl.Service.StartDelivery(c.Request.Context(), c.Param("orderId"), actor(c)); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "orden en reparto")
}

// POST /orders/:orderId/deliver — deliveryman
func (ctl *OrderController) MarkDelivered(c *gin.Context) {
	if err := ctl.Service.MarkDelivered(c.Request.Context(), c.Param("orderId"), actor(c)); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "orden entregada")
}

// POST /orders/:orderId/collect-cash — deliveryman
func (ctl *OrderController) CollectCash(c *gin.Context) {
	var req dto.CollectCashRequest
	_ = c.ShouldBindJSON(&req)

	if err := ctl.Service.CollectCash(c.Request.Context(), c.Param("orderId"), req.Amount, actor(c)); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "efectivo cobrado")
}

// POST /orders/:orderId/reschedule — deliveryman
func (ctl *OrderController) RescheduleDelivery(c *gin.Context) {
	var req dto.RescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ActionResponse{Success: false, Message: err.Error()})
		return
	}

	if err := ctl.Service.RescheduleDelivery(c.Request.Context(), c.Param("orderId"), req.Date, req.Reason, actor(c)); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "entrega reagendada")
}

// POST /orders/:orderId/fail-delivery — deliveryman
func (ctl *OrderController) MarkDeliveryFailed(c *gin.Context) {
	var req dto.FailDeliveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ActionResponse{Success: false, Message: err.Error()})
		return
	}

	if err := ctl.Service.MarkDeliveryFailed(c.Request.Context(), c.Param("orderId"), req.Reason, actor(c)); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "entrega marcada como fallida")
}

// POST /orders/:orderId/submit-cash — deliveryman
func (ctl *OrderController) SubmitCash(c *gin.Context) {
	var req dto.SubmitCashRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ActionResponse{Success: false, Message: err.Error()})
		return
	}

	if err := ctl.Service.SubmitCashToAccounts(c.Request.Context(), c.Param("orderId"), req.AccountsEmployeeID, actor(c)); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "efectivo entregado a contabilidad")
}

// POST /orders/:orderId/reject-cash — accounts
func (ctl *OrderController) RejectCash(c *gin.Context) {
	var req dto.RejectCashRequest
	_ = c.ShouldBindJSON(&req)

	if err := ctl.Service.RejectCashSubmission(c.Request.Context(), c.Param("orderId"), req.Reason, actor(c)); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "entrega de efectivo rechazada")
}

// POST /orders/:orderId/receive-payment — accounts
func (ctl *OrderController) ReceivePayment(c *gin.Context) {
	if err := ctl.Service.ReceivePayment(c.Request.Context(), c.Param("orderId"), actor(c)); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "pago recibido, orden completada")
}

// GET /orders/mine — cola de trabajo según el rol
func (ctl *OrderController) GetMyOrders(c *gin.Context) {
	orders, err := ctl.Service.GetOrdersForEmployee(c.Request.Context(), actor(c))
	if err != nil {
		// Las lecturas nunca tiran: colección vacía y a otra cosa
		log.Println("❌ Error listando órdenes:", err)
		orders = nil
	}
	if orders == nil {
		orders = []*model.Order{}
	}
	c.JSON(http.StatusOK, orders)
}

// GET /orders/:orderId
func (ctl *OrderController) GetOrder(c *gin.Context) {
	view, err := ctl.Service.GetOrder(c.Request.Context(), c.Param("orderId"), actor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// GET /accounts/orders — accounts
func (ctl *OrderController) GetAccountsOrders(c *gin.Context) {
	orders, err := ctl.Service.GetOrdersForAccounts(c.Request.Context())
	if err != nil {
		log.Println("❌ Error listando órdenes de contabilidad:", err)
		orders = nil
	}
	if orders == nil {
		orders = []*model.Order{}
	}
	c.JSON(http.StatusOK, orders)
}

// GET /accounts/stats — accounts
func (ctl *OrderController) GetAccountsStats(c *gin.Context) {
	stats, err := ctl.Service.GetAccountsPaymentStats(c.Request.Context())
	if err != nil {
		log.Println("❌ Error calculando estadísticas:", err)
		stats = &service.PaymentStats{}
	}
	c.JSON(http.StatusOK, stats)
}

// GET /accounts/employees — destinos válidos para entregar efectivo
func (ctl *OrderController) GetAccountsEmployees(c *gin.Context) {
	emps, err := ctl.Service.GetActiveAccountsEmployees(c.Request.Context())
	if err != nil {
		log.Println("❌ Error listando empleados de contabilidad:", err)
		emps = nil
	}
	if emps == nil {
		emps = []*model.Employee{}
	}
	c.JSON(http.StatusOK, emps)
}
