package main

import (
	"context"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rabbitmq/amqp091-go"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"order-fulfillment-service/internal/config"
	"order-fulfillment-service/internal/controller"
	"order-fulfillment-service/internal/middleware"
	"order-fulfillment-service/internal/model"
	"order-fulfillment-service/internal/rabbit"
	"order-fulfillment-service/internal/repository"
	"order-fulfillment-service/internal/service"
)

func main() {
	cfg := config.Load()

	// Conexión a MongoDB
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatal(err)
	}
	db := client.Database(cfg.MongoDBName)

	// Conexión a RabbitMQ (el publisher de eventos lo necesita el servicio)
	conn, err := amqp091.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("Error conectando a RabbitMQ: %v", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		log.Fatalf("Error creando canal en RabbitMQ: %v", err)
	}
	publisher, err := rabbit.NewPublisher(ch)
	if err != nil {
		log.Fatalf("Error declarando exchange de eventos: %v", err)
	}

	// Repositorios y servicios
	orderRepo := repository.NewMongoOrderRepository(db)
	employeeRepo := repository.NewMongoEmployeeRepository(db)
	svc := service.NewFulfillmentService(orderRepo, employeeRepo, publisher)
	authService := service.NewAuthService(cfg.AuthURL)
	notifier := service.NewNotificationService(cfg.NotifyURL)
	cache := service.NewCacheService(cfg.CacheURL)

	// Handlers
	ctrl := controller.NewOrderController(svc)

	// Router
	r := gin.Default()

	// Rutas públicas
	r.POST("/orders/init", ctrl.InitOrder)

	// Rutas protegidas (requieren token + empleado activo)
	auth := r.Group("/")
	auth.Use(middleware.AuthMiddleware(authService, svc))

	auth.GET("/orders/mine", ctrl.GetMyOrders)
	auth.GET("/orders/:orderId", ctrl.GetOrder)
	auth.GET("/accounts/employees", ctrl.GetAccountsEmployees)

	callcenter := auth.Group("/")
	callcenter.Use(middleware.RequireRole(model.RoleCallcenter))
	callcenter.POST("/orders/:orderId/confirm-address", ctrl.ConfirmAddress)
	callcenter.PATCH("/orders/:orderId/shipping-address", ctrl.UpdateShippingAddress)
	callcenter.POST("/orders/:orderId/confirm", ctrl.ConfirmOrder)

	packer := auth.Group("/")
	packer.Use(middleware.RequireRole(model.RolePacker))
	packer.POST("/orders/:orderId/pack", ctrl.MarkPacked)

	warehouse := auth.Group("/")
	warehouse.Use(middleware.RequireRole(model.RoleWarehouse))
	warehouse.POST("/orders/:orderId/assign-deliveryman", ctrl.AssignDeliveryman)

	deliveryman := auth.Group("/")
	deliveryman.Use(middleware.RequireRole(model.RoleDeliveryman))
	deliveryman.POST("/orders/:orderId/start-delivery", ctrl.StartDelivery)
	deliveryman.POST("/orders/:orderId/deliver", ctrl.MarkDelivered)
	deliveryman.POST("/orders/:orderId/collect-cash", ctrl.CollectCash)
	deliveryman.POST("/orders/:orderId/reschedule", ctrl.RescheduleDelivery)
	deliveryman.POST("/orders/:orderId/fail-delivery", ctrl.MarkDeliveryFailed)
	deliveryman.POST("/orders/:orderId/submit-cash", ctrl.SubmitCash)

	accounts := auth.Group("/")
	accounts.Use(middleware.RequireRole(model.RoleAccounts))
	accounts.POST("/orders/:orderId/reject-cash", ctrl.RejectCash)
	accounts.POST("/orders/:orderId/receive-payment", ctrl.ReceivePayment)
	accounts.GET("/accounts/orders", ctrl.GetAccountsOrders)
	accounts.GET("/accounts/stats", ctrl.GetAccountsStats)

	rabbit.SetupConsumers(ch, svc, notifier, cache)

	// Ejecutar servidor
	log.Printf("Order Fulfillment Service ejecutándose en puerto %s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal(err)
	}
}
