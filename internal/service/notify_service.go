package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"order-fulfillment-service/internal/model"
)

// Clientes HTTP de los colaboradores best-effort: notificaciones al cliente
// e invalidación de cache. Los usa el consumer de order_events, nunca el
// camino transaccional.

type NotificationService struct {
	baseURL string
	client  *http.Client
}

func NewNotificationService(baseURL string) *NotificationService {
	return &NotificationService{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

type notifyPayload struct {
	CustomerID  string            `json:"customerId"`
	OrderID     string            `json:"orderId"`
	OrderNumber string            `json:"orderNumber"`
	Status      model.OrderStatus `json:"status"`
}

func (n *NotificationService) Notify(ctx context.Context, customerID, orderID, orderNumber string, status model.OrderStatus) error {
	body, err := json.Marshal(notifyPayload{
		CustomerID:  customerID,
		OrderID:     orderID,
		OrderNumber: orderNumber,
		Status:      status,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/notifications", n.baseURL), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("notify request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("notify responded %d", resp.StatusCode)
	}
	return nil
}

type CacheService struct {
	baseURL string
	client  *http.Client
}

func NewCacheService(baseURL string) *CacheService {
	return &CacheService{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

func (c *CacheService) Invalidate(ctx context.Context, orderID, customerID string) error {
	url := fmt.Sprintf("%s/cache/orders/%s?customerId=%s", c.baseURL, orderID, customerID)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("cache invalidation failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("cache responded %d", resp.StatusCode)
	}
	return nil
}
