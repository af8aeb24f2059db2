package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"laundry-api/core"
	"laundry-api/middleware"
	"laundry-api/models"
)

type OrderItemRequest struct {
	ServiceID string `json:"serviceId"`
	Quantity  int    `json:"quantity"`
}

// PlaceOrderRequest has no price fields: totals are always computed from
// the shop's catalog.
type PlaceOrderRequest struct {
	ShopID       string             `json:"shopId" binding:"required"`
	Items        []OrderItemRequest `json:"items"`
	PickupTime   *time.Time         `json:"pickupTime" binding:"required"`
	DeliveryTime *time.Time         `json:"deliveryTime" binding:"required"`
}

type UpdateOrderStatusRequest struct {
	Status models.OrderStatus `json:"status" binding:"required"`
}

// PlaceOrder creates a new order (customer only)
func (h *Handler) PlaceOrder(c *gin.Context) {
	var req PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Missing or invalid fields: "+err.Error())
		return
	}

	items := make([]core.ItemRequest, len(req.Items))
	for i, it := range req.Items {
		items[i] = core.ItemRequest{ServiceID: it.ServiceID, Quantity: it.Quantity}
	}

	order, err := h.orders.PlaceOrder(c.Request.Context(), middleware.GetActor(c), core.PlaceOrderInput{
		ShopID:       req.ShopID,
		Items:        items,
		PickupTime:   *req.PickupTime,
		DeliveryTime: *req.DeliveryTime,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// ListOrders returns the caller's orders, scoped by role
func (h *Handler) ListOrders(c *gin.Context) {
	orders, err := h.orders.ListOrders(c.Request.Context(), middleware.GetActor(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if orders == nil {
		orders = []models.Order{}
	}
	c.JSON(http.StatusOK, orders)
}

// GetOrder returns a single order with its status history
func (h *Handler) GetOrder(c *gin.Context) {
	order, err := h.orders.GetOrder(c.Request.Context(), middleware.GetActor(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// UpdateOrderStatus handles the shop owner's status transitions
func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	order, err := h.orders.SetOrderStatus(c.Request.Context(), middleware.GetActor(c), c.Param("id"), req.Status)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// GetStateMachineInfo describes the active transition policy
func (h *Handler) GetStateMachineInfo(c *gin.Context) {
	m := h.orders.Machine()
	c.JSON(http.StatusOK, gin.H{
		"policy":      m.Policy(),
		"initial":     models.StatusPending,
		"statuses":    models.AllStatuses,
		"transitions": m.Transitions(),
	})
}
