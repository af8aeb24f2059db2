package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"laundry-api/metrics"
	"laundry-api/models"
	"laundry-api/statemachine"
)

type OrderService struct {
	db      *gorm.DB
	machine *statemachine.Machine
	metrics *metrics.Recorder
	log     logrus.FieldLogger
}

func NewOrderService(db *gorm.DB, machine *statemachine.Machine, rec *metrics.Recorder, log logrus.FieldLogger) *OrderService {
	return &OrderService{db: db, machine: machine, metrics: rec, log: log}
}

// Machine exposes the active transition table
func (s *OrderService) Machine() *statemachine.Machine {
	return s.machine
}

type PlaceOrderInput struct {
	ShopID       string
	Items        []ItemRequest
	PickupTime   time.Time
	DeliveryTime time.Time
}

// PlaceOrder prices the requested items against the shop's catalog and
// persists the order, its lines and the initial history entry in one
// transaction. Only customers may place orders.
func (s *OrderService) PlaceOrder(ctx context.Context, actor Actor, in PlaceOrderInput) (*models.Order, error) {
	if err := actor.require(models.RoleCustomer); err != nil {
		return nil, err
	}
	if in.ShopID == "" {
		return nil, invalidInput("shopId is required")
	}
	if in.PickupTime.IsZero() || in.DeliveryTime.IsZero() {
		return nil, invalidInput("pickupTime and deliveryTime are required")
	}

	var order models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var shop models.Shop
		if err := tx.First(&shop, "id = ?", in.ShopID).Error; err != nil {
			return notFoundOr(err, ErrShopNotFound, "load shop")
		}

		var catalog []models.Service
		if ids := requestedServiceIDs(in.Items); len(ids) > 0 {
			if err := tx.Where("shop_id = ? AND id IN ?", shop.ID, ids).Find(&catalog).Error; err != nil {
				return fmt.Errorf("load services: %w", err)
			}
		}

		lines, total, err := PriceItems(catalog, in.Items)
		if err != nil {
			return err
		}

		order = models.Order{
			UserID:       actor.ID,
			ShopID:       shop.ID,
			Status:       models.StatusPending,
			Total:        total,
			PickupTime:   in.PickupTime,
			DeliveryTime: in.DeliveryTime,
			Items:        lines,
		}
		if err := tx.Create(&order).Error; err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		history := models.OrderStatusHistory{
			OrderID:   order.ID,
			ToStatus:  models.StatusPending,
			ChangedBy: actor.ID,
		}
		if err := tx.Create(&history).Error; err != nil {
			return fmt.Errorf("create order history: %w", err)
		}
		return nil
	})
	s.metrics.OrderPlaced(err)
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"order_id": order.ID,
		"shop_id":  order.ShopID,
		"user_id":  order.UserID,
		"total":    order.Total.StringFixed(2),
	}).Info("order placed")

	return s.load(s.db.WithContext(ctx), order.ID)
}

// ListOrders returns the orders visible to actor, newest first: every
// order for admins, the own shop's orders for shop owners and the own
// orders for customers.
func (s *OrderService) ListOrders(ctx context.Context, actor Actor) ([]models.Order, error) {
	q, err := s.scoped(ctx, actor)
	if err != nil {
		return nil, err
	}
	var orders []models.Order
	err = q.Preload("Items.Service").Preload("Shop").Preload("User").
		Order("created_at desc").
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// GetOrder returns one order within the actor's scope, with its history.
func (s *OrderService) GetOrder(ctx context.Context, actor Actor, orderID string) (*models.Order, error) {
	q, err := s.scoped(ctx, actor)
	if err != nil {
		if errors.Is(err, ErrShopNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	var order models.Order
	err = q.Preload("Items.Service").Preload("Shop").Preload("User").
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB { return db.Order("created_at asc") }).
		First(&order, "id = ?", orderID).Error
	if err != nil {
		return nil, notFoundOr(err, ErrOrderNotFound, "load order")
	}
	return &order, nil
}

// SetOrderStatus moves an order of the actor's shop to status. Orders of
// other shops are reported as missing. Only the status column changes.
func (s *OrderService) SetOrderStatus(ctx context.Context, actor Actor, orderID string, status models.OrderStatus) (*models.Order, error) {
	if err := actor.require(models.RoleShopOwner); err != nil {
		return nil, err
	}

	var prev models.OrderStatus
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order models.Order
		err := tx.Where("id = ? AND shop_id IN (?)", orderID,
			tx.Model(&models.Shop{}).Select("id").Where("owner_id = ?", actor.ID)).
			First(&order).Error
		if err != nil {
			return notFoundOr(err, ErrOrderNotFound, "load order")
		}

		if err := s.machine.CanTransition(order.Status, status); err != nil {
			return fmt.Errorf("%w: %s", ErrInvalidTransition, err.Error())
		}

		prev = order.Status
		res := tx.Model(&models.Order{}).
			Where("id = ? AND status = ?", order.ID, prev).
			Update("status", status)
		if res.Error != nil {
			return fmt.Errorf("update order status: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: order status changed concurrently", ErrInvalidTransition)
		}

		history := models.OrderStatusHistory{
			OrderID:    order.ID,
			FromStatus: prev,
			ToStatus:   status,
			ChangedBy:  actor.ID,
		}
		if err := tx.Create(&history).Error; err != nil {
			return fmt.Errorf("create order history: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.StatusChanged(string(status))
	s.log.WithFields(logrus.Fields{
		"order_id": orderID,
		"from":     prev,
		"to":       status,
		"actor_id": actor.ID,
	}).Info("order status changed")

	return s.load(s.db.WithContext(ctx), orderID)
}

// scoped returns an orders query restricted to what actor may see
func (s *OrderService) scoped(ctx context.Context, actor Actor) (*gorm.DB, error) {
	db := s.db.WithContext(ctx)
	switch {
	case actor.Is(models.RoleAdmin):
		return db.Model(&models.Order{}), nil
	case actor.Is(models.RoleShopOwner):
		var shop models.Shop
		if err := db.Select("id").First(&shop, "owner_id = ?", actor.ID).Error; err != nil {
			return nil, notFoundOr(err, ErrShopNotFound, "load shop")
		}
		return db.Model(&models.Order{}).Where("shop_id = ?", shop.ID), nil
	case actor.Is(models.RoleCustomer):
		return db.Model(&models.Order{}).Where("user_id = ?", actor.ID), nil
	}
	return nil, ErrUnauthorized
}

func (s *OrderService) load(db *gorm.DB, orderID string) (*models.Order, error) {
	var order models.Order
	if err := db.Preload("Items.Service").Preload("Shop").First(&order, "id = ?", orderID).Error; err != nil {
		return nil, notFoundOr(err, ErrOrderNotFound, "reload order")
	}
	return &order, nil
}

func requestedServiceIDs(items []ItemRequest) []string {
	seen := make(map[string]bool, len(items))
	ids := make([]string, 0, len(items))
	for _, it := range items {
		if it.ServiceID != "" && !seen[it.ServiceID] {
			seen[it.ServiceID] = true
			ids = append(ids, it.ServiceID)
		}
	}
	return ids
}

// notFoundOr maps gorm.ErrRecordNotFound to notFound and wraps anything
// else as an internal failure.
func notFoundOr(err, notFound error, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
