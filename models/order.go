package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderStatus represents all possible states of a laundry order
type OrderStatus string

const (
	StatusPending    OrderStatus = "PENDING"
	StatusAccepted   OrderStatus = "ACCEPTED"
	StatusInProgress OrderStatus = "IN_PROGRESS"
	StatusReady      OrderStatus = "READY"
	StatusDelivered  OrderStatus = "DELIVERED"
	StatusCancelled  OrderStatus = "CANCELLED"
)

// AllStatuses lists every recognized status in lifecycle order
var AllStatuses = []OrderStatus{
	StatusPending,
	StatusAccepted,
	StatusInProgress,
	StatusReady,
	StatusDelivered,
	StatusCancelled,
}

func (s OrderStatus) Valid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition may leave s
func (s OrderStatus) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

type Order struct {
	ID            string               `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID        string               `json:"userId" gorm:"type:varchar(36);index;not null"`
	User          *User                `json:"user,omitempty" gorm:"foreignKey:UserID"`
	ShopID        string               `json:"shopId" gorm:"type:varchar(36);index;not null"`
	Shop          *Shop                `json:"shop,omitempty" gorm:"foreignKey:ShopID"`
	Status        OrderStatus          `json:"status" gorm:"type:varchar(20);not null;default:'PENDING'"`
	Total         decimal.Decimal      `json:"total" gorm:"type:decimal(10,2);not null"`
	PickupTime    time.Time            `json:"pickupTime" gorm:"not null"`
	DeliveryTime  time.Time            `json:"deliveryTime" gorm:"not null"`
	Items         []OrderItem          `json:"items,omitempty" gorm:"foreignKey:OrderID"`
	StatusHistory []OrderStatusHistory `json:"statusHistory,omitempty" gorm:"foreignKey:OrderID"`
	CreatedAt     time.Time            `json:"createdAt"`
	UpdatedAt     time.Time            `json:"updatedAt"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	return nil
}

type OrderItem struct {
	ID        string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	OrderID   string          `json:"orderId" gorm:"type:varchar(36);index;not null"`
	ServiceID string          `json:"serviceId" gorm:"type:varchar(36);not null"`
	Service   *Service        `json:"service,omitempty" gorm:"foreignKey:ServiceID"`
	Quantity  int             `json:"quantity" gorm:"not null"`
	Price     decimal.Decimal `json:"price" gorm:"type:decimal(10,2);not null"` // snapshot price at time of order
}

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}

// OrderStatusHistory records every status change of an order
type OrderStatusHistory struct {
	ID         string      `json:"id" gorm:"primaryKey;type:varchar(36)"`
	OrderID    string      `json:"orderId" gorm:"type:varchar(36);index;not null"`
	FromStatus OrderStatus `json:"fromStatus" gorm:"type:varchar(20)"`
	ToStatus   OrderStatus `json:"toStatus" gorm:"type:varchar(20);not null"`
	ChangedBy  string      `json:"changedBy" gorm:"type:varchar(36)"`
	CreatedAt  time.Time   `json:"createdAt"`
}

func (h *OrderStatusHistory) BeforeCreate(*gorm.DB) error {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	return nil
}
