package core

import (
	"github.com/shopspring/decimal"

	"laundry-api/models"
)

// MaxAmount is the largest value a decimal(10,2) money column holds
var MaxAmount = decimal.RequireFromString("99999999.99")

// validPrice reports whether p can be stored as a catalog price unchanged
func validPrice(p decimal.Decimal) bool {
	return !p.IsNegative() && p.Equal(p.Round(2)) && p.LessThanOrEqual(MaxAmount)
}

// ItemRequest is one requested line of an order. It carries
// no price: prices always come from the shop's catalog.
type ItemRequest struct {
	ServiceID string
	Quantity  int
}

// PriceItems validates items against a shop's services and returns the
// order lines with snapshotted prices and their exact total.
//
// The first violation wins: an empty list or a non-positive quantity
// yields ErrInvalidItems, then items are checked in request order and the
// first service absent from catalog yields ErrServiceNotFound. A running
// total above MaxAmount yields ErrOrderTooLarge.
func PriceItems(catalog []models.Service, items []ItemRequest) ([]models.OrderItem, decimal.Decimal, error) {
	if len(items) == 0 {
		return nil, decimal.Zero, ErrInvalidItems
	}
	for _, it := range items {
		if it.Quantity < 1 {
			return nil, decimal.Zero, ErrInvalidItems
		}
	}

	byID := make(map[string]models.Service, len(catalog))
	for _, s := range catalog {
		byID[s.ID] = s
	}

	total := decimal.Zero
	lines := make([]models.OrderItem, 0, len(items))
	for _, it := range items {
		svc, ok := byID[it.ServiceID]
		if !ok {
			return nil, decimal.Zero, serviceNotFound(it.ServiceID)
		}
		total = total.Add(svc.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
		if total.GreaterThan(MaxAmount) {
			return nil, decimal.Zero, ErrOrderTooLarge
		}
		lines = append(lines, models.OrderItem{
			ServiceID: svc.ID,
			Quantity:  it.Quantity,
			Price:     svc.Price,
		})
	}
	return lines, total, nil
}
