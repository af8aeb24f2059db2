package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"laundry-api/models"
)

// CatalogService manages the services a shop offers
type CatalogService struct {
	db  *gorm.DB
	log logrus.FieldLogger
}

func NewCatalogService(db *gorm.DB, log logrus.FieldLogger) *CatalogService {
	return &CatalogService{db: db, log: log}
}

type CreateServiceInput struct {
	Name        string
	Description string
	Price       decimal.Decimal
}

// UpdateServiceInput carries optional changes; nil fields are untouched
type UpdateServiceInput struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
}

func (s *CatalogService) CreateService(ctx context.Context, actor Actor, in CreateServiceInput) (*models.Service, error) {
	db := s.db.WithContext(ctx)
	shop, err := ownedShop(db, actor)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, invalidInput("name is required")
	}
	if !validPrice(in.Price) {
		return nil, ErrInvalidPrice
	}

	svc := models.Service{
		ShopID:      shop.ID,
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
	}
	if err := db.Create(&svc).Error; err != nil {
		return nil, fmt.Errorf("create service: %w", err)
	}
	s.log.WithFields(logrus.Fields{"service_id": svc.ID, "shop_id": shop.ID}).Info("service added")
	return &svc, nil
}

func (s *CatalogService) ListServices(ctx context.Context, actor Actor) ([]models.Service, error) {
	db := s.db.WithContext(ctx)
	shop, err := ownedShop(db, actor)
	if err != nil {
		return nil, err
	}
	var services []models.Service
	if err := db.Where("shop_id = ?", shop.ID).Order("created_at asc").Find(&services).Error; err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	return services, nil
}

// UpdateService edits a service of the actor's shop. Existing orders keep
// the prices snapshotted when they were placed.
func (s *CatalogService) UpdateService(ctx context.Context, actor Actor, serviceID string, in UpdateServiceInput) (*models.Service, error) {
	db := s.db.WithContext(ctx)
	shop, err := ownedShop(db, actor)
	if err != nil {
		return nil, err
	}

	var svc models.Service
	if err := db.First(&svc, "id = ? AND shop_id = ?", serviceID, shop.ID).Error; err != nil {
		return nil, notFoundOr(err, ErrServiceNotFound, "load service")
	}

	updates := map[string]any{}
	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			return nil, invalidInput("name must not be empty")
		}
		updates["name"] = *in.Name
	}
	if in.Description != nil {
		updates["description"] = *in.Description
	}
	if in.Price != nil {
		if !validPrice(*in.Price) {
			return nil, ErrInvalidPrice
		}
		updates["price"] = *in.Price
	}
	if len(updates) == 0 {
		return &svc, nil
	}
	if err := db.Model(&svc).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("update service: %w", err)
	}
	if err := db.First(&svc, "id = ?", svc.ID).Error; err != nil {
		return nil, fmt.Errorf("reload service: %w", err)
	}
	return &svc, nil
}
