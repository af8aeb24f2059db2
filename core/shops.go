package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"laundry-api/models"
)

type ShopService struct {
	db  *gorm.DB
	log logrus.FieldLogger
}

func NewShopService(db *gorm.DB, log logrus.FieldLogger) *ShopService {
	return &ShopService{db: db, log: log}
}

type CreateShopInput struct {
	Name        string
	Address     string
	Phone       string
	Email       string
	Description string
}

// CreateShop registers the actor's shop. Shops start unapproved and an
// owner may hold at most one.
func (s *ShopService) CreateShop(ctx context.Context, actor Actor, in CreateShopInput) (*models.Shop, error) {
	if err := actor.require(models.RoleShopOwner); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Address) == "" {
		return nil, invalidInput("name and address are required")
	}

	shop := models.Shop{
		OwnerID:     actor.ID,
		Name:        in.Name,
		Address:     in.Address,
		Phone:       in.Phone,
		Email:       in.Email,
		Description: in.Description,
		IsApproved:  false,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Shop{}).Where("owner_id = ?", actor.ID).Count(&count).Error; err != nil {
			return fmt.Errorf("check existing shop: %w", err)
		}
		if count > 0 {
			return ErrDuplicateShop
		}
		if err := tx.Create(&shop).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicateShop
			}
			return fmt.Errorf("create shop: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"shop_id": shop.ID, "owner_id": actor.ID}).Info("shop registered")
	return s.load(s.db.WithContext(ctx), shop.ID)
}

// ListShops returns every shop for admins, the own shop for owners and
// approved shops for customers, newest first.
func (s *ShopService) ListShops(ctx context.Context, actor Actor) ([]models.Shop, error) {
	q, err := s.scoped(ctx, actor)
	if err != nil {
		return nil, err
	}
	var shops []models.Shop
	err = q.Preload("Owner").Preload("Services").Order("created_at desc").Find(&shops).Error
	if err != nil {
		return nil, fmt.Errorf("list shops: %w", err)
	}
	return shops, nil
}

// GetShop returns one shop and its services if the actor may see it
func (s *ShopService) GetShop(ctx context.Context, actor Actor, shopID string) (*models.Shop, error) {
	q, err := s.scoped(ctx, actor)
	if err != nil {
		return nil, err
	}
	var shop models.Shop
	if err := q.Preload("Owner").Preload("Services").First(&shop, "id = ?", shopID).Error; err != nil {
		return nil, notFoundOr(err, ErrShopNotFound, "load shop")
	}
	return &shop, nil
}

// SetShopApproval sets isApproved. Setting the current value again is a
// successful no-op.
func (s *ShopService) SetShopApproval(ctx context.Context, actor Actor, shopID string, approved bool) (*models.Shop, error) {
	if err := actor.require(models.RoleAdmin); err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)

	var shop models.Shop
	if err := db.First(&shop, "id = ?", shopID).Error; err != nil {
		return nil, notFoundOr(err, ErrShopNotFound, "load shop")
	}
	if shop.IsApproved != approved {
		if err := db.Model(&shop).Update("is_approved", approved).Error; err != nil {
			return nil, fmt.Errorf("update shop approval: %w", err)
		}
		s.log.WithFields(logrus.Fields{
			"shop_id":  shop.ID,
			"approved": approved,
			"admin_id": actor.ID,
		}).Info("shop approval changed")
	}
	return s.load(db, shop.ID)
}

func (s *ShopService) scoped(ctx context.Context, actor Actor) (*gorm.DB, error) {
	db := s.db.WithContext(ctx).Model(&models.Shop{})
	switch {
	case actor.Is(models.RoleAdmin):
		return db, nil
	case actor.Is(models.RoleShopOwner):
		return db.Where("owner_id = ?", actor.ID), nil
	case actor.Is(models.RoleCustomer):
		return db.Where("is_approved = ?", true), nil
	}
	return nil, ErrUnauthorized
}

func (s *ShopService) load(db *gorm.DB, shopID string) (*models.Shop, error) {
	var shop models.Shop
	if err := db.Preload("Owner").Preload("Services").First(&shop, "id = ?", shopID).Error; err != nil {
		return nil, notFoundOr(err, ErrShopNotFound, "reload shop")
	}
	return &shop, nil
}

// ownedShop returns the shop owned by a shop owner actor
func ownedShop(db *gorm.DB, actor Actor) (*models.Shop, error) {
	if err := actor.require(models.RoleShopOwner); err != nil {
		return nil, err
	}
	var shop models.Shop
	if err := db.First(&shop, "owner_id = ?", actor.ID).Error; err != nil {
		return nil, notFoundOr(err, ErrShopNotFound, "load shop")
	}
	return &shop, nil
}
