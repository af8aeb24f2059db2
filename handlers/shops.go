package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"laundry-api/core"
	"laundry-api/middleware"
	"laundry-api/models"
)

// ── Shop Management ─────────────────────────────────────────────────────────

type CreateShopRequest struct {
	Name        string `json:"name" binding:"required"`
	Address     string `json:"address" binding:"required"`
	Phone       string `json:"phone"`
	Email       string `json:"email" binding:"omitempty,email"`
	Description string `json:"description"`
}

type ApproveShopRequest struct {
	IsApproved *bool `json:"isApproved" binding:"required"`
}

// CreateShop registers the caller's shop, pending admin approval
func (h *Handler) CreateShop(c *gin.Context) {
	var req CreateShopRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	shop, err := h.shops.CreateShop(c.Request.Context(), middleware.GetActor(c), core.CreateShopInput{
		Name:        req.Name,
		Address:     req.Address,
		Phone:       req.Phone,
		Email:       req.Email,
		Description: req.Description,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, shop)
}

// ListShops returns shops visible to the caller
func (h *Handler) ListShops(c *gin.Context) {
	shops, err := h.shops.ListShops(c.Request.Context(), middleware.GetActor(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if shops == nil {
		shops = []models.Shop{}
	}
	c.JSON(http.StatusOK, shops)
}

func (h *Handler) GetShop(c *gin.Context) {
	shop, err := h.shops.GetShop(c.Request.Context(), middleware.GetActor(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, shop)
}

// ApproveShop toggles a shop's approval (admin only)
func (h *Handler) ApproveShop(c *gin.Context) {
	var req ApproveShopRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid data: isApproved must be a boolean")
		return
	}
	shop, err := h.shops.SetShopApproval(c.Request.Context(), middleware.GetActor(c), c.Param("id"), *req.IsApproved)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, shop)
}

// ── Service Management ──────────────────────────────────────────────────────

type CreateServiceRequest struct {
	Name        string           `json:"name" binding:"required"`
	Description string           `json:"description"`
	Price       *decimal.Decimal `json:"price" binding:"required"`
}

type UpdateServiceRequest struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
}

// AddService adds a priced service to the caller's shop
func (h *Handler) AddService(c *gin.Context) {
	var req CreateServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	svc, err := h.catalog.CreateService(c.Request.Context(), middleware.GetActor(c), core.CreateServiceInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       *req.Price,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, svc)
}

func (h *Handler) ListServices(c *gin.Context) {
	services, err := h.catalog.ListServices(c.Request.Context(), middleware.GetActor(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if services == nil {
		services = []models.Service{}
	}
	c.JSON(http.StatusOK, services)
}

// UpdateService edits a service; placed orders keep their prices
func (h *Handler) UpdateService(c *gin.Context) {
	var req UpdateServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	svc, err := h.catalog.UpdateService(c.Request.Context(), middleware.GetActor(c), c.Param("id"), core.UpdateServiceInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, svc)
}
