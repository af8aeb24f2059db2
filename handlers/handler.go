package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"laundry-api/core"
	"laundry-api/middleware"
)

// Handler serves the HTTP API on top of the core services
type Handler struct {
	db      *gorm.DB
	auth    *middleware.Auth
	users   *core.UserService
	shops   *core.ShopService
	catalog *core.CatalogService
	orders  *core.OrderService
	log     logrus.FieldLogger
}

type Deps struct {
	DB      *gorm.DB
	Auth    *middleware.Auth
	Users   *core.UserService
	Shops   *core.ShopService
	Catalog *core.CatalogService
	Orders  *core.OrderService
	Log     logrus.FieldLogger
}

func New(d Deps) *Handler {
	return &Handler{
		db:      d.DB,
		auth:    d.Auth,
		users:   d.Users,
		shops:   d.Shops,
		catalog: d.Catalog,
		orders:  d.Orders,
		log:     d.Log,
	}
}

// respondError maps core errors onto status codes. Unexpected errors are
// logged and answered with a generic message.
func (h *Handler) respondError(c *gin.Context, err error) {
	var status int
	switch {
	case errors.Is(err, core.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, core.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, core.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, core.ErrConflict):
		status = http.StatusConflict
	default:
		h.log.WithError(err).WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
		}).Error("internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}
