package routes

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"laundry-api/core"
	"laundry-api/handlers"
	"laundry-api/metrics"
	"laundry-api/middleware"
	"laundry-api/models"
	"laundry-api/statemachine"
	"laundry-api/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type api struct {
	t      *testing.T
	db     *gorm.DB
	engine *gin.Engine
	auth   *middleware.Auth
}

func newAPI(t *testing.T, policy statemachine.Policy) *api {
	t.Helper()
	db := testutil.NewDB(t)
	log := testutil.Logger()
	rec := metrics.New()
	auth := middleware.NewAuth("test-secret", time.Hour)

	h := handlers.New(handlers.Deps{
		DB:      db,
		Auth:    auth,
		Users:   core.NewUserService(db, log).WithHashCost(bcrypt.MinCost),
		Shops:   core.NewShopService(db, log),
		Catalog: core.NewCatalogService(db, log),
		Orders:  core.NewOrderService(db, statemachine.New(policy), rec, log),
		Log:     log,
	})
	engine := NewEngine(Options{Handler: h, Auth: auth, Metrics: rec, Log: log})
	return &api{t: t, db: db, engine: engine, auth: auth}
}

// user creates a user of role and returns a bearer token for it
func (a *api) user(role models.UserRole) (*models.User, string) {
	a.t.Helper()
	u := testutil.CreateUser(a.t, a.db, role)
	token, err := a.auth.GenerateToken(u)
	require.NoError(a.t, err)
	return u, token
}

func (a *api) do(method, path, token string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func orderBody(shopID string, items ...gin.H) gin.H {
	pickup := time.Now().Add(time.Hour).UTC().Format(time.RFC3339)
	delivery := time.Now().Add(25 * time.Hour).UTC().Format(time.RFC3339)
	list := make([]gin.H, 0, len(items))
	list = append(list, items...)
	return gin.H{"shopId": shopID, "items": list, "pickupTime": pickup, "deliveryTime": delivery}
}

func TestOrderLifecycleOverHTTP(t *testing.T) {
	a := newAPI(t, statemachine.Sequential)
	_, customerTok := a.user(models.RoleCustomer)
	owner, ownerTok := a.user(models.RoleShopOwner)
	shop := testutil.CreateShop(t, a.db, owner.ID, true)
	wash := testutil.CreateService(t, a.db, shop.ID, "Wash", "10.00")

	w := a.do(http.MethodPost, "/api/orders", customerTok, orderBody(shop.ID, gin.H{"serviceId": wash.ID, "quantity": 3}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	order := decode[models.Order](t, w)
	assert.Equal(t, models.StatusPending, order.Status)
	assert.True(t, order.Total.Equal(decimal.NewFromInt(30)), "total=%s", order.Total)
	require.Len(t, order.Items, 1)
	assert.True(t, order.Items[0].Price.Equal(decimal.NewFromInt(10)))

	w = a.do(http.MethodPatch, "/api/shops/services/"+wash.ID, ownerTok, gin.H{"price": "12.00"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = a.do(http.MethodPatch, "/api/orders/"+order.ID, ownerTok, gin.H{"status": "ACCEPTED"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[models.Order](t, w)
	assert.Equal(t, models.StatusAccepted, updated.Status)
	assert.True(t, updated.Total.Equal(decimal.NewFromInt(30)), "total=%s", updated.Total)

	w = a.do(http.MethodGet, "/api/orders", customerTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	orders := decode[[]models.Order](t, w)
	require.Len(t, orders, 1)
	assert.Equal(t, models.StatusAccepted, orders[0].Status)

	w = a.do(http.MethodGet, "/api/orders/"+order.ID, customerTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	detail := decode[models.Order](t, w)
	assert.Len(t, detail.StatusHistory, 2)
}

func TestPlaceOrder_Failures(t *testing.T) {
	a := newAPI(t, statemachine.Sequential)
	_, customerTok := a.user(models.RoleCustomer)
	owner, ownerTok := a.user(models.RoleShopOwner)
	shop := testutil.CreateShop(t, a.db, owner.ID, true)
	wash := testutil.CreateService(t, a.db, shop.ID, "Wash", "10")

	otherOwner, _ := a.user(models.RoleShopOwner)
	otherShop := testutil.CreateShop(t, a.db, otherOwner.ID, true)
	foreign := testutil.CreateService(t, a.db, otherShop.ID, "Dry", "8")

	cases := []struct {
		name   string
		token  string
		body   any
		status int
	}{
		{"no token", "", orderBody(shop.ID, gin.H{"serviceId": wash.ID, "quantity": 1}), http.StatusUnauthorized},
		{"shop owner", ownerTok, orderBody(shop.ID, gin.H{"serviceId": wash.ID, "quantity": 1}), http.StatusUnauthorized},
		{"missing times", customerTok, gin.H{"shopId": shop.ID, "items": []gin.H{{"serviceId": wash.ID, "quantity": 1}}}, http.StatusBadRequest},
		{"malformed json", customerTok, `{"shopId":`, http.StatusBadRequest},
		{"empty items", customerTok, orderBody(shop.ID), http.StatusBadRequest},
		{"zero quantity", customerTok, orderBody(shop.ID, gin.H{"serviceId": wash.ID, "quantity": 0}), http.StatusBadRequest},
		{"unknown shop", customerTok, orderBody("missing", gin.H{"serviceId": wash.ID, "quantity": 1}), http.StatusNotFound},
		{"foreign service", customerTok, orderBody(shop.ID, gin.H{"serviceId": foreign.ID, "quantity": 1}), http.StatusNotFound},
		{"total too large", customerTok, orderBody(shop.ID, gin.H{"serviceId": wash.ID, "quantity": 100000000}), http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := a.do(http.MethodPost, "/api/orders", tc.token, tc.body)
			assert.Equal(t, tc.status, w.Code, w.Body.String())
		})
	}

	var n int64
	require.NoError(t, a.db.Model(&models.Order{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestClientPriceIgnored(t *testing.T) {
	a := newAPI(t, statemachine.Sequential)
	_, customerTok := a.user(models.RoleCustomer)
	owner, _ := a.user(models.RoleShopOwner)
	shop := testutil.CreateShop(t, a.db, owner.ID, true)
	wash := testutil.CreateService(t, a.db, shop.ID, "Wash", "10")

	w := a.do(http.MethodPost, "/api/orders", customerTok,
		orderBody(shop.ID, gin.H{"serviceId": wash.ID, "quantity": 2, "price": "0.01"}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	order := decode[models.Order](t, w)
	assert.True(t, order.Total.Equal(decimal.NewFromInt(20)), "total=%s", order.Total)
}

func TestUpdateOrderStatus_Failures(t *testing.T) {
	a := newAPI(t, statemachine.Sequential)
	_, customerTok := a.user(models.RoleCustomer)
	owner, ownerTok := a.user(models.RoleShopOwner)
	shop := testutil.CreateShop(t, a.db, owner.ID, true)
	wash := testutil.CreateService(t, a.db, shop.ID, "Wash", "10")
	otherOwner, otherTok := a.user(models.RoleShopOwner)
	testutil.CreateShop(t, a.db, otherOwner.ID, true)

	w := a.do(http.MethodPost, "/api/orders", customerTok, orderBody(shop.ID, gin.H{"serviceId": wash.ID, "quantity": 1}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	order := decode[models.Order](t, w)
	path := "/api/orders/" + order.ID

	assert.Equal(t, http.StatusUnauthorized, a.do(http.MethodPatch, path, customerTok, gin.H{"status": "ACCEPTED"}).Code)
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodPatch, path, otherTok, gin.H{"status": "ACCEPTED"}).Code)
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodPatch, path, ownerTok, gin.H{"status": "SHIPPED"}).Code)
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodPatch, path, ownerTok, gin.H{"status": "DELIVERED"}).Code)
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodPatch, path, ownerTok, gin.H{}).Code)
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodPatch, "/api/orders/missing", ownerTok, gin.H{"status": "ACCEPTED"}).Code)

	var stored models.Order
	require.NoError(t, a.db.First(&stored, "id = ?", order.ID).Error)
	assert.Equal(t, models.StatusPending, stored.Status)
}

func TestPermissivePolicyAllowsJump(t *testing.T) {
	a := newAPI(t, statemachine.Permissive)
	_, customerTok := a.user(models.RoleCustomer)
	owner, ownerTok := a.user(models.RoleShopOwner)
	shop := testutil.CreateShop(t, a.db, owner.ID, true)
	wash := testutil.CreateService(t, a.db, shop.ID, "Wash", "10")

	w := a.do(http.MethodPost, "/api/orders", customerTok, orderBody(shop.ID, gin.H{"serviceId": wash.ID, "quantity": 1}))
	require.Equal(t, http.StatusOK, w.Code)
	order := decode[models.Order](t, w)

	w = a.do(http.MethodPatch, "/api/orders/"+order.ID, ownerTok, gin.H{"status": "DELIVERED"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, models.StatusDelivered, decode[models.Order](t, w).Status)

	w = a.do(http.MethodGet, "/api/state-machine", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"policy":"permissive"`)
}

func TestListOrders_OwnerWithoutShop(t *testing.T) {
	a := newAPI(t, statemachine.Sequential)
	_, ownerTok := a.user(models.RoleShopOwner)
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodGet, "/api/orders", ownerTok, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, a.do(http.MethodGet, "/api/orders", "", nil).Code)
}

func TestShopEndpoints(t *testing.T) {
	a := newAPI(t, statemachine.Sequential)
	_, ownerTok := a.user(models.RoleShopOwner)
	_, adminTok := a.user(models.RoleAdmin)
	_, customerTok := a.user(models.RoleCustomer)

	// services need a shop first
	w := a.do(http.MethodPost, "/api/shops/services", ownerTok, gin.H{"name": "Wash", "price": 10})
	assert.Equal(t, http.StatusNotFound, w.Code, w.Body.String())

	w = a.do(http.MethodPost, "/api/shops", ownerTok, gin.H{"name": "Bubbles", "address": "1 Main St", "email": "b@example.com"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	shop := decode[models.Shop](t, w)
	assert.False(t, shop.IsApproved)

	w = a.do(http.MethodPost, "/api/shops", ownerTok, gin.H{"name": "Again", "address": "2 Main St"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Equal(t, http.StatusUnauthorized, a.do(http.MethodPost, "/api/shops", customerTok, gin.H{"name": "x", "address": "y"}).Code)

	w = a.do(http.MethodPost, "/api/shops/services", ownerTok, gin.H{"name": "Wash", "description": "Basic washing", "price": 10})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodPost, "/api/shops/services", ownerTok, gin.H{"name": "Bad", "price": -1}).Code)
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodPost, "/api/shops/services", ownerTok, gin.H{"name": "NoPrice"}).Code)
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodPost, "/api/shops/services", ownerTok, gin.H{"name": "SubCent", "price": "10.005"}).Code)

	w = a.do(http.MethodGet, "/api/shops/services", ownerTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.Service](t, w), 1)

	// customers only see approved shops
	w = a.do(http.MethodGet, "/api/shops", customerTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[[]models.Shop](t, w))
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodGet, "/api/shops/"+shop.ID, customerTok, nil).Code)

	path := "/api/shops/" + shop.ID
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodPatch, path, adminTok, gin.H{"isApproved": "yes"}).Code)
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodPatch, path, adminTok, gin.H{}).Code)
	assert.Equal(t, http.StatusUnauthorized, a.do(http.MethodPatch, path, ownerTok, gin.H{"isApproved": true}).Code)
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodPatch, "/api/shops/missing", adminTok, gin.H{"isApproved": true}).Code)

	for i := 0; i < 2; i++ {
		w = a.do(http.MethodPatch, path, adminTok, gin.H{"isApproved": true})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.True(t, decode[models.Shop](t, w).IsApproved)
	}

	w = a.do(http.MethodGet, "/api/shops", customerTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	shops := decode[[]models.Shop](t, w)
	require.Len(t, shops, 1)
	assert.Len(t, shops[0].Services, 1)

	w = a.do(http.MethodGet, "/api/shops/"+shop.ID, customerTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestAuthEndpoints(t *testing.T) {
	a := newAPI(t, statemachine.Sequential)

	w := a.do(http.MethodPost, "/api/auth/register", "", gin.H{
		"name": "Carol", "email": "carol@example.com", "password": "secret123", "role": "CUSTOMER",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NotContains(t, w.Body.String(), "secret123")

	w = a.do(http.MethodPost, "/api/auth/register", "", gin.H{
		"name": "Carol", "email": "carol@example.com", "password": "secret123", "role": "CUSTOMER",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = a.do(http.MethodPost, "/api/auth/register", "", gin.H{
		"name": "Mallory", "email": "m@example.com", "password": "secret123", "role": "ADMIN",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Equal(t, http.StatusUnauthorized, a.do(http.MethodPost, "/api/auth/login", "", gin.H{
		"email": "carol@example.com", "password": "wrong",
	}).Code)

	w = a.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": "carol@example.com", "password": "secret123"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	login := decode[struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}](t, w)
	require.NotEmpty(t, login.Token)
	assert.Equal(t, models.RoleCustomer, login.User.Role)

	w = a.do(http.MethodGet, "/api/profile", login.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "carol@example.com", decode[models.User](t, w).Email)
}

func TestAdminListUsers(t *testing.T) {
	a := newAPI(t, statemachine.Sequential)
	_, adminTok := a.user(models.RoleAdmin)
	_, customerTok := a.user(models.RoleCustomer)
	a.user(models.RoleShopOwner)

	w := a.do(http.MethodGet, "/api/users", adminTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":3`)

	w = a.do(http.MethodGet, "/api/users?role=SHOP_OWNER", adminTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":1`)

	assert.Equal(t, http.StatusUnauthorized, a.do(http.MethodGet, "/api/users", customerTok, nil).Code)
}

func TestInternalErrorsNotLeaked(t *testing.T) {
	a := newAPI(t, statemachine.Sequential)
	_, adminTok := a.user(models.RoleAdmin)

	sqlDB, err := a.db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	w := a.do(http.MethodGet, "/api/shops", adminTok, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Internal error"}`, w.Body.String())

	assert.Equal(t, http.StatusServiceUnavailable, a.do(http.MethodGet, "/health", "", nil).Code)
}

func TestHealthAndMetrics(t *testing.T) {
	a := newAPI(t, statemachine.Sequential)

	w := a.do(http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"database":"ok"`)

	w = a.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "laundry_http_requests_total")
}
