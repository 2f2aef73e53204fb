package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockroom/m/domain"
	"stockroom/m/internal/cache"
	"stockroom/m/internal/inventory"
	"stockroom/m/internal/store"
)

const testSecret = "test-secret"

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	st := store.NewMemory()
	now := time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)
	svc := inventory.NewService(st, inventory.Options{
		Location: time.UTC,
		Cache:    cache.NewMemory(time.Minute),
		Clock:    func() time.Time { return now },
	})
	srv := httptest.NewServer(New(svc, st, testSecret, nil).Router())
	t.Cleanup(srv.Close)
	return srv
}

type call struct {
	method string
	path   string
	token  string
	body   any
	header map[string]string
}

func do(t *testing.T, srv *httptest.Server, c call, out any) int {
	t.Helper()
	var body io.Reader
	switch b := c.body.(type) {
	case nil:
	case string:
		body = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(c.method, srv.URL+c.path, body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for k, v := range c.header {
		req.Header.Set(k, v)
	}

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func registerUser(t *testing.T, srv *httptest.Server, email, role string) string {
	t.Helper()
	var resp authResponse
	status := do(t, srv, call{method: http.MethodPost, path: "/auth/register", body: map[string]string{
		"username": "user",
		"email":    email,
		"password": "secret123",
		"role":     role,
	}}, &resp)
	require.Equal(t, http.StatusCreated, status)
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func camisaRegistration() map[string]any {
	return map[string]any{
		"type":             "Camisa",
		"size":             "M",
		"quantity":         15,
		"purchase_price":   12.5,
		"sale_price":       25.99,
		"supplier_name":    "Textiles Norte",
		"supplier_address": "Av. Central 100",
		"supplier_phone":   "555-0101",
	}
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	var body map[string]string
	status := do(t, srv, call{method: http.MethodGet, path: "/health"}, &body)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
}

func TestAuth(t *testing.T) {
	srv := newTestServer(t)
	token := registerUser(t, srv, "Owner@Shop.com", domain.RoleOwner)

	var errBody map[string]string
	status := do(t, srv, call{method: http.MethodPost, path: "/auth/register", body: map[string]string{
		"username": "other", "email": "owner@shop.com", "password": "x", "role": domain.RoleEmployee,
	}}, &errBody)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "email already exists", errBody["error"])

	status = do(t, srv, call{method: http.MethodPost, path: "/auth/register", body: map[string]string{
		"username": "x", "email": "x@shop.com", "password": "x", "role": "admin",
	}}, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status = do(t, srv, call{method: http.MethodPost, path: "/auth/login", body: loginRequest{Email: "owner@shop.com", Password: "wrong"}}, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status = do(t, srv, call{method: http.MethodPost, path: "/auth/login", body: loginRequest{Email: "nobody@shop.com", Password: "x"}}, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	var login authResponse
	status = do(t, srv, call{method: http.MethodPost, path: "/auth/login", body: loginRequest{Email: "OWNER@shop.com", Password: "secret123"}}, &login)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, domain.RoleOwner, login.User.Role)
	assert.Empty(t, login.User.Password)

	status = do(t, srv, call{method: http.MethodPost, path: "/auth/reset-password", token: token, body: map[string]string{"new_password": "n3w"}}, nil)
	assert.Equal(t, http.StatusOK, status)

	status = do(t, srv, call{method: http.MethodPost, path: "/auth/login", body: loginRequest{Email: "owner@shop.com", Password: "n3w"}}, nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	srv := newTestServer(t)

	status := do(t, srv, call{method: http.MethodGet, path: "/garments"}, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status = do(t, srv, call{method: http.MethodGet, path: "/garments", token: "not-a-jwt"}, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestGarmentAndSaleFlow(t *testing.T) {
	srv := newTestServer(t)
	token := registerUser(t, srv, "owner@shop.com", domain.RoleOwner)

	var reg inventory.Registration
	status := do(t, srv, call{method: http.MethodPost, path: "/garments", token: token, body: camisaRegistration()}, &reg)
	require.Equal(t, http.StatusCreated, status)
	assert.True(t, reg.SupplierCreated)
	assert.Equal(t, 15, reg.Garment.Stock)
	garmentID := reg.Garment.ID

	var garments []domain.Garment
	status = do(t, srv, call{method: http.MethodGet, path: "/garments?type=Camisa&q=m", token: token}, &garments)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, garments, 1)

	var sale domain.Sale
	status = do(t, srv, call{method: http.MethodPost, path: "/sales", token: token, body: map[string]any{
		"items": []map[string]any{{"garment_id": garmentID, "quantity": 2, "price": 25.99}},
	}}, &sale)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "51.98", sale.Total.StringFixed(2))
	assert.Equal(t, "2026-03-02", sale.Date)

	var garment domain.Garment
	status = do(t, srv, call{method: http.MethodGet, path: "/garments/1", token: token}, &garment)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 13, garment.Stock)

	var errBody map[string]string
	status = do(t, srv, call{method: http.MethodPost, path: "/sales", token: token, body: map[string]any{
		"items": []map[string]any{{"garment_id": garmentID, "quantity": 20, "price": 25.99}},
	}}, &errBody)
	assert.Equal(t, http.StatusConflict, status)
	assert.Contains(t, errBody["error"], "insufficient stock")

	var detail domain.SaleDetail
	status = do(t, srv, call{method: http.MethodGet, path: "/sales/1", token: token}, &detail)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, detail.Lines, 1)
	assert.Equal(t, "Camisa", detail.Lines[0].Type)
	assert.Equal(t, "51.98", detail.Lines[0].Subtotal.StringFixed(2))

	var sales []domain.Sale
	status = do(t, srv, call{method: http.MethodGet, path: "/sales?from=2026-03-01&to=2026-03-02", token: token}, &sales)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, sales, 1)

	var stats domain.DashboardStats
	status = do(t, srv, call{method: http.MethodGet, path: "/reports/dashboard", token: token}, &stats)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 13, stats.TotalStock)
	assert.Equal(t, 1, stats.SalesToday)
	assert.Equal(t, "51.98", stats.IncomeToday.StringFixed(2))
	assert.Equal(t, 1, stats.SupplierCount)
	assert.Len(t, stats.SalesByDay, 7)

	var daily domain.DailyReport
	status = do(t, srv, call{method: http.MethodGet, path: "/reports/sales/daily?date=2026-03-02", token: token}, &daily)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, daily.SalesCount)

	var series []domain.DayTotal
	status = do(t, srv, call{method: http.MethodGet, path: "/reports/sales/last-7-days", token: token}, &series)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, series, 7)
	assert.Equal(t, "2026-03-02", series[6].Date)

	var byType []domain.TypeStock
	status = do(t, srv, call{method: http.MethodGet, path: "/reports/stock-by-type", token: token}, &byType)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []domain.TypeStock{{Type: "Camisa", Stock: 13}}, byType)

	var types []string
	status = do(t, srv, call{method: http.MethodGet, path: "/garments/types", token: token}, &types)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, types, "Pantalón")
}

func TestCreateSale_IdempotencyKeyAndDefaultPrice(t *testing.T) {
	srv := newTestServer(t)
	token := registerUser(t, srv, "emp@shop.com", domain.RoleEmployee)

	status := do(t, srv, call{method: http.MethodPost, path: "/garments", token: token, body: camisaRegistration()}, nil)
	require.Equal(t, http.StatusCreated, status)

	sale := call{
		method: http.MethodPost,
		path:   "/sales",
		token:  token,
		body:   map[string]any{"items": []map[string]any{{"garment_id": 1, "quantity": 1}}},
		header: map[string]string{IdempotencyHeader: "abc-123"},
	}
	var created domain.Sale
	status = do(t, srv, sale, &created)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "25.99", created.Total.StringFixed(2), "price defaults to the garment's sale price")

	var errBody map[string]string
	status = do(t, srv, sale, &errBody)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "duplicate request", errBody["error"])

	var garment domain.Garment
	do(t, srv, call{method: http.MethodGet, path: "/garments/1", token: token}, &garment)
	assert.Equal(t, 14, garment.Stock)
}

func TestDeleteGarment_OwnerOnly(t *testing.T) {
	srv := newTestServer(t)
	owner := registerUser(t, srv, "owner@shop.com", domain.RoleOwner)
	employee := registerUser(t, srv, "emp@shop.com", domain.RoleEmployee)

	do(t, srv, call{method: http.MethodPost, path: "/garments", token: owner, body: camisaRegistration()}, nil)
	do(t, srv, call{method: http.MethodPost, path: "/sales", token: employee, body: map[string]any{
		"items": []map[string]any{{"garment_id": 1, "quantity": 1, "price": 25.99}},
	}}, nil)

	status := do(t, srv, call{method: http.MethodDelete, path: "/garments/1", token: employee}, nil)
	assert.Equal(t, http.StatusForbidden, status)

	var body map[string]any
	status = do(t, srv, call{method: http.MethodDelete, path: "/garments/1", token: owner}, &body)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, body["removed_sales"])

	status = do(t, srv, call{method: http.MethodDelete, path: "/garments/1", token: owner}, nil)
	assert.Equal(t, http.StatusNotFound, status)

	var sales []domain.Sale
	do(t, srv, call{method: http.MethodGet, path: "/sales", token: owner}, &sales)
	assert.Empty(t, sales)
}

func TestRegisterOwner_OnlyFirstAccountOrOwner(t *testing.T) {
	srv := newTestServer(t)
	owner := registerUser(t, srv, "owner@shop.com", domain.RoleOwner)
	employee := registerUser(t, srv, "emp@shop.com", domain.RoleEmployee)
	do(t, srv, call{method: http.MethodPost, path: "/garments", token: owner, body: camisaRegistration()}, nil)

	ownerBody := func(email string) map[string]string {
		return map[string]string{"username": "x", "email": email, "password": "secret123", "role": domain.RoleOwner}
	}

	var errBody map[string]string
	status := do(t, srv, call{method: http.MethodPost, path: "/auth/register", body: ownerBody("stranger@shop.com")}, &errBody)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "only an owner can register another owner", errBody["error"])

	status = do(t, srv, call{method: http.MethodPost, path: "/auth/register", token: employee, body: ownerBody("stranger@shop.com")}, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status = do(t, srv, call{method: http.MethodPost, path: "/auth/login", body: loginRequest{Email: "stranger@shop.com", Password: "secret123"}}, nil)
	assert.Equal(t, http.StatusUnauthorized, status, "refused owner was not created")

	var partner authResponse
	status = do(t, srv, call{method: http.MethodPost, path: "/auth/register", token: owner, body: ownerBody("partner@shop.com")}, &partner)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, domain.RoleOwner, partner.User.Role)

	status = do(t, srv, call{method: http.MethodDelete, path: "/garments/1", token: partner.Token}, nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestSupplierEndpoints(t *testing.T) {
	srv := newTestServer(t)
	token := registerUser(t, srv, "owner@shop.com", domain.RoleOwner)

	var supplier domain.Supplier
	status := do(t, srv, call{method: http.MethodPost, path: "/suppliers", token: token, body: map[string]string{
		"name": "Moda Sur", "address": "Calle 2", "phone": "222",
	}}, &supplier)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, int64(1), supplier.ID)

	status = do(t, srv, call{method: http.MethodPost, path: "/suppliers", token: token, body: map[string]string{"name": "moda sur"}}, nil)
	assert.Equal(t, http.StatusConflict, status)

	status = do(t, srv, call{method: http.MethodPut, path: "/suppliers/1", token: token, body: map[string]string{
		"name": "Moda Sur SRL", "phone": "333",
	}}, &supplier)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "333", supplier.Phone)

	var summaries []domain.SupplierSummary
	status = do(t, srv, call{method: http.MethodGet, path: "/suppliers", token: token}, &summaries)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, summaries, 1)
	assert.Equal(t, "Moda Sur SRL", summaries[0].Name)
	assert.Zero(t, summaries[0].GarmentCount)

	status = do(t, srv, call{method: http.MethodGet, path: "/suppliers/9", token: token}, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status = do(t, srv, call{method: http.MethodPut, path: "/suppliers/9", token: token, body: map[string]string{"name": "X"}}, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestBadRequests(t *testing.T) {
	srv := newTestServer(t)
	token := registerUser(t, srv, "owner@shop.com", domain.RoleOwner)

	bad := camisaRegistration()
	bad["quantity"] = 0
	status := do(t, srv, call{method: http.MethodPost, path: "/garments", token: token, body: bad}, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	unknown := camisaRegistration()
	unknown["color"] = "red"
	status = do(t, srv, call{method: http.MethodPost, path: "/garments", token: token, body: unknown}, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status = do(t, srv, call{method: http.MethodPost, path: "/sales", token: token, body: `{"items": []}`}, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status = do(t, srv, call{method: http.MethodPost, path: "/sales", token: token, body: map[string]any{
		"items": []map[string]any{{"garment_id": 7, "quantity": 1, "price": 1}},
	}}, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status = do(t, srv, call{method: http.MethodGet, path: "/garments/abc", token: token}, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status = do(t, srv, call{method: http.MethodGet, path: "/garments/99", token: token}, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status = do(t, srv, call{method: http.MethodGet, path: "/garments/low-stock?threshold=abc", token: token}, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status = do(t, srv, call{method: http.MethodGet, path: "/sales?from=03-01-2026", token: token}, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status = do(t, srv, call{method: http.MethodGet, path: "/reports/sales/daily?date=today", token: token}, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status = do(t, srv, call{method: http.MethodPut, path: "/garments/1", token: token, body: map[string]any{
		"type": "Camisa", "stock": 1, "sale_price": 10,
	}}, nil)
	assert.Equal(t, http.StatusNotFound, status)
}
