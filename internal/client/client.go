// Package client is a Go client for the stockroom HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"stockroom/m/domain"
	"stockroom/m/internal/inventory"
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

// New returns a client for the server at baseURL. A nil httpClient means
// http.DefaultClient.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// SetToken sets the bearer token sent with every request.
func (c *Client) SetToken(token string) {
	c.token = token
}

type authResponse struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

// Register creates an account and keeps its token.
func (c *Client) Register(ctx context.Context, username, email, password, role string) (domain.User, error) {
	var resp authResponse
	body := map[string]string{"username": username, "email": email, "password": password, "role": role}
	if err := c.do(ctx, http.MethodPost, "/auth/register", body, nil, &resp); err != nil {
		return domain.User{}, err
	}
	c.token = resp.Token
	return resp.User, nil
}

// Login authenticates and keeps the token.
func (c *Client) Login(ctx context.Context, email, password string) (domain.User, error) {
	var resp authResponse
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", body, nil, &resp); err != nil {
		return domain.User{}, err
	}
	c.token = resp.Token
	return resp.User, nil
}

func (c *Client) ListSuppliers(ctx context.Context) ([]domain.SupplierSummary, error) {
	var out []domain.SupplierSummary
	err := c.do(ctx, http.MethodGet, "/suppliers", nil, nil, &out)
	return out, err
}

func (c *Client) CreateSupplier(ctx context.Context, in inventory.SupplierInput) (domain.Supplier, error) {
	var out domain.Supplier
	err := c.do(ctx, http.MethodPost, "/suppliers", in, nil, &out)
	return out, err
}

func (c *Client) UpdateSupplier(ctx context.Context, id int64, in inventory.SupplierInput) (domain.Supplier, error) {
	var out domain.Supplier
	err := c.do(ctx, http.MethodPut, "/suppliers/"+strconv.FormatInt(id, 10), in, nil, &out)
	return out, err
}

func (c *Client) ListGarments(ctx context.Context, filter domain.GarmentFilter) ([]domain.Garment, error) {
	q := url.Values{}
	if filter.Type != "" {
		q.Set("type", filter.Type)
	}
	if filter.Query != "" {
		q.Set("q", filter.Query)
	}
	path := "/garments"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out []domain.Garment
	err := c.do(ctx, http.MethodGet, path, nil, nil, &out)
	return out, err
}

func (c *Client) RegisterGarment(ctx context.Context, req inventory.GarmentRegistration) (inventory.Registration, error) {
	var out inventory.Registration
	err := c.do(ctx, http.MethodPost, "/garments", req, nil, &out)
	return out, err
}

func (c *Client) UpdateGarment(ctx context.Context, id int64, upd inventory.GarmentUpdate) (domain.Garment, error) {
	var out domain.Garment
	err := c.do(ctx, http.MethodPut, "/garments/"+strconv.FormatInt(id, 10), upd, nil, &out)
	return out, err
}

// DeleteGarment returns the number of sales removed with the garment.
func (c *Client) DeleteGarment(ctx context.Context, id int64) (int, error) {
	var out struct {
		RemovedSales int `json:"removed_sales"`
	}
	err := c.do(ctx, http.MethodDelete, "/garments/"+strconv.FormatInt(id, 10), nil, nil, &out)
	return out.RemovedSales, err
}

// ListSales returns sales within [from, to], newest first. Empty bounds are
// open.
func (c *Client) ListSales(ctx context.Context, from, to string) ([]domain.Sale, error) {
	q := url.Values{}
	if from != "" {
		q.Set("from", from)
	}
	if to != "" {
		q.Set("to", to)
	}
	path := "/sales"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out []domain.Sale
	err := c.do(ctx, http.MethodGet, path, nil, nil, &out)
	return out, err
}

// SaleLine is one line of a sale request. A nil Price sells at the
// garment's current sale price.
type SaleLine struct {
	GarmentID int64            `json:"garment_id"`
	Quantity  int              `json:"quantity"`
	Price     *decimal.Decimal `json:"price,omitempty"`
}

// RegisterSale sends the lines under a fresh idempotency key.
func (c *Client) RegisterSale(ctx context.Context, lines []SaleLine) (domain.Sale, error) {
	var out domain.Sale
	body := map[string]any{"items": lines}
	header := http.Header{}
	header.Set("Idempotency-Key", uuid.NewString())
	err := c.do(ctx, http.MethodPost, "/sales", body, header, &out)
	return out, err
}

func (c *Client) Dashboard(ctx context.Context) (domain.DashboardStats, error) {
	var out domain.DashboardStats
	err := c.do(ctx, http.MethodGet, "/reports/dashboard", nil, nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, body any, header http.Header, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	for k, values := range header {
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var payload struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil || payload.Error == "" {
			payload.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: payload.Error}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
